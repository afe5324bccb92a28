package service

import (
	"context"
	"strings"

	"social-im/internal/model"
	"social-im/internal/repository"
	"social-im/pkg/apperr"
	"social-im/pkg/db"
	"social-im/pkg/events"
	"social-im/pkg/logger"
	"social-im/pkg/pagination"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// Emitter 向用户房间推送事件（由 websocket.Manager 实现）
type Emitter interface {
	EmitToRoom(userID uint, event string, data interface{}) int
}

// UnreadCounter 未读计数缓存（由 redis.Store 实现），为 nil 时只查数据库
type UnreadCounter interface {
	IncrementUnreadCount(ctx context.Context, userID uint) error
	DecrementUnreadCount(ctx context.Context, userID uint, n int64) error
	GetUnreadCount(ctx context.Context, userID uint) (int64, error)
	SetUnreadCount(ctx context.Context, userID uint, count int64) error
}

// SendMessageInput 发送消息参数，AddresseeUsername 与 GroupChatID 二选一
type SendMessageInput struct {
	SenderID          uint
	AddresseeUsername *string
	GroupChatID       *uint
	Content           string
}

var messageColumn = pagination.Column[model.Message]{
	Name: "message.message_id",
	Key:  func(m model.Message) string { return pagination.KeyUint(m.ID) },
	Bind: pagination.BindUint,
}

// MessageService 消息服务
type MessageService struct {
	gw       *db.Gateway
	users    *repository.UserRepository
	friends  *repository.FriendshipRepository
	messages *repository.MessageRepository
	groups   *repository.GroupChatRepository
	emitter  Emitter
	unread   UnreadCounter
	policy   *bluemonday.Policy
}

// NewMessageService 创建MessageService实例
func NewMessageService(gw *db.Gateway, users *repository.UserRepository, friends *repository.FriendshipRepository,
	messages *repository.MessageRepository, groups *repository.GroupChatRepository,
	emitter Emitter, unread UnreadCounter) *MessageService {
	return &MessageService{
		gw:       gw,
		users:    users,
		friends:  friends,
		messages: messages,
		groups:   groups,
		emitter:  emitter,
		unread:   unread,
		policy:   bluemonday.UGCPolicy(),
	}
}

// Sanitize 过滤不安全的HTML标记
func (s *MessageService) Sanitize(content string) string {
	return strings.TrimSpace(s.policy.Sanitize(content))
}

// Send 发送私聊或群聊消息，提交后推送给接收方
func (s *MessageService) Send(ctx context.Context, in SendMessageInput) (*model.Message, error) {
	switch {
	case in.AddresseeUsername == nil && in.GroupChatID == nil:
		return nil, apperr.ErrNoTarget
	case in.AddresseeUsername != nil && in.GroupChatID != nil:
		return nil, apperr.ErrAmbiguousTarget
	}
	content := s.Sanitize(in.Content)
	if content == "" {
		return nil, apperr.ErrEmptyContent
	}

	msg := &model.Message{SenderID: in.SenderID, Content: content}
	var recipients []uint
	err := s.gw.Transaction(ctx, func(ctx context.Context) error {
		if in.GroupChatID != nil {
			ids, err := s.authorizeGroup(ctx, in.SenderID, *in.GroupChatID)
			if err != nil {
				return err
			}
			msg.GroupChatID = in.GroupChatID
			recipients = ids
		} else {
			id, err := s.authorizeDirect(ctx, in.SenderID, *in.AddresseeUsername)
			if err != nil {
				return err
			}
			msg.RecieverID = &id
			recipients = []uint{id}
		}
		return s.messages.Create(ctx, msg)
	})
	if err != nil {
		return nil, toInternal("发送消息失败", err)
	}

	if msg.RecieverID != nil && s.unread != nil {
		// 缓存计数失败不影响发送，读取时会回源数据库
		if err := s.unread.IncrementUnreadCount(ctx, *msg.RecieverID); err != nil {
			logger.Warn("更新未读计数失败", zap.Uint("user_id", *msg.RecieverID), zap.Error(err))
		}
	}
	s.push(msg, recipients)
	return msg, nil
}

// authorizeDirect 私聊：接收方存在，且双方最新状态为已接受
func (s *MessageService) authorizeDirect(ctx context.Context, senderID uint, username string) (uint, error) {
	addressee, err := lookupUser(ctx, s.users, username, apperr.ErrUserNotFound)
	if err != nil {
		return 0, err
	}
	ok, err := s.friends.AreFriends(ctx, senderID, addressee.ID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, apperr.ErrNotAFriend
	}
	return addressee.ID, nil
}

// authorizeGroup 群聊：发送者必须是成员，返回其余成员
func (s *MessageService) authorizeGroup(ctx context.Context, senderID, groupChatID uint) ([]uint, error) {
	ok, err := s.groups.IsMember(ctx, groupChatID, senderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.ErrNotAMember
	}
	members, err := s.groups.MemberIDs(ctx, groupChatID)
	if err != nil {
		return nil, err
	}
	others := make([]uint, 0, len(members))
	for _, id := range members {
		if id != senderID {
			others = append(others, id)
		}
	}
	return others, nil
}

func (s *MessageService) push(msg *model.Message, recipients []uint) {
	if s.emitter == nil {
		return
	}
	for _, id := range recipients {
		s.emitter.EmitToRoom(id, events.EventMessageResponse, msg)
	}
}

// ListFrom sender 发给当前用户的私聊消息（分页，按消息ID升序）
func (s *MessageService) ListFrom(ctx context.Context, uid uint, senderUsername string, cur pagination.Cursor, limit int) (*pagination.Page[model.Message], error) {
	sender, err := lookupUser(ctx, s.users, senderUsername, apperr.ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	page, err := pagination.Paginate(s.messages.MessagesFrom(ctx, sender.ID, uid), messageColumn, cur, limit)
	if err != nil {
		return nil, toInternal("查询消息失败", err)
	}
	return page, nil
}

// MarkSeen 把 sender 发来的未读消息全部标记为已读，返回更新条数
func (s *MessageService) MarkSeen(ctx context.Context, uid uint, senderUsername string) (int64, error) {
	sender, err := lookupUser(ctx, s.users, senderUsername, apperr.ErrUserNotFound)
	if err != nil {
		return 0, err
	}
	n, err := s.messages.MarkSeen(ctx, sender.ID, uid)
	if err != nil {
		return 0, toInternal("标记已读失败", err)
	}
	if n > 0 && s.unread != nil {
		if err := s.unread.DecrementUnreadCount(ctx, uid, n); err != nil {
			logger.Warn("更新未读计数失败", zap.Uint("user_id", uid), zap.Error(err))
		}
	}
	return n, nil
}

// UnreadCount 未读私聊消息数量（优先从Redis获取）
func (s *MessageService) UnreadCount(ctx context.Context, uid uint) (int64, error) {
	if s.unread != nil {
		count, err := s.unread.GetUnreadCount(ctx, uid)
		if err == nil && count >= 0 {
			return count, nil
		}
		if err != nil {
			logger.Warn("读取未读计数缓存失败", zap.Uint("user_id", uid), zap.Error(err))
		}
	}

	// 缓存未命中，从数据库获取并同步到Redis
	count, err := s.messages.UnreadCount(ctx, uid)
	if err != nil {
		return 0, toInternal("查询未读数失败", err)
	}
	if s.unread != nil {
		_ = s.unread.SetUnreadCount(ctx, uid, count)
	}
	return count, nil
}
