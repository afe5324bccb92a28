package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"social-im/internal/model"
	"social-im/internal/repository"
	"social-im/pkg/apperr"
	"social-im/pkg/db"
)

const maxGroupChatName = 64

// GroupChatService 群聊管理
type GroupChatService struct {
	gw      *db.Gateway
	users   *repository.UserRepository
	friends *repository.FriendshipRepository
	groups  *repository.GroupChatRepository
}

func NewGroupChatService(gw *db.Gateway, users *repository.UserRepository,
	friends *repository.FriendshipRepository, groups *repository.GroupChatRepository) *GroupChatService {
	return &GroupChatService{gw: gw, users: users, friends: friends, groups: groups}
}

// Create 创建群聊，创建者自动成为成员
func (s *GroupChatService) Create(ctx context.Context, creatorID uint, name string) (*model.GroupChat, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxGroupChatName {
		return nil, apperr.ErrInvalidName
	}
	gc := &model.GroupChat{Name: name}
	err := s.gw.Transaction(ctx, func(ctx context.Context) error {
		if err := s.groups.Create(ctx, gc); err != nil {
			return err
		}
		_, err := s.groups.AddMember(ctx, gc.ID, creatorID)
		return err
	})
	if err != nil {
		return nil, toInternal("创建群聊失败", err)
	}
	return gc, nil
}

// AddMember 成员邀请自己的好友入群
func (s *GroupChatService) AddMember(ctx context.Context, actorID, groupChatID uint, username string) (*model.GroupChatMember, error) {
	var out *model.GroupChatMember
	err := s.gw.Transaction(ctx, func(ctx context.Context) error {
		if _, err := s.groups.GetByID(ctx, groupChatID); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return apperr.ErrGroupChatNotFound
			}
			return err
		}
		ok, err := s.groups.IsMember(ctx, groupChatID, actorID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrNotAMember
		}

		member, err := lookupUser(ctx, s.users, username, apperr.ErrMemberNotFound)
		if err != nil {
			return err
		}
		if ok, err = s.groups.IsMember(ctx, groupChatID, member.ID); err != nil {
			return err
		} else if ok {
			return apperr.ErrAlreadyMember
		}
		if ok, err = s.friends.AreFriends(ctx, actorID, member.ID); err != nil {
			return err
		} else if !ok {
			return apperr.ErrNotAFriend
		}

		out, err = s.groups.AddMember(ctx, groupChatID, member.ID)
		return err
	})
	if err != nil {
		return nil, toInternal("添加群成员失败", err)
	}
	return out, nil
}
