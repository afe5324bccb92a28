package service

import (
	"context"
	"errors"

	"social-im/internal/model"
	"social-im/internal/repository"
	"social-im/pkg/apperr"
	"social-im/pkg/db"
	"social-im/pkg/logger"
	"social-im/pkg/metrics"
	"social-im/pkg/pagination"

	"go.uber.org/zap"
)

// PresenceLookup 在线状态查询：Redis 或本节点会话表
type PresenceLookup interface {
	OnlineAmong(ctx context.Context, ids []uint) ([]uint, error)
}

var (
	usernameColumn = pagination.Column[model.User]{
		Name: "app_user.username",
		Key:  func(u model.User) string { return u.Username },
		Bind: func(raw string) (interface{}, error) { return raw, nil },
	}
	addresseeColumn = pagination.Column[model.Friendship]{
		Name: "friendship.addressee_id",
		Key:  func(f model.Friendship) string { return pagination.KeyUint(f.AddresseeID) },
		Bind: pagination.BindUint,
	}
)

// FriendshipService 好友关系：请求、处理、拉黑、取消、删除与列表
type FriendshipService struct {
	gw       *db.Gateway
	users    *repository.UserRepository
	friends  *repository.FriendshipRepository
	presence PresenceLookup
}

func NewFriendshipService(gw *db.Gateway, users *repository.UserRepository,
	friends *repository.FriendshipRepository, presence PresenceLookup) *FriendshipService {
	return &FriendshipService{gw: gw, users: users, friends: friends, presence: presence}
}

// transition 在一个事务中执行好友关系变更
func (s *FriendshipService) transition(ctx context.Context, verb string, fn func(ctx context.Context) error) error {
	if err := s.gw.Transaction(ctx, fn); err != nil {
		return toInternal("好友关系操作失败", err)
	}
	metrics.FriendshipTransition(verb)
	return nil
}

// Send 发送好友请求
func (s *FriendshipService) Send(ctx context.Context, currentUserID uint, username string) (*model.Friendship, error) {
	var out *model.Friendship
	err := s.transition(ctx, "send", func(ctx context.Context) error {
		addressee, err := lookupUser(ctx, s.users, username, apperr.ErrUserNotFound)
		if err != nil {
			return err
		}
		if addressee.ID == currentUserID {
			return apperr.ErrSelfTarget
		}
		if err := s.users.LockPair(ctx, currentUserID, addressee.ID); err != nil {
			return err
		}

		h := s.friends.Handle()
		err = h.LoadBidirectional(ctx, currentUserID, addressee.ID)
		switch {
		case err == nil:
			if err := h.RaiseIfBlocked(ctx); err != nil {
				return err
			}
			latest, err := h.LatestStatus(ctx)
			if err != nil {
				return err
			}
			if latest != nil && latest.StatusCodeID == model.StatusRequested && h.Friendship.RequesterID == currentUserID {
				return apperr.ErrAlreadyRequested
			}
			return apperr.ErrCannotSend
		case !errors.Is(err, apperr.ErrFriendshipNotFound):
			return err
		}

		if err := h.Create(ctx, currentUserID, addressee.ID); err != nil {
			return err
		}
		if _, err := h.AppendStatus(ctx, currentUserID, addressee.ID, currentUserID, model.StatusRequested); err != nil {
			return err
		}
		out = h.Friendship
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("好友请求已发送", zap.Uint("requester_id", out.RequesterID), zap.Uint("addressee_id", out.AddresseeID))
	return out, nil
}

// Accept 接受好友请求
func (s *FriendshipService) Accept(ctx context.Context, currentUserID uint, requesterUsername string) (*model.FriendshipStatus, error) {
	return s.address(ctx, "accept", currentUserID, requesterUsername, model.StatusAccepted)
}

// Decline 拒绝好友请求
func (s *FriendshipService) Decline(ctx context.Context, currentUserID uint, requesterUsername string) (*model.FriendshipStatus, error) {
	return s.address(ctx, "decline", currentUserID, requesterUsername, model.StatusDeclined)
}

// address 处理别人发给当前用户的请求
func (s *FriendshipService) address(ctx context.Context, verb string, currentUserID uint, requesterUsername string, code model.StatusCode) (*model.FriendshipStatus, error) {
	var out *model.FriendshipStatus
	err := s.transition(ctx, verb, func(ctx context.Context) error {
		requester, err := lookupUser(ctx, s.users, requesterUsername, apperr.ErrUserNotFound)
		if err != nil {
			return err
		}

		h := s.friends.Handle()
		if err := h.LoadBidirectional(ctx, currentUserID, requester.ID); err != nil {
			return err
		}
		if err := h.RaiseIfBlocked(ctx); err != nil {
			return err
		}
		latest, err := h.LatestStatus(ctx)
		if err != nil {
			return err
		}
		if latest != nil && (latest.StatusCodeID == model.StatusAccepted || latest.StatusCodeID == model.StatusDeclined) {
			return apperr.ErrAlreadyAddressed
		}
		f := h.Friendship
		if latest == nil || latest.StatusCodeID != model.StatusRequested ||
			f.AddresseeID != currentUserID || f.RequesterID != requester.ID {
			return apperr.ErrFriendshipNotFound
		}

		out, err = h.AppendStatus(ctx, f.RequesterID, f.AddresseeID, currentUserID, code)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Block 拉黑用户；两人之间没有关系行时以当前用户为发起方创建
func (s *FriendshipService) Block(ctx context.Context, currentUserID uint, username string) (*model.FriendshipStatus, error) {
	var out *model.FriendshipStatus
	err := s.transition(ctx, "block", func(ctx context.Context) error {
		target, err := lookupUser(ctx, s.users, username, apperr.ErrUserNotFound)
		if err != nil {
			return err
		}
		if target.ID == currentUserID {
			return apperr.ErrSelfTarget
		}
		if err := s.users.LockPair(ctx, currentUserID, target.ID); err != nil {
			return err
		}

		h := s.friends.Handle()
		err = h.LoadBidirectional(ctx, currentUserID, target.ID)
		switch {
		case errors.Is(err, apperr.ErrFriendshipNotFound):
			if err := h.Create(ctx, currentUserID, target.ID); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			latest, err := h.LatestStatus(ctx)
			if err != nil {
				return err
			}
			if latest != nil && latest.StatusCodeID == model.StatusBlocked {
				return apperr.ErrAlreadyBlocked
			}
		}

		f := h.Friendship
		out, err = h.AppendStatus(ctx, f.RequesterID, f.AddresseeID, currentUserID, model.StatusBlocked)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Cancel 撤回自己发出的、仍待处理的请求，关系行与历史一并删除
func (s *FriendshipService) Cancel(ctx context.Context, currentUserID uint, addresseeUsername string) (*model.Friendship, error) {
	var out *model.Friendship
	err := s.transition(ctx, "cancel", func(ctx context.Context) error {
		addressee, err := lookupUser(ctx, s.users, addresseeUsername, apperr.ErrUserNotFound)
		if err != nil {
			return err
		}

		h := s.friends.Handle()
		if err := h.LoadDirected(ctx, currentUserID, addressee.ID); err != nil {
			return err
		}
		latest, err := h.LatestStatus(ctx)
		if err != nil {
			return err
		}
		if latest == nil || latest.StatusCodeID != model.StatusRequested {
			return apperr.ErrNotCancellable
		}
		out = h.Friendship
		return h.Delete(ctx)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete 删除好友关系及其全部历史；被拉黑的关系不能删除
func (s *FriendshipService) Delete(ctx context.Context, currentUserID uint, friendUsername string) (*model.Friendship, error) {
	var out *model.Friendship
	err := s.transition(ctx, "delete", func(ctx context.Context) error {
		friend, err := lookupUser(ctx, s.users, friendUsername, apperr.ErrUserNotFound)
		if err != nil {
			return err
		}

		h := s.friends.Handle()
		if err := h.LoadBidirectional(ctx, currentUserID, friend.ID); err != nil {
			return err
		}
		if err := h.RaiseIfBlocked(ctx); err != nil {
			return err
		}
		out = h.Friendship
		return h.Delete(ctx)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AcceptedFriends 好友列表（分页）
func (s *FriendshipService) AcceptedFriends(ctx context.Context, uid uint, cur pagination.Cursor, limit int) (*pagination.Page[model.User], error) {
	page, err := pagination.Paginate(s.friends.AcceptedFriends(ctx, uid), usernameColumn, cur, limit)
	if err != nil {
		return nil, toInternal("查询好友列表失败", err)
	}
	return page, nil
}

// RequestSenders 待处理请求的发起人（分页）
func (s *FriendshipService) RequestSenders(ctx context.Context, uid uint, cur pagination.Cursor, limit int) (*pagination.Page[model.User], error) {
	page, err := pagination.Paginate(s.friends.RequestSenders(ctx, uid), usernameColumn, cur, limit)
	if err != nil {
		return nil, toInternal("查询好友请求失败", err)
	}
	return page, nil
}

// RequestsSent 自己发出的待处理请求（分页）
func (s *FriendshipService) RequestsSent(ctx context.Context, uid uint, cur pagination.Cursor, limit int) (*pagination.Page[model.Friendship], error) {
	page, err := pagination.Paginate(s.friends.RequestsSent(ctx, uid), addresseeColumn, cur, limit)
	if err != nil {
		return nil, toInternal("查询已发送请求失败", err)
	}
	return page, nil
}

// OnlineFriends 当前在线的好友，按用户名排序
func (s *FriendshipService) OnlineFriends(ctx context.Context, uid uint) ([]model.User, error) {
	ids, err := s.friends.AcceptedFriendIDs(ctx, uid)
	if err != nil {
		return nil, toInternal("查询好友失败", err)
	}
	if len(ids) == 0 || s.presence == nil {
		return []model.User{}, nil
	}
	online, err := s.presence.OnlineAmong(ctx, ids)
	if err != nil {
		return nil, toInternal("查询在线状态失败", err)
	}
	users, err := s.users.GetByIDs(ctx, online)
	if err != nil {
		return nil, toInternal("查询用户失败", err)
	}
	return users, nil
}
