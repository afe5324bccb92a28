package service

import (
	"context"
	"sync"

	"social-im/internal/repository"
	"social-im/pkg/events"
	"social-im/pkg/logger"
	"social-im/pkg/metrics"

	"go.uber.org/zap"
)

// SessionStore 传输层保存的会话 -> 用户映射
type SessionStore interface {
	SessionUser(sid string) (uint, bool)
}

// PresenceRecorder 跨节点的在线状态记录（由 redis.Store 实现），为 nil 时跳过
type PresenceRecorder interface {
	AddSession(ctx context.Context, userID uint, sid string) error
	RemoveSession(ctx context.Context, userID uint, sid string) error
	RefreshPresence(ctx context.Context, userID uint) error
}

// PresenceService 会话上下线时向好友推送在线状态
type PresenceService struct {
	friends  *repository.FriendshipRepository
	emitter  Emitter
	sessions SessionStore
	recorder PresenceRecorder

	mu   sync.Mutex
	subs []*events.Subscription
}

func NewPresenceService(friends *repository.FriendshipRepository, emitter Emitter,
	sessions SessionStore, recorder PresenceRecorder) *PresenceService {
	return &PresenceService{friends: friends, emitter: emitter, sessions: sessions, recorder: recorder}
}

// Register 按顺序订阅：OnConnect、OnDisconnect、在线状态记录。重复调用无效果
func (s *PresenceService) Register(agg *events.Aggregator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.subs) > 0 {
		return
	}
	s.subs = []*events.Subscription{
		events.Subscribe(agg, s.OnConnect),
		events.Subscribe(agg, s.OnDisconnect),
		events.Subscribe(agg, s.recordConnect),
		events.Subscribe(agg, s.recordDisconnect),
		events.Subscribe(agg, s.refresh),
	}
}

// Unregister 取消全部订阅
func (s *PresenceService) Unregister(agg *events.Aggregator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		agg.Unsubscribe(sub)
	}
	s.subs = nil
}

// OnConnect 通知所有好友：该用户上线，附带会话ID以便好友回复自己的状态
func (s *PresenceService) OnConnect(ctx context.Context, ev events.Connected) error {
	return s.broadcast(ctx, ev.UserID, events.StatusChange{
		Status:    events.StatusActive,
		UserID:    ev.UserID,
		SessionID: ev.SID,
	})
}

// OnDisconnect 通知所有好友：该用户下线
func (s *PresenceService) OnDisconnect(ctx context.Context, ev events.Disconnected) error {
	uid, ok := s.sessions.SessionUser(ev.SID)
	if !ok {
		logger.Debug("下线会话已不存在", zap.String("sid", ev.SID))
		return nil
	}
	return s.broadcast(ctx, uid, events.StatusChange{
		Status: events.StatusOffline,
		UserID: uid,
	})
}

func (s *PresenceService) broadcast(ctx context.Context, uid uint, change events.StatusChange) error {
	friends, err := s.friends.AcceptedFriendIDs(ctx, uid)
	if err != nil {
		logger.Error("查询好友失败", zap.Uint("user_id", uid), zap.Error(err))
		return err
	}
	for _, id := range friends {
		s.emitter.EmitToRoom(id, events.EventStatusChange, change)
	}
	metrics.PresenceEmitted(change.Status)
	logger.Debug("在线状态已推送",
		zap.Uint("user_id", uid),
		zap.String("status", change.Status),
		zap.Int("friends", len(friends)),
	)
	return nil
}

func (s *PresenceService) recordConnect(ctx context.Context, ev events.Connected) error {
	if s.recorder == nil {
		return nil
	}
	if err := s.recorder.AddSession(ctx, ev.UserID, ev.SID); err != nil {
		logger.Warn("记录在线状态失败", zap.Uint("user_id", ev.UserID), zap.Error(err))
	}
	return nil
}

func (s *PresenceService) recordDisconnect(ctx context.Context, ev events.Disconnected) error {
	if s.recorder == nil {
		return nil
	}
	uid, ok := s.sessions.SessionUser(ev.SID)
	if !ok {
		return nil
	}
	if err := s.recorder.RemoveSession(ctx, uid, ev.SID); err != nil {
		logger.Warn("清除在线状态失败", zap.Uint("user_id", uid), zap.Error(err))
	}
	return nil
}

func (s *PresenceService) refresh(ctx context.Context, ev events.Heartbeat) error {
	if s.recorder == nil {
		return nil
	}
	return s.recorder.RefreshPresence(ctx, ev.UserID)
}
