package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// 在线状态相关常量
const (
	PresenceKeyPrefix = "im:presence:user:" // 用户会话集合key前缀
	OnlineUsersKey    = "im:online:users"   // 在线用户集合key
	PresenceTTL       = 2 * time.Minute     // 会话集合TTL（2倍心跳周期）
)

func presenceKey(userID uint) string {
	return PresenceKeyPrefix + strconv.FormatUint(uint64(userID), 10)
}

// AddSession 记录用户的一个在线会话
func (s *Store) AddSession(ctx context.Context, userID uint, sid string) error {
	key := presenceKey(userID)
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, key, sid)
	pipe.Expire(ctx, key, PresenceTTL)
	pipe.SAdd(ctx, OnlineUsersKey, userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("设置用户在线状态失败: %w", err)
	}
	return nil
}

// RemoveSession 移除会话，用户没有剩余会话时从在线集合移除
func (s *Store) RemoveSession(ctx context.Context, userID uint, sid string) error {
	key := presenceKey(userID)
	if err := s.client.SRem(ctx, key, sid).Err(); err != nil {
		return fmt.Errorf("删除用户会话失败: %w", err)
	}
	left, err := s.client.SCard(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("获取用户会话数失败: %w", err)
	}
	if left == 0 {
		if err := s.client.SRem(ctx, OnlineUsersKey, userID).Err(); err != nil {
			return fmt.Errorf("从在线用户集合移除失败: %w", err)
		}
	}
	return nil
}

// RefreshPresence 延长会话集合TTL（心跳时调用）
func (s *Store) RefreshPresence(ctx context.Context, userID uint) error {
	if err := s.client.Expire(ctx, presenceKey(userID), PresenceTTL).Err(); err != nil {
		return fmt.Errorf("刷新用户在线状态失败: %w", err)
	}
	return nil
}

// IsOnline 检查用户是否在线
func (s *Store) IsOnline(ctx context.Context, userID uint) (bool, error) {
	n, err := s.client.Exists(ctx, presenceKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("检查用户在线状态失败: %w", err)
	}
	return n > 0, nil
}

// OnlineAmong 返回 ids 中在线的用户，保持原顺序
func (s *Store) OnlineAmong(ctx context.Context, ids []uint) ([]uint, error) {
	online := make([]uint, 0, len(ids))
	if len(ids) == 0 {
		return online, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*goredis.IntCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Exists(ctx, presenceKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("批量检查在线状态失败: %w", err)
	}
	for i, cmd := range cmds {
		if cmd.Val() > 0 {
			online = append(online, ids[i])
		}
	}
	return online, nil
}

// OnlineUsers 获取所有在线用户ID，并清理会话集合已过期的成员
func (s *Store) OnlineUsers(ctx context.Context) ([]uint, error) {
	members, err := s.client.SMembers(ctx, OnlineUsersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("获取在线用户列表失败: %w", err)
	}

	ids := make([]uint, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}

	alive, err := s.OnlineAmong(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(alive) < len(ids) {
		stale := make([]interface{}, 0, len(ids)-len(alive))
		set := make(map[uint]struct{}, len(alive))
		for _, id := range alive {
			set[id] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := set[id]; !ok {
				stale = append(stale, id)
			}
		}
		s.client.SRem(ctx, OnlineUsersKey, stale...)
	}
	return alive, nil
}
