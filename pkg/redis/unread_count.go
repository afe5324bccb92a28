package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// 未读消息计数相关常量
const (
	UnreadCountKeyPrefix = "im:unread:"   // 未读消息计数key前缀
	UnreadCountTTL       = 24 * time.Hour // 计数过期后回源数据库
)

// 只在计数已存在时递增，避免计数过期后从1重新累加
var incrIfExists = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	local n = redis.call('INCR', KEYS[1])
	redis.call('EXPIRE', KEYS[1], ARGV[1])
	return n
end
return -1
`)

func unreadKey(userID uint) string {
	return UnreadCountKeyPrefix + strconv.FormatUint(uint64(userID), 10)
}

// IncrementUnreadCount 增加用户未读消息计数；计数未初始化时不做处理，读取时回源数据库
func (s *Store) IncrementUnreadCount(ctx context.Context, userID uint) error {
	ttl := int64(UnreadCountTTL / time.Second)
	if err := incrIfExists.Run(ctx, s.client, []string{unreadKey(userID)}, ttl).Err(); err != nil {
		return fmt.Errorf("增加未读消息计数失败: %w", err)
	}
	return nil
}

// DecrementUnreadCount 减少用户未读消息计数，降到0及以下时删除key
func (s *Store) DecrementUnreadCount(ctx context.Context, userID uint, n int64) error {
	key := unreadKey(userID)
	count, err := s.client.DecrBy(ctx, key, n).Result()
	if err != nil {
		return fmt.Errorf("减少未读消息计数失败: %w", err)
	}
	if count <= 0 {
		s.client.Del(ctx, key)
	}
	return nil
}

// GetUnreadCount 获取用户未读消息计数；key 不存在时返回 -1，表示需要从数据库获取
func (s *Store) GetUnreadCount(ctx context.Context, userID uint) (int64, error) {
	count, err := s.client.Get(ctx, unreadKey(userID)).Int64()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return -1, nil
		}
		return 0, fmt.Errorf("获取未读消息计数失败: %w", err)
	}
	return count, nil
}

// SetUnreadCount 设置用户未读消息计数（用于数据库回源后初始化）
func (s *Store) SetUnreadCount(ctx context.Context, userID uint, count int64) error {
	if err := s.client.Set(ctx, unreadKey(userID), count, UnreadCountTTL).Err(); err != nil {
		return fmt.Errorf("设置未读消息计数失败: %w", err)
	}
	return nil
}
