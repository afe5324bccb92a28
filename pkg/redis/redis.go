package redis

import (
	"context"
	"fmt"
	"time"

	"social-im/config"

	goredis "github.com/redis/go-redis/v9"
)

// Store 封装 Redis 客户端，提供在线状态与未读计数
type Store struct {
	client *goredis.Client
}

// InitRedis 初始化Redis连接
func InitRedis(ctx context.Context, cfg config.RedisConfig) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis连接失败: %w", err)
	}

	return NewStore(client), nil
}

// NewStore 使用已有客户端创建 Store
func NewStore(client *goredis.Client) *Store {
	return &Store{client: client}
}

// Close 关闭Redis连接
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// HealthCheck 检查Redis健康状态
func (s *Store) HealthCheck(ctx context.Context) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("redis客户端未初始化")
	}
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis连接异常: %w", err)
	}
	return nil
}

// DeleteByPattern 按模式扫描并删除key，返回删除数量
func (s *Store) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	var deleted int64
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	batch := make([]string, 0, 100)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.client.Del(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("删除key失败: %w", err)
		}
		deleted += n
		batch = batch[:0]
		return nil
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := flush(); err != nil {
				return deleted, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("扫描key失败: %w", err)
	}
	return deleted, flush()
}
