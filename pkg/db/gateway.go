package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrNotFound 查询没有匹配的记录
	ErrNotFound = errors.New("record not found")
	// ErrMultipleFound 期望唯一的查询匹配到多条记录，属于数据不一致
	ErrMultipleFound = errors.New("multiple records found")
)

type txKey struct{}

// Gateway 持久化网关：作用域事务与单条/多条查询
type Gateway struct {
	orm *gorm.DB
}

// New 创建网关
func New(orm *gorm.DB) *Gateway {
	return &Gateway{orm: orm}
}

// Transaction 在事务中执行 fn。
// ctx 中已有事务时直接复用（嵌套调用共享外层事务）；否则开启新事务，
// fn 返回 nil 提交，返回错误或 panic 时回滚。
func (g *Gateway) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return g.orm.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// Conn 返回 ctx 中的事务句柄，没有则返回根连接
func (g *Gateway) Conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return g.orm.WithContext(ctx)
}

// InTransaction ctx 是否处于事务中
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*gorm.DB)
	return ok
}

// Ping 数据库健康检查
func (g *Gateway) Ping(ctx context.Context) error {
	if g.orm == nil {
		return fmt.Errorf("数据库未初始化")
	}
	sqlDB, err := g.orm.DB()
	if err != nil {
		return fmt.Errorf("获取数据库实例失败: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭数据库连接
func (g *Gateway) Close() error {
	if g.orm == nil {
		return nil
	}
	sqlDB, err := g.orm.DB()
	if err != nil {
		return fmt.Errorf("获取数据库实例失败: %w", err)
	}
	return sqlDB.Close()
}

// FindOne 查询唯一记录：0 条返回 ErrNotFound，多于 1 条返回 ErrMultipleFound
func FindOne[T any](q *gorm.DB, query interface{}, args ...interface{}) (*T, error) {
	var rows []T
	if err := q.Where(query, args...).Limit(2).Find(&rows).Error; err != nil {
		return nil, err
	}
	switch len(rows) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return &rows[0], nil
	default:
		return nil, ErrMultipleFound
	}
}

// FindMany 查询多条记录，可能为空
func FindMany[T any](q *gorm.DB, query interface{}, args ...interface{}) ([]T, error) {
	rows := make([]T, 0)
	if err := q.Where(query, args...).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
