package repository

import (
	"context"
	"errors"
	"fmt"

	"social-im/internal/model"
	"social-im/pkg/db"

	"gorm.io/gorm/clause"
)

// UserRepository 用户数据仓储
type UserRepository struct {
	gw *db.Gateway
}

// NewUserRepository 创建UserRepository实例
func NewUserRepository(gw *db.Gateway) *UserRepository {
	return &UserRepository{gw: gw}
}

// Create 创建用户
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.gw.Conn(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetByID 根据ID获取用户，不存在返回 db.ErrNotFound
func (r *UserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	return db.FindOne[model.User](r.gw.Conn(ctx), "user_id = ?", id)
}

// GetByUsername 根据用户名获取用户
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.FindOne[model.User](r.gw.Conn(ctx), "username = ?", username)
}

// GetByEmail 根据邮箱获取用户
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.FindOne[model.User](r.gw.Conn(ctx), "email = ?", email)
}

// GetByIDs 批量获取用户，按用户名升序
func (r *UserRepository) GetByIDs(ctx context.Context, ids []uint) ([]model.User, error) {
	if len(ids) == 0 {
		return []model.User{}, nil
	}
	return db.FindMany[model.User](r.gw.Conn(ctx).Order("username"), "user_id IN ?", ids)
}

// UsernameExists 用户名是否已被占用
func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return exists(r.GetByUsername(ctx, username))
}

// EmailExists 邮箱是否已注册
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return exists(r.GetByEmail(ctx, email))
}

// UpdatePasswordHash 更新密码哈希
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id uint, hash string) error {
	return r.gw.Conn(ctx).Model(&model.User{}).
		Where("user_id = ?", id).
		Update("password_hash", hash).Error
}

// LockPair 在当前事务中按 user_id 升序对两名用户加行锁（SELECT ... FOR UPDATE），
// 两人之间尚无关系行时，并发的好友请求在这里排队。
func (r *UserRepository) LockPair(ctx context.Context, userA, userB uint) error {
	if !db.InTransaction(ctx) {
		return errors.New("lock user pair: not in transaction")
	}
	var ids []uint
	err := r.gw.Conn(ctx).Model(&model.User{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id IN ?", []uint{userA, userB}).
		Order("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return fmt.Errorf("lock user pair: %w", err)
	}
	return nil
}

func exists(_ *model.User, err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, db.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
