package service

import (
	"context"
	"errors"
	"strings"

	"social-im/internal/model"
	"social-im/internal/repository"
	"social-im/pkg/apperr"
	"social-im/pkg/db"
	"social-im/pkg/jwt"
	"social-im/pkg/logger"
	"social-im/pkg/password"

	"go.uber.org/zap"
)

type UserService struct {
	users      *repository.UserRepository
	jwtService *jwt.JWTService
}

func NewUserService(users *repository.UserRepository, jwtService *jwt.JWTService) *UserService {
	return &UserService{users: users, jwtService: jwtService}
}

// SignUp 注册，成功后直接签发登录令牌
func (s *UserService) SignUp(ctx context.Context, username, email, plainPassword string) (string, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if err := s.ValidEmail(ctx, email); err != nil {
		return "", toInternal("校验邮箱失败", err)
	}
	if err := s.ValidUsername(ctx, username); err != nil {
		return "", toInternal("校验用户名失败", err)
	}
	if err := ValidPassword(plainPassword); err != nil {
		return "", err
	}

	// 密码哈希
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return "", toInternal("密码哈希失败", err)
	}
	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return "", s.createFailed(ctx, user, err)
	}
	logger.Info("用户注册成功", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	return s.issue(user)
}

// createFailed 并发注册时唯一键冲突，重新检查后返回对应的业务错误
func (s *UserService) createFailed(ctx context.Context, user *model.User, cause error) error {
	if taken, err := s.users.EmailExists(ctx, user.Email); err == nil && taken {
		return apperr.ErrAccountExists
	}
	if taken, err := s.users.UsernameExists(ctx, user.Username); err == nil && taken {
		return apperr.ErrUsernameTaken
	}
	return toInternal("创建用户失败", cause)
}

// SignIn 登录
func (s *UserService) SignIn(ctx context.Context, email, plainPassword string) (string, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", apperr.ErrUserNotFound
		}
		return "", toInternal("查询用户失败", err)
	}
	if !password.Verify(plainPassword, u.PasswordHash) {
		return "", apperr.ErrInvalidCredentials
	}
	if password.NeedsRehash(u.PasswordHash) {
		// 哈希参数升级，失败不影响登录
		if hash, err := password.Hash(plainPassword); err == nil {
			if err := s.users.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
				logger.Warn("更新密码哈希失败", zap.Uint("user_id", u.ID), zap.Error(err))
			}
		}
	}
	return s.issue(u)
}

// CurrentUser 根据令牌声明取回当前用户，用户已不存在视为未认证
func (s *UserService) CurrentUser(ctx context.Context, claims *jwt.CustomClaims) (*model.User, error) {
	if claims == nil {
		return nil, apperr.ErrUnauthorized
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperr.ErrUnauthorized
		}
		return nil, toInternal("查询用户失败", err)
	}
	return u, nil
}

// lookupUser 按用户名查找，不存在时返回 notFound
func lookupUser(ctx context.Context, users *repository.UserRepository, username string, notFound *apperr.Error) (*model.User, error) {
	u, err := users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, notFound
		}
		return nil, toInternal("查询用户失败", err)
	}
	return u, nil
}

func (s *UserService) issue(u *model.User) (string, error) {
	token, err := s.jwtService.GenerateLoginToken(u.ID, u.Username, u.Email)
	if err != nil {
		return "", toInternal("签发令牌失败", err)
	}
	return token, nil
}

// toInternal 业务错误原样返回，其余错误记录日志后转为 500
func toInternal(msg string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	logger.Error(msg, zap.Error(err))
	return apperr.Wrap(apperr.ErrInternal, err)
}
