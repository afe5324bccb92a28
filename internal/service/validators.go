package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"social-im/pkg/apperr"

	"github.com/go-playground/validator/v10"
)

var (
	validate        = validator.New()
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._]{3,25}$`)
)

// IsValidEmailSyntax 邮箱格式校验
func IsValidEmailSyntax(email string) bool {
	return validate.Var(email, "required,email") == nil
}

// IsValidUsernameSyntax 3-25位，只含字母数字、下划线和点；
// 不能以下划线或点开头结尾，不能出现连续的下划线/点组合
func IsValidUsernameSyntax(username string) bool {
	if !usernamePattern.MatchString(username) {
		return false
	}
	if strings.HasPrefix(username, "_") || strings.HasPrefix(username, ".") ||
		strings.HasSuffix(username, "_") || strings.HasSuffix(username, ".") {
		return false
	}
	for _, bad := range []string{"__", "_.", "._", ".."} {
		if strings.Contains(username, bad) {
			return false
		}
	}
	return true
}

// ValidPassword 至少8位，包含大写、小写字母和数字
func ValidPassword(password string) error {
	if len(password) < 8 {
		return apperr.ErrInvalidPassword
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return apperr.ErrInvalidPassword
	}
	return nil
}

// ValidEmail 格式 + 唯一性
func (s *UserService) ValidEmail(ctx context.Context, email string) error {
	if !IsValidEmailSyntax(email) {
		return apperr.ErrInvalidEmail
	}
	taken, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if taken {
		return apperr.ErrAccountExists
	}
	return nil
}

// ValidUsername 格式 + 唯一性
func (s *UserService) ValidUsername(ctx context.Context, username string) error {
	if !IsValidUsernameSyntax(username) {
		return apperr.ErrInvalidUsername
	}
	taken, err := s.users.UsernameExists(ctx, username)
	if err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if taken {
		return apperr.ErrUsernameTaken
	}
	return nil
}
