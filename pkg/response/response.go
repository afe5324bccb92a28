package response

import (
	"net/http"

	"social-im/internal/model"
	"social-im/pkg/apperr"
	"social-im/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorBody 错误响应体
type ErrorBody struct {
	Detail string `json:"detail"`
}

// OK 200 成功响应，直接返回数据本身
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created 201 成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// Fail 把错误翻译为HTTP响应：业务错误返回其状态码与detail，其余一律500
func Fail(c *gin.Context, err error) {
	if e, ok := apperr.As(err); ok && e.Kind != apperr.KindInternal {
		if e.Status == http.StatusUnauthorized {
			c.Header("WWW-Authenticate", "Bearer")
		}
		_ = c.Error(err)
		c.AbortWithStatusJSON(e.Status, ErrorBody{Detail: e.Detail})
		return
	}

	logger.Error("请求处理失败",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorBody{Detail: apperr.ErrInternal.Detail})
}

// Token 登录/注册响应
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// BearerToken 构造 bearer 令牌响应
func BearerToken(token string) Token {
	return Token{AccessToken: token, TokenType: "bearer"}
}

// UserInfo 用户信息（隐藏敏感字段）
type UserInfo struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// FilterUserInfo 过滤用户信息，隐藏敏感字段
func FilterUserInfo(user *model.User) *UserInfo {
	if user == nil {
		return nil
	}
	return &UserInfo{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	}
}

// FilterUsers 批量过滤
func FilterUsers(users []model.User) []UserInfo {
	out := make([]UserInfo, 0, len(users))
	for i := range users {
		out = append(out, *FilterUserInfo(&users[i]))
	}
	return out
}
