package jwt

import (
	"strings"

	"social-im/pkg/apperr"
	"social-im/pkg/logger"
	"social-im/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// ContextUserIDKey 用户ID在gin.Context中的键名
	ContextUserIDKey = "user_id"
	// ContextUsernameKey 用户名在gin.Context中的键名
	ContextUsernameKey = "username"
	// ContextClaimsKey JWT声明在gin.Context中的键名
	ContextClaimsKey = "jwt_claims"
)

// AuthMiddleware JWT认证中间件
// 从请求头中提取Authorization: Bearer <token>，验证后将用户信息存入gin.Context
func (s *JWTService) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		scheme, tokenString, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
			response.Fail(c, apperr.ErrUnauthorized)
			return
		}

		claims, err := s.ValidateToken(tokenString)
		if err != nil {
			logger.Warn("JWT验证失败",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
			)
			response.Fail(c, apperr.ErrUnauthorized)
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextUsernameKey, claims.Username)
		c.Set(ContextClaimsKey, claims)

		logger.Debug("用户访问接口",
			zap.Uint("user_id", claims.UserID),
			zap.String("username", claims.Username),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)

		c.Next()
	}
}

// GetUserID 从gin.Context中获取用户ID
func GetUserID(c *gin.Context) uint {
	if userID, exists := c.Get(ContextUserIDKey); exists {
		if id, ok := userID.(uint); ok {
			return id
		}
	}
	return 0
}

// GetClaims 从gin.Context中获取JWT声明
func GetClaims(c *gin.Context) *CustomClaims {
	if claims, exists := c.Get(ContextClaimsKey); exists {
		if cc, ok := claims.(*CustomClaims); ok {
			return cc
		}
	}
	return nil
}
