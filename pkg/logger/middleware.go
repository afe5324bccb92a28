package logger

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorLoggerMiddleware panic恢复中间件，记录日志并返回500
func ErrorLoggerMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		Error("HTTP请求发生panic",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("ip", c.ClientIP()),
			zap.String("error", fmt.Sprint(recovered)),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
	})
}

// RequestLogger 请求日志记录器
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		l := WithFields(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"ip":         c.ClientIP(),
			"status":     status,
			"latency":    time.Since(start).String(),
			"user_agent": c.Request.UserAgent(),
		})
		if len(c.Errors) > 0 {
			l = l.With(zap.String("error", c.Errors.String()))
		}

		// 根据状态码选择日志级别
		switch {
		case status >= 500:
			l.Error("HTTP请求错误")
		case status >= 400:
			l.Warn("HTTP请求警告")
		default:
			l.Info("HTTP请求成功")
		}
	}
}
