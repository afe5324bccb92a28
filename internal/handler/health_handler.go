package handler

import (
	"context"
	"net/http"
	"time"

	"social-im/pkg/async"
	"social-im/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger 可探活的依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler 健康检查
type HealthHandler struct {
	checks map[string]Pinger
	pool   *async.Pool
}

func NewHealthHandler(checks map[string]Pinger, pool *async.Pool) *HealthHandler {
	return &HealthHandler{checks: checks, pool: pool}
}

// Health 逐个探测依赖，任一失败返回 503
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{"status": "ok", "async_running": h.pool.Running()}
	code := http.StatusOK
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			logger.Warn("健康检查失败", zap.String("component", name), zap.Error(err))
			status[name] = "down"
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "up"
	}
	c.JSON(code, status)
}

// PingFunc 把普通函数适配为 Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }
