// Package metrics 暴露 Prometheus 指标。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "path", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	wsSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_active_sessions",
		Help: "Open socket sessions.",
	})

	presenceEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_events_total",
		Help: "Presence status changes fanned out to friends.",
	}, []string{"status"})

	friendshipTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "friendship_transitions_total",
		Help: "Successful friendship state machine transitions by verb.",
	}, []string{"verb"})
)

// Middleware 记录请求数与耗时，path 使用路由模板避免高基数
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler /metrics 处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// SessionOpened 会话建立
func SessionOpened() { wsSessions.Inc() }

// SessionClosed 会话关闭
func SessionClosed() { wsSessions.Dec() }

// PresenceEmitted 推送了一条在线状态
func PresenceEmitted(status string) { presenceEvents.WithLabelValues(status).Inc() }

// FriendshipTransition 好友状态机完成一次转换
func FriendshipTransition(verb string) { friendshipTransitions.WithLabelValues(verb).Inc() }
