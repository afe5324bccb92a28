package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"social-im/config"
	"social-im/pkg/apperr"
	"social-im/pkg/async"
	"social-im/pkg/events"
	"social-im/pkg/jwt"
	"social-im/pkg/logger"
	"social-im/pkg/metrics"
	"social-im/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// TokenValidator 校验访问令牌
type TokenValidator interface {
	ValidateToken(token string) (*jwt.CustomClaims, error)
}

// SendMessagePayload "send message" 事件数据
type SendMessagePayload struct {
	AccessToken       string  `json:"access_token"`
	Content           string  `json:"content"`
	GroupChatID       *uint   `json:"group_chat_id"`
	AddresseeUsername *string `json:"addressee_username"`
}

// SendMessageFunc 处理客户端发来的消息，成功后由实现方向接收方推送 "message response"
type SendMessageFunc func(ctx context.Context, senderID uint, p SendMessagePayload) error

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Handler WebSocket 入口
type Handler struct {
	manager     *Manager
	tokens      TokenValidator
	agg         *events.Aggregator
	pool        *async.Pool
	cfg         config.WebSocketConfig
	sendMessage SendMessageFunc
	upgrader    websocket.Upgrader
}

// NewHandler 创建 WebSocket 处理器
func NewHandler(manager *Manager, tokens TokenValidator, agg *events.Aggregator, pool *async.Pool,
	cfg config.WebSocketConfig, sendMessage SendMessageFunc) *Handler {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.SendQueue <= 0 {
		cfg.SendQueue = 256
	}
	return &Handler{
		manager:     manager,
		tokens:      tokens,
		agg:         agg,
		pool:        pool,
		cfg:         cfg,
		sendMessage: sendMessage,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许跨域
			},
		},
	}
}

// token 优先从cookie读取，其次是 access_token 查询参数
func (h *Handler) token(c *gin.Context) string {
	if h.cfg.TokenCookie != "" {
		if v, err := c.Cookie(h.cfg.TokenCookie); err == nil && v != "" {
			return v
		}
	}
	return c.Query("access_token")
}

// ServeWS Gin路由处理函数
func (h *Handler) ServeWS(c *gin.Context) {
	claims, err := h.tokens.ValidateToken(h.token(c))
	if err != nil {
		response.Fail(c, apperr.ErrUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("WebSocket升级失败", zap.Error(err))
		return
	}

	s := &Session{
		SID:    uuid.NewString(),
		UserID: claims.UserID,
		Conn:   conn,
		Send:   make(chan []byte, h.cfg.SendQueue),
	}
	h.manager.Add(s)
	metrics.SessionOpened()
	logger.Info("WebSocket连接建立", zap.String("sid", s.SID), zap.Uint("user_id", s.UserID))

	go h.writeLoop(s)

	ctx := c.Request.Context()
	h.manager.EmitToSession(s.SID, events.EventConnect, events.StatusChange{
		Status:    events.StatusActive,
		UserID:    s.UserID,
		SessionID: s.SID,
	})
	if err := h.agg.Publish(ctx, events.Connected{SID: s.SID, UserID: s.UserID}); err != nil {
		logger.Warn("发布上线事件失败", zap.String("sid", s.SID), zap.Error(err))
	}

	h.readLoop(ctx, s)

	_ = conn.Close()
	// 请求上下文随连接结束而取消，下线事件放到协程池中处理
	h.pool.RunSafe(ctx, func(ctx context.Context) {
		if err := h.agg.Publish(ctx, events.Disconnected{SID: s.SID}); err != nil {
			logger.Warn("发布下线事件失败", zap.String("sid", s.SID), zap.Error(err))
		}
		h.manager.Remove(s.SID)
		metrics.SessionClosed()
		logger.Info("WebSocket连接关闭", zap.String("sid", s.SID), zap.Uint("user_id", s.UserID))
	})
}

// writeLoop 写协程：发送队列中的消息，并定时发送ping心跳
func (h *Handler) writeLoop(s *Session) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()
	defer s.Conn.Close()

	for {
		select {
		case msg, ok := <-s.Send:
			if !ok {
				return
			}
			_ = s.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := s.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := s.Conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}

// readLoop 读协程：处理客户端事件，超时未收到任何数据则断开
func (h *Handler) readLoop(ctx context.Context, s *Session) {
	h.extendDeadline(s)
	s.Conn.SetPongHandler(func(string) error {
		if err := h.agg.Publish(ctx, events.Heartbeat{SID: s.SID, UserID: s.UserID}); err != nil {
			logger.Debug("心跳处理失败", zap.String("sid", s.SID), zap.Error(err))
		}
		return h.extendDeadline(s)
	})

	for {
		_, payload, err := s.Conn.ReadMessage()
		if err != nil {
			return
		}
		_ = h.extendDeadline(s)

		var frame inboundFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			h.emitError(s, apperr.ErrBadRequest)
			continue
		}

		switch frame.Event {
		case events.EventStatusChange:
			h.onStatusChange(s, frame.Data)
		case events.EventSendMessage:
			h.onSendMessage(ctx, s, frame.Data)
		default:
			h.emitError(s, apperr.ErrBadRequest)
		}
	}
}

func (h *Handler) extendDeadline(s *Session) error {
	if h.cfg.ReadTimeout <= 0 {
		return nil
	}
	return s.Conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
}

// onStatusChange 客户端把自己的状态回复给某个会话；user_id 总是取认证用户
func (h *Handler) onStatusChange(s *Session, data json.RawMessage) {
	var in events.StatusChange
	if err := json.Unmarshal(data, &in); err != nil || in.Status == "" || in.SessionID == "" {
		h.emitError(s, apperr.ErrBadRequest)
		return
	}
	if !h.manager.EmitToSession(in.SessionID, events.EventStatusChange, events.StatusChange{
		Status: in.Status,
		UserID: s.UserID,
	}) {
		logger.Debug("状态回复的目标会话不存在", zap.String("target", in.SessionID))
	}
}

// onSendMessage 重新校验消息中携带的令牌后发送
func (h *Handler) onSendMessage(ctx context.Context, s *Session, data json.RawMessage) {
	var in SendMessagePayload
	if err := json.Unmarshal(data, &in); err != nil {
		h.emitError(s, apperr.ErrBadRequest)
		return
	}
	claims, err := h.tokens.ValidateToken(in.AccessToken)
	if err != nil {
		h.emitError(s, apperr.ErrUnauthorized)
		return
	}
	if h.sendMessage == nil {
		return
	}
	if err := h.sendMessage(ctx, claims.UserID, in); err != nil {
		h.emitError(s, err)
	}
}

func (h *Handler) emitError(s *Session, err error) {
	detail := apperr.ErrInternal.Detail
	if e, ok := apperr.As(err); ok {
		detail = e.Detail
	} else {
		logger.Error("WebSocket事件处理失败", zap.String("sid", s.SID), zap.Error(err))
	}
	h.manager.EmitToSession(s.SID, events.EventError, response.ErrorBody{Detail: detail})
}
