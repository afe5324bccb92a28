package handler

import (
	"social-im/internal/service"
	"social-im/pkg/apperr"
	"social-im/pkg/jwt"
	"social-im/pkg/response"

	"github.com/gin-gonic/gin"
)

// MessageHandler 消息处理器
type MessageHandler struct {
	service *service.MessageService
}

// NewMessageHandler 创建MessageHandler实例
func NewMessageHandler(s *service.MessageService) *MessageHandler {
	return &MessageHandler{service: s}
}

// SendMessage 发送消息：私聊对象在查询参数 addressee_username 中，群聊ID在请求体中
func (h *MessageHandler) SendMessage(c *gin.Context) {
	type req struct {
		Content     string `json:"content"`
		GroupChatID *uint  `json:"group_chat_id"`
	}
	var r req
	if err := c.ShouldBindJSON(&r); err != nil {
		response.Fail(c, apperr.ErrBadRequest)
		return
	}

	in := service.SendMessageInput{
		SenderID:    jwt.GetUserID(c),
		GroupChatID: r.GroupChatID,
		Content:     r.Content,
	}
	if addressee, ok := c.GetQuery("addressee_username"); ok && addressee != "" {
		in.AddresseeUsername = &addressee
	}

	msg, err := h.service.Send(c.Request.Context(), in)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, msg)
}

// ListFrom 获取某个好友发给我的消息（分页）
func (h *MessageHandler) ListFrom(c *gin.Context) {
	cur, limit, err := pageParams(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	page, err := h.service.ListFrom(c.Request.Context(), jwt.GetUserID(c), c.Query("sender_username"), cur, limit)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, page)
}

// MarkSeen 标记某个好友发来的消息为已读
func (h *MessageHandler) MarkSeen(c *gin.Context) {
	n, err := h.service.MarkSeen(c.Request.Context(), jwt.GetUserID(c), c.Query("sender_username"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"updated": n})
}

// GetUnreadCount 获取未读消息数量
func (h *MessageHandler) GetUnreadCount(c *gin.Context) {
	count, err := h.service.UnreadCount(c.Request.Context(), jwt.GetUserID(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"unread_count": count})
}
