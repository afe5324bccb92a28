package handler

import (
	"strconv"

	"social-im/internal/service"
	"social-im/pkg/apperr"
	"social-im/pkg/jwt"
	"social-im/pkg/response"

	"github.com/gin-gonic/gin"
)

type GroupChatHandler struct {
	service *service.GroupChatService
}

func NewGroupChatHandler(s *service.GroupChatService) *GroupChatHandler {
	return &GroupChatHandler{service: s}
}

// Create 创建群聊
func (h *GroupChatHandler) Create(c *gin.Context) {
	var r struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&r); err != nil {
		response.Fail(c, apperr.ErrInvalidName)
		return
	}
	gc, err := h.service.Create(c.Request.Context(), jwt.GetUserID(c), r.Name)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, gc)
}

// AddMember 邀请好友入群
func (h *GroupChatHandler) AddMember(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Fail(c, apperr.ErrGroupChatNotFound)
		return
	}
	m, err := h.service.AddMember(c.Request.Context(), jwt.GetUserID(c), uint(id), c.Query("username"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, m)
}
