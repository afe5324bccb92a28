package handler

import (
	"social-im/internal/service"
	"social-im/pkg/jwt"
	"social-im/pkg/pagination"
	"social-im/pkg/response"

	"github.com/gin-gonic/gin"
)

// FriendshipHandler 好友关系接口
type FriendshipHandler struct {
	service *service.FriendshipService
}

func NewFriendshipHandler(s *service.FriendshipService) *FriendshipHandler {
	return &FriendshipHandler{service: s}
}

// Accepted 好友列表
func (h *FriendshipHandler) Accepted(c *gin.Context) {
	cur, limit, err := pageParams(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	page, err := h.service.AcceptedFriends(c.Request.Context(), jwt.GetUserID(c), cur, limit)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, pagination.Map(page, userInfo))
}

// Senders 向我发出请求的用户
func (h *FriendshipHandler) Senders(c *gin.Context) {
	cur, limit, err := pageParams(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	page, err := h.service.RequestSenders(c.Request.Context(), jwt.GetUserID(c), cur, limit)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, pagination.Map(page, userInfo))
}

// Sent 我发出的待处理请求
func (h *FriendshipHandler) Sent(c *gin.Context) {
	cur, limit, err := pageParams(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	page, err := h.service.RequestsSent(c.Request.Context(), jwt.GetUserID(c), cur, limit)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, page)
}

func (h *FriendshipHandler) SendRequest(c *gin.Context) {
	f, err := h.service.Send(c.Request.Context(), jwt.GetUserID(c), c.Query("username"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, f)
}

func (h *FriendshipHandler) Accept(c *gin.Context) {
	st, err := h.service.Accept(c.Request.Context(), jwt.GetUserID(c), c.Query("requester_username"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, st)
}

func (h *FriendshipHandler) Decline(c *gin.Context) {
	st, err := h.service.Decline(c.Request.Context(), jwt.GetUserID(c), c.Query("requester_username"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, st)
}

func (h *FriendshipHandler) Block(c *gin.Context) {
	st, err := h.service.Block(c.Request.Context(), jwt.GetUserID(c), c.Query("user_to_block_username"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, st)
}

func (h *FriendshipHandler) Cancel(c *gin.Context) {
	f, err := h.service.Cancel(c.Request.Context(), jwt.GetUserID(c), c.Query("request_addressee_username"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, f)
}

func (h *FriendshipHandler) Delete(c *gin.Context) {
	f, err := h.service.Delete(c.Request.Context(), jwt.GetUserID(c), c.Query("friend_username"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, f)
}

// Online 当前在线的好友
func (h *FriendshipHandler) Online(c *gin.Context) {
	users, err := h.service.OnlineFriends(c.Request.Context(), jwt.GetUserID(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, response.FilterUsers(users))
}
