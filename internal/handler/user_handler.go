package handler

import (
	"social-im/internal/service"
	"social-im/pkg/jwt"
	"social-im/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	service *service.UserService
}

func NewUserHandler(s *service.UserService) *UserHandler {
	return &UserHandler{service: s}
}

// SignUp 用户注册：用户名在查询参数中，邮箱和密码在表单中。
// 表单的 username 字段按 OAuth2 密码表单的习惯承载邮箱
func (h *UserHandler) SignUp(c *gin.Context) {
	email := c.PostForm("email")
	if email == "" {
		email = c.PostForm("username")
	}
	token, err := h.service.SignUp(c.Request.Context(), c.Query("username"), email, c.PostForm("password"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, response.BearerToken(token))
}

// SignIn 用户登录
func (h *UserHandler) SignIn(c *gin.Context) {
	email := c.PostForm("email")
	if email == "" {
		email = c.PostForm("username")
	}
	token, err := h.service.SignIn(c.Request.Context(), email, c.PostForm("password"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, response.BearerToken(token))
}

// Me 当前用户信息（需要JWT认证）
func (h *UserHandler) Me(c *gin.Context) {
	u, err := h.service.CurrentUser(c.Request.Context(), jwt.GetClaims(c))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, response.FilterUserInfo(u))
}
