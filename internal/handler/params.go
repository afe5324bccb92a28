package handler

import (
	"social-im/internal/model"
	"social-im/pkg/pagination"
	"social-im/pkg/response"

	"github.com/gin-gonic/gin"
)

// pageParams 读取 limit 与 cursor 查询参数
func pageParams(c *gin.Context) (pagination.Cursor, int, error) {
	limit, err := pagination.ParseLimit(c.Query("limit"))
	if err != nil {
		return pagination.Cursor{}, 0, err
	}
	cur, err := pagination.ParseCursor(c.Query("cursor"))
	if err != nil {
		return pagination.Cursor{}, 0, err
	}
	return cur, limit, nil
}

func userInfo(u model.User) response.UserInfo {
	return *response.FilterUserInfo(&u)
}
