package repository

import (
	"context"
	"errors"
	"fmt"

	"social-im/internal/model"
	"social-im/pkg/db"
)

// GroupChatRepository 群聊与成员仓储
type GroupChatRepository struct {
	gw *db.Gateway
}

func NewGroupChatRepository(gw *db.Gateway) *GroupChatRepository {
	return &GroupChatRepository{gw: gw}
}

// Create 创建群聊
func (r *GroupChatRepository) Create(ctx context.Context, gc *model.GroupChat) error {
	if err := r.gw.Conn(ctx).Create(gc).Error; err != nil {
		return fmt.Errorf("create group chat: %w", err)
	}
	return nil
}

// GetByID 获取群聊，不存在返回 db.ErrNotFound
func (r *GroupChatRepository) GetByID(ctx context.Context, id uint) (*model.GroupChat, error) {
	return db.FindOne[model.GroupChat](r.gw.Conn(ctx), "group_chat_id = ?", id)
}

// AddMember 添加成员
func (r *GroupChatRepository) AddMember(ctx context.Context, groupChatID, memberID uint) (*model.GroupChatMember, error) {
	m := &model.GroupChatMember{GroupChatID: groupChatID, MemberID: memberID}
	if err := r.gw.Conn(ctx).Create(m).Error; err != nil {
		return nil, fmt.Errorf("add group chat member: %w", err)
	}
	return m, nil
}

// IsMember 用户是否为群成员
func (r *GroupChatRepository) IsMember(ctx context.Context, groupChatID, uid uint) (bool, error) {
	_, err := db.FindOne[model.GroupChatMember](r.gw.Conn(ctx),
		"group_chat_id = ? AND member_id = ?", groupChatID, uid)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, db.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// MemberIDs 群成员ID列表
func (r *GroupChatRepository) MemberIDs(ctx context.Context, groupChatID uint) ([]uint, error) {
	var ids []uint
	err := r.gw.Conn(ctx).Model(&model.GroupChatMember{}).
		Where("group_chat_id = ?", groupChatID).
		Order("member_id").
		Pluck("member_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("group chat members: %w", err)
	}
	return ids, nil
}
