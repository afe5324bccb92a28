package repository

import (
	"context"
	"fmt"

	"social-im/internal/model"
	"social-im/pkg/db"

	"gorm.io/gorm"
)

// MessageRepository 消息数据仓储
type MessageRepository struct {
	gw *db.Gateway
}

// NewMessageRepository 创建MessageRepository实例
func NewMessageRepository(gw *db.Gateway) *MessageRepository {
	return &MessageRepository{gw: gw}
}

// Create 创建消息
func (r *MessageRepository) Create(ctx context.Context, message *model.Message) error {
	if err := r.gw.Conn(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// MessagesFrom sender 发给 uid 的私聊消息，唯一列 message.message_id
func (r *MessageRepository) MessagesFrom(ctx context.Context, senderID, uid uint) *gorm.DB {
	return r.gw.Conn(ctx).Model(&model.Message{}).
		Where("message.sender_id = ? AND message.reciever_id = ?", senderID, uid)
}

// MarkSeen 标记 sender 发给 uid 的未读消息为已读，返回更新条数
func (r *MessageRepository) MarkSeen(ctx context.Context, senderID, uid uint) (int64, error) {
	res := r.gw.Conn(ctx).Model(&model.Message{}).
		Where("sender_id = ? AND reciever_id = ? AND seen = ?", senderID, uid, false).
		Update("seen", true)
	if res.Error != nil {
		return 0, fmt.Errorf("mark messages seen: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// UnreadCount 获取用户未读私聊消息数量
func (r *MessageRepository) UnreadCount(ctx context.Context, uid uint) (int64, error) {
	var count int64
	err := r.gw.Conn(ctx).Model(&model.Message{}).
		Where("reciever_id = ? AND seen = ?", uid, false).
		Count(&count).Error
	return count, err
}
