package model

import "time"

// Message 消息模型
// RecieverID 与 GroupChatID 有且只有一个非空
type Message struct {
	ID                 uint       `gorm:"column:message_id;primaryKey;autoIncrement" json:"message_id"`
	SenderID           uint       `gorm:"not null;index;comment:发送者ID" json:"sender_id"`
	RecieverID         *uint      `gorm:"column:reciever_id;index;comment:接收者ID(单聊)" json:"reciever_id"`
	GroupChatID        *uint      `gorm:"index;comment:群ID(群聊)" json:"group_chat_id"`
	Content            string     `gorm:"type:text;not null;comment:消息内容" json:"content"`
	CreatedDateTime    time.Time  `gorm:"autoCreateTime;comment:创建时间" json:"created_date_time"`
	LastEditedDateTime *time.Time `gorm:"comment:最后编辑时间" json:"last_edited_date_time"`
	Seen               bool       `gorm:"not null;default:false;comment:是否已读" json:"seen"`
}

func (Message) TableName() string { return "message" }
