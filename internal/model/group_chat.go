package model

import "time"

// GroupChat 群聊
type GroupChat struct {
	ID              uint      `gorm:"column:group_chat_id;primaryKey;autoIncrement" json:"group_chat_id"`
	Name            string    `gorm:"type:varchar(64);not null;comment:群名称" json:"name"`
	CreatedDateTime time.Time `gorm:"autoCreateTime" json:"created_date_time"`
}

func (GroupChat) TableName() string { return "group_chat" }

// GroupChatMember 群成员，成员关系决定发送权限
type GroupChatMember struct {
	GroupChatID    uint      `gorm:"primaryKey;autoIncrement:false" json:"group_chat_id"`
	MemberID       uint      `gorm:"primaryKey;autoIncrement:false;index" json:"member_id"`
	JoinedDateTime time.Time `gorm:"autoCreateTime" json:"joined_date_time"`
}

func (GroupChatMember) TableName() string { return "group_chat_member" }

// All 需要迁移的全部模型
func All() []interface{} {
	return []interface{}{
		&User{},
		&FriendshipStatusCode{},
		&Friendship{},
		&FriendshipStatus{},
		&Message{},
		&GroupChat{},
		&GroupChatMember{},
	}
}
