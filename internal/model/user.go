package model

import "time"

// User 用户模型
// 用户名、邮箱唯一；密码仅存储哈希，验证成功时可能因哈希参数升级而被替换
type User struct {
	ID              uint      `gorm:"column:user_id;primaryKey;autoIncrement" json:"user_id"`
	Username        string    `gorm:"type:varchar(25);not null;uniqueIndex;comment:用户名" json:"username"`
	Email           string    `gorm:"type:varchar(255);not null;uniqueIndex;comment:邮箱" json:"email"`
	PasswordHash    string    `gorm:"type:varchar(255);not null;comment:密码哈希" json:"-"`
	CreatedDateTime time.Time `gorm:"autoCreateTime;comment:创建时间" json:"created_date_time"`
}

// TableName user 是MySQL保留字，使用 app_user
func (User) TableName() string { return "app_user" }
