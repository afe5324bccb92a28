package model

import "time"

// StatusCode 好友关系状态码
type StatusCode string

const (
	StatusRequested StatusCode = "R"
	StatusAccepted  StatusCode = "A"
	StatusDeclined  StatusCode = "D"
	StatusBlocked   StatusCode = "B"
)

// FriendshipStatusCode 状态码字典表
type FriendshipStatusCode struct {
	Code StatusCode `gorm:"type:char(1);primaryKey"`
	Name string     `gorm:"type:varchar(16);not null"`
}

func (FriendshipStatusCode) TableName() string { return "friendship_status_code" }

// StatusCodes 字典表初始数据
func StatusCodes() []FriendshipStatusCode {
	return []FriendshipStatusCode{
		{Code: StatusRequested, Name: "Requested"},
		{Code: StatusAccepted, Name: "Accepted"},
		{Code: StatusDeclined, Name: "Declined"},
		{Code: StatusBlocked, Name: "Blocked"},
	}
}

// Friendship 一对用户之间唯一的好友关系行。
// RequesterID 是发起方，创建后不变；任意方向的查询都应匹配同一行。
type Friendship struct {
	RequesterID     uint      `gorm:"primaryKey;autoIncrement:false;comment:发起方" json:"requester_id"`
	AddresseeID     uint      `gorm:"primaryKey;autoIncrement:false;index;comment:接收方" json:"addressee_id"`
	CreatedDateTime time.Time `gorm:"autoCreateTime;comment:创建时间" json:"created_date_time"`
}

func (Friendship) TableName() string { return "friendship" }

// FriendshipStatus 只追加的状态事件，最新一条决定当前状态
type FriendshipStatus struct {
	RequesterID       uint       `gorm:"primaryKey;autoIncrement:false" json:"requester_id"`
	AddresseeID       uint       `gorm:"primaryKey;autoIncrement:false" json:"addressee_id"`
	SpecifiedDateTime time.Time  `gorm:"primaryKey;precision:6" json:"specified_date_time"`
	StatusCodeID      StatusCode `gorm:"type:char(1);not null;index" json:"status_code_id"`
	SpecifierID       uint       `gorm:"not null" json:"specifier_id"`
}

func (FriendshipStatus) TableName() string { return "friendship_status" }
