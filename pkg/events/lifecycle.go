package events

// Connected 会话建立并通过认证
type Connected struct {
	SID    string
	UserID uint
}

// Disconnected 会话断开；用户ID需从传输层的会话存储中取回
type Disconnected struct {
	SID string
}

// Heartbeat 会话收到 pong，用于刷新在线状态TTL
type Heartbeat struct {
	SID    string
	UserID uint
}

// 推送给客户端 / 客户端发送的事件名
const (
	EventConnect         = "connect"
	EventStatusChange    = "status change"
	EventSendMessage     = "send message"
	EventMessageResponse = "message response"
	EventError           = "error"
)

// 在线状态取值
const (
	StatusActive  = "active"
	StatusOffline = "offline"
)

// StatusChange "status change" 事件的数据
type StatusChange struct {
	Status    string `json:"status"`
	UserID    uint   `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
}
