package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"social-im/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Frame 线上传输的消息帧
type Frame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Session 一个WebSocket连接
// SID: 会话ID；UserID: 认证用户；Send: 待发送消息队列
type Session struct {
	SID    string
	UserID uint
	Conn   *websocket.Conn
	Send   chan []byte
}

// Manager 管理所有在线会话：按 sid 索引会话，按 user_id 组织房间
type Manager struct {
	lock     sync.RWMutex
	sessions map[string]*Session
	rooms    map[uint]map[string]*Session
}

// NewManager 创建会话管理器
func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		rooms:    make(map[uint]map[string]*Session),
	}
}

// Add 登记会话并加入以用户ID命名的房间
func (m *Manager) Add(s *Session) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.sessions[s.SID] = s
	room, ok := m.rooms[s.UserID]
	if !ok {
		room = make(map[string]*Session)
		m.rooms[s.UserID] = room
	}
	room[s.SID] = s
}

// Remove 移除会话并关闭其发送队列
func (m *Manager) Remove(sid string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	s, ok := m.sessions[sid]
	if !ok {
		return
	}
	delete(m.sessions, sid)
	if room := m.rooms[s.UserID]; room != nil {
		delete(room, sid)
		if len(room) == 0 {
			delete(m.rooms, s.UserID)
		}
	}
	close(s.Send)
}

// SessionUser 取回会话对应的用户ID
func (m *Manager) SessionUser(sid string) (uint, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	s, ok := m.sessions[sid]
	if !ok {
		return 0, false
	}
	return s.UserID, true
}

// EmitToRoom 向用户的所有会话推送事件，返回投递成功的会话数。
// 队列已满的会话直接丢弃该消息，不阻塞调用方。
func (m *Manager) EmitToRoom(userID uint, event string, data interface{}) int {
	msg, err := encode(event, data)
	if err != nil {
		return 0
	}

	m.lock.RLock()
	defer m.lock.RUnlock()
	sent := 0
	for _, s := range m.rooms[userID] {
		if enqueue(s, msg) {
			sent++
		}
	}
	return sent
}

// EmitToSession 向指定会话推送事件
func (m *Manager) EmitToSession(sid string, event string, data interface{}) bool {
	msg, err := encode(event, data)
	if err != nil {
		return false
	}

	m.lock.RLock()
	defer m.lock.RUnlock()
	s, ok := m.sessions[sid]
	if !ok {
		return false
	}
	return enqueue(s, msg)
}

func enqueue(s *Session, msg []byte) bool {
	select {
	case s.Send <- msg:
		return true
	default:
		logger.Warn("发送队列已满，丢弃消息",
			zap.String("sid", s.SID),
			zap.Uint("user_id", s.UserID),
		)
		return false
	}
}

func encode(event string, data interface{}) ([]byte, error) {
	msg, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		logger.Error("序列化推送消息失败", zap.String("event", event), zap.Error(err))
		return nil, err
	}
	return msg, nil
}

// OnlineAmong 返回 ids 中在本节点有会话的用户（未启用Redis时的在线状态来源）
func (m *Manager) OnlineAmong(_ context.Context, ids []uint) ([]uint, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	online := make([]uint, 0, len(ids))
	for _, id := range ids {
		if len(m.rooms[id]) > 0 {
			online = append(online, id)
		}
	}
	return online, nil
}
