package ws

import (
	"errors"
	"sync"

	"github.com/E011011101001/HEAL-backend/internal/auth"
	"github.com/E011011101001/HEAL-backend/internal/models"
)

var (
	// ErrUserInvalid token 无效或对应用户不存在。
	ErrUserInvalid = errors.New("User invalid")
	// ErrRoomInvalid 房间不存在或用户不是其成员。
	ErrRoomInvalid = errors.New("Room invalid")
	// errSessionDesync 连接存在但会话记录丢失，属内部不一致。
	errSessionDesync = errors.New("session registry out of sync")
)

// Session 一条 websocket 连接对应的已验证会话。
type Session struct {
	ConnID string
	User   models.User
	RoomID uint
}

// UserResolver 由 store.UserStore 提供。
type UserResolver interface {
	Get(id uint) (*models.User, error)
}

// Membership 由 store.RoomStore 提供。
type Membership interface {
	IsMember(user *models.User, roomID uint) (bool, error)
}

// SessionManager 维护连接号到已验证会话的映射。
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	users    UserResolver
	rooms    Membership
	secret   string
}

func NewSessionManager(users UserResolver, rooms Membership, jwtSecret string) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		users:    users,
		rooms:    rooms,
		secret:   jwtSecret,
	}
}

// Connect 校验 token 与房间成员资格，成功则登记会话。
// token 无效返回 ErrUserInvalid，房间无权进入返回 ErrRoomInvalid。
func (m *SessionManager) Connect(connID, token string, roomID uint) (*Session, error) {
	claims, err := auth.ParseAccessToken(token, m.secret)
	if err != nil {
		return nil, ErrUserInvalid
	}
	user, err := m.users.Get(claims.UserID)
	if err != nil {
		return nil, ErrUserInvalid
	}
	ok, err := m.rooms.IsMember(user, roomID)
	if err != nil || !ok {
		return nil, ErrRoomInvalid
	}
	sess := &Session{ConnID: connID, User: *user, RoomID: roomID}
	m.mu.Lock()
	m.sessions[connID] = sess
	m.mu.Unlock()
	return sess, nil
}

// Get 按连接号取会话，未登记说明连接与会话表失步。
func (m *SessionManager) Get(connID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[connID]
	if !ok {
		return nil, errSessionDesync
	}
	return sess, nil
}

// Disconnect 注销会话，对未登记的连接号安全。
func (m *SessionManager) Disconnect(connID string) {
	m.mu.Lock()
	delete(m.sessions, connID)
	m.mu.Unlock()
}

func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
