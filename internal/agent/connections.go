package agent

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// ConnManager tracks live WebSocket connections per user and session. A new
// connection for the same user and session replaces the old one.
type ConnManager struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// NewConnManager creates an empty connection manager.
func NewConnManager() *ConnManager {
	return &ConnManager{
		active: make(map[string]map[string]*websocket.Conn),
	}
}

// Get returns the connection for a user and session, or nil.
func (m *ConnManager) Get(userID, sessionID string) *websocket.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sessions, ok := m.active[userID]; ok {
		return sessions[sessionID]
	}
	return nil
}

// Count returns the number of open connections for a user.
func (m *ConnManager) Count(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active[userID])
}

// Register adds a connection, closing any connection it replaces.
func (m *ConnManager) Register(userID, sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[userID]; !exists {
		m.active[userID] = make(map[string]*websocket.Conn)
	}

	if existing, exists := m.active[userID][sessionID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
	}

	m.active[userID][sessionID] = conn
	slog.Info("Agent connection registered", "user_id", userID, "session_id", sessionID)
}

// Unregister removes conn if it is still the current connection for the
// user and session.
func (m *ConnManager) Unregister(userID, sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessions, ok := m.active[userID]; ok {
		if current, exists := sessions[sessionID]; exists && current == conn {
			delete(sessions, sessionID)
			if len(sessions) == 0 {
				delete(m.active, userID)
			}
			slog.Info("Agent connection unregistered", "user_id", userID, "session_id", sessionID)
		}
	}
}

// CloseUser closes every connection of a user, e.g. after a reset.
func (m *ConnManager) CloseUser(userID, reason string) {
	m.mu.Lock()
	sessions := m.active[userID]
	delete(m.active, userID)
	m.mu.Unlock()

	for sid, conn := range sessions {
		_ = conn.Close(websocket.StatusNormalClosure, reason)
		slog.Info("Agent connection closed", "user_id", userID, "session_id", sid, "reason", reason)
	}
}
