package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Felipe-G-Schmitt/v0-dev-ops-memory-game/game/engine"
	"github.com/Felipe-G-Schmitt/v0-dev-ops-memory-game/game/service"
)

var (
	ErrSessionNotFound      = service.ErrSessionNotFound
	ErrSessionAlreadyExists = service.ErrSessionAlreadyExists
	ErrInvalidSessionID     = errors.New("invalid session ID")
)

// maxIDAttempts bounds the retries when a generated ID collides
const maxIDAttempts = 16

// Manager handles game session lifecycle
type Manager struct {
	sessions map[string]*service.Session
	settings engine.Settings
	mu       sync.RWMutex

	// notifier has its own lock: it is read from runner callbacks, which
	// run while a runner is locked
	notifier service.StateNotifier
	notifyMu sync.RWMutex
}

// NewManager creates a new session manager whose games run with settings
func NewManager(settings engine.Settings) *Manager {
	return &Manager{
		sessions: make(map[string]*service.Session),
		settings: settings,
	}
}

// SetNotifier registers the receiver of every session's state changes
func (m *Manager) SetNotifier(n service.StateNotifier) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	m.notifier = n
}

// Create creates a new session with the given ID and topic
func (m *Manager) Create(id string, topic *engine.Topic) (*service.Session, error) {
	if strings.ContainsAny(id, " /\\?#") {
		return nil, ErrInvalidSessionID
	}

	eng, err := engine.NewEngine(topic)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id, err = m.generateSessionID()
		if err != nil {
			return nil, err
		}
	} else if m.sessionExists(id) {
		// Check if session already exists (case-insensitive)
		return nil, ErrSessionAlreadyExists
	}

	runner := engine.NewRunner(eng, m.settings, m.onChange(id))
	session := service.NewSession(id, runner, topic)
	m.sessions[strings.ToLower(id)] = session

	log.Debug().Str("session", id).Str("topic", topic.ID).Msg("session stored")
	return session, nil
}

// Get retrieves a session by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// List returns all active sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

// Delete removes a session and stops its game
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	lowerID := strings.ToLower(id)
	session, exists := m.sessions[lowerID]
	if exists {
		delete(m.sessions, lowerID)
	}
	m.mu.Unlock()

	if !exists {
		return ErrSessionNotFound
	}
	m.close(session)
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	session, err := m.Get(id)
	if err != nil {
		return err
	}
	session.Touch(time.Now())
	return nil
}

// CleanupExpiredSessions removes and stops sessions that haven't been
// accessed in the given duration
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	var expired []*service.Session

	m.mu.Lock()
	for id, session := range m.sessions {
		if session.LastAccessedAt().Before(cutoff) {
			delete(m.sessions, id)
			expired = append(expired, session)
		}
	}
	m.mu.Unlock()

	for _, session := range expired {
		m.close(session)
		log.Debug().Str("session", session.ID).Msg("session expired")
	}
	return len(expired)
}

// CloseAll stops every session's game; the sessions stay listed
func (m *Manager) CloseAll() {
	for _, session := range m.List() {
		session.Runner.Close()
	}
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// close stops the game of a removed session and tells the notifier
func (m *Manager) close(session *service.Session) {
	session.Runner.Close()

	m.notifyMu.RLock()
	n := m.notifier
	m.notifyMu.RUnlock()
	if n != nil {
		n.NotifySessionClosed(session.ID)
	}
}

// onChange forwards runner snapshots of session id to the notifier
func (m *Manager) onChange(id string) engine.ChangeFunc {
	return func(state *engine.GameState) {
		m.notifyMu.RLock()
		n := m.notifier
		m.notifyMu.RUnlock()
		if n != nil {
			n.NotifyStateChange(id, state)
		}
	}
}

// generateSessionID generates a random unused 4-character session ID.
// Must be called with mu held.
func (m *Manager) generateSessionID() (string, error) {
	bytes := make([]byte, 2)
	for i := 0; i < maxIDAttempts; i++ {
		if _, err := rand.Read(bytes); err != nil {
			return "", fmt.Errorf("failed to generate session ID: %w", err)
		}
		id := hex.EncodeToString(bytes)
		if !m.sessionExists(id) {
			return id, nil
		}
	}
	return "", fmt.Errorf("failed to generate session ID: %w", ErrSessionAlreadyExists)
}

// sessionExists checks if a session exists (case-insensitive)
func (m *Manager) sessionExists(id string) bool {
	_, exists := m.sessions[strings.ToLower(id)]
	return exists
}
