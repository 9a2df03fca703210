package service

import (
	"context"
	"sync"
	"time"

	"github.com/Felipe-G-Schmitt/v0-dev-ops-memory-game/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, topicID string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	SelectCard(ctx context.Context, sessionID string, cardID int) (*SelectResponse, error)
	Restart(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetAttemptHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Topics
	ListTopics(ctx context.Context) ([]*TopicInfo, error)
	LoadTopic(ctx context.Context, topicID string) (*engine.Topic, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, topic *engine.Topic) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// TopicManager handles topic loading
type TopicManager interface {
	LoadTopic(id string) (*engine.Topic, error)
	ListTopics() ([]*TopicInfo, error)
	GetDefault() *engine.Topic
}

// StateNotifier receives every state change of every session, and the end
// of a session when it is deleted or expires.
// Implementations are called while the session is locked and must not block.
type StateNotifier interface {
	NotifyStateChange(sessionID string, state *engine.GameState)
	NotifySessionClosed(sessionID string)
}

// Session represents an active game session
type Session struct {
	ID        string
	Runner    *engine.Runner
	Topic     *engine.Topic
	CreatedAt time.Time

	mu             sync.Mutex
	lastAccessedAt time.Time
}

// NewSession creates a session around runner, created and accessed now
func NewSession(id string, runner *engine.Runner, topic *engine.Topic) *Session {
	now := time.Now()
	return &Session{
		ID:             id,
		Runner:         runner,
		Topic:          topic,
		CreatedAt:      now,
		lastAccessedAt: now,
	}
}

// Touch records an access at t
func (s *Session) Touch(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccessedAt = t
}

// LastAccessedAt returns the time of the last access
func (s *Session) LastAccessedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccessedAt
}
