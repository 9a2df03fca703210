package service

import (
	"time"

	"github.com/Felipe-G-Schmitt/v0-dev-ops-memory-game/game/engine"
)

// Event types reported by SelectCard and Restart
const (
	EventGameStarted    = "game_started"
	EventCardFlipped    = "card_flipped"
	EventFlippedBack    = "cards_flipped_back"
	EventMatchCommitted = "match_committed"
	EventMatch          = "match"
	EventMismatch       = "mismatch"
	EventGameComplete   = "game_complete"
	EventIgnored        = "ignored"
	EventRestart        = "restart"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string            `json:"id"`
	TopicID        string            `json:"topic_id"`
	TopicName      string            `json:"topic_name"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	GameState      *engine.GameState `json:"game_state"`
}

// SelectResponse contains the result of a card selection
type SelectResponse struct {
	Accepted  bool                 `json:"accepted"`
	CardID    int                  `json:"card_id"`
	GameState *engine.GameState    `json:"game_state"`
	Attempt   *engine.AttemptEntry `json:"attempt,omitempty"`
	Events    []GameEvent          `json:"events"`
	Message   string               `json:"message"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Cards     []int     `json:"cards,omitempty"`
}

// HistoryOptions configures attempt history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated attempt history
type HistoryResponse struct {
	Attempts      []engine.AttemptEntry `json:"attempts"`
	TotalAttempts int                   `json:"total_attempts"`
	Page          int                   `json:"page"`
	PageSize      int                   `json:"page_size"`
	TotalPages    int                   `json:"total_pages"`
	HasNext       bool                  `json:"has_next"`
	HasPrevious   bool                  `json:"has_previous"`
}

// TopicInfo provides information about a topic
type TopicInfo struct {
	ID          string `json:"id"` // The identifier to use for session creation
	Name        string `json:"name"`
	Description string `json:"description"`
	Pairs       int    `json:"pairs"`
}

// NewTopicInfo summarizes topic
func NewTopicInfo(topic *engine.Topic) *TopicInfo {
	return &TopicInfo{
		ID:          topic.ID,
		Name:        topic.Name,
		Description: topic.Description,
		Pairs:       len(topic.Pairs),
	}
}
