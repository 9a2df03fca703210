package engine

import "time"

// CardKind tells whether a card shows the term or the definition of a pair
type CardKind string

const (
	Term       CardKind = "term"
	Definition CardKind = "definition"

	// Validation constants
	MinPairs = 2
	MaxPairs = 50

	// HiddenPairID is reported for face-down cards in public views
	HiddenPairID = -1

	// SelectionSize is the number of cards compared in one attempt
	SelectionSize = 2
)

// Default timings used when a runner is created with zero settings
const (
	DefaultMatchDelay   = 500 * time.Millisecond
	DefaultTickInterval = time.Second
)

// Pair is one topic entry: a term, its definition and a decorative icon
type Pair struct {
	Term       string `json:"term" validate:"required"`
	Definition string `json:"definition" validate:"required"`
	Icon       string `json:"icon"`
}

// Topic is the fixed set of pairs a deck is dealt from
type Topic struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Pairs       []Pair `json:"pairs" validate:"min=2,max=50,dive"`
}

// Card represents a single card on the table
type Card struct {
	ID        int      `json:"id"`
	Content   string   `json:"content,omitempty"`
	Kind      CardKind `json:"kind,omitempty"`
	PairID    int      `json:"pair_id"`
	Icon      string   `json:"icon,omitempty"`
	IsFlipped bool     `json:"is_flipped"`
	IsMatched bool     `json:"is_matched"`
}

// FaceUp reports whether the card is visible to the player
func (c Card) FaceUp() bool {
	return c.IsFlipped || c.IsMatched
}

// GameState represents the complete state of one dealt game
type GameState struct {
	GameID         string         `json:"game_id"`
	Topic          string         `json:"topic"`
	Cards          []Card         `json:"cards"`
	Pending        []int          `json:"pending"`
	Attempts       int            `json:"attempts"`
	Matches        int            `json:"matches"`
	TotalPairs     int            `json:"total_pairs"`
	ElapsedSeconds int            `json:"elapsed_seconds"`
	ElapsedDisplay string         `json:"elapsed_display"`
	IsActive       bool           `json:"is_active"`
	IsComplete     bool           `json:"is_complete"`
	StartedAt      time.Time      `json:"started_at"`
	CompletedAt    time.Time      `json:"completed_at"`
	History        []AttemptEntry `json:"history,omitempty"`
}

// AttemptEntry records one completed two-card comparison
type AttemptEntry struct {
	Number         int   `json:"number"`
	FirstCard      int   `json:"first_card"`
	SecondCard     int   `json:"second_card"`
	FirstPair      int   `json:"first_pair"`
	SecondPair     int   `json:"second_pair"`
	Matched        bool  `json:"matched"`
	ElapsedSeconds int   `json:"elapsed_seconds"`
	Timestamp      int64 `json:"timestamp"`
}

// PendingMatch identifies a matched pair waiting for its deferred confirmation.
// It is bound to the deal it was produced by.
type PendingMatch struct {
	GameID string `json:"game_id"`
	First  int    `json:"first"`
	Second int    `json:"second"`
}

// SelectResult describes what a single selection did to the game
type SelectResult struct {
	Accepted  bool          `json:"accepted"`
	Started   bool          `json:"started,omitempty"`
	FlipBack  []int         `json:"flip_back,omitempty"`
	Committed *PendingMatch `json:"committed,omitempty"`
	Compared  bool          `json:"compared,omitempty"`
	Matched   bool          `json:"matched,omitempty"`
	Match     *PendingMatch `json:"match,omitempty"`
	Completed bool          `json:"completed,omitempty"`
}
