package engine

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	Initialize() *GameState
	IsActive() bool
	IsComplete() bool
	GetAttempts() int
	GetElapsedSeconds() int

	// Player actions
	SelectCard(id int) SelectResult
	ConfirmMatch(match PendingMatch) bool
	Tick() bool

	// Topic
	GetTopic() *Topic

	// History
	GetHistory() []AttemptEntry

	// Cards
	GetCard(id int) (Card, bool)
	GetPending() []int
}

// Option customizes a GameEngine
type Option func(*GameEngine)

// WithRand makes deals reproducible by drawing the shuffle from rng
func WithRand(rng *rand.Rand) Option {
	return func(e *GameEngine) { e.rng = rng }
}

// WithClock overrides the wall clock used for timestamps
func WithClock(now func() time.Time) Option {
	return func(e *GameEngine) { e.now = now }
}

// GameEngine implements the Engine interface.
// It is not safe for concurrent use; Runner serializes access to it.
type GameEngine struct {
	state *GameState
	topic *Topic
	index map[int]int // card id -> position in state.Cards
	rng   *rand.Rand
	now   func() time.Time
}

// NewEngine creates a new game engine for topic and deals the first game
func NewEngine(topic *Topic, opts ...Option) (*GameEngine, error) {
	if err := ValidateTopic(topic); err != nil {
		return nil, err
	}

	e := &GameEngine{
		topic: topic,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.Initialize()
	return e, nil
}

// NewEngineWithDefaults creates a new game engine dealing the built-in DevOps topic
func NewEngineWithDefaults() *GameEngine {
	e, err := NewEngine(DefaultTopic())
	if err != nil {
		panic(fmt.Sprintf("built-in topic is invalid: %v", err))
	}
	return e
}

// GetState returns a snapshot of the current game state
func (e *GameEngine) GetState() *GameState {
	return e.state.Clone()
}

// Initialize deals a fresh deck and replaces all prior state
func (e *GameEngine) Initialize() *GameState {
	cards := DealCards(e.topic.Pairs, e.rng)

	e.index = make(map[int]int, len(cards))
	for i, c := range cards {
		e.index[c.ID] = i
	}

	e.state = &GameState{
		GameID:     uuid.NewString(),
		Topic:      e.topic.Name,
		Cards:      cards,
		Pending:    []int{},
		TotalPairs: len(e.topic.Pairs),
		History:    []AttemptEntry{},
	}
	return e.GetState()
}

// IsActive returns whether the game clock is running
func (e *GameEngine) IsActive() bool {
	return e.state.IsActive
}

// IsComplete returns whether every card has been matched
func (e *GameEngine) IsComplete() bool {
	return e.state.IsComplete
}

// GetAttempts returns the number of completed comparisons
func (e *GameEngine) GetAttempts() int {
	return e.state.Attempts
}

// GetElapsedSeconds returns the game clock
func (e *GameEngine) GetElapsedSeconds() int {
	return e.state.ElapsedSeconds
}

// SelectCard flips the card with the given id.
//
// Invalid selections (unknown id, card already face up) change nothing
// except starting the clock on the first selection of a game. A mismatched
// pair left from the previous turn is flipped back before the new card is
// turned; a matched pair whose confirmation is still pending is committed.
func (e *GameEngine) SelectCard(id int) SelectResult {
	var res SelectResult
	s := e.state

	if !s.IsActive && !s.IsComplete {
		s.IsActive = true
		if s.StartedAt.IsZero() {
			s.StartedAt = e.now()
		}
		res.Started = true
	}

	card := e.card(id)
	if card == nil || card.IsFlipped || card.IsMatched {
		return res
	}

	if len(s.Pending) == SelectionSize {
		first, second := e.card(s.Pending[0]), e.card(s.Pending[1])
		if first.PairID == second.PairID {
			e.commitMatch(first, second)
			res.Committed = &PendingMatch{GameID: s.GameID, First: first.ID, Second: second.ID}
		} else {
			first.IsFlipped = false
			second.IsFlipped = false
			res.FlipBack = []int{first.ID, second.ID}
		}
		s.Pending = []int{}
	}

	card.IsFlipped = true
	s.Pending = append(s.Pending, id)
	res.Accepted = true

	if len(s.Pending) < SelectionSize {
		return res
	}

	first, second := e.card(s.Pending[0]), e.card(s.Pending[1])
	matched := first.PairID == second.PairID
	s.Attempts++
	s.History = append(s.History, AttemptEntry{
		Number:         s.Attempts,
		FirstCard:      first.ID,
		SecondCard:     second.ID,
		FirstPair:      first.PairID,
		SecondPair:     second.PairID,
		Matched:        matched,
		ElapsedSeconds: s.ElapsedSeconds,
		Timestamp:      e.now().Unix(),
	})

	res.Compared = true
	res.Matched = matched
	if matched {
		res.Match = &PendingMatch{GameID: s.GameID, First: first.ID, Second: second.ID}
	}
	return res
}

// ConfirmMatch applies the deferred confirmation of a matched pair.
// It is a no-op when the deal has been replaced since the match was produced
// or when the pair is no longer the pending selection.
func (e *GameEngine) ConfirmMatch(match PendingMatch) bool {
	s := e.state
	if match.GameID != s.GameID {
		return false
	}
	if len(s.Pending) != SelectionSize || s.Pending[0] != match.First || s.Pending[1] != match.Second {
		return false
	}

	first, second := e.card(match.First), e.card(match.Second)
	if first.PairID != second.PairID {
		return false
	}

	e.commitMatch(first, second)
	s.Pending = []int{}
	return true
}

// Tick advances the game clock by one second while the game is running
func (e *GameEngine) Tick() bool {
	if !e.state.IsActive || e.state.IsComplete {
		return false
	}
	e.state.ElapsedSeconds++
	return true
}

// GetTopic returns the topic the engine deals from
func (e *GameEngine) GetTopic() *Topic {
	return e.topic
}

// GetHistory returns the attempts of the current game
func (e *GameEngine) GetHistory() []AttemptEntry {
	out := make([]AttemptEntry, len(e.state.History))
	copy(out, e.state.History)
	return out
}

// GetCard returns a copy of the card with the given id
func (e *GameEngine) GetCard(id int) (Card, bool) {
	c := e.card(id)
	if c == nil {
		return Card{}, false
	}
	return *c, true
}

// GetPending returns the ids of the face-up unresolved cards
func (e *GameEngine) GetPending() []int {
	out := make([]int, len(e.state.Pending))
	copy(out, e.state.Pending)
	return out
}

func (e *GameEngine) card(id int) *Card {
	i, ok := e.index[id]
	if !ok {
		return nil
	}
	return &e.state.Cards[i]
}

// commitMatch marks both cards matched and evaluates completion
func (e *GameEngine) commitMatch(first, second *Card) {
	s := e.state
	for _, c := range []*Card{first, second} {
		if !c.IsMatched {
			c.IsMatched = true
			c.IsFlipped = true
		}
	}
	s.Matches = CountMatchedPairs(s.Cards)

	if AllMatched(s.Cards) {
		s.IsComplete = true
		s.IsActive = false
		s.CompletedAt = e.now()
	}
}
