package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Felipe-G-Schmitt/v0-dev-ops-memory-game/game/engine"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	topics   TopicManager
	now      func() time.Time
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, topics TopicManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		topics:   topics,
		now:      time.Now,
	}
}

// CreateSession creates a new game session dealing topicID, or the default
// topic when topicID is empty
func (s *gameServiceImpl) CreateSession(ctx context.Context, topicID string) (*SessionInfo, error) {
	var topic *engine.Topic
	if topicID != "" {
		var err error
		topic, err = s.topics.LoadTopic(topicID)
		if err != nil {
			if errors.Is(err, ErrTopicNotFound) {
				return nil, s.topicNotFound(topicID)
			}
			return nil, fmt.Errorf("failed to load topic %s: %w", topicID, err)
		}
	} else {
		topic = s.topics.GetDefault()
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", topic)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info().Str("session", sess.ID).Str("topic", topic.ID).Msg("session created")
	return sessionInfo(sess), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session and stops its game
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	log.Info().Str("session", sessionID).Msg("session deleted")
	return nil
}

// SelectCard selects a card in a session and describes what happened
func (s *gameServiceImpl) SelectCard(ctx context.Context, sessionID string, cardID int) (*SelectResponse, error) {
	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	res, state := sess.Runner.Select(cardID)
	resp := &SelectResponse{
		Accepted:  res.Accepted,
		CardID:    cardID,
		GameState: state.PublicView(),
		Events:    s.selectEvents(cardID, res, state),
	}
	if res.Compared {
		resp.Attempt = state.LastAttempt()
	}
	resp.Message = resp.Events[len(resp.Events)-1].Message

	log.Debug().
		Str("session", sessionID).
		Int("card", cardID).
		Bool("accepted", res.Accepted).
		Int("attempts", state.Attempts).
		Msg("card selected")
	if res.Completed {
		log.Info().
			Str("session", sessionID).
			Int("attempts", state.Attempts).
			Str("elapsed", state.ElapsedDisplay).
			Msg("game complete")
	}
	return resp, nil
}

// Restart deals a new game in the session
func (s *gameServiceImpl) Restart(ctx context.Context, sessionID string) (*engine.GameState, error) {
	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}

	state := sess.Runner.Restart()
	log.Info().Str("session", sessionID).Str("game", state.GameID).Msg("game restarted")
	return state.PublicView(), nil
}

// GetGameState returns the public view of the current game
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	sess, err := s.touch(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Runner.State().PublicView(), nil
}

// GetAttemptHistory returns one page of the attempts of the current game
func (s *gameServiceImpl) GetAttemptHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}

	history := sess.Runner.History()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order != "asc" {
		opts.Order = "desc"
	}

	// Calculate pagination
	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	attempts := []engine.AttemptEntry{}
	if start < total {
		if opts.Order == "desc" {
			// Most recent first
			for i := total - 1 - start; i >= total-end; i-- {
				attempts = append(attempts, history[i])
			}
		} else {
			attempts = append(attempts, history[start:end]...)
		}
	}

	return &HistoryResponse{
		Attempts:      attempts,
		TotalAttempts: total,
		Page:          opts.Page,
		PageSize:      opts.Limit,
		TotalPages:    totalPages,
		HasNext:       opts.Page < totalPages,
		HasPrevious:   opts.Page > 1,
	}, nil
}

// ListTopics returns the available topics
func (s *gameServiceImpl) ListTopics(ctx context.Context) ([]*TopicInfo, error) {
	return s.topics.ListTopics()
}

// LoadTopic returns a topic by id
func (s *gameServiceImpl) LoadTopic(ctx context.Context, topicID string) (*engine.Topic, error) {
	topic, err := s.topics.LoadTopic(topicID)
	if err != nil {
		if errors.Is(err, ErrTopicNotFound) {
			return nil, s.topicNotFound(topicID)
		}
		return nil, err
	}
	return topic, nil
}

// touch fetches a session and records the access
func (s *gameServiceImpl) touch(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	if err := s.sessions.UpdateLastAccessed(sessionID); err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("failed to update last access")
	}
	return sess, nil
}

// topicNotFound wraps ErrTopicNotFound with the ids that can be used instead
func (s *gameServiceImpl) topicNotFound(topicID string) error {
	available, err := s.topics.ListTopics()
	if err != nil || len(available) == 0 {
		return fmt.Errorf("topic '%s': %w. Use /api/topics to list available topics", topicID, ErrTopicNotFound)
	}
	ids := make([]string, 0, len(available))
	for _, t := range available {
		ids = append(ids, t.ID)
	}
	return fmt.Errorf("topic '%s': %w. Available topics: %s", topicID, ErrTopicNotFound, strings.Join(ids, ", "))
}

// selectEvents translates a selection result into ordered events; the last
// one summarizes the selection
func (s *gameServiceImpl) selectEvents(cardID int, res engine.SelectResult, state *engine.GameState) []GameEvent {
	now := s.now()
	var events []GameEvent
	add := func(typ, msg string, cards ...int) {
		events = append(events, GameEvent{Type: typ, Message: msg, Timestamp: now, Cards: cards})
	}

	if res.Started {
		add(EventGameStarted, "Game started, the clock is running")
	}
	if !res.Accepted {
		add(EventIgnored, fmt.Sprintf("Card %d cannot be selected", cardID), cardID)
		return events
	}
	if len(res.FlipBack) > 0 {
		add(EventFlippedBack, "Previous cards flipped back", res.FlipBack...)
	}
	if res.Committed != nil {
		add(EventMatchCommitted, "Previous pair matched", res.Committed.First, res.Committed.Second)
	}
	add(EventCardFlipped, fmt.Sprintf("Card %d flipped", cardID), cardID)

	if res.Compared && len(state.History) > 0 {
		last := state.History[len(state.History)-1]
		if res.Matched {
			add(EventMatch, fmt.Sprintf("Match! %d of %d pairs found", matchedAfter(state), state.TotalPairs), last.FirstCard, last.SecondCard)
		} else {
			add(EventMismatch, "No match, the cards flip back on the next selection", last.FirstCard, last.SecondCard)
		}
	}
	if res.Completed {
		add(EventGameComplete, fmt.Sprintf("Congratulations! Game completed in %d attempts (%s)", state.Attempts, state.ElapsedDisplay))
	}
	return events
}

// matchedAfter counts the pairs found once a pending match is confirmed
func matchedAfter(state *engine.GameState) int {
	if len(state.Pending) == engine.SelectionSize {
		return state.Matches + 1
	}
	return state.Matches
}

func sessionInfo(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		TopicID:        sess.Topic.ID,
		TopicName:      sess.Topic.Name,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt(),
		GameState:      sess.Runner.State().PublicView(),
	}
}
