package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Felipe-G-Schmitt/v0-dev-ops-memory-game/game/engine"
	"github.com/Felipe-G-Schmitt/v0-dev-ops-memory-game/game/service"
)

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	mu       sync.Mutex
	sessions map[string]*service.Session
	settings engine.Settings
}

func NewMockSessionManager() *MockSessionManager {
	return &MockSessionManager{
		sessions: make(map[string]*service.Session),
		settings: engine.Settings{TickInterval: time.Hour},
	}
}

func (m *MockSessionManager) Create(id string, topic *engine.Topic) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Generate ID if empty (mimics real session manager behavior)
	if id == "" {
		id = fmt.Sprintf("test_%d", len(m.sessions)+1)
	}
	if _, exists := m.sessions[id]; exists {
		return nil, service.ErrSessionAlreadyExists
	}

	eng, err := engine.NewEngine(topic)
	if err != nil {
		return nil, err
	}
	sess := service.NewSession(id, engine.NewRunner(eng, m.settings, nil), topic)
	m.sessions[id] = sess
	return sess, nil
}

func (m *MockSessionManager) Get(id string) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, exists := m.sessions[id]
	if !exists {
		return nil, service.ErrSessionNotFound
	}
	return sess, nil
}

func (m *MockSessionManager) List() []*service.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*service.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	return result
}

func (m *MockSessionManager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, exists := m.sessions[id]
	if !exists {
		return service.ErrSessionNotFound
	}
	sess.Runner.Close()
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	sess, err := m.Get(id)
	if err != nil {
		return err
	}
	sess.Touch(time.Now())
	return nil
}

// MockTopicManager implements service.TopicManager for testing
type MockTopicManager struct {
	topics map[string]*engine.Topic
}

func NewMockTopicManager() *MockTopicManager {
	small := &engine.Topic{
		ID:   "small",
		Name: "Small",
		Pairs: []engine.Pair{
			{Term: "CI", Definition: "Continuous integration"},
			{Term: "CD", Definition: "Continuous delivery"},
		},
	}
	builtin := engine.DefaultTopic()
	return &MockTopicManager{
		topics: map[string]*engine.Topic{small.ID: small, builtin.ID: builtin},
	}
}

func (m *MockTopicManager) LoadTopic(id string) (*engine.Topic, error) {
	topic, ok := m.topics[id]
	if !ok {
		return nil, service.ErrTopicNotFound
	}
	return topic, nil
}

func (m *MockTopicManager) ListTopics() ([]*service.TopicInfo, error) {
	var infos []*service.TopicInfo
	for _, topic := range m.topics {
		infos = append(infos, service.NewTopicInfo(topic))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

func (m *MockTopicManager) GetDefault() *engine.Topic {
	return m.topics[engine.DefaultTopicID]
}

func newTestService(t *testing.T) (service.GameService, *MockSessionManager) {
	t.Helper()
	sessions := NewMockSessionManager()
	t.Cleanup(func() {
		for _, sess := range sessions.List() {
			sess.Runner.Close()
		}
	})
	return service.NewGameService(sessions, NewMockTopicManager()), sessions
}

// cardIDs returns the term and definition ids of pairID from the unmasked state
func cardIDs(t *testing.T, sessions *MockSessionManager, sessionID string, pairID int) (int, int) {
	t.Helper()
	sess, err := sessions.Get(sessionID)
	require.NoError(t, err)
	state := sess.Runner.State()
	term, ok := engine.FindCard(state.Cards, pairID, engine.Term)
	require.True(t, ok)
	def, ok := engine.FindCard(state.Cards, pairID, engine.Definition)
	require.True(t, ok)
	return term.ID, def.ID
}

func eventTypes(events []service.GameEvent) []string {
	types := make([]string, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}

func TestCreateSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t.Run("default topic", func(t *testing.T) {
		info, err := svc.CreateSession(ctx, "")
		require.NoError(t, err)
		assert.NotEmpty(t, info.ID)
		assert.Equal(t, engine.DefaultTopicID, info.TopicID)
		assert.Len(t, info.GameState.Cards, 20)
		assert.Equal(t, 10, info.GameState.TotalPairs)
	})

	t.Run("named topic", func(t *testing.T) {
		info, err := svc.CreateSession(ctx, "small")
		require.NoError(t, err)
		assert.Equal(t, "Small", info.TopicName)
		assert.Len(t, info.GameState.Cards, 4)
	})

	t.Run("unknown topic lists alternatives", func(t *testing.T) {
		_, err := svc.CreateSession(ctx, "missing")
		require.ErrorIs(t, err, service.ErrTopicNotFound)
		assert.Contains(t, err.Error(), "devops, small")
	})

	t.Run("state is a public view", func(t *testing.T) {
		info, err := svc.CreateSession(ctx, "small")
		require.NoError(t, err)
		for _, c := range info.GameState.Cards {
			assert.Empty(t, c.Content)
			assert.Equal(t, engine.HiddenPairID, c.PairID)
		}
	})
}

func TestGetSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateSession(ctx, "small")
	require.NoError(t, err)

	info, err := svc.GetSession(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, info.ID)
	assert.False(t, info.LastAccessedAt.Before(created.LastAccessedAt))

	_, err = svc.GetSession(ctx, "nope")
	assert.ErrorIs(t, err, service.ErrSessionNotFound)
}

func TestListAndDeleteSessions(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()

	a, err := svc.CreateSession(ctx, "small")
	require.NoError(t, err)
	_, err = svc.CreateSession(ctx, "")
	require.NoError(t, err)

	list, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	sess, err := sessions.Get(a.ID)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSession(ctx, a.ID))
	list, _ = svc.ListSessions(ctx)
	assert.Len(t, list, 1)

	// The runner is closed with its session
	res, _ := sess.Runner.Select(0)
	assert.False(t, res.Accepted)

	assert.ErrorIs(t, svc.DeleteSession(ctx, a.ID), service.ErrSessionNotFound)
}

func TestSelectCard(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, "small")
	require.NoError(t, err)
	term0, def0 := cardIDs(t, sessions, info.ID, 0)
	term1, def1 := cardIDs(t, sessions, info.ID, 1)

	t.Run("first selection starts the game", func(t *testing.T) {
		resp, err := svc.SelectCard(ctx, info.ID, term0)
		require.NoError(t, err)
		assert.True(t, resp.Accepted)
		assert.Equal(t, []string{service.EventGameStarted, service.EventCardFlipped}, eventTypes(resp.Events))
		assert.True(t, resp.GameState.IsActive)
		assert.Nil(t, resp.Attempt)
	})

	t.Run("mismatch", func(t *testing.T) {
		resp, err := svc.SelectCard(ctx, info.ID, def1)
		require.NoError(t, err)
		assert.Equal(t, []string{service.EventCardFlipped, service.EventMismatch}, eventTypes(resp.Events))
		require.NotNil(t, resp.Attempt)
		assert.Equal(t, 1, resp.Attempt.Number)
		assert.False(t, resp.Attempt.Matched)
		assert.Equal(t, 1, resp.GameState.Attempts)
	})

	t.Run("face-up card is ignored", func(t *testing.T) {
		resp, err := svc.SelectCard(ctx, info.ID, term0)
		require.NoError(t, err)
		assert.False(t, resp.Accepted)
		assert.Equal(t, []string{service.EventIgnored}, eventTypes(resp.Events))
		assert.Equal(t, resp.Events[0].Message, resp.Message)
	})

	t.Run("next selection flips the mismatch back", func(t *testing.T) {
		resp, err := svc.SelectCard(ctx, info.ID, def0)
		require.NoError(t, err)
		assert.Equal(t, []string{service.EventFlippedBack, service.EventCardFlipped}, eventTypes(resp.Events))
		assert.ElementsMatch(t, []int{term0, def1}, resp.Events[0].Cards)
	})

	t.Run("match and completion", func(t *testing.T) {
		resp, err := svc.SelectCard(ctx, info.ID, term0)
		require.NoError(t, err)
		assert.Equal(t, []string{service.EventCardFlipped, service.EventMatch}, eventTypes(resp.Events))
		assert.Equal(t, 1, resp.GameState.Matches)

		_, err = svc.SelectCard(ctx, info.ID, term1)
		require.NoError(t, err)
		resp, err = svc.SelectCard(ctx, info.ID, def1)
		require.NoError(t, err)

		assert.Equal(t, []string{service.EventCardFlipped, service.EventMatch, service.EventGameComplete}, eventTypes(resp.Events))
		assert.True(t, resp.GameState.IsComplete)
		assert.Equal(t, 3, resp.GameState.Attempts)
		assert.Contains(t, resp.Message, "3 attempts")
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := svc.SelectCard(ctx, "nope", 0)
		assert.ErrorIs(t, err, service.ErrSessionNotFound)
	})
}

func TestRestart(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, "small")
	require.NoError(t, err)
	term0, _ := cardIDs(t, sessions, info.ID, 0)

	_, err = svc.SelectCard(ctx, info.ID, term0)
	require.NoError(t, err)

	state, err := svc.Restart(ctx, info.ID)
	require.NoError(t, err)
	assert.NotEqual(t, info.GameState.GameID, state.GameID)
	assert.False(t, state.IsActive)
	assert.Empty(t, state.Pending)

	_, err = svc.Restart(ctx, "nope")
	assert.ErrorIs(t, err, service.ErrSessionNotFound)
}

func TestGetGameState(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, "small")
	require.NoError(t, err)
	term0, _ := cardIDs(t, sessions, info.ID, 0)
	_, err = svc.SelectCard(ctx, info.ID, term0)
	require.NoError(t, err)

	state, err := svc.GetGameState(ctx, info.ID)
	require.NoError(t, err)

	for _, c := range state.Cards {
		if c.ID == term0 {
			assert.Equal(t, "CI", c.Content)
			assert.Equal(t, 0, c.PairID)
			continue
		}
		assert.Empty(t, c.Content)
	}
}

func TestGetAttemptHistory(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()

	info, err := svc.CreateSession(ctx, "")
	require.NoError(t, err)

	// Five mismatched attempts: term of pair i against definition of pair i+1
	for i := 0; i < 5; i++ {
		term, _ := cardIDs(t, sessions, info.ID, i)
		_, def := cardIDs(t, sessions, info.ID, i+1)
		_, err := svc.SelectCard(ctx, info.ID, term)
		require.NoError(t, err)
		_, err = svc.SelectCard(ctx, info.ID, def)
		require.NoError(t, err)
	}

	tests := []struct {
		name      string
		opts      service.HistoryOptions
		numbers   []int
		pages     int
		hasNext   bool
		hasPrev   bool
		wantLimit int
	}{
		{"defaults are newest first", service.HistoryOptions{}, []int{5, 4, 3, 2, 1}, 1, false, false, 20},
		{"ascending page 1", service.HistoryOptions{Page: 1, Limit: 2, Order: "asc"}, []int{1, 2}, 3, true, false, 2},
		{"ascending last page", service.HistoryOptions{Page: 3, Limit: 2, Order: "asc"}, []int{5}, 3, false, true, 2},
		{"descending page 2", service.HistoryOptions{Page: 2, Limit: 2, Order: "desc"}, []int{3, 2}, 3, true, true, 2},
		{"past the end", service.HistoryOptions{Page: 9, Limit: 2}, []int{}, 3, false, true, 2},
		{"limit is capped", service.HistoryOptions{Limit: 1000}, []int{5, 4, 3, 2, 1}, 1, false, false, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.GetAttemptHistory(ctx, info.ID, tt.opts)
			require.NoError(t, err)

			numbers := []int{}
			for _, a := range resp.Attempts {
				numbers = append(numbers, a.Number)
			}
			assert.Equal(t, tt.numbers, numbers)
			assert.Equal(t, 5, resp.TotalAttempts)
			assert.Equal(t, tt.pages, resp.TotalPages)
			assert.Equal(t, tt.hasNext, resp.HasNext)
			assert.Equal(t, tt.hasPrev, resp.HasPrevious)
			assert.Equal(t, tt.wantLimit, resp.PageSize)
		})
	}

	_, err = svc.GetAttemptHistory(ctx, "nope", service.HistoryOptions{})
	assert.ErrorIs(t, err, service.ErrSessionNotFound)
}

func TestTopics(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	topics, err := svc.ListTopics(ctx)
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, engine.DefaultTopicID, topics[0].ID)
	assert.Equal(t, 10, topics[0].Pairs)

	topic, err := svc.LoadTopic(ctx, "small")
	require.NoError(t, err)
	assert.Len(t, topic.Pairs, 2)

	_, err = svc.LoadTopic(ctx, "missing")
	assert.ErrorIs(t, err, service.ErrTopicNotFound)
}
