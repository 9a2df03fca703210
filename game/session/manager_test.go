package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Felipe-G-Schmitt/v0-dev-ops-memory-game/game/engine"
)

func createTestTopic() *engine.Topic {
	return &engine.Topic{
		ID:   "test",
		Name: "Test Topic",
		Pairs: []engine.Pair{
			{Term: "Plan", Definition: "Decide what to build"},
			{Term: "Code", Definition: "Write the source"},
		},
	}
}

func testSettings() engine.Settings {
	return engine.Settings{TickInterval: time.Hour}
}

// recordingNotifier collects state changes and closed sessions
type recordingNotifier struct {
	mu      sync.Mutex
	changes map[string][]*engine.GameState
	closed  []string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{changes: make(map[string][]*engine.GameState)}
}

func (n *recordingNotifier) NotifyStateChange(sessionID string, state *engine.GameState) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes[sessionID] = append(n.changes[sessionID], state)
}

func (n *recordingNotifier) NotifySessionClosed(sessionID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = append(n.closed, sessionID)
}

func (n *recordingNotifier) closedSessions() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.closed...)
}

func (n *recordingNotifier) count(sessionID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.changes[sessionID])
}

func TestManager_Create(t *testing.T) {
	manager := NewManager(testSettings())
	topic := createTestTopic()
	t.Cleanup(manager.CloseAll)

	t.Run("create with custom ID", func(t *testing.T) {
		session, err := manager.Create("test-session", topic)
		require.NoError(t, err)
		assert.Equal(t, "test-session", session.ID)
		require.NotNil(t, session.Runner)
		assert.Len(t, session.Runner.State().Cards, 4)
		assert.Same(t, topic, session.Topic)
	})

	t.Run("create with auto-generated ID", func(t *testing.T) {
		session, err := manager.Create("", topic)
		require.NoError(t, err)
		assert.Len(t, session.ID, 4)
	})

	t.Run("duplicate session ID", func(t *testing.T) {
		_, err := manager.Create("test-session", topic)
		assert.ErrorIs(t, err, ErrSessionAlreadyExists)
	})

	t.Run("case-insensitive duplicate check", func(t *testing.T) {
		_, err := manager.Create("TEST-SESSION", topic)
		assert.ErrorIs(t, err, ErrSessionAlreadyExists)
	})

	t.Run("invalid ID", func(t *testing.T) {
		_, err := manager.Create("a/b", topic)
		assert.ErrorIs(t, err, ErrInvalidSessionID)
	})

	t.Run("invalid topic", func(t *testing.T) {
		invalid := createTestTopic()
		invalid.Pairs = invalid.Pairs[:1]
		_, err := manager.Create("invalid-test", invalid)
		assert.Error(t, err)
	})

	assert.Equal(t, 2, manager.Count())
}

func TestManager_Get(t *testing.T) {
	manager := NewManager(testSettings())
	t.Cleanup(manager.CloseAll)

	created, err := manager.Create("get-test", createTestTopic())
	require.NoError(t, err)

	t.Run("get existing session", func(t *testing.T) {
		session, err := manager.Get("get-test")
		require.NoError(t, err)
		assert.Same(t, created, session)
	})

	t.Run("case-insensitive get", func(t *testing.T) {
		session, err := manager.Get("GET-TEST")
		require.NoError(t, err)
		assert.Same(t, created, session)
	})

	t.Run("get non-existent session", func(t *testing.T) {
		_, err := manager.Get("non-existent")
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestManager_List(t *testing.T) {
	manager := NewManager(testSettings())
	t.Cleanup(manager.CloseAll)

	assert.Empty(t, manager.List())

	for _, id := range []string{"a", "b", "c"} {
		_, err := manager.Create(id, createTestTopic())
		require.NoError(t, err)
	}

	ids := map[string]bool{}
	for _, s := range manager.List() {
		ids[s.ID] = true
	}
	assert.Equal(t, map[string]bool{"a": true, "b": true, "c": true}, ids)
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager(testSettings())
	notifier := newRecordingNotifier()
	manager.SetNotifier(notifier)

	session, err := manager.Create("delete-test", createTestTopic())
	require.NoError(t, err)

	require.NoError(t, manager.Delete("DELETE-TEST"))
	assert.Equal(t, []string{"delete-test"}, notifier.closedSessions())

	_, err = manager.Get("delete-test")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// The runner no longer accepts actions
	res, _ := session.Runner.Select(0)
	assert.False(t, res.Accepted)

	assert.ErrorIs(t, manager.Delete("delete-test"), ErrSessionNotFound)
}

func TestManager_UpdateLastAccessed(t *testing.T) {
	manager := NewManager(testSettings())
	t.Cleanup(manager.CloseAll)

	session, err := manager.Create("access-test", createTestTopic())
	require.NoError(t, err)

	before := session.LastAccessedAt()
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, manager.UpdateLastAccessed("access-test"))
	assert.True(t, session.LastAccessedAt().After(before))

	assert.ErrorIs(t, manager.UpdateLastAccessed("missing"), ErrSessionNotFound)
}

func TestManager_CleanupExpiredSessions(t *testing.T) {
	manager := NewManager(testSettings())
	t.Cleanup(manager.CloseAll)
	notifier := newRecordingNotifier()
	manager.SetNotifier(notifier)

	old, err := manager.Create("old", createTestTopic())
	require.NoError(t, err)
	_, err = manager.Create("fresh", createTestTopic())
	require.NoError(t, err)

	old.Touch(time.Now().Add(-2 * time.Hour))

	removed := manager.CleanupExpiredSessions(time.Hour)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, manager.Count())
	assert.Equal(t, []string{"old"}, notifier.closedSessions())

	_, err = manager.Get("old")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	res, _ := old.Runner.Select(0)
	assert.False(t, res.Accepted, "expired runner must be closed")

	assert.Zero(t, manager.CleanupExpiredSessions(time.Hour))
}

func TestManager_NotifiesStateChanges(t *testing.T) {
	manager := NewManager(engine.Settings{MatchDelay: 10 * time.Millisecond, TickInterval: time.Hour})
	t.Cleanup(manager.CloseAll)

	notifier := newRecordingNotifier()
	manager.SetNotifier(notifier)

	session, err := manager.Create("notify", createTestTopic())
	require.NoError(t, err)

	state := session.Runner.State()
	term, _ := engine.FindCard(state.Cards, 0, engine.Term)
	def, _ := engine.FindCard(state.Cards, 0, engine.Definition)

	session.Runner.Select(term.ID)
	session.Runner.Select(def.ID)
	assert.Equal(t, 2, notifier.count("notify"))

	// The deferred confirmation is published too
	require.Eventually(t, func() bool {
		return notifier.count("notify") == 3
	}, time.Second, 5*time.Millisecond)
}

func TestManager_ConcurrentAccess(t *testing.T) {
	manager := NewManager(testSettings())
	t.Cleanup(manager.CloseAll)
	manager.SetNotifier(newRecordingNotifier())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				session, err := manager.Create("", createTestTopic())
				if !assert.NoError(t, err) {
					return
				}
				session.Runner.Select(j % 4)
				_ = manager.UpdateLastAccessed(session.ID)
				_ = manager.List()
				if j%2 == 0 {
					assert.NoError(t, manager.Delete(session.ID))
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, manager.Count())
}
