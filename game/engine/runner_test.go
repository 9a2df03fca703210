package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects the snapshots published by a Runner
type recorder struct {
	mu     sync.Mutex
	states []*GameState
}

func (r *recorder) record(s *GameState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func (r *recorder) last() *GameState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return nil
	}
	return r.states[len(r.states)-1]
}

func newTestRunner(t *testing.T, settings Settings) (*Runner, *GameEngine, *recorder) {
	t.Helper()
	e := newTestEngine(t)
	rec := &recorder{}
	r := NewRunner(e, settings, rec.record)
	t.Cleanup(r.Close)
	return r, e, rec
}

func runnerCard(t *testing.T, r *Runner, pairID int, kind CardKind) int {
	t.Helper()
	c, ok := FindCard(r.State().Cards, pairID, kind)
	require.True(t, ok)
	return c.ID
}

func TestRunner_MatchConfirmedAfterDelay(t *testing.T) {
	r, _, rec := newTestRunner(t, Settings{MatchDelay: 30 * time.Millisecond, TickInterval: time.Hour})
	a := runnerCard(t, r, 0, Term)
	b := runnerCard(t, r, 0, Definition)

	r.Select(a)
	res, state := r.Select(b)

	require.True(t, res.Matched)
	assert.Equal(t, []int{a, b}, state.Pending)
	assert.Zero(t, state.Matches)

	require.Eventually(t, func() bool {
		s := r.State()
		return s.Matches == 1 && len(s.Pending) == 0
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		last := rec.last()
		return last != nil && last.Matches == 1
	}, time.Second, 5*time.Millisecond, "confirmation must be published")
}

func TestRunner_ZeroDelayConfirmsInline(t *testing.T) {
	r, _, _ := newTestRunner(t, Settings{TickInterval: time.Hour})

	r.Select(runnerCard(t, r, 1, Term))
	_, state := r.Select(runnerCard(t, r, 1, Definition))

	assert.Equal(t, 1, state.Matches)
	assert.Empty(t, state.Pending)
}

func TestRunner_RestartCancelsPendingConfirmation(t *testing.T) {
	r, _, _ := newTestRunner(t, Settings{MatchDelay: 40 * time.Millisecond, TickInterval: time.Hour})

	r.Select(runnerCard(t, r, 0, Term))
	_, before := r.Select(runnerCard(t, r, 0, Definition))

	after := r.Restart()
	assert.NotEqual(t, before.GameID, after.GameID)

	time.Sleep(100 * time.Millisecond)

	s := r.State()
	assert.Equal(t, after.GameID, s.GameID)
	assert.Zero(t, s.Matches)
	for _, c := range s.Cards {
		assert.False(t, c.IsFlipped)
		assert.False(t, c.IsMatched)
	}
}

func TestRunner_ClockRunsWhileActive(t *testing.T) {
	r, _, rec := newTestRunner(t, Settings{TickInterval: 10 * time.Millisecond})

	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, r.State().ElapsedSeconds, "clock must not run before the first selection")
	assert.Zero(t, rec.count())

	r.Select(runnerCard(t, r, 0, Term))

	require.Eventually(t, func() bool {
		return r.State().ElapsedSeconds >= 3
	}, time.Second, 5*time.Millisecond)
}

func TestRunner_ClockStopsOnCompletion(t *testing.T) {
	r, _, _ := newTestRunner(t, Settings{TickInterval: 10 * time.Millisecond})

	for pair := 0; pair < 3; pair++ {
		r.Select(runnerCard(t, r, pair, Term))
		res, _ := r.Select(runnerCard(t, r, pair, Definition))
		if pair == 2 {
			assert.True(t, res.Completed)
		}
	}

	final := r.State()
	require.True(t, final.IsComplete)
	assert.False(t, final.IsActive)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, final.ElapsedSeconds, r.State().ElapsedSeconds)
}

func TestRunner_ClockStopsOnRestart(t *testing.T) {
	r, _, _ := newTestRunner(t, Settings{TickInterval: 10 * time.Millisecond})

	r.Select(runnerCard(t, r, 0, Term))
	require.Eventually(t, func() bool {
		return r.State().ElapsedSeconds > 0
	}, time.Second, 5*time.Millisecond)

	state := r.Restart()
	assert.Zero(t, state.ElapsedSeconds)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, r.State().ElapsedSeconds)
	assert.False(t, r.State().IsActive)
}

func TestRunner_InvalidSelectionIsNotPublished(t *testing.T) {
	r, _, rec := newTestRunner(t, Settings{TickInterval: time.Hour})

	r.Select(runnerCard(t, r, 0, Term))
	published := rec.count()

	res, _ := r.Select(999)
	assert.False(t, res.Accepted)
	assert.Equal(t, published, rec.count())
}

func TestRunner_CloseIgnoresActions(t *testing.T) {
	r, _, rec := newTestRunner(t, Settings{TickInterval: time.Hour})
	r.Close()

	res, state := r.Select(runnerCard(t, r, 0, Term))
	assert.False(t, res.Accepted)
	assert.False(t, state.IsActive)
	assert.Zero(t, rec.count())
}

func TestRunner_ConcurrentSelections(t *testing.T) {
	r, _, _ := newTestRunner(t, Settings{MatchDelay: time.Millisecond, TickInterval: time.Millisecond})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.Select((seed + j) % 6)
			}
		}(i)
	}
	wg.Wait()

	s := r.State()
	assert.LessOrEqual(t, countFaceUpUnmatched(s.Cards), 2)
	assert.LessOrEqual(t, len(s.Pending), 2)
}
