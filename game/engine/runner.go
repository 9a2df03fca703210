package engine

import (
	"sync"
	"time"
)

// Settings controls the timing of a Runner
type Settings struct {
	MatchDelay   time.Duration
	TickInterval time.Duration
}

// DefaultSettings returns the timings of the original game
func DefaultSettings() Settings {
	return Settings{
		MatchDelay:   DefaultMatchDelay,
		TickInterval: DefaultTickInterval,
	}
}

// ChangeFunc receives a snapshot every time the game state changes
type ChangeFunc func(state *GameState)

// Runner drives one GameEngine: it serializes every action behind a mutex,
// schedules deferred match confirmations and runs the game clock.
type Runner struct {
	mu       sync.Mutex
	engine   *GameEngine
	settings Settings
	onChange ChangeFunc

	ticker   *time.Ticker
	stopTick chan struct{}
	timers   map[*time.Timer]struct{}
	closed   bool
}

// NewRunner wraps engine. A zero TickInterval falls back to the default;
// MatchDelay may be zero to confirm matches immediately.
func NewRunner(engine *GameEngine, settings Settings, onChange ChangeFunc) *Runner {
	if settings.TickInterval <= 0 {
		settings.TickInterval = DefaultTickInterval
	}
	if settings.MatchDelay < 0 {
		settings.MatchDelay = 0
	}
	return &Runner{
		engine:   engine,
		settings: settings,
		onChange: onChange,
		timers:   make(map[*time.Timer]struct{}),
	}
}

// SetOnChange replaces the change callback
func (r *Runner) SetOnChange(fn ChangeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// State returns a snapshot of the current game
func (r *Runner) State() *GameState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine.GetState()
}

// Topic returns the topic of the underlying engine
func (r *Runner) Topic() *Topic {
	return r.engine.GetTopic()
}

// History returns the attempts of the current game
func (r *Runner) History() []AttemptEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engine.GetHistory()
}

// Select applies a card selection and returns the resulting snapshot
func (r *Runner) Select(id int) (SelectResult, *GameState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return SelectResult{}, r.engine.GetState()
	}

	res := r.engine.SelectCard(id)
	if r.engine.IsActive() && !r.engine.IsComplete() {
		r.startTicker()
	}

	if res.Match != nil {
		if r.settings.MatchDelay <= 0 {
			r.engine.ConfirmMatch(*res.Match)
		} else {
			r.schedule(*res.Match)
		}
	}
	if r.engine.IsComplete() {
		res.Completed = true
		r.stopTicker()
	}

	state := r.engine.GetState()
	if res.Started || res.Accepted {
		r.publish(state)
	}
	return res, state
}

// Restart deals a new game, cancelling the clock and any pending confirmation
func (r *Runner) Restart() *GameState {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopTicker()
	r.stopTimers()
	state := r.engine.Initialize()
	if !r.closed {
		r.publish(state)
	}
	return state
}

// Close stops the clock and pending timers; later actions are ignored
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	r.stopTicker()
	r.stopTimers()
}

func (r *Runner) schedule(match PendingMatch) {
	var t *time.Timer
	t = time.AfterFunc(r.settings.MatchDelay, func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		delete(r.timers, t)
		if r.closed || !r.engine.ConfirmMatch(match) {
			return
		}
		if r.engine.IsComplete() {
			r.stopTicker()
		}
		r.publish(r.engine.GetState())
	})
	r.timers[t] = struct{}{}
}

func (r *Runner) stopTimers() {
	for t := range r.timers {
		t.Stop()
		delete(r.timers, t)
	}
}

// startTicker must be called with mu held
func (r *Runner) startTicker() {
	if r.ticker != nil {
		return
	}
	r.ticker = time.NewTicker(r.settings.TickInterval)
	r.stopTick = make(chan struct{})
	go r.tickLoop(r.ticker, r.stopTick)
}

// stopTicker must be called with mu held
func (r *Runner) stopTicker() {
	if r.ticker == nil {
		return
	}
	r.ticker.Stop()
	close(r.stopTick)
	r.ticker = nil
	r.stopTick = nil
}

func (r *Runner) tickLoop(ticker *time.Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.mu.Lock()
			select {
			case <-stop:
				// stopped while waiting for the lock
				r.mu.Unlock()
				return
			default:
			}
			if r.engine.Tick() {
				r.publish(r.engine.GetState())
			}
			if !r.engine.IsActive() || r.engine.IsComplete() {
				r.stopTicker()
			}
			r.mu.Unlock()
		}
	}
}

// publish must be called with mu held so snapshots reach the callback in order
func (r *Runner) publish(state *GameState) {
	if r.onChange != nil {
		r.onChange(state)
	}
}
