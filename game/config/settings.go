package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/Felipe-G-Schmitt/v0-dev-ops-memory-game/game/engine"
)

// Settings holds the tunables read from the environment
type Settings struct {
	MatchDelay      time.Duration `env:"MATCH_DELAY"      envDefault:"500ms"`
	TickInterval    time.Duration `env:"TICK_INTERVAL"    envDefault:"1s"`
	SessionTTL      time.Duration `env:"SESSION_TTL"      envDefault:"24h"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`
	TopicsDir       string        `env:"TOPICS_DIR"`
	DefaultTopic    string        `env:"DEFAULT_TOPIC"    envDefault:"devops"`
	PublicURL       string        `env:"PUBLIC_URL"`
	LogLevel        string        `env:"LOG_LEVEL"        envDefault:"info"`
}

// LoadSettings parses Settings from the process environment
func LoadSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate rejects settings the game cannot run with
func (s Settings) Validate() error {
	if s.MatchDelay < 0 {
		return fmt.Errorf("MATCH_DELAY must not be negative, got %s", s.MatchDelay)
	}
	if s.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be positive, got %s", s.TickInterval)
	}
	if s.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", s.SessionTTL)
	}
	if s.CleanupInterval <= 0 {
		return fmt.Errorf("CLEANUP_INTERVAL must be positive, got %s", s.CleanupInterval)
	}
	return nil
}

// RunnerSettings returns the engine timings carried by s
func (s Settings) RunnerSettings() engine.Settings {
	return engine.Settings{
		MatchDelay:   s.MatchDelay,
		TickInterval: s.TickInterval,
	}
}
