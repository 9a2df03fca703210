package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Felipe-G-Schmitt/v0-dev-ops-memory-game/game/engine"
	"github.com/Felipe-G-Schmitt/v0-dev-ops-memory-game/game/service"
)

var (
	ErrTopicNotFound = service.ErrTopicNotFound
	ErrInvalidTopic  = service.ErrInvalidTopic
)

// Manager handles topic loading and caching.
// The built-in DevOps topic is always available; a topics directory is optional.
type Manager struct {
	topicsDir    string
	defaultTopic *engine.Topic
	topics       map[string]*engine.Topic
	mu           sync.RWMutex
}

// NewManager creates a new topic manager. An empty topicsDir serves only
// the built-in topic.
func NewManager(topicsDir string) (*Manager, error) {
	if topicsDir != "" {
		info, err := os.Stat(topicsDir)
		if err != nil {
			return nil, fmt.Errorf("topics directory does not exist: %s", topicsDir)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("topics path is not a directory: %s", topicsDir)
		}
	}

	builtin := engine.DefaultTopic()
	m := &Manager{
		topicsDir:    topicsDir,
		defaultTopic: builtin,
		topics:       map[string]*engine.Topic{builtin.ID: builtin},
	}
	return m, nil
}

// LoadTopic loads a topic by id, reading <id>.json from the topics directory
// on first use
func (m *Manager) LoadTopic(id string) (*engine.Topic, error) {
	id = strings.TrimSuffix(id, ".json")

	m.mu.RLock()
	if topic, exists := m.topics[id]; exists {
		m.mu.RUnlock()
		return topic, nil
	}
	m.mu.RUnlock()

	if m.topicsDir == "" || id == "" || strings.ContainsAny(id, `/\`) {
		return nil, ErrTopicNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if topic, exists := m.topics[id]; exists {
		return topic, nil
	}

	topic, err := engine.LoadTopic(filepath.Join(m.topicsDir, id+".json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrTopicNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidTopic, err)
	}
	if topic.ID != id {
		return nil, fmt.Errorf("%w: file %s.json declares id %q", ErrInvalidTopic, id, topic.ID)
	}

	m.topics[id] = topic
	return topic, nil
}

// ListTopics returns information about every loadable topic, sorted by id.
// Invalid files in the topics directory are skipped.
func (m *Manager) ListTopics() ([]*service.TopicInfo, error) {
	ids := []string{engine.DefaultTopicID}

	if m.topicsDir != "" {
		entries, err := os.ReadDir(m.topicsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to read topics directory: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			id := strings.TrimSuffix(entry.Name(), ".json")
			if id != engine.DefaultTopicID {
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)

	topics := make([]*service.TopicInfo, 0, len(ids))
	for _, id := range ids {
		topic, err := m.LoadTopic(id)
		if err != nil {
			continue
		}
		topics = append(topics, service.NewTopicInfo(topic))
	}
	return topics, nil
}

// GetDefault returns the default topic
func (m *Manager) GetDefault() *engine.Topic {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultTopic
}

// SetDefault sets the default topic by id
func (m *Manager) SetDefault(id string) error {
	topic, err := m.LoadTopic(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultTopic = topic
	return nil
}

// RefreshCache forgets every topic loaded from disk
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	defer m.mu.Unlock()

	builtin := engine.DefaultTopic()
	m.topics = map[string]*engine.Topic{builtin.ID: builtin}
	if m.defaultTopic.ID == builtin.ID {
		m.defaultTopic = builtin
	}
}
