package notify

import (
	"context"
	"sync"
)

// MemoryStore is the in-process Store used when no Redis backend is
// configured. State is lost on restart.
type MemoryStore struct {
	mu        sync.RWMutex
	settings  map[string]Settings
	dismissed map[string]map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		settings:  make(map[string]Settings),
		dismissed: make(map[string]map[string]bool),
	}
}

func (m *MemoryStore) LoadSettings(_ context.Context, sessionID string) (Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.settings[sessionID]; ok {
		return s, nil
	}
	return DefaultSettings(), nil
}

func (m *MemoryStore) SaveSettings(_ context.Context, sessionID string, s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[sessionID] = s
	return nil
}

func (m *MemoryStore) LoadDismissed(_ context.Context, sessionID string) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]bool, len(m.dismissed[sessionID]))
	for id := range m.dismissed[sessionID] {
		out[id] = true
	}
	return out, nil
}

func (m *MemoryStore) DismissAlert(_ context.Context, sessionID, alertID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dismissed[sessionID] == nil {
		m.dismissed[sessionID] = make(map[string]bool)
	}
	m.dismissed[sessionID][alertID] = true
	return nil
}
