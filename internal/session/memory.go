package session

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps sessions in a process-local map. History is lost on
// restart; useful for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]Record)}
}

func (m *MemoryStore) CreateSession(_ context.Context, id, systemPrompt string) (*ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if history, ok := m.sessions[id]; ok {
		return snapshot(id, history), nil
	}
	seed := seedRecord(systemPrompt)
	m.sessions[id] = []Record{seed}
	return snapshot(id, m.sessions[id]), nil
}

func (m *MemoryStore) AddMessage(_ context.Context, id string, rec Record) (*ChatSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	history, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	history = append(history, rec)
	m.sessions[id] = history
	return snapshot(id, history), nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (*ChatSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	history, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return snapshot(id, history), nil
}

func (m *MemoryStore) AllSessions(_ context.Context) (map[string]*ChatSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*ChatSession, len(m.sessions))
	for id, history := range m.sessions {
		out[id] = snapshot(id, history)
	}
	return out, nil
}

// snapshot copies the history so callers cannot mutate internal state.
func snapshot(id string, history []Record) *ChatSession {
	out := make([]Record, len(history))
	copy(out, history)
	return &ChatSession{ID: id, History: out}
}
