package state

import (
	"context"
	"sync"
)

type session struct {
	state State
	data  Data
}

// MemoryStorage keeps sessions in process memory. Data is copied on the way in and out.
type MemoryStorage struct {
	mu       sync.RWMutex
	sessions map[Key]*session
}

// NewMemoryStorage constructs an in-memory Storage for tests and development.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{sessions: make(map[Key]*session)}
}

func (m *MemoryStorage) ensure(key Key) *session {
	s, ok := m.sessions[key]
	if !ok {
		s = &session{data: Data{}}
		m.sessions[key] = s
	}
	return s
}

// State returns the current state, or StateIdle when the key is unknown.
func (m *MemoryStorage) State(_ context.Context, key Key) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[key]; ok {
		return s.state, nil
	}
	return StateIdle, nil
}

// SetState updates the state, creating the session if necessary.
func (m *MemoryStorage) SetState(_ context.Context, key Key, st State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure(key).state = st
	m.gc(key)
	return nil
}

// Data returns a copy of the stored data.
func (m *MemoryStorage) Data(_ context.Context, key Key) (Data, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[key]; ok {
		return s.data.Clone(), nil
	}
	return Data{}, nil
}

// SetData replaces the stored data.
func (m *MemoryStorage) SetData(_ context.Context, key Key, data Data) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensure(key).data = data.Clone()
	m.gc(key)
	return nil
}

// UpdateData merges patch into the stored data.
func (m *MemoryStorage) UpdateData(_ context.Context, key Key, patch Data) (Data, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.ensure(key)
	for k, v := range patch {
		s.data[k] = v
	}
	out := s.data.Clone()
	m.gc(key)
	return out, nil
}

// Close drops every session.
func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.sessions)
	return nil
}

// Len reports how many sessions are held.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// gc removes an idle session without data. Callers hold the write lock.
func (m *MemoryStorage) gc(key Key) {
	if s, ok := m.sessions[key]; ok && s.state == StateIdle && len(s.data) == 0 {
		delete(m.sessions, key)
	}
}
