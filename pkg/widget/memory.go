package widget

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store. It is safe for concurrent use and
// intended primarily for tests and ephemeral CLI sessions.
type MemoryStore struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{defs: make(map[string]*Definition)}
}

// Put implements Store.
func (m *MemoryStore) Put(_ context.Context, d *Definition) error {
	if err := prepare(d); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Store a clone so later caller mutation cannot reach the record.
	m.defs[d.ID] = d.Clone()
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id string) (*Definition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.defs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return d.Clone(), nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context) ([]*Definition, error) {
	m.mu.RLock()
	defs := make([]*Definition, 0, len(m.defs))
	for _, d := range m.defs {
		defs = append(defs, d.Clone())
	}
	m.mu.RUnlock()
	sortDefinitions(defs)
	return defs, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.defs[id]; !ok {
		return ErrNotFound
	}
	delete(m.defs, id)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	return nil
}
