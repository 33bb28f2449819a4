package datasource

import (
	"sort"
	"sync"
)

// Static is a map-backed provider. It backs tests, context files passed to
// the CLI, and any caller that wants to push values by hand.
type Static struct {
	subscribers

	mu     sync.RWMutex
	values map[string]any
}

// NewStatic builds a provider over a copy of values. A nil map is fine.
func NewStatic(values map[string]any) *Static {
	copied := make(map[string]any, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &Static{values: copied}
}

// GetValue implements Provider.
func (s *Static) GetValue(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Keys implements Provider. Keys are returned sorted.
func (s *Static) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set stores a value and notifies subscribers of the change.
func (s *Static) Set(key string, value any) {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	s.notify(key)
}

// Delete removes a key and notifies subscribers.
func (s *Static) Delete(key string) {
	s.mu.Lock()
	_, ok := s.values[key]
	delete(s.values, key)
	s.mu.Unlock()
	if ok {
		s.notify(key)
	}
}
