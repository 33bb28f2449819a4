package datasource

import (
	"sort"
	"strings"
	"sync"
)

// Mux routes keys to child providers by longest registered prefix. An empty
// prefix matches everything and serves as the fallback.
type Mux struct {
	mu     sync.RWMutex
	mounts []mount
}

type mount struct {
	prefix string
	p      Provider
}

// NewMux builds an empty router.
func NewMux() *Mux {
	return &Mux{}
}

// Mount registers p under prefix. Mount order does not matter; the longest
// matching prefix always wins. Mounting the same prefix twice replaces the
// earlier provider.
func (m *Mux) Mount(prefix string, p Provider) {
	if p == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, mt := range m.mounts {
		if mt.prefix == prefix {
			m.mounts[i].p = p
			return
		}
	}
	m.mounts = append(m.mounts, mount{prefix: prefix, p: p})
}

// route returns the provider for key, or nil when no mount matches.
// Callers hold m.mu.
func (m *Mux) route(key string) Provider {
	var best Provider
	bestLen := -1
	for _, mt := range m.mounts {
		if strings.HasPrefix(key, mt.prefix) && len(mt.prefix) > bestLen {
			best = mt.p
			bestLen = len(mt.prefix)
		}
	}
	return best
}

// GetValue implements Provider. The key is passed to the child whole;
// providers own their categorized key names.
func (m *Mux) GetValue(key string) (any, bool) {
	m.mu.RLock()
	p := m.route(key)
	m.mu.RUnlock()
	if p == nil {
		return nil, false
	}
	return p.GetValue(key)
}

// Keys implements Provider. A child key is listed only when the router would
// actually send it back to that child, so shadowed keys do not appear.
func (m *Mux) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, mt := range m.mounts {
		for _, key := range mt.p.Keys() {
			if m.route(key) != mt.p {
				continue
			}
			seen[key] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Subscribe implements Provider by subscribing to every child mounted at call
// time. Providers mounted later are not covered by earlier subscriptions.
func (m *Mux) Subscribe(fn func(key string)) func() {
	m.mu.RLock()
	unsubs := make([]func(), 0, len(m.mounts))
	for _, mt := range m.mounts {
		unsubs = append(unsubs, mt.p.Subscribe(fn))
	}
	m.mu.RUnlock()
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
