// Package datasource provides the data side of widget execution: providers
// that serve categorized key/value pairs (time.*, date.*, weather.*,
// battery.*, music.* and so on) and notify subscribers when values change.
// Providers feed script contexts; the sandbox itself never subscribes, only
// callers such as the preview service do.
package datasource

import (
	"errors"
	"sync"
)

// ErrNoSuchField is returned when a feed is asked for a field it has no rule
// for.
var ErrNoSuchField = errors.New("datasource: no such field")

// Provider serves values for a set of keys and reports changes.
type Provider interface {
	// GetValue returns the current value for key and whether the provider
	// knows the key. Values are primitives: string, bool, int64, float64
	// or nil.
	GetValue(key string) (any, bool)

	// Keys lists every key the provider can currently serve.
	Keys() []string

	// Subscribe registers fn to be called with a key whenever that key's
	// value may have changed. The returned function removes the
	// subscription. fn may be called from internal goroutines and must not
	// block.
	Subscribe(fn func(key string)) (unsubscribe func())
}

// subscribers implements Subscribe/notify for providers that embed it.
type subscribers struct {
	subMu sync.Mutex
	subs  map[int]func(key string)
	next  int
}

func (s *subscribers) Subscribe(fn func(key string)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.subs == nil {
		s.subs = make(map[int]func(string))
	}
	id := s.next
	s.next++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// notify calls every subscriber with key, outside the registry lock.
func (s *subscribers) notify(key string) {
	s.subMu.Lock()
	fns := make([]func(string), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(key)
	}
}
