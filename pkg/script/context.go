package script

import "sync"

// Neutral is the value context.get returns for keys the snapshot does not
// know. Scripts must render sensibly without raising, so unknown data reads
// as an empty string rather than an error.
const Neutral = ""

// Context is the immutable data snapshot one script run reads through
// context.now and context.get(key). Values are fixed for the lifetime of the
// run: two get calls with the same key always return the same value, even
// when the context is backed by a live lookup.
//
// A Context also records which keys the script asked for, so callers can
// subscribe to exactly the data a widget depends on.
type Context struct {
	now int64

	mu       sync.Mutex
	values   map[string]any
	misses   map[string]struct{}
	lookup   func(key string) (any, bool)
	accessed []string
	seen     map[string]struct{}
}

// NewContextValues builds a Context from an eager copy of values. The map is
// copied and each value reduced to the primitive surface, so later mutation
// of the caller's map cannot be observed by the script.
func NewContextValues(now int64, values map[string]any) *Context {
	copied := make(map[string]any, len(values))
	for k, v := range values {
		copied[k] = sanitizeValue(v)
	}
	return &Context{
		now:    now,
		values: copied,
		misses: make(map[string]struct{}),
		seen:   make(map[string]struct{}),
	}
}

// NewContext builds a Context backed by a lookup function. Each key is read
// from the lookup at most once and memoized, including misses, which keeps
// repeated reads consistent even when the underlying source changes mid-run.
func NewContext(now int64, lookup func(key string) (any, bool)) *Context {
	return &Context{
		now:    now,
		values: make(map[string]any),
		misses: make(map[string]struct{}),
		lookup: lookup,
		seen:   make(map[string]struct{}),
	}
}

// Now returns the snapshot's reference time in Unix milliseconds.
func (c *Context) Now() int64 {
	return c.now
}

// Get returns the value for key and whether the snapshot knows it. Unknown
// keys return Neutral, never an error.
func (c *Context) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.track(key)
	if v, ok := c.values[key]; ok {
		return v, true
	}
	if _, ok := c.misses[key]; ok {
		return Neutral, false
	}
	if c.lookup != nil {
		if v, ok := c.lookup(key); ok {
			v = sanitizeValue(v)
			c.values[key] = v
			return v, true
		}
	}
	// Memoize the miss so the key stays neutral for the whole run even if
	// the lookup learns it later.
	c.misses[key] = struct{}{}
	return Neutral, false
}

// AccessedKeys returns the distinct keys read so far, in first-access order.
func (c *Context) AccessedKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.accessed))
	copy(out, c.accessed)
	return out
}

func (c *Context) track(key string) {
	if _, ok := c.seen[key]; ok {
		return
	}
	c.seen[key] = struct{}{}
	c.accessed = append(c.accessed, key)
}

// sanitizeValue reduces an arbitrary provider value to the primitive surface
// scripts may observe: string, bool, int64, float64 or nil. Anything else
// reads as Neutral.
func sanitizeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return x
	case bool:
		return x
	case int64:
		return x
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return int64(x)
	case float64:
		return x
	case float32:
		return float64(x)
	}
	return Neutral
}
