package datasource

import (
	"context"
	"fmt"
	"time"
)

// Clock keys, in the time.* and date.* categories.
var clockKeys = []string{
	"time.hour",
	"time.minute",
	"time.second",
	"time.hhmm",
	"date.year",
	"date.month",
	"date.day",
	"date.weekday",
	"date.iso",
}

// Clock serves wall-clock fields computed on demand. Tick drives change
// notifications for callers that want live updates.
type Clock struct {
	subscribers

	now func() time.Time
}

// ClockOption configures a Clock.
type ClockOption func(*Clock)

// WithClockNow replaces the time source, which pins the clock in tests.
func WithClockNow(now func() time.Time) ClockOption {
	return func(c *Clock) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClock builds a clock over the real time source.
func NewClock(opts ...ClockOption) *Clock {
	c := &Clock{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetValue implements Provider.
func (c *Clock) GetValue(key string) (any, bool) {
	v, ok := clockValue(c.now(), key)
	return v, ok
}

// Keys implements Provider.
func (c *Clock) Keys() []string {
	keys := make([]string, len(clockKeys))
	copy(keys, clockKeys)
	return keys
}

// Tick recomputes all fields every interval and notifies subscribers of the
// ones that changed. It blocks until ctx is done.
func (c *Clock) Tick(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	last := snapshotClock(c.now())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current := snapshotClock(c.now())
			for _, key := range clockKeys {
				if current[key] != last[key] {
					c.notify(key)
				}
			}
			last = current
		}
	}
}

func snapshotClock(t time.Time) map[string]any {
	values := make(map[string]any, len(clockKeys))
	for _, key := range clockKeys {
		values[key], _ = clockValue(t, key)
	}
	return values
}

func clockValue(t time.Time, key string) (any, bool) {
	switch key {
	case "time.hour":
		return int64(t.Hour()), true
	case "time.minute":
		return int64(t.Minute()), true
	case "time.second":
		return int64(t.Second()), true
	case "time.hhmm":
		return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute()), true
	case "date.year":
		return int64(t.Year()), true
	case "date.month":
		return int64(t.Month()), true
	case "date.day":
		return int64(t.Day()), true
	case "date.weekday":
		return t.Weekday().String(), true
	case "date.iso":
		return t.Format("2006-01-02"), true
	}
	return nil, false
}
