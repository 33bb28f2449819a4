package datasource_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dudeperfectdwag/widgetcraft/pkg/datasource"
)

func TestClockValues(t *testing.T) {
	at := time.Date(2026, 8, 24, 9, 5, 7, 0, time.UTC)
	clk := datasource.NewClock(datasource.WithClockNow(func() time.Time { return at }))

	tests := []struct {
		key  string
		want any
	}{
		{"time.hour", int64(9)},
		{"time.minute", int64(5)},
		{"time.second", int64(7)},
		{"time.hhmm", "09:05"},
		{"date.year", int64(2026)},
		{"date.month", int64(8)},
		{"date.day", int64(24)},
		{"date.weekday", "Monday"},
		{"date.iso", "2026-08-24"},
	}
	for _, tt := range tests {
		v, ok := clk.GetValue(tt.key)
		if !ok {
			t.Errorf("%s: unknown", tt.key)
			continue
		}
		if v != tt.want {
			t.Errorf("%s = %#v, want %#v", tt.key, v, tt.want)
		}
	}

	if _, ok := clk.GetValue("time.nanosecond"); ok {
		t.Fatal("unexpected key served")
	}
	if got := len(clk.Keys()); got != 9 {
		t.Fatalf("len(Keys()) = %d, want 9", got)
	}
}

func TestClockTickNotifies(t *testing.T) {
	var mu sync.Mutex
	current := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	clk := datasource.NewClock(datasource.WithClockNow(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}))

	changed := make(chan string, 32)
	unsub := clk.Subscribe(func(key string) {
		select {
		case changed <- key:
		default:
		}
	})
	defer unsub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		clk.Tick(ctx, 5*time.Millisecond)
	}()

	mu.Lock()
	current = time.Date(2026, 8, 24, 11, 0, 0, 0, time.UTC)
	mu.Unlock()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case key := <-changed:
			if key == "time.hour" {
				cancel()
				<-done
				return
			}
		case <-deadline:
			t.Fatal("no time.hour notification within 2s")
		}
	}
}
