package script

import (
	"reflect"
	"testing"
	"time"
)

func TestContextValuesCopied(t *testing.T) {
	values := map[string]any{"k": "original"}
	sctx := NewContextValues(99, values)

	values["k"] = "mutated"
	values["added"] = "late"

	if got, ok := sctx.Get("k"); !ok || got != "original" {
		t.Fatalf("Get(k) = %v, %v", got, ok)
	}
	if got, ok := sctx.Get("added"); ok || got != Neutral {
		t.Fatalf("Get(added) = %v, %v; want neutral miss", got, ok)
	}
	if sctx.Now() != 99 {
		t.Fatalf("Now() = %d", sctx.Now())
	}
}

func TestContextLookupMemoized(t *testing.T) {
	calls := 0
	sctx := NewContext(0, func(key string) (any, bool) {
		calls++
		return calls, true
	})

	first, ok := sctx.Get("a")
	if !ok || first != int64(1) {
		t.Fatalf("first Get = %v, %v", first, ok)
	}
	second, _ := sctx.Get("a")
	if second != first {
		t.Fatalf("second Get = %v, want %v", second, first)
	}
	if calls != 1 {
		t.Fatalf("lookup called %d times, want 1", calls)
	}
}

func TestContextMissMemoized(t *testing.T) {
	known := false
	sctx := NewContext(0, func(key string) (any, bool) {
		if !known {
			return nil, false
		}
		return "late arrival", true
	})

	if v, ok := sctx.Get("k"); ok || v != Neutral {
		t.Fatalf("Get = %v, %v; want neutral miss", v, ok)
	}

	// The source learns the key mid-run; the snapshot must not.
	known = true
	if v, ok := sctx.Get("k"); ok || v != Neutral {
		t.Fatalf("Get after source change = %v, %v", v, ok)
	}
}

func TestContextAccessedKeys(t *testing.T) {
	sctx := NewContextValues(0, map[string]any{"a": 1, "b": 2})

	sctx.Get("b")
	sctx.Get("a")
	sctx.Get("b")
	sctx.Get("missing")

	want := []string{"b", "a", "missing"}
	if got := sctx.AccessedKeys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("AccessedKeys() = %v, want %v", got, want)
	}

	// The returned slice is a copy.
	sctx.AccessedKeys()[0] = "clobbered"
	if got := sctx.AccessedKeys(); got[0] != "b" {
		t.Fatalf("AccessedKeys()[0] = %q after caller mutation", got[0])
	}
}

func TestContextAccessedKeysEmpty(t *testing.T) {
	sctx := NewContextValues(0, nil)
	if got := sctx.AccessedKeys(); len(got) != 0 {
		t.Fatalf("AccessedKeys() = %v, want empty", got)
	}
}

func TestSanitizeValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want any
	}{
		{"string", "s", "s"},
		{"bool", true, true},
		{"int", int(7), int64(7)},
		{"int32", int32(7), int64(7)},
		{"uint16", uint16(7), int64(7)},
		{"uint64", uint64(7), int64(7)},
		{"float64", 1.5, 1.5},
		{"float32", float32(0.5), float64(0.5)},
		{"nil", nil, nil},
		{"struct", struct{ X int }{1}, Neutral},
		{"slice", []string{"a"}, Neutral},
		{"map", map[string]int{"a": 1}, Neutral},
		{"time", time.Now(), Neutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeValue(tt.in); got != tt.want {
				t.Fatalf("sanitizeValue(%v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}
