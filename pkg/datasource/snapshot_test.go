package datasource_test

import (
	"reflect"
	"testing"

	"github.com/dudeperfectdwag/widgetcraft/pkg/datasource"
)

func TestSnapshotIsEager(t *testing.T) {
	s := datasource.NewStatic(map[string]any{"battery.pct": 80})
	sctx := datasource.Snapshot(s, 1234)

	s.Set("battery.pct", 10)

	if sctx.Now() != 1234 {
		t.Fatalf("Now() = %d", sctx.Now())
	}
	if v, ok := sctx.Get("battery.pct"); !ok || v != int64(80) {
		t.Fatalf("Get = %v, %v; want the value at snapshot time", v, ok)
	}
}

func TestLiveReadsOnAccess(t *testing.T) {
	s := datasource.NewStatic(map[string]any{"battery.pct": 80})
	sctx := datasource.Live(s, 1234)

	// Not read yet, so the context sees the later value on first access.
	s.Set("battery.pct", 75)
	if v, _ := sctx.Get("battery.pct"); v != int64(75) {
		t.Fatalf("first Get = %v", v)
	}

	// Pinned after first access.
	s.Set("battery.pct", 60)
	if v, _ := sctx.Get("battery.pct"); v != int64(75) {
		t.Fatalf("second Get = %v, want pinned value", v)
	}

	if got := sctx.AccessedKeys(); !reflect.DeepEqual(got, []string{"battery.pct"}) {
		t.Fatalf("AccessedKeys() = %v", got)
	}
}

func TestSnapshotNilProvider(t *testing.T) {
	sctx := datasource.Snapshot(nil, 7)
	if sctx.Now() != 7 {
		t.Fatalf("Now() = %d", sctx.Now())
	}
	if v, ok := sctx.Get("anything"); ok || v != "" {
		t.Fatalf("Get = %v, %v", v, ok)
	}
}
