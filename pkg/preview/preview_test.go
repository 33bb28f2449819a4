package preview_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/dudeperfectdwag/widgetcraft/pkg/datasource"
	"github.com/dudeperfectdwag/widgetcraft/pkg/preview"
	"github.com/dudeperfectdwag/widgetcraft/pkg/script"
)

const titleScript = `return {type: "text", value: context.get("music.title")};`

func newService(t *testing.T, src datasource.Provider) (*preview.Service, <-chan preview.Update) {
	t.Helper()
	updates := make(chan preview.Update, 32)
	svc := preview.NewService(script.New(), src,
		preview.WithDebounce(5*time.Millisecond),
		preview.WithOnUpdate(func(u preview.Update) { updates <- u }),
	)
	svc.Start()
	t.Cleanup(svc.Stop)
	return svc, updates
}

func waitUpdate(t *testing.T, updates <-chan preview.Update) preview.Update {
	t.Helper()
	select {
	case u := <-updates:
		return u
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for preview update")
		return preview.Update{}
	}
}

func expectQuiet(t *testing.T, updates <-chan preview.Update, d time.Duration) {
	t.Helper()
	select {
	case u := <-updates:
		t.Fatalf("unexpected update: seq=%d ok=%v", u.Seq, u.Result.OK)
	case <-time.After(d):
	}
}

func TestPreviewRunsOnSetScript(t *testing.T) {
	src := datasource.NewStatic(map[string]any{"music.title": "Blue in Green"})
	svc, updates := newService(t, src)

	svc.SetScript(titleScript)

	u := waitUpdate(t, updates)
	if !u.Result.OK {
		t.Fatalf("run failed: %+v", u.Result.Err)
	}
	if u.Result.Output.Value != "Blue in Green" {
		t.Fatalf("value = %q, want %q", u.Result.Output.Value, "Blue in Green")
	}
	if len(u.Keys) != 1 || u.Keys[0] != "music.title" {
		t.Fatalf("accessed keys = %v, want [music.title]", u.Keys)
	}

	last := svc.Last()
	if last == nil || last.Seq != u.Seq {
		t.Fatalf("Last() = %+v, want seq %d", last, u.Seq)
	}
}

func TestPreviewLastBeforeFirstRun(t *testing.T) {
	svc := preview.NewService(script.New(), datasource.NewStatic(nil))
	if got := svc.Last(); got != nil {
		t.Fatalf("Last() before any run = %+v, want nil", got)
	}
}

func TestPreviewRerunsOnRelevantChange(t *testing.T) {
	src := datasource.NewStatic(map[string]any{
		"music.title":  "Blue in Green",
		"weather.temp": int64(21),
	})
	svc, updates := newService(t, src)

	svc.SetScript(titleScript)
	first := waitUpdate(t, updates)
	if first.Result.Output.Value != "Blue in Green" {
		t.Fatalf("first value = %q", first.Result.Output.Value)
	}

	src.Set("music.title", "So What")
	second := waitUpdate(t, updates)
	if second.Result.Output.Value != "So What" {
		t.Fatalf("second value = %q, want %q", second.Result.Output.Value, "So What")
	}

	// The script never reads weather.temp, so changing it must not re-run.
	src.Set("weather.temp", int64(30))
	expectQuiet(t, updates, 250*time.Millisecond)
}

func TestPreviewDataChangeBeforeScript(t *testing.T) {
	src := datasource.NewStatic(map[string]any{"music.title": "Blue in Green"})
	_, updates := newService(t, src)

	// No script yet: every key counts as relevant, and the empty source
	// produces a validation failure rather than silence.
	src.Set("music.title", "Freddie Freeloader")
	u := waitUpdate(t, updates)
	if u.Result.OK {
		t.Fatalf("empty script ran successfully: %+v", u.Result.Output)
	}
	if u.Result.Err.Kind != script.OutputValidationError {
		t.Fatalf("error kind = %q, want %q", u.Result.Err.Kind, script.OutputValidationError)
	}
}

func TestPreviewDebounceCoalesces(t *testing.T) {
	src := datasource.NewStatic(nil)
	updates := make(chan preview.Update, 32)
	svc := preview.NewService(script.New(), src,
		preview.WithDebounce(80*time.Millisecond),
		preview.WithOnUpdate(func(u preview.Update) { updates <- u }),
	)
	svc.Start()
	t.Cleanup(svc.Stop)

	for i := 1; i <= 5; i++ {
		svc.SetScript(fmt.Sprintf(`return {type: "text", value: "edit %d"};`, i))
	}

	count := 0
	var last preview.Update
	timeout := time.After(600 * time.Millisecond)
collect:
	for {
		select {
		case u := <-updates:
			count++
			last = u
		case <-timeout:
			break collect
		}
	}
	if count != 1 {
		t.Fatalf("got %d updates for a burst of edits, want 1", count)
	}
	if last.Result.Output.Value != "edit 5" {
		t.Fatalf("value = %q, want the final edit", last.Result.Output.Value)
	}
}

func TestPreviewSequencesIncrease(t *testing.T) {
	src := datasource.NewStatic(nil)
	svc, updates := newService(t, src)

	var prev uint64
	for i := 1; i <= 3; i++ {
		svc.SetScript(fmt.Sprintf(`return {type: "text", value: "%d"};`, i))
		u := waitUpdate(t, updates)
		if u.Seq <= prev {
			t.Fatalf("seq %d after %d, want strictly increasing", u.Seq, prev)
		}
		prev = u.Seq
	}
}

func TestPreviewDeliversFailures(t *testing.T) {
	src := datasource.NewStatic(nil)
	svc, updates := newService(t, src)

	svc.SetScript(`return {type:`)
	u := waitUpdate(t, updates)
	if u.Result.OK {
		t.Fatal("broken script reported success")
	}
	if u.Result.Err.Kind != script.SyntaxError {
		t.Fatalf("error kind = %q, want %q", u.Result.Err.Kind, script.SyntaxError)
	}
}

func TestPreviewStop(t *testing.T) {
	src := datasource.NewStatic(map[string]any{"music.title": "Blue in Green"})
	svc, updates := newService(t, src)

	svc.SetScript(titleScript)
	waitUpdate(t, updates)

	svc.Stop()
	svc.SetScript(`return {type: "text", value: "after stop"};`)
	src.Set("music.title", "Flamenco Sketches")
	expectQuiet(t, updates, 200*time.Millisecond)
}
