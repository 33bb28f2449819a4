package script

import (
	"context"
	"testing"
)

const benchSource = `
var hour = new Date(context.now).getHours();
var title = context.get('music.title');
return { type: 'text', value: String(hour) + ' ' + title };`

func BenchmarkRunText(b *testing.B) {
	rt := New()
	sctx := NewContextValues(1756000000000, map[string]any{"music.title": "So What"})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		res := rt.Run(context.Background(), benchSource, sctx, nil)
		if !res.OK {
			b.Fatalf("run failed: %v", res.Err)
		}
	}
}

func BenchmarkRunList(b *testing.B) {
	rt := New()
	source := `
var items = [];
for (var i = 0; i < 50; i++) {
	items.push({ value: 'item ' + i });
}
return { type: 'list', items: items };`
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		res := rt.Run(context.Background(), source, nil, nil)
		if !res.OK {
			b.Fatalf("run failed: %v", res.Err)
		}
	}
}

func BenchmarkRunParallel(b *testing.B) {
	rt := New()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		sctx := NewContextValues(1756000000000, map[string]any{"music.title": "Freddie Freeloader"})
		for pb.Next() {
			res := rt.Run(context.Background(), benchSource, sctx, nil)
			if !res.OK {
				b.Fatalf("run failed: %v", res.Err)
			}
		}
	})
}

func BenchmarkCompileWrapped(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := compileWrapped(benchSource); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkNormalizeOutput(b *testing.B) {
	exported := map[string]any{
		"type": "list",
		"items": []any{
			map[string]any{"value": "a"},
			map[string]any{"value": int64(2)},
			map[string]any{"value": 3.5},
		},
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := normalizeOutput(exported, DefaultMaxOutputBytes); err != nil {
			b.Fatal(err)
		}
	}
}
