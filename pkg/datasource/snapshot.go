package datasource

import (
	"github.com/dudeperfectdwag/widgetcraft/pkg/script"
)

// Snapshot eagerly copies every key the provider currently serves into an
// immutable script context fixed at now (Unix milliseconds).
func Snapshot(p Provider, now int64) *script.Context {
	values := make(map[string]any)
	if p != nil {
		for _, key := range p.Keys() {
			if v, ok := p.GetValue(key); ok {
				values[key] = v
			}
		}
	}
	return script.NewContextValues(now, values)
}

// Live builds a context that reads each key from the provider on first
// access and pins what it saw for the rest of the run. Cheaper than Snapshot
// for providers with many keys, and it records exactly which keys the script
// touched.
func Live(p Provider, now int64) *script.Context {
	if p == nil {
		return script.NewContextValues(now, nil)
	}
	return script.NewContext(now, p.GetValue)
}
