package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dudeperfectdwag/widgetcraft/pkg/cli"
	"github.com/dudeperfectdwag/widgetcraft/pkg/datasource"
	"github.com/dudeperfectdwag/widgetcraft/pkg/script"
	"github.com/dudeperfectdwag/widgetcraft/pkg/widget"
)

// workspace bundles the collaborators a command needs to execute scripts:
// the data provider stack and the handles required to keep it live.
type workspace struct {
	provider datasource.Provider
	clock    *datasource.Clock
	feed     *datasource.Feed // nil when the context has no feed rules
}

// loadRules reads a YAML file mapping field names to jq expressions.
func loadRules(path string) (map[string]datasource.FieldRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	rules := make(map[string]datasource.FieldRule)
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return rules, nil
}

// buildWorkspace assembles the provider stack for the selected context:
// clock fields always, feed fields when the context configures rules, and
// inline values on top of everything else.
func buildWorkspace(cctx *cli.Context, inline map[string]any) (*workspace, error) {
	mux := datasource.NewMux()

	clock := datasource.NewClock()
	mux.Mount("time.", clock)
	mux.Mount("date.", clock)

	var feed *datasource.Feed
	if cctx != nil && cctx.Rules != "" {
		rules, err := loadRules(cctx.Rules)
		if err != nil {
			return nil, err
		}
		feed = datasource.NewFeed(rules)
		if cctx.Feed != "" {
			if err := feed.LoadFile(cctx.Feed); err != nil {
				return nil, err
			}
		}
		// Exact-key mounts so feed fields win over the static fallback.
		for name := range rules {
			mux.Mount(name, feed)
		}
	}

	if len(inline) > 0 {
		st := datasource.NewStatic(inline)
		mux.Mount("", st)
		for k := range inline {
			mux.Mount(k, st)
		}
	}

	return &workspace{provider: mux, clock: clock, feed: feed}, nil
}

// scriptOptions derives execution options from the context and per-command
// overrides. A zero timeout means the default budget.
func scriptOptions(cctx *cli.Context, timeoutMS int, allow, forbid []string, console bool) *script.Options {
	opts := script.DefaultOptions()
	if cctx != nil && cctx.TimeoutMS > 0 {
		opts.MaxExecution = time.Duration(cctx.TimeoutMS) * time.Millisecond
	}
	if timeoutMS > 0 {
		opts.MaxExecution = time.Duration(timeoutMS) * time.Millisecond
	}
	if len(allow) > 0 {
		opts.AllowedGlobals = allow
	}
	if len(forbid) > 0 {
		opts.ForbiddenGlobals = append(opts.ForbiddenGlobals, forbid...)
	}
	if console {
		opts.AllowedGlobals = append(opts.AllowedGlobals, "console")
	}
	return &opts
}

// openStore opens the widget store for the selected context. The default
// location is ~/.widgetcraft/data.
func openStore(cctx *cli.Context) (widget.Store, error) {
	dir := ""
	if cctx != nil {
		dir = cctx.DataDir
	}
	if dir == "" {
		paths, err := cli.NewPaths()
		if err != nil {
			return nil, err
		}
		if err := paths.EnsureDataDir(); err != nil {
			return nil, err
		}
		dir = paths.DataDir()
	}
	return widget.OpenBadger(widget.BadgerOptions{Dir: dir})
}

// parseSetValues converts --set key=value pairs into typed inline data.
// Values that parse as booleans or numbers become typed; everything else
// stays a string.
func parseSetValues(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	values := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set value %q (want key=value)", pair)
		}
		values[key] = coerceScalar(raw)
	}
	return values, nil
}

func coerceScalar(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
