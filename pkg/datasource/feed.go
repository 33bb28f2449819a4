package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/itchyny/gojq"
	"gopkg.in/yaml.v3"
)

// FieldRule wraps a jq expression with its pre-parsed query. The expression
// is parsed during deserialization to catch errors early and avoid repeated
// parsing at read time.
type FieldRule struct {
	Expr  string      // original expression string
	Query *gojq.Query // pre-parsed query (not serialized)
}

// ParseFieldRule parses expr into a rule.
func ParseFieldRule(expr string) (FieldRule, error) {
	if expr == "" {
		return FieldRule{}, nil
	}
	query, err := gojq.Parse(expr)
	if err != nil {
		return FieldRule{}, fmt.Errorf("invalid jq expression %q: %w", expr, err)
	}
	return FieldRule{Expr: expr, Query: query}, nil
}

// MarshalJSON implements json.Marshaler.
func (r FieldRule) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Expr)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *FieldRule) UnmarshalJSON(data []byte) error {
	var expr string
	if err := json.Unmarshal(data, &expr); err != nil {
		return err
	}
	rule, err := ParseFieldRule(expr)
	if err != nil {
		return err
	}
	*r = rule
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (r FieldRule) MarshalYAML() (any, error) {
	return r.Expr, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *FieldRule) UnmarshalYAML(node *yaml.Node) error {
	var expr string
	if err := node.Decode(&expr); err != nil {
		return err
	}
	rule, err := ParseFieldRule(expr)
	if err != nil {
		return err
	}
	*r = rule
	return nil
}

// Eval runs the rule against input and returns the first result.
func (r *FieldRule) Eval(input any) (any, error) {
	if r == nil || r.Query == nil {
		return nil, errors.New("empty field rule")
	}
	iter := r.Query.Run(input)
	v, ok := iter.Next()
	if !ok {
		return nil, errors.New("expression returned no result")
	}
	if err, ok := v.(error); ok {
		return nil, fmt.Errorf("jq error: %w", err)
	}
	return v, nil
}

// Feed serves fields extracted from a JSON document by named jq rules. The
// document can be set inline or loaded from a file; file-backed feeds reload
// on filesystem changes when Watch runs.
type Feed struct {
	subscribers

	logger *slog.Logger

	mu    sync.RWMutex
	doc   any
	path  string
	rules map[string]FieldRule
}

// FeedOption configures a Feed.
type FeedOption func(*Feed)

// WithFeedLogger replaces the feed's logger.
func WithFeedLogger(logger *slog.Logger) FeedOption {
	return func(f *Feed) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFeed builds a feed with the given field rules and no document.
func NewFeed(rules map[string]FieldRule, opts ...FeedOption) *Feed {
	copied := make(map[string]FieldRule, len(rules))
	for k, r := range rules {
		copied[k] = r
	}
	f := &Feed{rules: copied, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SetDocument replaces the document and notifies every field.
func (f *Feed) SetDocument(doc any) {
	f.mu.Lock()
	f.doc = doc
	keys := f.ruleKeys()
	f.mu.Unlock()
	for _, key := range keys {
		f.notify(key)
	}
}

// LoadFile parses path as JSON, installs it as the document and notifies
// every field. The path is remembered for Watch.
func (f *Feed) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read feed: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse feed %s: %w", path, err)
	}
	f.mu.Lock()
	f.doc = doc
	f.path = path
	keys := f.ruleKeys()
	f.mu.Unlock()
	for _, key := range keys {
		f.notify(key)
	}
	return nil
}

// ruleKeys returns the rule names. Callers hold f.mu.
func (f *Feed) ruleKeys() []string {
	keys := make([]string, 0, len(f.rules))
	for k := range f.rules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Eval extracts one field from the current document. Unknown fields return
// ErrNoSuchField.
func (f *Feed) Eval(key string) (any, error) {
	f.mu.RLock()
	rule, ok := f.rules[key]
	doc := f.doc
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("field %q: %w", key, ErrNoSuchField)
	}
	v, err := rule.Eval(doc)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", key, err)
	}
	return v, nil
}

// GetValue implements Provider. Extraction failures read as misses.
func (f *Feed) GetValue(key string) (any, bool) {
	v, err := f.Eval(key)
	if err != nil {
		return nil, false
	}
	return v, true
}

// Keys implements Provider.
func (f *Feed) Keys() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.ruleKeys()
}

// Watch reloads the backing file whenever it changes, until ctx is done.
// The parent directory is watched so atomic save-and-rename editors are
// caught too. Reload failures are logged and skipped; a later event retries.
func (f *Feed) Watch(ctx context.Context) error {
	f.mu.RLock()
	path := f.path
	f.mu.RUnlock()
	if path == "" {
		return errors.New("datasource: feed is not file-backed")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if err := f.LoadFile(path); err != nil {
				f.logger.Warn("feed reload failed", "path", path, "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.logger.Warn("feed watch error", "path", path, "error", err)
		}
	}
}
