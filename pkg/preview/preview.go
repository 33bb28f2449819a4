// Package preview re-runs a widget script as its inputs change and fans the
// results out to editor clients. It is the reference caller of the script
// sandbox: debouncing, result staleness, and data subscriptions live here,
// because the sandbox itself does not track call identity.
package preview

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dudeperfectdwag/widgetcraft/pkg/datasource"
	"github.com/dudeperfectdwag/widgetcraft/pkg/script"
)

// DefaultDebounce is the trailing-edge delay between a change and the re-run
// it schedules. Keystrokes and bursty data changes coalesce into one run.
const DefaultDebounce = 250 * time.Millisecond

// Update is one applied preview run, as delivered to callbacks and broadcast
// to clients.
type Update struct {
	// Seq is the run's sequence number. Sequences increase monotonically;
	// consumers can discard anything older than what they already hold.
	Seq uint64 `json:"seq"`

	// Result is the sandbox outcome, success or classified failure.
	Result script.Result `json:"result"`

	// Keys lists the data keys the run accessed, in first-access order.
	Keys []string `json:"keys,omitempty"`
}

// Service owns one script source, one runtime and one data provider, and
// keeps the newest execution result current as either side changes.
type Service struct {
	runtime  *script.Runtime
	provider datasource.Provider
	logger   *slog.Logger
	debounce time.Duration
	onUpdate func(Update)

	// seq is assigned when a run starts; applied tracks the newest run
	// whose result was accepted. A run whose seq is older than applied is
	// discarded, so a slow stale run can never overwrite a fresh result.
	seq atomic.Uint64

	runMu sync.Mutex // serializes script execution

	mu      sync.Mutex
	source  string
	applied uint64
	last    *Update
	timer   *time.Timer
	unsub   func()
	keys    map[string]struct{}
	closed  bool
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithDebounce sets the delay between a change and the scheduled re-run.
func WithDebounce(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithOnUpdate registers a callback invoked after every applied run. The
// callback runs on the service's run goroutine and should hand off quickly.
func WithOnUpdate(fn func(Update)) ServiceOption {
	return func(s *Service) { s.onUpdate = fn }
}

// WithServiceLogger replaces the service logger.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService builds a preview service over a runtime and a provider.
func NewService(runtime *script.Runtime, provider datasource.Provider, opts ...ServiceOption) *Service {
	s := &Service{
		runtime:  runtime,
		provider: provider,
		logger:   slog.Default(),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes to the provider. Data changes schedule re-runs; before the
// first completed run every key is considered relevant, afterwards only the
// keys the newest applied run actually read.
func (s *Service) Start() {
	if s.provider == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.unsub != nil {
		return
	}
	s.unsub = s.provider.Subscribe(s.onDataChange)
}

// Stop cancels the pending run, drops the provider subscription and marks
// the service closed. A run already in flight finishes but its result is not
// applied.
func (s *Service) Stop() {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	unsub := s.unsub
	s.unsub = nil
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// SetScript replaces the current source and schedules a re-run.
func (s *Service) SetScript(source string) {
	s.mu.Lock()
	s.source = source
	s.mu.Unlock()
	s.schedule()
}

// Last returns the newest applied update, or nil before the first run.
func (s *Service) Last() *Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	cp := *s.last
	return &cp
}

// onDataChange is the provider subscription handler.
func (s *Service) onDataChange(key string) {
	s.mu.Lock()
	relevant := s.keys == nil
	if !relevant {
		_, relevant = s.keys[key]
	}
	s.mu.Unlock()
	if relevant {
		s.schedule()
	}
}

// schedule arms the trailing-edge debounce timer.
func (s *Service) schedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.run)
}

// run executes the current source once and applies the result if it is still
// the newest.
func (s *Service) run() {
	seq := s.seq.Add(1)

	s.runMu.Lock()
	defer s.runMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	source := s.source
	provider := s.provider
	s.mu.Unlock()

	sctx := datasource.Live(provider, time.Now().UnixMilli())
	res := s.runtime.Run(context.Background(), source, sctx, nil)
	keys := sctx.AccessedKeys()

	s.mu.Lock()
	if s.closed || seq < s.applied {
		stale := seq < s.applied
		s.mu.Unlock()
		if stale {
			s.logger.Debug("preview run discarded as stale", "seq", seq)
		}
		return
	}
	s.applied = seq
	keySet := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		keySet[k] = struct{}{}
	}
	s.keys = keySet
	u := Update{Seq: seq, Result: res, Keys: keys}
	s.last = &u
	onUpdate := s.onUpdate
	s.mu.Unlock()

	s.logger.Debug("preview run applied", "seq", seq, "ok", res.OK, "keys", len(keys))
	if onUpdate != nil {
		onUpdate(u)
	}
}
