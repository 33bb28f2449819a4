// Package script compiles and executes untrusted widget scripts in a hardened
// JavaScript sandbox. A script is the body of a function receiving a single
// read-only context argument; it computes the widget's content and returns a
// tagged output literal (text, list or shape). Every run is bounded by a hard
// wall-clock budget and a restricted global surface, and every failure is
// classified and returned as data, never thrown.
package script

import (
	"context"
	"log/slog"
	"time"
)

// Runtime executes scripts under a shared default policy. A Runtime holds no
// per-run state: every call builds a fresh VM, so one Runtime serves
// concurrent Run calls and unbounded call volume without leaking memory,
// timers or goroutines between runs.
type Runtime struct {
	opts   Options
	logger *slog.Logger
}

// Option is a functional option for configuring a Runtime.
type Option func(*Runtime)

// WithOptions replaces the runtime's default execution options.
func WithOptions(opts Options) Option {
	return func(r *Runtime) { r.opts = opts }
}

// WithMaxExecution sets the default wall-clock budget per run.
func WithMaxExecution(d time.Duration) Option {
	return func(r *Runtime) { r.opts.MaxExecution = d }
}

// WithAllowedGlobals sets the default allow list.
func WithAllowedGlobals(names ...string) Option {
	return func(r *Runtime) { r.opts.AllowedGlobals = names }
}

// WithForbiddenGlobals sets the default deny list. Denied names win over
// allowed ones.
func WithForbiddenGlobals(names ...string) Option {
	return func(r *Runtime) { r.opts.ForbiddenGlobals = names }
}

// WithConsole adds console to the allowed surface so scripts can emit capped
// log lines into Result.Logs.
func WithConsole() Option {
	return func(r *Runtime) {
		if r.opts.AllowedGlobals == nil {
			r.opts.AllowedGlobals = defaultAllowedGlobals()
		}
		r.opts.AllowedGlobals = append(r.opts.AllowedGlobals, "console")
	}
}

// WithLogger sets the logger for per-run debug records.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Runtime with the default execution policy.
func New(options ...Option) *Runtime {
	r := &Runtime{
		opts:   DefaultOptions(),
		logger: slog.Default(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Run executes source against the context snapshot under opts. A nil opts
// uses the runtime's defaults; a non-nil opts overrides them completely, with
// zero-valued fields falling back to the documented defaults. A nil ctx is
// treated as context.Background; cancellation interrupts the script and is
// reported as a TimeoutError.
//
// Run never panics and never returns a Go error: every failure mode is
// classified in Result.Err.
func (r *Runtime) Run(ctx context.Context, source string, sctx *Context, opts *Options) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	effective := r.opts
	if opts != nil {
		effective = *opts
	}
	effective = effective.withDefaults()

	res := r.execute(ctx, source, sctx, effective)
	if res.OK {
		r.logger.Debug("script run completed",
			"kind", res.Output.Kind, "elapsed_ms", res.ElapsedMS)
	} else {
		r.logger.Debug("script run failed",
			"error_kind", res.Err.Kind, "line", res.Err.Line, "elapsed_ms", res.ElapsedMS)
	}
	return res
}
