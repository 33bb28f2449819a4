package script

import "time"

// Defaults applied by DefaultOptions and by Run for zero-valued fields.
const (
	DefaultMaxExecution   = 5 * time.Second
	DefaultMaxCallStack   = 500
	DefaultMaxSourceBytes = 256 * 1024
	DefaultMaxOutputBytes = 64 * 1024
	DefaultMaxLogEntries  = 100
)

// Options bounds a single script execution: the wall-clock budget, the global
// surface the script may touch, and the size limits. An Options value is read
// once per run and never mutated, so the same value can serve concurrent runs.
type Options struct {
	// MaxExecution is the hard wall-clock budget for one run. The script is
	// interrupted mid-instruction when it expires; no cooperation needed.
	MaxExecution time.Duration

	// AllowedGlobals lists the global names scripts may reference. A nil
	// slice means the default surface; an empty non-nil slice means no
	// configurable globals at all.
	AllowedGlobals []string

	// ForbiddenGlobals lists names removed from the sandbox even when they
	// also appear in AllowedGlobals. Deny wins.
	ForbiddenGlobals []string

	// MaxCallStack bounds JS call depth. Exceeding it is a RuntimeError.
	MaxCallStack int

	// MaxSourceBytes rejects oversized sources before compilation.
	MaxSourceBytes int

	// MaxOutputBytes bounds the total rendered size of a validated output.
	MaxOutputBytes int

	// MaxLogEntries caps captured console lines per run. Only relevant when
	// "console" is in the allowed surface.
	MaxLogEntries int
}

// DefaultOptions returns the standard execution policy: a 5 second budget and
// the core value/formatting globals with browser, network and code-injection
// surfaces forbidden.
func DefaultOptions() Options {
	return Options{
		MaxExecution:     DefaultMaxExecution,
		AllowedGlobals:   defaultAllowedGlobals(),
		ForbiddenGlobals: defaultForbiddenGlobals(),
		MaxCallStack:     DefaultMaxCallStack,
		MaxSourceBytes:   DefaultMaxSourceBytes,
		MaxOutputBytes:   DefaultMaxOutputBytes,
		MaxLogEntries:    DefaultMaxLogEntries,
	}
}

func defaultAllowedGlobals() []string {
	return []string{"Math", "Date", "String", "Number", "Array", "Object", "JSON"}
}

func defaultForbiddenGlobals() []string {
	return []string{"window", "document", "fetch", "XMLHttpRequest", "eval", "Function"}
}

// baseGlobals are reachable regardless of the allow list unless explicitly
// forbidden. The error constructors let scripts throw and inspect errors; the
// value constants cannot be deleted from the VM anyway. None grant any
// capability beyond pure computation.
var baseGlobals = []string{
	"Error", "TypeError", "RangeError", "ReferenceError",
	"SyntaxError", "EvalError", "URIError",
	"undefined", "NaN", "Infinity",
}

// withDefaults returns a copy of o with zero-valued fields replaced by the
// documented defaults.
func (o Options) withDefaults() Options {
	if o.MaxExecution <= 0 {
		o.MaxExecution = DefaultMaxExecution
	}
	if o.AllowedGlobals == nil {
		o.AllowedGlobals = defaultAllowedGlobals()
	}
	if o.ForbiddenGlobals == nil {
		o.ForbiddenGlobals = defaultForbiddenGlobals()
	}
	if o.MaxCallStack <= 0 {
		o.MaxCallStack = DefaultMaxCallStack
	}
	if o.MaxSourceBytes <= 0 {
		o.MaxSourceBytes = DefaultMaxSourceBytes
	}
	if o.MaxOutputBytes <= 0 {
		o.MaxOutputBytes = DefaultMaxOutputBytes
	}
	if o.MaxLogEntries <= 0 {
		o.MaxLogEntries = DefaultMaxLogEntries
	}
	return o
}

// globalAllowSet computes the effective allow set: allowed plus the base
// surface, minus every forbidden name.
func (o *Options) globalAllowSet() map[string]bool {
	allow := make(map[string]bool, len(o.AllowedGlobals)+len(baseGlobals))
	for _, name := range o.AllowedGlobals {
		allow[name] = true
	}
	for _, name := range baseGlobals {
		allow[name] = true
	}
	for _, name := range o.ForbiddenGlobals {
		delete(allow, name)
	}
	return allow
}
