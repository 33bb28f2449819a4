package script

import (
	"strings"
	"sync"

	"github.com/dop251/goja"
)

// consoleLog captures script console output for one run, with a hard cap on
// the number of entries.
type consoleLog struct {
	mu      sync.Mutex
	max     int
	lines   []string
	dropped bool
}

func newConsoleLog(max int) *consoleLog {
	return &consoleLog{max: max}
}

// bind installs a console object on the VM with the usual level methods, all
// writing into the capture buffer. Only called when the policy allows
// "console".
func (c *consoleLog) bind(vm *goja.Runtime) error {
	obj := vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		fn := func(call goja.FunctionCall) goja.Value {
			c.add(level, call.Arguments)
			return goja.Undefined()
		}
		if err := obj.Set(level, fn); err != nil {
			return err
		}
	}
	return vm.Set("console", obj)
}

func (c *consoleLog) add(level string, args []goja.Value) {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, a.String())
	}
	line := level + ": " + strings.Join(parts, " ")

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.lines) >= c.max {
		c.dropped = true
		return
	}
	c.lines = append(c.lines, line)
}

// snapshot returns the captured lines, with a trailing marker when output was
// dropped at the cap.
func (c *consoleLog) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.lines) == 0 {
		return nil
	}
	out := make([]string, len(c.lines), len(c.lines)+1)
	copy(out, c.lines)
	if c.dropped {
		out = append(out, "console: further output dropped")
	}
	return out
}
