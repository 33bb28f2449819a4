package script

import (
	"context"
	"time"

	"github.com/dop251/goja"
)

// Interrupt payloads. They surface verbatim as TimeoutError messages, which
// is how callers tell a blown budget from their own cancellation.
const (
	interruptBudget   = "execution time budget exceeded"
	interruptCanceled = "execution canceled by caller"
)

// governor enforces the wall-clock budget and caller cancellation for one VM.
// Interrupt halts the VM at its next instruction boundary, so hostile loops
// terminate without any cooperation from the script.
type governor struct {
	timer *time.Timer
	done  chan struct{}
}

// startGovernor arms the budget timer and, when the caller's context can be
// canceled, a watcher goroutine. stop must run on every exit path.
func startGovernor(ctx context.Context, vm *goja.Runtime, budget time.Duration) *governor {
	g := &governor{done: make(chan struct{})}
	g.timer = time.AfterFunc(budget, func() {
		vm.Interrupt(interruptBudget)
	})
	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				vm.Interrupt(interruptCanceled)
			case <-g.done:
			}
		}()
	}
	return g
}

// stop releases the timer and watcher, then clears any interrupt that fired
// between the run finishing and the timer being stopped.
func (g *governor) stop(vm *goja.Runtime) {
	g.timer.Stop()
	close(g.done)
	vm.ClearInterrupt()
}
