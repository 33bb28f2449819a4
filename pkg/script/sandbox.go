package script

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
)

// sourceName is the chunk name scripts compile under. It shows up in compile
// errors and stack traces, and the error classifier keys line extraction on it.
const sourceName = "widget.js"

// wrapperLineOffset is the number of lines the wrapper inserts before user
// source: the function header and the strict-mode pragma.
const wrapperLineOffset = 2

// hardenJS poisons the Function-constructor escape route, then freezes the
// intrinsic prototypes so one part of a script cannot pollute what another
// part observes. Runs once per VM before anything else.
const hardenJS = `(function() {
	try {
		Object.defineProperty(Function.prototype, 'constructor', {
			value: function() { throw new TypeError('Function constructor is disabled'); },
			writable: false,
			configurable: false
		});
	} catch (e) {}
	var roots = [Object.prototype, Array.prototype, String.prototype,
		Number.prototype, Boolean.prototype, Date.prototype,
		RegExp.prototype, Error.prototype, Function.prototype];
	for (var i = 0; i < roots.length; i++) {
		try { Object.freeze(roots[i]); } catch (e) {}
	}
})();`

// restrictJS evaluates to a function that deletes every own global property
// outside the allow set. It captures what it needs up front so it keeps
// working even when the allow set excludes Object itself. Non-configurable
// values (undefined, NaN, Infinity) survive deletion, which is exactly the
// base value surface.
const restrictJS = `(function(allow) {
	var has = Object.prototype.hasOwnProperty;
	var names = Object.getOwnPropertyNames(this);
	for (var i = 0; i < names.length; i++) {
		var name = names[i];
		if (has.call(allow, name)) {
			continue;
		}
		try { delete this[name]; } catch (e) {}
	}
})`

// Prologues are compiled once; goja programs are immutable and safe to run on
// any number of VMs.
var (
	hardenProg   = goja.MustCompile("harden.js", hardenJS, false)
	restrictProg = goja.MustCompile("restrict.js", restrictJS, false)
)

// execute runs one script in a fresh VM. The VM, its budget timer and its
// cancellation watcher are all torn down before returning, so nothing leaks
// across calls and concurrent calls never share state.
func (r *Runtime) execute(ctx context.Context, source string, sctx *Context, opts Options) (res Result) {
	start := time.Now()
	sourceLines := strings.Count(source, "\n") + 1
	logs := newConsoleLog(opts.MaxLogEntries)

	defer func() {
		if rec := recover(); rec != nil {
			res = failure(&Error{Kind: RuntimeError, Message: fmt.Sprintf("internal execution fault: %v", rec)})
		}
		res.ElapsedMS = time.Since(start).Milliseconds()
		res.Logs = logs.snapshot()
	}()

	if len(source) > opts.MaxSourceBytes {
		return failure(&Error{
			Kind:    SyntaxError,
			Message: fmt.Sprintf("source size %d exceeds the %d byte limit", len(source), opts.MaxSourceBytes),
		})
	}

	program, err := compileWrapped(source)
	if err != nil {
		return failure(classifyCompileError(err, sourceLines))
	}

	vm := goja.New()
	vm.SetMaxCallStackSize(opts.MaxCallStack)
	if err := prepareVM(vm, &opts, logs); err != nil {
		return failure(&Error{Kind: RuntimeError, Message: fmt.Sprintf("sandbox setup failed: %v", err)})
	}

	g := startGovernor(ctx, vm, opts.MaxExecution)
	defer g.stop(vm)

	value, err := callWrapped(vm, program, sctx)
	if err != nil {
		return failure(classifyRunError(err, sourceLines))
	}
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return failure(outputErrorf("script returned no value; return an output literal such as { type: 'text', value: '...' }"))
	}

	out, oerr := normalizeOutput(value.Export(), opts.MaxOutputBytes)
	if oerr != nil {
		return failure(oerr)
	}
	return Result{OK: true, Output: out}
}

// compileWrapped compiles the user source as the body of a strict anonymous
// function whose single parameter is the context object. Wrapping makes plain
// `return {...}` sources valid and keeps user bindings out of global scope.
func compileWrapped(source string) (*goja.Program, error) {
	var b strings.Builder
	b.Grow(len(source) + 32)
	b.WriteString("(function(context) {\n\"use strict\";\n")
	b.WriteString(source)
	b.WriteString("\n})")
	return goja.Compile(sourceName, b.String(), false)
}

// prepareVM hardens a fresh VM and strips its global surface down to the
// policy's allow set, then binds console capture when the policy permits it.
func prepareVM(vm *goja.Runtime, opts *Options, logs *consoleLog) error {
	if _, err := vm.RunProgram(hardenProg); err != nil {
		return fmt.Errorf("harden: %w", err)
	}

	allow := opts.globalAllowSet()
	allowObj := vm.NewObject()
	for name := range allow {
		if err := allowObj.Set(name, vm.ToValue(true)); err != nil {
			return fmt.Errorf("allow set: %w", err)
		}
	}

	restrictVal, err := vm.RunProgram(restrictProg)
	if err != nil {
		return fmt.Errorf("restrict: %w", err)
	}
	restrict, ok := goja.AssertFunction(restrictVal)
	if !ok {
		return fmt.Errorf("restrict prologue did not evaluate to a function")
	}
	if _, err := restrict(vm.GlobalObject(), allowObj); err != nil {
		return fmt.Errorf("restrict globals: %w", err)
	}

	if allow["console"] {
		if err := logs.bind(vm); err != nil {
			return fmt.Errorf("bind console: %w", err)
		}
	}
	return nil
}

// callWrapped evaluates the wrapped source and invokes the resulting function
// with the context object as its single argument.
func callWrapped(vm *goja.Runtime, program *goja.Program, sctx *Context) (goja.Value, error) {
	fnVal, err := vm.RunProgram(program)
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return nil, fmt.Errorf("script did not evaluate to a callable body")
	}
	return fn(goja.Undefined(), contextObject(vm, sctx))
}

// contextObject exposes a Context to the VM as an object with a read-only
// numeric now and a get function. Properties are defined non-writable and
// non-configurable, so scripts cannot swap them mid-run.
func contextObject(vm *goja.Runtime, sctx *Context) goja.Value {
	if sctx == nil {
		sctx = NewContextValues(0, nil)
	}
	get := func(call goja.FunctionCall) goja.Value {
		key := call.Argument(0).String()
		v, _ := sctx.Get(key)
		return vm.ToValue(v)
	}
	obj := vm.NewObject()
	_ = obj.DefineDataProperty("now", vm.ToValue(sctx.Now()), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_TRUE)
	_ = obj.DefineDataProperty("get", vm.ToValue(get), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_TRUE)
	return obj
}
