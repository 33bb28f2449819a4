package script

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dop251/goja"
)

// ErrorKind is the closed classification of script failures. Every failed run
// maps to exactly one kind.
type ErrorKind string

const (
	// SyntaxError: the source failed to compile, or was too large to accept.
	SyntaxError ErrorKind = "SyntaxError"

	// RuntimeError: execution threw an exception or exhausted the call stack.
	RuntimeError ErrorKind = "RuntimeError"

	// TimeoutError: the run was interrupted by the time budget or by caller
	// cancellation.
	TimeoutError ErrorKind = "TimeoutError"

	// GlobalAccessError: the script referenced a global outside the allowed
	// surface, or used a disabled escape route such as the Function
	// constructor.
	GlobalAccessError ErrorKind = "GlobalAccessError"

	// OutputValidationError: the run completed but its return value does not
	// match the output schema, or exceeds the output size limit.
	OutputValidationError ErrorKind = "OutputValidationError"
)

// Error is a classified script failure carried in Result. Line is 1-based in
// the user's source and 0 when no position is known.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Line    int       `json:"line,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s at line %d: %s", e.Kind, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// poisonedConstructorMessage is thrown by the hardening prologue when a script
// reaches the Function constructor through an object's prototype chain.
const poisonedConstructorMessage = "Function constructor is disabled"

// compileLineRe matches the "Line N:M" position in goja compiler errors.
var compileLineRe = regexp.MustCompile(`Line (\d+):\d+`)

// stackLineRe matches "widget.js:N:M" positions in exception stacks. Using the
// chunk name keeps the match away from user strings that happen to contain
// colon-separated digits.
var stackLineRe = regexp.MustCompile(regexp.QuoteMeta(sourceName) + `:(\d+):\d+`)

// classifyCompileError maps a goja compilation failure to a SyntaxError with
// the line adjusted back into user-source coordinates.
func classifyCompileError(err error, sourceLines int) *Error {
	msg := err.Error()
	line := 0
	if m := compileLineRe.FindStringSubmatch(msg); m != nil {
		n, _ := strconv.Atoi(m[1])
		line = adjustLine(n, sourceLines)
	}
	return &Error{Kind: SyntaxError, Message: firstLine(msg), Line: line}
}

// classifyRunError maps an execution failure to its ErrorKind. Interrupts are
// timeouts, unresolved globals and poisoned escape routes are global-access
// violations, everything else thrown is a runtime error.
func classifyRunError(err error, sourceLines int) *Error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		msg := interruptBudget
		if s, ok := interrupted.Value().(string); ok && s != "" {
			msg = s
		}
		return &Error{Kind: TimeoutError, Message: msg}
	}

	var overflow *goja.StackOverflowError
	if errors.As(err, &overflow) {
		return &Error{Kind: RuntimeError, Message: "maximum call stack size exceeded"}
	}

	var ex *goja.Exception
	if errors.As(err, &ex) {
		msg := exceptionMessage(ex)
		line := adjustLine(extractStackLine(ex.String()), sourceLines)
		if isGlobalAccess(msg) {
			return &Error{Kind: GlobalAccessError, Message: msg, Line: line}
		}
		return &Error{Kind: RuntimeError, Message: msg, Line: line}
	}

	return &Error{Kind: RuntimeError, Message: err.Error()}
}

// exceptionMessage renders the thrown value: "Error: boom" for error objects,
// the display string for anything else (throw 'text', throw 42).
func exceptionMessage(ex *goja.Exception) string {
	v := ex.Value()
	if v == nil {
		return firstLine(ex.Error())
	}
	return firstLine(v.String())
}

// isGlobalAccess reports whether a thrown message indicates a reference to a
// global outside the allowed surface.
func isGlobalAccess(msg string) bool {
	if strings.HasPrefix(msg, "ReferenceError:") && strings.Contains(msg, "is not defined") {
		return true
	}
	return strings.Contains(msg, poisonedConstructorMessage)
}

// extractStackLine pulls the innermost script position out of an exception's
// formatted stack. Returns 0 if the stack has no position in the script.
func extractStackLine(stack string) int {
	m := stackLineRe.FindStringSubmatch(stack)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// adjustLine converts a wrapped-source line back to user-source coordinates
// and clamps it into the valid range.
func adjustLine(line, sourceLines int) int {
	if line <= 0 {
		return 0
	}
	line -= wrapperLineOffset
	if line < 1 {
		line = 1
	}
	if sourceLines > 0 && line > sourceLines {
		line = sourceLines
	}
	return line
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
