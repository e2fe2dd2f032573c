// internal/errors/errors.go
package errors

import (
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// ErrorType represents the type of error
type ErrorType string

const (
	SyntaxError   ErrorType = "SyntaxError"
	TypeError     ErrorType = "TypeError"
	CodegenError  ErrorType = "CodegenError"
	InternalError ErrorType = "InternalError"
	VerifyError   ErrorType = "VerifyError"
	RuntimeError  ErrorType = "RuntimeError"
)

// SourceLocation represents a location in source code
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

func (l SourceLocation) String() string {
	switch {
	case l.File == "" && l.Line == 0:
		return ""
	case l.Column > 0:
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	default:
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	}
}

// CompileError represents an error with source location information
type CompileError struct {
	Type      ErrorType
	Message   string
	Location  SourceLocation
	CallStack []StackFrame
	Source    string // The source line where error occurred
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *CompileError) Error() string {
	var sb strings.Builder

	if loc := e.Location.String(); loc != "" {
		sb.WriteString(loc)
		sb.WriteString(": ")
	}
	sb.WriteString(fmt.Sprintf("%s: %s", e.Type, e.Message))

	if e.Source != "" && e.Location.Line > 0 {
		prefix := fmt.Sprintf("  %d | ", e.Location.Line)
		sb.WriteString("\n" + prefix + e.Source + "\n")
		sb.WriteString(strings.Repeat(" ", len(prefix)))
		if e.Location.Column > 0 {
			sb.WriteString(strings.Repeat(" ", e.Location.Column-1))
		}
		sb.WriteString("^")
	}

	for _, frame := range e.CallStack {
		sb.WriteString(fmt.Sprintf("\n  at %s (%s:%d)", frame.Function, frame.File, frame.Line))
	}

	return sb.String()
}

// New creates a located error of the given type.
func New(typ ErrorType, file string, line, column int, format string, args ...interface{}) *CompileError {
	return &CompileError{
		Type:    typ,
		Message: fmt.Sprintf(format, args...),
		Location: SourceLocation{
			File:   file,
			Line:   line,
			Column: column,
		},
	}
}

// NewSyntaxError creates a new syntax error
func NewSyntaxError(message string, file string, line, column int) *CompileError {
	return New(SyntaxError, file, line, column, "%s", message)
}

// NewRuntimeError creates a new runtime error
func NewRuntimeError(message string, file string, line int) *CompileError {
	return New(RuntimeError, file, line, 0, "%s", message)
}

// Internalf reports a bug in the compiler itself. The returned error
// carries the Go stack of the call site.
func Internalf(format string, args ...interface{}) error {
	return pkgerrors.WithStack(&CompileError{
		Type:    InternalError,
		Message: fmt.Sprintf(format, args...),
	})
}

// WrapInternal marks err as an internal compiler error.
func WrapInternal(err error, message string) error {
	if err == nil {
		return nil
	}
	return Internalf("%s: %v", message, err)
}

// RecoverInternal stores a panicking internal error in *errp. It must be
// deferred directly. Any other panic is re-raised.
func RecoverInternal(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if err, ok := r.(error); ok && IsInternal(err) {
		*errp = err
		return
	}
	panic(r)
}

// As returns the CompileError in err's chain, if any.
func As(err error) (*CompileError, bool) {
	var ce *CompileError
	if pkgerrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsInternal reports whether err is an internal compiler error.
func IsInternal(err error) bool {
	ce, ok := As(err)
	return ok && ce.Type == InternalError
}

// WithSource adds source code context to the error
func (e *CompileError) WithSource(source string) *CompileError {
	e.Source = source
	return e
}

// AddStackFrame adds a single stack frame
func (e *CompileError) AddStackFrame(function, file string, line int) *CompileError {
	e.CallStack = append(e.CallStack, StackFrame{
		Function: function,
		File:     file,
		Line:     line,
	})
	return e
}

// List aggregates recoverable diagnostics of one compilation.
type List []*CompileError

func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	msgs := make([]string, len(l))
	for i, e := range l {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d errors:\n%s", len(l), strings.Join(msgs, "\n"))
}

// Err returns nil for an empty list.
func (l List) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}
