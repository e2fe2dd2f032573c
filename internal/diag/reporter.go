// Package diag collects recoverable compiler diagnostics and forwards
// them to the tracing channel.
package diag

import (
	"fmt"

	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"

	"github.com/lgtm-migrator/samosac-jvm/internal/errors"
)

// T traces to the global syntax tracer, installing a log-backed tracer
// on first use.
func T() tracing.Trace {
	if gtrace.SyntaxTracer == nil {
		gtrace.SyntaxTracer = gologadapter.New()
	}
	return gtrace.SyntaxTracer
}

// Reporter records the diagnostics of one compilation unit.
type Reporter struct {
	file   string
	lines  []string
	trace  tracing.Trace
	errors errors.List
}

// New returns a reporter for file. A nil trace selects T().
func New(file string, trace tracing.Trace) *Reporter {
	if trace == nil {
		trace = T()
	}
	return &Reporter{file: file, trace: trace}
}

// WithSource attaches the unit's source text so diagnostics can quote
// the offending line.
func (r *Reporter) WithSource(lines []string) *Reporter {
	r.lines = lines
	return r
}

// Report records err.
func (r *Reporter) Report(err *errors.CompileError) {
	if err.Location.File == "" {
		err.Location.File = r.file
	}
	if err.Source == "" && err.Location.Line > 0 && err.Location.Line <= len(r.lines) {
		err.Source = r.lines[err.Location.Line-1]
	}
	r.errors = append(r.errors, err)
	r.trace.Errorf("%s", err)
}

// Errorf records a diagnostic of type typ at line and column.
func (r *Reporter) Errorf(typ errors.ErrorType, line, column int, format string, args ...interface{}) {
	r.Report(errors.New(typ, r.file, line, column, format, args...))
}

// Debugf traces a debug message.
func (r *Reporter) Debugf(format string, args ...interface{}) {
	r.trace.Debugf(format, args...)
}

// Infof traces an informational message.
func (r *Reporter) Infof(format string, args ...interface{}) {
	r.trace.Infof(format, args...)
}

func (r *Reporter) HasErrors() bool {
	return len(r.errors) > 0
}

// Diagnostics returns the recorded diagnostics in report order.
func (r *Reporter) Diagnostics() []*errors.CompileError {
	return append([]*errors.CompileError(nil), r.errors...)
}

// Err returns the aggregate of all diagnostics, or nil.
func (r *Reporter) Err() error {
	return append(errors.List(nil), r.errors...).Err()
}

// SetLevel sets the level of the global tracer to error, info or debug.
func SetLevel(level string) error {
	switch level {
	case "error":
		T().SetTraceLevel(tracing.LevelError)
	case "info":
		T().SetTraceLevel(tracing.LevelInfo)
	case "debug":
		T().SetTraceLevel(tracing.LevelDebug)
	default:
		return fmt.Errorf("unknown trace level %q", level)
	}
	return nil
}
