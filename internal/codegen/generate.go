// Package codegen translates a checked program into bytecode for the
// stack machine in package bytecode. Every routine is emitted through a
// FunctionContext; nested constructs take over statement kinds through
// the DelegationManager for as long as they are being generated.
package codegen

import (
	"github.com/npillmayer/schuko/tracing"

	"github.com/lgtm-migrator/samosac-jvm/internal/bytecode"
	"github.com/lgtm-migrator/samosac-jvm/internal/checker"
	"github.com/lgtm-migrator/samosac-jvm/internal/diag"
	"github.com/lgtm-migrator/samosac-jvm/internal/errors"
	"github.com/lgtm-migrator/samosac-jvm/internal/parser"
	"github.com/lgtm-migrator/samosac-jvm/internal/symbol"
)

// T traces to the global syntax tracer.
func T() tracing.Trace {
	return diag.T()
}

// EntryName is the name of the routine holding the unit's top-level code.
const EntryName = "main"

type options struct {
	unit     string
	reporter *diag.Reporter
}

type Option func(*options)

// WithUnitName names the generated module. It defaults to the program's
// file name.
func WithUnitName(name string) Option {
	return func(o *options) { o.unit = name }
}

// WithReporter collects source errors in r instead of a fresh reporter.
func WithReporter(r *diag.Reporter) Option {
	return func(o *options) { o.reporter = r }
}

// Generate compiles prog, which must have passed the checker. Source
// errors are collected and returned together after the whole unit was
// generated; internal errors abort generation immediately.
func Generate(prog *parser.Program, opts ...Option) (*bytecode.Module, error) {
	ctx, err := compileUnit(prog, opts...)
	if err != nil {
		return nil, err
	}
	return ctx.b.Module(), nil
}

func compileUnit(prog *parser.Program, opts ...Option) (ctx *FunctionContext, err error) {
	o := options{unit: prog.File}
	for _, opt := range opts {
		opt(&o)
	}
	if o.reporter == nil {
		o.reporter = diag.New(prog.File, T())
	}
	defer errors.RecoverInternal(&err)

	m := bytecode.NewModule(o.unit, prog.File)
	entry := m.NewRoutine(EntryName, nil, bytecode.KindVoid)
	ctx = newFunctionContext(EntryName, bytecode.NewBuilder(m, entry), o.reporter)
	root := &FunctionGen{ctx: ctx}
	ctx.dm = NewDelegationManager(root)

	ctx.symbols.ResetScopeIndex()
	for _, fn := range checker.Prelude {
		ctx.declareRoutine(fn.Name, fn.Params, fn.Result, 0)
	}
	for _, s := range prog.Stmts {
		if fn, ok := s.(*parser.FunctionStmt); ok {
			params := make([]parser.Type, len(fn.Params))
			for i, p := range fn.Params {
				params[i] = p.Type
			}
			ctx.declareRoutine(fn.Name, params, fn.ReturnType, fn.Line)
		}
	}

	for _, s := range prog.Stmts {
		root.GenStmt(s)
	}
	ctx.b.Emit(bytecode.OpReturn, 0)

	if o.reporter.HasErrors() {
		return nil, o.reporter.Err()
	}
	if err := ctx.b.Finish(); err != nil {
		return nil, err
	}
	if !ctx.dm.Balanced() {
		return nil, errors.Internalf("codegen: delegation left registered in %s", ctx.Name)
	}
	o.reporter.Debugf("generated %s: %d instructions, %d locals, %d labels",
		o.unit, len(entry.Code), entry.MaxLocals, len(ctx.b.Labels()))
	return ctx, nil
}

// declareRoutine adds a stub routine and its symbol.
func (ctx *FunctionContext) declareRoutine(name string, params []parser.Type, result parser.Type, line int) {
	if _, ok := ctx.routines[name]; ok {
		internalf("codegen: routine %s declared twice", name)
	}
	kinds := make([]bytecode.Kind, len(params))
	for i, p := range params {
		kinds[i] = kindOf(p)
	}
	r := ctx.b.Module().NewRoutine(name, kinds, kindOf(result))
	r.Stub = true
	ctx.routines[name] = len(ctx.b.Module().Routines) - 1
	err := ctx.symbols.Declare(&symbol.Symbol{
		Name:    name,
		Type:    result,
		Params:  params,
		Storage: symbol.StorageFunction,
		Line:    line,
	})
	if err != nil {
		panic(errors.WrapInternal(err, "codegen: declare "+name))
	}
}
