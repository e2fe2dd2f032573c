package codegen

import (
	"github.com/lgtm-migrator/samosac-jvm/internal/bytecode"
	"github.com/lgtm-migrator/samosac-jvm/internal/diag"
	"github.com/lgtm-migrator/samosac-jvm/internal/errors"
	"github.com/lgtm-migrator/samosac-jvm/internal/parser"
	"github.com/lgtm-migrator/samosac-jvm/internal/symbol"
)

// FunctionContext is the emission context of one routine. Every
// generator emits through it; it owns the instruction stream, the label
// namespace and the local slot assignment.
type FunctionContext struct {
	Name string

	b       *bytecode.Builder
	symbols *symbol.Table
	diag    *diag.Reporter
	dm      *DelegationManager

	slots    map[string]int // augmented name -> local slot
	fields   map[string]int // augmented name -> field index
	routines map[string]int // function name -> routine index

	ints  *IntExprGen
	bools *BoolExprGen
	strs  *StringExprGen
}

func newFunctionContext(name string, b *bytecode.Builder, r *diag.Reporter) *FunctionContext {
	ctx := &FunctionContext{
		Name:     name,
		b:        b,
		symbols:  symbol.New(),
		diag:     r,
		slots:    make(map[string]int),
		fields:   make(map[string]int),
		routines: make(map[string]int),
	}
	ctx.ints = &IntExprGen{ctx: ctx}
	ctx.bools = &BoolExprGen{ctx: ctx}
	ctx.strs = &StringExprGen{ctx: ctx}
	return ctx
}

// abortStatement unwinds generation of the current statement after a
// source error has been reported.
type abortStatement struct{}

// sourceErrorf reports a recoverable error and abandons the statement
// being generated.
func (ctx *FunctionContext) sourceErrorf(pos parser.Pos, format string, args ...interface{}) {
	ctx.diag.Errorf(errors.CodegenError, pos.Line, pos.Column, format, args...)
	panic(abortStatement{})
}

func internalf(format string, args ...interface{}) {
	panic(errors.Internalf(format, args...))
}

func kindOf(t parser.Type) bytecode.Kind {
	switch t {
	case parser.TypeInt:
		return bytecode.KindInt
	case parser.TypeBool:
		return bytecode.KindBool
	case parser.TypeString:
		return bytecode.KindString
	case parser.TypeVoid:
		return bytecode.KindVoid
	}
	internalf("codegen: no storage kind for %s", t)
	return bytecode.KindVoid
}

func (ctx *FunctionContext) position(p parser.Pos) {
	ctx.b.SetPosition(p.Line, p.Column)
}

// resolve looks name up as a variable.
func (ctx *FunctionContext) resolve(pos parser.Pos, name string) (*symbol.Symbol, int) {
	sym, depth, ok := ctx.symbols.Lookup(name)
	if !ok || sym.Storage == symbol.StorageFunction {
		ctx.sourceErrorf(pos, "unresolved identifier %s", name)
	}
	return sym, depth
}

// loadIdentifier pushes the value of a variable: a field read at depth 0,
// a local slot load otherwise.
func (ctx *FunctionContext) loadIdentifier(v *parser.Variable) {
	sym, depth := ctx.resolve(v.Pos, v.Name)
	if depth == 0 {
		ctx.b.Emit(bytecode.OpGetField, ctx.field(sym))
		return
	}
	ctx.b.Load(kindOf(sym.Type), ctx.slot(sym))
}

// store pops the top of stack into sym.
func (ctx *FunctionContext) store(sym *symbol.Symbol, depth int) {
	if depth == 0 {
		ctx.b.Emit(bytecode.OpPutField, ctx.field(sym))
		return
	}
	ctx.b.Store(kindOf(sym.Type), ctx.slot(sym))
}

func (ctx *FunctionContext) field(sym *symbol.Symbol) int {
	idx, ok := ctx.fields[sym.AugmentedName()]
	if !ok {
		internalf("codegen: global %s has no field", sym.Name)
	}
	return idx
}

func (ctx *FunctionContext) slot(sym *symbol.Symbol) int {
	slot, ok := ctx.slots[sym.AugmentedName()]
	if !ok {
		internalf("codegen: local %s has no slot", sym.AugmentedName())
	}
	return slot
}

// genValue generates e in value mode with the generator of its category.
func (ctx *FunctionContext) genValue(e parser.Expr) {
	ctx.genValueAs(e.Type(), e)
}

// genValueAs generates e with the generator of category t.
func (ctx *FunctionContext) genValueAs(t parser.Type, e parser.Expr) {
	switch t {
	case parser.TypeInt:
		ctx.ints.Generate(e)
	case parser.TypeBool:
		ctx.bools.Generate(e, ValueMode{})
	case parser.TypeString:
		ctx.strs.Generate(e)
	case parser.TypeVoid:
		call, ok := e.(*parser.CallExpr)
		if !ok {
			internalf("codegen: void %T", e)
		}
		ctx.genCall(call)
	default:
		internalf("codegen: expression at %d:%d has no category", e.Position().Line, e.Position().Column)
	}
}

// genCall pushes the arguments and calls the routine of c.Callee.
func (ctx *FunctionContext) genCall(c *parser.CallExpr) {
	idx, ok := ctx.routines[c.Callee]
	if !ok {
		ctx.sourceErrorf(c.Pos, "unresolved function %s", c.Callee)
	}
	params := ctx.b.Module().Routines[idx].Params
	if len(params) != len(c.Args) {
		internalf("codegen: %s takes %d arguments, got %d", c.Callee, len(params), len(c.Args))
	}
	for _, arg := range c.Args {
		ctx.genValue(arg)
	}
	ctx.b.Emit(bytecode.OpCall, idx)
}
