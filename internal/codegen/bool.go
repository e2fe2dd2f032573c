package codegen

import (
	"github.com/lgtm-migrator/samosac-jvm/internal/bytecode"
	"github.com/lgtm-migrator/samosac-jvm/internal/parser"
)

// BoolMode selects how a boolean expression is generated.
type BoolMode interface {
	boolMode()
}

// ValueMode leaves 0 or 1 on the operand stack.
type ValueMode struct{}

// BranchMode jumps to False when the expression is false and falls
// through otherwise, leaving the operand stack unchanged.
type BranchMode struct {
	False *bytecode.Label
}

func (ValueMode) boolMode()  {}
func (BranchMode) boolMode() {}

var intCompares = map[string]bytecode.OpCode{
	"==": bytecode.OpIfICmpEq,
	"!=": bytecode.OpIfICmpNe,
	"<":  bytecode.OpIfICmpLt,
	"<=": bytecode.OpIfICmpLe,
	">":  bytecode.OpIfICmpGt,
	">=": bytecode.OpIfICmpGe,
}

type BoolExprGen struct {
	ctx *FunctionContext
}

func (g *BoolExprGen) Generate(e parser.Expr, mode BoolMode) {
	switch m := mode.(type) {
	case ValueMode:
		g.value(e)
	case BranchMode:
		if m.False == nil {
			internalf("codegen: branch mode without a false label")
		}
		g.jump(e, m.False, false)
	default:
		internalf("codegen: unknown bool mode %T", mode)
	}
}

func (g *BoolExprGen) value(e parser.Expr) {
	b := g.ctx.b
	switch e := e.(type) {
	case *parser.Literal:
		v, ok := e.Value.(bool)
		if !ok {
			internalf("codegen: bool literal holds %T", e.Value)
		}
		b.EmitConst(bytecode.BoolValue(v))
	case *parser.Variable:
		g.ctx.loadIdentifier(e)
	case *parser.CallExpr:
		g.ctx.genCall(e)
	default:
		f := b.NewLabel("bool.false")
		end := b.NewLabel("bool.end")
		g.jump(e, f, false)
		b.EmitConst(bytecode.BoolValue(true))
		b.Jump(bytecode.OpGoto, end)
		b.Bind(f)
		b.EmitConst(bytecode.BoolValue(false))
		b.Bind(end)
	}
}

// jump emits code that transfers to target exactly when e evaluates to
// when, and otherwise falls through. Operands of && and || are
// evaluated left to right and only as far as needed.
func (g *BoolExprGen) jump(e parser.Expr, target *bytecode.Label, when bool) {
	b := g.ctx.b
	switch e := e.(type) {
	case *parser.Unary:
		if e.Operator != "!" {
			internalf("codegen: bool operator %s", e.Operator)
		}
		g.jump(e.Operand, target, !when)
	case *parser.Binary:
		switch {
		case e.Operator == "&&" && !when:
			g.jump(e.Left, target, false)
			g.jump(e.Right, target, false)
		case e.Operator == "&&":
			skip := b.NewLabel("and.skip")
			g.jump(e.Left, skip, false)
			g.jump(e.Right, target, true)
			b.Bind(skip)
		case e.Operator == "||" && when:
			g.jump(e.Left, target, true)
			g.jump(e.Right, target, true)
		case e.Operator == "||":
			skip := b.NewLabel("or.skip")
			g.jump(e.Left, skip, true)
			g.jump(e.Right, target, false)
			b.Bind(skip)
		case parser.IsRelational(e.Operator):
			g.compare(e, target, when)
		default:
			internalf("codegen: bool generator given operator %s", e.Operator)
		}
	default:
		g.value(e)
		if when {
			b.Jump(bytecode.OpIfNe, target)
		} else {
			b.Jump(bytecode.OpIfEq, target)
		}
	}
}

// compare emits one compare-and-jump for a relational expression.
func (g *BoolExprGen) compare(e *parser.Binary, target *bytecode.Label, when bool) {
	b := g.ctx.b
	switch e.Left.Type() {
	case parser.TypeInt, parser.TypeBool:
		g.ctx.genValue(e.Left)
		g.ctx.genValue(e.Right)
		op, ok := intCompares[e.Operator]
		if !ok || (e.Left.Type() == parser.TypeBool && op != bytecode.OpIfICmpEq && op != bytecode.OpIfICmpNe) {
			internalf("codegen: %s on %s", e.Operator, e.Left.Type())
		}
		if !when {
			op = op.Negate()
		}
		b.SetPosition(e.Line, e.Column)
		b.Jump(op, target)
	case parser.TypeString:
		g.ctx.strs.Generate(e.Left)
		g.ctx.strs.Generate(e.Right)
		b.SetPosition(e.Line, e.Column)
		b.Emit(bytecode.OpSEquals, 0)
		// sequals pushes 1 when equal
		equal := e.Operator == "=="
		if e.Operator != "==" && e.Operator != "!=" {
			internalf("codegen: %s on strings", e.Operator)
		}
		if equal == when {
			b.Jump(bytecode.OpIfNe, target)
		} else {
			b.Jump(bytecode.OpIfEq, target)
		}
	default:
		internalf("codegen: comparison of %s", e.Left.Type())
	}
}

// isComparison reports whether e is a single relational comparison.
func isComparison(e parser.Expr) bool {
	bin, ok := e.(*parser.Binary)
	return ok && parser.IsRelational(bin.Operator)
}
