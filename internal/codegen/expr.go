package codegen

import (
	"github.com/lgtm-migrator/samosac-jvm/internal/bytecode"
	"github.com/lgtm-migrator/samosac-jvm/internal/parser"
)

var intOps = map[string]bytecode.OpCode{
	"+": bytecode.OpIAdd,
	"-": bytecode.OpISub,
	"*": bytecode.OpIMul,
	"/": bytecode.OpIDiv,
	"%": bytecode.OpIRem,
}

// IntExprGen leaves one int on the operand stack.
type IntExprGen struct {
	ctx *FunctionContext
}

func (g *IntExprGen) Generate(e parser.Expr) {
	b := g.ctx.b
	switch e := e.(type) {
	case *parser.Literal:
		n, ok := e.Value.(int64)
		if !ok {
			internalf("codegen: int literal holds %T", e.Value)
		}
		b.EmitConst(bytecode.IntValue(n))
	case *parser.Variable:
		g.ctx.loadIdentifier(e)
	case *parser.CallExpr:
		g.ctx.genCall(e)
	case *parser.Unary:
		if e.Operator != "-" {
			internalf("codegen: int operator %s", e.Operator)
		}
		g.Generate(e.Operand)
		b.Emit(bytecode.OpINeg, 0)
	case *parser.Binary:
		op, ok := intOps[e.Operator]
		if !ok || e.Type() != parser.TypeInt {
			internalf("codegen: int generator given %s %s expression", e.Type(), e.Operator)
		}
		g.Generate(e.Left)
		g.Generate(e.Right)
		b.SetPosition(e.Line, e.Column)
		b.Emit(op, 0)
	default:
		internalf("codegen: int generator cannot handle %T", e)
	}
}

// StringExprGen leaves one string on the operand stack.
type StringExprGen struct {
	ctx *FunctionContext
}

func (g *StringExprGen) Generate(e parser.Expr) {
	b := g.ctx.b
	switch e := e.(type) {
	case *parser.Literal:
		s, ok := e.Value.(string)
		if !ok {
			internalf("codegen: string literal holds %T", e.Value)
		}
		b.EmitConst(bytecode.StringValue(s))
	case *parser.Variable:
		g.ctx.loadIdentifier(e)
	case *parser.CallExpr:
		g.ctx.genCall(e)
	case *parser.Binary:
		if e.Operator != "+" || e.Type() != parser.TypeString {
			internalf("codegen: string generator given %s %s expression", e.Type(), e.Operator)
		}
		operands := concatOperands(e)
		g.convert(operands[0])
		for _, o := range operands[1:] {
			g.convert(o)
			b.Emit(bytecode.OpSConcat, 0)
		}
	default:
		internalf("codegen: string generator cannot handle %T", e)
	}
}

// concatOperands flattens a left-nested chain of string + into its
// operands in source order.
func concatOperands(e *parser.Binary) []parser.Expr {
	var ops []parser.Expr
	var walk func(x parser.Expr)
	walk = func(x parser.Expr) {
		if bin, ok := x.(*parser.Binary); ok && bin.Operator == "+" && bin.Type() == parser.TypeString {
			walk(bin.Left)
			walk(bin.Right)
			return
		}
		ops = append(ops, x)
	}
	walk(e)
	return ops
}

// convert pushes e as a string.
func (g *StringExprGen) convert(e parser.Expr) {
	switch e.Type() {
	case parser.TypeString:
		g.Generate(e)
	case parser.TypeInt:
		g.ctx.ints.Generate(e)
		g.ctx.b.Emit(bytecode.OpToString, int(bytecode.KindInt))
	case parser.TypeBool:
		g.ctx.bools.Generate(e, ValueMode{})
		g.ctx.b.Emit(bytecode.OpToString, int(bytecode.KindBool))
	default:
		internalf("codegen: cannot concatenate %s", e.Type())
	}
}
