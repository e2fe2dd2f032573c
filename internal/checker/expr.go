package checker

import (
	"github.com/lgtm-migrator/samosac-jvm/internal/parser"
	"github.com/lgtm-migrator/samosac-jvm/internal/symbol"
)

func (c *Checker) VisitLiteralExpr(expr *parser.Literal) interface{} {
	switch expr.Value.(type) {
	case int64:
		return parser.TypeInt
	case bool:
		return parser.TypeBool
	case string:
		return parser.TypeString
	}
	c.errorf(expr.Pos, "unsupported literal %v", expr.Value)
	return parser.TypeInvalid
}

func (c *Checker) VisitVariableExpr(expr *parser.Variable) interface{} {
	sym, _, ok := c.symbols.Lookup(expr.Name)
	if !ok {
		c.errorf(expr.Pos, "undeclared identifier %s", expr.Name)
		return parser.TypeInvalid
	}
	if sym.Storage == symbol.StorageFunction {
		c.errorf(expr.Pos, "function %s used as a value", expr.Name)
		return parser.TypeInvalid
	}
	return sym.Type
}

func (c *Checker) VisitUnaryExpr(expr *parser.Unary) interface{} {
	t := c.expr(expr.Operand)
	want := parser.TypeInt
	if expr.Operator == "!" {
		want = parser.TypeBool
	}
	if t == parser.TypeInvalid {
		return parser.TypeInvalid
	}
	if t != want {
		c.errorf(expr.Pos, "operator %s needs %s operand, found %s", expr.Operator, want, t)
		return parser.TypeInvalid
	}
	return want
}

func (c *Checker) VisitBinaryExpr(expr *parser.Binary) interface{} {
	l := c.expr(expr.Left)
	r := c.expr(expr.Right)
	if l == parser.TypeInvalid || r == parser.TypeInvalid {
		return parser.TypeInvalid
	}

	result := parser.TypeInvalid
	switch expr.Operator {
	case "+":
		switch {
		case l == parser.TypeInt && r == parser.TypeInt:
			result = parser.TypeInt
		case concatenable(l) && concatenable(r) && (l == parser.TypeString || r == parser.TypeString):
			result = parser.TypeString
		}
	case "-", "*", "/", "%":
		if l == parser.TypeInt && r == parser.TypeInt {
			result = parser.TypeInt
		}
	case "<", "<=", ">", ">=":
		if l == parser.TypeInt && r == parser.TypeInt {
			result = parser.TypeBool
		}
	case "==", "!=":
		if l == r && l != parser.TypeVoid {
			result = parser.TypeBool
		}
	case "&&", "||":
		if l == parser.TypeBool && r == parser.TypeBool {
			result = parser.TypeBool
		}
	}
	if result == parser.TypeInvalid {
		c.errorf(expr.Pos, "operator %s not defined on %s and %s", expr.Operator, l, r)
	}
	return result
}

func concatenable(t parser.Type) bool {
	return t == parser.TypeString || t == parser.TypeInt || t == parser.TypeBool
}

func (c *Checker) VisitCallExpr(expr *parser.CallExpr) interface{} {
	args := make([]parser.Type, len(expr.Args))
	for i, a := range expr.Args {
		args[i] = c.expr(a)
	}
	sym, _, ok := c.symbols.Lookup(expr.Callee)
	if !ok {
		c.errorf(expr.Pos, "call of undeclared function %s", expr.Callee)
		return parser.TypeInvalid
	}
	if sym.Storage != symbol.StorageFunction {
		c.errorf(expr.Pos, "%s is not a function", expr.Callee)
		return parser.TypeInvalid
	}
	if len(args) != len(sym.Params) {
		c.errorf(expr.Pos, "%s expects %d arguments, got %d", expr.Callee, len(sym.Params), len(args))
		return sym.Type
	}
	for i, t := range args {
		if t != parser.TypeInvalid && t != sym.Params[i] {
			c.errorf(expr.Args[i].Position(), "argument %d of %s: expected %s, found %s", i+1, expr.Callee, sym.Params[i], t)
		}
	}
	return sym.Type
}
