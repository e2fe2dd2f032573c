package parser

import "fmt"

// Type is the value category of an expression or declaration.
type Type int

const (
	TypeInvalid Type = iota
	TypeInt
	TypeBool
	TypeString
	TypeVoid
)

var typeNames = [...]string{
	TypeInvalid: "<invalid>",
	TypeInt:     "int",
	TypeBool:    "bool",
	TypeString:  "string",
	TypeVoid:    "void",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

// Pos is a source position.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) Position() Pos { return p }

type Expr interface {
	Accept(visitor ExprVisitor) interface{}
	Position() Pos
	// Type is the category assigned by the checker.
	Type() Type
	SetType(t Type)
}

type typed struct {
	typ Type
}

func (t *typed) Type() Type     { return t.typ }
func (t *typed) SetType(c Type) { t.typ = c }

// Binary expression: a + b
type Binary struct {
	Pos
	typed
	Left     Expr
	Operator string
	Right    Expr
}

func (b *Binary) Accept(visitor ExprVisitor) interface{} {
	return visitor.VisitBinaryExpr(b)
}

// Unary expression: !a, -a
type Unary struct {
	Pos
	typed
	Operator string
	Operand  Expr
}

func (u *Unary) Accept(visitor ExprVisitor) interface{} {
	return visitor.VisitUnaryExpr(u)
}

// Literal expression. Value is an int64, bool or string.
type Literal struct {
	Pos
	typed
	Value interface{}
}

func (l *Literal) Accept(visitor ExprVisitor) interface{} {
	return visitor.VisitLiteralExpr(l)
}

// Variable expression: x
type Variable struct {
	Pos
	typed
	Name string
}

func (v *Variable) Accept(visitor ExprVisitor) interface{} {
	return visitor.VisitVariableExpr(v)
}

// Call expression: callee(args...)
type CallExpr struct {
	Pos
	typed
	Callee string
	Args   []Expr
}

func (c *CallExpr) Accept(visitor ExprVisitor) interface{} {
	return visitor.VisitCallExpr(c)
}

// ExprVisitor handles all expression types.
type ExprVisitor interface {
	VisitBinaryExpr(expr *Binary) interface{}
	VisitUnaryExpr(expr *Unary) interface{}
	VisitLiteralExpr(expr *Literal) interface{}
	VisitVariableExpr(expr *Variable) interface{}
	VisitCallExpr(expr *CallExpr) interface{}
}

// IsRelational reports whether op compares two operands.
func IsRelational(op string) bool {
	switch op {
	case "==", "!=", "<", "<=", ">", ">=":
		return true
	}
	return false
}

// IsLogical reports whether op is a short-circuit operator.
func IsLogical(op string) bool {
	return op == "&&" || op == "||"
}
