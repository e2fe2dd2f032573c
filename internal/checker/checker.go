// Package checker assigns value categories to expressions and rejects
// ill-typed or ill-scoped programs before code generation.
package checker

import (
	"github.com/npillmayer/schuko/tracing"

	"github.com/lgtm-migrator/samosac-jvm/internal/diag"
	"github.com/lgtm-migrator/samosac-jvm/internal/errors"
	"github.com/lgtm-migrator/samosac-jvm/internal/parser"
	"github.com/lgtm-migrator/samosac-jvm/internal/symbol"
)

// T traces to the global syntax tracer.
func T() tracing.Trace {
	return diag.T()
}

// Builtin is a host function available to every unit.
type Builtin struct {
	Name   string
	Params []parser.Type
	Result parser.Type
}

// Prelude lists the host functions declared before any unit.
var Prelude = []Builtin{
	{Name: "print", Params: []parser.Type{parser.TypeString}, Result: parser.TypeVoid},
	{Name: "println", Params: []parser.Type{parser.TypeString}, Result: parser.TypeVoid},
}

type Checker struct {
	symbols   *symbol.Table
	diag      *diag.Reporter
	loopDepth int
	inFunc    bool
}

var (
	_ parser.StmtVisitor = (*Checker)(nil)
	_ parser.ExprVisitor = (*Checker)(nil)
)

func New(r *diag.Reporter) *Checker {
	return &Checker{symbols: symbol.New(), diag: r}
}

// Check annotates prog in place and returns the aggregate of all
// diagnostics reported so far.
func (c *Checker) Check(prog *parser.Program) error {
	c.symbols.ResetScopeIndex()
	for _, b := range Prelude {
		c.symbols.Declare(&symbol.Symbol{Name: b.Name, Type: b.Result, Params: b.Params, Storage: symbol.StorageFunction})
	}
	// functions are visible before their declaration
	for _, stmt := range prog.Stmts {
		if fn, ok := stmt.(*parser.FunctionStmt); ok {
			c.declareFunction(fn)
		}
	}
	for _, stmt := range prog.Stmts {
		c.stmt(stmt)
	}
	c.diag.Debugf("checked %s: %d statements", prog.File, len(prog.Stmts))
	return c.diag.Err()
}

func (c *Checker) errorf(pos parser.Pos, format string, args ...interface{}) {
	c.diag.Errorf(errors.TypeError, pos.Line, pos.Column, format, args...)
}

func (c *Checker) stmt(s parser.Stmt) {
	s.Accept(c)
}

func (c *Checker) expr(e parser.Expr) parser.Type {
	t := e.Accept(c).(parser.Type)
	e.SetType(t)
	return t
}

func (c *Checker) declareFunction(fn *parser.FunctionStmt) {
	params := make([]parser.Type, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Type
	}
	sym := &symbol.Symbol{
		Name:    fn.Name,
		Type:    fn.ReturnType,
		Params:  params,
		Storage: symbol.StorageFunction,
		Line:    fn.Line,
	}
	if err := c.symbols.Declare(sym); err != nil {
		c.errorf(fn.Pos, "%v", err)
	}
}

func (c *Checker) declare(pos parser.Pos, name string, t parser.Type) {
	if t == parser.TypeVoid {
		c.errorf(pos, "void variables are not supported: %s", name)
		return
	}
	if err := c.symbols.Declare(&symbol.Symbol{Name: name, Type: t, Line: pos.Line}); err != nil {
		c.errorf(pos, "%v", err)
	}
}

func (c *Checker) VisitDeclStmt(stmt *parser.DeclStmt) interface{} {
	if stmt.Init == nil {
		c.declare(stmt.Pos, stmt.Name, stmt.DeclType)
		return nil
	}
	t := c.expr(stmt.Init)
	switch {
	case stmt.Form == parser.DeclInferred:
		stmt.DeclType = t
	case t != parser.TypeInvalid && t != stmt.DeclType:
		c.errorf(stmt.Pos, "expected %s expression on right-hand side of %s, found %s", stmt.DeclType, stmt.Name, t)
	}
	if stmt.DeclType == parser.TypeInvalid {
		// already reported; keep the name resolvable
		c.symbols.Declare(&symbol.Symbol{Name: stmt.Name, Type: parser.TypeInvalid, Line: stmt.Line})
		return nil
	}
	c.declare(stmt.Pos, stmt.Name, stmt.DeclType)
	return nil
}

func (c *Checker) VisitAssignStmt(stmt *parser.AssignStmt) interface{} {
	t := c.expr(stmt.Value)
	sym, _, ok := c.symbols.Lookup(stmt.Name)
	switch {
	case !ok:
		c.errorf(stmt.Pos, "assignment to undeclared name %s", stmt.Name)
	case sym.Storage == symbol.StorageFunction:
		c.errorf(stmt.Pos, "cannot assign to function %s", stmt.Name)
	case t != parser.TypeInvalid && sym.Type != parser.TypeInvalid && t != sym.Type:
		c.errorf(stmt.Pos, "cannot assign %s expression to %s of type %s", t, stmt.Name, sym.Type)
	}
	return nil
}

func (c *Checker) VisitExpressionStmt(stmt *parser.ExpressionStmt) interface{} {
	if _, ok := stmt.Expr.(*parser.CallExpr); !ok {
		c.errorf(stmt.Pos, "expression statement must be a call")
	}
	c.expr(stmt.Expr)
	return nil
}

func (c *Checker) VisitBlock(stmt *parser.Block) interface{} {
	c.symbols.EnterScope()
	for _, s := range stmt.Stmts {
		c.stmt(s)
	}
	c.symbols.ExitScope()
	return nil
}

func (c *Checker) condition(e parser.Expr, construct string) {
	if t := c.expr(e); t != parser.TypeBool && t != parser.TypeInvalid {
		p := e.Position()
		c.errorf(p, "%s condition must be bool, found %s", construct, t)
	}
}

func (c *Checker) VisitIfStmt(stmt *parser.IfStmt) interface{} {
	for _, br := range stmt.Branches {
		c.condition(br.Cond, "if")
		c.stmt(br.Body)
	}
	if stmt.Else != nil {
		c.stmt(stmt.Else)
	}
	return nil
}

func (c *Checker) VisitWhileStmt(stmt *parser.WhileStmt) interface{} {
	c.condition(stmt.Cond, "while")
	c.loopDepth++
	c.stmt(stmt.Body)
	c.loopDepth--
	return nil
}

func (c *Checker) VisitBreakStmt(stmt *parser.BreakStmt) interface{} {
	if c.loopDepth == 0 {
		c.errorf(stmt.Pos, "break outside loop")
	}
	return nil
}

func (c *Checker) VisitContinueStmt(stmt *parser.ContinueStmt) interface{} {
	if c.loopDepth == 0 {
		c.errorf(stmt.Pos, "continue outside loop")
	}
	return nil
}

func (c *Checker) VisitFunctionStmt(stmt *parser.FunctionStmt) interface{} {
	if c.inFunc || c.symbols.Depth() > 0 {
		c.errorf(stmt.Pos, "function %s must be declared at top level", stmt.Name)
		return nil
	}
	c.inFunc = true
	outerLoops := c.loopDepth
	c.loopDepth = 0
	c.symbols.EnterScope()
	for _, p := range stmt.Params {
		c.declare(stmt.Pos, p.Name, p.Type)
	}
	c.stmt(stmt.Body)
	c.symbols.ExitScope()
	c.loopDepth = outerLoops
	c.inFunc = false
	return nil
}
