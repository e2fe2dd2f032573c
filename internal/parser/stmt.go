// internal/parser/stmt.go
package parser

// Stmt represents a statement.
type Stmt interface {
	Accept(visitor StmtVisitor) interface{}
	Position() Pos
}

// Program is one parsed compilation unit.
type Program struct {
	File  string
	Stmts []Stmt
}

// DeclForm distinguishes the declaration statement shapes.
type DeclForm int

const (
	// let x: T;
	DeclNoInit DeclForm = iota
	// let x: T = e;
	DeclTyped
	// let x = e;  x := e;
	DeclInferred
)

// DeclStmt declares a variable in the current scope.
type DeclStmt struct {
	Pos
	Name     string
	DeclType Type // filled in by the checker for inferred declarations
	Init     Expr
	Form     DeclForm
}

func (d *DeclStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitDeclStmt(d)
}

// AssignStmt assigns to an existing variable: x = expr
type AssignStmt struct {
	Pos
	Name  string
	Value Expr
}

func (a *AssignStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitAssignStmt(a)
}

// ExpressionStmt wraps a raw expression as a statement.
type ExpressionStmt struct {
	Pos
	Expr Expr
}

func (e *ExpressionStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitExpressionStmt(e)
}

// Block is a braced statement list introducing a scope.
type Block struct {
	Pos
	Stmts []Stmt
}

func (b *Block) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitBlock(b)
}

// CondBranch is one `if`/`else if` alternative.
type CondBranch struct {
	Cond Expr
	Body *Block
}

// IfStmt is an if/else-if/else chain.
type IfStmt struct {
	Pos
	Branches []CondBranch
	Else     *Block
}

func (i *IfStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitIfStmt(i)
}

// WhileStmt represents a while loop.
type WhileStmt struct {
	Pos
	Cond Expr
	Body *Block
}

func (w *WhileStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitWhileStmt(w)
}

type BreakStmt struct {
	Pos
}

func (b *BreakStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitBreakStmt(b)
}

type ContinueStmt struct {
	Pos
}

func (c *ContinueStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitContinueStmt(c)
}

// Param is a function parameter.
type Param struct {
	Name string
	Type Type
}

// FunctionStmt represents a function declaration.
type FunctionStmt struct {
	Pos
	Name       string
	Params     []Param
	ReturnType Type
	Body       *Block
}

func (f *FunctionStmt) Accept(visitor StmtVisitor) interface{} {
	return visitor.VisitFunctionStmt(f)
}

// StmtVisitor handles all statement types.
type StmtVisitor interface {
	VisitDeclStmt(stmt *DeclStmt) interface{}
	VisitAssignStmt(stmt *AssignStmt) interface{}
	VisitExpressionStmt(stmt *ExpressionStmt) interface{}
	VisitBlock(stmt *Block) interface{}
	VisitIfStmt(stmt *IfStmt) interface{}
	VisitWhileStmt(stmt *WhileStmt) interface{}
	VisitBreakStmt(stmt *BreakStmt) interface{}
	VisitContinueStmt(stmt *ContinueStmt) interface{}
	VisitFunctionStmt(stmt *FunctionStmt) interface{}
}
