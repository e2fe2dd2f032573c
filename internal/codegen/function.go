package codegen

import (
	"github.com/lgtm-migrator/samosac-jvm/internal/bytecode"
	"github.com/lgtm-migrator/samosac-jvm/internal/parser"
	"github.com/lgtm-migrator/samosac-jvm/internal/symbol"
)

// FunctionGen is the function-level generator. It owns scope and slot
// bookkeeping and handles every statement kind nobody else registered.
type FunctionGen struct {
	ctx *FunctionContext
}

var _ StmtGen = (*FunctionGen)(nil)

// GenStmt dispatches one statement. A source error abandons the
// statement: everything it emitted is discarded and generation resumes
// from the state it started in.
func (f *FunctionGen) GenStmt(s parser.Stmt) {
	ctx := f.ctx
	start := ctx.b.Mark()
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(abortStatement); !ok {
				panic(r)
			}
			ctx.b.Rewind(start)
		}
	}()

	ctx.position(s.Position())
	switch s := s.(type) {
	case *parser.Block:
		ctx.dm.Owner(KindBlock).GenBlock(s)
	case *parser.BreakStmt:
		ctx.dm.Owner(KindBreak).GenBreak(s)
	case *parser.ContinueStmt:
		ctx.dm.Owner(KindContinue).GenContinue(s)
	case *parser.DeclStmt:
		ctx.dm.Owner(DeclKind(s)).GenDecl(s)
	case *parser.AssignStmt:
		f.genAssign(s)
	case *parser.ExpressionStmt:
		f.genExpressionStmt(s)
	case *parser.IfStmt:
		(&IfGen{ctx: ctx}).Gen(s)
	case *parser.WhileStmt:
		newWhileGen(ctx, ctx.dm.Owner(KindBlock)).Gen(s)
	case *parser.FunctionStmt:
		// the stub was emitted when the unit's functions were hoisted
		ctx.diag.Debugf("function %s compiled as dispatch stub", s.Name)
	default:
		internalf("codegen: unknown statement %T", s)
	}
}

func (f *FunctionGen) GenBlock(block *parser.Block) {
	ctx := f.ctx
	ctx.symbols.EnterScope()
	for _, s := range block.Stmts {
		f.GenStmt(s)
	}
	if err := ctx.symbols.ExitScope(); err != nil {
		panic(err)
	}
}

// GenBreak is reached only outside any loop, where it does nothing.
func (f *FunctionGen) GenBreak(*parser.BreakStmt) {}

// GenContinue is reached only outside any loop, where it does nothing.
func (f *FunctionGen) GenContinue(*parser.ContinueStmt) {}

func (f *FunctionGen) GenDecl(d *parser.DeclStmt) {
	ctx := f.ctx
	kind := kindOf(d.DeclType)
	sym := &symbol.Symbol{Name: d.Name, Type: d.DeclType, Line: d.Line}

	if ctx.symbols.Depth() == 0 {
		f.declareGlobal(d, sym, kind)
		return
	}

	if d.Init != nil {
		ctx.genValueAs(d.DeclType, d.Init)
	} else {
		ctx.b.EmitConst(bytecode.Zero(kind))
	}
	f.declare(d, sym)
	slot := ctx.b.DeclareLocal(kind)
	ctx.slots[sym.AugmentedName()] = slot
	ctx.b.SetPosition(d.Line, d.Column)
	ctx.b.Store(kind, slot)
}

// declareGlobal embeds values known at compile time in the field
// declaration and stores everything else at run time.
func (f *FunctionGen) declareGlobal(d *parser.DeclStmt, sym *symbol.Symbol, kind bytecode.Kind) {
	ctx := f.ctx
	var init *bytecode.Value
	switch lit := d.Init.(type) {
	case nil:
		v := bytecode.Zero(kind)
		init = &v
	case *parser.Literal:
		v := literalValue(lit)
		init = &v
		sym.Value = lit.Value
	default:
		ctx.genValueAs(d.DeclType, d.Init)
	}
	sym.InitialValueKnownAtCompileTime = init != nil

	f.declare(d, sym)
	idx := ctx.b.DeclareField(d.Name, kind, init)
	ctx.fields[sym.AugmentedName()] = idx
	if init == nil {
		ctx.b.SetPosition(d.Line, d.Column)
		ctx.b.Emit(bytecode.OpPutField, idx)
	}
}

func (f *FunctionGen) declare(d *parser.DeclStmt, sym *symbol.Symbol) {
	if err := f.ctx.symbols.Declare(sym); err != nil {
		f.ctx.sourceErrorf(d.Pos, "%v", err)
	}
}

func literalValue(lit *parser.Literal) bytecode.Value {
	switch v := lit.Value.(type) {
	case int64:
		return bytecode.IntValue(v)
	case bool:
		return bytecode.BoolValue(v)
	case string:
		return bytecode.StringValue(v)
	}
	internalf("codegen: literal of type %T", lit.Value)
	return bytecode.Value{}
}

func (f *FunctionGen) genAssign(s *parser.AssignStmt) {
	ctx := f.ctx
	sym, depth, ok := ctx.symbols.Lookup(s.Name)
	if !ok || sym.Storage == symbol.StorageFunction {
		ctx.sourceErrorf(s.Pos, "assignment to undeclared name %s", s.Name)
	}
	// the target's category picks the generator; booleans are stored as values
	ctx.genValueAs(sym.Type, s.Value)
	ctx.b.SetPosition(s.Line, s.Column)
	ctx.store(sym, depth)
}

func (f *FunctionGen) genExpressionStmt(s *parser.ExpressionStmt) {
	ctx := f.ctx
	ctx.genValue(s.Expr)
	if s.Expr.Type() != parser.TypeVoid {
		ctx.b.Emit(bytecode.OpPop, 0)
	}
}
