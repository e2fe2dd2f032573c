package codegen

import (
	"github.com/lgtm-migrator/samosac-jvm/internal/bytecode"
	"github.com/lgtm-migrator/samosac-jvm/internal/parser"
)

var loopKinds = []Kind{KindBlock, KindBreak, KindContinue}

// WhileGen generates one while loop. While the body is generated it
// owns break and continue, so they bind to the innermost loop; blocks
// are passed on to the generator that was responsible before it.
type WhileGen struct {
	StmtGen

	ctx   *FunctionContext
	start *bytecode.Label
	exit  *bytecode.Label
}

func newWhileGen(ctx *FunctionContext, parent StmtGen) *WhileGen {
	return &WhileGen{StmtGen: parent, ctx: ctx}
}

func (g *WhileGen) Gen(s *parser.WhileStmt) {
	ctx := g.ctx
	b := ctx.b

	g.start = b.NewLabel("while.start")
	g.exit = b.NewLabel("while.exit")

	b.Bind(g.start)
	ctx.position(s.Cond.Position())
	ctx.bools.Generate(s.Cond, BranchMode{False: g.exit})

	ctx.dm.Register(loopKinds, g)
	ctx.dm.Owner(KindBlock).GenBlock(s.Body)
	ctx.dm.Unregister(loopKinds, g)

	ctx.position(s.Pos)
	b.Jump(bytecode.OpGoto, g.start)
	b.Bind(g.exit)
}

func (g *WhileGen) GenBreak(s *parser.BreakStmt) {
	g.ctx.b.Jump(bytecode.OpGoto, g.exit)
}

func (g *WhileGen) GenContinue(s *parser.ContinueStmt) {
	g.ctx.b.Jump(bytecode.OpGoto, g.start)
}
