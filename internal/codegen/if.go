package codegen

import (
	"github.com/lgtm-migrator/samosac-jvm/internal/bytecode"
	"github.com/lgtm-migrator/samosac-jvm/internal/parser"
)

// IfGen generates an if / else-if / else chain.
type IfGen struct {
	ctx *FunctionContext
}

// Gen emits, per branch, a guard that jumps to the next alternative when
// the condition is false, the branch body and a jump past the chain.
// One label per condition plus the after label are created up front.
// The last condition's label marks the else block, or coincides with
// the after label when there is none.
func (g *IfGen) Gen(s *parser.IfStmt) {
	ctx := g.ctx
	b := ctx.b
	if len(s.Branches) == 0 {
		internalf("codegen: if statement without a condition")
	}

	next := make([]*bytecode.Label, len(s.Branches))
	for i := range next {
		next[i] = b.NewLabel("if.branch")
	}
	after := b.NewLabel("if.after")

	last := len(s.Branches) - 1
	for i, br := range s.Branches {
		ctx.position(br.Cond.Position())
		g.guard(br.Cond, next[i])
		ctx.dm.Owner(KindBlock).GenBlock(br.Body)
		if i < last || s.Else != nil {
			b.Jump(bytecode.OpGoto, after)
		}
		b.Bind(next[i])
	}
	if s.Else != nil {
		ctx.dm.Owner(KindBlock).GenBlock(s.Else)
	}
	b.Bind(after)
}

// guard falls through into the branch when cond holds and jumps to
// next otherwise. A lone comparison compiles to one inverted compare.
func (g *IfGen) guard(cond parser.Expr, next *bytecode.Label) {
	if isComparison(cond) {
		g.ctx.bools.compare(cond.(*parser.Binary), next, false)
		return
	}
	g.ctx.bools.Generate(cond, BranchMode{False: next})
}
