package bytecode

import (
	"testing"

	"github.com/kr/pretty"

	"github.com/lgtm-migrator/samosac-jvm/internal/errors"
)

func catch(f func()) (err error) {
	defer errors.RecoverInternal(&err)
	f()
	return nil
}

func newTestBuilder() *Builder {
	m := NewModule("test", "test.smc")
	return NewBuilder(m, m.NewRoutine("main", nil, KindVoid))
}

func TestForwardJumpFrame(t *testing.T) {
	b := newTestBuilder()
	x := b.DeclareLocal(KindInt)
	b.EmitConst(IntValue(0))
	b.Store(KindInt, x)

	end := b.NewLabel("end")
	b.Load(KindInt, x)
	b.Jump(OpIfEq, end)
	b.EmitConst(IntValue(7))
	b.Store(KindInt, x)
	b.Bind(end)
	b.Emit(OpReturn, 0)

	if err := b.Finish(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := b.Routine()
	if got := r.Code[3].Operand; got != 6 {
		t.Errorf("ifeq target = %d, want 6", got)
	}
	if len(r.StackMap) != 1 || r.StackMap[0].PC != 6 {
		t.Fatalf("stack map = %v", r.StackMap)
	}
	if f := r.StackMap[0].Frame; !f.Equal(Frame{Locals: []VType{Int}}) {
		t.Errorf("frame at end = %s, want [I] []", f)
	}
	want := []Instruction{
		{OpConst, 0}, {OpIStore, 0}, {OpILoad, 0}, {OpIfEq, 6},
		{OpConst, 1}, {OpIStore, 0}, {OpReturn, 0},
	}
	if diff := pretty.Diff(r.Code, want); len(diff) > 0 {
		t.Errorf("code mismatch: %v", diff)
	}
}

func TestBackwardJumpMatchesLoopStart(t *testing.T) {
	b := newTestBuilder()
	i := b.DeclareLocal(KindInt)
	b.EmitConst(IntValue(0))
	b.Store(KindInt, i)

	start := b.NewLabel("while.start")
	exit := b.NewLabel("while.exit")
	b.Bind(start)
	b.Load(KindInt, i)
	b.EmitConst(IntValue(3))
	b.Jump(OpIfICmpGe, exit)

	// a body local must not leak into the loop-start frame
	tmp := b.DeclareLocal(KindString)
	b.EmitConst(StringValue("x"))
	b.Store(KindString, tmp)
	b.Load(KindInt, i)
	b.EmitConst(IntValue(1))
	b.Emit(OpIAdd, 0)
	b.Store(KindInt, i)

	if err := catch(func() { b.Jump(OpGoto, start) }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.Bind(exit)
	b.Emit(OpReturn, 0)
	if err := b.Finish(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	startFrame, _ := start.Frame()
	exitFrame, _ := exit.Frame()
	if !startFrame.Equal(exitFrame) {
		t.Errorf("start %s and exit %s frames differ", startFrame, exitFrame)
	}
}

func TestDivergentFramesAreInternal(t *testing.T) {
	b := newTestBuilder()
	l := b.NewLabel("join")
	b.EmitConst(IntValue(1))
	b.Jump(OpIfEq, l)
	b.EmitConst(StringValue("left on stack"))
	err := catch(func() { b.Bind(l) })
	if !errors.IsInternal(err) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestUnboundLabel(t *testing.T) {
	b := newTestBuilder()
	l := b.NewLabel("never")
	b.Jump(OpGoto, l)
	if err := b.Finish(); !errors.IsInternal(err) {
		t.Errorf("expected internal error, got %v", err)
	}

	b = newTestBuilder()
	b.NewLabel("unused")
	if err := b.Finish(); !errors.IsInternal(err) {
		t.Errorf("expected internal error for unused label, got %v", err)
	}
}

func TestMisuse(t *testing.T) {
	tests := []struct {
		name string
		f    func(b *Builder)
	}{
		{"underflow", func(b *Builder) { b.Emit(OpIAdd, 0) }},
		{"type mismatch", func(b *Builder) {
			b.EmitConst(StringValue("s"))
			b.EmitConst(IntValue(1))
			b.Emit(OpIAdd, 0)
		}},
		{"load before store", func(b *Builder) { b.Load(KindInt, b.DeclareLocal(KindInt)) }},
		{"bind twice", func(b *Builder) {
			l := b.NewLabel("x")
			b.Bind(l)
			b.Bind(l)
		}},
		{"jump via Emit", func(b *Builder) { b.Emit(OpGoto, 0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := catch(func() { tt.f(newTestBuilder()) }); !errors.IsInternal(err) {
				t.Errorf("expected internal error, got %v", err)
			}
		})
	}
}

func TestDeadCodeAfterGoto(t *testing.T) {
	b := newTestBuilder()
	end := b.NewLabel("end")
	b.Jump(OpGoto, end)
	if b.Reachable() {
		t.Fatalf("code after goto should be unreachable")
	}
	// dead code is not checked
	b.Emit(OpIAdd, 0)
	b.Bind(end)
	if !b.Reachable() || b.StackDepth() != 0 {
		t.Errorf("after bind: reachable=%v depth=%d", b.Reachable(), b.StackDepth())
	}
	b.Emit(OpReturn, 0)
	if err := b.Finish(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFrameTrim(t *testing.T) {
	f := Frame{Locals: []VType{Int, Top, String, Top}, Stack: []VType{Int}}
	tests := []struct {
		n    int
		want []VType
	}{
		{4, []VType{Int, Top, String}},
		{2, []VType{Int}},
		{0, []VType{}},
	}
	for _, tt := range tests {
		got := f.Trim(tt.n)
		if !got.Equal(Frame{Locals: tt.want, Stack: []VType{Int}}) {
			t.Errorf("Trim(%d) = %s", tt.n, got)
		}
	}
	if !(Frame{Locals: []VType{Int, String}}).AssignableTo(Frame{Locals: []VType{Int}}) {
		t.Errorf("extra locals should be assignable")
	}
	if (Frame{Locals: []VType{Int}}).AssignableTo(Frame{Locals: []VType{String}}) {
		t.Errorf("mismatched local should not be assignable")
	}
}

func TestRewind(t *testing.T) {
	b := newTestBuilder()
	x := b.DeclareLocal(KindInt)
	b.EmitConst(IntValue(1))
	b.Store(KindInt, x)
	exit := b.NewLabel("exit")
	b.Load(KindInt, x)
	b.Jump(OpIfEq, exit)

	m := b.Mark()
	y := b.DeclareLocal(KindString)
	b.EmitConst(StringValue("abandoned"))
	b.Store(KindString, y)
	inner := b.NewLabel("inner")
	b.Load(KindInt, x)
	b.Jump(OpIfNe, inner)
	b.Jump(OpGoto, exit)
	b.Bind(inner)
	b.EmitConst(IntValue(2))
	b.Rewind(m)

	r := b.Routine()
	if len(r.Code) != 4 || len(r.Debug) != 4 {
		t.Fatalf("code = %v, want the 4 instructions before the mark", r.Code)
	}
	if len(r.StackMap) != 0 {
		t.Errorf("stack map = %v, want empty", r.StackMap)
	}
	if labels := b.Labels(); len(labels) != 1 || labels[0] != exit {
		t.Errorf("labels = %v, want [exit]", labels)
	}
	if !b.Reachable() || b.StackDepth() != 0 {
		t.Errorf("reachable = %v, depth = %d", b.Reachable(), b.StackDepth())
	}
	if f := b.Frame(); !f.Equal(Frame{Locals: []VType{Int}}) {
		t.Errorf("frame = %s, want [I] []", f)
	}

	b.Bind(exit)
	b.Emit(OpReturn, 0)
	if err := b.Finish(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.Code[3].Operand; got != 4 {
		t.Errorf("ifeq target = %d, want 4", got)
	}
	if r.MaxLocals != 2 {
		t.Errorf("max locals = %d, want 2: slots are never reused", r.MaxLocals)
	}
}

func TestRewindUnreachable(t *testing.T) {
	b := newTestBuilder()
	end := b.NewLabel("end")
	b.Jump(OpGoto, end)
	m := b.Mark()
	b.EmitConst(IntValue(1))
	b.Rewind(m)
	if b.Reachable() {
		t.Error("rewinding dead code made it reachable")
	}
	b.Bind(end)
	b.Emit(OpReturn, 0)
	if err := b.Finish(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(b.Routine().Code); n != 2 {
		t.Errorf("code length = %d, want 2", n)
	}
}
