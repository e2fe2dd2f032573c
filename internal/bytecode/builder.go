package bytecode

import (
	"fmt"

	"github.com/lgtm-migrator/samosac-jvm/internal/errors"
)

// Label is a branch target. It is bound to exactly one pc and may be
// referenced by jumps emitted before or after binding.
type Label struct {
	ID      int
	Purpose string

	pc        int
	watermark int
	frame     *Frame
	refs      []int
}

func (l *Label) Bound() bool { return l.pc >= 0 }

// PC is the bound position, or -1.
func (l *Label) PC() int { return l.pc }

// Frame returns the frame merged at this label so far.
func (l *Label) Frame() (Frame, bool) {
	if l.frame == nil {
		return Frame{}, false
	}
	return l.frame.Clone(), true
}

func (l *Label) String() string {
	return fmt.Sprintf("L%d(%s)", l.ID, l.Purpose)
}

// Builder emits the code of one routine while tracking the verification
// state (locals and operand stack). Misuse panics with an internal error
// from the errors package; use errors.RecoverInternal to turn it into a
// returned error.
type Builder struct {
	m *Module
	r *Routine

	locals    []VType
	stack     []VType
	reachable bool
	labels    []*Label
	debug     DebugInfo
}

func NewBuilder(m *Module, r *Routine) *Builder {
	b := &Builder{m: m, r: r, reachable: true}
	for _, p := range r.Params {
		b.DeclareLocal(p)
		b.locals[len(b.locals)-1] = p.VType()
	}
	return b
}

func (b *Builder) Module() *Module   { return b.m }
func (b *Builder) Routine() *Routine { return b.r }

// SetPosition sets the source position recorded for following instructions.
func (b *Builder) SetPosition(line, column int) {
	b.debug = DebugInfo{Line: line, Column: column}
}

// Reachable reports whether the next instruction can be reached by
// falling through.
func (b *Builder) Reachable() bool { return b.reachable }

// StackDepth is the current operand stack height.
func (b *Builder) StackDepth() int { return len(b.stack) }

// Frame snapshots the current verification state.
func (b *Builder) Frame() Frame {
	return Frame{Locals: b.locals, Stack: b.stack}.Clone()
}

// Restore replaces the verification state with f and marks the next
// instruction reachable.
func (b *Builder) Restore(f Frame) {
	f = f.Clone()
	b.locals, b.stack, b.reachable = f.Locals, f.Stack, true
}

// Mark is a point in the emission of a routine that Rewind can return to.
type Mark struct {
	pc        int
	frames    int
	labels    int
	frame     Frame
	reachable bool
	atPC      *FrameEntry // entry recorded at pc before the mark
}

// Mark records the current position and verification state.
func (b *Builder) Mark() Mark {
	m := Mark{
		pc:        len(b.r.Code),
		frames:    len(b.r.StackMap),
		labels:    len(b.labels),
		frame:     b.Frame(),
		reachable: b.reachable,
	}
	if sm := b.r.StackMap; m.frames > 0 && sm[m.frames-1].PC == m.pc {
		// a label bound later at the same pc replaces this entry
		e := FrameEntry{PC: m.pc, Frame: sm[m.frames-1].Frame.Clone()}
		m.atPC = &e
	}
	return m
}

// Rewind discards every instruction, stack map entry and label produced
// since m and restores the verification state of m. Local slots
// allocated since m stay allocated.
func (b *Builder) Rewind(m Mark) {
	if m.pc > len(b.r.Code) || m.labels > len(b.labels) {
		panic(errors.Internalf("bytecode: rewind past the end of %s", b.r.Name))
	}
	b.r.Code = b.r.Code[:m.pc]
	b.r.Debug = b.r.Debug[:m.pc]
	if len(b.r.StackMap) > m.frames {
		b.r.StackMap = b.r.StackMap[:m.frames]
	}
	if m.atPC != nil {
		b.r.StackMap[m.frames-1] = *m.atPC
	}
	for _, l := range b.labels[:m.labels] {
		if l.Bound() && l.pc > m.pc {
			panic(errors.Internalf("bytecode: rewind to %d unbinds %s", m.pc, l))
		}
		refs := l.refs[:0]
		for _, ref := range l.refs {
			if ref < m.pc {
				refs = append(refs, ref)
			}
		}
		l.refs = refs
	}
	b.labels = b.labels[:m.labels]

	if m.reachable {
		b.Restore(m.frame)
		return
	}
	b.locals = m.frame.Clone().Locals
	b.deadEnd()
}

// Labels returns every label created so far.
func (b *Builder) Labels() []*Label {
	return append([]*Label(nil), b.labels...)
}

// DeclareField declares a global of the module.
func (b *Builder) DeclareField(name string, kind Kind, init *Value) int {
	return b.m.DeclareField(name, kind, init)
}

// DeclareLocal allocates a fresh local slot. Slots are never reused
// within a routine; the slot holds Top until the first store.
func (b *Builder) DeclareLocal(kind Kind) int {
	slot := b.r.MaxLocals
	b.r.MaxLocals++
	for len(b.locals) <= slot {
		b.locals = append(b.locals, Top)
	}
	return slot
}

// EmitConst pushes v.
func (b *Builder) EmitConst(v Value) {
	b.Emit(OpConst, b.m.AddConstant(v))
}

// Load pushes local slot of kind k.
func (b *Builder) Load(k Kind, slot int) {
	if k.VType() == String {
		b.Emit(OpALoad, slot)
	} else {
		b.Emit(OpILoad, slot)
	}
}

// Store pops into local slot of kind k.
func (b *Builder) Store(k Kind, slot int) {
	if k.VType() == String {
		b.Emit(OpAStore, slot)
	} else {
		b.Emit(OpIStore, slot)
	}
}

// Emit appends a non-jump instruction.
func (b *Builder) Emit(op OpCode, operand int) {
	if op.IsJump() {
		panic(errors.Internalf("bytecode: %s must be emitted with Jump", op))
	}
	in := Instruction{Op: op, Operand: int32(operand)}
	b.apply(in)
	b.r.write(in, b.debug)
	if !op.FallsThrough() {
		b.deadEnd()
	}
}

// Jump appends a jump to l and records the frame at the jump site for l.
func (b *Builder) Jump(op OpCode, l *Label) {
	if !op.IsJump() {
		panic(errors.Internalf("bytecode: %s is not a jump", op))
	}
	in := Instruction{Op: op, Operand: -1}
	b.apply(in)
	if b.reachable {
		b.merge(l, Frame{Locals: b.locals, Stack: b.stack}.Trim(l.watermark))
	}
	if l.Bound() {
		in.Operand = int32(l.pc)
	}
	pc := b.r.write(in, b.debug)
	if !l.Bound() {
		l.refs = append(l.refs, pc)
	}
	if op == OpGoto {
		b.deadEnd()
	}
}

// NewLabel creates an unbound label. Frames merged at the label only
// describe the local slots allocated before this call.
func (b *Builder) NewLabel(purpose string) *Label {
	l := &Label{ID: len(b.labels), Purpose: purpose, pc: -1, watermark: b.r.MaxLocals}
	b.labels = append(b.labels, l)
	return l
}

// Bind binds l to the next instruction and replays its frame.
func (b *Builder) Bind(l *Label) {
	if l.Bound() {
		panic(errors.Internalf("bytecode: %s bound twice", l))
	}
	if b.reachable {
		b.merge(l, Frame{Locals: b.locals, Stack: b.stack}.Trim(l.watermark))
	}
	l.pc = len(b.r.Code)
	for _, ref := range l.refs {
		b.r.Code[ref].Operand = int32(l.pc)
	}
	l.refs = nil

	if l.frame == nil {
		// Nothing reaches l; the code following it is dead.
		return
	}
	b.Restore(*l.frame)
	b.recordFrame(l.pc, *l.frame)
}

// Finish checks that every label was bound.
func (b *Builder) Finish() error {
	for _, l := range b.labels {
		if l.Bound() {
			continue
		}
		if len(l.refs) > 0 {
			return errors.Internalf("bytecode: jump to unbound label %s in %s", l, b.r.Name)
		}
		return errors.Internalf("bytecode: label %s in %s never bound", l, b.r.Name)
	}
	return nil
}

func (b *Builder) merge(l *Label, f Frame) {
	if l.frame == nil {
		if l.Bound() {
			panic(errors.Internalf("bytecode: backward jump to %s which nothing reached", l))
		}
		l.frame = &f
		return
	}
	if !l.frame.Equal(f) {
		panic(errors.Internalf("bytecode: divergent frames at %s: %s vs %s", l, l.frame, f))
	}
}

func (b *Builder) recordFrame(pc int, f Frame) {
	sm := b.r.StackMap
	if n := len(sm); n > 0 && sm[n-1].PC == pc {
		sm[n-1].Frame = f.Clone()
		return
	}
	b.r.StackMap = append(sm, FrameEntry{PC: pc, Frame: f.Clone()})
}

func (b *Builder) deadEnd() {
	b.reachable = false
	b.stack = nil
}

// apply updates the verification state for in. In dead code the state
// is tracked loosely and never checked.
func (b *Builder) apply(in Instruction) {
	pop, push, err := b.m.Effect(in)
	if err != nil {
		panic(errors.WrapInternal(err, "bytecode: "+in.String()))
	}
	for i := len(pop) - 1; i >= 0; i-- {
		if len(b.stack) == 0 {
			if b.reachable {
				panic(errors.Internalf("bytecode: %s: operand stack underflow", in))
			}
			continue
		}
		top := b.stack[len(b.stack)-1]
		if b.reachable && pop[i] != Top && top != pop[i] {
			panic(errors.Internalf("bytecode: %s: expected %s on stack, found %s", in, pop[i], top))
		}
		b.stack = b.stack[:len(b.stack)-1]
	}
	if push != Top {
		b.stack = append(b.stack, push)
	}

	slot, t, store, ok := LocalEffect(in)
	if !ok {
		return
	}
	if slot >= len(b.locals) {
		panic(errors.Internalf("bytecode: %s: slot %d was never declared", in, slot))
	}
	if store {
		b.locals[slot] = t
	} else if b.reachable && b.locals[slot] != t {
		panic(errors.Internalf("bytecode: %s: slot %d holds %s", in, slot, b.locals[slot]))
	}
}
