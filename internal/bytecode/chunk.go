package bytecode

import "fmt"

// DebugInfo stores source location for each instruction
type DebugInfo struct {
	Line   int
	Column int
}

// Instruction is one decoded instruction. For jumps Operand is the
// target pc once the label is bound.
type Instruction struct {
	Op      OpCode
	Operand int32
}

func (in Instruction) String() string {
	switch in.Op {
	case OpIAdd, OpISub, OpIMul, OpIDiv, OpIRem, OpINeg, OpSConcat, OpSEquals, OpPop, OpReturn:
		return in.Op.String()
	case OpToString:
		return fmt.Sprintf("%s %s", in.Op, Kind(in.Operand))
	}
	return fmt.Sprintf("%s %d", in.Op, in.Operand)
}

// FrameEntry is the stack map entry for the instruction at PC.
type FrameEntry struct {
	PC    int
	Frame Frame
}

// Routine is one callable unit. Stub routines have a signature but no
// code; the VM binds them to host functions by name.
type Routine struct {
	Name      string
	Params    []Kind
	Result    Kind
	Stub      bool
	MaxLocals int
	Code      []Instruction
	Debug     []DebugInfo // Debug info for each instruction
	StackMap  []FrameEntry
}

func (r *Routine) write(in Instruction, debug DebugInfo) int {
	r.Code = append(r.Code, in)
	r.Debug = append(r.Debug, debug)
	return len(r.Code) - 1
}

func (r *Routine) GetDebugInfo(pc int) DebugInfo {
	if pc >= 0 && pc < len(r.Debug) {
		return r.Debug[pc]
	}
	return DebugInfo{}
}

// FrameAt returns the stack map frame recorded for pc.
func (r *Routine) FrameAt(pc int) (Frame, bool) {
	for _, e := range r.StackMap {
		if e.PC == pc {
			return e.Frame, true
		}
	}
	return Frame{}, false
}

// Signature renders the routine's declared types.
func (r *Routine) Signature() string {
	s := r.Name + "("
	for i, p := range r.Params {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	return s + ") " + r.Result.String()
}
