package bytecode

import (
	"fmt"

	"github.com/google/uuid"
)

// Field is a global of the compiled unit. Init is set when the initial
// value is known at compile time; fields without it start at the zero
// value of their kind.
type Field struct {
	Name string
	Kind Kind
	Init *Value
}

// Module is one compiled unit. Routines[0] is the entry routine.
type Module struct {
	UnitID    uuid.UUID
	Name      string
	Source    string
	Constants []Value
	Fields    []Field
	Routines  []*Routine
}

func NewModule(name, source string) *Module {
	return &Module{
		UnitID: uuid.New(),
		Name:   name,
		Source: source,
	}
}

// AddConstant interns v in the constant pool.
func (m *Module) AddConstant(v Value) int {
	for i, c := range m.Constants {
		if c == v {
			return i
		}
	}
	m.Constants = append(m.Constants, v)
	return len(m.Constants) - 1
}

// DeclareField appends a field and returns its index.
func (m *Module) DeclareField(name string, kind Kind, init *Value) int {
	m.Fields = append(m.Fields, Field{Name: name, Kind: kind, Init: init})
	return len(m.Fields) - 1
}

// NewRoutine appends a routine and returns it.
func (m *Module) NewRoutine(name string, params []Kind, result Kind) *Routine {
	r := &Routine{Name: name, Params: params, Result: result}
	m.Routines = append(m.Routines, r)
	return r
}

// RoutineIndex returns the index of the named routine, or -1.
func (m *Module) RoutineIndex(name string) int {
	for i, r := range m.Routines {
		if r.Name == name {
			return i
		}
	}
	return -1
}

// Entry returns the entry routine.
func (m *Module) Entry() *Routine {
	if len(m.Routines) == 0 {
		return nil
	}
	return m.Routines[0]
}

// Effect returns the operand stack types popped (bottom first) and the
// type pushed by in, or Top when nothing is pushed. A Top in the popped
// list accepts any type.
func (m *Module) Effect(in Instruction) (pop []VType, push VType, err error) {
	switch in.Op {
	case OpConst:
		if int(in.Operand) >= len(m.Constants) || in.Operand < 0 {
			return nil, Top, fmt.Errorf("constant #%d out of range", in.Operand)
		}
		return nil, m.Constants[in.Operand].Kind.VType(), nil
	case OpILoad:
		return nil, Int, nil
	case OpALoad:
		return nil, String, nil
	case OpIStore:
		return []VType{Int}, Top, nil
	case OpAStore:
		return []VType{String}, Top, nil
	case OpGetField, OpPutField:
		if int(in.Operand) >= len(m.Fields) || in.Operand < 0 {
			return nil, Top, fmt.Errorf("field #%d out of range", in.Operand)
		}
		t := m.Fields[in.Operand].Kind.VType()
		if in.Op == OpGetField {
			return nil, t, nil
		}
		return []VType{t}, Top, nil
	case OpIAdd, OpISub, OpIMul, OpIDiv, OpIRem:
		return []VType{Int, Int}, Int, nil
	case OpINeg:
		return []VType{Int}, Int, nil
	case OpSConcat:
		return []VType{String, String}, String, nil
	case OpToString:
		return []VType{Kind(in.Operand).VType()}, String, nil
	case OpSEquals:
		return []VType{String, String}, Int, nil
	case OpIfEq, OpIfNe:
		return []VType{Int}, Top, nil
	case OpIfICmpEq, OpIfICmpNe, OpIfICmpLt, OpIfICmpGe, OpIfICmpGt, OpIfICmpLe:
		return []VType{Int, Int}, Top, nil
	case OpGoto, OpReturn:
		return nil, Top, nil
	case OpPop:
		return []VType{Top}, Top, nil
	case OpCall:
		if int(in.Operand) >= len(m.Routines) || in.Operand < 0 {
			return nil, Top, fmt.Errorf("routine #%d out of range", in.Operand)
		}
		r := m.Routines[in.Operand]
		for _, p := range r.Params {
			pop = append(pop, p.VType())
		}
		return pop, r.Result.VType(), nil
	}
	return nil, Top, fmt.Errorf("unknown opcode %d", byte(in.Op))
}

// LocalEffect returns the local slot read or written by in.
func LocalEffect(in Instruction) (slot int, t VType, store, ok bool) {
	switch in.Op {
	case OpILoad:
		return int(in.Operand), Int, false, true
	case OpALoad:
		return int(in.Operand), String, false, true
	case OpIStore:
		return int(in.Operand), Int, true, true
	case OpAStore:
		return int(in.Operand), String, true, true
	}
	return 0, Top, false, false
}
