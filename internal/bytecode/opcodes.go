package bytecode

import "fmt"

type OpCode byte

const (
	OpConst    OpCode = iota // push constant #operand
	OpILoad                  // push int local
	OpIStore                 // pop int into local
	OpALoad                  // push string local
	OpAStore                 // pop string into local
	OpGetField               // push field #operand
	OpPutField               // pop into field #operand
	OpIAdd
	OpISub
	OpIMul
	OpIDiv
	OpIRem
	OpINeg
	OpSConcat
	OpToString // operand is the Kind of the converted value
	OpSEquals
	OpIfEq // jump when int == 0
	OpIfNe // jump when int != 0
	OpIfICmpEq
	OpIfICmpNe
	OpIfICmpLt
	OpIfICmpGe
	OpIfICmpGt
	OpIfICmpLe
	OpGoto
	OpCall // call routine #operand
	OpPop
	OpReturn
)

var opNames = [...]string{
	OpConst:    "const",
	OpILoad:    "iload",
	OpIStore:   "istore",
	OpALoad:    "aload",
	OpAStore:   "astore",
	OpGetField: "getfield",
	OpPutField: "putfield",
	OpIAdd:     "iadd",
	OpISub:     "isub",
	OpIMul:     "imul",
	OpIDiv:     "idiv",
	OpIRem:     "irem",
	OpINeg:     "ineg",
	OpSConcat:  "sconcat",
	OpToString: "tostring",
	OpSEquals:  "sequals",
	OpIfEq:     "ifeq",
	OpIfNe:     "ifne",
	OpIfICmpEq: "if_icmpeq",
	OpIfICmpNe: "if_icmpne",
	OpIfICmpLt: "if_icmplt",
	OpIfICmpGe: "if_icmpge",
	OpIfICmpGt: "if_icmpgt",
	OpIfICmpLe: "if_icmple",
	OpGoto:     "goto",
	OpCall:     "call",
	OpPop:      "pop",
	OpReturn:   "return",
}

func (op OpCode) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", byte(op))
}

// IsJump reports whether the operand of op is a branch target.
func (op OpCode) IsJump() bool {
	return op >= OpIfEq && op <= OpGoto
}

// FallsThrough reports whether execution may continue with the next
// instruction.
func (op OpCode) FallsThrough() bool {
	return op != OpGoto && op != OpReturn
}

// Negate returns the conditional jump taken exactly when op is not.
func (op OpCode) Negate() OpCode {
	switch op {
	case OpIfEq:
		return OpIfNe
	case OpIfNe:
		return OpIfEq
	case OpIfICmpEq:
		return OpIfICmpNe
	case OpIfICmpNe:
		return OpIfICmpEq
	case OpIfICmpLt:
		return OpIfICmpGe
	case OpIfICmpGe:
		return OpIfICmpLt
	case OpIfICmpGt:
		return OpIfICmpLe
	case OpIfICmpLe:
		return OpIfICmpGt
	}
	panic(fmt.Sprintf("bytecode: %s has no negation", op))
}
