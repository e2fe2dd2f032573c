package bytecode

import (
	"fmt"
	"io"
	"strings"
)

// Disassemble writes a textual listing of m.
func Disassemble(w io.Writer, m *Module) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; unit %s %s\n", m.Name, m.UnitID)

	for i, f := range m.Fields {
		fmt.Fprintf(&sb, ".field #%d %s %s", i, f.Name, f.Kind)
		if f.Init != nil {
			fmt.Fprintf(&sb, " = %s", f.Init)
		}
		sb.WriteByte('\n')
	}

	for i, r := range m.Routines {
		sb.WriteByte('\n')
		if r.Stub {
			fmt.Fprintf(&sb, ".routine #%d %s stub\n", i, r.Signature())
			continue
		}
		fmt.Fprintf(&sb, ".routine #%d %s locals=%d\n", i, r.Signature(), r.MaxLocals)
		frames := 0
		for pc, in := range r.Code {
			if frames < len(r.StackMap) && r.StackMap[frames].PC == pc {
				fmt.Fprintf(&sb, "        frame %s\n", r.StackMap[frames].Frame)
				frames++
			}
			fmt.Fprintf(&sb, "  %04d %4d  %s", pc, r.GetDebugInfo(pc).Line, in)
			fmt.Fprint(&sb, comment(m, in))
			sb.WriteByte('\n')
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func comment(m *Module, in Instruction) string {
	i := int(in.Operand)
	switch in.Op {
	case OpConst:
		if i < len(m.Constants) {
			return fmt.Sprintf("\t; %s %s", m.Constants[i].Kind, m.Constants[i])
		}
	case OpGetField, OpPutField:
		if i < len(m.Fields) {
			return "\t; " + m.Fields[i].Name
		}
	case OpCall:
		if i < len(m.Routines) {
			return "\t; " + m.Routines[i].Name
		}
	}
	return ""
}
