package bytecode

import (
	"strings"

	"golang.org/x/exp/slices"
)

// Frame describes the live locals and operand stack at a program point.
// Frames are values; Clone before retaining one that may be mutated.
type Frame struct {
	Locals []VType
	Stack  []VType
}

func (f Frame) Clone() Frame {
	return Frame{Locals: slices.Clone(f.Locals), Stack: slices.Clone(f.Stack)}
}

func (f Frame) Equal(g Frame) bool {
	return slices.Equal(f.Locals, g.Locals) && slices.Equal(f.Stack, g.Stack)
}

// Trim keeps the first n local slots and drops trailing Top slots.
func (f Frame) Trim(n int) Frame {
	if n > len(f.Locals) {
		n = len(f.Locals)
	}
	for n > 0 && f.Locals[n-1] == Top {
		n--
	}
	return Frame{Locals: slices.Clone(f.Locals[:n]), Stack: slices.Clone(f.Stack)}
}

// AssignableTo reports whether a state described by f may flow into a
// point whose recorded frame is g. Locals g does not track are ignored.
func (f Frame) AssignableTo(g Frame) bool {
	if !slices.Equal(f.Stack, g.Stack) {
		return false
	}
	for i, t := range g.Locals {
		if t == Top {
			continue
		}
		if i >= len(f.Locals) || f.Locals[i] != t {
			return false
		}
	}
	return true
}

func (f Frame) String() string {
	return "[" + join(f.Locals) + "] [" + join(f.Stack) + "]"
}

func join(ts []VType) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}
