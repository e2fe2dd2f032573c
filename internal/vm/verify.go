package vm

import (
	"github.com/lgtm-migrator/samosac-jvm/internal/bytecode"
	"github.com/lgtm-migrator/samosac-jvm/internal/errors"
)

// Verify type-checks every routine of m against its stack map in one
// linear pass, the way a class file verifier does: straight-line code
// is simulated, and every jump target and every instruction following
// an unconditional transfer must carry a recorded frame the incoming
// state is assignable to. Code without a frame after a transfer is
// unreachable and skipped.
func Verify(m *bytecode.Module) error {
	var errs errors.List
	for _, r := range m.Routines {
		if r.Stub {
			if len(r.Code) > 0 {
				errs = append(errs, verifyError(m, r, 0, "stub %s has code", r.Name))
			}
			continue
		}
		if err := verifyRoutine(m, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errs.Err()
}

func verifyError(m *bytecode.Module, r *bytecode.Routine, pc int, format string, args ...interface{}) *errors.CompileError {
	pos := r.GetDebugInfo(pc)
	err := errors.New(errors.VerifyError, m.Source, pos.Line, pos.Column, format, args...)
	return err.AddStackFrame(r.Name, m.Source, pos.Line)
}

func verifyRoutine(m *bytecode.Module, r *bytecode.Routine) *errors.CompileError {
	fail := func(pc int, format string, args ...interface{}) *errors.CompileError {
		return verifyError(m, r, pc, "%s@%d: "+format, append([]interface{}{r.Name, pc}, args...)...)
	}

	cur := bytecode.Frame{Locals: make([]bytecode.VType, r.MaxLocals)}
	for i, p := range r.Params {
		cur.Locals[i] = p.VType()
	}
	reachable := true

	for pc, in := range r.Code {
		if f, ok := r.FrameAt(pc); ok {
			if reachable && !cur.AssignableTo(f) {
				return fail(pc, "falls through with %s into frame %s", cur, f)
			}
			cur = widen(f, r.MaxLocals)
			reachable = true
		}
		if !reachable {
			continue
		}

		pop, push, err := m.Effect(in)
		if err != nil {
			return fail(pc, "%v", err)
		}
		if len(cur.Stack) < len(pop) {
			return fail(pc, "%s: operand stack underflow", in)
		}
		base := len(cur.Stack) - len(pop)
		for i, t := range pop {
			if t != bytecode.Top && cur.Stack[base+i] != t {
				return fail(pc, "%s: expected %s, found %s", in, t, cur.Stack[base+i])
			}
		}
		cur.Stack = cur.Stack[:base]

		if slot, t, store, ok := bytecode.LocalEffect(in); ok {
			if slot < 0 || slot >= len(cur.Locals) {
				return fail(pc, "%s: slot out of range", in)
			}
			if store {
				cur.Locals[slot] = t
			} else if cur.Locals[slot] != t {
				return fail(pc, "%s: slot holds %s", in, cur.Locals[slot])
			}
		}
		if push != bytecode.Top {
			cur.Stack = append(cur.Stack, push)
		}

		if in.Op.IsJump() {
			target := int(in.Operand)
			if target < 0 || target >= len(r.Code) {
				return fail(pc, "%s: target out of range", in)
			}
			f, ok := r.FrameAt(target)
			if !ok {
				return fail(pc, "%s: target has no frame", in)
			}
			if !cur.AssignableTo(f) {
				return fail(pc, "%s: state %s not assignable to %s", in, cur, f)
			}
		}
		if in.Op == bytecode.OpReturn {
			want := 0
			if r.Result != bytecode.KindVoid {
				want = 1
			}
			if len(cur.Stack) != want {
				return fail(pc, "return with %d values on the stack", len(cur.Stack))
			}
		}
		if !in.Op.FallsThrough() {
			reachable = false
			cur.Stack = nil
		}
	}
	if reachable {
		return fail(len(r.Code), "control falls off the end")
	}
	return nil
}

// widen pads f's locals with Top up to n slots.
func widen(f bytecode.Frame, n int) bytecode.Frame {
	f = f.Clone()
	for len(f.Locals) < n {
		f.Locals = append(f.Locals, bytecode.Top)
	}
	return f
}
