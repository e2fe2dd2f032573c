// Package vm verifies and executes compiled modules.
package vm

import (
	"context"
	"io"
	"os"

	"github.com/lgtm-migrator/samosac-jvm/internal/bytecode"
	"github.com/lgtm-migrator/samosac-jvm/internal/errors"
)

// DefaultMaxSteps bounds execution when no limit is configured.
const DefaultMaxSteps = 10_000_000

type CallFrame struct {
	ip       int
	slotBase int
	routine  *bytecode.Routine
	locals   []Value
}

type VM struct {
	module   *bytecode.Module
	stack    []Value
	globals  []Value
	frames   []CallFrame
	natives  map[string]Native
	out      io.Writer
	maxSteps int64
	steps    int64
}

type Option func(*VM)

// WithOutput redirects print and println.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) { vm.out = w }
}

// WithMaxSteps bounds the number of executed instructions. Zero or less
// removes the bound.
func WithMaxSteps(n int64) Option {
	return func(vm *VM) { vm.maxSteps = n }
}

// WithNative binds the stub routine name to fn.
func WithNative(name string, fn Native) Option {
	return func(vm *VM) { vm.natives[name] = fn }
}

func NewVM(m *bytecode.Module, opts ...Option) *VM {
	vm := &VM{
		module:   m,
		natives:  Builtins(),
		out:      os.Stdout,
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.reset()
	return vm
}

func (vm *VM) reset() {
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	vm.steps = 0
	vm.globals = make([]Value, len(vm.module.Fields))
	for i, f := range vm.module.Fields {
		init := bytecode.Zero(f.Kind)
		if f.Init != nil {
			init = *f.Init
		}
		vm.globals[i] = init.Interface()
	}
}

// Global returns the current value of the named field.
func (vm *VM) Global(name string) (Value, bool) {
	for i := len(vm.module.Fields) - 1; i >= 0; i-- {
		if vm.module.Fields[i].Name == name {
			return vm.globals[i], true
		}
	}
	return nil, false
}

// Steps is the number of instructions executed by the last Run.
func (vm *VM) Steps() int64 { return vm.steps }

func (vm *VM) push(val Value) {
	vm.stack = append(vm.stack, val)
}

func (vm *VM) pop() Value {
	if len(vm.stack) == 0 {
		panic(errors.Internalf("vm: operand stack underflow"))
	}
	val := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return val
}

func (vm *VM) popInt() int64 {
	n, ok := vm.pop().(int64)
	if !ok {
		panic(errors.Internalf("vm: expected int on operand stack"))
	}
	return n
}

func (vm *VM) popString() string {
	s, ok := vm.pop().(string)
	if !ok {
		panic(errors.Internalf("vm: expected string on operand stack"))
	}
	return s
}

func (vm *VM) currentFrame() *CallFrame {
	return &vm.frames[len(vm.frames)-1]
}

// runtimeError builds an error located at the current instruction with
// the call stack innermost first.
func (vm *VM) runtimeError(format string, args ...interface{}) error {
	frame := vm.currentFrame()
	pos := frame.routine.GetDebugInfo(frame.ip - 1)
	err := errors.New(errors.RuntimeError, vm.module.Source, pos.Line, pos.Column, format, args...)
	for i := len(vm.frames) - 1; i >= 0; i-- {
		f := vm.frames[i]
		err.AddStackFrame(f.routine.Name, vm.module.Source, f.routine.GetDebugInfo(f.ip-1).Line)
	}
	return err
}

// Run executes the entry routine from a fresh state. Malformed bytecode
// surfaces as an internal error; Verify rules it out beforehand.
func (vm *VM) Run(ctx context.Context) (err error) {
	defer errors.RecoverInternal(&err)
	entry := vm.module.Entry()
	if entry == nil {
		return errors.Internalf("vm: module %s has no entry routine", vm.module.Name)
	}
	vm.reset()
	if err := vm.call(entry, 0); err != nil {
		return err
	}

	for len(vm.frames) > 0 {
		vm.steps++
		if vm.maxSteps > 0 && vm.steps > vm.maxSteps {
			return vm.runtimeError("step limit of %d exceeded", vm.maxSteps)
		}
		if vm.steps&0x3ff == 0 {
			if err := ctx.Err(); err != nil {
				return vm.runtimeError("interrupted: %v", err)
			}
		}

		frame := vm.currentFrame()
		if frame.ip >= len(frame.routine.Code) {
			return errors.Internalf("vm: fell off the end of %s", frame.routine.Name)
		}
		in := frame.routine.Code[frame.ip]
		frame.ip++

		switch in.Op {
		case bytecode.OpConst:
			vm.push(vm.module.Constants[in.Operand].Interface())

		case bytecode.OpILoad, bytecode.OpALoad:
			vm.push(frame.locals[in.Operand])

		case bytecode.OpIStore, bytecode.OpAStore:
			frame.locals[in.Operand] = vm.pop()

		case bytecode.OpGetField:
			vm.push(vm.globals[in.Operand])

		case bytecode.OpPutField:
			vm.globals[in.Operand] = vm.pop()

		case bytecode.OpIAdd:
			b, a := vm.popInt(), vm.popInt()
			vm.push(a + b)

		case bytecode.OpISub:
			b, a := vm.popInt(), vm.popInt()
			vm.push(a - b)

		case bytecode.OpIMul:
			b, a := vm.popInt(), vm.popInt()
			vm.push(a * b)

		case bytecode.OpIDiv, bytecode.OpIRem:
			b, a := vm.popInt(), vm.popInt()
			if b == 0 {
				return vm.runtimeError("division by zero")
			}
			if in.Op == bytecode.OpIDiv {
				vm.push(a / b)
			} else {
				vm.push(a % b)
			}

		case bytecode.OpINeg:
			vm.push(-vm.popInt())

		case bytecode.OpSConcat:
			b, a := vm.popString(), vm.popString()
			vm.push(a + b)

		case bytecode.OpToString:
			vm.push(bytecode.Format(bytecode.Kind(in.Operand), vm.pop()))

		case bytecode.OpSEquals:
			b, a := vm.popString(), vm.popString()
			if a == b {
				vm.push(int64(1))
			} else {
				vm.push(int64(0))
			}

		case bytecode.OpIfEq:
			if !truth(vm.pop()) {
				frame.ip = int(in.Operand)
			}

		case bytecode.OpIfNe:
			if truth(vm.pop()) {
				frame.ip = int(in.Operand)
			}

		case bytecode.OpIfICmpEq, bytecode.OpIfICmpNe, bytecode.OpIfICmpLt,
			bytecode.OpIfICmpGe, bytecode.OpIfICmpGt, bytecode.OpIfICmpLe:
			b, a := vm.popInt(), vm.popInt()
			if compare(in.Op, a, b) {
				frame.ip = int(in.Operand)
			}

		case bytecode.OpGoto:
			frame.ip = int(in.Operand)

		case bytecode.OpCall:
			callee := vm.module.Routines[in.Operand]
			if err := vm.call(callee, len(callee.Params)); err != nil {
				return err
			}

		case bytecode.OpPop:
			vm.pop()

		case bytecode.OpReturn:
			var result Value
			if frame.routine.Result != bytecode.KindVoid {
				result = vm.pop()
			}
			vm.stack = vm.stack[:frame.slotBase]
			vm.frames = vm.frames[:len(vm.frames)-1]
			if frame.routine.Result != bytecode.KindVoid && len(vm.frames) > 0 {
				vm.push(result)
			}

		default:
			return errors.Internalf("vm: unknown opcode %s", in.Op)
		}
	}
	return nil
}

// call enters r with its argCount arguments on top of the stack. Stubs
// run their native immediately.
func (vm *VM) call(r *bytecode.Routine, argCount int) error {
	if len(vm.stack) < argCount {
		return errors.Internalf("vm: not enough arguments for %s", r.Name)
	}
	base := len(vm.stack) - argCount
	if r.Stub {
		fn, ok := vm.natives[r.Name]
		if !ok {
			return vm.runtimeError("no host function bound to %s", r.Signature())
		}
		args := append([]Value(nil), vm.stack[base:]...)
		vm.stack = vm.stack[:base]
		result, err := fn(vm, args)
		if err != nil {
			return vm.runtimeError("%s: %v", r.Name, err)
		}
		if r.Result != bytecode.KindVoid {
			if result == nil {
				result = bytecode.Zero(r.Result).Interface()
			}
			vm.push(result)
		}
		return nil
	}

	locals := make([]Value, r.MaxLocals)
	copy(locals, vm.stack[base:])
	vm.stack = vm.stack[:base]
	vm.frames = append(vm.frames, CallFrame{routine: r, slotBase: base, locals: locals})
	return nil
}

func compare(op bytecode.OpCode, a, b int64) bool {
	switch op {
	case bytecode.OpIfICmpEq:
		return a == b
	case bytecode.OpIfICmpNe:
		return a != b
	case bytecode.OpIfICmpLt:
		return a < b
	case bytecode.OpIfICmpGe:
		return a >= b
	case bytecode.OpIfICmpGt:
		return a > b
	case bytecode.OpIfICmpLe:
		return a <= b
	}
	panic(errors.Internalf("vm: %s is not a comparison", op))
}
