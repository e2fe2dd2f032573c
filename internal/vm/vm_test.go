package vm

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/lgtm-migrator/samosac-jvm/internal/bytecode"
	"github.com/lgtm-migrator/samosac-jvm/internal/errors"
)

// countdown builds: i := 3; while i > 0 { println(i); i = i - 1 }
func countdown(t *testing.T) *bytecode.Module {
	t.Helper()
	m := bytecode.NewModule("countdown", "countdown.smc")
	main := m.NewRoutine("main", nil, bytecode.KindVoid)
	printer := m.NewRoutine("println", []bytecode.Kind{bytecode.KindString}, bytecode.KindVoid)
	printer.Stub = true

	b := bytecode.NewBuilder(m, main)
	i := b.DeclareLocal(bytecode.KindInt)
	b.EmitConst(bytecode.IntValue(3))
	b.Store(bytecode.KindInt, i)

	start := b.NewLabel("while.start")
	exit := b.NewLabel("while.exit")
	b.Bind(start)
	b.Load(bytecode.KindInt, i)
	b.EmitConst(bytecode.IntValue(0))
	b.Jump(bytecode.OpIfICmpLe, exit)
	b.Load(bytecode.KindInt, i)
	b.Emit(bytecode.OpToString, int(bytecode.KindInt))
	b.Emit(bytecode.OpCall, 1)
	b.Load(bytecode.KindInt, i)
	b.EmitConst(bytecode.IntValue(1))
	b.Emit(bytecode.OpISub, 0)
	b.Store(bytecode.KindInt, i)
	b.Jump(bytecode.OpGoto, start)
	b.Bind(exit)
	b.Emit(bytecode.OpReturn, 0)

	if err := b.Finish(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return m
}

func TestRunLoop(t *testing.T) {
	m := countdown(t)
	if err := Verify(m); err != nil {
		t.Fatalf("verify: %v", err)
	}
	var out bytes.Buffer
	vm := NewVM(m, WithOutput(&out))
	if err := vm.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := out.String(); got != "3\n2\n1\n" {
		t.Errorf("output = %q", got)
	}
}

func TestGlobalsStartAtInitialValue(t *testing.T) {
	m := bytecode.NewModule("globals", "globals.smc")
	main := m.NewRoutine("main", nil, bytecode.KindVoid)
	five := bytecode.IntValue(5)
	b := bytecode.NewBuilder(m, main)
	g := b.DeclareField("g", bytecode.KindInt, &five)
	b.DeclareField("s", bytecode.KindString, nil)
	b.Emit(bytecode.OpGetField, g)
	b.EmitConst(bytecode.IntValue(2))
	b.Emit(bytecode.OpIMul, 0)
	b.Emit(bytecode.OpPutField, g)
	b.Emit(bytecode.OpReturn, 0)

	vm := NewVM(m)
	if err := vm.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := vm.Global("g"); v != int64(10) {
		t.Errorf("g = %v, want 10", v)
	}
	if v, _ := vm.Global("s"); v != "" {
		t.Errorf("s = %q, want empty", v)
	}
}

func TestRuntimeErrors(t *testing.T) {
	t.Run("division by zero", func(t *testing.T) {
		m := bytecode.NewModule("div", "div.smc")
		b := bytecode.NewBuilder(m, m.NewRoutine("main", nil, bytecode.KindVoid))
		b.SetPosition(4, 9)
		b.EmitConst(bytecode.IntValue(1))
		b.EmitConst(bytecode.IntValue(0))
		b.Emit(bytecode.OpIDiv, 0)
		b.Emit(bytecode.OpPop, 0)
		b.Emit(bytecode.OpReturn, 0)

		err := NewVM(m).Run(context.Background())
		ce, ok := errors.As(err)
		if !ok || ce.Type != errors.RuntimeError {
			t.Fatalf("expected runtime error, got %v", err)
		}
		if ce.Location.Line != 4 || len(ce.CallStack) != 1 || ce.CallStack[0].Function != "main" {
			t.Errorf("unexpected location %v / stack %v", ce.Location, ce.CallStack)
		}
	})

	t.Run("step limit", func(t *testing.T) {
		m := bytecode.NewModule("spin", "spin.smc")
		b := bytecode.NewBuilder(m, m.NewRoutine("main", nil, bytecode.KindVoid))
		top := b.NewLabel("while.start")
		b.Bind(top)
		b.Jump(bytecode.OpGoto, top)
		b.Emit(bytecode.OpReturn, 0)

		err := NewVM(m, WithMaxSteps(100)).Run(context.Background())
		if err == nil || !strings.Contains(err.Error(), "step limit") {
			t.Fatalf("expected step limit error, got %v", err)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		m := bytecode.NewModule("spin", "spin.smc")
		b := bytecode.NewBuilder(m, m.NewRoutine("main", nil, bytecode.KindVoid))
		top := b.NewLabel("while.start")
		b.Bind(top)
		b.Jump(bytecode.OpGoto, top)
		b.Emit(bytecode.OpReturn, 0)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := NewVM(m, WithMaxSteps(0)).Run(ctx)
		if err == nil || !strings.Contains(err.Error(), "interrupted") {
			t.Fatalf("expected interruption, got %v", err)
		}
	})

	t.Run("unbound stub", func(t *testing.T) {
		m := bytecode.NewModule("stub", "stub.smc")
		main := m.NewRoutine("main", nil, bytecode.KindVoid)
		m.NewRoutine("missing", nil, bytecode.KindVoid).Stub = true
		b := bytecode.NewBuilder(m, main)
		b.Emit(bytecode.OpCall, 1)
		b.Emit(bytecode.OpReturn, 0)

		err := NewVM(m).Run(context.Background())
		if err == nil || !strings.Contains(err.Error(), "no host function") {
			t.Fatalf("expected unbound stub error, got %v", err)
		}
	})
}

func TestNativeResult(t *testing.T) {
	m := bytecode.NewModule("native", "native.smc")
	main := m.NewRoutine("main", nil, bytecode.KindVoid)
	m.NewRoutine("answer", nil, bytecode.KindInt).Stub = true
	b := bytecode.NewBuilder(m, main)
	g := b.DeclareField("x", bytecode.KindInt, nil)
	b.Emit(bytecode.OpCall, 1)
	b.Emit(bytecode.OpPutField, g)
	b.Emit(bytecode.OpReturn, 0)

	vm := NewVM(m, WithNative("answer", func(*VM, []Value) (Value, error) {
		return int64(42), nil
	}))
	if err := vm.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := vm.Global("x"); v != int64(42) {
		t.Errorf("x = %v, want 42", v)
	}
}
