package bytecode

import (
	"bytes"
	"strings"
	"testing"
)

func sampleModule() *Module {
	m := NewModule("sample", "sample.smc")
	init := IntValue(5)
	m.DeclareField("g", KindInt, &init)
	m.DeclareField("s", KindString, nil)
	m.NewRoutine("print", []Kind{KindString}, KindVoid).Stub = true

	b := NewBuilder(m, m.NewRoutine("main", nil, KindVoid))
	m.Routines[0], m.Routines[1] = m.Routines[1], m.Routines[0]
	b.SetPosition(2, 1)
	x := b.DeclareLocal(KindBool)
	b.EmitConst(BoolValue(true))
	b.Store(KindBool, x)
	skip := b.NewLabel("skip")
	b.Load(KindBool, x)
	b.Jump(OpIfEq, skip)
	b.EmitConst(StringValue("hello"))
	b.Emit(OpCall, 1)
	b.Bind(skip)
	b.Emit(OpReturn, 0)
	if err := b.Finish(); err != nil {
		panic(err)
	}
	return m
}

func disasm(t *testing.T, m *Module) string {
	t.Helper()
	var buf bytes.Buffer
	if err := Disassemble(&buf, m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return buf.String()
}

func TestEncodeDecode(t *testing.T) {
	m := sampleModule()
	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UnitID != m.UnitID || got.Source != m.Source {
		t.Errorf("header mismatch: %v %q", got.UnitID, got.Source)
	}
	if a, b := disasm(t, m), disasm(t, got); a != b {
		t.Errorf("listing changed by round trip:\n%s\n---\n%s", a, b)
	}
	if got.Entry().GetDebugInfo(0).Line != 2 {
		t.Errorf("line table lost")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"empty", nil},
		{"bad magic", []byte{1, 2, 3, 4, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(bytes.NewReader(tt.input)); err == nil {
				t.Errorf("expected error")
			}
		})
	}

	var buf bytes.Buffer
	Encode(&buf, sampleModule())
	truncated := buf.Bytes()[:buf.Len()/2]
	if _, err := Decode(bytes.NewReader(truncated)); err == nil {
		t.Errorf("truncated module decoded without error")
	}
}

func TestDisassemble(t *testing.T) {
	out := disasm(t, sampleModule())
	for _, want := range []string{
		".field #0 g int = 5",
		".routine #1 print(string) void stub",
		"ifeq 6",
		"frame [I] []",
		"; string \"hello\"",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
}
