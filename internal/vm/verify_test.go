package vm

import (
	"strings"
	"testing"

	"github.com/lgtm-migrator/samosac-jvm/internal/bytecode"
)

func TestVerifyAcceptsBuilderOutput(t *testing.T) {
	if err := Verify(countdown(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVerifyRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *bytecode.Module)
		want   string
	}{
		{
			name: "missing frame at jump target",
			mutate: func(m *bytecode.Module) {
				m.Routines[0].StackMap = m.Routines[0].StackMap[1:]
			},
			want: "target has no frame",
		},
		{
			name: "wrong local type",
			mutate: func(m *bytecode.Module) {
				// the loop condition now reads the counter as a string
				code := m.Routines[0].Code
				for i, in := range code {
					if in.Op == bytecode.OpILoad {
						code[i].Op = bytecode.OpALoad
						break
					}
				}
			},
			want: "slot holds",
		},
		{
			name: "jump past the end",
			mutate: func(m *bytecode.Module) {
				r := m.Routines[0]
				r.Code = r.Code[:len(r.Code)-1]
				r.Debug = r.Debug[:len(r.Debug)-1]
			},
			want: "target out of range",
		},
		{
			name: "pop on empty stack",
			mutate: func(m *bytecode.Module) {
				r := m.Routines[0]
				r.Code[len(r.Code)-1] = bytecode.Instruction{Op: bytecode.OpPop}
			},
			want: "underflow",
		},
		{
			name: "stub with code",
			mutate: func(m *bytecode.Module) {
				m.Routines[1].Code = []bytecode.Instruction{{Op: bytecode.OpReturn}}
			},
			want: "stub println has code",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := countdown(t)
			tt.mutate(m)
			err := Verify(m)
			if err == nil {
				t.Fatal("expected a verify error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
