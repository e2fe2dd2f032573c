package vm

import (
	"fmt"
	"io"
	"strconv"
)

// Value is a run-time value: int64 for ints and bools, string for strings.
type Value interface{}

// Native implements a stub routine in Go.
type Native func(vm *VM, args []Value) (Value, error)

// ToString renders v for output.
func ToString(val Value) string {
	switch v := val.(type) {
	case nil:
		return "nil"
	case int64:
		return strconv.FormatInt(v, 10)
	case string:
		return v
	}
	return fmt.Sprint(val)
}

func truth(v Value) bool {
	n, _ := v.(int64)
	return n != 0
}

// Builtins are the host functions bound to the prelude stubs.
func Builtins() map[string]Native {
	return map[string]Native{
		"print": func(vm *VM, args []Value) (Value, error) {
			return nil, write(vm.out, ToString(args[0]))
		},
		"println": func(vm *VM, args []Value) (Value, error) {
			return nil, write(vm.out, ToString(args[0])+"\n")
		},
	}
}

func write(w io.Writer, s string) error {
	_, err := io.WriteString(w, s)
	return err
}
