package bytecode

import (
	"fmt"
	"strconv"
)

// Kind is the declared type of a field, parameter, result or constant.
type Kind byte

const (
	KindVoid Kind = iota
	KindInt
	KindBool
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	}
	return fmt.Sprintf("Kind(%d)", byte(k))
}

// VType is the verification type of a kind. Booleans are ints.
func (k Kind) VType() VType {
	switch k {
	case KindInt, KindBool:
		return Int
	case KindString:
		return String
	}
	return Top
}

// VType is a verification type of a local slot or stack entry.
type VType byte

const (
	Top VType = iota // unusable slot, or any value when popped
	Int
	String
)

func (t VType) String() string {
	switch t {
	case Top:
		return "."
	case Int:
		return "I"
	case String:
		return "S"
	}
	return "?"
}

// Value is a constant pool entry. Ints and bools use Int.
type Value struct {
	Kind Kind
	Int  int64
	Str  string
}

func IntValue(n int64) Value     { return Value{Kind: KindInt, Int: n} }
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

func BoolValue(b bool) Value {
	if b {
		return Value{Kind: KindBool, Int: 1}
	}
	return Value{Kind: KindBool}
}

// Zero is the default value of k.
func Zero(k Kind) Value {
	return Value{Kind: k}
}

// Interface returns the run-time representation: int64 or string.
func (v Value) Interface() interface{} {
	if v.Kind == KindString {
		return v.Str
	}
	return v.Int
}

func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return strconv.Quote(v.Str)
	case KindBool:
		return strconv.FormatBool(v.Int != 0)
	}
	return strconv.FormatInt(v.Int, 10)
}

// Format renders a run-time value of kind k the way tostring does.
func Format(k Kind, v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case int64:
		if k == KindBool {
			return strconv.FormatBool(x != 0)
		}
		return strconv.FormatInt(x, 10)
	}
	return fmt.Sprint(v)
}
