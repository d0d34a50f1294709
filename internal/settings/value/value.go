// Package value provides the typed building blocks of a preference registry.
//
// A Value is a tagged union over the primitive kinds a runtime preference can
// hold. A Slot pairs a Value with its name, its default and the flag recording
// whether it was ever assigned explicitly.
package value

import (
	"fmt"
	"strconv"
)

// Kind is the primitive type held by a Value.
type Kind uint8

const (
	// KindInvalid is the zero Kind; a zero Value has it.
	KindInvalid Kind = iota
	// KindBool represents a boolean value.
	KindBool
	// KindInt represents a 32-bit signed integer value.
	KindInt
	// KindFloat represents a floating-point value.
	KindFloat
	// KindString represents a string value.
	KindString
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindBool:
		return "boolean"
	case KindInt:
		return "integer"
	case KindFloat:
		return "number"
	case KindString:
		return "string"
	default:
		return "invalid"
	}
}

// Value holds exactly one primitive of the kind it reports.
// The zero Value is invalid.
type Value struct {
	kind Kind
	b    bool
	i    int32
	f    float64
	s    string
}

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer Value.
func Int(i int32) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating-point Value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Kind returns the kind of v.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds a value.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// Bool returns the boolean held by v. It panics if v is not KindBool.
func (v Value) Bool() bool {
	v.mustBe(KindBool)
	return v.b
}

// Int returns the integer held by v. It panics if v is not KindInt.
func (v Value) Int() int32 {
	v.mustBe(KindInt)
	return v.i
}

// Float returns the float held by v. It panics if v is not KindFloat.
func (v Value) Float() float64 {
	v.mustBe(KindFloat)
	return v.f
}

// Text returns the string held by v. It panics if v is not KindString.
func (v Value) Text() string {
	v.mustBe(KindString)
	return v.s
}

// Interface returns the held primitive as an any (bool, int32, float64 or
// string), or nil for an invalid Value.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	default:
		return nil
	}
}

// Equal reports whether v and o have the same kind and payload.
func (v Value) Equal(o Value) bool {
	return v == o
}

// String formats the held primitive.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(int64(v.i), 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	default:
		return "<invalid>"
	}
}

func (v Value) mustBe(k Kind) {
	if v.kind != k {
		panic(fmt.Sprintf("value: %s accessor called on %s value", k, v.kind))
	}
}
