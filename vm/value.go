package vm

import (
	"fmt"
	"math"

	"github.com/chazu/ilgen/pkg/bytecode"
)

// Kind identifies the representation held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindRef
)

// String returns a human-readable name for Kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	case KindRef:
		return "ref"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is one operand-stack entry. Integers keep their bits in bits,
// floats keep the float64 bit pattern, references keep the Go value in ref.
type Value struct {
	kind Kind
	bits uint64
	ref  any
}

// Null is the null reference.
var Null = Value{}

// Int32 returns an int32 value.
func Int32(v int32) Value { return Value{kind: KindInt32, bits: uint64(int64(v))} }

// Int64 returns an int64 value.
func Int64(v int64) Value { return Value{kind: KindInt64, bits: uint64(v)} }

// Uint32 returns an int32 value holding the bits of v.
func Uint32(v uint32) Value { return Int32(int32(v)) }

// Uint64 returns an int64 value holding the bits of v.
func Uint64(v uint64) Value { return Value{kind: KindInt64, bits: v} }

// Float32 returns a float32 value.
func Float32(v float32) Value {
	return Value{kind: KindFloat32, bits: math.Float64bits(float64(v))}
}

// Float64 returns a float64 value.
func Float64(v float64) Value { return Value{kind: KindFloat64, bits: math.Float64bits(v)} }

// Bool returns int32 1 or 0.
func Bool(b bool) Value {
	if b {
		return Int32(1)
	}
	return Int32(0)
}

// String returns a string reference.
func String(s string) Value { return Value{kind: KindRef, ref: s} }

// Ref wraps a heap value (object, array, boxed value).
func Ref(r any) Value {
	if r == nil {
		return Null
	}
	return Value{kind: KindRef, ref: r}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) IsInt() bool { return v.kind == KindInt32 || v.kind == KindInt64 }

func (v Value) IsFloat() bool { return v.kind == KindFloat32 || v.kind == KindFloat64 }

// Int returns the integer value sign-extended to 64 bits, or the truncated
// value of a float.
func (v Value) Int() int64 {
	switch v.kind {
	case KindInt32:
		return int64(int32(v.bits))
	case KindInt64:
		return int64(v.bits)
	case KindFloat32, KindFloat64:
		return int64(v.Float())
	}
	return 0
}

// Uint returns the integer value zero-extended from its own width.
func (v Value) Uint() uint64 {
	switch v.kind {
	case KindInt32:
		return uint64(uint32(v.bits))
	case KindInt64:
		return v.bits
	case KindFloat32, KindFloat64:
		return uint64(v.Float())
	}
	return 0
}

// Float returns the value as float64, converting integers.
func (v Value) Float() float64 {
	switch v.kind {
	case KindFloat32, KindFloat64:
		return math.Float64frombits(v.bits)
	case KindInt32, KindInt64:
		return float64(v.Int())
	}
	return 0
}

// Ref returns the referenced Go value, or nil.
func (v Value) Ref() any { return v.ref }

// Str returns the string held by a string reference.
func (v Value) Str() (string, bool) {
	s, ok := v.ref.(string)
	return s, ok
}

// Truthy reports whether brtrue would branch on v.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindInt32, KindInt64:
		return v.bits != 0
	case KindFloat32, KindFloat64:
		return v.Float() != 0
	}
	return true
}

// String renders the value for diagnostics and CLI output.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindInt32, KindInt64:
		return fmt.Sprintf("%d", v.Int())
	case KindFloat32:
		return fmt.Sprintf("%g", float32(v.Float()))
	case KindFloat64:
		return fmt.Sprintf("%g", v.Float())
	}
	switch r := v.ref.(type) {
	case string:
		return fmt.Sprintf("%q", r)
	case fmt.Stringer:
		return r.String()
	}
	return fmt.Sprintf("%v", v.ref)
}

// Zero returns the default value of a slot of type t.
func Zero(t bytecode.Type) Value {
	switch t.StackKind() {
	case bytecode.KindInt32:
		return Int32(0)
	case bytecode.KindInt64:
		return Int64(0)
	case bytecode.KindFloat32:
		return Float32(0)
	case bytecode.KindFloat64:
		return Float64(0)
	}
	return Null
}

// Coerce converts v to the representation of a slot of type t, narrowing
// small integers the way a store to such a slot does. Reference types and
// untyped slots pass v through.
func Coerce(t bytecode.Type, v Value) Value {
	if !v.IsInt() && !v.IsFloat() {
		return v
	}
	switch t {
	case bytecode.TypeBool:
		return Bool(v.Int() != 0)
	case bytecode.TypeInt8:
		return Int32(int32(int8(v.Int())))
	case bytecode.TypeInt16:
		return Int32(int32(int16(v.Int())))
	case bytecode.TypeUint8:
		return Int32(int32(uint8(v.Int())))
	case bytecode.TypeUint16:
		return Int32(int32(uint16(v.Int())))
	case bytecode.TypeInt32, bytecode.TypeUint32:
		if v.kind == KindInt32 {
			return v
		}
		return Int32(int32(v.Int()))
	case bytecode.TypeInt64, bytecode.TypeUint64:
		if v.kind == KindInt64 {
			return v
		}
		if v.kind == KindInt32 && t == bytecode.TypeUint64 {
			return Uint64(v.Uint())
		}
		return Int64(v.Int())
	case bytecode.TypeFloat32:
		return Float32(float32(v.Float()))
	case bytecode.TypeFloat64:
		return Float64(v.Float())
	}
	return v
}

// Equal reports whether two values are equal the way ceq compares them.
func Equal(a, b Value) bool {
	switch {
	case a.IsFloat() || b.IsFloat():
		if !(a.IsFloat() || a.IsInt()) || !(b.IsFloat() || b.IsInt()) {
			return false
		}
		return a.Float() == b.Float()
	case a.IsInt() && b.IsInt():
		if a.kind == b.kind {
			return a.bits == b.bits
		}
		return a.Int() == b.Int()
	case a.kind == KindNull || b.kind == KindNull:
		return a.kind == b.kind
	}
	if as, ok := a.ref.(string); ok {
		bs, ok := b.ref.(string)
		return ok && as == bs
	}
	return a.ref == b.ref
}
