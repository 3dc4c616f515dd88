package vm

import (
	"fmt"
	"math"

	"github.com/chazu/ilgen/pkg/bytecode"
)

// arith applies a binary arithmetic opcode. Integer operands of mixed width
// widen to int64; any floating operand makes the operation floating, in
// float32 only when both operands are float32.
func arith(op bytecode.Opcode, a, b Value) (Value, error) {
	switch {
	case a.IsInt() && b.IsInt():
		if a.kind == KindInt64 || b.kind == KindInt64 {
			return arith64(op, a, b)
		}
		return arith32(op, a, b)
	case (a.IsInt() || a.IsFloat()) && (b.IsInt() || b.IsFloat()):
		return arithFloat(op, a, b)
	}
	return Null, fmt.Errorf("%w: %s %s %s", ErrTypeMismatch, a.kind, op, b.kind)
}

func arith32(op bytecode.Opcode, a, b Value) (Value, error) {
	x, y := int32(a.Int()), int32(b.Int())
	ux, uy := uint32(x), uint32(y)
	switch op {
	case bytecode.OpAdd:
		return Int32(x + y), nil
	case bytecode.OpSub:
		return Int32(x - y), nil
	case bytecode.OpMul:
		return Int32(x * y), nil
	}
	if y == 0 {
		return Null, ErrDivideByZero
	}
	switch op {
	case bytecode.OpDiv:
		return Int32(x / y), nil
	case bytecode.OpDivUn:
		return Uint32(ux / uy), nil
	case bytecode.OpRem:
		return Int32(x % y), nil
	case bytecode.OpRemUn:
		return Uint32(ux % uy), nil
	}
	return Null, fmt.Errorf("%w: %s", ErrInvalidOpcode, op)
}

func arith64(op bytecode.Opcode, a, b Value) (Value, error) {
	x, y := a.Int(), b.Int()
	ux, uy := uint64(x), uint64(y)
	switch op {
	case bytecode.OpAdd:
		return Int64(x + y), nil
	case bytecode.OpSub:
		return Int64(x - y), nil
	case bytecode.OpMul:
		return Int64(x * y), nil
	}
	if y == 0 {
		return Null, ErrDivideByZero
	}
	switch op {
	case bytecode.OpDiv:
		return Int64(x / y), nil
	case bytecode.OpDivUn:
		return Uint64(ux / uy), nil
	case bytecode.OpRem:
		return Int64(x % y), nil
	case bytecode.OpRemUn:
		return Uint64(ux % uy), nil
	}
	return Null, fmt.Errorf("%w: %s", ErrInvalidOpcode, op)
}

func arithFloat(op bytecode.Opcode, a, b Value) (Value, error) {
	x, y := a.Float(), b.Float()
	var r float64
	switch op {
	case bytecode.OpAdd:
		r = x + y
	case bytecode.OpSub:
		r = x - y
	case bytecode.OpMul:
		r = x * y
	case bytecode.OpDiv:
		r = x / y
	case bytecode.OpRem:
		r = math.Mod(x, y)
	default:
		return Null, fmt.Errorf("%w: %s on floating operands", ErrTypeMismatch, op)
	}
	if a.kind == KindFloat32 && b.kind == KindFloat32 {
		return Float32(float32(r)), nil
	}
	return Float64(r), nil
}

func negate(v Value) (Value, error) {
	switch v.kind {
	case KindInt32:
		return Int32(-int32(v.Int())), nil
	case KindInt64:
		return Int64(-v.Int()), nil
	case KindFloat32:
		return Float32(-float32(v.Float())), nil
	case KindFloat64:
		return Float64(-v.Float()), nil
	}
	return Null, fmt.Errorf("%w: neg %s", ErrTypeMismatch, v.kind)
}

// compare evaluates a comparison opcode. The unsigned forms compare
// integers as unsigned and are true for unordered floating operands.
func compare(op bytecode.Opcode, a, b Value) (bool, error) {
	if op == bytecode.OpCeq {
		return Equal(a, b), nil
	}
	numeric := (a.IsInt() || a.IsFloat()) && (b.IsInt() || b.IsFloat())
	if !numeric {
		// cgt.un against null tests a reference for non-null.
		if op == bytecode.OpCgtUn && b.IsNull() && (a.kind == KindRef || a.IsNull()) {
			return !a.IsNull(), nil
		}
		return false, fmt.Errorf("%w: %s %s %s", ErrTypeMismatch, a.kind, op, b.kind)
	}

	if a.IsFloat() || b.IsFloat() {
		x, y := a.Float(), b.Float()
		unordered := math.IsNaN(x) || math.IsNaN(y)
		switch op {
		case bytecode.OpCgt:
			return x > y, nil
		case bytecode.OpClt:
			return x < y, nil
		case bytecode.OpCgtUn:
			return unordered || x > y, nil
		case bytecode.OpCltUn:
			return unordered || x < y, nil
		}
	} else {
		x, y := a.Int(), b.Int()
		ux, uy := uint64(x), uint64(y)
		if a.kind == KindInt32 && b.kind == KindInt32 {
			ux, uy = a.Uint(), b.Uint()
		}
		switch op {
		case bytecode.OpCgt:
			return x > y, nil
		case bytecode.OpClt:
			return x < y, nil
		case bytecode.OpCgtUn:
			return ux > uy, nil
		case bytecode.OpCltUn:
			return ux < uy, nil
		}
	}
	return false, fmt.Errorf("%w: %s", ErrInvalidOpcode, op)
}

// convert applies a conv.* opcode.
func convert(op bytecode.Opcode, v Value) (Value, error) {
	if !v.IsInt() && !v.IsFloat() {
		return Null, fmt.Errorf("%w: %s %s", ErrTypeMismatch, op, v.kind)
	}
	switch op {
	case bytecode.OpConvI1:
		return Int32(int32(int8(v.Int()))), nil
	case bytecode.OpConvI2:
		return Int32(int32(int16(v.Int()))), nil
	case bytecode.OpConvI4:
		return Int32(int32(v.Int())), nil
	case bytecode.OpConvI8:
		return Int64(v.Int()), nil
	case bytecode.OpConvU1:
		return Int32(int32(uint8(v.Int()))), nil
	case bytecode.OpConvU2:
		return Int32(int32(uint16(v.Int()))), nil
	case bytecode.OpConvU4:
		return Uint32(uint32(v.Int())), nil
	case bytecode.OpConvU8:
		if v.IsFloat() {
			return Uint64(uint64(v.Float())), nil
		}
		return Uint64(v.Uint()), nil
	case bytecode.OpConvR4:
		return Float32(float32(v.Float())), nil
	case bytecode.OpConvR8:
		return Float64(v.Float()), nil
	}
	return Null, fmt.Errorf("%w: %s", ErrInvalidOpcode, op)
}
