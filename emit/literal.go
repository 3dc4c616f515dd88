package emit

import (
	"fmt"
	"math"

	"github.com/chazu/ilgen/pkg/bytecode"
)

// Literal is a numeric constant of a declared type. Int carries the value
// of integer and bool literals (uint64 values are stored by bit pattern);
// Float carries floating literals.
type Literal struct {
	Type  bytecode.Type
	Int   int64
	Float float64
}

// EncodeLiteral picks the smallest instruction that pushes l.
//
// Integer literals of 32 bits or less use ldc.i4.m1..ldc.i4.8 for -1..8,
// ldc.i4.s for the rest of -128..127 and ldc.i4 otherwise. The tier is
// chosen on the 32-bit pattern, so uint32 0xFFFFFFFF is ldc.i4.m1. 64-bit
// integers always use ldc.i8, floating literals ldc.r4 or ldc.r8.
func EncodeLiteral(l Literal) (bytecode.Instruction, error) {
	switch l.Type {
	case bytecode.TypeBool, bytecode.TypeInt8, bytecode.TypeInt16, bytecode.TypeInt32,
		bytecode.TypeUint8, bytecode.TypeUint16, bytecode.TypeUint32:
		return encodeInt32(l.Int), nil
	case bytecode.TypeInt64, bytecode.TypeUint64:
		return bytecode.Instruction{Op: bytecode.OpLdcI8, Int: l.Int}, nil
	case bytecode.TypeFloat32:
		return bytecode.Instruction{Op: bytecode.OpLdcR4, Float: float64(float32(l.Float))}, nil
	case bytecode.TypeFloat64:
		return bytecode.Instruction{Op: bytecode.OpLdcR8, Float: l.Float}, nil
	}
	return bytecode.Instruction{}, fmt.Errorf("%w: literal of type %s", ErrUnsupportedType, l.Type)
}

func encodeInt32(v int64) bytecode.Instruction {
	v = int64(int32(v))
	switch {
	case v >= -1 && v <= 8:
		return bytecode.Instruction{Op: bytecode.OpLdcI4M1 + bytecode.Opcode(v+1), Int: v}
	case v >= math.MinInt8 && v <= math.MaxInt8:
		return bytecode.Instruction{Op: bytecode.OpLdcI4S, Int: v}
	}
	return bytecode.Instruction{Op: bytecode.OpLdcI4, Int: v}
}

// PushLiteral emits the encoding of l.
func (g *Generator) PushLiteral(l Literal) *Generator {
	if !g.ok() {
		return g
	}
	in, err := EncodeLiteral(l)
	if err != nil {
		return g.fail(err)
	}
	return g.instr(in)
}

// PushInt8 pushes an int8 constant.
func (g *Generator) PushInt8(v int8) *Generator {
	return g.PushLiteral(Literal{Type: bytecode.TypeInt8, Int: int64(v)})
}

// PushInt16 pushes an int16 constant.
func (g *Generator) PushInt16(v int16) *Generator {
	return g.PushLiteral(Literal{Type: bytecode.TypeInt16, Int: int64(v)})
}

// PushInt32 pushes an int32 constant.
func (g *Generator) PushInt32(v int32) *Generator {
	return g.PushLiteral(Literal{Type: bytecode.TypeInt32, Int: int64(v)})
}

// PushInt64 pushes an int64 constant with ldc.i8.
func (g *Generator) PushInt64(v int64) *Generator {
	return g.PushLiteral(Literal{Type: bytecode.TypeInt64, Int: v})
}

// PushUint8 pushes a uint8 constant.
func (g *Generator) PushUint8(v uint8) *Generator {
	return g.PushLiteral(Literal{Type: bytecode.TypeUint8, Int: int64(v)})
}

// PushUint16 pushes a uint16 constant.
func (g *Generator) PushUint16(v uint16) *Generator {
	return g.PushLiteral(Literal{Type: bytecode.TypeUint16, Int: int64(v)})
}

// PushUint32 pushes a uint32 constant by its 32-bit pattern.
func (g *Generator) PushUint32(v uint32) *Generator {
	return g.PushLiteral(Literal{Type: bytecode.TypeUint32, Int: int64(v)})
}

// PushUint64 pushes a uint64 constant by its 64-bit pattern.
func (g *Generator) PushUint64(v uint64) *Generator {
	return g.PushLiteral(Literal{Type: bytecode.TypeUint64, Int: int64(v)})
}

// PushFloat32 pushes a float32 constant with ldc.r4.
func (g *Generator) PushFloat32(v float32) *Generator {
	return g.PushLiteral(Literal{Type: bytecode.TypeFloat32, Float: float64(v)})
}

// PushFloat64 pushes a float64 constant with ldc.r8.
func (g *Generator) PushFloat64(v float64) *Generator {
	return g.PushLiteral(Literal{Type: bytecode.TypeFloat64, Float: v})
}

// PushBool pushes 1 or 0.
func (g *Generator) PushBool(v bool) *Generator {
	l := Literal{Type: bytecode.TypeBool}
	if v {
		l.Int = 1
	}
	return g.PushLiteral(l)
}

// PushString pushes a string constant.
func (g *Generator) PushString(s string) *Generator {
	return g.token(bytecode.OpLdStr, s)
}

// PushNull pushes the null reference.
func (g *Generator) PushNull() *Generator {
	return g.op(bytecode.OpLdNull)
}
