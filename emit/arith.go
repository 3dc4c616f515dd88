package emit

import (
	"fmt"

	"github.com/chazu/ilgen/pkg/bytecode"
)

// Arithmetic operators follow the comparator protocol: zero operands work
// on the two values on top of the stack, two operands are pushed left
// first. The result is left on the stack.

func (g *Generator) arith(name string, op bytecode.Opcode, ops []Operand) *Generator {
	if !g.ok() {
		return g
	}
	return g.operands(name, ops).op(op)
}

// Add pushes left + right.
func (g *Generator) Add(ops ...Operand) *Generator {
	return g.arith("Add", bytecode.OpAdd, ops)
}

// Subtract pushes left - right.
func (g *Generator) Subtract(ops ...Operand) *Generator {
	return g.arith("Subtract", bytecode.OpSub, ops)
}

// Multiply pushes left * right.
func (g *Generator) Multiply(ops ...Operand) *Generator {
	return g.arith("Multiply", bytecode.OpMul, ops)
}

// Divide pushes left / right, treating integers as signed.
func (g *Generator) Divide(ops ...Operand) *Generator {
	return g.arith("Divide", bytecode.OpDiv, ops)
}

// DivideUnsigned pushes left / right, treating integers as unsigned.
func (g *Generator) DivideUnsigned(ops ...Operand) *Generator {
	return g.arith("DivideUnsigned", bytecode.OpDivUn, ops)
}

// Modulus pushes the remainder of left / right, treating integers as signed.
func (g *Generator) Modulus(ops ...Operand) *Generator {
	return g.arith("Modulus", bytecode.OpRem, ops)
}

// ModulusUnsigned pushes the remainder of left / right, treating integers
// as unsigned.
func (g *Generator) ModulusUnsigned(ops ...Operand) *Generator {
	return g.arith("ModulusUnsigned", bytecode.OpRemUn, ops)
}

// Negate negates the value on top of the stack, or o when given.
func (g *Generator) Negate(o ...Operand) *Generator {
	if !g.ok() {
		return g
	}
	switch len(o) {
	case 0:
	case 1:
		g.Load(o[0])
	default:
		return g.fail(fmt.Errorf("%w: Negate got %d", ErrOperandCount, len(o)))
	}
	return g.op(bytecode.OpNeg)
}

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

var conversions = map[bytecode.Type]bytecode.Opcode{
	bytecode.TypeInt8:    bytecode.OpConvI1,
	bytecode.TypeInt16:   bytecode.OpConvI2,
	bytecode.TypeInt32:   bytecode.OpConvI4,
	bytecode.TypeInt64:   bytecode.OpConvI8,
	bytecode.TypeUint8:   bytecode.OpConvU1,
	bytecode.TypeUint16:  bytecode.OpConvU2,
	bytecode.TypeUint32:  bytecode.OpConvU4,
	bytecode.TypeUint64:  bytecode.OpConvU8,
	bytecode.TypeFloat32: bytecode.OpConvR4,
	bytecode.TypeFloat64: bytecode.OpConvR8,
}

// Convert converts the numeric value on top of the stack to t.
func (g *Generator) Convert(t bytecode.Type) *Generator {
	if !g.ok() {
		return g
	}
	op, ok := conversions[t]
	if !ok {
		return g.fail(fmt.Errorf("%w: conversion to %s", ErrUnsupportedType, t))
	}
	return g.op(op)
}

// Box wraps the value on top of the stack as an object of type t.
func (g *Generator) Box(t bytecode.Type) *Generator {
	return g.token(bytecode.OpBox, string(t))
}

// Unbox extracts a value of type t from a boxed object.
func (g *Generator) Unbox(t bytecode.Type) *Generator {
	return g.token(bytecode.OpUnbox, string(t))
}

// CastClass checks that the reference on top of the stack is a t.
func (g *Generator) CastClass(t bytecode.Type) *Generator {
	return g.token(bytecode.OpCastClass, string(t))
}
