package emit

import (
	"fmt"

	"github.com/chazu/ilgen/pkg/bytecode"
)

// Operand is a value the generator knows how to push: a named local, an
// argument or a literal. The set is closed; build operands with the
// functions below.
type Operand interface {
	load(g *Generator) *Generator
	String() string
}

type localOperand string

func (o localOperand) load(g *Generator) *Generator { return g.LoadLocal(string(o)) }
func (o localOperand) String() string               { return string(o) }

type argOperand int

func (o argOperand) load(g *Generator) *Generator { return g.LoadArg(int(o)) }
func (o argOperand) String() string               { return fmt.Sprintf("arg%d", int(o)) }

type paramOperand string

func (o paramOperand) load(g *Generator) *Generator { return g.LoadArgNamed(string(o)) }
func (o paramOperand) String() string               { return "$" + string(o) }

type literalOperand Literal

func (o literalOperand) load(g *Generator) *Generator { return g.PushLiteral(Literal(o)) }

func (o literalOperand) String() string {
	switch o.Type {
	case bytecode.TypeFloat32, bytecode.TypeFloat64:
		return fmt.Sprintf("%v:%s", o.Float, o.Type)
	case bytecode.TypeUint64:
		return fmt.Sprintf("%d:%s", uint64(o.Int), o.Type)
	}
	return fmt.Sprintf("%d:%s", o.Int, o.Type)
}

// Local is the local called name.
func Local(name string) Operand { return localOperand(name) }

// Arg is the argument at index.
func Arg(index int) Operand { return argOperand(index) }

// Param is the argument called name.
func Param(name string) Operand { return paramOperand(name) }

// Lit is an arbitrary literal.
func Lit(l Literal) Operand { return literalOperand(l) }

// Int is an int32 literal.
func Int(v int32) Operand {
	return literalOperand{Type: bytecode.TypeInt32, Int: int64(v)}
}

// Uint is a uint32 literal.
func Uint(v uint32) Operand {
	return literalOperand{Type: bytecode.TypeUint32, Int: int64(v)}
}

// Long is an int64 literal.
func Long(v int64) Operand {
	return literalOperand{Type: bytecode.TypeInt64, Int: v}
}

// Ulong is a uint64 literal.
func Ulong(v uint64) Operand {
	return literalOperand{Type: bytecode.TypeUint64, Int: int64(v)}
}

// Float is a float32 literal.
func Float(v float32) Operand {
	return literalOperand{Type: bytecode.TypeFloat32, Float: float64(v)}
}

// Double is a float64 literal.
func Double(v float64) Operand {
	return literalOperand{Type: bytecode.TypeFloat64, Float: v}
}

// Load pushes an operand.
func (g *Generator) Load(o Operand) *Generator {
	if !g.ok() {
		return g
	}
	if o == nil {
		return g.fail(fmt.Errorf("%w: nil operand", ErrOperandCount))
	}
	return o.load(g)
}

// operands pushes both operands of a binary operator, left first. With no
// operands the values are expected on the stack already.
func (g *Generator) operands(what string, ops []Operand) *Generator {
	switch len(ops) {
	case 0:
		return g
	case 2:
		return g.Load(ops[0]).Load(ops[1])
	}
	return g.fail(fmt.Errorf("%w: %s got %d", ErrOperandCount, what, len(ops)))
}
