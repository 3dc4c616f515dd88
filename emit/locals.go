package emit

import (
	"fmt"
	"math"

	"github.com/chazu/ilgen/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Locals
// ---------------------------------------------------------------------------

// DeclareLocal allocates the next local slot for name. Slots are assigned
// in declaration order from 0 and never reused. A name is declared once.
func (g *Generator) DeclareLocal(name string, t bytecode.Type) *Generator {
	if !g.ok() {
		return g
	}
	if _, exists := g.locals[name]; exists {
		return g.fail(fmt.Errorf("%w: %s", ErrDuplicateLocal, name))
	}
	if t.IsVoid() || t == "" {
		return g.fail(fmt.Errorf("%w: local %s of type %q", ErrUnsupportedType, name, t))
	}
	if g.body.LocalCount() > math.MaxUint16 {
		return g.fail(fmt.Errorf("%w: %s", ErrTooManyLocals, name))
	}
	slot := g.body.AddLocal(name, t)
	g.locals[name] = local{slot: slot, typ: t}
	return g
}

// LocalType returns the declared type of a local.
func (g *Generator) LocalType(name string) (bytecode.Type, bool) {
	l, ok := g.locals[name]
	return l.typ, ok
}

func (g *Generator) lookupLocal(name string) (local, bool) {
	l, ok := g.locals[name]
	if !ok {
		g.fail(fmt.Errorf("%w: %s", ErrUnknownLocal, name))
	}
	return l, ok
}

// LoadLocal pushes a local. Slots 0-3 use the one-byte forms.
func (g *Generator) LoadLocal(name string) *Generator {
	if !g.ok() {
		return g
	}
	l, ok := g.lookupLocal(name)
	if !ok {
		return g
	}
	if op, short := bytecode.ShortLdLoc(l.slot); short {
		return g.op(op)
	}
	return g.instr(bytecode.Instruction{Op: bytecode.OpLdLoc, Int: int64(l.slot)})
}

// StoreLocal pops into a local. Slots 0-3 use the one-byte forms.
func (g *Generator) StoreLocal(name string) *Generator {
	if !g.ok() {
		return g
	}
	l, ok := g.lookupLocal(name)
	if !ok {
		return g
	}
	if op, short := bytecode.ShortStLoc(l.slot); short {
		return g.op(op)
	}
	return g.instr(bytecode.Instruction{Op: bytecode.OpStLoc, Int: int64(l.slot)})
}

// Assign loads v and stores it into the local name.
func (g *Generator) Assign(name string, v Operand) *Generator {
	return g.Load(v).StoreLocal(name)
}

// Increment adds one to a numeric local.
func (g *Generator) Increment(name string) *Generator {
	return g.step(name, bytecode.OpAdd)
}

// Decrement subtracts one from a numeric local.
func (g *Generator) Decrement(name string) *Generator {
	return g.step(name, bytecode.OpSub)
}

func (g *Generator) step(name string, op bytecode.Opcode) *Generator {
	if !g.ok() {
		return g
	}
	l, ok := g.lookupLocal(name)
	if !ok {
		return g
	}
	one, err := unitOf(l.typ)
	if err != nil {
		return g.fail(fmt.Errorf("%s: %w", name, err))
	}
	return g.LoadLocal(name).PushLiteral(one).op(op).StoreLocal(name)
}

// unitOf returns the literal 1 in the stack representation of t.
func unitOf(t bytecode.Type) (Literal, error) {
	switch t.StackKind() {
	case bytecode.KindInt32:
		return Literal{Type: bytecode.TypeInt32, Int: 1}, nil
	case bytecode.KindInt64:
		return Literal{Type: bytecode.TypeInt64, Int: 1}, nil
	case bytecode.KindFloat32:
		return Literal{Type: bytecode.TypeFloat32, Float: 1}, nil
	case bytecode.KindFloat64:
		return Literal{Type: bytecode.TypeFloat64, Float: 1}, nil
	}
	return Literal{}, fmt.Errorf("%w: cannot step a %s", ErrUnsupportedType, t)
}

// ---------------------------------------------------------------------------
// Arguments
// ---------------------------------------------------------------------------

func (g *Generator) checkArg(index int) bool {
	if index < 0 || index >= g.body.ArgCount() {
		g.fail(fmt.Errorf("%w: %d of %d", ErrUnknownArg, index, g.body.ArgCount()))
		return false
	}
	return true
}

// LoadArg pushes argument index. Instance routines have the receiver at
// index 0. Indexes 0-3 use the one-byte forms.
func (g *Generator) LoadArg(index int) *Generator {
	if !g.ok() || !g.checkArg(index) {
		return g
	}
	if op, short := bytecode.ShortLdArg(index); short {
		return g.op(op)
	}
	return g.instr(bytecode.Instruction{Op: bytecode.OpLdArg, Int: int64(index)})
}

// StoreArg pops into argument index.
func (g *Generator) StoreArg(index int) *Generator {
	if !g.ok() || !g.checkArg(index) {
		return g
	}
	return g.instr(bytecode.Instruction{Op: bytecode.OpStArg, Int: int64(index)})
}

// ArgIndex resolves a parameter name given to the routine. Instance
// routines also know their receiver as "this".
func (g *Generator) ArgIndex(name string) (int, bool) {
	i, ok := g.params[name]
	return i, ok
}

// LoadArgNamed pushes the argument called name.
func (g *Generator) LoadArgNamed(name string) *Generator {
	if !g.ok() {
		return g
	}
	i, ok := g.params[name]
	if !ok {
		return g.fail(fmt.Errorf("%w: %s", ErrUnknownArg, name))
	}
	return g.LoadArg(i)
}

// StoreArgNamed pops into the argument called name.
func (g *Generator) StoreArgNamed(name string) *Generator {
	if !g.ok() {
		return g
	}
	i, ok := g.params[name]
	if !ok {
		return g.fail(fmt.Errorf("%w: %s", ErrUnknownArg, name))
	}
	return g.StoreArg(i)
}
