package emit

import (
	"fmt"

	"github.com/chazu/ilgen/assembly"
	"github.com/chazu/ilgen/pkg/bytecode"
)

// Pop discards the value on top of the stack.
func (g *Generator) Pop() *Generator {
	return g.op(bytecode.OpPop)
}

// Dup duplicates the value on top of the stack.
func (g *Generator) Dup() *Generator {
	return g.op(bytecode.OpDup)
}

// Return returns from the routine. A non-void routine returns the value
// on top of the stack, or o when given.
func (g *Generator) Return(o ...Operand) *Generator {
	if !g.ok() {
		return g
	}
	switch len(o) {
	case 0:
	case 1:
		g.Load(o[0])
	default:
		return g.fail(fmt.Errorf("%w: Return got %d", ErrOperandCount, len(o)))
	}
	return g.op(bytecode.OpRet)
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

// Call calls r. Its arguments, receiver first for instance routines, must
// be on the stack.
func (g *Generator) Call(r *assembly.Routine) *Generator {
	if !g.ok() {
		return g
	}
	if r == nil {
		return g.fail(fmt.Errorf("%w: nil routine", ErrUnknownMember))
	}
	return g.token(bytecode.OpCall, r.Token())
}

// CallMethod resolves the routine of class with the given name and
// parameter types, searching base classes, and calls it.
func (g *Generator) CallMethod(class, name string, params ...bytecode.Type) *Generator {
	if !g.ok() {
		return g
	}
	r, err := g.resolveRoutine(class, name, params)
	if err != nil {
		return g.fail(err)
	}
	return g.Call(r)
}

func (g *Generator) resolveRoutine(class, name string, params []bytecode.Type) (*assembly.Routine, error) {
	if g.types == nil {
		return nil, fmt.Errorf("%w: %s::%s without a module", ErrUnknownMember, class, name)
	}
	return g.types.Routine(class, name, params...)
}

// NewObject allocates an instance of the constructor's class and runs the
// constructor on it. The constructor arguments must be on the stack; the
// new object is left in their place.
func (g *Generator) NewObject(ctor *assembly.Routine) *Generator {
	if !g.ok() {
		return g
	}
	if ctor == nil {
		return g.fail(fmt.Errorf("%w: nil constructor", ErrUnknownMember))
	}
	return g.token(bytecode.OpNewObj, ctor.Token())
}

// NewObjectOf resolves the constructor of class taking params and emits
// NewObject with it.
func (g *Generator) NewObjectOf(class string, params ...bytecode.Type) *Generator {
	if !g.ok() {
		return g
	}
	ctor, err := g.resolveRoutine(class, assembly.ConstructorName, params)
	if err != nil {
		return g.fail(err)
	}
	if ctor.Class().Name() != class {
		return g.fail(fmt.Errorf("%w: %s has no constructor %s", ErrUnknownMember, class, ctor.Signature()))
	}
	return g.NewObject(ctor)
}

// ---------------------------------------------------------------------------
// Fields
// ---------------------------------------------------------------------------

func (g *Generator) fieldToken(class, name string) (string, bool) {
	if g.types == nil {
		g.fail(fmt.Errorf("%w: %s.%s without a module", ErrUnknownMember, class, name))
		return "", false
	}
	f, err := g.types.Field(class, name)
	if err != nil {
		g.fail(err)
		return "", false
	}
	return f.Token(), true
}

// LoadField replaces the object on top of the stack with its field name.
// The field may be declared by a base class.
func (g *Generator) LoadField(class, name string) *Generator {
	if !g.ok() {
		return g
	}
	tok, ok := g.fieldToken(class, name)
	if !ok {
		return g
	}
	return g.token(bytecode.OpLdFld, tok)
}

// StoreField pops a value and an object and stores the value in the
// object's field name.
func (g *Generator) StoreField(class, name string) *Generator {
	if !g.ok() {
		return g
	}
	tok, ok := g.fieldToken(class, name)
	if !ok {
		return g
	}
	return g.token(bytecode.OpStFld, tok)
}

// ---------------------------------------------------------------------------
// Arrays
// ---------------------------------------------------------------------------

// NewArray pops a length and pushes a zeroed array of elem.
func (g *Generator) NewArray(elem bytecode.Type) *Generator {
	if !g.ok() {
		return g
	}
	if elem.IsVoid() || elem == "" {
		return g.fail(fmt.Errorf("%w: array of %q", ErrUnsupportedType, elem))
	}
	return g.token(bytecode.OpNewArr, string(elem))
}

// LoadElement pops an array and an index and pushes the element.
func (g *Generator) LoadElement() *Generator {
	return g.op(bytecode.OpLdElem)
}

// StoreElement pops an array, an index and a value and stores the value.
func (g *Generator) StoreElement() *Generator {
	return g.op(bytecode.OpStElem)
}

// ArrayLength replaces the array on top of the stack with its length.
func (g *Generator) ArrayLength() *Generator {
	return g.op(bytecode.OpLdLen)
}
