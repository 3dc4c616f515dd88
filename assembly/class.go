package assembly

import (
	"fmt"
	"slices"

	"github.com/hashicorp/go-multierror"

	"github.com/chazu/ilgen/pkg/bytecode"
	"github.com/chazu/ilgen/vm"
)

// ConstructorName is the routine name of instance constructors.
const ConstructorName = ".ctor"

// Class is a class under construction. Fields and routines are added until
// Finish seals it.
type Class struct {
	module   *Module
	name     string
	base     string
	fields   []vm.Field
	routines []*Routine
	finished bool
}

func (c *Class) Name() string { return c.name }

// Base returns the base class name, or "" for a root class.
func (c *Class) Base() string { return c.base }

func (c *Class) Module() *Module { return c.module }

func (c *Class) Fields() []vm.Field { return c.fields }

func (c *Class) Routines() []*Routine { return c.routines }

func (c *Class) Finished() bool { return c.finished }

// Type returns the class as a value type name.
func (c *Class) Type() bytecode.Type { return bytecode.Type(c.name) }

// DefineField adds a field.
func (c *Class) DefineField(name string, t bytecode.Type) error {
	if c.finished {
		return fmt.Errorf("%w: %s", ErrClassFinished, c.name)
	}
	for _, f := range c.fields {
		if f.Name == name {
			return fmt.Errorf("%w: field %s.%s", ErrDuplicateMember, c.name, name)
		}
	}
	c.fields = append(c.fields, vm.Field{Name: name, Type: t})
	return nil
}

// FieldToken is the name field access instructions use for a field of c.
func (c *Class) FieldToken(name string) string {
	return vm.QualifiedName(c.name, name)
}

// DefineRoutine adds a public static routine.
func (c *Class) DefineRoutine(name string, ret bytecode.Type, params ...bytecode.Type) (*Routine, error) {
	return c.DefineRoutineWithAttrs(name, DefaultAttributes, ret, params...)
}

// DefineRoutineWithAttrs adds a routine with explicit attributes. Without
// AttrStatic the routine is instance-bound and argument 0 is the receiver.
func (c *Class) DefineRoutineWithAttrs(name string, attrs Attributes, ret bytecode.Type, params ...bytecode.Type) (*Routine, error) {
	if c.finished {
		return nil, fmt.Errorf("%w: %s", ErrClassFinished, c.name)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty routine name in %s", ErrInvalidSignature, c.name)
	}
	for _, p := range params {
		if p.IsVoid() {
			return nil, fmt.Errorf("%w: void parameter in %s.%s", ErrInvalidSignature, c.name, name)
		}
	}
	if existing := c.lookupRoutine(name, params); existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateMember, existing.Token())
	}
	r := newRoutine(c, name, attrs, ret, params)
	c.routines = append(c.routines, r)
	log.Debugf("defined %s %s", attrs, r.Token())
	return r, nil
}

// DefineConstructor adds an instance constructor taking params.
func (c *Class) DefineConstructor(params ...bytecode.Type) (*Routine, error) {
	return c.DefineRoutineWithAttrs(ConstructorName, AttrPublic|AttrSpecialName, bytecode.TypeVoid, params...)
}

func (c *Class) lookupRoutine(name string, params []bytecode.Type) *Routine {
	for _, r := range c.routines {
		if r.name == name && slices.Equal(r.paramTypes, params) {
			return r
		}
	}
	return nil
}

// Finish seals the class. Every routine must have been sealed without
// error; all problems are reported together. A finished class accepts no
// new members.
func (c *Class) Finish() error {
	if c.finished {
		return nil
	}
	var result *multierror.Error
	if c.base != "" {
		if _, ok := c.module.Class(c.base); !ok {
			result = multierror.Append(result, fmt.Errorf("%w: %s extends %s", ErrUnknownClass, c.name, c.base))
		}
	}
	for _, r := range c.routines {
		switch {
		case !r.sealed:
			result = multierror.Append(result, fmt.Errorf("%w: %s", ErrNotSealed, r.Token()))
		case r.err != nil:
			result = multierror.Append(result, fmt.Errorf("%w: %s: %w", ErrRoutineFailed, r.Token(), r.err))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}
	c.finished = true
	log.Infof("finished class %s (%d fields, %d routines)", c.name, len(c.fields), len(c.routines))
	return nil
}
