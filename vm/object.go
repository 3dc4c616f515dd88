package vm

import (
	"fmt"
	"strings"

	"github.com/chazu/ilgen/pkg/bytecode"
)

// Object is an instance of a class. Fields of the whole base chain live in
// one map keyed by field name.
type Object struct {
	Class  *ClassLayout
	Fields map[string]Value
}

func (o *Object) String() string {
	return fmt.Sprintf("%s@%p", o.Class.Name, o)
}

// Array is a fixed-length array with a declared element type.
type Array struct {
	Elem  bytecode.Type
	Items []Value
}

func (a *Array) String() string {
	parts := make([]string, len(a.Items))
	for i, v := range a.Items {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%s[%s]", a.Elem, strings.Join(parts, " "))
}

// Boxed is a value-type value moved to the heap by box.
type Boxed struct {
	Type  bytecode.Type
	Value Value
}

func (b *Boxed) String() string {
	return fmt.Sprintf("box(%s %s)", b.Type, b.Value)
}

// newObject allocates an instance of layout with every field of the base
// chain set to its zero value.
func (i *Interpreter) newObject(layout *ClassLayout) *Object {
	obj := &Object{Class: layout, Fields: make(map[string]Value)}
	for c := layout; c != nil; c = i.baseOf(c) {
		for _, f := range c.Fields {
			if _, shadowed := obj.Fields[f.Name]; !shadowed {
				obj.Fields[f.Name] = Zero(f.Type)
			}
		}
	}
	return obj
}

func (i *Interpreter) baseOf(c *ClassLayout) *ClassLayout {
	if c.Base == "" {
		return nil
	}
	base, ok := i.linker.LookupClass(c.Base)
	if !ok {
		return nil
	}
	return base
}

// isInstanceOf reports whether v may be treated as type t by castclass.
func (i *Interpreter) isInstanceOf(v Value, t bytecode.Type) bool {
	if v.IsNull() || t == bytecode.TypeObject {
		return true
	}
	switch r := v.ref.(type) {
	case string:
		return t == bytecode.TypeString
	case *Array:
		return t.IsArray() && r.Elem == t.Elem()
	case *Boxed:
		return r.Type == t
	case *Object:
		for c := r.Class; c != nil; c = i.baseOf(c) {
			if bytecode.Type(c.Name) == t {
				return true
			}
		}
	}
	return false
}
