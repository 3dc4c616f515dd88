package vm

import (
	"strings"

	"github.com/chazu/ilgen/pkg/bytecode"
)

// Routine is an executable routine: its qualified name ("Class::name") and
// its sealed body.
type Routine struct {
	Name string
	Body *bytecode.Chunk
}

// Field describes one declared field of a class.
type Field struct {
	Name string
	Type bytecode.Type
}

// ClassLayout describes the fields a class declares itself. Inherited
// fields are found through Base.
type ClassLayout struct {
	Name   string
	Base   string
	Fields []Field
}

// FieldType returns the declared type of a field the class itself declares.
func (c *ClassLayout) FieldType(name string) (bytecode.Type, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return "", false
}

// Linker resolves the tokens found in routine bodies.
type Linker interface {
	LookupRoutine(qualifiedName string) (*Routine, bool)
	LookupClass(name string) (*ClassLayout, bool)
}

// QualifiedName joins a class and member name the way tokens spell them.
func QualifiedName(class, member string) string {
	return class + "::" + member
}

// SplitQualified splits "Class::member". A name without a separator is
// returned as the member.
func SplitQualified(name string) (class, member string) {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		return name[:i], name[i+2:]
	}
	return "", name
}
