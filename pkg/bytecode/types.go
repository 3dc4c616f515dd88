package bytecode

import "strings"

// Type names a value type of the target platform. Built-in types use the
// lower-case names below; any other name refers to a class, and a trailing
// "[]" makes an array of the element type.
type Type string

const (
	TypeVoid    Type = "void"
	TypeBool    Type = "bool"
	TypeInt8    Type = "int8"
	TypeInt16   Type = "int16"
	TypeInt32   Type = "int32"
	TypeInt64   Type = "int64"
	TypeUint8   Type = "uint8"
	TypeUint16  Type = "uint16"
	TypeUint32  Type = "uint32"
	TypeUint64  Type = "uint64"
	TypeFloat32 Type = "float32"
	TypeFloat64 Type = "float64"
	TypeString  Type = "string"
	TypeObject  Type = "object"
)

// StackKind is the representation a value of some Type takes on the
// operand stack. Narrow integers widen to int32, unsigned integers share
// the signed representation and are reinterpreted by the unsigned opcodes.
type StackKind uint8

const (
	KindNone StackKind = iota
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindRef
)

// String returns a human-readable name for StackKind.
func (k StackKind) String() string {
	switch k {
	case KindNone:
		return "none"
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
		return "StackKind(?)"
	}
}

// ArrayOf returns the array type whose elements are t.
func ArrayOf(t Type) Type {
	return t + "[]"
}

// IsArray reports whether t is an array type.
func (t Type) IsArray() bool {
	return strings.HasSuffix(string(t), "[]")
}

// Elem returns the element type of an array type, or "" if t is not one.
func (t Type) Elem() Type {
	if !t.IsArray() {
		return ""
	}
	return t[:len(t)-2]
}

// IsVoid reports whether t denotes the absence of a value.
func (t Type) IsVoid() bool {
	return t == "" || t == TypeVoid
}

// IsPrimitive reports whether t is one of the built-in value types.
func (t Type) IsPrimitive() bool {
	switch t {
	case TypeBool, TypeInt8, TypeInt16, TypeInt32, TypeInt64,
		TypeUint8, TypeUint16, TypeUint32, TypeUint64,
		TypeFloat32, TypeFloat64:
		return true
	}
	return false
}

// IsUnsigned reports whether t is an unsigned integer type.
func (t Type) IsUnsigned() bool {
	switch t {
	case TypeUint8, TypeUint16, TypeUint32, TypeUint64:
		return true
	}
	return false
}

// IsClass reports whether t names a user-defined class.
func (t Type) IsClass() bool {
	return !t.IsVoid() && !t.IsPrimitive() && !t.IsArray() &&
		t != TypeString && t != TypeObject
}

// StackKind returns the operand-stack representation of t.
func (t Type) StackKind() StackKind {
	switch t {
	case "", TypeVoid:
		return KindNone
	case TypeBool, TypeInt8, TypeInt16, TypeInt32, TypeUint8, TypeUint16, TypeUint32:
		return KindInt32
	case TypeInt64, TypeUint64:
		return KindInt64
	case TypeFloat32:
		return KindFloat32
	case TypeFloat64:
		return KindFloat64
	default:
		return KindRef
	}
}

// String returns the type name.
func (t Type) String() string {
	if t == "" {
		return string(TypeVoid)
	}
	return string(t)
}
