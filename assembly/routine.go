package assembly

import (
	"fmt"
	"strings"

	"github.com/chazu/ilgen/pkg/bytecode"
)

// Attributes describe the visibility and binding of a routine.
type Attributes uint16

const (
	AttrPublic Attributes = 1 << iota
	AttrPrivate
	AttrStatic
	AttrSpecialName
)

// DefaultAttributes are used by Class.DefineRoutine.
const DefaultAttributes = AttrPublic | AttrStatic

func (a Attributes) String() string {
	var parts []string
	if a&AttrPublic != 0 {
		parts = append(parts, "public")
	}
	if a&AttrPrivate != 0 {
		parts = append(parts, "private")
	}
	if a&AttrStatic != 0 {
		parts = append(parts, "static")
	} else {
		parts = append(parts, "instance")
	}
	if a&AttrSpecialName != 0 {
		parts = append(parts, "specialname")
	}
	return strings.Join(parts, " ")
}

// Routine is a routine handle: a signature fixed at creation and a body
// that one generator acquires, fills and seals.
type Routine struct {
	class      *Class
	name       string
	attrs      Attributes
	returnType bytecode.Type
	paramTypes []bytecode.Type
	paramNames []string

	body     *bytecode.Chunk
	acquired bool
	sealed   bool
	err      error
}

func newRoutine(c *Class, name string, attrs Attributes, ret bytecode.Type, params []bytecode.Type) *Routine {
	if ret == "" {
		ret = bytecode.TypeVoid
	}
	body := bytecode.NewChunk()
	body.ReturnType = ret
	body.ParamTypes = append([]bytecode.Type(nil), params...)
	if attrs&AttrStatic == 0 {
		body.Flags |= bytecode.ChunkFlagInstance
	}
	return &Routine{
		class:      c,
		name:       name,
		attrs:      attrs,
		returnType: ret,
		paramTypes: body.ParamTypes,
		body:       body,
	}
}

func (r *Routine) Class() *Class { return r.class }

func (r *Routine) Name() string { return r.name }

func (r *Routine) Attributes() Attributes { return r.attrs }

func (r *Routine) ReturnType() bytecode.Type { return r.returnType }

// ParamTypes returns the declared parameter types, excluding the receiver.
func (r *Routine) ParamTypes() []bytecode.Type { return r.paramTypes }

func (r *Routine) IsStatic() bool { return r.attrs&AttrStatic != 0 }

// ArgCount returns the number of argument slots, including the receiver of
// instance routines.
func (r *Routine) ArgCount() int { return r.body.ArgCount() }

// Signature renders the name and parameter types, e.g. "Max(int32,int32)".
func (r *Routine) Signature() string {
	return signature(r.name, r.paramTypes)
}

// Token is the name call sites use to refer to the routine.
func (r *Routine) Token() string {
	return r.class.name + "::" + r.Signature()
}

func signature(name string, params []bytecode.Type) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = string(p)
	}
	return name + "(" + strings.Join(parts, ",") + ")"
}

// SetParamNames names the declared parameters in order. Names make the
// parameters addressable by name from a generator.
func (r *Routine) SetParamNames(names ...string) error {
	if r.sealed {
		return fmt.Errorf("%w: %s", ErrSealed, r.Token())
	}
	if len(names) != len(r.paramTypes) {
		return fmt.Errorf("%w: %s has %d parameters, got %d names",
			ErrInvalidSignature, r.Token(), len(r.paramTypes), len(names))
	}
	r.paramNames = append([]string(nil), names...)
	r.body.ParamNames = r.paramNames
	return nil
}

// ParamNames returns the names given with SetParamNames, or nil.
func (r *Routine) ParamNames() []string { return r.paramNames }

// Body hands out the instruction writer. It can be acquired once.
func (r *Routine) Body() (*bytecode.Chunk, error) {
	if r.sealed {
		return nil, fmt.Errorf("%w: %s", ErrSealed, r.Token())
	}
	if r.acquired {
		return nil, fmt.Errorf("%w: %s", ErrBodyAcquired, r.Token())
	}
	r.acquired = true
	return r.body, nil
}

// Chunk returns the body for inspection without acquiring it.
func (r *Routine) Chunk() *bytecode.Chunk { return r.body }

// Seal records the outcome of constructing the body. A non-nil err marks
// the routine failed; a body that still branches to unplaced labels is
// failed as well. Seal returns the error the routine ends up with.
func (r *Routine) Seal(err error) error {
	if r.sealed {
		return fmt.Errorf("%w: %s", ErrSealed, r.Token())
	}
	r.sealed = true
	if err == nil {
		if pending := r.body.Unresolved(); len(pending) > 0 {
			names := make([]string, len(pending))
			for i, l := range pending {
				names[i] = l.String()
			}
			err = fmt.Errorf("%w: %s", ErrUnresolvedLabel, strings.Join(names, ", "))
		}
	}
	r.err = err
	if err != nil {
		log.Warningf("routine %s failed: %v", r.Token(), err)
	}
	return err
}

func (r *Routine) Sealed() bool { return r.sealed }

// Err returns the error recorded by Seal.
func (r *Routine) Err() error { return r.err }
