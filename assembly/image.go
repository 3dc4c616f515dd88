package assembly

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/chazu/ilgen/pkg/bytecode"
	"github.com/chazu/ilgen/vm"
)

// ImageVersion is the current image format version.
const ImageVersion uint16 = 1

// Image is a sealed module: its classes with their fields and the encoded
// bodies of their routines. An Image implements vm.Linker.
type Image struct {
	Name    string       `cbor:"1,keyasint"`
	ID      uuid.UUID    `cbor:"2,keyasint"`
	Version uint16       `cbor:"3,keyasint"`
	Classes []ClassImage `cbor:"4,keyasint"`
	Digest  [32]byte     `cbor:"5,keyasint"` // sha256 over the canonical encoding of the classes

	linkOnce sync.Once
	linkErr  error
	routines map[string]*vm.Routine
	layouts  map[string]*vm.ClassLayout
}

// ClassImage is one sealed class.
type ClassImage struct {
	Name     string         `cbor:"1,keyasint"`
	Base     string         `cbor:"2,keyasint,omitempty"`
	Fields   []FieldImage   `cbor:"3,keyasint,omitempty"`
	Routines []RoutineImage `cbor:"4,keyasint,omitempty"`
}

// FieldImage is one declared field.
type FieldImage struct {
	Name string `cbor:"1,keyasint"`
	Type string `cbor:"2,keyasint"`
}

// RoutineImage is one routine with its ILBC-encoded body.
type RoutineImage struct {
	Name  string     `cbor:"1,keyasint"`
	Token string     `cbor:"2,keyasint"`
	Attrs Attributes `cbor:"3,keyasint"`
	Body  []byte     `cbor:"4,keyasint"`
}

func (img *Image) computeDigest() ([32]byte, error) {
	data, err := cborEncMode.Marshal(img.Classes)
	if err != nil {
		return [32]byte{}, fmt.Errorf("encode classes: %w", err)
	}
	return sha256.Sum256(data), nil
}

// Verify checks the digest against the image contents.
func (img *Image) Verify() error {
	digest, err := img.computeDigest()
	if err != nil {
		return err
	}
	if digest != img.Digest {
		return fmt.Errorf("%w: %s", ErrDigestMismatch, img.Name)
	}
	return nil
}

// Link decodes every routine body and indexes routines and classes. It runs
// once; later calls return the first result.
func (img *Image) Link() error {
	img.linkOnce.Do(func() {
		img.linkErr = img.link()
	})
	return img.linkErr
}

func (img *Image) link() error {
	img.routines = make(map[string]*vm.Routine)
	img.layouts = make(map[string]*vm.ClassLayout)
	bare := make(map[string][]*vm.Routine)

	for _, ci := range img.Classes {
		layout := &vm.ClassLayout{Name: ci.Name, Base: ci.Base}
		for _, f := range ci.Fields {
			layout.Fields = append(layout.Fields, vm.Field{Name: f.Name, Type: bytecode.Type(f.Type)})
		}
		img.layouts[ci.Name] = layout

		for _, ri := range ci.Routines {
			body, err := bytecode.Deserialize(ri.Body)
			if err != nil {
				return fmt.Errorf("link %s: %w", ri.Token, err)
			}
			r := &vm.Routine{Name: ri.Token, Body: body}
			img.routines[ri.Token] = r
			name := vm.QualifiedName(ci.Name, ri.Name)
			bare[name] = append(bare[name], r)
		}
	}
	// "Class::name" also resolves when the name is not overloaded.
	for name, rs := range bare {
		if len(rs) == 1 {
			if _, taken := img.routines[name]; !taken {
				img.routines[name] = rs[0]
			}
		}
	}
	return nil
}

// LookupRoutine implements vm.Linker.
func (img *Image) LookupRoutine(name string) (*vm.Routine, bool) {
	if img.Link() != nil {
		return nil, false
	}
	r, ok := img.routines[name]
	return r, ok
}

// LookupClass implements vm.Linker.
func (img *Image) LookupClass(name string) (*vm.ClassLayout, bool) {
	if img.Link() != nil {
		return nil, false
	}
	c, ok := img.layouts[name]
	return c, ok
}

// RoutineTokens lists every routine token in the image, sorted.
func (img *Image) RoutineTokens() []string {
	var out []string
	for _, ci := range img.Classes {
		for _, ri := range ci.Routines {
			out = append(out, ri.Token)
		}
	}
	sort.Strings(out)
	return out
}

// Routine returns the decoded body of a routine, linking the image first.
func (img *Image) Routine(name string) (*vm.Routine, error) {
	if err := img.Link(); err != nil {
		return nil, err
	}
	r, ok := img.routines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMember, name)
	}
	return r, nil
}
