package assembly

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("ilgen.assembly")

// Module is a loadable unit under construction: a named set of classes.
type Module struct {
	name     string
	id       uuid.UUID
	classes  []*Class
	byName   map[string]*Class
	types    *TypeCache
	finished bool
}

// NewModule creates an empty module with a fresh identity.
func NewModule(name string) *Module {
	m := &Module{
		name:   name,
		id:     uuid.New(),
		byName: make(map[string]*Class),
	}
	m.types = newTypeCache(m)
	return m
}

func (m *Module) Name() string { return m.name }

func (m *Module) ID() uuid.UUID { return m.id }

func (m *Module) Classes() []*Class { return m.classes }

// Types returns the module's member lookup cache.
func (m *Module) Types() *TypeCache { return m.types }

// Class looks up a class by name.
func (m *Module) Class(name string) (*Class, bool) {
	c, ok := m.byName[name]
	return c, ok
}

// DefineClass adds a class. The optional base names another class of the
// module; it must exist by the time the class is finished.
func (m *Module) DefineClass(name string, base ...string) (*Class, error) {
	if m.finished {
		return nil, fmt.Errorf("%w: %s", ErrModuleFinished, m.name)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty class name", ErrInvalidSignature)
	}
	if _, ok := m.byName[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateClass, name)
	}
	if len(base) > 1 {
		return nil, fmt.Errorf("%w: %s names %d base classes", ErrInvalidSignature, name, len(base))
	}
	c := &Class{module: m, name: name}
	if len(base) == 1 {
		c.base = base[0]
	}
	m.classes = append(m.classes, c)
	m.byName[name] = c
	return c, nil
}

// Finish finishes every outstanding class and seals the module into an
// Image. Problems from all classes are reported together.
func (m *Module) Finish() (*Image, error) {
	if m.finished {
		return nil, fmt.Errorf("%w: %s", ErrModuleFinished, m.name)
	}
	var result *multierror.Error
	for _, c := range m.classes {
		if err := c.Finish(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}

	img, err := m.image()
	if err != nil {
		return nil, err
	}
	m.finished = true
	log.Infof("sealed module %s (%s): %d classes", m.name, m.id, len(m.classes))
	return img, nil
}

func (m *Module) image() (*Image, error) {
	img := &Image{
		Name:    m.name,
		ID:      m.id,
		Version: ImageVersion,
	}
	for _, c := range m.classes {
		ci := ClassImage{Name: c.name, Base: c.base}
		for _, f := range c.fields {
			ci.Fields = append(ci.Fields, FieldImage{Name: f.Name, Type: string(f.Type)})
		}
		for _, r := range c.routines {
			body, err := r.body.Serialize()
			if err != nil {
				return nil, fmt.Errorf("serialize %s: %w", r.Token(), err)
			}
			ci.Routines = append(ci.Routines, RoutineImage{
				Name:  r.name,
				Token: r.Token(),
				Attrs: r.attrs,
				Body:  body,
			})
		}
		img.Classes = append(img.Classes, ci)
	}
	digest, err := img.computeDigest()
	if err != nil {
		return nil, err
	}
	img.Digest = digest
	return img, nil
}
