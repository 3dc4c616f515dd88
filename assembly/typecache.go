package assembly

import (
	"fmt"
	"slices"
	"sync"

	"github.com/chazu/ilgen/pkg/bytecode"
	"github.com/chazu/ilgen/vm"
)

// FieldInfo is a resolved field and the class that declares it.
type FieldInfo struct {
	Owner *Class
	Field vm.Field
}

// Token is the name field access instructions use.
func (f FieldInfo) Token() string {
	return f.Owner.FieldToken(f.Field.Name)
}

// typeInfo is the member table of one class including inherited members.
// Members of derived classes come before those of their bases.
type typeInfo struct {
	fields   map[string]FieldInfo
	routines map[string][]*Routine
}

// TypeCache resolves members of the module's classes by name and
// signature. Tables of finished classes are built once and memoized;
// unfinished classes can still grow, so they are resolved fresh each time.
type TypeCache struct {
	module *Module

	mu     sync.Mutex
	tables map[string]*typeInfo
	hits   int
	misses int
}

func newTypeCache(m *Module) *TypeCache {
	return &TypeCache{module: m, tables: make(map[string]*typeInfo)}
}

// Field resolves a field of class by name, searching base classes.
func (tc *TypeCache) Field(class, name string) (FieldInfo, error) {
	info, err := tc.info(class)
	if err != nil {
		return FieldInfo{}, err
	}
	f, ok := info.fields[name]
	if !ok {
		return FieldInfo{}, fmt.Errorf("%w: field %s.%s", ErrUnknownMember, class, name)
	}
	return f, nil
}

// Routines returns every routine called name visible on class, overloads
// included.
func (tc *TypeCache) Routines(class, name string) ([]*Routine, error) {
	info, err := tc.info(class)
	if err != nil {
		return nil, err
	}
	rs := info.routines[name]
	if len(rs) == 0 {
		return nil, fmt.Errorf("%w: routine %s.%s", ErrUnknownMember, class, name)
	}
	return rs, nil
}

// Routine resolves the routine of class with the given name and exact
// parameter types. A routine of a derived class hides a base routine with
// the same signature.
func (tc *TypeCache) Routine(class, name string, params ...bytecode.Type) (*Routine, error) {
	rs, err := tc.Routines(class, name)
	if err != nil {
		return nil, err
	}
	for _, r := range rs {
		if slices.Equal(r.paramTypes, params) {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: routine %s::%s", ErrUnknownMember, class, signature(name, params))
}

// Invalidate drops the memoized table of class.
func (tc *TypeCache) Invalidate(class string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	delete(tc.tables, class)
}

// Stats returns the number of lookups answered from the cache and the
// number that had to build a table.
func (tc *TypeCache) Stats() (hits, misses int) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.hits, tc.misses
}

func (tc *TypeCache) info(class string) (*typeInfo, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if info, ok := tc.tables[class]; ok {
		tc.hits++
		return info, nil
	}
	tc.misses++

	c, ok := tc.module.Class(class)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, class)
	}
	info, settled := tc.build(c)
	if settled {
		tc.tables[class] = info
	}
	return info, nil
}

// build collects the members of c and its bases. settled reports whether
// every class on the chain is finished.
func (tc *TypeCache) build(c *Class) (info *typeInfo, settled bool) {
	info = &typeInfo{
		fields:   make(map[string]FieldInfo),
		routines: make(map[string][]*Routine),
	}
	settled = true
	seen := make(map[string]bool)
	for cur := c; cur != nil && !seen[cur.name]; {
		seen[cur.name] = true
		settled = settled && cur.finished
		for _, f := range cur.fields {
			if _, shadowed := info.fields[f.Name]; !shadowed {
				info.fields[f.Name] = FieldInfo{Owner: cur, Field: f}
			}
		}
		for _, r := range cur.routines {
			if !hidden(info.routines[r.name], r) {
				info.routines[r.name] = append(info.routines[r.name], r)
			}
		}
		if cur.base == "" {
			break
		}
		cur, _ = tc.module.Class(cur.base)
	}
	return info, settled
}

func hidden(visible []*Routine, r *Routine) bool {
	for _, v := range visible {
		if slices.Equal(v.paramTypes, r.paramTypes) {
			return true
		}
	}
	return false
}
