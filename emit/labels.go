package emit

import (
	"fmt"

	"github.com/chazu/ilgen/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Labels
// ---------------------------------------------------------------------------

// DefineLabel creates an anonymous unplaced label.
func (g *Generator) DefineLabel() *Label {
	return g.body.NewLabel("")
}

// NamedLabel returns the label registered under name, creating an
// unplaced one on first reference.
func (g *Generator) NamedLabel(name string) *Label {
	l, ok := g.labels[name]
	if !ok {
		l = g.body.NewLabel(name)
		g.labels[name] = l
	}
	return l
}

// MarkLabel places l at the current position.
func (g *Generator) MarkLabel(l *Label) *Generator {
	if !g.ok() {
		return g
	}
	if l == nil {
		return g.fail(fmt.Errorf("%w: mark", ErrNilLabel))
	}
	if err := g.body.Mark(l); err != nil {
		return g.fail(err)
	}
	return g
}

// Label places the label called name here. Earlier Goto calls with the
// same name are patched to jump to it.
func (g *Generator) Label(name string) *Generator {
	if !g.ok() {
		return g
	}
	return g.MarkLabel(g.NamedLabel(name))
}

// Goto branches unconditionally to the label called name, which may be
// placed later.
func (g *Generator) Goto(name string) *Generator {
	if !g.ok() {
		return g
	}
	return g.GotoLabel(g.NamedLabel(name))
}

// GotoLabel branches unconditionally to l.
func (g *Generator) GotoLabel(l *Label) *Generator {
	return g.branch(bytecode.OpBr, l)
}

// GotoIfFalse pops a value and branches to l when it is zero or null.
func (g *Generator) GotoIfFalse(l *Label) *Generator {
	return g.branch(bytecode.OpBrFalse, l)
}

// GotoIfTrue pops a value and branches to l when it is non-zero.
func (g *Generator) GotoIfTrue(l *Label) *Generator {
	return g.branch(bytecode.OpBrTrue, l)
}

// ---------------------------------------------------------------------------
// Label stack
// ---------------------------------------------------------------------------

// PushExit makes l the active false target.
func (g *Generator) PushExit(l *Label) *Generator {
	if !g.ok() {
		return g
	}
	if l == nil {
		return g.fail(fmt.Errorf("%w: push", ErrNilLabel))
	}
	g.exits = append(g.exits, l)
	return g
}

// PopExit drops the active false target; the one pushed before it becomes
// active again.
func (g *Generator) PopExit() *Generator {
	if !g.ok() {
		return g
	}
	if len(g.exits) == 0 {
		return g.fail(fmt.Errorf("%w: pop", ErrLabelStackEmpty))
	}
	g.exits = g.exits[:len(g.exits)-1]
	return g
}

// Exit returns the active false target, or nil when the stack is empty.
func (g *Generator) Exit() *Label {
	if len(g.exits) == 0 {
		return nil
	}
	return g.exits[len(g.exits)-1]
}

// exit is Exit for emitters that need a target: an empty stack fails the
// generator.
func (g *Generator) exit() *Label {
	l := g.Exit()
	if l == nil {
		g.fail(fmt.Errorf("%w: no active false target", ErrLabelStackEmpty))
	}
	return l
}

// ExitDepth returns the number of pushed false targets.
func (g *Generator) ExitDepth() int {
	return len(g.exits)
}
