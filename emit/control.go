package emit

import "fmt"

// Block emits a statement sequence.
type Block func(g *Generator)

func (g *Generator) run(b Block) {
	if b != nil && g.ok() {
		b(g)
	}
}

// check emits cond against onFalse. A nil cond always holds.
func (g *Generator) check(cond Cond, onFalse *Label) {
	if cond != nil && g.ok() {
		cond(g, onFalse)
	}
}

// ---------------------------------------------------------------------------
// Boolean combinators
// ---------------------------------------------------------------------------

// And holds when both conditions hold. Both leave through the same false
// target, so c2 is not evaluated when c1 fails.
func And(c1, c2 Cond) Cond {
	return func(g *Generator, onFalse *Label) {
		g.test(c1, onFalse)
		g.test(c2, onFalse)
	}
}

// Or holds when either condition holds. A failing c1 branches to a fresh
// target where c2 gets its chance; a passing c1 skips c2.
func Or(c1, c2 Cond) Cond {
	return func(g *Generator, onFalse *Label) {
		second := g.DefineLabel()
		pass := g.DefineLabel()
		g.test(c1, second)
		g.GotoLabel(pass)
		g.MarkLabel(second)
		g.test(c2, onFalse)
		g.MarkLabel(pass)
	}
}

// Not holds when c does not.
func Not(c Cond) Cond {
	return func(g *Generator, onFalse *Label) {
		holds := g.DefineLabel()
		g.test(c, holds)
		g.GotoLabel(onFalse)
		g.MarkLabel(holds)
	}
}

// Test emits c against the active false target.
func (g *Generator) Test(c Cond) *Generator {
	if !g.ok() {
		return g
	}
	onFalse := g.exit()
	if onFalse == nil {
		return g
	}
	g.check(c, onFalse)
	return g
}

// And emits c1 then c2 against the active false target.
func (g *Generator) And(c1, c2 Cond) *Generator {
	return g.Test(And(c1, c2))
}

// Or emits the short-circuit disjunction of c1 and c2 against the active
// false target.
func (g *Generator) Or(c1, c2 Cond) *Generator {
	return g.Test(Or(c1, c2))
}

// ---------------------------------------------------------------------------
// Structured control flow
// ---------------------------------------------------------------------------

// If runs then when cond holds.
func (g *Generator) If(cond Cond, then Block) *Generator {
	if !g.ok() {
		return g
	}
	end := g.DefineLabel()
	g.PushExit(end)
	g.check(cond, end)
	g.run(then)
	g.PopExit()
	return g.MarkLabel(end)
}

// IfElse runs then when cond holds and otherwise.
func (g *Generator) IfElse(cond Cond, then, otherwise Block) *Generator {
	if !g.ok() {
		return g
	}
	alt := g.DefineLabel()
	end := g.DefineLabel()
	g.PushExit(alt)
	g.check(cond, alt)
	g.run(then)
	g.PopExit()
	g.GotoLabel(end)
	g.MarkLabel(alt)
	g.run(otherwise)
	return g.MarkLabel(end)
}

// While tests cond before each run of body.
func (g *Generator) While(cond Cond, body Block) *Generator {
	if !g.ok() {
		return g
	}
	head := g.DefineLabel()
	exit := g.DefineLabel()
	g.MarkLabel(head)
	g.loop(head, exit, func() {
		g.check(cond, exit)
		g.run(body)
		g.GotoLabel(head)
	})
	return g.MarkLabel(exit)
}

// Do runs body once and then again for as long as cond holds.
func (g *Generator) Do(cond Cond, body Block) *Generator {
	if !g.ok() {
		return g
	}
	head := g.DefineLabel()
	next := g.DefineLabel()
	exit := g.DefineLabel()
	g.MarkLabel(head)
	g.loop(next, exit, func() {
		g.run(body)
		g.MarkLabel(next)
		g.check(cond, exit)
		g.GotoLabel(head)
	})
	return g.MarkLabel(exit)
}

// For runs init once, then loops like While, running step after each
// body. The back-edge targets the test, so cond is evaluated after step.
func (g *Generator) For(init Block, cond Cond, step, body Block) *Generator {
	if !g.ok() {
		return g
	}
	g.run(init)
	head := g.DefineLabel()
	next := g.DefineLabel()
	exit := g.DefineLabel()
	g.MarkLabel(head)
	g.loop(next, exit, func() {
		g.check(cond, exit)
		g.run(body)
		g.MarkLabel(next)
		g.run(step)
		g.GotoLabel(head)
	})
	return g.MarkLabel(exit)
}

// loop emits fn inside a loop frame whose targets are cont and exit. The
// exit target is also the active false target while fn runs.
func (g *Generator) loop(cont, exit *Label, fn func()) {
	g.loops = append(g.loops, loopFrame{cont: cont, exit: exit})
	g.PushExit(exit)
	fn()
	g.PopExit()
	g.loops = g.loops[:len(g.loops)-1]
}

func (g *Generator) innermost(stmt string) (loopFrame, bool) {
	if len(g.loops) == 0 {
		g.fail(fmt.Errorf("%w: %s", ErrNotInLoop, stmt))
		return loopFrame{}, false
	}
	return g.loops[len(g.loops)-1], true
}

// Break leaves the innermost loop.
func (g *Generator) Break() *Generator {
	if !g.ok() {
		return g
	}
	f, ok := g.innermost("Break")
	if !ok {
		return g
	}
	return g.GotoLabel(f.exit)
}

// Continue starts the next iteration of the innermost loop: the test of a
// While or Do, the step of a For.
func (g *Generator) Continue() *Generator {
	if !g.ok() {
		return g
	}
	f, ok := g.innermost("Continue")
	if !ok {
		return g
	}
	return g.GotoLabel(f.cont)
}

// Depth returns the number of enclosing loops.
func (g *Generator) Depth() int {
	return len(g.loops)
}
