package emit

import "github.com/chazu/ilgen/pkg/bytecode"

// Comparators take zero operands, comparing the two values on top of the
// stack, or two operands, which are pushed left first. Each one branches
// to the active false target when the comparison does not hold and falls
// through when it does.

// comparison is a compare instruction and the branch that leaves on false.
type comparison struct {
	name    string
	compare bytecode.Opcode
	onFalse bytecode.Opcode
}

var (
	cmpEqual               = comparison{"Equal", bytecode.OpCeq, bytecode.OpBrFalse}
	cmpNotEqual            = comparison{"NotEqual", bytecode.OpCeq, bytecode.OpBrTrue}
	cmpLessThan            = comparison{"LessThan", bytecode.OpClt, bytecode.OpBrFalse}
	cmpLessThanUnsigned    = comparison{"LessThanUnsigned", bytecode.OpCltUn, bytecode.OpBrFalse}
	cmpGreaterThan         = comparison{"GreaterThan", bytecode.OpCgt, bytecode.OpBrFalse}
	cmpGreaterThanUnsigned = comparison{"GreaterThanUnsigned", bytecode.OpCgtUn, bytecode.OpBrFalse}
	cmpLessOrEqual         = comparison{"LessOrEqual", bytecode.OpCgt, bytecode.OpBrTrue}
	cmpGreaterOrEqual      = comparison{"GreaterOrEqual", bytecode.OpClt, bytecode.OpBrTrue}
)

func (g *Generator) compareTo(c comparison, onFalse *Label, ops []Operand) *Generator {
	if !g.ok() {
		return g
	}
	if onFalse == nil {
		return g.fail(ErrLabelStackEmpty)
	}
	return g.operands(c.name, ops).op(c.compare).branch(c.onFalse, onFalse)
}

func (g *Generator) compareExit(c comparison, ops []Operand) *Generator {
	if !g.ok() {
		return g
	}
	return g.compareTo(c, g.exit(), ops)
}

// Equal leaves when the values differ.
func (g *Generator) Equal(ops ...Operand) *Generator {
	return g.compareExit(cmpEqual, ops)
}

// NotEqual compares for equality and leaves when the values are equal.
func (g *Generator) NotEqual(ops ...Operand) *Generator {
	return g.compareExit(cmpNotEqual, ops)
}

// LessThan leaves unless left < right, comparing integers as signed.
func (g *Generator) LessThan(ops ...Operand) *Generator {
	return g.compareExit(cmpLessThan, ops)
}

// LessThanUnsigned compares integers as unsigned; for floats it also holds
// when either value is NaN.
func (g *Generator) LessThanUnsigned(ops ...Operand) *Generator {
	return g.compareExit(cmpLessThanUnsigned, ops)
}

// GreaterThan leaves unless left > right, comparing integers as signed.
func (g *Generator) GreaterThan(ops ...Operand) *Generator {
	return g.compareExit(cmpGreaterThan, ops)
}

// GreaterThanUnsigned compares integers as unsigned; for floats it also
// holds when either value is NaN.
func (g *Generator) GreaterThanUnsigned(ops ...Operand) *Generator {
	return g.compareExit(cmpGreaterThanUnsigned, ops)
}

// LessOrEqual leaves when the left value is greater. An unordered float
// comparison therefore holds.
func (g *Generator) LessOrEqual(ops ...Operand) *Generator {
	return g.compareExit(cmpLessOrEqual, ops)
}

// GreaterOrEqual leaves when the left value is less. An unordered float
// comparison therefore holds.
func (g *Generator) GreaterOrEqual(ops ...Operand) *Generator {
	return g.compareExit(cmpGreaterOrEqual, ops)
}

// ---------------------------------------------------------------------------
// Conditions
// ---------------------------------------------------------------------------

// Cond emits a test that branches to onFalse when it does not hold and
// falls through when it does. Constructs also push onFalse as the active
// false target, so a Cond may use the zero-target comparator methods.
type Cond func(g *Generator, onFalse *Label)

func (c comparison) cond(l, r Operand) Cond {
	return func(g *Generator, onFalse *Label) {
		g.compareTo(c, onFalse, []Operand{l, r})
	}
}

// Equal holds when l == r.
func Equal(l, r Operand) Cond { return cmpEqual.cond(l, r) }

// NotEqual holds when l != r.
func NotEqual(l, r Operand) Cond { return cmpNotEqual.cond(l, r) }

// LessThan holds when l < r, comparing integers as signed.
func LessThan(l, r Operand) Cond { return cmpLessThan.cond(l, r) }

// LessThanUnsigned holds when l < r, comparing integers as unsigned.
func LessThanUnsigned(l, r Operand) Cond { return cmpLessThanUnsigned.cond(l, r) }

// GreaterThan holds when l > r, comparing integers as signed.
func GreaterThan(l, r Operand) Cond { return cmpGreaterThan.cond(l, r) }

// GreaterThanUnsigned holds when l > r, comparing integers as unsigned.
func GreaterThanUnsigned(l, r Operand) Cond { return cmpGreaterThanUnsigned.cond(l, r) }

// LessOrEqual holds unless l > r.
func LessOrEqual(l, r Operand) Cond { return cmpLessOrEqual.cond(l, r) }

// GreaterOrEqual holds unless l < r.
func GreaterOrEqual(l, r Operand) Cond { return cmpGreaterOrEqual.cond(l, r) }

// True holds when o is non-zero and non-null.
func True(o Operand) Cond {
	return func(g *Generator, onFalse *Label) {
		g.Load(o).GotoIfFalse(onFalse)
	}
}

// Const is a condition known at generation time. A false Const always
// branches; a true one emits nothing.
func Const(v bool) Cond {
	return func(g *Generator, onFalse *Label) {
		if !v {
			g.GotoLabel(onFalse)
		}
	}
}

// test runs c with onFalse as the active false target.
func (g *Generator) test(c Cond, onFalse *Label) *Generator {
	if !g.ok() {
		return g
	}
	g.PushExit(onFalse)
	c(g, onFalse)
	return g.PopExit()
}
