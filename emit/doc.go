// Package emit lowers structured control flow onto the instruction stream
// of one routine.
//
// A Generator owns a routine body acquired from an assembly.Routine. It
// keeps a registry of named locals, a registry of named labels that may be
// jumped to before they are placed, and a label stack whose top is the
// active false target: the place a failing comparison branches to.
//
// Comparators and arithmetic operators take zero operands, working on the
// stack, or two operands built with Local, Arg, Param, Int, Long, Float,
// Double and friends:
//
//	g.DeclareLocal("i", bytecode.TypeInt32).
//		DeclareLocal("sum", bytecode.TypeInt32).
//		For(
//			func(g *emit.Generator) { g.Assign("i", emit.Int(0)) },
//			emit.LessThan(emit.Local("i"), emit.Int(5)),
//			func(g *emit.Generator) { g.Increment("i") },
//			func(g *emit.Generator) { g.Add(emit.Local("sum"), emit.Local("i")).StoreLocal("sum") },
//		).
//		Return(emit.Local("sum"))
//
// Conditions are Cond values. A construct passes the false target to the
// condition and also pushes it on the label stack, so conditions may be
// written either way. And and Or short-circuit; each loop keeps its own
// continue and exit targets, which Break and Continue use.
//
// Errors are sticky. The first one stops emission, and Finish seals the
// routine as failed so it cannot be finalized.
package emit
