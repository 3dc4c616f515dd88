package main

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/chazu/ilgen/assembly"
	"github.com/chazu/ilgen/emit"
	"github.com/chazu/ilgen/pkg/bytecode"
)

const i32 = bytecode.TypeInt32

// sampleBuilder collects definition errors so buildSamples can report all
// of them at once.
type sampleBuilder struct {
	opts []emit.Option
	errs *multierror.Error
}

func (b *sampleBuilder) routine(r *assembly.Routine, err error, names []string, body emit.Block) {
	if err != nil {
		b.errs = multierror.Append(b.errs, err)
		return
	}
	if len(names) > 0 {
		if err := r.SetParamNames(names...); err != nil {
			b.errs = multierror.Append(b.errs, err)
			return
		}
	}
	g, err := emit.New(r, b.opts...)
	if err != nil {
		b.errs = multierror.Append(b.errs, err)
		return
	}
	body(g)
	if err := g.Finish(); err != nil {
		b.errs = multierror.Append(b.errs, fmt.Errorf("%s: %w", r.Token(), err))
	}
}

// buildSamples builds the demo module: a Counter class and a Demo class
// whose static routines exercise every control construct.
func buildSamples(name string, opts ...emit.Option) (*assembly.Image, error) {
	m := assembly.NewModule(name)
	b := &sampleBuilder{opts: opts}

	counter, err := m.DefineClass("Counter")
	if err != nil {
		return nil, err
	}
	if err := counter.DefineField("count", i32); err != nil {
		return nil, err
	}
	demo, err := m.DefineClass("Demo")
	if err != nil {
		return nil, err
	}

	r, err := counter.DefineConstructor(i32)
	b.routine(r, err, []string{"start"}, func(g *emit.Generator) {
		g.LoadArgNamed("this").LoadArgNamed("start").StoreField("Counter", "count").Return()
	})

	r, err = counter.DefineRoutineWithAttrs("Add", assembly.AttrPublic, bytecode.TypeVoid, i32)
	b.routine(r, err, []string{"n"}, func(g *emit.Generator) {
		g.LoadArgNamed("this").
			LoadArgNamed("this").LoadField("Counter", "count").
			Load(emit.Param("n")).
			Add().
			StoreField("Counter", "count").
			Return()
	})

	r, err = counter.DefineRoutineWithAttrs("Get", assembly.AttrPublic, i32)
	b.routine(r, err, nil, func(g *emit.Generator) {
		g.LoadArgNamed("this").LoadField("Counter", "count").Return()
	})

	// Fib(n): iterative Fibonacci.
	r, err = demo.DefineRoutine("Fib", i32, i32)
	b.routine(r, err, []string{"n"}, func(g *emit.Generator) {
		g.DeclareLocal("a", i32).
			DeclareLocal("b", i32).
			DeclareLocal("t", i32).
			DeclareLocal("i", i32).
			Assign("b", emit.Int(1)).
			For(
				func(g *emit.Generator) { g.Assign("i", emit.Int(0)) },
				emit.LessThan(emit.Local("i"), emit.Param("n")),
				func(g *emit.Generator) { g.Increment("i") },
				func(g *emit.Generator) {
					g.Add(emit.Local("a"), emit.Local("b")).StoreLocal("t").
						Assign("a", emit.Local("b")).
						Assign("b", emit.Local("t"))
				},
			).
			Return(emit.Local("a"))
	})

	// Gcd(a, b): Euclid with While.
	r, err = demo.DefineRoutine("Gcd", i32, i32, i32)
	b.routine(r, err, []string{"a", "b"}, func(g *emit.Generator) {
		g.DeclareLocal("t", i32).
			While(emit.NotEqual(emit.Param("b"), emit.Int(0)), func(g *emit.Generator) {
				g.Modulus(emit.Param("a"), emit.Param("b")).StoreLocal("t").
					Load(emit.Param("b")).StoreArgNamed("a").
					Load(emit.Local("t")).StoreArgNamed("b")
			}).
			Return(emit.Param("a"))
	})

	// IsPrime(n): trial division with an early return from inside the loop.
	r, err = demo.DefineRoutine("IsPrime", bytecode.TypeBool, i32)
	b.routine(r, err, []string{"n"}, func(g *emit.Generator) {
		g.DeclareLocal("d", i32).
			If(emit.LessThan(emit.Param("n"), emit.Int(2)), func(g *emit.Generator) {
				g.PushBool(false).Return()
			}).
			For(
				func(g *emit.Generator) { g.Assign("d", emit.Int(2)) },
				func(g *emit.Generator, _ *emit.Label) {
					g.Multiply(emit.Local("d"), emit.Local("d")).
						Load(emit.Param("n")).
						LessOrEqual()
				},
				func(g *emit.Generator) { g.Increment("d") },
				func(g *emit.Generator) {
					g.If(func(g *emit.Generator, _ *emit.Label) {
						g.Modulus(emit.Param("n"), emit.Local("d")).PushInt32(0).Equal()
					}, func(g *emit.Generator) {
						g.PushBool(false).Return()
					})
				},
			).
			PushBool(true).
			Return()
	})

	// Collatz(n): steps until n reaches 1.
	r, err = demo.DefineRoutine("Collatz", i32, i32)
	b.routine(r, err, []string{"n"}, func(g *emit.Generator) {
		g.DeclareLocal("steps", i32).
			While(emit.GreaterThan(emit.Param("n"), emit.Int(1)), func(g *emit.Generator) {
				g.IfElse(func(g *emit.Generator, _ *emit.Label) {
					g.Modulus(emit.Param("n"), emit.Int(2)).PushInt32(0).Equal()
				}, func(g *emit.Generator) {
					g.Divide(emit.Param("n"), emit.Int(2)).StoreArgNamed("n")
				}, func(g *emit.Generator) {
					g.Multiply(emit.Param("n"), emit.Int(3)).PushInt32(1).Add().StoreArgNamed("n")
				}).
					Increment("steps")
			}).
			Return(emit.Local("steps"))
	})

	// InRange(x, lo, hi): lo <= x && x <= hi, or x is the sentinel -1.
	r, err = demo.DefineRoutine("InRange", bytecode.TypeBool, i32, i32, i32)
	b.routine(r, err, []string{"x", "lo", "hi"}, func(g *emit.Generator) {
		cond := emit.Or(
			emit.And(
				emit.GreaterOrEqual(emit.Param("x"), emit.Param("lo")),
				emit.LessOrEqual(emit.Param("x"), emit.Param("hi")),
			),
			emit.Equal(emit.Param("x"), emit.Int(-1)),
		)
		g.IfElse(cond,
			func(g *emit.Generator) { g.PushBool(true).Return() },
			func(g *emit.Generator) { g.PushBool(false).Return() })
	})

	// SumSquares(n): fills an array with squares and sums it, skipping
	// multiples of 3 with Continue.
	r, err = demo.DefineRoutine("SumSquares", i32, i32)
	b.routine(r, err, []string{"n"}, func(g *emit.Generator) {
		g.DeclareLocal("arr", bytecode.ArrayOf(i32)).
			DeclareLocal("i", i32).
			DeclareLocal("sum", i32).
			Load(emit.Param("n")).NewArray(i32).StoreLocal("arr").
			For(
				func(g *emit.Generator) { g.Assign("i", emit.Int(0)) },
				emit.LessThan(emit.Local("i"), emit.Param("n")),
				func(g *emit.Generator) { g.Increment("i") },
				func(g *emit.Generator) {
					g.LoadLocal("arr").LoadLocal("i").
						Multiply(emit.Local("i"), emit.Local("i")).
						StoreElement()
				},
			).
			For(
				func(g *emit.Generator) { g.Assign("i", emit.Int(0)) },
				func(g *emit.Generator, _ *emit.Label) {
					g.LoadLocal("i").LoadLocal("arr").ArrayLength().LessThan()
				},
				func(g *emit.Generator) { g.Increment("i") },
				func(g *emit.Generator) {
					g.If(func(g *emit.Generator, _ *emit.Label) {
						g.Modulus(emit.Local("i"), emit.Int(3)).PushInt32(0).Equal()
					}, func(g *emit.Generator) { g.Continue() }).
						LoadLocal("sum").
						LoadLocal("arr").LoadLocal("i").LoadElement().
						Add().
						StoreLocal("sum")
				},
			).
			Return(emit.Local("sum"))
	})

	// CountTo(n): drives a Counter through instance calls; Do runs once
	// even for n <= 0.
	r, err = demo.DefineRoutine("CountTo", i32, i32)
	b.routine(r, err, []string{"n"}, func(g *emit.Generator) {
		g.DeclareLocal("c", "Counter").
			DeclareLocal("i", i32).
			PushInt32(0).NewObjectOf("Counter", i32).StoreLocal("c").
			Do(emit.LessThan(emit.Local("i"), emit.Param("n")), func(g *emit.Generator) {
				g.Increment("i").
					LoadLocal("c").LoadLocal("i").CallMethod("Counter", "Add", i32)
			}).
			LoadLocal("c").CallMethod("Counter", "Get").
			Return()
	})

	// Max(a, b) calls through the type cache from Clamp.
	r, err = demo.DefineRoutine("Max", i32, i32, i32)
	b.routine(r, err, []string{"a", "b"}, func(g *emit.Generator) {
		g.If(emit.GreaterThan(emit.Param("a"), emit.Param("b")), func(g *emit.Generator) {
			g.Return(emit.Param("a"))
		}).
			Return(emit.Param("b"))
	})

	r, err = demo.DefineRoutine("Clamp", i32, i32)
	b.routine(r, err, []string{"x"}, func(g *emit.Generator) {
		g.Load(emit.Param("x")).PushInt32(0).
			CallMethod("Demo", "Max", i32, i32).
			Return()
	})

	if err := b.errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return m.Finish()
}
