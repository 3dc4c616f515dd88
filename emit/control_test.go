package emit

import (
	"testing"

	"github.com/chazu/ilgen/pkg/bytecode"
)

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

// fixed is a condition with a known result that still emits a compare.
func fixed(result bool) Cond {
	return Equal(Int(1), Int(boolInt(result)))
}

// counted bumps the local "side" and then holds or fails. It uses the
// zero-target comparator, so it relies on the label stack.
func counted(result bool) Cond {
	return func(g *Generator, _ *Label) {
		g.Increment("side").Equal(Int(1), Int(boolInt(result)))
	}
}

// branchOutcome runs "if cond { taken = 1 }" and returns side*10 + taken.
func branchOutcome(t *testing.T, cond Cond) int64 {
	t.Helper()
	return evalInt(t, func(g *Generator) {
		g.DeclareLocal("side", bytecode.TypeInt32).
			DeclareLocal("taken", bytecode.TypeInt32).
			If(cond, func(g *Generator) { g.Assign("taken", Int(1)) }).
			Multiply(Local("side"), Int(10)).
			LoadLocal("taken").
			Add().
			Return()
	})
}

func TestIf(t *testing.T) {
	if got := branchOutcome(t, fixed(true)); got != 1 {
		t.Errorf("If(true) = %d, want body taken once", got)
	}
	if got := branchOutcome(t, fixed(false)); got != 0 {
		t.Errorf("If(false) = %d, want body skipped", got)
	}
	if got := branchOutcome(t, nil); got != 1 {
		t.Errorf("If(nil) = %d, want body taken", got)
	}
}

func TestIfElse(t *testing.T) {
	for _, cond := range []bool{true, false} {
		got := evalInt(t, func(g *Generator) {
			g.DeclareLocal("r", bytecode.TypeInt32).
				IfElse(fixed(cond),
					func(g *Generator) { g.Assign("r", Int(10)) },
					func(g *Generator) { g.Assign("r", Int(20)) }).
				Return(Local("r"))
		})
		want := int64(20)
		if cond {
			want = 10
		}
		if got != want {
			t.Errorf("IfElse(%v) = %d, want %d", cond, got, want)
		}
	}
}

func TestAndShortCircuits(t *testing.T) {
	tests := []struct {
		name   string
		c1, c2 bool
		want   int64
	}{
		{"false skips second", false, true, 0},
		{"both true", true, true, 11},
		{"second false", true, false, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := branchOutcome(t, And(fixed(tt.c1), counted(tt.c2))); got != tt.want {
				t.Errorf("And = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestOrShortCircuits(t *testing.T) {
	tests := []struct {
		name   string
		c1, c2 bool
		want   int64
	}{
		{"true skips second", true, false, 1},
		{"true skips second even if it holds", true, true, 1},
		{"false then true", false, true, 11},
		{"both false", false, false, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := branchOutcome(t, Or(fixed(tt.c1), counted(tt.c2))); got != tt.want {
				t.Errorf("Or = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNot(t *testing.T) {
	if got := branchOutcome(t, Not(fixed(false))); got != 1 {
		t.Errorf("Not(false) = %d, want body taken", got)
	}
	if got := branchOutcome(t, Not(fixed(true))); got != 0 {
		t.Errorf("Not(true) = %d, want body skipped", got)
	}
	if got := branchOutcome(t, Not(Or(fixed(false), fixed(false)))); got != 1 {
		t.Errorf("Not(false || false) = %d, want body taken", got)
	}
}

func TestGeneratorBooleanMethods(t *testing.T) {
	// g.Or inside a condition uses the target the construct pushed.
	got := branchOutcome(t, func(g *Generator, _ *Label) {
		g.Or(fixed(false), counted(true))
	})
	if got != 11 {
		t.Errorf("g.Or = %d, want 11", got)
	}
	got = branchOutcome(t, func(g *Generator, _ *Label) {
		g.And(counted(true), counted(false))
	})
	if got != 20 {
		t.Errorf("g.And = %d, want 20", got)
	}
}

func TestWhile(t *testing.T) {
	t.Run("zero iterations", func(t *testing.T) {
		got := evalInt(t, func(g *Generator) {
			g.DeclareLocal("i", bytecode.TypeInt32).
				DeclareLocal("n", bytecode.TypeInt32).
				While(LessThan(Local("i"), Int(0)), func(g *Generator) { g.Increment("n") }).
				Return(Local("n"))
		})
		if got != 0 {
			t.Errorf("body ran %d times, want 0", got)
		}
	})

	t.Run("counts", func(t *testing.T) {
		got := evalInt(t, func(g *Generator) {
			g.DeclareLocal("i", bytecode.TypeInt32).
				While(LessThan(Local("i"), Int(7)), func(g *Generator) { g.Increment("i") }).
				Return(Local("i"))
		})
		if got != 7 {
			t.Errorf("i = %d, want 7", got)
		}
	})

	t.Run("exit through label stack", func(t *testing.T) {
		// A bare comparator in the body leaves through the loop exit.
		got := evalInt(t, func(g *Generator) {
			g.DeclareLocal("i", bytecode.TypeInt32).
				While(nil, func(g *Generator) {
					g.Increment("i").LessThan(Local("i"), Int(3))
				}).
				Return(Local("i"))
		})
		if got != 3 {
			t.Errorf("i = %d, want 3", got)
		}
	})
}

func TestDo(t *testing.T) {
	t.Run("at least once", func(t *testing.T) {
		got := evalInt(t, func(g *Generator) {
			g.DeclareLocal("n", bytecode.TypeInt32).
				Do(fixed(false), func(g *Generator) { g.Increment("n") }).
				Return(Local("n"))
		})
		if got != 1 {
			t.Errorf("body ran %d times, want 1", got)
		}
	})

	t.Run("counts", func(t *testing.T) {
		got := evalInt(t, func(g *Generator) {
			g.DeclareLocal("i", bytecode.TypeInt32).
				Do(LessThan(Local("i"), Int(4)), func(g *Generator) { g.Increment("i") }).
				Return(Local("i"))
		})
		if got != 4 {
			t.Errorf("i = %d, want 4", got)
		}
	})
}

func TestForSum(t *testing.T) {
	got := evalInt(t, func(g *Generator) {
		g.DeclareLocal("i", bytecode.TypeInt32).
			DeclareLocal("sum", bytecode.TypeInt32).
			For(
				func(g *Generator) { g.Assign("i", Int(0)) },
				LessThan(Local("i"), Int(5)),
				func(g *Generator) { g.Increment("i") },
				func(g *Generator) { g.Add(Local("sum"), Local("i")).StoreLocal("sum") },
			).
			Return(Local("sum"))
	})
	if got != 10 {
		t.Errorf("sum = %d, want 10", got)
	}
}

func TestNestedLoopsKeepTheirBackEdges(t *testing.T) {
	got := evalInt(t, func(g *Generator) {
		g.DeclareLocal("i", bytecode.TypeInt32).
			DeclareLocal("j", bytecode.TypeInt32).
			DeclareLocal("count", bytecode.TypeInt32).
			While(LessThan(Local("i"), Int(3)), func(g *Generator) {
				g.Assign("j", Int(0)).
					While(LessThan(Local("j"), Int(4)), func(g *Generator) {
						g.Increment("count").Increment("j")
					}).
					Increment("i")
			}).
			Return(Local("count"))
	})
	if got != 12 {
		t.Errorf("count = %d, want 12", got)
	}
}

func TestNestedDoInFor(t *testing.T) {
	got := evalInt(t, func(g *Generator) {
		g.DeclareLocal("i", bytecode.TypeInt32).
			DeclareLocal("j", bytecode.TypeInt32).
			DeclareLocal("count", bytecode.TypeInt32).
			For(
				func(g *Generator) { g.Assign("i", Int(0)) },
				LessThan(Local("i"), Int(3)),
				func(g *Generator) { g.Increment("i") },
				func(g *Generator) {
					g.Assign("j", Int(0)).
						Do(LessThan(Local("j"), Int(2)), func(g *Generator) {
							g.Increment("count").Increment("j")
						})
				},
			).
			Return(Local("count"))
	})
	if got != 6 {
		t.Errorf("count = %d, want 6", got)
	}
}

func TestBreakContinue(t *testing.T) {
	// for i := 0; i < 10; i++ { if i == 7 { break }; if i%2 == 1 { continue }; sum += i }
	got := evalInt(t, func(g *Generator) {
		g.DeclareLocal("i", bytecode.TypeInt32).
			DeclareLocal("sum", bytecode.TypeInt32).
			For(
				func(g *Generator) { g.Assign("i", Int(0)) },
				LessThan(Local("i"), Int(10)),
				func(g *Generator) { g.Increment("i") },
				func(g *Generator) {
					g.If(Equal(Local("i"), Int(7)), func(g *Generator) { g.Break() }).
						If(func(g *Generator, _ *Label) {
							g.Modulus(Local("i"), Int(2)).PushInt32(1).Equal()
						}, func(g *Generator) { g.Continue() }).
						Add(Local("sum"), Local("i")).
						StoreLocal("sum")
				},
			).
			Return(Local("sum"))
	})
	if got != 12 {
		t.Errorf("sum = %d, want 0+2+4+6 = 12", got)
	}
}

func TestBreakLeavesInnermostLoop(t *testing.T) {
	got := evalInt(t, func(g *Generator) {
		g.DeclareLocal("i", bytecode.TypeInt32).
			DeclareLocal("count", bytecode.TypeInt32).
			While(LessThan(Local("i"), Int(3)), func(g *Generator) {
				g.Increment("i").
					While(nil, func(g *Generator) {
						g.Increment("count").Break()
					})
			}).
			Return(Local("count"))
	})
	if got != 3 {
		t.Errorf("count = %d, want 3", got)
	}
}

func TestContinueInWhileRetests(t *testing.T) {
	// while i < 6 { i++; if i > 3 { continue }; n++ }
	got := evalInt(t, func(g *Generator) {
		g.DeclareLocal("i", bytecode.TypeInt32).
			DeclareLocal("n", bytecode.TypeInt32).
			While(LessThan(Local("i"), Int(6)), func(g *Generator) {
				g.Increment("i").
					If(GreaterThan(Local("i"), Int(3)), func(g *Generator) { g.Continue() }).
					Increment("n")
			}).
			Return(Local("n"))
	})
	if got != 3 {
		t.Errorf("n = %d, want 3", got)
	}
}

func TestConstructsRestoreLabelStack(t *testing.T) {
	_, c := newClass(t)
	r, _ := c.DefineRoutine("F", bytecode.TypeVoid)
	g, _ := New(r)
	g.DeclareLocal("i", bytecode.TypeInt32).
		If(fixed(true), func(g *Generator) {
			if g.ExitDepth() != 1 {
				t.Errorf("depth inside If = %d, want 1", g.ExitDepth())
			}
		}).
		While(LessThan(Local("i"), Int(1)), func(g *Generator) {
			if g.Depth() != 1 {
				t.Errorf("loop depth = %d, want 1", g.Depth())
			}
			g.Increment("i")
		}).
		Return()
	if g.ExitDepth() != 0 || g.Depth() != 0 {
		t.Errorf("after constructs: exit depth %d, loop depth %d", g.ExitDepth(), g.Depth())
	}
	if err := g.Finish(); err != nil {
		t.Errorf("Finish failed: %v", err)
	}
}
