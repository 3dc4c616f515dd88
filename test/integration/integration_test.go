package integration_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-multierror"

	"github.com/chazu/ilgen/assembly"
	"github.com/chazu/ilgen/emit"
	"github.com/chazu/ilgen/pkg/bytecode"
	"github.com/chazu/ilgen/vm"
)

// ---------------------------------------------------------------------------
// Integration test helpers
// ---------------------------------------------------------------------------

// define generates the body of r and seals it.
func define(t *testing.T, r *assembly.Routine, err error, body emit.Block, opts ...emit.Option) {
	t.Helper()
	if err != nil {
		t.Fatalf("define failed: %v", err)
	}
	g, err := emit.New(r, opts...)
	if err != nil {
		t.Fatalf("emit.New failed: %v", err)
	}
	body(g)
	if err := g.Finish(); err != nil {
		t.Fatalf("%s: Finish failed: %v", r.Token(), err)
	}
}

// reload sends an image through its CBOR encoding.
func reload(t *testing.T, img *assembly.Image) *assembly.Image {
	t.Helper()
	data, err := assembly.MarshalImage(img)
	if err != nil {
		t.Fatalf("MarshalImage failed: %v", err)
	}
	out, err := assembly.UnmarshalImage(data)
	if err != nil {
		t.Fatalf("UnmarshalImage failed: %v", err)
	}
	return out
}

func invoke(t *testing.T, in *vm.Interpreter, name string, args ...vm.Value) vm.Value {
	t.Helper()
	v, err := in.Invoke(context.Background(), name, args...)
	if err != nil {
		t.Fatalf("%s failed: %v", name, err)
	}
	return v
}

// buildShapes builds a module with a Shape base class, a Rect subclass and
// a static Geometry class that uses both.
func buildShapes(t *testing.T, opts ...emit.Option) *assembly.Image {
	t.Helper()
	i32 := bytecode.TypeInt32
	m := assembly.NewModule("shapes")

	shape, err := m.DefineClass("Shape")
	if err != nil {
		t.Fatal(err)
	}
	rect, err := m.DefineClass("Rect", "Shape")
	if err != nil {
		t.Fatal(err)
	}
	geo, err := m.DefineClass("Geometry")
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range []struct {
		c    *assembly.Class
		name string
	}{{shape, "id"}, {rect, "w"}, {rect, "h"}} {
		if err := f.c.DefineField(f.name, i32); err != nil {
			t.Fatal(err)
		}
	}

	r, err := shape.DefineRoutineWithAttrs("Id", assembly.AttrPublic, i32)
	define(t, r, err, func(g *emit.Generator) {
		g.LoadArg(0).LoadField("Shape", "id").Return()
	}, opts...)

	r, err = rect.DefineConstructor(i32, i32, i32)
	if err == nil {
		err = r.SetParamNames("id", "w", "h")
	}
	define(t, r, err, func(g *emit.Generator) {
		g.LoadArgNamed("this").LoadArgNamed("id").StoreField("Rect", "id").
			LoadArgNamed("this").LoadArgNamed("w").StoreField("Rect", "w").
			LoadArgNamed("this").LoadArgNamed("h").StoreField("Rect", "h").
			Return()
	}, opts...)

	r, err = rect.DefineRoutineWithAttrs("Area", assembly.AttrPublic, i32)
	define(t, r, err, func(g *emit.Generator) {
		g.LoadArg(0).LoadField("Rect", "w").
			LoadArg(0).LoadField("Rect", "h").
			Multiply().
			Return()
	}, opts...)

	// TotalArea(n): sum of the areas of rectangles i x (i+1) for i < n,
	// stopping early once the total passes 100.
	r, err = geo.DefineRoutine("TotalArea", i32, i32)
	if err == nil {
		err = r.SetParamNames("n")
	}
	define(t, r, err, func(g *emit.Generator) {
		g.DeclareLocal("i", i32).
			DeclareLocal("total", i32).
			DeclareLocal("shapes", bytecode.ArrayOf("Shape")).
			Load(emit.Param("n")).NewArray("Shape").StoreLocal("shapes").
			For(
				func(g *emit.Generator) { g.Assign("i", emit.Int(0)) },
				emit.LessThan(emit.Local("i"), emit.Param("n")),
				func(g *emit.Generator) { g.Increment("i") },
				func(g *emit.Generator) {
					g.LoadLocal("shapes").LoadLocal("i").
						LoadLocal("i").
						LoadLocal("i").
						Add(emit.Local("i"), emit.Int(1)).
						NewObjectOf("Rect", i32, i32, i32).
						StoreElement()
				},
			).
			Assign("i", emit.Int(0)).
			While(emit.LessThan(emit.Local("i"), emit.Param("n")), func(g *emit.Generator) {
				g.LoadLocal("total").
					LoadLocal("shapes").LoadLocal("i").LoadElement().
					CastClass("Rect").
					CallMethod("Rect", "Area").
					Add().
					StoreLocal("total").
					Increment("i").
					If(emit.GreaterThan(emit.Local("total"), emit.Int(100)), func(g *emit.Generator) {
						g.Break()
					})
			}).
			Return(emit.Local("total"))
	}, opts...)

	// LastId(n): the id of the last rectangle, read through the base class.
	r, err = geo.DefineRoutine("LastId", i32, i32)
	define(t, r, err, func(g *emit.Generator) {
		g.LoadArg(0).LoadArg(0).LoadArg(0).
			NewObjectOf("Rect", i32, i32, i32).
			CallMethod("Shape", "Id").
			Return()
	}, opts...)

	img, err := m.Finish()
	if err != nil {
		t.Fatalf("Module.Finish failed: %v", err)
	}
	return img
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestImageRoundTripPreservesBehaviour(t *testing.T) {
	img := buildShapes(t)
	loaded := reload(t, img)

	if loaded.ID != img.ID || loaded.Name != "shapes" {
		t.Errorf("identity changed: %s/%s, want shapes/%s", loaded.Name, loaded.ID, img.ID)
	}
	if diff := cmp.Diff(img.RoutineTokens(), loaded.RoutineTokens()); diff != "" {
		t.Errorf("routine tokens mismatch (-want +got):\n%s", diff)
	}

	tests := []struct {
		name string
		arg  int32
		want int64
	}{
		// 0*1 + 1*2 + 2*3 + 3*4 = 20
		{"Geometry::TotalArea", 4, 20},
		// 0 + 2 + 6 + 12 + 20 + 30 + 42 = 112 stops at i = 7
		{"Geometry::TotalArea", 50, 112},
		{"Geometry::TotalArea", 0, 0},
		{"Geometry::LastId", 9, 9},
	}
	for _, source := range []*assembly.Image{img, loaded} {
		in := vm.New(source, vm.WithMaxSteps(1_000_000))
		for _, tt := range tests {
			if got := invoke(t, in, tt.name, vm.Int32(tt.arg)); got.Int() != tt.want {
				t.Errorf("%s(%d) = %s, want %d", tt.name, tt.arg, got, tt.want)
			}
		}
	}
}

func TestImageEncodingIsDeterministic(t *testing.T) {
	img := buildShapes(t)
	a, err := assembly.MarshalImage(img)
	if err != nil {
		t.Fatal(err)
	}
	b, err := assembly.MarshalImage(reload(t, img))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("re-encoding a loaded image changed its bytes")
	}
}

func TestTamperedImageIsRejected(t *testing.T) {
	img := buildShapes(t)
	img.Classes[0].Name = "Renamed"
	data, err := assembly.MarshalImage(img)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := assembly.UnmarshalImage(data); !errors.Is(err, assembly.ErrDigestMismatch) {
		t.Errorf("UnmarshalImage error = %v, want ErrDigestMismatch", err)
	}
}

func TestDebugInfoSurvivesImage(t *testing.T) {
	loaded := reload(t, buildShapes(t, emit.WithDebugInfo()))
	r, err := loaded.Routine("Geometry::TotalArea(int32)")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"i", "total", "shapes"}, r.Body.VarNames); diff != "" {
		t.Errorf("local names mismatch (-want +got):\n%s", diff)
	}

	plain := reload(t, buildShapes(t))
	r, err = plain.Routine("Geometry::TotalArea(int32)")
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Body.VarNames) != 0 {
		t.Errorf("local names kept without debug info: %v", r.Body.VarNames)
	}
}

func TestFailedRoutinesAreReportedTogether(t *testing.T) {
	m := assembly.NewModule("broken")
	c, err := m.DefineClass("C")
	if err != nil {
		t.Fatal(err)
	}

	r1, _ := c.DefineRoutine("UsesUnknownLocal", bytecode.TypeInt32)
	g1, _ := emit.New(r1)
	g1.LoadLocal("missing").Return()
	if err := g1.Finish(); !errors.Is(err, emit.ErrUnknownLocal) {
		t.Errorf("Finish error = %v, want ErrUnknownLocal", err)
	}

	r2, _ := c.DefineRoutine("JumpsNowhere", bytecode.TypeVoid)
	g2, _ := emit.New(r2)
	g2.Goto("nowhere").Return()
	if err := g2.Finish(); !errors.Is(err, emit.ErrUnresolvedLabel) {
		t.Errorf("Finish error = %v, want ErrUnresolvedLabel", err)
	}

	_, _ = c.DefineRoutine("NeverGenerated", bytecode.TypeVoid)

	_, err = m.Finish()
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		t.Fatalf("Module.Finish error = %v, want a multierror", err)
	}
	if len(merr.Errors) != 3 {
		t.Errorf("got %d errors, want 3:\n%v", len(merr.Errors), err)
	}
	for _, want := range []error{assembly.ErrRoutineFailed, assembly.ErrNotSealed, emit.ErrUnknownLocal, emit.ErrUnresolvedLabel} {
		if !errors.Is(err, want) {
			t.Errorf("Module.Finish error does not wrap %v", want)
		}
	}
	for _, name := range []string{"UsesUnknownLocal", "JumpsNowhere", "NeverGenerated"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("Module.Finish error does not name %s", name)
		}
	}
}

func TestInterpreterHonoursCancellation(t *testing.T) {
	m := assembly.NewModule("spin")
	c, err := m.DefineClass("Spin")
	if err != nil {
		t.Fatal(err)
	}
	r, err := c.DefineRoutine("Forever", bytecode.TypeVoid)
	define(t, r, err, func(g *emit.Generator) {
		g.While(nil, func(g *emit.Generator) {}).Return()
	})
	img, err := m.Finish()
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = vm.New(reload(t, img), vm.WithMaxSteps(0)).Invoke(ctx, "Spin::Forever")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Invoke error = %v, want deadline exceeded", err)
	}

	_, err = vm.New(img, vm.WithMaxSteps(1000)).Invoke(context.Background(), "Spin::Forever")
	if !errors.Is(err, vm.ErrStepLimit) {
		t.Errorf("Invoke error = %v, want step limit", err)
	}
}
