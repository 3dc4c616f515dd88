package assembly

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/chazu/ilgen/pkg/bytecode"
	"github.com/chazu/ilgen/vm"
)

// emitBody acquires r's body, lets fill write it and seals the routine.
func emitBody(t *testing.T, r *Routine, fill func(c *bytecode.Chunk)) {
	t.Helper()
	c, err := r.Body()
	if err != nil {
		t.Fatalf("Body failed: %v", err)
	}
	fill(c)
	if err := r.Seal(nil); err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
}

func TestNewModule(t *testing.T) {
	m := NewModule("demo")
	if m.Name() != "demo" {
		t.Errorf("Name() = %q", m.Name())
	}
	if m.ID() == uuid.Nil {
		t.Error("module should have an identity")
	}
	if NewModule("demo").ID() == m.ID() {
		t.Error("module identities should differ")
	}
}

func TestDefineClassErrors(t *testing.T) {
	m := NewModule("demo")
	if _, err := m.DefineClass("Point"); err != nil {
		t.Fatalf("DefineClass failed: %v", err)
	}
	if _, err := m.DefineClass("Point"); !errors.Is(err, ErrDuplicateClass) {
		t.Errorf("duplicate class error = %v", err)
	}
	if _, err := m.DefineClass(""); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("empty name error = %v", err)
	}
	if _, err := m.DefineClass("X", "A", "B"); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("two bases error = %v", err)
	}
}

func TestDefineMembers(t *testing.T) {
	m := NewModule("demo")
	c, _ := m.DefineClass("Math")

	if err := c.DefineField("count", bytecode.TypeInt32); err != nil {
		t.Fatalf("DefineField failed: %v", err)
	}
	if err := c.DefineField("count", bytecode.TypeInt64); !errors.Is(err, ErrDuplicateMember) {
		t.Errorf("duplicate field error = %v", err)
	}

	max32, err := c.DefineRoutine("Max", bytecode.TypeInt32, bytecode.TypeInt32, bytecode.TypeInt32)
	if err != nil {
		t.Fatalf("DefineRoutine failed: %v", err)
	}
	if _, err := c.DefineRoutine("Max", bytecode.TypeInt64, bytecode.TypeInt64, bytecode.TypeInt64); err != nil {
		t.Errorf("overload rejected: %v", err)
	}
	if _, err := c.DefineRoutine("Max", bytecode.TypeInt32, bytecode.TypeInt32, bytecode.TypeInt32); !errors.Is(err, ErrDuplicateMember) {
		t.Errorf("duplicate signature error = %v", err)
	}
	if _, err := c.DefineRoutine("Bad", bytecode.TypeInt32, bytecode.TypeVoid); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("void parameter error = %v", err)
	}

	if max32.Token() != "Math::Max(int32,int32)" {
		t.Errorf("Token() = %q", max32.Token())
	}
	if !max32.IsStatic() || max32.ArgCount() != 2 {
		t.Errorf("static routine: IsStatic=%v ArgCount=%d", max32.IsStatic(), max32.ArgCount())
	}

	inst, err := c.DefineRoutineWithAttrs("Get", AttrPublic, bytecode.TypeInt32)
	if err != nil {
		t.Fatalf("DefineRoutineWithAttrs failed: %v", err)
	}
	if inst.IsStatic() || inst.ArgCount() != 1 || !inst.Chunk().IsInstance() {
		t.Errorf("instance routine: IsStatic=%v ArgCount=%d", inst.IsStatic(), inst.ArgCount())
	}

	ctor, err := c.DefineConstructor(bytecode.TypeInt32)
	if err != nil {
		t.Fatalf("DefineConstructor failed: %v", err)
	}
	if ctor.Token() != "Math::.ctor(int32)" || ctor.ReturnType() != bytecode.TypeVoid {
		t.Errorf("constructor = %s returning %s", ctor.Token(), ctor.ReturnType())
	}
	if got := ctor.Attributes().String(); got != "public instance specialname" {
		t.Errorf("constructor attributes = %q", got)
	}
}

func TestRoutineBodyLifecycle(t *testing.T) {
	m := NewModule("demo")
	c, _ := m.DefineClass("P")
	r, _ := c.DefineRoutine("F", bytecode.TypeVoid, bytecode.TypeInt32)

	if err := r.SetParamNames("a", "b"); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("wrong name count error = %v", err)
	}
	if err := r.SetParamNames("n"); err != nil {
		t.Fatalf("SetParamNames failed: %v", err)
	}
	if diff := cmp.Diff([]string{"n"}, r.Chunk().ParamNames); diff != "" {
		t.Errorf("body param names mismatch (-want +got):\n%s", diff)
	}

	body, err := r.Body()
	if err != nil {
		t.Fatalf("Body failed: %v", err)
	}
	if _, err := r.Body(); !errors.Is(err, ErrBodyAcquired) {
		t.Errorf("second Body error = %v", err)
	}
	body.Emit(bytecode.OpRet)

	if err := r.Seal(nil); err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if !r.Sealed() {
		t.Error("routine should be sealed")
	}
	if err := r.Seal(nil); !errors.Is(err, ErrSealed) {
		t.Errorf("second Seal error = %v", err)
	}
	if err := r.SetParamNames("x"); !errors.Is(err, ErrSealed) {
		t.Errorf("SetParamNames after seal error = %v", err)
	}
}

func TestSealDetectsUnresolvedLabels(t *testing.T) {
	m := NewModule("demo")
	c, _ := m.DefineClass("P")
	r, _ := c.DefineRoutine("F", bytecode.TypeVoid)
	body, _ := r.Body()
	_, _ = body.EmitBranch(bytecode.OpBr, body.NewLabel("nowhere"))

	err := r.Seal(nil)
	if !errors.Is(err, ErrUnresolvedLabel) {
		t.Fatalf("Seal error = %v, want ErrUnresolvedLabel", err)
	}
	if !errors.Is(r.Err(), ErrUnresolvedLabel) {
		t.Errorf("Err() = %v", r.Err())
	}
}

func TestClassFinishAggregatesProblems(t *testing.T) {
	m := NewModule("demo")
	c, _ := m.DefineClass("Broken", "Missing")
	_, _ = c.DefineRoutine("NeverSealed", bytecode.TypeVoid)
	failed, _ := c.DefineRoutine("Failed", bytecode.TypeVoid)
	cause := errors.New("emission aborted")
	_ = failed.Seal(cause)

	err := c.Finish()
	if err == nil {
		t.Fatal("Finish should fail")
	}
	for _, want := range []error{ErrUnknownClass, ErrNotSealed, ErrRoutineFailed, cause} {
		if !errors.Is(err, want) {
			t.Errorf("Finish error %q does not wrap %v", err, want)
		}
	}
	if c.Finished() {
		t.Error("class should not be finished")
	}

	if _, err := m.Finish(); err == nil {
		t.Error("module Finish should fail too")
	}
}

func TestFinishedClassRejectsMembers(t *testing.T) {
	m := NewModule("demo")
	c, _ := m.DefineClass("Empty")
	if err := c.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if err := c.Finish(); err != nil {
		t.Errorf("second Finish = %v, want nil", err)
	}
	if _, err := c.DefineRoutine("Late", bytecode.TypeVoid); !errors.Is(err, ErrClassFinished) {
		t.Errorf("DefineRoutine after finish error = %v", err)
	}
	if err := c.DefineField("late", bytecode.TypeInt32); !errors.Is(err, ErrClassFinished) {
		t.Errorf("DefineField after finish error = %v", err)
	}
}

func buildCounterModule(t *testing.T) *Module {
	t.Helper()
	m := NewModule("counter")
	c, _ := m.DefineClass("Counter")
	_ = c.DefineField("n", bytecode.TypeInt32)

	ctor, _ := c.DefineConstructor(bytecode.TypeInt32)
	emitBody(t, ctor, func(b *bytecode.Chunk) {
		b.Emit(bytecode.OpLdArg0)
		b.Emit(bytecode.OpLdArg1)
		b.EmitToken(bytecode.OpStFld, c.FieldToken("n"))
		b.Emit(bytecode.OpRet)
	})

	next, _ := c.DefineRoutineWithAttrs("Next", AttrPublic, bytecode.TypeInt32)
	emitBody(t, next, func(b *bytecode.Chunk) {
		b.Emit(bytecode.OpLdArg0)
		b.Emit(bytecode.OpLdArg0)
		b.EmitToken(bytecode.OpLdFld, c.FieldToken("n"))
		b.Emit(bytecode.OpLdcI4_1)
		b.Emit(bytecode.OpAdd)
		b.EmitToken(bytecode.OpStFld, c.FieldToken("n"))
		b.Emit(bytecode.OpLdArg0)
		b.EmitToken(bytecode.OpLdFld, c.FieldToken("n"))
		b.Emit(bytecode.OpRet)
	})

	main, _ := c.DefineRoutine("Main", bytecode.TypeInt32)
	emitBody(t, main, func(b *bytecode.Chunk) {
		b.AddLocal("c", c.Type())
		b.EmitInt8(bytecode.OpLdcI4S, 40)
		b.EmitToken(bytecode.OpNewObj, ctor.Token())
		b.Emit(bytecode.OpStLoc0)
		b.Emit(bytecode.OpLdLoc0)
		b.EmitToken(bytecode.OpCall, next.Token())
		b.Emit(bytecode.OpPop)
		b.Emit(bytecode.OpLdLoc0)
		b.EmitToken(bytecode.OpCall, next.Token())
		b.Emit(bytecode.OpRet)
	})
	return m
}

func TestImageRunsOnInterpreter(t *testing.T) {
	img, err := buildCounterModule(t).Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	got, err := vm.New(img).Invoke(context.Background(), "Counter::Main")
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if got.Int() != 42 {
		t.Errorf("Main() = %s, want 42", got)
	}

	want := []string{"Counter::.ctor(int32)", "Counter::Main()", "Counter::Next()"}
	if diff := cmp.Diff(want, img.RoutineTokens()); diff != "" {
		t.Errorf("RoutineTokens mismatch (-want +got):\n%s", diff)
	}
}

func TestImageCBORRoundTrip(t *testing.T) {
	m := buildCounterModule(t)
	img, err := m.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if _, err := m.Finish(); !errors.Is(err, ErrModuleFinished) {
		t.Errorf("second module Finish error = %v", err)
	}

	data, err := MarshalImage(img)
	if err != nil {
		t.Fatalf("MarshalImage: %v", err)
	}
	again, err := MarshalImage(img)
	if err != nil || string(again) != string(data) {
		t.Error("canonical encoding should be deterministic")
	}

	got, err := UnmarshalImage(data)
	if err != nil {
		t.Fatalf("UnmarshalImage: %v", err)
	}
	if got.Name != "counter" || got.ID != m.ID() || got.Digest != img.Digest {
		t.Errorf("header mismatch: %s %s", got.Name, got.ID)
	}
	if diff := cmp.Diff(img.Classes, got.Classes); diff != "" {
		t.Errorf("classes mismatch (-want +got):\n%s", diff)
	}

	v, err := vm.New(got).Invoke(context.Background(), "Counter::Main()")
	if err != nil {
		t.Fatalf("Invoke on decoded image failed: %v", err)
	}
	if v.Int() != 42 {
		t.Errorf("Main() on decoded image = %s, want 42", v)
	}
}

func TestUnmarshalRejectsTampering(t *testing.T) {
	img, err := buildCounterModule(t).Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	img.Classes[0].Routines[0].Body[len(img.Classes[0].Routines[0].Body)-1] ^= 0xFF
	data, err := MarshalImage(img)
	if err != nil {
		t.Fatalf("MarshalImage: %v", err)
	}
	if _, err := UnmarshalImage(data); !errors.Is(err, ErrDigestMismatch) {
		t.Errorf("UnmarshalImage error = %v, want ErrDigestMismatch", err)
	}
	if _, err := UnmarshalImage([]byte{0xFF, 0x00}); err == nil {
		t.Error("garbage should not decode")
	}
}
