package bytecode

import (
	"strings"
	"testing"
)

func TestDisassembleHeader(t *testing.T) {
	c := NewChunk()
	c.ReturnType = TypeInt32
	c.ParamTypes = []Type{TypeInt32}
	c.ParamNames = []string{"n"}
	c.AddLocal("acc", TypeInt32)
	c.Emit(OpRet)

	out := c.DisassembleWithName("Demo::Sum")
	for _, want := range []string{
		"; === Demo::Sum ===",
		"; IL Bytecode v1",
		"; Signature: (int32 n) int32",
		"; Locals (1):",
		"int32 acc",
		"0000  ret",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q:\n%s", want, out)
		}
	}
}

func TestDisassembleOperands(t *testing.T) {
	c := NewChunk()
	c.AddLocal("x", TypeInt32)
	c.EmitToken(OpLdStr, "hello")
	c.EmitInt8(OpLdcI4S, -5)
	c.EmitFloat64(OpLdcR8, 2.5)
	c.Emit(OpStLoc0)
	c.EmitUint16(OpLdLoc, 0)
	c.EmitToken(OpCall, "Demo::Print")

	lines := c.DisassembleToLines()
	want := []string{
		`0000  ldstr "hello"`,
		`0003  ldc.i4.s -5`,
		`0005  ldc.r8 2.5`,
		`000E  stloc.0 ; x`,
		`000F  ldloc 0 ; x`,
		`0012  call Demo::Print`,
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), strings.Join(lines, "\n"))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestDisassembleBranch(t *testing.T) {
	c := NewChunk()
	end := c.NewLabel("end")
	_, _ = c.EmitBranch(OpBrFalse, end)
	c.Emit(OpNop)
	_ = c.Mark(end)
	c.Emit(OpRet)

	line := c.DisassembleInstruction(0)
	if line != "brfalse +1 (-> 0006)" {
		t.Errorf("branch line = %q", line)
	}
}

func TestDisassembleDebugLines(t *testing.T) {
	c := NewChunk()
	c.Emit(OpLdcI4_1)
	c.AddSourceLocation(0, 4, 2)
	c.Emit(OpRet)

	out := c.Disassemble()
	if !strings.Contains(out, "[DEBUG]") {
		t.Error("header should mention debug flag")
	}
	if !strings.Contains(out, "; line 4:2") {
		t.Errorf("missing source line annotation:\n%s", out)
	}
}

func TestOpcodesListing(t *testing.T) {
	c := NewChunk()
	c.Emit(OpLdArg0)
	c.EmitInt32(OpLdcI4, 1000)
	c.Emit(OpCgt)
	c.Emit(OpRet)

	ops := c.Opcodes()
	want := []Opcode{OpLdArg0, OpLdcI4, OpCgt, OpRet}
	if len(ops) != len(want) {
		t.Fatalf("Opcodes() = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("op %d = %s, want %s", i, ops[i], want[i])
		}
	}
}
