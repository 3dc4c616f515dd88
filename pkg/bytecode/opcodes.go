package bytecode

import "fmt"

// Opcode represents a bytecode instruction.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

const (
	// ========================================================================
	// Stack manipulation (0x00-0x0F)
	// ========================================================================

	OpNop Opcode = 0x00 // No operation
	OpPop Opcode = 0x01 // Pop top of stack
	OpDup Opcode = 0x02 // Duplicate top of stack

	// ========================================================================
	// Arguments (0x10-0x17)
	// ========================================================================

	OpLdArg0 Opcode = 0x10 // Push argument 0
	OpLdArg1 Opcode = 0x11 // Push argument 1
	OpLdArg2 Opcode = 0x12 // Push argument 2
	OpLdArg3 Opcode = 0x13 // Push argument 3
	OpLdArg  Opcode = 0x14 // Push argument: OpLdArg <index:u16>
	OpStArg  Opcode = 0x15 // Pop and store to argument: OpStArg <index:u16>

	// ========================================================================
	// Local variables (0x18-0x2F)
	// ========================================================================

	OpLdLoc0 Opcode = 0x18 // Push local 0
	OpLdLoc1 Opcode = 0x19 // Push local 1
	OpLdLoc2 Opcode = 0x1A // Push local 2
	OpLdLoc3 Opcode = 0x1B // Push local 3
	OpLdLoc  Opcode = 0x1C // Push local: OpLdLoc <slot:u16>
	OpStLoc0 Opcode = 0x1D // Pop into local 0
	OpStLoc1 Opcode = 0x1E // Pop into local 1
	OpStLoc2 Opcode = 0x1F // Pop into local 2
	OpStLoc3 Opcode = 0x20 // Pop into local 3
	OpStLoc  Opcode = 0x21 // Pop into local: OpStLoc <slot:u16>

	// ========================================================================
	// Literals (0x30-0x3F)
	// ========================================================================

	OpLdNull  Opcode = 0x30 // Push null reference
	OpLdcI4M1 Opcode = 0x31 // Push int32 -1
	OpLdcI4_0 Opcode = 0x32 // Push int32 0
	OpLdcI4_1 Opcode = 0x33 // Push int32 1
	OpLdcI4_2 Opcode = 0x34 // Push int32 2
	OpLdcI4_3 Opcode = 0x35 // Push int32 3
	OpLdcI4_4 Opcode = 0x36 // Push int32 4
	OpLdcI4_5 Opcode = 0x37 // Push int32 5
	OpLdcI4_6 Opcode = 0x38 // Push int32 6
	OpLdcI4_7 Opcode = 0x39 // Push int32 7
	OpLdcI4_8 Opcode = 0x3A // Push int32 8
	OpLdcI4S  Opcode = 0x3B // Push int32 from short immediate: OpLdcI4S <value:i8>
	OpLdcI4   Opcode = 0x3C // Push int32: OpLdcI4 <value:i32>
	OpLdcI8   Opcode = 0x3D // Push int64: OpLdcI8 <value:i64>
	OpLdcR4   Opcode = 0x3E // Push float32: OpLdcR4 <value:f32>
	OpLdcR8   Opcode = 0x3F // Push float64: OpLdcR8 <value:f64>
	OpLdStr   Opcode = 0x40 // Push string constant: OpLdStr <index:u16>

	// ========================================================================
	// Arithmetic (0x50-0x5F)
	// ========================================================================

	OpAdd   Opcode = 0x50 // Pop two, push sum
	OpSub   Opcode = 0x51 // Pop two, push difference (a - b where b is TOS)
	OpMul   Opcode = 0x52 // Pop two, push product
	OpDiv   Opcode = 0x53 // Pop two, push signed quotient
	OpDivUn Opcode = 0x54 // Pop two, push unsigned quotient
	OpRem   Opcode = 0x55 // Pop two, push signed remainder
	OpRemUn Opcode = 0x56 // Pop two, push unsigned remainder
	OpNeg   Opcode = 0x57 // Negate top of stack

	// ========================================================================
	// Comparison (0x60-0x6F) - push int32 1 or 0
	// ========================================================================

	OpCeq   Opcode = 0x60 // Pop two, push 1 if equal
	OpCgt   Opcode = 0x61 // Pop two, push 1 if a > b (signed)
	OpCgtUn Opcode = 0x62 // Pop two, push 1 if a > b (unsigned or unordered)
	OpClt   Opcode = 0x63 // Pop two, push 1 if a < b (signed)
	OpCltUn Opcode = 0x64 // Pop two, push 1 if a < b (unsigned or unordered)

	// ========================================================================
	// Conversion (0x70-0x7F)
	// ========================================================================

	OpConvI1    Opcode = 0x70 // Truncate to int8, push as int32
	OpConvI2    Opcode = 0x71 // Truncate to int16, push as int32
	OpConvI4    Opcode = 0x72 // Convert to int32
	OpConvI8    Opcode = 0x73 // Convert to int64
	OpConvU1    Opcode = 0x74 // Truncate to uint8, push as int32
	OpConvU2    Opcode = 0x75 // Truncate to uint16, push as int32
	OpConvU4    Opcode = 0x76 // Convert to uint32, push as int32
	OpConvU8    Opcode = 0x77 // Convert to uint64, push as int64
	OpConvR4    Opcode = 0x78 // Convert to float32
	OpConvR8    Opcode = 0x79 // Convert to float64
	OpBox       Opcode = 0x7A // Box value: OpBox <type:u16>
	OpUnbox     Opcode = 0x7B // Unbox value: OpUnbox <type:u16>
	OpCastClass Opcode = 0x7C // Checked reference cast: OpCastClass <type:u16>

	// ========================================================================
	// Control flow (0x80-0x8F)
	// ========================================================================

	OpBr      Opcode = 0x80 // Unconditional branch: OpBr <offset:i32>
	OpBrFalse Opcode = 0x81 // Branch if top is zero or null: OpBrFalse <offset:i32>
	OpBrTrue  Opcode = 0x82 // Branch if top is non-zero: OpBrTrue <offset:i32>

	// ========================================================================
	// Calls and objects (0x90-0x9F)
	// ========================================================================

	OpCall   Opcode = 0x90 // Call routine: OpCall <routine:u16>
	OpNewObj Opcode = 0x91 // Allocate and construct: OpNewObj <ctor:u16>
	OpNewArr Opcode = 0x92 // Allocate array of length TOS: OpNewArr <elem:u16>
	OpLdElem Opcode = 0x93 // array index -> value
	OpStElem Opcode = 0x94 // array index value ->
	OpLdLen  Opcode = 0x95 // array -> length
	OpLdFld  Opcode = 0x96 // object -> field value: OpLdFld <field:u16>
	OpStFld  Opcode = 0x97 // object value -> : OpStFld <field:u16>

	// ========================================================================
	// Return (0xF0-0xFF)
	// ========================================================================

	OpRet Opcode = 0xF0 // Return, with the top of stack for non-void routines
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name       string // Human-readable name
	StackPop   int    // How many values popped from stack (-1 = variable)
	StackPush  int    // How many values pushed to stack (-1 = variable)
	OperandLen int    // Number of operand bytes following the opcode
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Stack manipulation
	OpNop: {"nop", 0, 0, 0},
	OpPop: {"pop", 1, 0, 0},
	OpDup: {"dup", 1, 2, 0},

	// Arguments
	OpLdArg0: {"ldarg.0", 0, 1, 0},
	OpLdArg1: {"ldarg.1", 0, 1, 0},
	OpLdArg2: {"ldarg.2", 0, 1, 0},
	OpLdArg3: {"ldarg.3", 0, 1, 0},
	OpLdArg:  {"ldarg", 0, 1, 2},
	OpStArg:  {"starg", 1, 0, 2},

	// Locals
	OpLdLoc0: {"ldloc.0", 0, 1, 0},
	OpLdLoc1: {"ldloc.1", 0, 1, 0},
	OpLdLoc2: {"ldloc.2", 0, 1, 0},
	OpLdLoc3: {"ldloc.3", 0, 1, 0},
	OpLdLoc:  {"ldloc", 0, 1, 2},
	OpStLoc0: {"stloc.0", 1, 0, 0},
	OpStLoc1: {"stloc.1", 1, 0, 0},
	OpStLoc2: {"stloc.2", 1, 0, 0},
	OpStLoc3: {"stloc.3", 1, 0, 0},
	OpStLoc:  {"stloc", 1, 0, 2},

	// Literals
	OpLdNull:  {"ldnull", 0, 1, 0},
	OpLdcI4M1: {"ldc.i4.m1", 0, 1, 0},
	OpLdcI4_0: {"ldc.i4.0", 0, 1, 0},
	OpLdcI4_1: {"ldc.i4.1", 0, 1, 0},
	OpLdcI4_2: {"ldc.i4.2", 0, 1, 0},
	OpLdcI4_3: {"ldc.i4.3", 0, 1, 0},
	OpLdcI4_4: {"ldc.i4.4", 0, 1, 0},
	OpLdcI4_5: {"ldc.i4.5", 0, 1, 0},
	OpLdcI4_6: {"ldc.i4.6", 0, 1, 0},
	OpLdcI4_7: {"ldc.i4.7", 0, 1, 0},
	OpLdcI4_8: {"ldc.i4.8", 0, 1, 0},
	OpLdcI4S:  {"ldc.i4.s", 0, 1, 1},
	OpLdcI4:   {"ldc.i4", 0, 1, 4},
	OpLdcI8:   {"ldc.i8", 0, 1, 8},
	OpLdcR4:   {"ldc.r4", 0, 1, 4},
	OpLdcR8:   {"ldc.r8", 0, 1, 8},
	OpLdStr:   {"ldstr", 0, 1, 2},

	// Arithmetic
	OpAdd:   {"add", 2, 1, 0},
	OpSub:   {"sub", 2, 1, 0},
	OpMul:   {"mul", 2, 1, 0},
	OpDiv:   {"div", 2, 1, 0},
	OpDivUn: {"div.un", 2, 1, 0},
	OpRem:   {"rem", 2, 1, 0},
	OpRemUn: {"rem.un", 2, 1, 0},
	OpNeg:   {"neg", 1, 1, 0},

	// Comparison
	OpCeq:   {"ceq", 2, 1, 0},
	OpCgt:   {"cgt", 2, 1, 0},
	OpCgtUn: {"cgt.un", 2, 1, 0},
	OpClt:   {"clt", 2, 1, 0},
	OpCltUn: {"clt.un", 2, 1, 0},

	// Conversion
	OpConvI1:    {"conv.i1", 1, 1, 0},
	OpConvI2:    {"conv.i2", 1, 1, 0},
	OpConvI4:    {"conv.i4", 1, 1, 0},
	OpConvI8:    {"conv.i8", 1, 1, 0},
	OpConvU1:    {"conv.u1", 1, 1, 0},
	OpConvU2:    {"conv.u2", 1, 1, 0},
	OpConvU4:    {"conv.u4", 1, 1, 0},
	OpConvU8:    {"conv.u8", 1, 1, 0},
	OpConvR4:    {"conv.r4", 1, 1, 0},
	OpConvR8:    {"conv.r8", 1, 1, 0},
	OpBox:       {"box", 1, 1, 2},
	OpUnbox:     {"unbox", 1, 1, 2},
	OpCastClass: {"castclass", 1, 1, 2},

	// Control flow
	OpBr:      {"br", 0, 0, 4},
	OpBrFalse: {"brfalse", 1, 0, 4},
	OpBrTrue:  {"brtrue", 1, 0, 4},

	// Calls and objects
	OpCall:   {"call", -1, -1, 2}, // Pops the callee's arguments, pushes its result if any
	OpNewObj: {"newobj", -1, 1, 2},
	OpNewArr: {"newarr", 1, 1, 2},
	OpLdElem: {"ldelem", 2, 1, 0},
	OpStElem: {"stelem", 3, 0, 0},
	OpLdLen:  {"ldlen", 1, 1, 0},
	OpLdFld:  {"ldfld", 1, 1, 2},
	OpStFld:  {"stfld", 2, 0, 2},

	// Return
	OpRet: {"ret", -1, 0, 0},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// InstructionLen returns the total length of an instruction (1 + operand bytes).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// IsValid reports whether op is part of the instruction set.
func (op Opcode) IsValid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// IsBranch returns true if this opcode is a branch instruction.
func (op Opcode) IsBranch() bool {
	return op >= OpBr && op <= OpBrTrue
}

// IsReturn returns true if this opcode terminates execution.
func (op Opcode) IsReturn() bool {
	return op == OpRet
}

// HasToken returns true if the operand is an index into the constant pool.
func (op Opcode) HasToken() bool {
	switch op {
	case OpLdStr, OpBox, OpUnbox, OpCastClass, OpCall, OpNewObj, OpNewArr, OpLdFld, OpStFld:
		return true
	}
	return false
}

// ShortLdLoc returns the compact load form for slots 0-3.
func ShortLdLoc(slot int) (Opcode, bool) {
	if slot < 0 || slot > 3 {
		return 0, false
	}
	return OpLdLoc0 + Opcode(slot), true
}

// ShortStLoc returns the compact store form for slots 0-3.
func ShortStLoc(slot int) (Opcode, bool) {
	if slot < 0 || slot > 3 {
		return 0, false
	}
	return OpStLoc0 + Opcode(slot), true
}

// ShortLdArg returns the compact argument load form for indexes 0-3.
func ShortLdArg(index int) (Opcode, bool) {
	if index < 0 || index > 3 {
		return 0, false
	}
	return OpLdArg0 + Opcode(index), true
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
