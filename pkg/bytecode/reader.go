package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrTruncated is returned when an instruction's operand runs past the end
// of the code section.
var ErrTruncated = errors.New("truncated instruction")

// Instruction is one decoded instruction. Int holds integer immediates,
// constant-pool indexes and branch offsets; Float holds floating immediates.
type Instruction struct {
	Offset int
	Op     Opcode
	Int    int64
	Float  float64
}

// Len returns the encoded length of the instruction.
func (in Instruction) Len() int {
	return in.Op.InstructionLen()
}

// Target returns the absolute branch target of a branch instruction.
func (in Instruction) Target() int {
	return in.Offset + in.Len() + int(in.Int)
}

// EmitInstruction appends the encoding of in to the chunk. Branches are not
// accepted here; use EmitBranch with a Label.
func (c *Chunk) EmitInstruction(in Instruction) (int, error) {
	switch n := in.Op.OperandLen(); {
	case !in.Op.IsValid():
		return 0, fmt.Errorf("unknown opcode 0x%02X", byte(in.Op))
	case in.Op.IsBranch():
		return 0, fmt.Errorf("%s needs a label", in.Op)
	case n == 0:
		return c.Emit(in.Op), nil
	case in.Op == OpLdcI4S:
		return c.EmitInt8(in.Op, int8(in.Int)), nil
	case in.Op == OpLdcR4:
		return c.EmitFloat32(in.Op, float32(in.Float)), nil
	case in.Op == OpLdcR8:
		return c.EmitFloat64(in.Op, in.Float), nil
	case n == 2:
		return c.EmitUint16(in.Op, uint16(in.Int)), nil
	case n == 4:
		return c.EmitInt32(in.Op, int32(in.Int)), nil
	case n == 8:
		return c.EmitInt64(in.Op, in.Int), nil
	default:
		return 0, fmt.Errorf("%s: unsupported operand width %d", in.Op, n)
	}
}

// BytecodeReader reads bytecode for interpretation or disassembly.
type BytecodeReader struct {
	bytes []byte
	pos   int
}

// NewBytecodeReader creates a reader for bytecode.
func NewBytecodeReader(bc []byte) *BytecodeReader {
	return &BytecodeReader{bytes: bc}
}

// Position returns the current read position.
func (r *BytecodeReader) Position() int {
	return r.pos
}

// HasMore returns true if there are more bytes to read.
func (r *BytecodeReader) HasMore() bool {
	return r.pos < len(r.bytes)
}

// Seek sets the read position.
func (r *BytecodeReader) Seek(pos int) {
	r.pos = pos
}

// Next decodes the instruction at the current position and advances past it.
func (r *BytecodeReader) Next() (Instruction, error) {
	in, err := Decode(r.bytes, r.pos)
	if err != nil {
		return in, err
	}
	r.pos += in.Len()
	return in, nil
}

// Decode decodes the instruction starting at offset.
func Decode(code []byte, offset int) (Instruction, error) {
	if offset < 0 || offset >= len(code) {
		return Instruction{}, fmt.Errorf("%w: offset %d outside code of length %d", ErrTruncated, offset, len(code))
	}
	op := Opcode(code[offset])
	if !op.IsValid() {
		return Instruction{Offset: offset, Op: op}, fmt.Errorf("unknown opcode 0x%02X at %04X", byte(op), offset)
	}
	in := Instruction{Offset: offset, Op: op}
	n := op.OperandLen()
	if offset+1+n > len(code) {
		return in, fmt.Errorf("%w: %s at %04X", ErrTruncated, op, offset)
	}
	operand := code[offset+1 : offset+1+n]

	switch {
	case n == 0:
	case op == OpLdcI4S:
		in.Int = int64(int8(operand[0]))
	case op == OpLdcR4:
		in.Float = float64(math.Float32frombits(binary.LittleEndian.Uint32(operand)))
	case op == OpLdcR8:
		in.Float = math.Float64frombits(binary.LittleEndian.Uint64(operand))
	case n == 2:
		in.Int = int64(binary.LittleEndian.Uint16(operand))
	case n == 4:
		in.Int = int64(int32(binary.LittleEndian.Uint32(operand)))
	case n == 8:
		in.Int = int64(binary.LittleEndian.Uint64(operand))
	}
	return in, nil
}

// Instructions decodes the whole code section.
func (c *Chunk) Instructions() ([]Instruction, error) {
	var out []Instruction
	r := NewBytecodeReader(c.Code)
	for r.HasMore() {
		in, err := r.Next()
		if err != nil {
			return out, err
		}
		out = append(out, in)
	}
	return out, nil
}

// InstructionCount returns the number of instructions in the chunk.
// Note: This iterates through all code, so it's O(n).
func (c *Chunk) InstructionCount() int {
	count := 0
	offset := 0
	for offset < len(c.Code) {
		op := Opcode(c.Code[offset])
		offset += op.InstructionLen()
		count++
	}
	return count
}
