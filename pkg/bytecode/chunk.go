package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// BytecodeVersion is the current bytecode format version.
// Increment when making incompatible changes to the format.
const BytecodeVersion uint16 = 1

// Magic bytes for serialized routine bodies: "ILBC" (IL ByteCode)
var BytecodeMagic = []byte{'I', 'L', 'B', 'C'}

var (
	// ErrLabelPlaced is returned when a label is marked a second time.
	ErrLabelPlaced = errors.New("label already placed")

	// ErrForeignLabel is returned when a label created by one chunk is used in another.
	ErrForeignLabel = errors.New("label belongs to a different routine body")
)

// ChunkFlags contains compilation flags for a chunk.
type ChunkFlags uint16

const (
	// ChunkFlagDebug indicates debug information is present.
	ChunkFlagDebug ChunkFlags = 1 << 0

	// ChunkFlagInstance indicates argument 0 is the receiver.
	ChunkFlagInstance ChunkFlags = 1 << 1
)

// SourceLocation maps bytecode position to source location for debugging.
type SourceLocation struct {
	BytecodeOffset uint32 // Offset in code section
	Line           uint32 // Source line number (1-based)
	Column         uint16 // Source column number (1-based)
}

// Chunk is the instruction stream of one routine together with everything
// needed to execute it: the constant pool its tokens index into, the
// argument and local slot types, and the return type.
type Chunk struct {
	// Header
	Version uint16     // Bytecode format version
	Flags   ChunkFlags // Compilation flags

	// Code section
	Code []byte // Bytecode instructions

	// Constant pool: string literals and type/routine/field tokens
	Constants []string

	// Signature
	ReturnType Type
	ParamTypes []Type
	ParamNames []string // Parameter names (for debugging/reflection)

	// Local variable slot types, in declaration order
	LocalTypes []Type

	// Debug information (optional, present if ChunkFlagDebug is set)
	SourceMap []SourceLocation // Bytecode offset -> source location
	VarNames  []string         // Local variable names for debugging

	constantMap map[string]uint16
	labels      []*Label
}

// NewChunk creates a new empty chunk with the current version.
func NewChunk() *Chunk {
	return &Chunk{
		Version:   BytecodeVersion,
		Code:      make([]byte, 0, 64),
		Constants: make([]string, 0, 8),
	}
}

// AddConstant adds a string constant to the pool and returns its index.
// If the constant already exists, returns the existing index.
func (c *Chunk) AddConstant(value string) uint16 {
	if c.constantMap == nil {
		c.constantMap = make(map[string]uint16, len(c.Constants))
		for i, s := range c.Constants {
			c.constantMap[s] = uint16(i)
		}
	}
	if idx, ok := c.constantMap[value]; ok {
		return idx
	}
	idx := uint16(len(c.Constants))
	c.Constants = append(c.Constants, value)
	c.constantMap[value] = idx
	return idx
}

// GetConstant returns the constant at the given index.
// Panics if the index is out of bounds.
func (c *Chunk) GetConstant(index uint16) string {
	return c.Constants[index]
}

// ConstantCount returns the number of constants in the pool.
func (c *Chunk) ConstantCount() int {
	return len(c.Constants)
}

// AddLocal appends a local slot of the given type and returns its index.
func (c *Chunk) AddLocal(name string, t Type) int {
	idx := len(c.LocalTypes)
	c.LocalTypes = append(c.LocalTypes, t)
	c.VarNames = append(c.VarNames, name)
	return idx
}

// LocalCount returns the number of local variable slots.
func (c *Chunk) LocalCount() int {
	return len(c.LocalTypes)
}

// IsInstance reports whether argument 0 is the receiver.
func (c *Chunk) IsInstance() bool {
	return c.Flags&ChunkFlagInstance != 0
}

// ArgCount returns the number of argument slots, including the receiver of
// instance routines.
func (c *Chunk) ArgCount() int {
	if c.IsInstance() {
		return len(c.ParamTypes) + 1
	}
	return len(c.ParamTypes)
}

// ---------------------------------------------------------------------------
// Emission
// ---------------------------------------------------------------------------

// Emit appends a single-byte opcode to the code section.
func (c *Chunk) Emit(op Opcode) int {
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op))
	return offset
}

// EmitInt8 appends an opcode with a signed 8-bit operand.
func (c *Chunk) EmitInt8(op Opcode, operand int8) int {
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op), byte(operand))
	return offset
}

// EmitUint16 appends an opcode with a 16-bit operand (little-endian).
func (c *Chunk) EmitUint16(op Opcode, operand uint16) int {
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op))
	c.Code = binary.LittleEndian.AppendUint16(c.Code, operand)
	return offset
}

// EmitInt32 appends an opcode with a 32-bit operand (little-endian).
func (c *Chunk) EmitInt32(op Opcode, operand int32) int {
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op))
	c.Code = binary.LittleEndian.AppendUint32(c.Code, uint32(operand))
	return offset
}

// EmitInt64 appends an opcode with a 64-bit operand (little-endian).
func (c *Chunk) EmitInt64(op Opcode, operand int64) int {
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op))
	c.Code = binary.LittleEndian.AppendUint64(c.Code, uint64(operand))
	return offset
}

// EmitFloat32 appends an opcode with a 32-bit float operand.
func (c *Chunk) EmitFloat32(op Opcode, operand float32) int {
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op))
	c.Code = binary.LittleEndian.AppendUint32(c.Code, math.Float32bits(operand))
	return offset
}

// EmitFloat64 appends an opcode with a 64-bit float operand.
func (c *Chunk) EmitFloat64(op Opcode, operand float64) int {
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op))
	c.Code = binary.LittleEndian.AppendUint64(c.Code, math.Float64bits(operand))
	return offset
}

// EmitToken appends an opcode whose operand indexes the constant pool.
func (c *Chunk) EmitToken(op Opcode, token string) int {
	return c.EmitUint16(op, c.AddConstant(token))
}

// CurrentOffset returns the current offset in the code section.
func (c *Chunk) CurrentOffset() int {
	return len(c.Code)
}

// CodeLen returns the length of the code section.
func (c *Chunk) CodeLen() int {
	return len(c.Code)
}

// AddSourceLocation adds a debug source location mapping.
func (c *Chunk) AddSourceLocation(bytecodeOffset uint32, line uint32, column uint16) {
	c.Flags |= ChunkFlagDebug
	c.SourceMap = append(c.SourceMap, SourceLocation{
		BytecodeOffset: bytecodeOffset,
		Line:           line,
		Column:         column,
	})
}

// GetSourceLocation returns the source location for a bytecode offset.
// Returns line 0, column 0 if no mapping exists.
func (c *Chunk) GetSourceLocation(offset uint32) (line uint32, column uint16) {
	for i := len(c.SourceMap) - 1; i >= 0; i-- {
		if c.SourceMap[i].BytecodeOffset <= offset {
			return c.SourceMap[i].Line, c.SourceMap[i].Column
		}
	}
	return 0, 0
}

// ---------------------------------------------------------------------------
// Labels
// ---------------------------------------------------------------------------

type labelState uint8

const (
	labelUnplaced labelState = iota
	labelPlaced
)

// Label is a jump target inside one chunk. A label starts unplaced and may
// be branched to before it is placed; placing it patches every pending
// branch. A label is placed at most once.
type Label struct {
	owner *Chunk
	id    int
	name  string
	state labelState
	addr  int
	refs  []int // operand positions waiting for the address
}

// ID returns the label's index among the chunk's labels.
func (l *Label) ID() int {
	return l.id
}

// Name returns the label's name, or "" for anonymous labels.
func (l *Label) Name() string {
	return l.name
}

// Placed reports whether the label has been bound to an address.
func (l *Label) Placed() bool {
	return l.state == labelPlaced
}

// Addr returns the bound address and whether the label is placed.
func (l *Label) Addr() (int, bool) {
	return l.addr, l.state == labelPlaced
}

// String returns a short description for diagnostics.
func (l *Label) String() string {
	name := l.name
	if name == "" {
		name = fmt.Sprintf("L%d", l.id)
	}
	if l.state == labelPlaced {
		return fmt.Sprintf("%s@%04X", name, l.addr)
	}
	return name + "@?"
}

// NewLabel creates an unplaced label owned by this chunk.
func (c *Chunk) NewLabel(name string) *Label {
	l := &Label{owner: c, id: len(c.labels), name: name, refs: make([]int, 0, 2)}
	c.labels = append(c.labels, l)
	return l
}

// Mark places a label at the current position and patches all forward
// references to it.
func (c *Chunk) Mark(label *Label) error {
	if label.owner != c {
		return ErrForeignLabel
	}
	if label.state == labelPlaced {
		return fmt.Errorf("%w: %s", ErrLabelPlaced, label)
	}
	label.state = labelPlaced
	label.addr = len(c.Code)

	for _, ref := range label.refs {
		c.patchBranch(ref, label.addr)
	}
	label.refs = nil
	return nil
}

// EmitBranch emits a branch instruction targeting label. Backward branches
// are resolved immediately; forward branches are patched by Mark.
func (c *Chunk) EmitBranch(op Opcode, label *Label) (int, error) {
	if label.owner != c {
		return 0, ErrForeignLabel
	}
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op), 0, 0, 0, 0)
	if label.state == labelPlaced {
		c.patchBranch(offset+1, label.addr)
	} else {
		label.refs = append(label.refs, offset+1)
	}
	return offset, nil
}

// patchBranch writes the offset from the end of the operand at ref to target.
func (c *Chunk) patchBranch(ref, target int) {
	delta := int32(target - (ref + 4))
	binary.LittleEndian.PutUint32(c.Code[ref:], uint32(delta))
}

// Labels returns every label created for this chunk.
func (c *Chunk) Labels() []*Label {
	return c.labels
}

// Unresolved returns labels that are targeted by a branch but never placed.
func (c *Chunk) Unresolved() []*Label {
	var out []*Label
	for _, l := range c.labels {
		if l.state == labelUnplaced && len(l.refs) > 0 {
			out = append(out, l)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// Serialize encodes the chunk to bytes for storage/transport.
// Format:
//
//	[magic:4] [version:2] [flags:2]
//	[code_len:4] [code:...]
//	[const_count:2] [constants:...]
//	[return_type:str8]
//	[param_count:1] [param_types:str8...] [param_names:str8...]
//	[local_count:2] [local_types:str8...]
//	[debug_present:1] [debug_info:...] (if ChunkFlagDebug)
func (c *Chunk) Serialize() ([]byte, error) {
	if len(c.ParamTypes) > math.MaxUint8 {
		return nil, fmt.Errorf("too many parameters: %d", len(c.ParamTypes))
	}
	if len(c.Constants) > math.MaxUint16 || len(c.LocalTypes) > math.MaxUint16 {
		return nil, fmt.Errorf("constant pool or local table exceeds %d entries", math.MaxUint16)
	}

	estimatedSize := 8 + len(c.Code) + len(c.Constants)*16 + 64
	buf := make([]byte, 0, estimatedSize)

	buf = append(buf, BytecodeMagic...)
	buf = binary.BigEndian.AppendUint16(buf, c.Version)
	buf = binary.BigEndian.AppendUint16(buf, uint16(c.Flags))

	// Code section
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(c.Code)))
	buf = append(buf, c.Code...)

	// Constants
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(c.Constants)))
	for _, s := range c.Constants {
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(s)))
		buf = append(buf, s...)
	}

	// Signature
	buf = appendStr8(buf, string(c.ReturnType))
	buf = append(buf, byte(len(c.ParamTypes)))
	for _, t := range c.ParamTypes {
		buf = appendStr8(buf, string(t))
	}
	for i := range c.ParamTypes {
		name := ""
		if i < len(c.ParamNames) {
			name = c.ParamNames[i]
		}
		buf = appendStr8(buf, name)
	}

	// Locals
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(c.LocalTypes)))
	for _, t := range c.LocalTypes {
		buf = appendStr8(buf, string(t))
	}

	if c.Flags&ChunkFlagDebug != 0 {
		buf = append(buf, 1)

		buf = binary.BigEndian.AppendUint16(buf, uint16(len(c.SourceMap)))
		for _, loc := range c.SourceMap {
			buf = binary.BigEndian.AppendUint32(buf, loc.BytecodeOffset)
			buf = binary.BigEndian.AppendUint32(buf, loc.Line)
			buf = binary.BigEndian.AppendUint16(buf, loc.Column)
		}

		buf = binary.BigEndian.AppendUint16(buf, uint16(len(c.VarNames)))
		for _, name := range c.VarNames {
			buf = appendStr8(buf, name)
		}
	} else {
		buf = append(buf, 0)
	}

	return buf, nil
}

func appendStr8(buf []byte, s string) []byte {
	if len(s) > math.MaxUint8 {
		s = s[:math.MaxUint8]
	}
	buf = append(buf, byte(len(s)))
	return append(buf, s...)
}

// decoder reads the serialized layout, remembering the first failure.
type decoder struct {
	data []byte
	pos  int
	err  error
}

func (d *decoder) need(n int, what string) bool {
	if d.err != nil {
		return false
	}
	if d.pos+n > len(d.data) {
		d.err = fmt.Errorf("unexpected end of bytecode reading %s at pos %d", what, d.pos)
		return false
	}
	return true
}

func (d *decoder) u8(what string) uint8 {
	if !d.need(1, what) {
		return 0
	}
	v := d.data[d.pos]
	d.pos++
	return v
}

func (d *decoder) u16(what string) uint16 {
	if !d.need(2, what) {
		return 0
	}
	v := binary.BigEndian.Uint16(d.data[d.pos:])
	d.pos += 2
	return v
}

func (d *decoder) u32(what string) uint32 {
	if !d.need(4, what) {
		return 0
	}
	v := binary.BigEndian.Uint32(d.data[d.pos:])
	d.pos += 4
	return v
}

func (d *decoder) bytes(n int, what string) []byte {
	if !d.need(n, what) {
		return nil
	}
	v := d.data[d.pos : d.pos+n]
	d.pos += n
	return v
}

func (d *decoder) str8(what string) string {
	n := d.u8(what + " length")
	return string(d.bytes(int(n), what))
}

// Deserialize decodes a chunk from bytes.
func Deserialize(data []byte) (*Chunk, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("bytecode too short: need at least 8 bytes, got %d", len(data))
	}
	if string(data[0:4]) != string(BytecodeMagic) {
		return nil, fmt.Errorf("invalid bytecode magic: expected %q, got %q", BytecodeMagic, data[0:4])
	}

	c := &Chunk{
		Version: binary.BigEndian.Uint16(data[4:6]),
		Flags:   ChunkFlags(binary.BigEndian.Uint16(data[6:8])),
	}
	if c.Version > BytecodeVersion {
		return nil, fmt.Errorf("bytecode version %d is newer than supported version %d", c.Version, BytecodeVersion)
	}

	d := &decoder{data: data, pos: 8}

	codeLen := d.u32("code length")
	c.Code = append([]byte(nil), d.bytes(int(codeLen), "code section")...)

	constCount := d.u16("constant count")
	c.Constants = make([]string, 0, constCount)
	for i := 0; i < int(constCount) && d.err == nil; i++ {
		n := d.u16(fmt.Sprintf("constant %d length", i))
		c.Constants = append(c.Constants, string(d.bytes(int(n), fmt.Sprintf("constant %d", i))))
	}

	c.ReturnType = Type(d.str8("return type"))
	paramCount := int(d.u8("param count"))
	for i := 0; i < paramCount && d.err == nil; i++ {
		c.ParamTypes = append(c.ParamTypes, Type(d.str8(fmt.Sprintf("param %d type", i))))
	}
	for i := 0; i < paramCount && d.err == nil; i++ {
		c.ParamNames = append(c.ParamNames, d.str8(fmt.Sprintf("param %d name", i)))
	}

	localCount := int(d.u16("local count"))
	for i := 0; i < localCount && d.err == nil; i++ {
		c.LocalTypes = append(c.LocalTypes, Type(d.str8(fmt.Sprintf("local %d type", i))))
	}

	if d.u8("debug marker") != 0 {
		n := int(d.u16("source map count"))
		for i := 0; i < n && d.err == nil; i++ {
			var loc SourceLocation
			loc.BytecodeOffset = d.u32("source location offset")
			loc.Line = d.u32("source location line")
			loc.Column = d.u16("source location column")
			c.SourceMap = append(c.SourceMap, loc)
		}
		n = int(d.u16("var names count"))
		for i := 0; i < n && d.err == nil; i++ {
			c.VarNames = append(c.VarNames, d.str8(fmt.Sprintf("var name %d", i)))
		}
	}

	if d.err != nil {
		return nil, d.err
	}
	return c, nil
}
