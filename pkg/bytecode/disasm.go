package bytecode

import (
	"fmt"
	"strconv"
	"strings"
)

// Disassemble returns a human-readable bytecode listing for the chunk.
func (c *Chunk) Disassemble() string {
	return c.DisassembleWithName("")
}

// DisassembleWithName returns a human-readable bytecode listing with a name header.
func (c *Chunk) DisassembleWithName(name string) string {
	var sb strings.Builder

	// Header
	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; IL Bytecode v%d\n", c.Version))
	sb.WriteString(fmt.Sprintf("; Flags: 0x%04X", c.Flags))
	if c.Flags&ChunkFlagDebug != 0 {
		sb.WriteString(" [DEBUG]")
	}
	if c.Flags&ChunkFlagInstance != 0 {
		sb.WriteString(" [INSTANCE]")
	}
	sb.WriteString("\n")

	// Signature
	params := make([]string, len(c.ParamTypes))
	for i, t := range c.ParamTypes {
		params[i] = t.String()
		if i < len(c.ParamNames) && c.ParamNames[i] != "" {
			params[i] += " " + c.ParamNames[i]
		}
	}
	sb.WriteString(fmt.Sprintf("; Signature: (%s) %s\n", strings.Join(params, ", "), c.ReturnType))

	// Locals
	if len(c.LocalTypes) > 0 {
		sb.WriteString(fmt.Sprintf("; Locals (%d):\n", len(c.LocalTypes)))
		for i, t := range c.LocalTypes {
			if n := c.getVarName(i); n != "" {
				sb.WriteString(fmt.Sprintf(";   [%3d] %s %s\n", i, t, n))
			} else {
				sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, t))
			}
		}
	}

	sb.WriteString("\n")

	// Constants
	if len(c.Constants) > 0 {
		sb.WriteString("; Constants:\n")
		for i, s := range c.Constants {
			display := s
			if len(display) > 40 {
				display = display[:37] + "..."
			}
			sb.WriteString(fmt.Sprintf(";   [%3d] %q\n", i, display))
		}
		sb.WriteString("\n")
	}

	// Code section
	sb.WriteString("; Code:\n")
	offset := 0
	for offset < len(c.Code) {
		line, instrLen := c.disassembleInstruction(offset)

		if c.Flags&ChunkFlagDebug != 0 {
			if srcLine, srcCol := c.GetSourceLocation(uint32(offset)); srcLine > 0 {
				sb.WriteString(fmt.Sprintf("%04X  %-30s ; line %d:%d\n", offset, line, srcLine, srcCol))
			} else {
				sb.WriteString(fmt.Sprintf("%04X  %s\n", offset, line))
			}
		} else {
			sb.WriteString(fmt.Sprintf("%04X  %s\n", offset, line))
		}

		if instrLen == 0 {
			break
		}
		offset += instrLen
	}

	return sb.String()
}

// disassembleInstruction disassembles a single instruction at the given offset.
// Returns the formatted string and the instruction length.
func (c *Chunk) disassembleInstruction(offset int) (string, int) {
	in, err := Decode(c.Code, offset)
	if err != nil {
		return fmt.Sprintf("<%v>", err), 0
	}
	return c.FormatInstruction(in), in.Len()
}

// FormatInstruction renders a decoded instruction, resolving tokens and
// local names against this chunk.
func (c *Chunk) FormatInstruction(in Instruction) string {
	name := in.Op.String()
	switch in.Op {
	case OpLdcI4S, OpLdcI4, OpLdcI8:
		return fmt.Sprintf("%s %d", name, in.Int)

	case OpLdcR4:
		return fmt.Sprintf("%s %s", name, strconv.FormatFloat(in.Float, 'g', -1, 32))

	case OpLdcR8:
		return fmt.Sprintf("%s %s", name, strconv.FormatFloat(in.Float, 'g', -1, 64))

	case OpLdStr:
		return fmt.Sprintf("%s %q", name, c.constant(in.Int))

	case OpLdLoc, OpStLoc:
		if v := c.getVarName(int(in.Int)); v != "" {
			return fmt.Sprintf("%s %d ; %s", name, in.Int, v)
		}
		return fmt.Sprintf("%s %d", name, in.Int)

	case OpLdLoc0, OpLdLoc1, OpLdLoc2, OpLdLoc3:
		if v := c.getVarName(int(in.Op - OpLdLoc0)); v != "" {
			return fmt.Sprintf("%s ; %s", name, v)
		}
		return name

	case OpStLoc0, OpStLoc1, OpStLoc2, OpStLoc3:
		if v := c.getVarName(int(in.Op - OpStLoc0)); v != "" {
			return fmt.Sprintf("%s ; %s", name, v)
		}
		return name

	case OpLdArg, OpStArg:
		return fmt.Sprintf("%s %d", name, in.Int)

	case OpBr, OpBrFalse, OpBrTrue:
		return fmt.Sprintf("%s %+d (-> %04X)", name, in.Int, in.Target())
	}

	if in.Op.HasToken() {
		return fmt.Sprintf("%s %s", name, c.constant(in.Int))
	}
	return name
}

// constant returns the pool entry for a token operand, tolerating bad indexes.
func (c *Chunk) constant(idx int64) string {
	if idx < 0 || int(idx) >= len(c.Constants) {
		return fmt.Sprintf("<bad token %d>", idx)
	}
	return c.Constants[idx]
}

// DisassembleInstruction returns a human-readable representation of a single instruction.
func (c *Chunk) DisassembleInstruction(offset int) string {
	line, _ := c.disassembleInstruction(offset)
	return line
}

// getVarName returns the variable name for a local slot if available.
func (c *Chunk) getVarName(slot int) string {
	if slot < len(c.VarNames) {
		return c.VarNames[slot]
	}
	return ""
}

// DisassembleToLines returns the disassembly as a slice of lines.
func (c *Chunk) DisassembleToLines() []string {
	var lines []string
	offset := 0
	for offset < len(c.Code) {
		line, instrLen := c.disassembleInstruction(offset)
		lines = append(lines, fmt.Sprintf("%04X  %s", offset, line))
		if instrLen == 0 {
			break
		}
		offset += instrLen
	}
	return lines
}

// Opcodes returns the opcode of every instruction in order.
func (c *Chunk) Opcodes() []Opcode {
	var ops []Opcode
	offset := 0
	for offset < len(c.Code) {
		op := Opcode(c.Code[offset])
		ops = append(ops, op)
		offset += op.InstructionLen()
	}
	return ops
}
