// Package bytecode defines the instruction set of the ilgen stack machine and
// the Chunk, the unit that holds one routine's instruction stream.
//
// The format is designed for:
//   - Compact literals (dedicated opcodes for -1..8, a one-byte immediate
//     form for the signed 8-bit range, full-width forms otherwise)
//   - Compact slot access (dedicated opcodes for locals and arguments 0-3)
//   - Simple decoding (one opcode byte, fixed operand width per opcode,
//     little-endian operands)
//   - Easy serialization (the "ILBC" layout, see Chunk.Serialize)
//
// # Architecture Overview
//
//   - Opcodes: stack, argument, local, literal, arithmetic, comparison,
//     conversion, branch, call/object and return instructions, each described
//     by an OpcodeInfo row.
//
//   - Types: value types are named (Type). Built-in names cover the integer,
//     floating and reference types; any other name is a class, and a "[]"
//     suffix makes an array.
//
//   - Chunk: code, a deduplicated constant pool of tokens, the routine's
//     signature and local slot types, and optional debug information.
//
//   - Labels: branch targets owned by a chunk. A label may be branched to
//     before it is placed; placing it patches every pending branch. Branch
//     operands are 32-bit offsets from the end of the branch instruction.
//
//   - Reader and disassembler: Decode turns bytes back into Instructions,
//     Disassemble renders them with tokens and local names resolved.
package bytecode
