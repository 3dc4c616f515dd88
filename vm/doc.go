// Package vm implements the stack machine that runs ilgen routine bodies.
//
// This package contains:
//   - Tagged Value representation (int32, int64, float32, float64, references)
//   - Heap objects, arrays and boxed values
//   - The Linker interface resolving routine and class tokens
//   - The bytecode interpreter
//
// The interpreter exists so emitted code can be executed and observed. It
// follows the usual stack-machine rules: narrow integers widen to int32 on
// the stack, comparisons push int32 1 or 0, brfalse branches on zero or
// null, and stores narrow values to the declared slot type.
package vm
