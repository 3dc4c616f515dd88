// Package assembly provides the module, class and routine factories that
// code generators emit into, and the sealed Image they produce.
//
// A Module holds classes; a Class holds fields and routines; a Routine
// exposes its body (a bytecode.Chunk) to exactly one generator, which
// seals it when done. Module.Finish checks every routine and seals the
// module into an Image, which the interpreter links against and which
// travels as canonical CBOR.
//
// Routine tokens carry the signature ("Point::Scale(int32)"); field
// tokens do not ("Point::x"). TypeCache resolves members by name and
// signature across base classes.
package assembly
