// Package asm provides the textual form of raw buffer operations.
//
// The grammar mirrors the operation structure: a mnemonic, an optional
// attribute dictionary, the operands, and a type signature.
//
//	raw_buffer_load {indexOffset = 3} %src[2, 3] sgprOffset 10 : memref<8x16xf32>, i32, i32 -> f32
//	raw_buffer_store %v -> %dst[4] : f32 -> memref<8xf32>, i32
//	raw_buffer_atomic_fadd %v -> %dst[0] : f32 -> memref<4xf32>, i32
//
// Dimensions, strides, and offsets print as "?" when they are only
// known at run time, matching ir.DynamicSize.
//
// # Components
//
//   - Lexer: tokenizes assembly source into tokens
//   - Parser: parses tokens into ir operations
//   - Print: formats operations back into canonical text
//
// # Usage
//
// To parse a source of operations:
//
//	ops, err := asm.Parse(source)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Print emits the canonical form: attributes at their default values
// are omitted, so printing a parsed operation and re-parsing the
// result yields an equal value.
package asm
