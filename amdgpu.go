// Package amdgpu lowers raw buffer operations to ROCDL intrinsic calls.
//
// The module takes typed accesses to shaped memory references, checks them
// against the operand rules the hardware imposes, and produces the buffer
// resource descriptor plus the raw intrinsic call that AMDGPU code
// generation expects. Three operations are supported:
//   - raw_buffer_load reads a scalar or short vector from a buffer
//   - raw_buffer_store writes one
//   - raw_buffer_atomic_fadd adds a float32 to buffer memory atomically
//
// The package provides a one-call API for lowering a textual operation
// listing as well as lower-level access to the individual stages.
//
// Example usage:
//
//	source := `raw_buffer_load %src[7] : memref<8xf32>, i32 -> f32`
//	instrs, err := amdgpu.Compile(source)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(instrs[0])
//
// Targets differ in out-of-bounds behavior; pick one with the chipset
// package:
//
//	gfx, _ := chipset.Parse("gfx1030")
//	opts := amdgpu.DefaultOptions()
//	opts.Chipset = gfx
//	instrs, err := amdgpu.CompileWithOptions(source, opts)
//
// For operations built programmatically rather than parsed, use the ir
// package types with Lower or LowerAll directly.
package amdgpu

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/amdgpu/asm"
	"github.com/gogpu/amdgpu/chipset"
	"github.com/gogpu/amdgpu/ir"
	"github.com/gogpu/amdgpu/rocdl"
)

// LowerOptions configures the lowering pipeline.
type LowerOptions struct {
	// Chipset is the target processor (default: gfx900).
	Chipset chipset.Chipset

	// MemRefs supplies the run-time view of each memref operand, keyed
	// by operand name without the % sigil. Operands with fully static
	// types need no entry; dynamic shapes fail to lower without one.
	MemRefs map[string]rocdl.MemRefDescriptor

	// Workers caps concurrent lowerings in LowerAll. Zero or negative
	// means one goroutine per operation.
	Workers int
}

// DefaultOptions returns sensible default options.
func DefaultOptions() LowerOptions {
	return LowerOptions{
		Chipset: chipset.Chipset{Major: 9}, // gfx900
	}
}

// Compile parses, verifies, and lowers a textual operation listing using
// default options.
//
// This is the simplest way to lower a listing. For more control, use
// CompileWithOptions or the individual Parse/Verify/Lower functions.
func Compile(source string) ([]*rocdl.RawInstruction, error) {
	return CompileWithOptions(source, DefaultOptions())
}

// CompileWithOptions parses, verifies, and lowers a textual operation
// listing with custom options.
//
// The pipeline is:
//  1. Parse the listing to operations
//  2. Verify each operation's operands against the hardware rules
//  3. Resolve byte offsets and build the buffer resource descriptor
//  4. Emit the raw intrinsic calls
//
// The first operation that fails any stage aborts the whole listing; use
// LowerAll to collect per-operation outcomes instead.
func CompileWithOptions(source string, opts LowerOptions) ([]*rocdl.RawInstruction, error) {
	ops, err := Parse(source)
	if err != nil {
		return nil, err
	}

	results, err := LowerAll(context.Background(), ops, opts)
	if err != nil {
		return nil, err
	}

	instrs := make([]*rocdl.RawInstruction, len(results))
	for _, res := range results {
		if res.Err != nil {
			return nil, errors.Wrapf(res.Err, "operation %d (%s)", res.Index, ops[res.Index].OpName())
		}
		instrs[res.Index] = res.Instr
	}
	return instrs, nil
}

// Parse parses a textual operation listing.
//
// This is the first stage of the pipeline. The listing holds one
// operation per line; blank lines and // comments are skipped. The
// returned operations are unverified.
func Parse(source string) ([]ir.Operation, error) {
	return asm.Parse(source)
}

// Verify checks one operation against the per-variant operand rules and
// returns the first violation.
func Verify(op ir.Operation) error {
	return ir.Verify(op)
}

// VerifyAll collects every rule violation for one operation instead of
// stopping at the first. An empty slice means the operation is valid.
func VerifyAll(op ir.Operation) []ir.VerificationError {
	return ir.VerifyAll(op)
}

// Lower verifies and lowers one operation.
//
// The input carries the target chipset and the run-time memref view. On
// failure the error identifies the stage that stopped the lowering; use
// rocdl.NewLowerer directly to observe the terminal state as well.
func Lower(op ir.Operation, input rocdl.LowerInput) (*rocdl.RawInstruction, error) {
	return rocdl.Lower(op, input)
}

// Result is the outcome of lowering one operation from a batch.
type Result struct {
	// Index is the operation's position in the input slice.
	Index int

	// State is the phase the lowerer stopped in.
	State rocdl.State

	// Instr is the lowered instruction, nil unless State is StateLowered.
	Instr *rocdl.RawInstruction

	// Err explains the terminal state, nil when lowering succeeded.
	Err error
}

// LowerAll verifies and lowers every operation and returns one Result
// per operation, in input order. Operations are independent: a failure
// lands in its own Result without affecting siblings.
//
// Lowerings run on up to opts.Workers goroutines. LowerAll itself fails
// only when ctx is canceled before the batch drains; partial results
// are discarded.
func LowerAll(ctx context.Context, ops []ir.Operation, opts LowerOptions) ([]Result, error) {
	results := make([]Result, len(ops))

	g, ctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	// Each result slot has exactly one writer.
	for i, op := range ops {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = lowerOne(i, op, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "lowering interrupted")
	}
	return results, nil
}

// lowerOne runs the single-operation pipeline for one batch entry.
func lowerOne(index int, op ir.Operation, opts LowerOptions) Result {
	input := rocdl.LowerInput{
		Chipset: opts.Chipset,
		MemRef:  opts.MemRefs[ir.AccessOf(op).MemRef.Name],
	}
	lowerer := rocdl.NewLowerer(op, input)
	instr, err := lowerer.Lower()
	return Result{Index: index, State: lowerer.State(), Instr: instr, Err: err}
}
