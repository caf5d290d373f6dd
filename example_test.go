package amdgpu_test

import (
	"fmt"
	"log"

	"github.com/gogpu/amdgpu"
	"github.com/gogpu/amdgpu/chipset"
	"github.com/gogpu/amdgpu/ir"
	"github.com/gogpu/amdgpu/rocdl"
)

// ExampleCompile demonstrates lowering one load for the default gfx900
// target.
func ExampleCompile() {
	instrs, err := amdgpu.Compile(`raw_buffer_load %src[7] : memref<8xf32>, i32 -> f32`)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(instrs[0])
	// Output: raw.buffer.load(rsrc = [0x00000000, 0x00000000, 0x00000020, 0x30027000], voffset = 28, soffset = 0, aux = 0) -> f32
}

// ExampleCompileWithOptions demonstrates disabling bounds checks on an
// RDNA target.
func ExampleCompileWithOptions() {
	gfx, err := chipset.Parse("gfx1030")
	if err != nil {
		log.Fatal(err)
	}
	opts := amdgpu.DefaultOptions()
	opts.Chipset = gfx

	source := `raw_buffer_store {boundsCheck = false} %v -> %dst[2] : vector<4xf32> -> memref<16xf32>, i32`
	instrs, err := amdgpu.CompileWithOptions(source, opts)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(instrs[0])
	// Output: raw.buffer.store(%v : vector<4xf32>, rsrc = [0x00000000, 0x00000000, 0x00000040, 0x21027000], voffset = 8, soffset = 0, aux = 0)
}

// ExampleLower demonstrates lowering an operation built from the ir
// types rather than parsed from text.
func ExampleLower() {
	op := ir.AtomicFAddOp{
		Value: ir.TypedValue{Name: "acc", Type: ir.F32},
		Access: ir.Access{
			MemRef:      ir.MemRefValue{Name: "sum", Type: ir.ContiguousMemRef(ir.F32, 32)},
			Indices:     []int32{9},
			BoundsCheck: true,
		},
	}

	gfx, err := chipset.Parse("gfx942")
	if err != nil {
		log.Fatal(err)
	}
	instr, err := amdgpu.Lower(op, rocdl.LowerInput{Chipset: gfx})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(instr)
	// Output: raw.buffer.atomic.fadd(%acc : f32, rsrc = [0x00000000, 0x00000000, 0x00000080, 0x30027000], voffset = 36, soffset = 0, aux = 0)
}
