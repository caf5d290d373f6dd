package amdgpu

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/gogpu/amdgpu/chipset"
	"github.com/gogpu/amdgpu/ir"
	"github.com/gogpu/amdgpu/rocdl"
)

// TestCompileSingleLoad lowers one load end to end and checks the
// emitted instruction down to the descriptor words.
func TestCompileSingleLoad(t *testing.T) {
	instrs, err := Compile(`raw_buffer_load %src[7] : memref<8xf32>, i32 -> f32`)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(instrs) != 1 {
		t.Fatalf("Compile returned %d instructions, want 1", len(instrs))
	}

	instr := instrs[0]
	if instr.Intrinsic != rocdl.IntrinsicLoad {
		t.Errorf("Intrinsic = %v, want %v", instr.Intrinsic, rocdl.IntrinsicLoad)
	}
	if instr.ResultType == nil || *instr.ResultType != ir.F32 {
		t.Errorf("ResultType = %v, want f32", instr.ResultType)
	}
	if instr.VectorIndexBytes != 28 {
		t.Errorf("VectorIndexBytes = %d, want 28", instr.VectorIndexBytes)
	}
	if instr.ScalarOffsetBytes != 0 {
		t.Errorf("ScalarOffsetBytes = %d, want 0", instr.ScalarOffsetBytes)
	}

	// gfx900 default: bounds checks on, no resource-level bit.
	words := instr.Resource.Words()
	want := [4]uint32{0, 0, 32, 0x30027000}
	if words != want {
		t.Errorf("Words() = %#x, want %#x", words, want)
	}

	t.Logf("lowered: %s", instr)
}

// TestCompileBatch checks that a mixed listing lowers in input order.
func TestCompileBatch(t *testing.T) {
	source := `
// one of each operation
raw_buffer_load %src[0] : memref<4xf32>, i32 -> f32
raw_buffer_store %v -> %dst[1] : f32 -> memref<4xf32>, i32
raw_buffer_atomic_fadd %acc -> %sum[2] : f32 -> memref<4xf32>, i32
`
	instrs, err := Compile(source)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(instrs) != 3 {
		t.Fatalf("Compile returned %d instructions, want 3", len(instrs))
	}

	wantIntrinsics := []rocdl.Intrinsic{rocdl.IntrinsicLoad, rocdl.IntrinsicStore, rocdl.IntrinsicAtomicFAdd}
	for i, instr := range instrs {
		if instr.Intrinsic != wantIntrinsics[i] {
			t.Errorf("instruction %d: Intrinsic = %v, want %v", i, instr.Intrinsic, wantIntrinsics[i])
		}
		if instr.VectorIndexBytes != int32(i*4) {
			t.Errorf("instruction %d: VectorIndexBytes = %d, want %d", i, instr.VectorIndexBytes, i*4)
		}
	}
}

// TestCompileChipsetPolicy checks the out-of-bounds policy and the
// resource-level marker across target generations.
func TestCompileChipsetPolicy(t *testing.T) {
	const checked = `raw_buffer_load %src[0] : memref<4xf32>, i32 -> f32`
	const unchecked = `raw_buffer_load {boundsCheck = false} %src[0] : memref<4xf32>, i32 -> f32`

	tests := []struct {
		mcpu   string
		source string
		oob    rocdl.OOBSelect
		level  bool
	}{
		{"gfx803", unchecked, rocdl.OOBChecksEnabled, false},
		{"gfx900", checked, rocdl.OOBChecksEnabled, false},
		{"gfx90a", unchecked, rocdl.OOBChecksEnabled, false},
		{"gfx1030", unchecked, rocdl.OOBChecksDisabled, true},
		{"gfx1100", checked, rocdl.OOBChecksEnabled, true},
	}
	for _, tt := range tests {
		t.Run(tt.mcpu, func(t *testing.T) {
			gfx, err := chipset.Parse(tt.mcpu)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.mcpu, err)
			}
			opts := DefaultOptions()
			opts.Chipset = gfx
			instrs, err := CompileWithOptions(tt.source, opts)
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			r := instrs[0].Resource
			if r.OOBSelect != tt.oob {
				t.Errorf("OOBSelect = %d, want %d", r.OOBSelect, tt.oob)
			}
			if r.ResourceLevel != tt.level {
				t.Errorf("ResourceLevel = %v, want %v", r.ResourceLevel, tt.level)
			}
		})
	}
}

// TestCompileFullyOutOfBoundsStore lowers a store entirely past the
// buffer extent. That is a run-time matter: the descriptor still gets
// built and the hardware drops the write when checks are enabled.
func TestCompileFullyOutOfBoundsStore(t *testing.T) {
	instrs, err := Compile(`raw_buffer_store %v -> %dst[8] : vector<16xi8> -> memref<4xi8>, i32`)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	instr := instrs[0]
	if instr.VectorIndexBytes != 8 {
		t.Errorf("VectorIndexBytes = %d, want 8", instr.VectorIndexBytes)
	}
	if instr.Resource.NumRecords != 4 {
		t.Errorf("NumRecords = %d, want 4", instr.Resource.NumRecords)
	}
	if instr.Value == nil || instr.Value.Type != ir.Vector(16, ir.I8) {
		t.Errorf("Value = %v, want vector<16xi8>", instr.Value)
	}
}

// TestCompileRuntimeShape supplies the run-time view of a dynamically
// shaped memref through the options.
func TestCompileRuntimeShape(t *testing.T) {
	opts := DefaultOptions()
	opts.MemRefs = map[string]rocdl.MemRefDescriptor{
		"buf": {Base: 0x1000, Sizes: []int64{16}},
	}

	instrs, err := CompileWithOptions(`raw_buffer_load %buf[2] : memref<?xf32>, i32 -> f32`, opts)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	instr := instrs[0]
	if instr.Resource.BaseAddress != 0x1000 {
		t.Errorf("BaseAddress = %#x, want 0x1000", instr.Resource.BaseAddress)
	}
	if instr.Resource.NumRecords != 64 {
		t.Errorf("NumRecords = %d, want 64", instr.Resource.NumRecords)
	}
	if instr.VectorIndexBytes != 8 {
		t.Errorf("VectorIndexBytes = %d, want 8", instr.VectorIndexBytes)
	}
}

// TestCompileDynamicWithoutDescriptor checks that a dynamic memref with
// no run-time entry fails with the operation named.
func TestCompileDynamicWithoutDescriptor(t *testing.T) {
	_, err := Compile(`raw_buffer_load %buf[2] : memref<?xf32>, i32 -> f32`)
	if err == nil {
		t.Fatal("expected error for dynamic memref without a descriptor, got nil")
	}
	if !strings.Contains(err.Error(), "operation 0 (raw_buffer_load)") {
		t.Errorf("error %q does not name the failing operation", err)
	}
}

// TestCompileVerifyError checks that an invalid operation aborts the
// listing with a verification error in the chain.
func TestCompileVerifyError(t *testing.T) {
	_, err := Compile(`raw_buffer_atomic_fadd %v -> %dst[0] : i32 -> memref<4xi32>, i32`)
	if err == nil {
		t.Fatal("expected verification error, got nil")
	}

	var verr ir.VerificationError
	if !errors.As(err, &verr) {
		t.Fatalf("error %v is not a VerificationError", err)
	}
	t.Logf("got expected error: %v", err)
}

// TestCompileParseError checks error handling for malformed listings.
func TestCompileParseError(t *testing.T) {
	_, err := Compile(`raw_buffer_load %src[ : memref<4xf32>, i32 -> f32`)
	if err == nil {
		t.Fatal("expected parse error, got nil")
	}
	t.Logf("got expected parse error: %v", err)
}

// TestLowerAllStates checks that each operation's outcome lands in its
// own Result without failing siblings.
func TestLowerAllStates(t *testing.T) {
	ops, err := Parse(`
raw_buffer_load %src[1] : memref<8xf32>, i32 -> f32
raw_buffer_atomic_fadd %v -> %dst[0] : i32 -> memref<4xi32>, i32
raw_buffer_load %big[0] : memref<1073741824xf32>, i32 -> f32
`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	results, err := LowerAll(context.Background(), ops, DefaultOptions())
	if err != nil {
		t.Fatalf("LowerAll failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	wantStates := []rocdl.State{rocdl.StateLowered, rocdl.StateRejected, rocdl.StateFailed}
	for i, res := range results {
		if res.Index != i {
			t.Errorf("result %d: Index = %d", i, res.Index)
		}
		if res.State != wantStates[i] {
			t.Errorf("result %d: State = %v, want %v", i, res.State, wantStates[i])
		}
	}

	if results[0].Err != nil {
		t.Errorf("result 0: unexpected error %v", results[0].Err)
	}
	if results[0].Instr == nil {
		t.Error("result 0: missing instruction")
	}
	var verr ir.VerificationError
	if !errors.As(results[1].Err, &verr) {
		t.Errorf("result 1: error %v is not a VerificationError", results[1].Err)
	}
	var overflow rocdl.DescriptorOverflowError
	if !errors.As(results[2].Err, &overflow) {
		t.Errorf("result 2: error %v is not a DescriptorOverflowError", results[2].Err)
	}
}

// TestLowerAllWorkers checks that a bounded worker pool preserves
// result order.
func TestLowerAllWorkers(t *testing.T) {
	var sb strings.Builder
	const n = 32
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "raw_buffer_load %%src[%d] : memref<64xf32>, i32 -> f32\n", i)
	}
	ops, err := Parse(sb.String())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	opts := DefaultOptions()
	opts.Workers = 4
	results, err := LowerAll(context.Background(), ops, opts)
	if err != nil {
		t.Fatalf("LowerAll failed: %v", err)
	}

	for i, res := range results {
		if res.Err != nil {
			t.Fatalf("result %d: %v", i, res.Err)
		}
		if got := res.Instr.VectorIndexBytes; got != int32(i*4) {
			t.Errorf("result %d: VectorIndexBytes = %d, want %d", i, got, i*4)
		}
	}
}

// TestLowerAllCanceled checks that a canceled context aborts the batch.
func TestLowerAllCanceled(t *testing.T) {
	ops, err := Parse(`raw_buffer_load %src[0] : memref<4xf32>, i32 -> f32`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = LowerAll(ctx, ops, DefaultOptions())
	if err == nil {
		t.Fatal("expected cancellation error, got nil")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled in chain", err)
	}
}

// TestStagedPipeline drives the pipeline stages individually.
func TestStagedPipeline(t *testing.T) {
	source := `raw_buffer_load %src[2, 3] sgprOffset 10 : memref<8x16xf32>, i32, i32 -> f32`

	// Stage 1: Parse
	ops, err := Parse(source)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("expected 1 operation, got %d", len(ops))
	}

	// Stage 2: Verify
	if err := Verify(ops[0]); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if errs := VerifyAll(ops[0]); len(errs) != 0 {
		t.Fatalf("VerifyAll reported %d errors: %v", len(errs), errs)
	}

	// Stage 3: Lower
	gfx, err := chipset.Parse("gfx942")
	if err != nil {
		t.Fatalf("chipset.Parse failed: %v", err)
	}
	instr, err := Lower(ops[0], rocdl.LowerInput{Chipset: gfx})
	if err != nil {
		t.Fatalf("Lower failed: %v", err)
	}

	if want := int32((2*16 + 3) * 4); instr.VectorIndexBytes != want {
		t.Errorf("VectorIndexBytes = %d, want %d", instr.VectorIndexBytes, want)
	}
	if instr.ScalarOffsetBytes != 40 {
		t.Errorf("ScalarOffsetBytes = %d, want 40", instr.ScalarOffsetBytes)
	}
}

// TestVerifyAllCollects checks that VerifyAll keeps going past the
// first violation.
func TestVerifyAllCollects(t *testing.T) {
	ops, err := Parse(`raw_buffer_load %src[0, 1, 2] : memref<4xf32>, i32, i32, i32 -> vector<8xf32>`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	errs := VerifyAll(ops[0])
	if len(errs) < 2 {
		t.Fatalf("VerifyAll reported %d errors, want at least 2: %v", len(errs), errs)
	}
	if err := Verify(ops[0]); err == nil {
		t.Error("Verify returned nil for an invalid operation")
	}
}
