package asm

import (
	"fmt"
	"strings"

	"github.com/gogpu/amdgpu/ir"
)

// Print returns the canonical textual form of op. Attributes at their
// defaults are omitted and contiguous layouts print without their
// strides, so printing an operation and re-parsing it yields an equal
// value.
func Print(op ir.Operation) string {
	var sb strings.Builder
	switch op := op.(type) {
	case ir.LoadOp:
		printLoad(&sb, op)
	case ir.StoreOp:
		printValueOp(&sb, op.OpName(), op.Value, op.Access)
	case ir.AtomicFAddOp:
		printValueOp(&sb, op.OpName(), op.Value, op.Access)
	default:
		panic("asm: unhandled operation variant")
	}
	return sb.String()
}

// PrintAll prints one operation per line.
func PrintAll(ops []ir.Operation) string {
	var sb strings.Builder
	for _, op := range ops {
		sb.WriteString(Print(op))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func printLoad(sb *strings.Builder, op ir.LoadOp) {
	sb.WriteString(op.OpName())
	printAttrDict(sb, op.Access)
	printRef(sb, op.Access)
	sb.WriteString(" : ")
	sb.WriteString(op.MemRef.Type.String())
	printIndexTypes(sb, len(op.Indices))
	fmt.Fprintf(sb, " -> %s", op.ResultType)
}

func printValueOp(sb *strings.Builder, name string, value ir.TypedValue, access ir.Access) {
	sb.WriteString(name)
	printAttrDict(sb, access)
	fmt.Fprintf(sb, " %%%s ->", value.Name)
	printRef(sb, access)
	fmt.Fprintf(sb, " : %s -> %s", value.Type, access.MemRef.Type)
	printIndexTypes(sb, len(access.Indices))
}

func printAttrDict(sb *strings.Builder, access ir.Access) {
	if access.BoundsCheck && access.IndexOffset == nil {
		return
	}
	sb.WriteString(" {")
	if !access.BoundsCheck {
		sb.WriteString("boundsCheck = false")
		if access.IndexOffset != nil {
			sb.WriteString(", ")
		}
	}
	if access.IndexOffset != nil {
		fmt.Fprintf(sb, "indexOffset = %d", *access.IndexOffset)
	}
	sb.WriteString("}")
}

func printRef(sb *strings.Builder, access ir.Access) {
	fmt.Fprintf(sb, " %%%s[", access.MemRef.Name)
	for i, idx := range access.Indices {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "%d", idx)
	}
	sb.WriteString("]")
	if access.SGPROffset != nil {
		fmt.Fprintf(sb, " sgprOffset %d", *access.SGPROffset)
	}
}

func printIndexTypes(sb *strings.Builder, n int) {
	for i := 0; i < n; i++ {
		sb.WriteString(", i32")
	}
}
