// Command bufc verifies and lowers raw buffer operation listings.
//
// Usage:
//
//	bufc [options] <input>
//
// Examples:
//
//	bufc -mcpu gfx942 ops.rbuf                  # Lower and print instructions
//	bufc -verify-only ops.rbuf                  # Verify without lowering
//	bufc -mcpu gfx1030 -emit words ops.rbuf     # Dump descriptor words
//	bufc -ops load -lines 1,4 ops.rbuf          # Keep loads on lines 1 and 4
package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/gogpu/amdgpu"
	"github.com/gogpu/amdgpu/asm"
	"github.com/gogpu/amdgpu/chipset"
	"github.com/gogpu/amdgpu/ir"
	"github.com/gogpu/amdgpu/misc"
)

var (
	mcpu       = flag.String("mcpu", "gfx900", "target chipset, e.g. gfx90a or gfx1100")
	verifyOnly = flag.Bool("verify-only", false, "verify operations without lowering")
	opFilter   = flag.String("ops", "", "comma-separated operation kinds to keep (load,store,atomic_fadd)")
	lineFilter = flag.String("lines", "", "comma-separated listing line numbers to keep")
	output     = flag.String("o", "", "output file (default: stdout)")
	emit       = flag.String("emit", "text", "output form: text or words")
	compress   = flag.Bool("z", false, "zlib-compress word output (4-byte size header)")
	version    = flag.Bool("version", false, "print version")
)

const bufcVersion = "0.1.0-dev"

// entry pairs a parsed operation with its listing line for diagnostics.
type entry struct {
	line int
	op   ir.Operation
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *version {
		fmt.Printf("bufc version %s\n", bufcVersion)
		return
	}

	if *emit != "text" && *emit != "words" {
		fmt.Fprintf(os.Stderr, "Error: unknown -emit form %q (want text or words)\n", *emit)
		os.Exit(1)
	}
	if *compress && *emit != "words" {
		fmt.Fprintln(os.Stderr, "Error: -z requires -emit words")
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Error: no input file specified")
		usage()
		os.Exit(1)
	}

	inputPath := args[0]

	source, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}

	entries, ok := parseListing(inputPath, string(source))
	if !ok {
		os.Exit(1)
	}

	entries, err = filterEntries(entries, *opFilter, *lineFilter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *verifyOnly {
		bad := 0
		for _, e := range entries {
			for _, verr := range amdgpu.VerifyAll(e.op) {
				fmt.Fprintf(os.Stderr, "%s:%d: %v\n", inputPath, e.line, verr)
				bad++
			}
		}
		if bad > 0 {
			fmt.Fprintf(os.Stderr, "%d error(s)\n", bad)
			os.Exit(1)
		}
		fmt.Printf("verified %d operation(s)\n", len(entries))
		return
	}

	gfx, err := chipset.Parse(*mcpu)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: bad -mcpu: %v\n", err)
		os.Exit(1)
	}

	opts := amdgpu.DefaultOptions()
	opts.Chipset = gfx
	ops := make([]ir.Operation, len(entries))
	for i, e := range entries {
		ops[i] = e.op
	}
	results, err := amdgpu.LowerAll(context.Background(), ops, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "%s:%d: %v\n", inputPath, entries[res.Index].line, res.Err)
			failed++
		}
	}
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d operation(s) failed\n", failed)
		os.Exit(1)
	}

	var buf bytes.Buffer
	if *emit == "text" {
		for _, res := range results {
			fmt.Fprintln(&buf, res.Instr)
		}
	} else {
		writeWords(&buf, inputPath, gfx, entries, results)
	}

	out := buf.Bytes()
	if *compress {
		packed, err := misc.Compress(out, misc.CompressionDefault)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error compressing output: %v\n", err)
			os.Exit(1)
		}
		// Self-describing container: uncompressed size, then the
		// zlib stream. bufdis reads it back.
		header := make([]byte, 4)
		binary.LittleEndian.PutUint32(header, uint32(len(out)))
		out = append(header, packed...)
	}

	if *output != "" {
		err = os.WriteFile(*output, out, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Lowered %d operation(s) from %s to %s (%d bytes)\n", len(results), inputPath, *output, len(out))
	} else {
		_, err = os.Stdout.Write(out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
			os.Exit(1)
		}
	}
}

// parseListing reads one operation per non-blank, non-comment line.
// Every bad line is reported before giving up.
func parseListing(path, source string) ([]entry, bool) {
	var entries []entry
	ok := true
	for i, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}
		op, err := asm.ParseOperation(trimmed)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s:%d: %v\n", path, i+1, err)
			ok = false
			continue
		}
		entries = append(entries, entry{line: i + 1, op: op})
	}
	return entries, ok
}

// filterEntries narrows the listing to the requested operation kinds
// and listing lines. Each filter yields an ascending line set; with
// both given, their intersection is kept.
func filterEntries(entries []entry, kinds, lines string) ([]entry, error) {
	if kinds == "" && lines == "" {
		return entries, nil
	}

	var kindLines []int
	if kinds != "" {
		names := make(map[string]bool)
		for _, k := range strings.Split(kinds, ",") {
			name, ok := opName(strings.TrimSpace(k))
			if !ok {
				return nil, fmt.Errorf("unknown operation kind %q", k)
			}
			names[name] = true
		}
		for _, e := range entries {
			if names[e.op.OpName()] {
				kindLines = append(kindLines, e.line)
			}
		}
	}

	var lineNumbers []int
	if lines != "" {
		for _, field := range strings.Split(lines, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(field))
			if err != nil {
				return nil, fmt.Errorf("bad -lines entry %q", field)
			}
			lineNumbers = append(lineNumbers, n)
		}
		slices.Sort(lineNumbers)
	}

	var keep []int
	switch {
	case kinds != "" && lines != "":
		keep = misc.IntersectSorted(kindLines, lineNumbers)
	case kinds != "":
		keep = kindLines
	default:
		keep = lineNumbers
	}

	var out []entry
	for _, e := range entries {
		if slices.Contains(keep, e.line) {
			out = append(out, e)
		}
	}
	return out, nil
}

// opName maps a -ops short name to the operation mnemonic.
func opName(kind string) (string, bool) {
	switch kind {
	case "load":
		return "raw_buffer_load", true
	case "store":
		return "raw_buffer_store", true
	case "atomic_fadd":
		return "raw_buffer_atomic_fadd", true
	}
	return "", false
}

// writeWords dumps each instruction's descriptor words, one comment
// line with the offsets followed by the four words.
func writeWords(w io.Writer, path string, gfx chipset.Chipset, entries []entry, results []amdgpu.Result) {
	fmt.Fprintf(w, "; bufc %s word dump (%s)\n", gfx, path)
	for _, res := range results {
		instr := res.Instr
		words := instr.Resource.Words()
		fmt.Fprintf(w, "; %s:%d: %s voffset=%d soffset=%d aux=%d\n",
			path, entries[res.Index].line, instr.Intrinsic,
			instr.VectorIndexBytes, instr.ScalarOffsetBytes, instr.CachePolicy)
		fmt.Fprintf(w, "0x%08x 0x%08x 0x%08x 0x%08x\n", words[0], words[1], words[2], words[3])
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: bufc [options] <input.rbuf>\n\n")
	fmt.Fprintf(os.Stderr, "Options:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  bufc -mcpu gfx942 ops.rbuf              Lower and print instructions\n")
	fmt.Fprintf(os.Stderr, "  bufc -verify-only ops.rbuf              Verify without lowering\n")
	fmt.Fprintf(os.Stderr, "  bufc -mcpu gfx1030 -emit words ops.rbuf Dump descriptor words\n")
}
