// Package snapshot_test provides golden snapshot tests for the lowering
// pipeline.
//
// For each operation listing in testdata/in/, the test parses the
// listing, prints its canonical form, and lowers it for one CDNA and
// one RDNA target, comparing each output to golden files stored in
// testdata/golden/{asm,text,words}/.
//
// To regenerate golden files after intentional changes:
//
//	UPDATE_GOLDEN=1 go test ./snapshot/...
package snapshot_test

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/gogpu/amdgpu"
	"github.com/gogpu/amdgpu/asm"
	"github.com/gogpu/amdgpu/chipset"
	"github.com/gogpu/amdgpu/rocdl"
)

// ---------------------------------------------------------------------------
// Test Runner
// ---------------------------------------------------------------------------

// listingFile represents an input operation listing loaded from disk.
type listingFile struct {
	name   string // base name without extension (e.g., "basic_load")
	source string // listing text
}

// targets are the chipsets every listing is lowered for: one that
// always enforces bounds checks and one that can elide them.
var targets = []string{"gfx900", "gfx1030"}

// TestSnapshots is the main golden snapshot test. It loads all input
// listings, runs each through the pipeline, and compares with golden
// files.
func TestSnapshots(t *testing.T) {
	listings := loadListings(t, filepath.Join("testdata", "in"))
	if len(listings) == 0 {
		t.Fatal("no input listings found in testdata/in/")
	}

	for i := range listings {
		listing := &listings[i]
		t.Run(listing.name, func(t *testing.T) {
			ops, err := amdgpu.Parse(listing.source)
			if err != nil {
				t.Fatalf("parse %s: %v", listing.name, err)
			}

			t.Run("asm", func(t *testing.T) {
				canonical := asm.PrintAll(ops)
				compareGolden(t, filepath.Join("testdata", "golden", "asm", listing.name+".rbuf"), canonical)
			})

			for _, target := range targets {
				gfx, err := chipset.Parse(target)
				if err != nil {
					t.Fatalf("chipset %s: %v", target, err)
				}
				opts := amdgpu.DefaultOptions()
				opts.Chipset = gfx

				instrs, err := amdgpu.CompileWithOptions(listing.source, opts)
				if err != nil {
					t.Fatalf("lower %s for %s: %v", listing.name, target, err)
				}

				t.Run("text_"+target, func(t *testing.T) {
					path := filepath.Join("testdata", "golden", "text", listing.name+"."+target+".txt")
					compareGolden(t, path, renderText(instrs))
				})

				t.Run("words_"+target, func(t *testing.T) {
					path := filepath.Join("testdata", "golden", "words", listing.name+"."+target+".txt")
					compareGolden(t, path, renderWords(instrs))
				})
			}
		})
	}
}

// renderText prints one lowered instruction per line.
func renderText(instrs []*rocdl.RawInstruction) string {
	var sb strings.Builder
	for _, instr := range instrs {
		sb.WriteString(instr.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// renderWords dumps each instruction's descriptor words below a comment
// line carrying the resolved offsets.
func renderWords(instrs []*rocdl.RawInstruction) string {
	var sb strings.Builder
	for i, instr := range instrs {
		w := instr.Resource.Words()
		fmt.Fprintf(&sb, "; %d: %s voffset=%d soffset=%d aux=%d\n",
			i, instr.Intrinsic, instr.VectorIndexBytes, instr.ScalarOffsetBytes, instr.CachePolicy)
		fmt.Fprintf(&sb, "0x%08x 0x%08x 0x%08x 0x%08x\n", w[0], w[1], w[2], w[3])
	}
	return sb.String()
}

// ---------------------------------------------------------------------------
// Input Loading
// ---------------------------------------------------------------------------

func loadListings(t *testing.T, dir string) []listingFile {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read input directory %q: %v", dir, err)
	}

	var listings []listingFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".rbuf") {
			continue
		}
		data, readErr := os.ReadFile(filepath.Join(dir, entry.Name()))
		if readErr != nil {
			t.Fatalf("read listing %q: %v", entry.Name(), readErr)
		}
		name := strings.TrimSuffix(entry.Name(), ".rbuf")
		listings = append(listings, listingFile{name: name, source: string(data)})
	}

	// Sort for deterministic test order
	sort.Slice(listings, func(i, j int) bool {
		return listings[i].name < listings[j].name
	})

	return listings
}

// ---------------------------------------------------------------------------
// Golden File Comparison
// ---------------------------------------------------------------------------

// compareGolden compares actual output with the golden file at path.
// If UPDATE_GOLDEN is set, writes actual output as the new golden file.
func compareGolden(t *testing.T, path, actual string) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDEN") != "" {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
			t.Fatalf("create golden dir: %v", mkErr)
		}
		if wErr := os.WriteFile(path, []byte(actual), 0o644); wErr != nil {
			t.Fatalf("write golden file: %v", wErr)
		}
		t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		t.Fatalf("golden file missing: %s\nRun with UPDATE_GOLDEN=1 to create.\n\nActual output:\n%s", path, truncate(actual, 500))
	}
	if err != nil {
		t.Fatalf("read golden file %s: %v", path, err)
	}

	// Normalize line endings for cross-platform comparison.
	expectedStr := strings.ReplaceAll(string(expected), "\r\n", "\n")
	actualStr := strings.ReplaceAll(actual, "\r\n", "\n")

	if expectedStr != actualStr {
		t.Errorf("output differs from golden %s:\n%s", path, diffStrings(expectedStr, actualStr))
	}
}

// diffStrings produces a line-by-line diff showing the first difference
// and surrounding context.
func diffStrings(expected, actual string) string {
	expectedLines := strings.Split(expected, "\n")
	actualLines := strings.Split(actual, "\n")

	maxLines := len(expectedLines)
	if len(actualLines) > maxLines {
		maxLines = len(actualLines)
	}

	firstDiff := -1
	for i := 0; i < maxLines; i++ {
		var eLine, aLine string
		if i < len(expectedLines) {
			eLine = expectedLines[i]
		}
		if i < len(actualLines) {
			aLine = actualLines[i]
		}
		if eLine != aLine {
			firstDiff = i
			break
		}
	}
	if firstDiff < 0 {
		return "(no difference found)"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "first difference at line %d:\n", firstDiff+1)
	fmt.Fprintf(&sb, "  expected lines: %d\n", len(expectedLines))
	fmt.Fprintf(&sb, "  actual lines:   %d\n\n", len(actualLines))

	const contextLines = 3
	start := firstDiff - contextLines
	if start < 0 {
		start = 0
	}
	end := firstDiff + contextLines + 1
	if end > maxLines {
		end = maxLines
	}

	for i := start; i < end; i++ {
		prefix := " "
		var eLine, aLine string
		if i < len(expectedLines) {
			eLine = expectedLines[i]
		}
		if i < len(actualLines) {
			aLine = actualLines[i]
		}
		if eLine != aLine {
			prefix = "!"
		}
		fmt.Fprintf(&sb, "%s %4d expected: %s\n", prefix, i+1, truncate(eLine, 120))
		if eLine != aLine {
			fmt.Fprintf(&sb, "%s %4d actual:   %s\n", prefix, i+1, truncate(aLine, 120))
		}
	}

	return sb.String()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
