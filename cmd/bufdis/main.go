// bufdis - descriptor word dump decoder
// Annotates bufc word dumps with the decoded descriptor fields
package main

import (
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gogpu/amdgpu/misc"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: bufdis <dump.rbw>")
		return
	}
	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Plain dumps start with a "; bufc" header comment; anything else
	// is the bufc -z container: uncompressed size, then the zlib
	// stream.
	if len(data) > 0 && data[0] != ';' {
		if len(data) < 5 {
			fmt.Fprintln(os.Stderr, "Error: file too small")
			os.Exit(1)
		}
		size := binary.LittleEndian.Uint32(data[:4])
		data, err = misc.Uncompress(data[4:], int(size))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error uncompressing dump: %v\n", err)
			os.Exit(1)
		}
	}

	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
		case strings.HasPrefix(trimmed, ";"):
			fmt.Println(trimmed)
		default:
			words, err := parseWords(trimmed)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			printDescriptor(words)
		}
	}
}

// parseWords reads the four descriptor words from one dump line.
func parseWords(line string) ([4]uint32, error) {
	var words [4]uint32
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return words, fmt.Errorf("expected 4 descriptor words, got %d: %q", len(fields), line)
	}
	for i, f := range fields {
		w, err := strconv.ParseUint(f, 0, 32)
		if err != nil {
			return words, fmt.Errorf("bad descriptor word %q: %v", f, err)
		}
		words[i] = uint32(w)
	}
	return words, nil
}

// printDescriptor annotates the raw-mode descriptor fields word by word.
func printDescriptor(w [4]uint32) {
	base := uint64(w[1]&0xffff)<<32 | uint64(w[0])
	stride := (w[1] >> 16) & 0x3fff
	nfmt := (w[3] >> 12) & 0x7
	dfmt := (w[3] >> 15) & 0xf

	fmt.Printf("  rsrc[0] = 0x%08x  base address 0x%012x\n", w[0], base)
	fmt.Printf("  rsrc[1] = 0x%08x  stride %d\n", w[1], stride)
	fmt.Printf("  rsrc[2] = 0x%08x  num records %d\n", w[2], w[2])
	fmt.Printf("  rsrc[3] = 0x%08x  nfmt %d, dfmt %d, %s%s\n", w[3], nfmt, dfmt, resourceLevel(w[3]), oobPolicy(w[3]))
}

func resourceLevel(w3 uint32) string {
	if w3>>24&1 == 1 {
		return "resource level, "
	}
	return ""
}

func oobPolicy(w3 uint32) string {
	oob := w3 >> 28 & 0x3
	switch oob {
	case 2:
		return "oob checks disabled"
	case 3:
		return "oob checks enabled"
	default:
		return fmt.Sprintf("oob select %d", oob)
	}
}
