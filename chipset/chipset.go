// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package chipset identifies AMDGPU targets and the hardware
// generation policies lowering depends on.
package chipset

import (
	"fmt"
	"strconv"
	"strings"
)

// Chipset is a parsed gfx-style target identifier such as gfx90a or
// gfx1100. The minor and stepping versions are single hexadecimal
// digits in the name; the major version is decimal.
type Chipset struct {
	Major    uint8
	Minor    uint8
	Stepping uint8
}

// Parse parses a gfx-style chipset name.
// Example: "gfx942" -> {9, 4, 2}, "gfx90a" -> {9, 0, 10}.
func Parse(name string) (Chipset, error) {
	rest, ok := strings.CutPrefix(name, "gfx")
	if !ok {
		return Chipset{}, fmt.Errorf("chipset name %q does not start with gfx", name)
	}
	if len(rest) < 3 {
		return Chipset{}, fmt.Errorf("chipset name %q is too short", name)
	}
	major, err := strconv.ParseUint(rest[:len(rest)-2], 10, 8)
	if err != nil {
		return Chipset{}, fmt.Errorf("chipset name %q has a bad major version", name)
	}
	minor, err := strconv.ParseUint(rest[len(rest)-2:len(rest)-1], 16, 8)
	if err != nil {
		return Chipset{}, fmt.Errorf("chipset name %q has a bad minor version", name)
	}
	stepping, err := strconv.ParseUint(rest[len(rest)-1:], 16, 8)
	if err != nil {
		return Chipset{}, fmt.Errorf("chipset name %q has a bad stepping version", name)
	}
	return Chipset{Major: uint8(major), Minor: uint8(minor), Stepping: uint8(stepping)}, nil
}

// String returns the gfx-style name.
// Example: "gfx942", "gfx90a".
func (c Chipset) String() string {
	return fmt.Sprintf("gfx%d%x%x", c.Major, c.Minor, c.Stepping)
}

// AtLeast reports whether the chipset version is other's or newer.
func (c Chipset) AtLeast(other Chipset) bool {
	if c.Major != other.Major {
		return c.Major > other.Major
	}
	if c.Minor != other.Minor {
		return c.Minor > other.Minor
	}
	return c.Stepping >= other.Stepping
}

// Generation returns the hardware generation the chipset belongs to.
func (c Chipset) Generation() Generation {
	switch {
	case c.Major >= 10:
		return GenRDNA
	case c.Major == 9:
		return GenCDNA
	default:
		return GenGCN
	}
}

// Generation classifies chipsets by the buffer descriptor policies
// they share.
type Generation uint8

const (
	// GenGCN covers pre-gfx9 targets. Treated like GenCDNA for
	// descriptor purposes: bounds checks are always enforced.
	GenGCN Generation = iota

	// GenCDNA covers the compute-oriented gfx9 targets. Hardware
	// always enforces buffer bounds checks.
	GenCDNA

	// GenRDNA covers gfx10 and later. Bounds checks can be elided
	// through the descriptor's OOB-select field.
	GenRDNA
)

// String returns a human-readable generation name.
func (g Generation) String() string {
	switch g {
	case GenGCN:
		return "GCN"
	case GenCDNA:
		return "CDNA"
	case GenRDNA:
		return "RDNA"
	default:
		return fmt.Sprintf("Generation(%d)", uint8(g))
	}
}

// BoundsCheckElidable reports whether descriptors for this generation
// can disable hardware bounds checking.
func (g Generation) BoundsCheckElidable() bool {
	return g == GenRDNA
}
