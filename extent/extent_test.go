// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

package extent

import (
	"testing"

	"github.com/flatcar-linux/otaextract/errdef"
	"github.com/flatcar-linux/otaextract/update/metadata"
)

func exts(pairs ...[2]uint64) []*metadata.Extent {
	out := make([]*metadata.Extent, len(pairs))
	for i, p := range pairs {
		out[i] = &metadata.Extent{StartBlock: p[0], NumBlocks: p[1]}
	}
	return out
}

func TestValidateExactTiling(t *testing.T) {
	p, err := Validate("boot", 4096, 3, exts([2]uint64{0, 1}, [2]uint64{1, 1}, [2]uint64{2, 1}))
	if err != nil {
		t.Fatal(err)
	}
	if p.Partition != "boot" || p.BlockSize != 4096 || p.TotalBlocks != 3 {
		t.Errorf("unexpected proof %+v", p)
	}
}

func TestValidateSingleExtentWholePartition(t *testing.T) {
	if _, err := Validate("system", 4096, 100, exts([2]uint64{0, 100})); err != nil {
		t.Fatal(err)
	}
}

func TestValidateOverlap(t *testing.T) {
	_, err := Validate("boot", 4096, 4, exts([2]uint64{0, 2}, [2]uint64{1, 2}, [2]uint64{3, 1}))
	if !errdef.Is(err, errdef.OverlappingExtents) {
		t.Errorf("got %v, want OverlappingExtents", err)
	}
}

func TestValidateGap(t *testing.T) {
	_, err := Validate("boot", 4096, 4, exts([2]uint64{0, 1}, [2]uint64{2, 2}))
	if !errdef.Is(err, errdef.OverlappingExtents) {
		t.Errorf("got %v, want OverlappingExtents (gap)", err)
	}
}

func TestValidateLeadingGap(t *testing.T) {
	_, err := Validate("boot", 4096, 4, exts([2]uint64{1, 3}))
	if !errdef.Is(err, errdef.OverlappingExtents) {
		t.Errorf("got %v, want OverlappingExtents (leading gap)", err)
	}
}

func TestValidateTrailingGap(t *testing.T) {
	_, err := Validate("boot", 4096, 4, exts([2]uint64{0, 2}))
	if !errdef.Is(err, errdef.OverlappingExtents) {
		t.Errorf("got %v, want OverlappingExtents (trailing gap)", err)
	}
}

func TestValidateOutOfBounds(t *testing.T) {
	_, err := Validate("boot", 4096, 2, exts([2]uint64{0, 3}))
	if !errdef.Is(err, errdef.OutOfBounds) {
		t.Errorf("got %v, want OutOfBounds", err)
	}
}

func TestValidateZeroLengthExtent(t *testing.T) {
	_, err := Validate("boot", 4096, 1, exts([2]uint64{0, 0}, [2]uint64{0, 1}))
	if !errdef.Is(err, errdef.OutOfBounds) {
		t.Errorf("got %v, want OutOfBounds", err)
	}
}

func TestValidateBadBlockSize(t *testing.T) {
	_, err := Validate("boot", 4097, 1, exts([2]uint64{0, 1}))
	if !errdef.Is(err, errdef.BadBlockSize) {
		t.Errorf("got %v, want BadBlockSize", err)
	}

	_, err = Validate("boot", 0, 1, exts([2]uint64{0, 1}))
	if !errdef.Is(err, errdef.BadBlockSize) {
		t.Errorf("got %v, want BadBlockSize", err)
	}
}

func TestValidateNoExtents(t *testing.T) {
	_, err := Validate("boot", 4096, 1, nil)
	if !errdef.Is(err, errdef.OverlappingExtents) {
		t.Errorf("got %v, want OverlappingExtents", err)
	}
}

func TestProofByteRange(t *testing.T) {
	p, err := Validate("boot", 4096, 2, exts([2]uint64{0, 2}))
	if err != nil {
		t.Fatal(err)
	}

	start, end, err := p.ByteRange(&metadata.Extent{StartBlock: 1, NumBlocks: 1})
	if err != nil {
		t.Fatal(err)
	}
	if start != 4096 || end != 8192 {
		t.Errorf("ByteRange = [%d,%d), want [4096,8192)", start, end)
	}

	if _, _, err := p.ByteRange(&metadata.Extent{StartBlock: 5, NumBlocks: 1}); !errdef.Is(err, errdef.OutOfBounds) {
		t.Errorf("got %v, want OutOfBounds", err)
	}
}
