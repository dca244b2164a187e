// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

// Package extent proves that a partition's destination extents are sane
// before any byte of it is written: block size is a power of two, every
// extent lies within the partition, and no two extents overlap. The
// result is a typed Proof rather than a boolean, so outputmap.SubRegion
// cannot be reached without a Proof for the partition in hand.
package extent

import (
	"fmt"
	"math/bits"
	"sort"

	"github.com/flatcar-linux/otaextract/errdef"
	"github.com/flatcar-linux/otaextract/update/metadata"
)

// Proof is what Validate returns once a partition's full set of
// destination extents has passed. It carries just enough state for
// outputmap to convert a certified Extent into a byte range without
// redoing the O(n log n) disjointness check per operation.
type Proof struct {
	Partition   string
	BlockSize   uint64
	TotalBlocks uint64
}

// ByteRange returns the absolute [start, end) byte range within the
// partition's output that e occupies, given p is the proof for e's
// partition. It re-validates e's own bounds cheaply (an O(1) multiply
// and compare) but relies on p for the assurance that e does not
// overlap any other extent in the same partition — that part isn't
// re-derivable from e alone.
func (p *Proof) ByteRange(e *metadata.Extent) (start, end uint64, err error) {
	endBlock, overflow := addOverflow(e.GetStartBlock(), e.GetNumBlocks())
	if overflow || endBlock > p.TotalBlocks {
		return 0, 0, errdef.New(errdef.OutOfBounds, fmt.Errorf(
			"extent [%d,%d) exceeds partition %q size of %d blocks",
			e.GetStartBlock(), endBlock, p.Partition, p.TotalBlocks))
	}
	return e.GetStartBlock() * p.BlockSize, endBlock * p.BlockSize, nil
}

// Validate proves that extents is a disjoint, in-bounds set of
// destination extents for partition, under blockSize. partitionBlocks is
// the partition's total size in blocks (new_partition_info.size /
// blockSize); every extent must fall within [0, partitionBlocks).
//
// A gap in coverage — blocks in [0, partitionBlocks) that no extent
// touches — is also rejected as OverlappingExtents: the engine's error
// taxonomy is deliberately exhaustive and doesn't carry a separate
// "coverage gap" kind, so an incompletely-tiled partition is reported
// the same way an overlapping one is. Both mean the operation set
// doesn't validly reconstruct the partition.
func Validate(partition string, blockSize uint64, partitionBlocks uint64, extents []*metadata.Extent) (*Proof, error) {
	if blockSize == 0 || bits.OnesCount64(blockSize) != 1 {
		return nil, errdef.New(errdef.BadBlockSize, fmt.Errorf(
			"block size %d is not a positive power of two", blockSize)).WithPartition(partition)
	}
	if len(extents) == 0 {
		return nil, errdef.New(errdef.OverlappingExtents, fmt.Errorf(
			"partition %q has no destination extents", partition)).WithPartition(partition)
	}

	type span struct{ start, end uint64 }
	spans := make([]span, len(extents))
	for i, e := range extents {
		if e.GetNumBlocks() == 0 {
			return nil, errdef.New(errdef.OutOfBounds, fmt.Errorf(
				"extent %d in partition %q has zero blocks", i, partition)).WithPartition(partition)
		}
		end, overflow := addOverflow(e.GetStartBlock(), e.GetNumBlocks())
		if overflow || end > partitionBlocks {
			return nil, errdef.New(errdef.OutOfBounds, fmt.Errorf(
				"extent %d [%d,%d) in partition %q exceeds partition size %d blocks",
				i, e.GetStartBlock(), end, partition, partitionBlocks)).WithPartition(partition)
		}
		spans[i] = span{start: e.GetStartBlock(), end: end}
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	if spans[0].start != 0 {
		return nil, errdef.New(errdef.OverlappingExtents, fmt.Errorf(
			"partition %q leaves a gap [0,%d) uncovered", partition, spans[0].start)).WithPartition(partition)
	}
	for i := 1; i < len(spans); i++ {
		switch {
		case spans[i].start < spans[i-1].end:
			return nil, errdef.New(errdef.OverlappingExtents, fmt.Errorf(
				"partition %q extents overlap: [%d,%d) and [%d,%d)",
				partition, spans[i-1].start, spans[i-1].end, spans[i].start, spans[i].end)).WithPartition(partition)
		case spans[i].start > spans[i-1].end:
			return nil, errdef.New(errdef.OverlappingExtents, fmt.Errorf(
				"partition %q leaves a gap [%d,%d) uncovered",
				partition, spans[i-1].end, spans[i].start)).WithPartition(partition)
		}
	}
	if last := spans[len(spans)-1].end; last != partitionBlocks {
		return nil, errdef.New(errdef.OverlappingExtents, fmt.Errorf(
			"partition %q leaves a gap [%d,%d) uncovered", partition, last, partitionBlocks)).WithPartition(partition)
	}

	return &Proof{Partition: partition, BlockSize: blockSize, TotalBlocks: partitionBlocks}, nil
}

func addOverflow(a, b uint64) (sum uint64, overflow bool) {
	sum = a + b
	return sum, sum < a
}
