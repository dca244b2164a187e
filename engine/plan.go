// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"fmt"

	"github.com/flatcar-linux/otaextract/errdef"
	"github.com/flatcar-linux/otaextract/extent"
	"github.com/flatcar-linux/otaextract/lang/maps"
	"github.com/flatcar-linux/otaextract/update/metadata"
)

// PartitionPlan is one partition's certified, ready-to-run extraction
// recipe: its proven extent layout and its operation list, in manifest
// order.
type PartitionPlan struct {
	Name         string
	Operations   []*metadata.Operation
	Proof        *extent.Proof
	TotalBlocks  uint64
	TotalBytes   uint64
	ExpectedHash []byte // new_partition_info.hash, nil if the manifest omits it
}

// Plan is a validated recipe for a whole extraction run: BlockSize plus
// one PartitionPlan per selected partition, in natural partition-name
// order (not manifest order).
type Plan struct {
	BlockSize  uint64
	Partitions []*PartitionPlan
}

// BuildPlan validates src's manifest against sel and produces a Plan.
// It refuses (with Unsupported) any selected partition that uses an
// incremental or unrecognized operation type — this engine only applies
// full (non-delta) payloads — and proves each selected partition's
// destination extents with extent.Validate before returning.
func BuildPlan(src *Source, sel Selection) (*Plan, error) {
	manifest := src.Manifest()
	blockSize := uint64(manifest.GetBlockSize())

	plan := &Plan{BlockSize: blockSize}

	// Partitions are often named with a numeric or A/B suffix
	// ("system_a", "vendor10"); building the set keyed by name first and
	// then walking it in natural order keeps plan.Partitions (and so the
	// CLI's per-partition output) in a sensible, human-sortable order
	// regardless of the manifest's own partition ordering.
	byName := make(map[string]*metadata.PartitionUpdate)
	for _, pu := range manifest.GetPartitions() {
		name := pu.GetPartitionName()
		if sel.Includes(name) {
			byName[name] = pu
		}
	}

	for _, name := range maps.NaturalKeys(byName) {
		pp, err := buildPartitionPlan(byName[name], blockSize)
		if err != nil {
			return nil, err
		}
		plan.Partitions = append(plan.Partitions, pp)
	}

	if len(plan.Partitions) == 0 {
		return nil, errdef.New(errdef.Unsupported, fmt.Errorf("selection matched no partitions in the manifest"))
	}

	return plan, nil
}

func buildPartitionPlan(pu *metadata.PartitionUpdate, blockSize uint64) (*PartitionPlan, error) {
	name := pu.GetPartitionName()

	var allExtents []*metadata.Extent
	for i, op := range pu.GetOperations() {
		t := op.GetType()
		if !t.Recognized() {
			return nil, errdef.New(errdef.Unsupported, fmt.Errorf(
				"operation %d has unrecognized type %d", i, int32(t))).WithPartition(name).WithOp(i)
		}
		if t.Incremental() {
			return nil, errdef.New(errdef.Unsupported, fmt.Errorf(
				"operation %d uses incremental type %s, which requires a source image this engine doesn't have",
				i, t)).WithPartition(name).WithOp(i)
		}
		allExtents = append(allExtents, op.GetDstExtents()...)
	}

	partitionBlocks, err := partitionBlockCount(name, pu, blockSize, allExtents)
	if err != nil {
		return nil, err
	}

	proof, err := extent.Validate(name, blockSize, partitionBlocks, allExtents)
	if err != nil {
		return nil, err
	}

	return &PartitionPlan{
		Name:         name,
		Operations:   pu.GetOperations(),
		Proof:        proof,
		TotalBlocks:  partitionBlocks,
		TotalBytes:   partitionBlocks * blockSize,
		ExpectedHash: pu.GetNewPartitionInfo().GetHash(),
	}, nil
}

// partitionBlockCount determines a partition's total size in blocks:
// new_partition_info.size when the manifest provides one (the normal
// case), or the tight bound implied by the highest extent's end block
// when it doesn't.
func partitionBlockCount(name string, pu *metadata.PartitionUpdate, blockSize uint64, extents []*metadata.Extent) (uint64, error) {
	if size := pu.GetNewPartitionInfo().GetSize(); size > 0 {
		if size%blockSize != 0 {
			return 0, errdef.New(errdef.BadBlockSize, fmt.Errorf(
				"partition %q size %d is not a multiple of block size %d", name, size, blockSize)).WithPartition(name)
		}
		return size / blockSize, nil
	}

	var maxEnd uint64
	for _, e := range extents {
		end := e.GetStartBlock() + e.GetNumBlocks()
		if end > maxEnd {
			maxEnd = end
		}
	}
	if maxEnd == 0 {
		return 0, errdef.New(errdef.OverlappingExtents, fmt.Errorf(
			"partition %q has no size and no extents to infer one from", name)).WithPartition(name)
	}
	return maxEnd, nil
}
