// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/flatcar-linux/otaextract/cleanup"
	"github.com/flatcar-linux/otaextract/errdef"
	"github.com/flatcar-linux/otaextract/outputmap"
	"github.com/flatcar-linux/otaextract/scheduler"
	"github.com/flatcar-linux/otaextract/simd"
	"github.com/flatcar-linux/otaextract/update/metadata"
)

// Extract runs plan against src, writing one image file per selected
// partition under cfg.OutputDir. It walks the documented engine state
// machine internally (Mapped -> Extracting -> Verified -> Done on
// success; any failure jumps to Aborting, which removes every artifact
// this call created, then Failed). A panic on the calling goroutine
// also aborts before it is re-raised; panics inside the scheduler's
// worker goroutines are not recovered.
func Extract(ctx context.Context, src *Source, plan *Plan, cfg Config, sinks Sinks) (Summary, error) {
	if cfg.OutputDir == "" {
		return Summary{}, errdef.New(errdef.OutputIO, fmt.Errorf("no output directory configured"))
	}

	tx := cleanup.New()
	if _, err := os.Stat(cfg.OutputDir); os.IsNotExist(err) {
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return Summary{}, errdef.New(errdef.OutputIO, err)
		}
		tx.TrackCreatedDir(cfg.OutputDir)
	}

	mapper := outputmap.NewMapper(cfg.OutputDir)

	fail := func(err error) (Summary, error) {
		mapper.CloseAll()
		tx.Abort()
		return Summary{}, err
	}
	defer func() {
		if r := recover(); r != nil {
			mapper.CloseAll()
			tx.Abort()
			panic(r)
		}
	}()

	var summary Summary
	overallStart := time.Now()

	for _, pp := range plan.Partitions {
		if err := ctx.Err(); err != nil {
			return fail(errdef.New(errdef.Cancelled, err))
		}

		partStart := time.Now()

		mapping, err := mapper.Create(pp.Name, pp.Proof)
		if err != nil {
			return fail(err)
		}
		tx.TrackFile(mapping.Path())

		tasks, err := buildTasks(src, pp, mapping, cfg)
		if err != nil {
			return fail(err)
		}

		if err := scheduler.Run(ctx, tasks, scheduler.Config{
			Concurrency: resolveThreads(cfg.Threads),
			Progress:    sinks.Progress,
		}); err != nil {
			return fail(err)
		}

		hash, err := verifyPartition(pp, mapping, tasks, cfg)
		if err != nil {
			return fail(err)
		}

		duration := time.Since(partStart)
		summary.Partitions = append(summary.Partitions, PartitionSummary{
			Name:     pp.Name,
			Path:     mapping.Path(),
			Bytes:    pp.TotalBytes,
			Hash:     hash,
			Verified: cfg.Verify != VerifyOff && hash != "",
			Duration: duration,
		})
		summary.TotalBytes += pp.TotalBytes

		if sinks.PartitionHash != nil && hash != "" {
			sinks.PartitionHash(pp.Name, hash)
		}
		if sinks.PartitionDone != nil {
			sinks.PartitionDone(pp.Name, duration)
		}
	}

	summary.Duration = time.Since(overallStart)

	mapper.CloseAll()
	tx.Commit()

	return summary, nil
}

// buildTasks resolves one partition's operations into scheduler.Tasks:
// each destination extent's certified sub-region, each operation's
// payload-side source bytes, and, unless cfg.Verify is VerifyOff, the
// manifest's expected L2 hash.
func buildTasks(src *Source, pp *PartitionPlan, mapping *outputmap.Mapping, cfg Config) ([]scheduler.Task, error) {
	tasks := make([]scheduler.Task, 0, len(pp.Operations))

	for i, op := range pp.Operations {
		dsts := make([][]byte, 0, len(op.GetDstExtents()))
		for _, ext := range op.GetDstExtents() {
			region, err := mapping.SubRegion(pp.Proof, ext)
			if err != nil {
				return nil, err
			}
			dsts = append(dsts, region)
		}

		var payloadBytes []byte
		if op.DataBearing() {
			if !op.HasDataOffset() || !op.HasDataLength() {
				return nil, errdef.New(errdef.ManifestDecode, fmt.Errorf(
					"operation %d is data-bearing but declares no data_offset/data_length", i)).
					WithPartition(pp.Name).WithOp(i)
			}
			b, err := src.data(op.GetDataOffset(), op.GetDataLength())
			if err != nil {
				return nil, err
			}
			payloadBytes = b
		}

		hash := op.GetDataSHA256Hash()
		if cfg.Verify == VerifyStrict && op.DataBearing() && len(hash) == 0 {
			return nil, errdef.New(errdef.StrictHashMissing, fmt.Errorf(
				"operation %d has no data_sha256_hash under strict verification", i)).
				WithPartition(pp.Name).WithOp(i)
		}

		var wantHash []byte
		if cfg.Verify != VerifyOff {
			wantHash = nonEmpty(hash)
		}

		tasks = append(tasks, scheduler.Task{
			Partition: pp.Name,
			OpIndex:   i,
			Type:      op.GetType(),
			Dsts:      dsts,
			Src:       payloadBytes,
			WantHash:  wantHash,
		})
	}

	return tasks, nil
}

func nonEmpty(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

// verifyPartition computes and, depending on cfg.Verify/cfg.Sanity,
// checks a partition's L3 (whole-image) digest. When the partition was
// written by a single whole-partition REPLACE operation, the digest is
// taken from that operation's already-in-memory source bytes instead of
// reading the output back out of the mapping — the bytes are identical,
// so the second linear scan buys nothing.
func verifyPartition(pp *PartitionPlan, mapping *outputmap.Mapping, tasks []scheduler.Task, cfg Config) (string, error) {
	needHash := cfg.Verify != VerifyOff || cfg.PrintHashes || cfg.Sanity
	if !needHash {
		return "", nil
	}

	var sum [32]byte
	inline := false
	if len(pp.Operations) == 1 {
		op := pp.Operations[0]
		exts := op.GetDstExtents()
		if op.GetType() == metadata.OpReplace && len(exts) == 1 &&
			exts[0].GetStartBlock() == 0 && exts[0].GetNumBlocks() == pp.TotalBlocks {
			sum = sha256.Sum256(tasks[0].Src)
			inline = true
		}
	}

	var full []byte
	if !inline || cfg.Sanity {
		region, err := mapping.SubRegion(pp.Proof, &metadata.Extent{StartBlock: 0, NumBlocks: pp.TotalBlocks})
		if err != nil {
			return "", err
		}
		full = region
		if !inline {
			sum = sha256.Sum256(full)
		}
	}

	if cfg.Sanity && simd.IsAllZero(full) {
		return "", errdef.New(errdef.AllZeroOutput, fmt.Errorf(
			"partition output is entirely zero bytes")).WithPartition(pp.Name)
	}

	if cfg.Verify == VerifyStrict && len(pp.ExpectedHash) == 0 {
		return "", errdef.New(errdef.StrictHashMissing, fmt.Errorf(
			"partition has no new_partition_info.hash under strict verification")).WithPartition(pp.Name)
	}

	if cfg.Verify != VerifyOff && len(pp.ExpectedHash) > 0 {
		if !bytes.Equal(sum[:], pp.ExpectedHash) {
			return "", errdef.New(errdef.HashMismatch, fmt.Errorf(
				"partition hash %x does not match manifest hash %x", sum, pp.ExpectedHash)).WithPartition(pp.Name)
		}
	}

	return hex.EncodeToString(sum[:]), nil
}
