// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

// Package scheduler runs a partition's operations against their
// destination sub-regions, in parallel when there are enough of them to
// be worth it and serially otherwise, cooperatively cancelling the rest
// of the batch on the first error.
package scheduler

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/flatcar-linux/otaextract/decompress"
	"github.com/flatcar-linux/otaextract/errdef"
	"github.com/flatcar-linux/otaextract/lang/worker"
	"github.com/flatcar-linux/otaextract/simd"
	"github.com/flatcar-linux/otaextract/update/metadata"
)

// parallelThreshold is the operation count below which dispatching
// through the worker pool costs more than it saves; smaller partitions
// (most metadata/bootloader partitions in practice) just run serially
// on the calling goroutine.
const parallelThreshold = 8

// Task is one operation bound to its concrete input and output bytes,
// ready to execute without any further lookups. Dsts holds one sub-region
// per destination extent, in manifest order; an operation's decoded
// bytes are written across them sequentially, since a single operation
// may legally scatter its output over more than one extent.
type Task struct {
	Partition string
	OpIndex   int
	Type      metadata.OpType
	Dsts      [][]byte
	Src       []byte // nil for ZERO and DISCARD
	WantHash  []byte // data_sha256_hash to check Src against, nil to skip the check
}

func (t Task) dstLen() int {
	n := 0
	for _, d := range t.Dsts {
		n += len(d)
	}
	return n
}

// Config controls how a batch of Tasks is scheduled.
type Config struct {
	// Concurrency bounds the worker pool size. Zero or negative means
	// unbounded.
	Concurrency int
	// Progress, if non-nil, is called after each Task completes with the
	// number of destination bytes it wrote.
	Progress func(bytesWritten int64)
}

// Run executes every task in tasks, either serially or across a bounded
// worker pool depending on batch size, and returns the first error
// encountered. On error, tasks still in flight are allowed to finish (or
// observe ctx's cancellation) but no new ones are started.
func Run(ctx context.Context, tasks []Task, cfg Config) error {
	if len(tasks) < parallelThreshold {
		for _, task := range tasks {
			if err := ctx.Err(); err != nil {
				return errdef.New(errdef.Cancelled, err)
			}
			if err := runTask(task, cfg); err != nil {
				return err
			}
		}
		return nil
	}

	group := worker.NewWorkerGroup(ctx, cfg.Concurrency)
	for i := range tasks {
		task := tasks[i]
		if err := group.Start(func(ctx context.Context) error {
			return runTask(task, cfg)
		}); err != nil {
			break
		}
	}
	if err := group.Wait(); err != nil {
		if _, ok := errdef.KindOf(err); !ok {
			return errdef.New(errdef.Cancelled, err)
		}
		return err
	}
	return nil
}

// runTask checks the L2 hash (over the payload-side, pre-decompression
// bytes — per the manifest's documented semantics, the digest is taken
// before decompression begins) before touching the destination, so a
// corrupt source never gets partially applied to a shared mmap.
func runTask(t Task, cfg Config) error {
	if t.WantHash != nil && t.Src != nil {
		sum := sha256.Sum256(t.Src)
		if !bytes.Equal(sum[:], t.WantHash) {
			return attribute(t, errdef.New(errdef.HashMismatch, fmt.Errorf(
				"operation source hash %x does not match manifest hash %x", sum, t.WantHash)))
		}
	}

	switch t.Type {
	case metadata.OpZero:
		for _, dst := range t.Dsts {
			clear(dst)
		}
	case metadata.OpDiscard:
		// Leave the destination as-is; it was zero-filled when the output
		// file was created and DISCARD carries no payload bytes to apply.
	case metadata.OpReplace:
		if len(t.Dsts) == 1 {
			// Single-extent fast path: decode straight into the mapped
			// sub-region, no scratch buffer.
			dec, err := decompress.For(t.Type)
			if err != nil {
				return attribute(t, err)
			}
			if err := dec.Decode(t.Dsts[0], bytes.NewReader(t.Src)); err != nil {
				return attribute(t, err)
			}
			break
		}
		fallthrough
	default:
		if err := decodeScattered(t); err != nil {
			return attribute(t, err)
		}
	}

	if cfg.Progress != nil {
		cfg.Progress(int64(t.dstLen()))
	}

	return nil
}

// decodeScattered decodes an operation's full byte stream into a scratch
// buffer, then distributes it across Dsts in order. Used for every
// REPLACE_BZ and REPLACE_XZ operation, and for a REPLACE whose
// destination spans more than one extent.
func decodeScattered(t Task) error {
	dec, err := decompress.For(t.Type)
	if err != nil {
		return err
	}
	scratch := make([]byte, t.dstLen())
	if err := dec.Decode(scratch, bytes.NewReader(t.Src)); err != nil {
		return err
	}
	off := 0
	for _, dst := range t.Dsts {
		simd.Copy(dst, scratch[off:off+len(dst)])
		off += len(dst)
	}
	return nil
}

func attribute(t Task, err error) error {
	var e *errdef.Error
	if de, ok := err.(*errdef.Error); ok {
		e = de
	} else {
		e = errdef.New(errdef.DecompressError, err)
	}
	return e.WithPartition(t.Partition).WithOp(t.OpIndex)
}
