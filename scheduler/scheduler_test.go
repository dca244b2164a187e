// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"bytes"
	"context"
	"crypto/sha256"
	"sync/atomic"
	"testing"

	"github.com/flatcar-linux/otaextract/errdef"
	"github.com/flatcar-linux/otaextract/update/metadata"
)

func TestRunReplaceCopiesBytes(t *testing.T) {
	src := []byte("partition bytes")
	dst := make([]byte, len(src))

	err := Run(context.Background(), []Task{
		{Partition: "boot", OpIndex: 0, Type: metadata.OpReplace, Dsts: [][]byte{dst}, Src: src},
	}, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dst, src) {
		t.Errorf("dst = %q, want %q", dst, src)
	}
}

func TestRunReplaceScattersAcrossMultipleExtents(t *testing.T) {
	src := []byte("0123456789abcdef")
	d1 := make([]byte, 6)
	d2 := make([]byte, 10)

	err := Run(context.Background(), []Task{
		{Partition: "boot", OpIndex: 0, Type: metadata.OpReplace, Dsts: [][]byte{d1, d2}, Src: src},
	}, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(d1, src[:6]) || !bytes.Equal(d2, src[6:]) {
		t.Errorf("scattered write mismatch: d1=%q d2=%q", d1, d2)
	}
}

func TestRunZeroClearsDestination(t *testing.T) {
	dst := bytes.Repeat([]byte{0xFF}, 32)

	err := Run(context.Background(), []Task{
		{Partition: "boot", OpIndex: 0, Type: metadata.OpZero, Dsts: [][]byte{dst}},
	}, Config{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dst, make([]byte, 32)) {
		t.Errorf("ZERO operation did not clear destination: %x", dst)
	}
}

func TestRunChecksDataHash(t *testing.T) {
	src := []byte("verified bytes")
	sum := sha256.Sum256(src)
	dst := make([]byte, len(src))

	err := Run(context.Background(), []Task{
		{Partition: "boot", OpIndex: 0, Type: metadata.OpReplace, Dsts: [][]byte{dst}, Src: src, WantHash: sum[:]},
	}, Config{})
	if err != nil {
		t.Fatal(err)
	}
}

func TestRunHashMismatch(t *testing.T) {
	src := []byte("actual bytes")
	dst := make([]byte, len(src))
	wrongHash := make([]byte, 32)

	err := Run(context.Background(), []Task{
		{Partition: "boot", OpIndex: 3, Type: metadata.OpReplace, Dsts: [][]byte{dst}, Src: src, WantHash: wrongHash},
	}, Config{})
	if !errdef.Is(err, errdef.HashMismatch) {
		t.Errorf("got %v, want HashMismatch", err)
	}
	if kind, ok := errdef.KindOf(err); !ok || kind != errdef.HashMismatch {
		t.Fatalf("KindOf = %v, %v", kind, ok)
	}
}

func TestRunParallelBatch(t *testing.T) {
	const n = 50
	tasks := make([]Task, n)
	dsts := make([][]byte, n)
	for i := range tasks {
		src := bytes.Repeat([]byte{byte(i)}, 16)
		dsts[i] = make([]byte, 16)
		tasks[i] = Task{Partition: "system", OpIndex: i, Type: metadata.OpReplace, Dsts: [][]byte{dsts[i]}, Src: src}
	}

	var progressed int64
	err := Run(context.Background(), tasks, Config{
		Concurrency: 4,
		Progress:    func(n int64) { atomic.AddInt64(&progressed, n) },
	})
	if err != nil {
		t.Fatal(err)
	}
	for i, dst := range dsts {
		if !bytes.Equal(dst, bytes.Repeat([]byte{byte(i)}, 16)) {
			t.Errorf("task %d: dst mismatch", i)
		}
	}
	if progressed != n*16 {
		t.Errorf("progressed = %d, want %d", progressed, n*16)
	}
}

func TestRunStopsOnFirstError(t *testing.T) {
	tasks := make([]Task, 20)
	for i := range tasks {
		tasks[i] = Task{
			Partition: "vendor",
			OpIndex:   i,
			Type:      metadata.OpReplace,
			Dsts:      [][]byte{make([]byte, 4)},
			Src:       make([]byte, 5), // length mismatch: every task fails
		}
	}

	err := Run(context.Background(), tasks, Config{Concurrency: 4})
	if !errdef.Is(err, errdef.DecompressLengthMismatch) {
		t.Errorf("got %v, want DecompressLengthMismatch", err)
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := []Task{{Partition: "boot", OpIndex: 0, Type: metadata.OpReplace, Dsts: [][]byte{make([]byte, 1)}, Src: make([]byte, 1)}}
	err := Run(ctx, tasks, Config{})
	if !errdef.Is(err, errdef.Cancelled) {
		t.Errorf("got %v, want Cancelled", err)
	}
}
