// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"runtime"
	"time"
)

// maxThreads bounds the effective worker concurrency Extract will ever
// request, regardless of Config.Threads or runtime.NumCPU(): a payload
// with many small partitions shouldn't be able to fan a single
// partition's operations out across an unreasonable number of
// goroutines.
const maxThreads = 256

// resolveThreads turns a requested thread count into the concurrency
// Extract actually passes to the scheduler: zero or negative means
// "auto" (runtime.NumCPU()), and the result is always clamped to
// [1, maxThreads].
func resolveThreads(requested int) int {
	n := requested
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n < 1 {
		n = 1
	}
	if n > maxThreads {
		n = maxThreads
	}
	return n
}

// VerifyMode controls which hash checks Extract performs: the L2
// (per-operation) source check and the L3 (whole-partition) check after
// a partition's operations are written.
type VerifyMode int

const (
	// VerifyOff skips L2 and L3 verification entirely; only the
	// always-on L1 structural checks (header, extents) run.
	VerifyOff VerifyMode = iota
	// VerifyNormal checks each operation's source bytes against
	// data_sha256_hash and each partition's output against
	// new_partition_info.hash when the manifest provides them, but
	// doesn't complain about an operation or partition that has none.
	VerifyNormal
	// VerifyStrict additionally requires every partition to carry a
	// new_partition_info.hash and every data-bearing operation to carry
	// a data_sha256_hash; a missing hash is StrictHashMissing.
	VerifyStrict
)

func (v VerifyMode) String() string {
	switch v {
	case VerifyOff:
		return "off"
	case VerifyNormal:
		return "normal"
	case VerifyStrict:
		return "strict"
	default:
		return "unknown"
	}
}

// Selection names the partitions an extraction should touch. The zero
// value selects every partition in the manifest; Only restricts it to a
// named subset.
type Selection struct {
	names map[string]bool
}

// All selects every partition in the manifest.
func All() Selection {
	return Selection{}
}

// Only selects exactly the named partitions.
func Only(names ...string) Selection {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return Selection{names: set}
}

// Includes reports whether name is part of the selection.
func (s Selection) Includes(name string) bool {
	if s.names == nil {
		return true
	}
	return s.names[name]
}

// Config controls one Extract call.
type Config struct {
	// Verify selects how much whole-partition verification runs.
	Verify VerifyMode
	// Sanity, when true, rejects a partition whose written output is
	// entirely zero bytes — almost always a sign the payload was
	// misparsed rather than a genuinely all-zero partition.
	Sanity bool
	// Threads bounds worker concurrency per partition. Zero or negative
	// means auto: runtime.NumCPU(). The effective value is always
	// clamped to [1, maxThreads] regardless of what's requested.
	Threads int
	// PrintHashes, when true, asks Extract to populate PartitionSummary
	// hashes even when Verify is off, purely for reporting.
	PrintHashes bool
	// Stats is not read by Extract: per-partition timing is recorded in
	// the returned Summary and passed to Sinks.PartitionDone whether or
	// not it is set.
	Stats bool
	// Selected restricts extraction to a subset of the manifest's
	// partitions. The zero value (All()) extracts everything.
	Selected Selection
	// OutputDir is the directory partition images are written to. It's
	// created if missing.
	OutputDir string
}

// DefaultConfig returns the Config a bare `otaextract extract` invocation
// uses: normal verification, auto thread count, no sanity check, every
// partition selected, writing into the current directory's "out"
// subdirectory.
func DefaultConfig() Config {
	return Config{
		Verify:    VerifyNormal,
		Threads:   0,
		Selected:  All(),
		OutputDir: "out",
	}
}

// Sinks receives progress and reporting callbacks during Extract. Any
// field left nil is simply not called.
type Sinks struct {
	// Progress is called after each operation completes with the number
	// of destination bytes it wrote.
	Progress func(bytesWritten int64)
	// PartitionHash is called once per partition with its L3 digest, hex
	// encoded, once Extract has finished writing it.
	PartitionHash func(partition, hashHex string)
	// PartitionDone is called once per partition with how long
	// extraction and verification of it took.
	PartitionDone func(partition string, d time.Duration)
}

// PartitionSummary reports one partition's extraction result.
type PartitionSummary struct {
	Name     string
	Path     string
	Bytes    uint64
	Hash     string // hex L3 digest, empty if never computed
	Verified bool
	Duration time.Duration
}

// Summary reports the result of a completed Extract call.
type Summary struct {
	Partitions []PartitionSummary
	TotalBytes uint64
	Duration   time.Duration
}
