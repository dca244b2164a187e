// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

// Package simd provides the engine's two hot per-byte loops — bulk copy
// and all-zero detection. Copy's chunk width is picked from what the
// running CPU supports, probed once at process start rather than per
// call; IsAllZero always works eight bytes at a time.
package simd

import "github.com/klauspost/cpuid/v2"

// threshold is the buffer size below which the wide-word paths aren't
// worth their setup cost; small extents just use a byte loop.
const threshold = 64

// wideWordSize is the widest simple aligned copy chunk this package
// uses. Go doesn't give user code a portable way to emit actual AVX2/
// AVX-512 instructions without cgo or assembly, neither of which fits
// this codebase's "buildable with the Go toolchain alone" constraint,
// so capability detection here picks a chunking width rather than an
// instruction set: wider registers still mean fewer loop iterations and
// better auto-vectorization by the compiler, just not a hand-picked
// AVX512 kernel the way original_source/src/cmd.rs's CpuSimd enum does.
var wideWordSize = detectWideWordSize()

func detectWideWordSize() int {
	switch {
	case cpuid.CPU.Supports(cpuid.AVX512F):
		return 64
	case cpuid.CPU.Supports(cpuid.AVX2):
		return 32
	case cpuid.CPU.Supports(cpuid.SSE2):
		return 16
	default:
		return 8
	}
}

// WideWordSize reports the chunk width Copy uses for buffers at or
// above copyThreshold, for tests and diagnostics. IsAllZero does not
// use it.
func WideWordSize() int { return wideWordSize }
