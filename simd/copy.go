// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

package simd

// copyThreshold is the buffer size at or above which Copy switches from the
// builtin copy to a chunked loop over wideWordSize-sized pieces. Below
// it the builtin's own setup cost dominates; REPLACE operations on
// small (often sub-block) extents are common enough that skipping the
// chunked path for them matters.
const copyThreshold = 1 << 20

// Copy copies min(len(dst), len(src)) bytes from src to dst and returns
// the count copied. Buffers at or above copyThreshold are copied
// wideWordSize bytes at a time, so the compiler can fold each chunk into
// its widest available load/store pair instead of the builtin's
// generic byte-at-a-time-capable path; buffers below the threshold just
// use the builtin directly.
func Copy(dst, src []byte) int {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	if n < copyThreshold {
		return copy(dst, src)
	}

	chunk := wideWordSize
	chunks := n / chunk
	for i := 0; i < chunks; i++ {
		off := i * chunk
		copy(dst[off:off+chunk], src[off:off+chunk])
	}
	copy(dst[chunks*chunk:n], src[chunks*chunk:n])
	return n
}
