// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

// Package payload presents the bytes of an update payload (payload.bin)
// as a random-access byte region, whether backed by a memory-mapped file
// or an in-memory buffer. It has no knowledge of the payload's internal
// framing — that belongs to package update/metadata.
package payload

import (
	"fmt"
	"io"

	"github.com/flatcar-linux/otaextract/errdef"
)

// Region is a read-only, random-access view of payload bytes.
type Region interface {
	// Len returns the region's total length in bytes.
	Len() uint64

	// Slice returns the length bytes starting at offset, without a
	// copy where the backing allows it. The returned slice must not be
	// retained past the Region's Close.
	Slice(offset, length uint64) ([]byte, error)

	// NewSectionReader returns a stream over [offset, offset+length),
	// for callers (streaming decompressors) that want an io.Reader
	// instead of a slice.
	NewSectionReader(offset, length uint64) (io.Reader, error)

	// Close releases the region's resources. Safe to call once.
	Close() error
}

// sliceReaderAt adapts a Region's Slice to io.ReaderAt so io.SectionReader
// can stream any backing without that backing reimplementing seeking.
type sliceReaderAt struct {
	region Region
}

func (s sliceReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || uint64(off) > s.region.Len() {
		return 0, fmt.Errorf("payload: offset %d out of range [0,%d]", off, s.region.Len())
	}
	if uint64(off) == s.region.Len() {
		return 0, io.EOF
	}

	remaining := s.region.Len() - uint64(off)
	n := uint64(len(p))
	short := n > remaining
	if short {
		n = remaining
	}

	b, err := s.region.Slice(uint64(off), n)
	if err != nil {
		return 0, err
	}
	copy(p, b)

	if short {
		return int(n), io.EOF
	}
	return int(n), nil
}

// newSectionReader is shared by every Region implementation's
// NewSectionReader method.
func newSectionReader(region Region, offset, length uint64) (io.Reader, error) {
	end := offset + length
	if end < offset || end > region.Len() {
		return nil, errdef.New(errdef.OutOfBounds, fmt.Errorf(
			"section [%d,%d) exceeds payload length %d", offset, end, region.Len()))
	}
	return io.NewSectionReader(sliceReaderAt{region: region}, int64(offset), int64(length)), nil
}
