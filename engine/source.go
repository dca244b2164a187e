// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"fmt"

	"github.com/flatcar-linux/otaextract/errdef"
	"github.com/flatcar-linux/otaextract/payload"
	"github.com/flatcar-linux/otaextract/update/metadata"
)

// Source is an opened, decoded payload: its region, header, and manifest.
// It corresponds to the Init/Opened/Decoded engine states — by the time
// Open or OpenBuffer returns successfully, the source has already
// advanced through both.
type Source struct {
	region   payload.Region
	header   metadata.Header
	manifest *metadata.Manifest
}

// Header returns the payload's decoded fixed header.
func (s *Source) Header() metadata.Header { return s.header }

// Manifest returns the payload's decoded DeltaArchiveManifest.
func (s *Source) Manifest() *metadata.Manifest { return s.manifest }

// Open memory-maps the payload at path and decodes its header and
// manifest.
func Open(path string) (*Source, error) {
	region, err := payload.Open(path)
	if err != nil {
		return nil, err
	}
	src, err := newSource(region)
	if err != nil {
		region.Close()
		return nil, err
	}
	return src, nil
}

// OpenBuffer decodes header and manifest from an in-memory payload. The
// caller retains ownership of data.
func OpenBuffer(data []byte) (*Source, error) {
	return newSource(payload.OpenBuffer(data))
}

func newSource(region payload.Region) (*Source, error) {
	headerBytes, err := region.Slice(0, metadata.HeaderSize)
	if err != nil {
		return nil, err
	}
	header, err := metadata.DecodeHeader(headerBytes)
	if err != nil {
		return nil, err
	}

	manifestBytes, err := region.Slice(uint64(metadata.HeaderSize), header.ManifestLength)
	if err != nil {
		return nil, err
	}
	manifest, err := metadata.DecodeManifest(manifestBytes)
	if err != nil {
		return nil, err
	}

	return &Source{region: region, header: header, manifest: manifest}, nil
}

// Close releases the source's underlying payload region.
func (s *Source) Close() error {
	return s.region.Close()
}

// data returns the length bytes of an operation's payload-side data,
// starting at offset within the payload's data region (i.e. relative to
// header.DataRegionOffset, not the start of the payload).
func (s *Source) data(offset, length uint64) ([]byte, error) {
	abs, overflow := addOverflow(s.header.DataRegionOffset, offset)
	if overflow {
		return nil, errdef.New(errdef.OutOfBounds, fmt.Errorf(
			"data offset %d overflows past data region start %d", offset, s.header.DataRegionOffset))
	}
	return s.region.Slice(abs, length)
}

func addOverflow(a, b uint64) (sum uint64, overflow bool) {
	sum = a + b
	return sum, sum < a
}
