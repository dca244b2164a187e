// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

// Package metadata decodes the payload.bin container: its fixed header
// and its protobuf-encoded DeltaArchiveManifest.
package metadata

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/flatcar-linux/otaextract/errdef"
)

// Magic is the first four bytes of any update payload.
const Magic = "CrAU"

// Version is the only payload format version this engine understands.
const Version = 2

// HeaderSize is the length in bytes of the fixed payload header.
const HeaderSize = 24

// MaxManifestSize bounds manifest_len before it's trusted enough to
// slice, guarding against a corrupt or hostile header requesting an
// implausible allocation. Chosen the way original_source/src/payload.rs
// bounds it: generously above any real manifest, small enough to reject
// nonsense.
const MaxManifestSize = 256 << 20

// MaxMetadataSignatureSize bounds metadata_signature_len the same way.
const MaxMetadataSignatureSize = 64 << 20

// Header is the payload's fixed 24-byte preamble.
type Header struct {
	Version           uint64
	ManifestLength    uint64
	MetadataSigLength uint32

	// DataRegionOffset is HeaderSize + ManifestLength + MetadataSigLength,
	// the absolute offset at which per-operation data begins.
	DataRegionOffset uint64
}

// DecodeHeader parses the fixed header from the start of a payload. It
// does not validate that the payload is at least DataRegionOffset bytes
// long — callers slice the manifest/signature/data regions out of a
// payload.Region, which enforces that bound itself.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, errdef.New(errdef.MalformedHeader, fmt.Errorf(
			"header is %d bytes, need at least %d", len(b), HeaderSize))
	}

	if string(b[0:4]) != Magic {
		return Header{}, errdef.New(errdef.MalformedHeader, fmt.Errorf(
			"bad magic %q, want %q", b[0:4], Magic))
	}

	version := binary.BigEndian.Uint64(b[4:12])
	if version != Version {
		return Header{}, errdef.New(errdef.MalformedHeader, fmt.Errorf(
			"unsupported payload version %d, want %d", version, Version))
	}

	manifestLen := binary.BigEndian.Uint64(b[12:20])
	if manifestLen > MaxManifestSize {
		return Header{}, errdef.New(errdef.MalformedHeader, fmt.Errorf(
			"manifest length %d exceeds sanity limit %d", manifestLen, uint64(MaxManifestSize)))
	}

	sigLen := binary.BigEndian.Uint32(b[20:24])
	if sigLen > MaxMetadataSignatureSize {
		return Header{}, errdef.New(errdef.MalformedHeader, fmt.Errorf(
			"metadata signature length %d exceeds sanity limit %d", sigLen, uint32(MaxMetadataSignatureSize)))
	}

	dataOffset, overflow := addOverflow(uint64(HeaderSize), manifestLen, uint64(sigLen))
	if overflow || dataOffset > math.MaxInt64 {
		return Header{}, errdef.New(errdef.MalformedHeader, fmt.Errorf(
			"header size, manifest length, and signature length overflow"))
	}

	return Header{
		Version:           version,
		ManifestLength:    manifestLen,
		MetadataSigLength: sigLen,
		DataRegionOffset:  dataOffset,
	}, nil
}

func addOverflow(values ...uint64) (sum uint64, overflow bool) {
	for _, v := range values {
		next := sum + v
		if next < sum {
			return 0, true
		}
		sum = next
	}
	return sum, false
}
