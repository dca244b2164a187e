// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

package metadata

import (
	"encoding/binary"
	"testing"

	"github.com/flatcar-linux/otaextract/errdef"
)

func buildHeader(version uint64, manifestLen uint64, sigLen uint32) []byte {
	b := make([]byte, HeaderSize)
	copy(b[0:4], Magic)
	binary.BigEndian.PutUint64(b[4:12], version)
	binary.BigEndian.PutUint64(b[12:20], manifestLen)
	binary.BigEndian.PutUint32(b[20:24], sigLen)
	return b
}

func TestDecodeHeaderValid(t *testing.T) {
	b := buildHeader(Version, 1000, 40)

	h, err := DecodeHeader(b)
	if err != nil {
		t.Fatal(err)
	}
	if h.Version != Version {
		t.Errorf("Version = %d, want %d", h.Version, Version)
	}
	if h.ManifestLength != 1000 {
		t.Errorf("ManifestLength = %d, want 1000", h.ManifestLength)
	}
	if h.MetadataSigLength != 40 {
		t.Errorf("MetadataSigLength = %d, want 40", h.MetadataSigLength)
	}
	if want := uint64(HeaderSize + 1000 + 40); h.DataRegionOffset != want {
		t.Errorf("DataRegionOffset = %d, want %d", h.DataRegionOffset, want)
	}
}

func TestDecodeHeaderTooShort(t *testing.T) {
	_, err := DecodeHeader(make([]byte, HeaderSize-1))
	if !errdef.Is(err, errdef.MalformedHeader) {
		t.Errorf("got %v, want MalformedHeader", err)
	}
}

func TestDecodeHeaderBadMagic(t *testing.T) {
	b := buildHeader(Version, 100, 0)
	copy(b[0:4], "XXXX")

	_, err := DecodeHeader(b)
	if !errdef.Is(err, errdef.MalformedHeader) {
		t.Errorf("got %v, want MalformedHeader", err)
	}
}

func TestDecodeHeaderUnsupportedVersion(t *testing.T) {
	b := buildHeader(1, 100, 0)

	_, err := DecodeHeader(b)
	if !errdef.Is(err, errdef.MalformedHeader) {
		t.Errorf("got %v, want MalformedHeader", err)
	}
}

func TestDecodeHeaderManifestTooLarge(t *testing.T) {
	b := buildHeader(Version, MaxManifestSize+1, 0)

	_, err := DecodeHeader(b)
	if !errdef.Is(err, errdef.MalformedHeader) {
		t.Errorf("got %v, want MalformedHeader", err)
	}
}

func TestDecodeHeaderSignatureTooLarge(t *testing.T) {
	b := buildHeader(Version, 100, MaxMetadataSignatureSize+1)

	_, err := DecodeHeader(b)
	if !errdef.Is(err, errdef.MalformedHeader) {
		t.Errorf("got %v, want MalformedHeader", err)
	}
}

func TestAddOverflow(t *testing.T) {
	if sum, overflow := addOverflow(1, 2, 3); overflow || sum != 6 {
		t.Errorf("addOverflow(1,2,3) = %d, %v, want 6, false", sum, overflow)
	}
	if _, overflow := addOverflow(^uint64(0), 1); !overflow {
		t.Errorf("addOverflow(maxuint64, 1) did not report overflow")
	}
}
