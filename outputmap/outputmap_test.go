// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

package outputmap

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/flatcar-linux/otaextract/errdef"
	"github.com/flatcar-linux/otaextract/extent"
	"github.com/flatcar-linux/otaextract/update/metadata"
)

func TestMapperCreateAndSubRegion(t *testing.T) {
	dir := t.TempDir()
	mp := NewMapper(dir)

	proof, err := extent.Validate("boot", 4096, 2, []*metadata.Extent{
		{StartBlock: 0, NumBlocks: 1},
		{StartBlock: 1, NumBlocks: 1},
	})
	if err != nil {
		t.Fatal(err)
	}

	m, err := mp.Create("boot", proof)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	region, err := m.SubRegion(proof, &metadata.Extent{StartBlock: 1, NumBlocks: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(region) != 4096 {
		t.Fatalf("SubRegion len = %d, want 4096", len(region))
	}
	copy(region, bytes.Repeat([]byte{0x5A}, 4096))

	if err := m.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "boot.img"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 8192 {
		t.Fatalf("output file is %d bytes, want 8192", len(got))
	}
	if !bytes.Equal(got[4096:8192], bytes.Repeat([]byte{0x5A}, 4096)) {
		t.Errorf("second block was not written through the mapping")
	}
	if !bytes.Equal(got[0:4096], make([]byte, 4096)) {
		t.Errorf("first block should still be zero-filled")
	}
}

func TestMapperCreateRefusesExistingFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "boot.img"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	mp := NewMapper(dir)
	proof, err := extent.Validate("boot", 4096, 1, []*metadata.Extent{{StartBlock: 0, NumBlocks: 1}})
	if err != nil {
		t.Fatal(err)
	}

	_, err = mp.Create("boot", proof)
	if !errdef.Is(err, errdef.OutputExists) {
		t.Errorf("got %v, want OutputExists", err)
	}
}

func TestMappingSubRegionRejectsForeignProof(t *testing.T) {
	dir := t.TempDir()
	mp := NewMapper(dir)

	bootProof, err := extent.Validate("boot", 4096, 1, []*metadata.Extent{{StartBlock: 0, NumBlocks: 1}})
	if err != nil {
		t.Fatal(err)
	}
	systemProof, err := extent.Validate("system", 4096, 1, []*metadata.Extent{{StartBlock: 0, NumBlocks: 1}})
	if err != nil {
		t.Fatal(err)
	}

	m, err := mp.Create("boot", bootProof)
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	if _, err := m.SubRegion(systemProof, &metadata.Extent{StartBlock: 0, NumBlocks: 1}); !errdef.Is(err, errdef.OutOfBounds) {
		t.Errorf("got %v, want OutOfBounds for mismatched proof", err)
	}
}
