// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

// Package outputmap turns a certified extent.Proof into a writable byte
// range backed by a memory-mapped output file. It never accepts an
// Extent without a Proof: the type signature of SubRegion is the
// enforcement mechanism for "every write target passed disjointness and
// bounds checking first".
package outputmap

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/flatcar-linux/otaextract/errdef"
	"github.com/flatcar-linux/otaextract/extent"
	"github.com/flatcar-linux/otaextract/lang/destructor"
	"github.com/flatcar-linux/otaextract/lang/maps"
	"github.com/flatcar-linux/otaextract/update/metadata"
)

// Mapping is one partition's writable output image, sized exactly to its
// proven extent set and mapped for direct in-place writes.
type Mapping struct {
	partition string
	path      string
	file      *os.File
	data      []byte
	proof     *extent.Proof
}

// Path returns the mapping's backing file path.
func (m *Mapping) Path() string { return m.path }

// SubRegion returns the byte slice within the mapping that ext covers,
// after confirming proof is the same certificate this Mapping was
// created under. A Proof other than that one, or an Extent reaching past
// the partition's end, returns OutOfBounds. SubRegion does not check
// that ext is one of the extents the Proof was built from: any in-bounds
// extent is accepted (verifyPartition in package engine relies on this
// to read the whole image back).
func (m *Mapping) SubRegion(proof *extent.Proof, ext *metadata.Extent) ([]byte, error) {
	if proof != m.proof {
		return nil, errdef.New(errdef.OutOfBounds, fmt.Errorf(
			"proof for partition %q does not match mapping for partition %q",
			proof.Partition, m.partition)).WithPartition(m.partition)
	}
	start, end, err := proof.ByteRange(ext)
	if err != nil {
		return nil, err
	}
	if end > uint64(len(m.data)) {
		return nil, errdef.New(errdef.OutOfBounds, fmt.Errorf(
			"byte range [%d,%d) exceeds mapped output of %d bytes", start, end, len(m.data))).WithPartition(m.partition)
	}
	return m.data[start:end], nil
}

// Mapper creates and tracks one writable Mapping per partition, all
// rooted at a single output directory.
type Mapper struct {
	dir      string
	mappings map[string]*Mapping
}

// NewMapper returns a Mapper rooted at dir. dir must already exist;
// engine.Extract creates it when missing and records that with a
// cleanup.Transaction, which removes it on failure.
func NewMapper(dir string) *Mapper {
	return &Mapper{dir: dir, mappings: make(map[string]*Mapping)}
}

// Create allocates and maps the output file for partition, sized to
// proof.TotalBlocks*proof.BlockSize. The file is created with O_EXCL: an
// existing file at the target path is refused rather than overwritten.
func (mp *Mapper) Create(partition string, proof *extent.Proof) (*Mapping, error) {
	if proof.Partition != partition {
		return nil, errdef.New(errdef.OutOfBounds, fmt.Errorf(
			"proof is for partition %q, not %q", proof.Partition, partition)).WithPartition(partition)
	}

	path := filepath.Join(mp.dir, partition+".img")
	size := proof.TotalBlocks * proof.BlockSize

	m, err := createMapping(path, size)
	if err != nil {
		return nil, err
	}
	m.partition = partition
	m.proof = proof

	mp.mappings[partition] = m
	return m, nil
}

// Mappings returns every Mapping created so far, for use by cleanup and
// by final-summary reporting.
func (mp *Mapper) Mappings() map[string]*Mapping {
	return mp.mappings
}

// CloseAll closes every tracked Mapping. engine.Extract calls it on both
// its success and its failure paths. It uses a destructor.MultiDestructor,
// so a close failure (a stray msync error, say) is logged rather than
// returned, and does not stop the remaining mappings from being closed.
func (mp *Mapper) CloseAll() {
	var md destructor.MultiDestructor
	for _, name := range maps.SortedKeys(mp.mappings) {
		md.AddCloser(mp.mappings[name])
	}
	md.Destroy()
}
