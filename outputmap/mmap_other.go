// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux && !darwin

package outputmap

import (
	"os"

	"github.com/flatcar-linux/otaextract/errdef"
)

// createMapping falls back to an in-memory buffer flushed to disk on
// Close for platforms without a writable mmap wired up here, matching
// payload's unix/other split.
func createMapping(path string, size uint64) (*Mapping, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, errdef.New(errdef.OutputExists, err)
		}
		return nil, errdef.New(errdef.OutputIO, err)
	}
	return &Mapping{path: path, file: f, data: make([]byte, size)}, nil
}

func (m *Mapping) Close() error {
	if _, err := m.file.WriteAt(m.data, 0); err != nil {
		m.file.Close()
		return errdef.New(errdef.OutputIO, err).WithPartition(m.partition)
	}
	if err := m.file.Close(); err != nil {
		return errdef.New(errdef.OutputIO, err).WithPartition(m.partition)
	}
	return nil
}
