// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux || darwin

package outputmap

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/flatcar-linux/otaextract/errdef"
)

func createMapping(path string, size uint64) (*Mapping, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, errdef.New(errdef.OutputExists, err)
		}
		return nil, errdef.New(errdef.OutputIO, err)
	}

	if size > 0 {
		if err := unix.Ftruncate(int(f.Fd()), int64(size)); err != nil {
			f.Close()
			os.Remove(path)
			return nil, errdef.New(errdef.OutputIO, fmt.Errorf("truncate %s to %d bytes: %w", path, size, err))
		}
	}

	var data []byte
	if size > 0 {
		data, err = unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			f.Close()
			os.Remove(path)
			return nil, errdef.New(errdef.OutputIO, fmt.Errorf("mmap %s: %w", path, err))
		}
		_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
	}

	return &Mapping{path: path, file: f, data: data}, nil
}

func (m *Mapping) Close() error {
	var err error
	if m.data != nil {
		if syncErr := unix.Msync(m.data, unix.MS_SYNC); syncErr != nil && err == nil {
			err = syncErr
		}
		if unmapErr := unix.Munmap(m.data); unmapErr != nil && err == nil {
			err = unmapErr
		}
		m.data = nil
	}
	if cerr := m.file.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return errdef.New(errdef.OutputIO, err).WithPartition(m.partition)
	}
	return nil
}
