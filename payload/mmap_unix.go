// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux || darwin

package payload

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/flatcar-linux/otaextract/errdef"
)

// mmapRegion is a read-only memory map of payload.bin.
type mmapRegion struct {
	data []byte
	file *os.File
}

// Open memory-maps path read-only. This is the preferred Payload Reader
// backing: the kernel serves worker reads straight out of the page
// cache, with no per-operation copy into user space.
func Open(path string) (Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errdef.New(errdef.InputIO, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errdef.New(errdef.InputIO, err)
	}
	size := info.Size()
	if size == 0 {
		f.Close()
		return nil, errdef.New(errdef.InputIO, fmt.Errorf("payload %s is empty", path))
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, errdef.New(errdef.InputIO, fmt.Errorf("mmap %s: %w", path, err))
	}

	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)

	return &mmapRegion{data: data, file: f}, nil
}

func (r *mmapRegion) Len() uint64 {
	return uint64(len(r.data))
}

func (r *mmapRegion) Slice(offset, length uint64) ([]byte, error) {
	end := offset + length
	if end < offset || end > r.Len() {
		return nil, errdef.New(errdef.OutOfBounds, fmt.Errorf(
			"slice [%d,%d) exceeds payload length %d", offset, end, r.Len()))
	}
	return r.data[offset:end], nil
}

func (r *mmapRegion) NewSectionReader(offset, length uint64) (io.Reader, error) {
	return newSectionReader(r, offset, length)
}

func (r *mmapRegion) Close() error {
	var err error
	if r.data != nil {
		err = unix.Munmap(r.data)
		r.data = nil
	}
	if cerr := r.file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errdef.New(errdef.InputIO, err)
	}
	return nil
}
