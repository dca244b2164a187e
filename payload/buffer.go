// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

package payload

import (
	"fmt"
	"io"

	"github.com/flatcar-linux/otaextract/errdef"
)

// bufferRegion is an in-memory Payload Reader backing, used when the
// payload was extracted from a ZIP archive entry small enough to fit a
// RAM budget (the ZIP-to-payload.bin extraction itself is an external
// collaborator; this package only accepts the resulting bytes).
type bufferRegion struct {
	data []byte
}

// OpenBuffer wraps an in-memory payload.bin. The caller retains
// ownership of data's backing array; OpenBuffer does not copy it.
func OpenBuffer(data []byte) Region {
	return &bufferRegion{data: data}
}

func (r *bufferRegion) Len() uint64 {
	return uint64(len(r.data))
}

func (r *bufferRegion) Slice(offset, length uint64) ([]byte, error) {
	end := offset + length
	if end < offset || end > r.Len() {
		return nil, errdef.New(errdef.OutOfBounds, fmt.Errorf(
			"slice [%d,%d) exceeds payload length %d", offset, end, r.Len()))
	}
	return r.data[offset:end], nil
}

func (r *bufferRegion) NewSectionReader(offset, length uint64) (io.Reader, error) {
	return newSectionReader(r, offset, length)
}

func (r *bufferRegion) Close() error {
	r.data = nil
	return nil
}
