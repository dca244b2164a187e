// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

package decompress

import (
	"fmt"
	"io"

	"github.com/ulikunitz/xz"

	"github.com/flatcar-linux/otaextract/errdef"
)

// xzDecoder handles REPLACE_XZ, using the same xz library the teacher's
// own util/xz.go wraps, here as a streaming in-process decoder instead
// of a file-to-file helper.
type xzDecoder struct{}

func (xzDecoder) Decode(dst []byte, src io.Reader) error {
	r, err := xz.NewReader(src)
	if err != nil {
		return errdef.New(errdef.DecompressError, fmt.Errorf("xz: %w", err))
	}
	return readExactly(dst, r)
}
