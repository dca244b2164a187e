// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

package decompress

import (
	"compress/bzip2"
	"io"
)

// bzip2Decoder handles REPLACE_BZ. There's no actively maintained
// third-party bzip2 *decoder* in the ecosystem worth preferring over the
// standard library's — the teacher itself reaches for compress/bzip2
// for in-process decode and only shells out to lbunzip2 for a separate,
// whole-file use case this engine doesn't have.
type bzip2Decoder struct{}

func (bzip2Decoder) Decode(dst []byte, src io.Reader) error {
	return readExactly(dst, bzip2.NewReader(src))
}
