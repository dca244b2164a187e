// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

package decompress

import "io"

// identityDecoder handles REPLACE: the payload's data is already the
// literal destination bytes. readExactly reads straight into dst, so
// there's no separate copy step — REPLACE's "decoding" is just the read.
type identityDecoder struct{}

func (identityDecoder) Decode(dst []byte, src io.Reader) error {
	return readExactly(dst, src)
}
