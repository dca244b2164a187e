// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

// Package decompress decodes one operation's payload data directly into
// its destination output region, for the operation types that carry
// compressed or literal bytes (REPLACE, REPLACE_BZ, REPLACE_XZ).
package decompress

import (
	"fmt"
	"io"

	"github.com/flatcar-linux/otaextract/errdef"
	"github.com/flatcar-linux/otaextract/update/metadata"
)

// Decoder decodes src fully into dst, streaming from src rather than
// requiring its whole length up front. The destination's length is
// fixed by the certified extent it came from (outputmap.Mapping.
// SubRegion), so a Decoder reports DecompressLengthMismatch rather than
// silently truncating or leaving dst partially written when src decodes
// to more or fewer bytes than len(dst).
type Decoder interface {
	Decode(dst []byte, src io.Reader) error
}

// For returns the Decoder for opType, or an Unsupported error for
// operation types this package doesn't carry a Decoder for (ZERO and
// DISCARD are handled directly by the scheduler without going through
// decompress at all; incremental types are rejected earlier, by the
// manifest plan).
func For(opType metadata.OpType) (Decoder, error) {
	switch opType {
	case metadata.OpReplace:
		return identityDecoder{}, nil
	case metadata.OpReplaceBZ:
		return bzip2Decoder{}, nil
	case metadata.OpReplaceXZ:
		return xzDecoder{}, nil
	default:
		return nil, errdef.New(errdef.Unsupported, fmt.Errorf("no decoder for operation type %v", opType))
	}
}

func lengthMismatch(got, want int) error {
	return errdef.New(errdef.DecompressLengthMismatch, fmt.Errorf(
		"decoded %d bytes, destination wants exactly %d", got, want))
}

// readExactly fills dst from r and reports whether r carried any bytes
// beyond len(dst), the shared tail check every Decoder in this package
// needs: decoding to more or fewer bytes than the destination's fixed
// size is a DecompressLengthMismatch, not a truncation to paper over.
func readExactly(dst []byte, r io.Reader) error {
	n, err := io.ReadFull(r, dst)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return errdef.New(errdef.DecompressError, err)
	}
	if n < len(dst) {
		return lengthMismatch(n, len(dst))
	}

	var extra [1]byte
	if m, err := r.Read(extra[:]); m > 0 {
		return lengthMismatch(len(dst)+m, len(dst))
	} else if err != nil && err != io.EOF {
		return errdef.New(errdef.DecompressError, err)
	}

	return nil
}
