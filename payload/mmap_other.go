// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux && !darwin

package payload

import (
	"os"

	"github.com/flatcar-linux/otaextract/errdef"
)

// Open falls back to reading the whole payload into memory on platforms
// without a memory-map backing wired up (anything but linux/darwin).
// Native memory mapping for those platforms is a straightforward
// addition (following the same split containerd-containerd uses between
// spec_unix.go and spec_windows.go) but isn't exercised by this engine's
// test suite, so it's left unimplemented rather than guessed at.
func Open(path string) (Region, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errdef.New(errdef.InputIO, err)
	}
	return OpenBuffer(data), nil
}
