// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine wires the Payload Reader, Manifest Decoder, Extent
// Validator, Output Mapper, Decompression, Verification, and Worker
// Scheduler packages into a single extraction entry point.
package engine

import "github.com/flatcar-linux/otaextract/errdef"

// Kind identifies an extraction failure mode. It's an alias for
// errdef.Kind: every package in this module returns the same structured
// error type, and engine is simply where external callers are expected
// to import it from, per this package's documented error-handling idiom.
type Kind = errdef.Kind

// Error is an alias for errdef.Error, re-exported so engine callers
// don't need to import errdef directly for the common case.
type Error = errdef.Error

const (
	InputIO                  = errdef.InputIO
	MalformedHeader          = errdef.MalformedHeader
	ManifestDecode           = errdef.ManifestDecode
	Unsupported              = errdef.Unsupported
	BadBlockSize             = errdef.BadBlockSize
	OverlappingExtents       = errdef.OverlappingExtents
	OutOfBounds              = errdef.OutOfBounds
	OutputExists             = errdef.OutputExists
	OutputIO                 = errdef.OutputIO
	DecompressError          = errdef.DecompressError
	DecompressLengthMismatch = errdef.DecompressLengthMismatch
	HashMismatch             = errdef.HashMismatch
	StrictHashMissing        = errdef.StrictHashMissing
	AllZeroOutput            = errdef.AllZeroOutput
	Cancelled                = errdef.Cancelled
)

// KindOf reports the Kind of err, if it wraps an *Error anywhere in its
// chain.
func KindOf(err error) (Kind, bool) { return errdef.KindOf(err) }

// Is reports whether err wraps an *Error of the given Kind.
func Is(err error, kind Kind) bool { return errdef.Is(err, kind) }
