// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/p2m

package p2m

import (
	"errors"
	"fmt"
)

// Sentinel errors for P2M operations. Use errors.Is in callers.
var (
	// ErrFormat means the source is not a P2M archive of a supported layout.
	ErrFormat = errors.New("invalid P2M archive format")
	// ErrInvalidMagic means the header does not start with the P2M signature.
	ErrInvalidMagic = errors.New("bad P2M magic")
	// ErrUnsupportedVersion means the header declares an unknown layout revision.
	ErrUnsupportedVersion = errors.New("unsupported P2M version")
	// ErrTruncatedData means a declared region extends past the end of the source.
	ErrTruncatedData = errors.New("truncated P2M data")
	// ErrIO means a source file or destination could not be read or written.
	ErrIO = errors.New("P2M I/O failure")
	// ErrNilReader means the reader is nil.
	ErrNilReader = errors.New("reader is nil")
	// ErrNilWriter means the writer is nil.
	ErrNilWriter = errors.New("writer is nil")
	// ErrClosed means the reader or resource is already closed.
	ErrClosed = errors.New("reader or resource already closed")
	// ErrEntryNotFound means the entry is not found.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrSizeOverflow means a size or offset does not fit the 32-bit header fields.
	ErrSizeOverflow = errors.New("size exceeds uint32 P2M limit")
	// ErrSizeMismatch means an input stream length differs from its declared size.
	ErrSizeMismatch = errors.New("input size differs from declared size")
	// ErrInvalidEntryPath means an entry path is empty or invalid after normalization.
	ErrInvalidEntryPath = errors.New("invalid entry path")
	// ErrDuplicateEntryPath means two inputs resolve to the same path (case-insensitive).
	ErrDuplicateEntryPath = errors.New("duplicate entry path")
	// ErrInvalidMetadata means a metadata string cannot be encoded.
	ErrInvalidMetadata = errors.New("invalid metadata")
	// ErrInvalidEntryOffset means a size/offset row points outside its data chunk.
	ErrInvalidEntryOffset = errors.New("invalid entry offset")
	// ErrInvalidLayout means chunks are not laid out in fixed contiguous order.
	ErrInvalidLayout = errors.New("invalid chunk layout")
	// ErrInvalidExtractPath means archive entry path is invalid for extraction destination.
	ErrInvalidExtractPath = errors.New("invalid extract path")
	// ErrExtractPathOutsideRoot means resolved extraction path escapes destination root.
	ErrExtractPathOutsideRoot = errors.New("extract path escapes destination root")
)

// FormatError reports a header field that does not identify a readable archive.
type FormatError struct {
	// Err is ErrInvalidMagic or ErrUnsupportedVersion.
	Err error
	// Field names the offending header field.
	Field string
	// Got is the value found in the source.
	Got string
	// Want is the value this package understands.
	Want string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%v: %s is %s, want %s", e.Err, e.Field, e.Got, e.Want)
}

// Unwrap returns the specific cause.
func (e *FormatError) Unwrap() error { return e.Err }

// Is matches ErrFormat in addition to the wrapped cause.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// TruncatedDataError reports a region that would read past the end of the source.
type TruncatedDataError struct {
	// Chunk names the region (a chunk name or "header").
	Chunk string
	// Offset is the declared absolute start.
	Offset int64
	// Length is the declared length.
	Length int64
	// Size is the total source size.
	Size int64
}

func (e *TruncatedDataError) Error() string {
	return fmt.Sprintf(
		"%v: %s [%d, %d) exceeds source size %d",
		ErrTruncatedData, e.Chunk, e.Offset, e.Offset+e.Length, e.Size,
	)
}

// Is matches ErrTruncatedData.
func (e *TruncatedDataError) Is(target error) bool { return target == ErrTruncatedData }

// IOError reports a failed read of a source file or write of the destination.
type IOError struct {
	// Err is the underlying cause.
	Err error
	// Op is the failed operation ("open", "read", "write", ...).
	Op string
	// Path is the entry path or filesystem path involved.
	Path string
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *IOError) Unwrap() error { return e.Err }

// Is matches ErrIO.
func (e *IOError) Is(target error) bool { return target == ErrIO }
