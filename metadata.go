// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/p2m

package p2m

import (
	"io"
	"strings"
)

// ReadHeader opens a P2M file and returns only its validated header.
func ReadHeader(path string) (Header, error) {
	f, size, err := openFileWithSize(path)
	if err != nil {
		return Header{}, err
	}
	defer func() { _ = f.Close() }()

	h, err := readHeaderFromReaderAt(f, size)
	if err != nil {
		return Header{}, err
	}

	if err := h.validateBounds(size); err != nil {
		return Header{}, err
	}

	return h, nil
}

// ReadMetadata opens a P2M file and returns title, author, and description
// without parsing file tables.
func ReadMetadata(path string) (Metadata, error) {
	f, size, err := openFileWithSize(path)
	if err != nil {
		return Metadata{}, err
	}
	defer func() { _ = f.Close() }()

	return ReadMetadataFromReaderAt(f, size)
}

// ReadMetadataFromReaderAt reads only the meta chunk from a random-access source.
func ReadMetadataFromReaderAt(ra io.ReaderAt, size int64) (Metadata, error) {
	if ra == nil {
		return Metadata{}, ErrNilReader
	}

	h, err := readHeaderFromReaderAt(ra, size)
	if err != nil {
		return Metadata{}, err
	}

	r := &Reader{ra: ra, size: size, header: h}
	meta := h.Section(ChunkMeta)
	if meta.Length > 0 && meta.End() > size {
		return Metadata{}, &TruncatedDataError{
			Chunk:  ChunkMeta.String(),
			Offset: int64(meta.Offset),
			Length: int64(meta.Length),
			Size:   size,
		}
	}

	chunk, err := r.readSection(ChunkMeta)
	if err != nil {
		return Metadata{}, err
	}

	return decodeMetadata(chunk), nil
}

// IsArchive reports whether path starts with a valid P2M header.
// Read failures and unknown layouts both report false.
func IsArchive(path string) bool {
	_, err := ReadHeader(path)
	return err == nil
}

// ArchiveFileName derives an archive file name from a title.
// Characters that are unsafe in file names become "-".
func ArchiveFileName(title string) string {
	var b strings.Builder
	b.Grow(len(title) + len(".p2m"))
	for _, r := range strings.TrimSpace(title) {
		switch {
		case r < 0x20 || r == 0x7F:
			b.WriteByte('-')
		case strings.ContainsRune(`/\?%*:|"<>`, r):
			b.WriteByte('-')
		default:
			b.WriteRune(r)
		}
	}

	name := b.String()
	if name == "" {
		name = "archive"
	}

	return name + ".p2m"
}
