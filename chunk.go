// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/p2m

package p2m

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// sizeOffsetRow is one (size, absolute offset) table row.
type sizeOffsetRow struct {
	size   uint32
	offset uint32
}

// EncodePathList encodes null-terminated paths in order and pads to Alignment.
// Empty list yields an empty chunk.
func EncodePathList(paths []string) []byte {
	var n uint64
	for _, p := range paths {
		n += uint64(len(p)) + 1
	}

	out := make([]byte, 0, alignUp(n))
	for _, p := range paths {
		out = append(out, p...)
		out = append(out, 0)
	}

	return padChunk(out)
}

// EncodeTypeList encodes 2-byte little-endian type codes in order and pads to Alignment.
func EncodeTypeList(types []TypeCode) []byte {
	out := make([]byte, alignUp(uint64(len(types))*typeCodeSize))
	for i, t := range types {
		binary.LittleEndian.PutUint16(out[i*typeCodeSize:], uint16(t))
	}

	return out
}

// EncodeMetadata encodes title, author, and description as null-terminated strings.
func EncodeMetadata(meta Metadata) ([]byte, error) {
	fields := []struct {
		name  string
		value string
	}{
		{"title", meta.Title},
		{"author", meta.Author},
		{"description", meta.Description},
	}

	out := make([]byte, 0, alignUp(uint64(len(meta.Title)+len(meta.Author)+len(meta.Description)+3)))
	for _, f := range fields {
		if strings.ContainsRune(f.value, 0) {
			return nil, fmt.Errorf("%w: %s contains NUL", ErrInvalidMetadata, f.name)
		}

		out = append(out, f.value...)
		out = append(out, 0)
	}

	return padChunk(out), nil
}

// encodeSizeOffsetTable encodes table rows and pads to Alignment.
func encodeSizeOffsetTable(rows []sizeOffsetRow) []byte {
	out := make([]byte, alignUp(uint64(len(rows))*sizeOffsetRowSize))
	for i, row := range rows {
		pos := i * sizeOffsetRowSize
		binary.LittleEndian.PutUint32(out[pos:pos+4], row.size)
		binary.LittleEndian.PutUint32(out[pos+4:pos+8], row.offset)
	}

	return out
}

// padChunk appends zero bytes up to the next Alignment boundary.
func padChunk(b []byte) []byte {
	pad := PaddingFor(uint64(len(b)), Alignment)
	for range pad {
		b = append(b, 0)
	}

	return b
}

// decodePathList reads count null-terminated strings from chunk start.
func decodePathList(chunk []byte, count int, name string) ([]string, error) {
	paths := make([]string, 0, count)
	rest := chunk
	for i := range count {
		idx := bytes.IndexByte(rest, 0)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s holds %d of %d paths", ErrTruncatedData, name, i, count)
		}
		// Writers never emit empty paths; an empty one is chunk padding.
		if idx == 0 {
			return nil, fmt.Errorf("%w: %s path %d is empty", ErrTruncatedData, name, i)
		}

		paths = append(paths, string(rest[:idx]))
		rest = rest[idx+1:]
	}

	return paths, nil
}

// decodeTypeList reads count type codes from chunk start.
func decodeTypeList(chunk []byte, count int) ([]TypeCode, error) {
	if uint64(len(chunk)) < uint64(count)*typeCodeSize {
		return nil, fmt.Errorf("%w: mod-types holds %d bytes for %d entries", ErrTruncatedData, len(chunk), count)
	}

	types := make([]TypeCode, count)
	for i := range types {
		types[i] = TypeCode(binary.LittleEndian.Uint16(chunk[i*typeCodeSize:]))
	}

	return types, nil
}

// decodeSizeOffsetTable reads count rows from chunk start.
func decodeSizeOffsetTable(chunk []byte, count int, name string) ([]sizeOffsetRow, error) {
	if uint64(len(chunk)) < uint64(count)*sizeOffsetRowSize {
		return nil, fmt.Errorf("%w: %s holds %d bytes for %d entries", ErrTruncatedData, name, len(chunk), count)
	}

	rows := make([]sizeOffsetRow, count)
	for i := range rows {
		pos := i * sizeOffsetRowSize
		rows[i] = sizeOffsetRow{
			size:   binary.LittleEndian.Uint32(chunk[pos : pos+4]),
			offset: binary.LittleEndian.Uint32(chunk[pos+4 : pos+8]),
		}
	}

	return rows, nil
}

// decodeMetadata reads up to three null-terminated strings.
// Missing trailing fields decode as empty strings, matching the loader.
func decodeMetadata(chunk []byte) Metadata {
	var fields [3]string
	rest := chunk
	for i := range fields {
		if len(rest) == 0 {
			break
		}

		idx := bytes.IndexByte(rest, 0)
		if idx < 0 {
			fields[i] = string(rest)
			break
		}

		fields[i] = string(rest[:idx])
		rest = rest[idx+1:]
	}

	return Metadata{Title: fields[0], Author: fields[1], Description: fields[2]}
}
