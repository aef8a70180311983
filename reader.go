// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/p2m

package p2m

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
)

// Reader provides read-only access to a parsed P2M archive.
type Reader struct {
	// ra is the underlying random-access reader used for payload reads.
	ra io.ReaderAt
	// file is set when Reader owns an *os.File opened via Open.
	file *os.File
	// header is the validated fixed header record.
	header Header
	// meta is the decoded metadata block.
	meta Metadata
	// mods stores parsed mod file rows in archive order.
	mods []ModFileInfo
	// textures stores parsed texture file rows in archive order.
	textures []TextureFileInfo
	// size is total source size in bytes.
	size int64
	// mu guards closed state and close operation.
	mu sync.Mutex
	// closed reports whether Close was already called.
	closed bool
}

// Open opens P2M file by path and parses header and tables.
func Open(path string) (*Reader, error) {
	return OpenWithOptions(path, ReaderOptions{})
}

// OpenWithOptions opens P2M file by path using explicit reader options.
func OpenWithOptions(path string, opts ReaderOptions) (*Reader, error) {
	f, size, err := openFileWithSize(path)
	if err != nil {
		return nil, err
	}

	r, err := NewReaderFromReaderAtWithOptions(f, size, opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	r.file = f
	return r, nil
}

// OpenBytes parses an in-memory archive. Payload views alias data.
func OpenBytes(data []byte) (*Reader, error) {
	return NewReaderFromReaderAt(bytes.NewReader(data), int64(len(data)))
}

// NewReaderFromReaderAt parses P2M from existing ReaderAt and known size.
func NewReaderFromReaderAt(ra io.ReaderAt, size int64) (*Reader, error) {
	return NewReaderFromReaderAtWithOptions(ra, size, ReaderOptions{})
}

// NewReaderFromReaderAtWithOptions parses P2M from existing ReaderAt and known size using explicit reader options.
func NewReaderFromReaderAtWithOptions(ra io.ReaderAt, size int64, opts ReaderOptions) (*Reader, error) {
	if ra == nil {
		return nil, ErrNilReader
	}

	r := &Reader{ra: ra, size: size}
	if err := r.parse(opts); err != nil {
		return nil, err
	}

	return r, nil
}

// Header returns the parsed header record.
func (r *Reader) Header() Header {
	if r == nil {
		return Header{}
	}

	return r.header
}

// Metadata returns title, author, and description.
func (r *Reader) Metadata() Metadata {
	if r == nil {
		return Metadata{}
	}

	return r.meta
}

// ModFiles returns a copy of parsed mod file rows.
func (r *Reader) ModFiles() []ModFileInfo {
	if r == nil {
		return nil
	}

	out := make([]ModFileInfo, len(r.mods))
	copy(out, r.mods)
	return out
}

// TextureFiles returns a copy of parsed texture file rows.
func (r *Reader) TextureFiles() []TextureFileInfo {
	if r == nil {
		return nil
	}

	out := make([]TextureFileInfo, len(r.textures))
	copy(out, r.textures)
	return out
}

// Size returns total source size in bytes.
func (r *Reader) Size() int64 {
	if r == nil {
		return 0
	}

	return r.size
}

// Close closes the underlying file if reader owns one.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true
	if r.file != nil {
		return r.file.Close()
	}

	return nil
}

// isClosed reports closed state under lock.
func (r *Reader) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.closed
}

// parse reads header first, then every table, and validates payload bounds.
func (r *Reader) parse(opts ReaderOptions) error {
	header, err := readHeaderFromReaderAt(r.ra, r.size)
	if err != nil {
		return err
	}
	r.header = header

	if err := header.validateBounds(r.size); err != nil {
		return err
	}

	if opts.Strict {
		if err := header.validateLayout(); err != nil {
			return err
		}
	}

	metaChunk, err := r.readSection(ChunkMeta)
	if err != nil {
		return err
	}
	r.meta = decodeMetadata(metaChunk)

	if err := r.parseMods(); err != nil {
		return err
	}

	return r.parseTextures()
}

// parseMods decodes mod paths, types, and size/offset rows.
func (r *Reader) parseMods() error {
	count, err := checkedCount(r.header.ModCount, r.header.Section(ChunkModPaths), "mod")
	if err != nil {
		return err
	}

	pathChunk, err := r.readSection(ChunkModPaths)
	if err != nil {
		return err
	}

	paths, err := decodePathList(pathChunk, count, ChunkModPaths.String())
	if err != nil {
		return err
	}

	typeChunk, err := r.readSection(ChunkModTypes)
	if err != nil {
		return err
	}

	types, err := decodeTypeList(typeChunk, count)
	if err != nil {
		return err
	}

	tableChunk, err := r.readSection(ChunkModSizeOffsets)
	if err != nil {
		return err
	}

	rows, err := decodeSizeOffsetTable(tableChunk, count, ChunkModSizeOffsets.String())
	if err != nil {
		return err
	}

	data := r.header.Section(ChunkModData)
	r.mods = make([]ModFileInfo, count)
	for i := range r.mods {
		if !data.Contains(rows[i].offset, rows[i].size) {
			return fmt.Errorf(
				"%w: mod %s [%d, %d) outside %s [%d, %d)",
				ErrInvalidEntryOffset, paths[i], rows[i].offset, int64(rows[i].offset)+int64(rows[i].size),
				ChunkModData, data.Offset, data.End(),
			)
		}

		r.mods[i] = ModFileInfo{
			Path:   paths[i],
			Type:   types[i],
			Size:   rows[i].size,
			Offset: rows[i].offset,
		}
	}

	return nil
}

// parseTextures decodes texture paths and size/offset rows.
func (r *Reader) parseTextures() error {
	count, err := checkedCount(r.header.TextureCount, r.header.Section(ChunkTexPaths), "texture")
	if err != nil {
		return err
	}

	pathChunk, err := r.readSection(ChunkTexPaths)
	if err != nil {
		return err
	}

	paths, err := decodePathList(pathChunk, count, ChunkTexPaths.String())
	if err != nil {
		return err
	}

	tableChunk, err := r.readSection(ChunkTexSizeOffsets)
	if err != nil {
		return err
	}

	rows, err := decodeSizeOffsetTable(tableChunk, count, ChunkTexSizeOffsets.String())
	if err != nil {
		return err
	}

	data := r.header.Section(ChunkTexData)
	r.textures = make([]TextureFileInfo, count)
	for i := range r.textures {
		if !data.Contains(rows[i].offset, rows[i].size) {
			return fmt.Errorf(
				"%w: texture %s [%d, %d) outside %s [%d, %d)",
				ErrInvalidEntryOffset, paths[i], rows[i].offset, int64(rows[i].offset)+int64(rows[i].size),
				ChunkTexData, data.Offset, data.End(),
			)
		}

		r.textures[i] = TextureFileInfo{
			Path:   paths[i],
			Size:   rows[i].size,
			Offset: rows[i].offset,
		}
	}

	return nil
}

// checkedCount bounds a declared entry count by its path chunk, since every
// path takes at least one byte. This keeps allocations proportional to the source.
func checkedCount(declared uint32, paths Section, kind string) (int, error) {
	if uint64(declared) > uint64(paths.Length) {
		return 0, fmt.Errorf(
			"%w: %d %s paths declared in %d-byte chunk",
			ErrTruncatedData, declared, kind, paths.Length,
		)
	}

	return int(declared), nil
}

// readSection reads one whole chunk into memory. Only table chunks use it.
func (r *Reader) readSection(id ChunkID) ([]byte, error) {
	s := r.header.Section(id)
	if s.Length == 0 {
		return nil, nil
	}

	buf := make([]byte, s.Length)
	if _, err := r.ra.ReadAt(buf, int64(s.Offset)); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, &TruncatedDataError{
				Chunk:  id.String(),
				Offset: int64(s.Offset),
				Length: int64(s.Length),
				Size:   r.size,
			}
		}

		return nil, &IOError{Op: "read", Path: id.String(), Err: err}
	}

	return buf, nil
}

// readHeaderFromReaderAt reads and validates the fixed header.
func readHeaderFromReaderAt(ra io.ReaderAt, size int64) (Header, error) {
	if size < HeaderSize {
		return Header{}, &TruncatedDataError{Chunk: "header", Offset: 0, Length: HeaderSize, Size: size}
	}

	buf := make([]byte, HeaderSize)
	if _, err := ra.ReadAt(buf, 0); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Header{}, &TruncatedDataError{Chunk: "header", Offset: 0, Length: HeaderSize, Size: size}
		}

		return Header{}, &IOError{Op: "read", Path: "header", Err: err}
	}

	return ParseHeader(buf)
}

// openFileWithSize opens a file and returns a handle plus current size.
func openFileWithSize(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, &IOError{Op: "open", Path: path, Err: err}
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, &IOError{Op: "stat", Path: path, Err: err}
	}

	return f, fi.Size(), nil
}
