// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/p2m

package p2m

import (
	"fmt"
	"io"
)

// nopCloser wraps a reader and provides a no-op close.
type nopCloser struct {
	io.Reader
}

// Close closes nopCloser (no-op).
func (nopCloser) Close() error {
	return nil
}

// findModByName resolves one mod row by case-insensitive path.
func (r *Reader) findModByName(name string) *ModFileInfo {
	key := entryPathKey(name)
	for i := range r.mods {
		if entryPathKey(r.mods[i].Path) == key {
			return &r.mods[i]
		}
	}

	return nil
}

// findTextureByName resolves one texture row by case-insensitive path.
func (r *Reader) findTextureByName(name string) *TextureFileInfo {
	key := entryPathKey(name)
	for i := range r.textures {
		if entryPathKey(r.textures[i].Path) == key {
			return &r.textures[i]
		}
	}

	return nil
}

// checkOpen rejects nil and closed readers.
func (r *Reader) checkOpen() error {
	if r == nil || r.ra == nil {
		return ErrNilReader
	}
	if r.isClosed() {
		return ErrClosed
	}

	return nil
}

// section returns a bounded payload view.
func (r *Reader) section(offset uint32, size uint32) io.ReadCloser {
	return nopCloser{Reader: io.NewSectionReader(r.ra, int64(offset), int64(size))}
}

// OpenModFile opens a mod file payload by path.
// Lookup ignores case and accepts either separator. The stream yields the
// recorded size, which includes alignment padding for padded tables.
func (r *Reader) OpenModFile(name string) (io.ReadCloser, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	info := r.findModByName(name)
	if info == nil {
		return nil, fmt.Errorf("%w: mod %s", ErrEntryNotFound, name)
	}

	return r.section(info.Offset, info.Size), nil
}

// OpenModFileInfo opens a mod file payload by already resolved row.
func (r *Reader) OpenModFileInfo(info ModFileInfo) (io.ReadCloser, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	data := r.header.Section(ChunkModData)
	if !data.Contains(info.Offset, info.Size) {
		return nil, fmt.Errorf("%w: mod %s", ErrInvalidEntryOffset, info.Path)
	}

	return r.section(info.Offset, info.Size), nil
}

// ReadModFile reads full content of the named mod file.
func (r *Reader) ReadModFile(name string) ([]byte, error) {
	rc, err := r.OpenModFile(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	return io.ReadAll(rc)
}

// OpenTextureFile opens a texture payload by path.
func (r *Reader) OpenTextureFile(name string) (io.ReadCloser, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	info := r.findTextureByName(name)
	if info == nil {
		return nil, fmt.Errorf("%w: texture %s", ErrEntryNotFound, name)
	}

	return r.section(info.Offset, info.Size), nil
}

// OpenTextureFileInfo opens a texture payload by already resolved row.
func (r *Reader) OpenTextureFileInfo(info TextureFileInfo) (io.ReadCloser, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	data := r.header.Section(ChunkTexData)
	if !data.Contains(info.Offset, info.Size) {
		return nil, fmt.Errorf("%w: texture %s", ErrInvalidEntryOffset, info.Path)
	}

	return r.section(info.Offset, info.Size), nil
}

// ReadTextureFile reads full content of the named texture.
func (r *Reader) ReadTextureFile(name string) ([]byte, error) {
	rc, err := r.OpenTextureFile(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	return io.ReadAll(rc)
}
