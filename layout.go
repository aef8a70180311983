// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/p2m

package p2m

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
)

// packEntry is one payload source with a declared size.
type packEntry struct {
	open      func() (io.ReadCloser, error)
	path      string
	size      int64
	typ       TypeCode
	typeFixed bool
}

// plannedFile is one payload with its final table row and data placement.
type plannedFile struct {
	entry packEntry
	// stored is the number of bytes the payload occupies inside its data chunk.
	stored uint32
	row    sizeOffsetRow
	typ    TypeCode
}

// layout is the complete archive plan: every length and offset is final
// before any byte is written.
type layout struct {
	header   Header
	meta     []byte
	modPaths []byte
	modTypes []byte
	texPaths []byte
	mods     []plannedFile
	textures []plannedFile
	size     int64
}

// planOptions carries layout switches derived from PackOptions.
type planOptions struct {
	classifier        *Classifier
	logger            *slog.Logger
	recordRawModSizes bool
}

// modSizeOffsets returns encoded mod size/offset table.
func (l *layout) modSizeOffsets() []byte {
	return encodeSizeOffsetTable(plannedRows(l.mods))
}

// texSizeOffsets returns encoded texture size/offset table.
func (l *layout) texSizeOffsets() []byte {
	return encodeSizeOffsetTable(plannedRows(l.textures))
}

// plannedRows collects table rows in order.
func plannedRows(files []plannedFile) []sizeOffsetRow {
	rows := make([]sizeOffsetRow, len(files))
	for i := range files {
		rows[i] = files[i].row
	}

	return rows
}

// prepareModEntries normalizes mod inputs into pack entries.
func prepareModEntries(inputs []Input) ([]packEntry, error) {
	entries := make([]packEntry, 0, len(inputs))
	for _, in := range inputs {
		path, err := normalizeModEntryPath(in.Path)
		if err != nil {
			return nil, err
		}

		entries = append(entries, packEntry{path: path, size: in.Size, open: in.Open})
	}

	if err := validateUniqueEntryPaths(entries, "mod"); err != nil {
		return nil, err
	}

	return entries, nil
}

// prepareTextureEntries validates texture inputs; their paths are stored verbatim.
func prepareTextureEntries(inputs []Input) ([]packEntry, error) {
	entries := make([]packEntry, 0, len(inputs))
	for _, in := range inputs {
		path, err := validateTextureEntryPath(in.Path)
		if err != nil {
			return nil, err
		}

		entries = append(entries, packEntry{path: path, size: in.Size, open: in.Open})
	}

	if err := validateUniqueEntryPaths(entries, "texture"); err != nil {
		return nil, err
	}

	return entries, nil
}

// validateUniqueEntryPaths ensures there are no duplicate logical entry paths.
func validateUniqueEntryPaths(entries []packEntry, kind string) error {
	seen := make(map[string]string, len(entries))
	for _, e := range entries {
		key := strings.ToLower(e.path)
		if existing, ok := seen[key]; ok {
			return fmt.Errorf("%w: %s %q conflicts with %q", ErrDuplicateEntryPath, kind, e.path, existing)
		}

		seen[key] = e.path
	}

	return nil
}

// planLayout computes every chunk and payload placement from declared sizes.
func planLayout(meta Metadata, mods []packEntry, textures []packEntry, opts planOptions) (*layout, error) {
	if opts.logger == nil {
		opts.logger = slog.New(slog.DiscardHandler)
	}

	metaChunk, err := EncodeMetadata(meta)
	if err != nil {
		return nil, err
	}

	l := &layout{
		meta:     metaChunk,
		mods:     make([]plannedFile, len(mods)),
		textures: make([]plannedFile, len(textures)),
	}

	modPaths := make([]string, len(mods))
	modTypes := make([]TypeCode, len(mods))
	var modDataLen uint64
	for i, e := range mods {
		if e.size < 0 || e.size > math.MaxUint32 {
			return nil, fmt.Errorf("%w: mod %s size %d", ErrSizeOverflow, e.path, e.size)
		}

		typ := e.typ
		if !e.typeFixed {
			typ = opts.classifier.Classify(e.path)
		}

		padded := alignUp(uint64(e.size))
		if padded > math.MaxUint32 {
			return nil, fmt.Errorf("%w: mod %s padded size %d", ErrSizeOverflow, e.path, padded)
		}

		recorded := padded
		if opts.recordRawModSizes {
			recorded = uint64(e.size)
		}

		modPaths[i] = e.path
		modTypes[i] = typ
		l.mods[i] = plannedFile{
			entry:  e,
			typ:    typ,
			stored: uint32(padded),
			row:    sizeOffsetRow{size: uint32(recorded), offset: uint32(modDataLen)},
		}
		modDataLen += padded
	}

	texPaths := make([]string, len(textures))
	var texDataLen uint64
	for i, e := range textures {
		if e.size < 0 || e.size > math.MaxUint32 {
			return nil, fmt.Errorf("%w: texture %s size %d", ErrSizeOverflow, e.path, e.size)
		}

		texPaths[i] = e.path
		l.textures[i] = plannedFile{
			entry:  e,
			stored: uint32(e.size),
			row:    sizeOffsetRow{size: uint32(e.size), offset: uint32(texDataLen)},
		}
		texDataLen += uint64(e.size)
	}

	l.modPaths = EncodePathList(modPaths)
	l.modTypes = EncodeTypeList(modTypes)
	l.texPaths = EncodePathList(texPaths)

	lengths := [ChunkCount]uint64{
		ChunkMeta:           uint64(len(l.meta)),
		ChunkModPaths:       uint64(len(l.modPaths)),
		ChunkModTypes:       uint64(len(l.modTypes)),
		ChunkModSizeOffsets: alignUp(uint64(len(mods)) * sizeOffsetRowSize),
		ChunkModData:        modDataLen,
		ChunkTexPaths:       uint64(len(l.texPaths)),
		ChunkTexSizeOffsets: alignUp(uint64(len(textures)) * sizeOffsetRowSize),
		ChunkTexData:        texDataLen,
	}

	sections, total, err := assignSectionOffsets(lengths)
	if err != nil {
		return nil, err
	}

	modStart := sections[ChunkModData].Offset
	for i := range l.mods {
		l.mods[i].row.offset += modStart
	}

	texStart := sections[ChunkTexData].Offset
	for i := range l.textures {
		l.textures[i].row.offset += texStart
	}

	l.header = Header{
		Magic:        Magic,
		Version:      Version,
		ModCount:     uint32(len(mods)),     //nolint:gosec // bounded by total size check
		TextureCount: uint32(len(textures)), //nolint:gosec // bounded by total size check
		Sections:     sections,
	}
	l.size = total

	opts.logger.Debug("planned archive layout",
		slog.Int("mod_files", len(mods)),
		slog.Int("texture_files", len(textures)),
		slog.Int64("size", total),
		slog.Any("mod_data", sections[ChunkModData]),
		slog.Any("tex_data", sections[ChunkTexData]),
	)

	return l, nil
}

// assignSectionOffsets folds chunk lengths into absolute sections starting after the header.
func assignSectionOffsets(lengths [ChunkCount]uint64) ([ChunkCount]Section, int64, error) {
	var sections [ChunkCount]Section
	cursor := uint64(HeaderSize)
	for _, id := range Chunks() {
		end := cursor + lengths[id]
		if end > math.MaxUint32 {
			return sections, 0, fmt.Errorf("%w: %s ends at %d", ErrSizeOverflow, id, end)
		}

		sections[id] = Section{Offset: uint32(cursor), Length: uint32(lengths[id])}
		cursor = end
	}

	return sections, int64(cursor), nil
}
