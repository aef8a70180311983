// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/p2m

package p2m

import (
	"encoding/binary"
	"fmt"
)

// ChunkID identifies one header (offset, length) pair. Values follow file order.
type ChunkID int

// Chunks in fixed file order.
const (
	ChunkMeta ChunkID = iota
	ChunkModPaths
	ChunkModTypes
	ChunkModSizeOffsets
	ChunkModData
	ChunkTexPaths
	ChunkTexSizeOffsets
	ChunkTexData
)

// chunkNames are stable chunk labels used in errors and listings.
var chunkNames = [ChunkCount]string{
	"meta",
	"mod-paths",
	"mod-types",
	"mod-sizeoffsets",
	"mod-data",
	"tex-paths",
	"tex-sizeoffsets",
	"tex-data",
}

// String returns chunk label.
func (id ChunkID) String() string {
	if id < 0 || int(id) >= ChunkCount {
		return fmt.Sprintf("chunk(%d)", int(id))
	}

	return chunkNames[id]
}

// Chunks returns all chunk IDs in file order.
func Chunks() []ChunkID {
	return []ChunkID{
		ChunkMeta,
		ChunkModPaths,
		ChunkModTypes,
		ChunkModSizeOffsets,
		ChunkModData,
		ChunkTexPaths,
		ChunkTexSizeOffsets,
		ChunkTexData,
	}
}

// Section is one absolute (offset, length) region.
type Section struct {
	Offset uint32 `json:"offset" yaml:"offset"`
	Length uint32 `json:"length" yaml:"length"`
}

// End returns the first byte after the section.
func (s Section) End() int64 {
	return int64(s.Offset) + int64(s.Length)
}

// Contains reports whether [offset, offset+size) lies inside the section.
func (s Section) Contains(offset uint32, size uint32) bool {
	start := int64(offset)
	return start >= int64(s.Offset) && start+int64(size) <= s.End()
}

// Header field offsets.
const (
	headerMagicOffset        = 0x00
	headerVersionOffset      = 0x04
	headerModCountOffset     = 0x08
	headerTextureCountOffset = 0x0C
	headerSectionsOffset     = 0x10
)

// Header is the fixed 0x50-byte record at the start of every archive.
type Header struct {
	Magic        [4]byte             `json:"magic" yaml:"magic"`
	Version      uint16              `json:"version" yaml:"version"`
	ModCount     uint32              `json:"mod_count" yaml:"mod_count"`
	TextureCount uint32              `json:"texture_count" yaml:"texture_count"`
	Sections     [ChunkCount]Section `json:"sections" yaml:"sections"`
}

// Section returns (offset, length) pair for chunk id.
func (h Header) Section(id ChunkID) Section {
	if id < 0 || int(id) >= ChunkCount {
		return Section{}
	}

	return h.Sections[id]
}

// MarshalBinary encodes header at fixed field offsets.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	h.put(buf)
	return buf, nil
}

// put writes header fields into buf, which must be at least HeaderSize long.
func (h *Header) put(buf []byte) {
	copy(buf[headerMagicOffset:headerMagicOffset+4], h.Magic[:])
	binary.LittleEndian.PutUint16(buf[headerVersionOffset:], h.Version)
	binary.LittleEndian.PutUint32(buf[headerModCountOffset:], h.ModCount)
	binary.LittleEndian.PutUint32(buf[headerTextureCountOffset:], h.TextureCount)
	for i, s := range h.Sections {
		pos := headerSectionsOffset + i*8
		binary.LittleEndian.PutUint32(buf[pos:pos+4], s.Offset)
		binary.LittleEndian.PutUint32(buf[pos+4:pos+8], s.Length)
	}
}

// UnmarshalBinary decodes header fields without validating them.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return &TruncatedDataError{Chunk: "header", Offset: 0, Length: HeaderSize, Size: int64(len(data))}
	}

	copy(h.Magic[:], data[headerMagicOffset:headerMagicOffset+4])
	h.Version = binary.LittleEndian.Uint16(data[headerVersionOffset:])
	h.ModCount = binary.LittleEndian.Uint32(data[headerModCountOffset:])
	h.TextureCount = binary.LittleEndian.Uint32(data[headerTextureCountOffset:])
	for i := range h.Sections {
		pos := headerSectionsOffset + i*8
		h.Sections[i] = Section{
			Offset: binary.LittleEndian.Uint32(data[pos : pos+4]),
			Length: binary.LittleEndian.Uint32(data[pos+4 : pos+8]),
		}
	}

	return nil
}

// ParseHeader decodes header from data and validates magic then version.
func ParseHeader(data []byte) (Header, error) {
	var h Header
	if err := h.UnmarshalBinary(data); err != nil {
		return Header{}, err
	}

	if err := h.validateIdentity(); err != nil {
		return Header{}, err
	}

	return h, nil
}

// validateIdentity checks magic first, then version.
func (h *Header) validateIdentity() error {
	if h.Magic != Magic {
		return &FormatError{
			Err:   ErrInvalidMagic,
			Field: "magic",
			Got:   fmt.Sprintf("% x", h.Magic[:]),
			Want:  fmt.Sprintf("% x", Magic[:]),
		}
	}

	if h.Version != Version {
		return &FormatError{
			Err:   ErrUnsupportedVersion,
			Field: "version",
			Got:   fmt.Sprint(h.Version),
			Want:  fmt.Sprint(Version),
		}
	}

	return nil
}

// validateBounds rejects sections that extend past size.
func (h *Header) validateBounds(size int64) error {
	for _, id := range Chunks() {
		s := h.Sections[id]
		if s.Length == 0 {
			continue
		}
		if s.End() > size {
			return &TruncatedDataError{
				Chunk:  id.String(),
				Offset: int64(s.Offset),
				Length: int64(s.Length),
				Size:   size,
			}
		}
	}

	return nil
}

// validateLayout requires contiguous fixed-order chunks with aligned lengths.
// The texture data chunk is packed without padding and is exempt from alignment.
func (h *Header) validateLayout() error {
	cursor := int64(HeaderSize)
	for _, id := range Chunks() {
		s := h.Sections[id]
		if int64(s.Offset) != cursor {
			return fmt.Errorf("%w: %s starts at %d, want %d", ErrInvalidLayout, id, s.Offset, cursor)
		}
		if id != ChunkTexData && s.Length%Alignment != 0 {
			return fmt.Errorf("%w: %s length %d is not %d-byte aligned", ErrInvalidLayout, id, s.Length, Alignment)
		}

		cursor += int64(s.Length)
	}

	return nil
}
