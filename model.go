// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/p2m

package p2m

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/woozymasta/pathrules"
)

// Binary layout constants.
const (
	// HeaderSize is the fixed header record size in bytes.
	HeaderSize = 0x50
	// Version is the layout revision written and accepted by this package.
	Version uint16 = 3
	// Alignment is the boundary every padded chunk and mod payload is rounded to.
	Alignment = 16
	// ChunkCount is the number of (offset, length) pairs in the header.
	ChunkCount = 8

	sizeOffsetRowSize = 8 // one (size, offset) table row
	typeCodeSize      = 2 // one encoded TypeCode
)

// Magic is the 4-byte archive signature "P2M\x11".
var Magic = [4]byte{0x50, 0x32, 0x4D, 0x11}

// Default tuning values.
const (
	DefaultWriteBuffer = 1024 * 1024
	DefaultModDir      = "MOD"
	DefaultTextureDir  = "textures"
)

// Metadata is the descriptive text block stored in the meta chunk.
type Metadata struct {
	Title       string `json:"title" yaml:"title"`
	Author      string `json:"author" yaml:"author"`
	Description string `json:"description" yaml:"description"`
}

// Input describes one source stream to be packed as a mod or texture file.
type Input struct {
	// Open returns raw source stream for this file.
	Open func() (io.ReadCloser, error) `json:"-" yaml:"-"`
	// Path is destination path inside the archive.
	Path string `json:"path" yaml:"path"`
	// Size is the exact stream length; the layout is planned from it.
	Size int64 `json:"size" yaml:"size"`
}

// BytesInput returns Input backed by an in-memory payload.
func BytesInput(path string, data []byte) Input {
	return Input{
		Path: path,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// FileInput returns Input backed by a filesystem file, sized by stat.
func FileInput(path string, fsPath string) (Input, error) {
	fi, err := os.Stat(fsPath)
	if err != nil {
		return Input{}, &IOError{Op: "stat", Path: fsPath, Err: err}
	}
	if !fi.Mode().IsRegular() {
		return Input{}, &IOError{Op: "stat", Path: fsPath, Err: errors.New("not a regular file")}
	}

	return Input{
		Path: path,
		Size: fi.Size(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(fsPath)
		},
	}, nil
}

// File is an in-memory (path, content) pair for Build.
type File struct {
	Path string
	Data []byte
}

// ModFileInfo describes one parsed mod file row.
type ModFileInfo struct {
	// Path is the stored path with "\" separators.
	Path string `json:"path" yaml:"path"`
	// Type is the stored type code.
	Type TypeCode `json:"type" yaml:"type"`
	// Size is the recorded size (padded to 16 bytes by default writers).
	Size uint32 `json:"size" yaml:"size"`
	// Offset is the absolute payload offset.
	Offset uint32 `json:"offset" yaml:"offset"`
}

// TextureFileInfo describes one parsed texture file row.
type TextureFileInfo struct {
	// Path is the stored path as written by the producer.
	Path string `json:"path" yaml:"path"`
	// Size is the raw payload size.
	Size uint32 `json:"size" yaml:"size"`
	// Offset is the absolute payload offset.
	Offset uint32 `json:"offset" yaml:"offset"`
}

// EntryKind tells mod files and texture files apart in callbacks.
type EntryKind string

// Entry kinds.
const (
	EntryKindMod     EntryKind = "mod"
	EntryKindTexture EntryKind = "texture"
)

// PackEntryProgress contains one completed payload write event.
type PackEntryProgress struct {
	// Kind is mod or texture.
	Kind EntryKind `json:"kind" yaml:"kind"`
	// Path is entry path written to archive.
	Path string `json:"path" yaml:"path"`
	// Index is position in its list.
	Index int `json:"index" yaml:"index"`
	// Offset is absolute payload offset.
	Offset uint32 `json:"offset" yaml:"offset"`
	// Size is the size recorded in the table.
	Size uint32 `json:"size" yaml:"size"`
	// Type is the mod type code; zero value for textures.
	Type TypeCode `json:"type,omitempty" yaml:"type,omitempty"`
}

// PackOptions configures pack behavior.
type PackOptions struct {
	// OnEntryDone is called after one payload is fully written.
	OnEntryDone func(entry PackEntryProgress) `json:"-" yaml:"-"`
	// Logger receives debug layout events; nil discards them.
	Logger *slog.Logger `json:"-" yaml:"-"`
	// Protected are extra path rules classified as TypeProtected.
	Protected []pathrules.Rule `json:"protected,omitempty" yaml:"protected,omitempty"`
	// WriterBufferSize is buffered writer size in bytes.
	WriterBufferSize int `json:"writer_buffer_size,omitempty" yaml:"writer_buffer_size,omitempty"`
	// RecordRawModSizes stores unpadded mod sizes in the table.
	// Data layout stays padded; the default matches the original authoring tool.
	RecordRawModSizes bool `json:"record_raw_mod_sizes,omitempty" yaml:"record_raw_mod_sizes,omitempty"`
}

// PackResult contains pack output statistics.
type PackResult struct {
	// Header is the header written at offset zero.
	Header Header `json:"header" yaml:"header"`
	// ModFiles is number of mod files written.
	ModFiles int `json:"mod_files" yaml:"mod_files"`
	// TextureFiles is number of texture files written.
	TextureFiles int `json:"texture_files" yaml:"texture_files"`
	// Size is total archive size in bytes.
	Size int64 `json:"size" yaml:"size"`
	// Duration is end-to-end pack duration.
	Duration time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// ReaderOptions configures reader validation.
type ReaderOptions struct {
	// Strict also requires contiguous fixed-order chunks with aligned lengths.
	Strict bool `json:"strict,omitempty" yaml:"strict,omitempty"`
}

// ExtractOptions configures Extract behavior.
type ExtractOptions struct {
	// OnEntryDone is called after one file is fully written to disk.
	OnEntryDone func(kind EntryKind, path string, written int64, outputPath string) `json:"-" yaml:"-"`
	// Logger receives per-file events; nil discards them.
	Logger *slog.Logger `json:"-" yaml:"-"`
	// FileMode controls output file creation policy.
	FileMode ExtractFileMode `json:"file_mode,omitempty" yaml:"file_mode,omitempty"`
	// ModDir is the mod file subdirectory under destination.
	ModDir string `json:"mod_dir,omitempty" yaml:"mod_dir,omitempty"`
	// TextureDir is the texture subdirectory under destination.
	TextureDir string `json:"texture_dir,omitempty" yaml:"texture_dir,omitempty"`
	// MaxWorkers is number of extraction workers (zero means GOMAXPROCS).
	MaxWorkers int `json:"max_workers,omitempty" yaml:"max_workers,omitempty"`
	// SkipMods disables mod file extraction.
	SkipMods bool `json:"skip_mods,omitempty" yaml:"skip_mods,omitempty"`
	// SkipTextures disables texture extraction.
	SkipTextures bool `json:"skip_textures,omitempty" yaml:"skip_textures,omitempty"`
	// TrimModPadding strips up to Alignment-1 trailing zero bytes from mod payloads.
	TrimModPadding bool `json:"trim_mod_padding,omitempty" yaml:"trim_mod_padding,omitempty"`
}

// ExtractFileMode controls output file open behavior during extraction.
type ExtractFileMode string

// Output file creation policies for extraction.
const (
	// ExtractFileModeAuto first tries create-only, then falls back to truncate for existing files.
	ExtractFileModeAuto ExtractFileMode = "auto"
	// ExtractFileModeTruncate opens existing files with truncate and creates missing files.
	ExtractFileModeTruncate ExtractFileMode = "truncate"
	// ExtractFileModeCreateOnly creates files only when absent and fails on existing files.
	ExtractFileModeCreateOnly ExtractFileMode = "create_only"
)

// EditOptions configures file-based archive edit flow.
type EditOptions struct {
	// PackOptions are applied when the archive is rewritten.
	PackOptions PackOptions `json:"pack_options,omitzero" yaml:"pack_options,omitempty"`
	// BackupKeep controls how many backup generations are kept after successful commit.
	// 0 means remove backup, 1 keeps only `<archive>.bak`, N keeps `.bak` + `.bak.1..N-1`.
	BackupKeep int `json:"backup_keep,omitempty" yaml:"backup_keep,omitempty"`
}

// applyDefaults fills zero-valued pack options with defaults.
func (opts *PackOptions) applyDefaults() {
	if opts.WriterBufferSize < 4096 {
		opts.WriterBufferSize = DefaultWriteBuffer
	}

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
}

// applyDefaults fills zero-valued extract options with defaults.
func (opts *ExtractOptions) applyDefaults() {
	if opts.FileMode == "" {
		opts.FileMode = ExtractFileModeAuto
	}

	if opts.ModDir == "" {
		opts.ModDir = DefaultModDir
	}

	if opts.TextureDir == "" {
		opts.TextureDir = DefaultTextureDir
	}

	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
}

// applyDefaults fills zero-valued edit options with defaults.
func (opts *EditOptions) applyDefaults() {
	opts.PackOptions.applyDefaults()

	if opts.BackupKeep < 0 {
		opts.BackupKeep = 0
	}
}
