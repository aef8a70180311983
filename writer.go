// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/p2m

package p2m

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	// packScratchPool reuses writer and copy buffers between Pack calls.
	packScratchPool = sync.Pool{
		New: func() any {
			return &packScratch{w: bufio.NewWriterSize(io.Discard, DefaultWriteBuffer)}
		},
	}
	// zeroPad is the source for alignment padding.
	zeroPad [Alignment]byte
)

const (
	// packCopyBufferSize is per-pack temporary buffer used by streaming payload copy.
	packCopyBufferSize = 64 * 1024
)

// Pack writes a P2M archive to out from metadata and ordered mod and texture inputs.
// Input order is preserved. Sizes are taken from Input.Size and every stream
// must deliver exactly that many bytes.
func Pack(
	ctx context.Context,
	out io.Writer,
	meta Metadata,
	mods []Input,
	textures []Input,
	opts PackOptions,
) (*PackResult, error) {
	if out == nil {
		return nil, ErrNilWriter
	}

	opts.applyDefaults()

	modEntries, err := prepareModEntries(mods)
	if err != nil {
		return nil, err
	}

	textureEntries, err := prepareTextureEntries(textures)
	if err != nil {
		return nil, err
	}

	return writeArchive(ctx, out, meta, modEntries, textureEntries, opts)
}

// PackFile writes a P2M archive to outPath. The archive is written to a
// temporary file in the same directory and renamed into place only after a
// successful write, so a failed pack never leaves a partial archive behind.
func PackFile(
	ctx context.Context,
	outPath string,
	meta Metadata,
	mods []Input,
	textures []Input,
	opts PackOptions,
) (*PackResult, error) {
	return writeFileAtomic(outPath, func(f *os.File) (*PackResult, error) {
		return Pack(ctx, f, meta, mods, textures, opts)
	})
}

// Build packs in-memory files and returns the archive bytes.
func Build(meta Metadata, mods []File, textures []File) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := Pack(context.Background(), &buf, meta, filesToInputs(mods), filesToInputs(textures), PackOptions{}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// filesToInputs wraps in-memory files as inputs.
func filesToInputs(files []File) []Input {
	inputs := make([]Input, len(files))
	for i, f := range files {
		inputs[i] = BytesInput(f.Path, f.Data)
	}

	return inputs
}

// writeFileAtomic runs write against a temp file and renames it over outPath on success.
func writeFileAtomic(outPath string, write func(f *os.File) (*PackResult, error)) (*PackResult, error) {
	dir := filepath.Dir(outPath)
	f, err := os.CreateTemp(dir, "."+filepath.Base(outPath)+".*.tmp")
	if err != nil {
		return nil, &IOError{Op: "create", Path: outPath, Err: err}
	}

	tmpPath := f.Name()
	committed := false
	defer func() {
		if f != nil {
			_ = f.Close()
		}
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	res, err := write(f)
	if err != nil {
		return nil, err
	}

	if err := f.Sync(); err != nil {
		return nil, &IOError{Op: "sync", Path: outPath, Err: err}
	}

	if err := f.Close(); err != nil {
		f = nil
		return nil, &IOError{Op: "close", Path: outPath, Err: err}
	}
	f = nil

	if err := os.Rename(tmpPath, outPath); err != nil {
		return nil, &IOError{Op: "rename", Path: outPath, Err: err}
	}
	committed = true

	return res, nil
}

// packScratch is the per-call buffer set of one archive write.
type packScratch struct {
	w   *bufio.Writer
	buf [packCopyBufferSize]byte
}

// getPackScratch takes pooled buffers and binds the writer to out.
func getPackScratch(out io.Writer, size int) *packScratch {
	s := packScratchPool.Get().(*packScratch) //nolint:forcetypeassert // pool contains only *packScratch
	if s.w.Size() != size {
		s.w = bufio.NewWriterSize(out, size)
	} else {
		s.w.Reset(out)
	}

	return s
}

// release detaches the writer and returns buffers to the pool.
func (s *packScratch) release() {
	s.w.Reset(io.Discard)
	packScratchPool.Put(s)
}

// archiveWriter counts bytes and keeps the first destination write error.
type archiveWriter struct {
	w   io.Writer
	err error
	n   int64
}

// Write forwards to the destination and records failures.
func (aw *archiveWriter) Write(p []byte) (int, error) {
	n, err := aw.w.Write(p)
	aw.n += int64(n)
	if err != nil && aw.err == nil {
		aw.err = err
	}

	return n, err
}

// writeArchive is the shared writer core for Pack and editor commit flows.
func writeArchive(
	ctx context.Context,
	out io.Writer,
	meta Metadata,
	mods []packEntry,
	textures []packEntry,
	opts PackOptions,
) (*PackResult, error) {
	startedAt := time.Now()

	if ctx == nil {
		ctx = context.Background()
	}

	opts.applyDefaults()

	classifier, err := NewClassifier(opts.Protected)
	if err != nil {
		return nil, err
	}

	plan, err := planLayout(meta, mods, textures, planOptions{
		classifier:        classifier,
		logger:            opts.Logger,
		recordRawModSizes: opts.RecordRawModSizes,
	})
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scratch := getPackScratch(out, opts.WriterBufferSize)
	defer scratch.release()

	w := scratch.w
	aw := &archiveWriter{w: w}

	var header [HeaderSize]byte
	plan.header.put(header[:])

	prefix := [][]byte{header[:], plan.meta, plan.modPaths, plan.modTypes, plan.modSizeOffsets()}
	for _, b := range prefix {
		if _, err := aw.Write(b); err != nil {
			return nil, &IOError{Op: "write", Path: "archive", Err: err}
		}
	}

	copyBuf := scratch.buf[:]

	if err := writePlannedPayloads(ctx, aw, plan.mods, EntryKindMod, opts, copyBuf); err != nil {
		return nil, err
	}

	for _, b := range [][]byte{plan.texPaths, plan.texSizeOffsets()} {
		if _, err := aw.Write(b); err != nil {
			return nil, &IOError{Op: "write", Path: "archive", Err: err}
		}
	}

	if err := writePlannedPayloads(ctx, aw, plan.textures, EntryKindTexture, opts, copyBuf); err != nil {
		return nil, err
	}

	if err := w.Flush(); err != nil {
		return nil, &IOError{Op: "flush", Path: "archive", Err: err}
	}

	if aw.n != plan.size {
		return nil, fmt.Errorf("%w: wrote %d bytes, planned %d", ErrSizeMismatch, aw.n, plan.size)
	}

	opts.Logger.Debug("archive written",
		slog.Int64("size", aw.n),
		slog.Duration("duration", time.Since(startedAt)),
	)

	return &PackResult{
		Header:       plan.header,
		ModFiles:     len(plan.mods),
		TextureFiles: len(plan.textures),
		Size:         aw.n,
		Duration:     time.Since(startedAt),
	}, nil
}

// writePlannedPayloads streams one data chunk in plan order.
func writePlannedPayloads(
	ctx context.Context,
	aw *archiveWriter,
	files []plannedFile,
	kind EntryKind,
	opts PackOptions,
	copyBuf []byte,
) error {
	for i := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		file := &files[i]
		if err := writePlannedPayload(aw, file, copyBuf); err != nil {
			return err
		}

		if opts.OnEntryDone != nil {
			progress := PackEntryProgress{
				Kind:   kind,
				Path:   file.entry.path,
				Index:  i,
				Offset: file.row.offset,
				Size:   file.row.size,
			}
			if kind == EntryKindMod {
				progress.Type = file.typ
			}

			opts.OnEntryDone(progress)
		}
	}

	return nil
}

// writePlannedPayload copies one input and writes its zero padding.
func writePlannedPayload(aw *archiveWriter, file *plannedFile, copyBuf []byte) error {
	entry := file.entry
	if entry.open == nil {
		return &IOError{Op: "open", Path: entry.path, Err: errors.New("Open is nil")}
	}

	rc, err := entry.open()
	if err != nil {
		return &IOError{Op: "open", Path: entry.path, Err: err}
	}

	written, copyErr := copyPayloadBounded(aw, rc, entry.size, copyBuf)
	closeErr := rc.Close()
	if copyErr != nil {
		if aw.err != nil {
			return &IOError{Op: "write", Path: "archive", Err: aw.err}
		}

		return &IOError{Op: "read", Path: entry.path, Err: copyErr}
	}
	if written != entry.size {
		return &IOError{
			Op:   "read",
			Path: entry.path,
			Err:  fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, written, entry.size),
		}
	}
	if closeErr != nil {
		return &IOError{Op: "close", Path: entry.path, Err: closeErr}
	}

	pad := int64(file.stored) - written
	if pad > 0 {
		if _, err := aw.Write(zeroPad[:pad]); err != nil {
			return &IOError{Op: "write", Path: "archive", Err: err}
		}
	}

	return nil
}

// copyPayloadBounded copies up to limit bytes and fails when src holds more.
// A short stream is not an error here; callers compare the returned count.
func copyPayloadBounded(dst io.Writer, src io.Reader, limit int64, buf []byte) (int64, error) {
	if limit < 0 {
		return 0, ErrSizeOverflow
	}

	written, err := io.CopyBuffer(dst, io.LimitReader(src, limit), buf)
	if err != nil || written < limit {
		return written, err
	}

	var extra [1]byte
	n, err := io.ReadAtLeast(src, extra[:], 1)
	if n > 0 {
		return written, fmt.Errorf("%w: stream is longer than %d bytes", ErrSizeMismatch, limit)
	}
	if err != nil && err != io.EOF {
		return written, err
	}

	return written, nil
}
