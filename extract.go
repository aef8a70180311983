// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/p2m

package p2m

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

// extractWorkItem stores one selected payload with prepared output paths.
type extractWorkItem struct {
	kind    EntryKind
	path    string
	outPath string
	offset  uint32
	size    uint32
}

// Extract writes mod files under dstDir/ModDir and textures under
// dstDir/TextureDir. Extraction is parallelized by MaxWorkers; the first
// failure cancels remaining work and is returned.
func (r *Reader) Extract(ctx context.Context, dstDir string, opts ExtractOptions) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	opts.applyDefaults()

	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	dstRootAbs, err := filepath.Abs(dstDir)
	if err != nil {
		return &IOError{Op: "resolve", Path: dstDir, Err: err}
	}

	workItems, err := r.prepareExtractWorkItems(dstRootAbs, opts)
	if err != nil {
		return err
	}

	if len(workItems) == 0 {
		return nil
	}

	if err := prepareExtractDirs(workItems); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, task := range workItems {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			return r.extractPreparedEntry(gctx, task, opts)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	return ctx.Err()
}

// prepareExtractWorkItems validates every selected row and resolves output paths.
func (r *Reader) prepareExtractWorkItems(dstRootAbs string, opts ExtractOptions) ([]extractWorkItem, error) {
	workItems := make([]extractWorkItem, 0, len(r.mods)+len(r.textures))

	if !opts.SkipMods {
		root, err := extractSubRoot(dstRootAbs, opts.ModDir)
		if err != nil {
			return nil, err
		}

		for _, m := range r.mods {
			outPath, err := resolveExtractPath(root, m.Path)
			if err != nil {
				return nil, fmt.Errorf("mod %s: %w", m.Path, err)
			}

			workItems = append(workItems, extractWorkItem{
				kind:    EntryKindMod,
				path:    m.Path,
				outPath: outPath,
				offset:  m.Offset,
				size:    m.Size,
			})
		}
	}

	if !opts.SkipTextures {
		root, err := extractSubRoot(dstRootAbs, opts.TextureDir)
		if err != nil {
			return nil, err
		}

		for _, t := range r.textures {
			outPath, err := resolveExtractPath(root, t.Path)
			if err != nil {
				return nil, fmt.Errorf("texture %s: %w", t.Path, err)
			}

			workItems = append(workItems, extractWorkItem{
				kind:    EntryKindTexture,
				path:    t.Path,
				outPath: outPath,
				offset:  t.Offset,
				size:    t.Size,
			})
		}
	}

	return workItems, nil
}

// extractSubRoot resolves a relative output subdirectory under the destination root.
func extractSubRoot(dstRootAbs string, sub string) (string, error) {
	normalized, err := normalizeExtractEntryPath(sub)
	if err != nil {
		return "", fmt.Errorf("output subdirectory %q: %w", sub, err)
	}

	return filepath.Join(dstRootAbs, filepath.FromSlash(normalized)), nil
}

// resolveExtractPath maps an archive path to a host path that stays inside root.
func resolveExtractPath(root string, entryPath string) (string, error) {
	normalized, err := normalizeExtractEntryPath(entryPath)
	if err != nil {
		return "", err
	}

	outPath := filepath.Join(root, filepath.FromSlash(normalized))
	rel, err := filepath.Rel(root, outPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrExtractPathOutsideRoot, entryPath)
	}

	return outPath, nil
}

// prepareExtractDirs creates all unique parent directories needed by work items.
func prepareExtractDirs(workItems []extractWorkItem) error {
	seen := make(map[string]struct{}, len(workItems))
	for _, task := range workItems {
		dirPath := filepath.Dir(task.outPath)
		if _, exists := seen[dirPath]; exists {
			continue
		}

		seen[dirPath] = struct{}{}
		if err := os.MkdirAll(dirPath, 0o750); err != nil {
			return &IOError{Op: "mkdir", Path: dirPath, Err: err}
		}
	}

	return nil
}

// extractPreparedEntry writes one prepared work item to disk.
func (r *Reader) extractPreparedEntry(ctx context.Context, task extractWorkItem, opts ExtractOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	size := int64(task.size)
	if task.kind == EntryKindMod && opts.TrimModPadding {
		trimmed, err := r.trailingPadding(task.offset, task.size)
		if err != nil {
			return &IOError{Op: "read", Path: task.path, Err: err}
		}

		size -= trimmed
	}

	file, err := openExtractFile(task.outPath, opts.FileMode)
	if err != nil {
		return &IOError{Op: "open", Path: task.outPath, Err: err}
	}

	src := io.NewSectionReader(r.ra, int64(task.offset), size)
	written, copyErr := io.Copy(file, src)
	closeErr := file.Close()
	if copyErr != nil {
		return &IOError{Op: "write", Path: task.outPath, Err: copyErr}
	}
	if closeErr != nil {
		return &IOError{Op: "close", Path: task.outPath, Err: closeErr}
	}

	opts.Logger.Debug("extracted file",
		slog.String("kind", string(task.kind)),
		slog.String("path", task.path),
		slog.Int64("size", written),
		slog.String("output", task.outPath),
	)

	if opts.OnEntryDone != nil {
		opts.OnEntryDone(task.kind, task.path, written, task.outPath)
	}

	return nil
}

// trailingPadding counts trailing zero bytes in the last alignment block of a
// padded payload. Payloads whose size is not aligned carry no padding.
func (r *Reader) trailingPadding(offset uint32, size uint32) (int64, error) {
	if size == 0 || size%Alignment != 0 {
		return 0, nil
	}

	var tail [Alignment - 1]byte
	start := int64(offset) + int64(size) - int64(len(tail))
	if _, err := r.ra.ReadAt(tail[:], start); err != nil && err != io.EOF {
		return 0, err
	}

	var n int64
	for i := len(tail) - 1; i >= 0 && tail[i] == 0; i-- {
		n++
	}

	return n, nil
}

// openExtractFile opens output path according to selected extract file mode.
// Auto and truncate both replace existing files.
func openExtractFile(name string, mode ExtractFileMode) (*os.File, error) {
	flags := os.O_WRONLY | os.O_CREATE
	switch mode {
	case ExtractFileModeAuto, ExtractFileModeTruncate:
		flags |= os.O_TRUNC
	case ExtractFileModeCreateOnly:
		flags |= os.O_EXCL
	default:
		return nil, fmt.Errorf("unknown extract file mode %q", mode)
	}

	return os.OpenFile(name, flags, 0o600)
}

// normalizeExtractEntryPath converts a stored path to a clean relative
// slash path. Absolute, drive-prefixed and escaping paths are rejected.
func normalizeExtractEntryPath(entryPath string) (string, error) {
	raw := strings.ReplaceAll(strings.TrimSpace(entryPath), `\`, "/")
	if raw == "" || strings.ContainsRune(raw, 0) || strings.HasPrefix(raw, "/") || hasDrivePrefix(raw) {
		return "", ErrInvalidExtractPath
	}

	clean := path.Clean(raw)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidExtractPath
	}

	return clean, nil
}

// hasDrivePrefix reports a Windows volume prefix such as C:.
func hasDrivePrefix(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}

	c := p[0] | 0x20
	return c >= 'a' && c <= 'z'
}
