// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/p2m

package p2m

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Editor accumulates archive edit operations and applies them on Commit.
type Editor struct {
	meta *Metadata
	path string
	ops  []editOperation
	opts EditOptions
}

// editOperation stores one staged editor operation.
type editOperation struct {
	inputs []Input
	paths  []string
	list   EntryKind
	kind   editOperationKind
}

// editOperationKind identifies staged edit action type.
type editOperationKind uint8

const (
	// editOperationAdd appends new entries and fails on existing path.
	editOperationAdd editOperationKind = iota + 1
	// editOperationReplace rewrites existing entries in place.
	editOperationReplace
	// editOperationDelete removes exact paths.
	editOperationDelete
	// editOperationDeleteDir removes entries by directory prefix.
	editOperationDeleteDir
)

// editEntry is one entry of the edited list, either kept from the source
// archive or supplied by a staged input.
type editEntry struct {
	key   string
	entry packEntry
}

// editList is an ordered entry list with case-insensitive path index.
type editList struct {
	index   map[string]int
	entries []editEntry
}

// OpenEditor creates staged editor for file-based archive rewrite workflow.
func OpenEditor(path string, opts EditOptions) (*Editor, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return nil, ErrInvalidEntryPath
	}

	opts.applyDefaults()

	return &Editor{
		path: trimmedPath,
		opts: opts,
		ops:  make([]editOperation, 0, 8),
	}, nil
}

// SetMetadata replaces title, author, and description on commit.
func (e *Editor) SetMetadata(meta Metadata) error {
	if e == nil {
		return ErrNilReader
	}

	if _, err := EncodeMetadata(meta); err != nil {
		return err
	}

	e.meta = &meta
	return nil
}

// AddMod schedules adding mod files and fails on path collision during commit.
func (e *Editor) AddMod(inputs ...Input) error {
	return e.stageInputs(EntryKindMod, editOperationAdd, inputs)
}

// ReplaceMod schedules replacing existing mod files.
func (e *Editor) ReplaceMod(inputs ...Input) error {
	return e.stageInputs(EntryKindMod, editOperationReplace, inputs)
}

// DeleteMod schedules exact-path mod file removal.
func (e *Editor) DeleteMod(paths ...string) error {
	return e.stagePaths(EntryKindMod, editOperationDelete, paths)
}

// DeleteModDir schedules removal of every mod file under the given directories.
func (e *Editor) DeleteModDir(prefixes ...string) error {
	return e.stagePaths(EntryKindMod, editOperationDeleteDir, prefixes)
}

// AddTexture schedules adding textures and fails on path collision during commit.
func (e *Editor) AddTexture(inputs ...Input) error {
	return e.stageInputs(EntryKindTexture, editOperationAdd, inputs)
}

// ReplaceTexture schedules replacing existing textures.
func (e *Editor) ReplaceTexture(inputs ...Input) error {
	return e.stageInputs(EntryKindTexture, editOperationReplace, inputs)
}

// DeleteTexture schedules exact-path texture removal.
func (e *Editor) DeleteTexture(paths ...string) error {
	return e.stagePaths(EntryKindTexture, editOperationDelete, paths)
}

// stageInputs validates inputs for one list and appends an operation.
func (e *Editor) stageInputs(list EntryKind, kind editOperationKind, inputs []Input) error {
	if e == nil {
		return ErrNilReader
	}

	if len(inputs) == 0 {
		return nil
	}

	normalized := make([]Input, 0, len(inputs))
	for _, in := range inputs {
		p, err := normalizeEditorPath(list, in.Path)
		if err != nil {
			return err
		}

		in.Path = p
		normalized = append(normalized, in)
	}

	e.ops = append(e.ops, editOperation{list: list, kind: kind, inputs: normalized})
	return nil
}

// stagePaths validates paths for one list and appends an operation.
func (e *Editor) stagePaths(list EntryKind, kind editOperationKind, paths []string) error {
	if e == nil {
		return ErrNilReader
	}

	if len(paths) == 0 {
		return nil
	}

	normalized := make([]string, 0, len(paths))
	for _, raw := range paths {
		p, err := normalizeEditorPath(list, raw)
		if err != nil {
			return err
		}

		normalized = append(normalized, p)
	}

	e.ops = append(e.ops, editOperation{list: list, kind: kind, paths: normalized})
	return nil
}

// normalizeEditorPath applies the stored path form of the target list.
func normalizeEditorPath(list EntryKind, raw string) (string, error) {
	if list == EntryKindMod {
		return normalizeModEntryPath(raw)
	}

	return validateTextureEntryPath(raw)
}

// Commit applies all staged operations in one rewrite transaction.
// The original archive is kept as backup while the new one is written and
// restored if anything fails.
func (e *Editor) Commit(ctx context.Context) (*PackResult, error) {
	if e == nil {
		return nil, ErrNilReader
	}

	if ctx == nil {
		ctx = context.Background()
	}

	backupPath := e.path + ".bak"
	if err := prepareBackupSlot(backupPath, e.opts.BackupKeep); err != nil {
		return nil, err
	}

	if err := os.Rename(e.path, backupPath); err != nil {
		return nil, &IOError{Op: "backup", Path: e.path, Err: err}
	}

	res, err := e.commitFromBackup(ctx, backupPath)
	if err != nil {
		rollbackErr := rollbackFromBackup(e.path, backupPath)
		if rollbackErr != nil {
			return nil, fmt.Errorf("%w (rollback failed: %w)", err, rollbackErr)
		}

		return nil, err
	}

	if e.opts.BackupKeep == 0 {
		if err := removeIfExists(backupPath); err != nil {
			return nil, fmt.Errorf("remove backup: %w", err)
		}
	}

	e.opts.PackOptions.Logger.Debug("archive edited",
		slog.String("path", e.path),
		slog.Int("operations", len(e.ops)),
		slog.Int("mod_files", res.ModFiles),
		slog.Int("texture_files", res.TextureFiles),
	)

	return res, nil
}

// commitFromBackup writes edited archive from backup source.
func (e *Editor) commitFromBackup(ctx context.Context, backupPath string) (*PackResult, error) {
	src, err := Open(backupPath)
	if err != nil {
		return nil, fmt.Errorf("parse backup: %w", err)
	}
	defer func() { _ = src.Close() }()

	mods, textures, err := buildEditPlan(src, e.ops)
	if err != nil {
		return nil, err
	}

	meta := src.Metadata()
	if e.meta != nil {
		meta = *e.meta
	}

	return writeFileAtomic(e.path, func(f *os.File) (*PackResult, error) {
		return writeArchive(ctx, f, meta, mods, textures, e.opts.PackOptions)
	})
}

// buildEditPlan applies staged operations to source lists and returns final entries.
func buildEditPlan(src *Reader, ops []editOperation) ([]packEntry, []packEntry, error) {
	mods := newEditList(len(src.mods))
	for _, m := range src.mods {
		entry := packEntry{
			path:      m.Path,
			size:      int64(m.Size),
			typ:       m.Type,
			typeFixed: true,
			open:      src.sourceOpener(m.Offset, m.Size),
		}
		if err := mods.add(entry); err != nil {
			return nil, nil, fmt.Errorf("source archive: %w", err)
		}
	}

	textures := newEditList(len(src.textures))
	for _, t := range src.textures {
		entry := packEntry{
			path: t.Path,
			size: int64(t.Size),
			open: src.sourceOpener(t.Offset, t.Size),
		}
		if err := textures.add(entry); err != nil {
			return nil, nil, fmt.Errorf("source archive: %w", err)
		}
	}

	for _, op := range ops {
		list := mods
		if op.list == EntryKindTexture {
			list = textures
		}

		switch op.kind {
		case editOperationAdd:
			for _, in := range op.inputs {
				if err := list.add(inputEntry(in)); err != nil {
					return nil, nil, err
				}
			}
		case editOperationReplace:
			for _, in := range op.inputs {
				if err := list.replace(inputEntry(in)); err != nil {
					return nil, nil, err
				}
			}
		case editOperationDelete:
			for _, p := range op.paths {
				list.remove(func(key string) bool { return key == entryPathKey(p) })
			}
		case editOperationDeleteDir:
			for _, p := range op.paths {
				prefix := entryPathKey(p)
				list.remove(func(key string) bool { return key == prefix || strings.HasPrefix(key, prefix+"/") })
			}
		default:
			return nil, nil, fmt.Errorf("unknown edit operation kind: %d", op.kind)
		}
	}

	return mods.packEntries(), textures.packEntries(), nil
}

// sourceOpener returns a payload opener backed by the source archive.
func (r *Reader) sourceOpener(offset uint32, size uint32) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return r.section(offset, size), nil
	}
}

// inputEntry converts a staged input into a pack entry.
func inputEntry(in Input) packEntry {
	return packEntry{path: in.Path, size: in.Size, open: in.Open}
}

// newEditList creates an empty ordered list.
func newEditList(capacity int) *editList {
	return &editList{
		index:   make(map[string]int, capacity),
		entries: make([]editEntry, 0, capacity),
	}
}

// add appends an entry and fails on existing path.
func (l *editList) add(entry packEntry) error {
	key := entryPathKey(entry.path)
	if _, exists := l.index[key]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateEntryPath, entry.path)
	}

	l.index[key] = len(l.entries)
	l.entries = append(l.entries, editEntry{key: key, entry: entry})
	return nil
}

// replace swaps an existing entry in place and fails on missing path.
func (l *editList) replace(entry packEntry) error {
	key := entryPathKey(entry.path)
	i, exists := l.index[key]
	if !exists {
		return fmt.Errorf("%w: %q", ErrEntryNotFound, entry.path)
	}

	l.entries[i] = editEntry{key: key, entry: entry}
	return nil
}

// remove drops every entry whose key matches and rebuilds the index.
func (l *editList) remove(match func(key string) bool) {
	kept := l.entries[:0]
	for _, item := range l.entries {
		if !match(item.key) {
			kept = append(kept, item)
		}
	}

	l.entries = kept
	clear(l.index)
	for i, item := range l.entries {
		l.index[item.key] = i
	}
}

// packEntries returns entries in list order.
func (l *editList) packEntries() []packEntry {
	out := make([]packEntry, len(l.entries))
	for i, item := range l.entries {
		out[i] = item.entry
	}

	return out
}

// backupName returns the file of one backup generation; generation 0 is <archive>.bak.
func backupName(backupPath string, gen int) string {
	if gen == 0 {
		return backupPath
	}

	return backupPath + "." + strconv.Itoa(gen)
}

// prepareBackupSlot frees <archive>.bak and shifts older generations so that
// at most keep remain after the commit.
func prepareBackupSlot(backupPath string, keep int) error {
	keep = max(keep, 1)
	if err := removeIfExists(backupName(backupPath, keep-1)); err != nil {
		return err
	}

	for gen := keep - 1; gen > 0; gen-- {
		from := backupName(backupPath, gen-1)
		if err := os.Rename(from, backupName(backupPath, gen)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return &IOError{Op: "rename", Path: from, Err: err}
		}
	}

	return nil
}

// removeIfExists removes file when present.
func removeIfExists(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) || err == nil {
		return nil
	}

	return &IOError{Op: "remove", Path: path, Err: err}
}

// rollbackFromBackup restores backup on failed commit.
func rollbackFromBackup(path string, backupPath string) error {
	if err := os.Rename(backupPath, path); err != nil {
		return &IOError{Op: "restore", Path: path, Err: err}
	}

	return nil
}
