// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/p2m

package p2m

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestExtractLayout(t *testing.T) {
	t.Parallel()

	r, err := OpenBytes(buildTestArchive(t))
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}

	dst := t.TempDir()
	var (
		mu    sync.Mutex
		kinds = map[EntryKind]int{}
	)
	err = r.Extract(context.Background(), dst, ExtractOptions{
		MaxWorkers: 2,
		OnEntryDone: func(kind EntryKind, _ string, _ int64, _ string) {
			mu.Lock()
			kinds[kind]++
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	if kinds[EntryKindMod] != 2 || kinds[EntryKindTexture] != 2 {
		t.Fatalf("callbacks=%v", kinds)
	}

	level, err := os.ReadFile(filepath.Join(dst, "MOD", "DATA", "STAGE1", "LEVEL.WP2"))
	if err != nil {
		t.Fatalf("ReadFile level: %v", err)
	}
	if len(level) != 16 || !bytes.HasPrefix(level, []byte("0123456789")) {
		t.Fatalf("level=%q", level)
	}

	icon, err := os.ReadFile(filepath.Join(dst, "textures", "hud", "icon.dds"))
	if err != nil {
		t.Fatalf("ReadFile icon: %v", err)
	}
	if string(icon) != "dds" {
		t.Fatalf("icon=%q", icon)
	}
}

func TestExtractTrimModPadding(t *testing.T) {
	t.Parallel()

	r, err := OpenBytes(buildTestArchive(t))
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}

	dst := t.TempDir()
	err = r.Extract(context.Background(), dst, ExtractOptions{
		TrimModPadding: true,
		SkipTextures:   true,
		ModDir:         "out/mods",
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	level, err := os.ReadFile(filepath.Join(dst, "out", "mods", "DATA", "STAGE1", "LEVEL.WP2"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(level) != "0123456789" {
		t.Fatalf("level=%q, want trimmed payload", level)
	}

	readme, err := os.ReadFile(filepath.Join(dst, "out", "mods", "DATA", "README.TXT"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(readme) != 20 {
		t.Fatalf("readme len=%d, want 20", len(readme))
	}

	if _, err := os.Stat(filepath.Join(dst, "textures")); !os.IsNotExist(err) {
		t.Fatalf("textures must be skipped, stat err=%v", err)
	}
}

func TestExtractCreateOnlyFailsOnExisting(t *testing.T) {
	t.Parallel()

	r, err := OpenBytes(buildTestArchive(t))
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}

	dst := t.TempDir()
	if err := r.Extract(context.Background(), dst, ExtractOptions{}); err != nil {
		t.Fatalf("first Extract: %v", err)
	}
	if err := r.Extract(context.Background(), dst, ExtractOptions{}); err != nil {
		t.Fatalf("auto mode must overwrite: %v", err)
	}

	err = r.Extract(context.Background(), dst, ExtractOptions{FileMode: ExtractFileModeCreateOnly})
	if !errors.Is(err, os.ErrExist) {
		t.Fatalf("expected os.ErrExist, got %v", err)
	}
}

func TestExtractRejectsTraversal(t *testing.T) {
	t.Parallel()

	archive, err := Build(Metadata{}, nil, []File{{Path: "../escape.png", Data: []byte("x")}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	r, err := OpenBytes(archive)
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}

	dst := t.TempDir()
	err = r.Extract(context.Background(), dst, ExtractOptions{})
	if !errors.Is(err, ErrInvalidExtractPath) {
		t.Fatalf("expected ErrInvalidExtractPath, got %v", err)
	}

	if _, err := os.Stat(filepath.Join(filepath.Dir(dst), "escape.png")); !os.IsNotExist(err) {
		t.Fatalf("file escaped destination, stat err=%v", err)
	}
}

func TestNormalizeExtractEntryPath(t *testing.T) {
	t.Parallel()

	valid := map[string]string{
		`DATA\STAGE1\LEVEL.WP2`: "DATA/STAGE1/LEVEL.WP2",
		"./a//b.png":            "a/b.png",
		"a/../b.png":            "b.png",
	}
	for in, want := range valid {
		got, err := normalizeExtractEntryPath(in)
		if err != nil {
			t.Fatalf("normalizeExtractEntryPath(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("normalizeExtractEntryPath(%q)=%q, want %q", in, got, want)
		}
	}

	for _, in := range []string{"", "/abs", `\abs`, "C:/x", "c:x", "a/../../b", "a\x00b", "./."} {
		if _, err := normalizeExtractEntryPath(in); !errors.Is(err, ErrInvalidExtractPath) {
			t.Fatalf("normalizeExtractEntryPath(%q): expected ErrInvalidExtractPath, got %v", in, err)
		}
	}
}

func TestOpenExtractFileModes(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.bin")
	if err := os.WriteFile(path, []byte("previous content"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	for _, mode := range []ExtractFileMode{ExtractFileModeAuto, ExtractFileModeTruncate} {
		f, err := openExtractFile(path, mode)
		if err != nil {
			t.Fatalf("openExtractFile(%s): %v", mode, err)
		}
		_, _ = f.WriteString("new")
		_ = f.Close()

		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile: %v", err)
		}
		if string(got) != "new" {
			t.Fatalf("mode %s left %q, want truncated file", mode, got)
		}
	}

	if _, err := openExtractFile(path, "append"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestExtractCanceled(t *testing.T) {
	t.Parallel()

	r, err := OpenBytes(buildTestArchive(t))
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := r.Extract(ctx, t.TempDir(), ExtractOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
