// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/p2m

package p2m

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/woozymasta/pathrules"
)

// writeTestArchive writes buildTestArchive output to a temp file.
func writeTestArchive(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "mod.p2m")
	if err := os.WriteFile(path, buildTestArchive(t), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	return path
}

func TestEditorCommit_AddReplaceDelete(t *testing.T) {
	t.Parallel()

	path := writeTestArchive(t)

	editor, err := OpenEditor(path, EditOptions{BackupKeep: 0})
	if err != nil {
		t.Fatalf("OpenEditor: %v", err)
	}

	if err := editor.SetMetadata(Metadata{Title: "New", Author: "Other"}); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	if err := editor.ReplaceMod(BytesInput("DATA/README.TXT", []byte("new readme"))); err != nil {
		t.Fatalf("ReplaceMod: %v", err)
	}
	if err := editor.AddMod(BytesInput("DATA/NEW.OLM", []byte("olm"))); err != nil {
		t.Fatalf("AddMod: %v", err)
	}
	if err := editor.DeleteModDir("data/stage1"); err != nil {
		t.Fatalf("DeleteModDir: %v", err)
	}
	if err := editor.DeleteTexture("SKIN.PNG"); err != nil {
		t.Fatalf("DeleteTexture: %v", err)
	}
	if err := editor.AddTexture(BytesInput("new.png", []byte("png"))); err != nil {
		t.Fatalf("AddTexture: %v", err)
	}

	res, err := editor.Commit(context.Background())
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if res.ModFiles != 2 || res.TextureFiles != 2 {
		t.Fatalf("PackResult=%+v", res)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = r.Close() }()

	if r.Metadata() != (Metadata{Title: "New", Author: "Other"}) {
		t.Fatalf("Metadata=%+v", r.Metadata())
	}

	mods := r.ModFiles()
	if mods[0].Path != `DATA\README.TXT` || mods[1].Path != `DATA\NEW.OLM` {
		t.Fatalf("mod order=%+v", mods)
	}
	if mods[1].Type != TypeProtected {
		t.Fatalf("NEW.OLM type=%v, want protected", mods[1].Type)
	}

	readme, err := r.ReadModFile(`DATA\README.TXT`)
	if err != nil {
		t.Fatalf("ReadModFile: %v", err)
	}
	if string(readme[:10]) != "new readme" {
		t.Fatalf("readme=%q", readme)
	}

	textures := r.TextureFiles()
	if textures[0].Path != `hud\icon.dds` || textures[1].Path != "new.png" {
		t.Fatalf("texture order=%+v", textures)
	}

	icon, err := r.ReadTextureFile(`hud\icon.dds`)
	if err != nil {
		t.Fatalf("ReadTextureFile: %v", err)
	}
	if string(icon) != "dds" {
		t.Fatalf("kept texture=%q, want dds", icon)
	}

	if _, err := os.Stat(path + ".bak"); !os.IsNotExist(err) {
		t.Fatalf("backup must be removed with BackupKeep=0, stat err=%v", err)
	}
}

func TestEditorCommit_KeepsSourceTypeCodes(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "mod.p2m")
	_, err := PackFile(context.Background(), path, Metadata{}, []Input{
		BytesInput("DATA/SOUND.BIN", []byte("snd")),
	}, nil, PackOptions{
		Protected: []pathrules.Rule{{Action: pathrules.ActionInclude, Pattern: "*.bin"}},
	})
	if err != nil {
		t.Fatalf("PackFile: %v", err)
	}

	editor, err := OpenEditor(path, EditOptions{})
	if err != nil {
		t.Fatalf("OpenEditor: %v", err)
	}
	if err := editor.AddTexture(BytesInput("a.png", []byte("a"))); err != nil {
		t.Fatalf("AddTexture: %v", err)
	}
	if _, err := editor.Commit(context.Background()); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = r.Close() }()

	if got := r.ModFiles()[0].Type; got != TypeProtected {
		t.Fatalf("source type=%v, want protected kept from source", got)
	}
}

func TestEditorCommit_RollbackOnFailure(t *testing.T) {
	t.Parallel()

	path := writeTestArchive(t)
	original, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	editor, err := OpenEditor(path, EditOptions{BackupKeep: 1})
	if err != nil {
		t.Fatalf("OpenEditor: %v", err)
	}

	openErr := errors.New("source gone")
	if err := editor.AddMod(Input{
		Path: "DATA/BROKEN.BIN",
		Size: 4,
		Open: func() (io.ReadCloser, error) { return nil, openErr },
	}); err != nil {
		t.Fatalf("AddMod: %v", err)
	}

	if _, err := editor.Commit(context.Background()); !errors.Is(err, openErr) {
		t.Fatalf("expected open error, got %v", err)
	}

	restored, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(restored) != string(original) {
		t.Fatal("archive must be restored after failed commit")
	}

	if _, err := os.Stat(path + ".bak"); !os.IsNotExist(err) {
		t.Fatalf("backup must be moved back, stat err=%v", err)
	}
}

func TestEditorCommit_Conflicts(t *testing.T) {
	t.Parallel()

	t.Run("add existing", func(t *testing.T) {
		t.Parallel()

		editor, err := OpenEditor(writeTestArchive(t), EditOptions{})
		if err != nil {
			t.Fatalf("OpenEditor: %v", err)
		}
		if err := editor.AddTexture(BytesInput("skin.png", []byte("x"))); err != nil {
			t.Fatalf("AddTexture: %v", err)
		}
		if _, err := editor.Commit(context.Background()); !errors.Is(err, ErrDuplicateEntryPath) {
			t.Fatalf("expected ErrDuplicateEntryPath, got %v", err)
		}
	})

	t.Run("replace missing", func(t *testing.T) {
		t.Parallel()

		editor, err := OpenEditor(writeTestArchive(t), EditOptions{})
		if err != nil {
			t.Fatalf("OpenEditor: %v", err)
		}
		if err := editor.ReplaceMod(BytesInput("DATA/NOPE.WP2", []byte("x"))); err != nil {
			t.Fatalf("ReplaceMod: %v", err)
		}
		if _, err := editor.Commit(context.Background()); !errors.Is(err, ErrEntryNotFound) {
			t.Fatalf("expected ErrEntryNotFound, got %v", err)
		}
	})

	t.Run("bad metadata", func(t *testing.T) {
		t.Parallel()

		editor, err := OpenEditor(writeTestArchive(t), EditOptions{})
		if err != nil {
			t.Fatalf("OpenEditor: %v", err)
		}
		if err := editor.SetMetadata(Metadata{Title: "a\x00"}); !errors.Is(err, ErrInvalidMetadata) {
			t.Fatalf("expected ErrInvalidMetadata, got %v", err)
		}
	})
}

func TestPrepareBackupSlotRotates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	backup := filepath.Join(dir, "mod.p2m.bak")
	for name, content := range map[string]string{
		backup:        "gen0",
		backup + ".1": "gen1",
		backup + ".2": "gen2",
	} {
		if err := os.WriteFile(name, []byte(content), 0o600); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}

	if err := prepareBackupSlot(backup, 3); err != nil {
		t.Fatalf("prepareBackupSlot: %v", err)
	}

	if _, err := os.Stat(backup); !os.IsNotExist(err) {
		t.Fatalf("slot must be free, stat err=%v", err)
	}
	for name, want := range map[string]string{backup + ".1": "gen0", backup + ".2": "gen1"} {
		got, err := os.ReadFile(name)
		if err != nil {
			t.Fatalf("ReadFile %s: %v", name, err)
		}
		if string(got) != want {
			t.Fatalf("%s=%q, want %q", name, got, want)
		}
	}
}

func TestPrepareBackupSlotSingleGeneration(t *testing.T) {
	t.Parallel()

	for _, keep := range []int{0, 1} {
		backup := filepath.Join(t.TempDir(), "mod.p2m.bak")
		if err := os.WriteFile(backup, []byte("old"), 0o600); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}

		if err := prepareBackupSlot(backup, keep); err != nil {
			t.Fatalf("prepareBackupSlot(%d): %v", keep, err)
		}
		if _, err := os.Stat(backup); !os.IsNotExist(err) {
			t.Fatalf("keep=%d: slot must be free, stat err=%v", keep, err)
		}
		if _, err := os.Stat(backup + ".1"); !os.IsNotExist(err) {
			t.Fatalf("keep=%d: no older generation expected, stat err=%v", keep, err)
		}
	}
}

func TestOpenEditorRejectsEmptyPath(t *testing.T) {
	t.Parallel()

	if _, err := OpenEditor("  ", EditOptions{}); !errors.Is(err, ErrInvalidEntryPath) {
		t.Fatalf("expected ErrInvalidEntryPath, got %v", err)
	}
}
