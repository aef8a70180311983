// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/p2m

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/woozymasta/p2m"
)

// runApp executes the CLI with args and returns captured stdout.
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr

	err := app.Run(t.Context(), append([]string{"p2m", "--log-level", "error"}, args...))
	return stdout.String(), err
}

func writeFile(t *testing.T, path string, data string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
}

// packFixture packs a small mod tree and returns the archive path.
func packFixture(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "mods", "DATA", "LEVEL.WP2"), "0123456789")
	writeFile(t, filepath.Join(dir, "mods", "DATA", "README.TXT"), "hello")
	writeFile(t, filepath.Join(dir, "tex", "skin.png"), "12345")
	writeFile(t, filepath.Join(dir, "tex", "notes.txt"), "skipped")

	out := filepath.Join(dir, "mod.p2m")
	stdout, err := runApp(t, "pack",
		"--title", "Test Mod",
		"--author", "tester",
		"--mods", filepath.Join(dir, "mods"),
		"--textures", filepath.Join(dir, "tex"),
		"--out", out,
	)
	require.NoError(t, err)
	assert.Equal(t, out, strings.TrimSpace(stdout))

	return out
}

func TestPackInspectJSON(t *testing.T) {
	t.Parallel()

	archive := packFixture(t)

	stdout, err := runApp(t, "inspect", "--format", "json", "--digests", archive)
	require.NoError(t, err)

	var view archiveView
	require.NoError(t, json.Unmarshal([]byte(stdout), &view))
	assert.Equal(t, "Test Mod", view.Metadata.Title)
	require.Len(t, view.Mods, 2)
	assert.Equal(t, `DATA\LEVEL.WP2`, view.Mods[0].Path)
	assert.Equal(t, "protected", view.Mods[0].Type)
	assert.Equal(t, uint32(16), view.Mods[0].Size)
	assert.Equal(t, "standard", view.Mods[1].Type)
	require.Len(t, view.Textures, 1)
	assert.Equal(t, "skin.png", view.Textures[0].Path)
	assert.Equal(t, digest.FromBytes([]byte("12345")), view.Textures[0].Digest)
	assert.Len(t, view.Chunks, p2m.ChunkCount)
}

func TestInspectYAMLAndText(t *testing.T) {
	t.Parallel()

	archive := packFixture(t)

	stdout, err := runApp(t, "inspect", "--format", "yaml", archive)
	require.NoError(t, err)

	var view archiveView
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &view))
	assert.Equal(t, "tester", view.Metadata.Author)

	stdout, err = runApp(t, "inspect", "--strict", archive)
	require.NoError(t, err)
	assert.Contains(t, stdout, "mod-sizeoffsets")
	assert.Contains(t, stdout, "skin.png")

	_, err = runApp(t, "inspect", "--format", "xml", archive)
	require.Error(t, err)
}

func TestMeta(t *testing.T) {
	t.Parallel()

	archive := packFixture(t)

	stdout, err := runApp(t, "meta", archive)
	require.NoError(t, err)
	assert.Equal(t, "Title: Test Mod\nAuthor: tester\nDescription: \n", stdout)
}

func TestExtract(t *testing.T) {
	t.Parallel()

	archive := packFixture(t)
	out := t.TempDir()

	_, err := runApp(t, "extract", "--out", out, "--trim-padding", "--workers", "2", archive)
	require.NoError(t, err)

	level, err := os.ReadFile(filepath.Join(out, "MOD", "DATA", "LEVEL.WP2"))
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(level))

	skin, err := os.ReadFile(filepath.Join(out, "textures", "skin.png"))
	require.NoError(t, err)
	assert.Equal(t, "12345", string(skin))

	_, err = os.Stat(filepath.Join(out, "textures", "notes.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestEdit(t *testing.T) {
	t.Parallel()

	archive := packFixture(t)
	src := filepath.Join(t.TempDir(), "new.dds")
	writeFile(t, src, "dds-bytes")

	_, err := runApp(t, "edit",
		"--title", "Renamed",
		"--delete-mod", `data/readme.txt`,
		"--add-texture", src+"=hud/new.dds",
		"--backup-keep", "0",
		archive,
	)
	require.NoError(t, err)

	r, err := p2m.Open(archive)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	assert.Equal(t, "Renamed", r.Metadata().Title)
	assert.Equal(t, "tester", r.Metadata().Author)
	require.Len(t, r.ModFiles(), 1)
	require.Len(t, r.TextureFiles(), 2)

	data, err := r.ReadTextureFile("hud/new.dds")
	require.NoError(t, err)
	assert.Equal(t, "dds-bytes", string(data))

	_, err = os.Stat(archive + ".bak")
	assert.True(t, os.IsNotExist(err))
}

func TestPackFromManifest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "mods", "DATA", "A.BIN"), "a")
	writeFile(t, filepath.Join(dir, "mod.yaml"), "title: From Manifest\nmods: mods\nprotect: [\"*.bin\"]\noutput: out.p2m\n")

	_, err := runApp(t, "pack", "--manifest", filepath.Join(dir, "mod.yaml"), "--author", "flag")
	require.NoError(t, err)

	r, err := p2m.Open(filepath.Join(dir, "out.p2m"))
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	assert.Equal(t, p2m.Metadata{Title: "From Manifest", Author: "flag"}, r.Metadata())
	require.Len(t, r.ModFiles(), 1)
	assert.Equal(t, p2m.TypeProtected, r.ModFiles()[0].Type)
}

func TestArchiveArgRequired(t *testing.T) {
	t.Parallel()

	_, err := runApp(t, "meta")
	require.Error(t, err)
}
