// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/p2m

package collect

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/pathrules"

	"github.com/woozymasta/p2m"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()

	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
}

func inputPaths(inputs []p2m.Input) []string {
	out := make([]string, len(inputs))
	for i, in := range inputs {
		out[i] = in.Path
	}
	return out
}

func TestModsUsesBackslashPaths(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"DATA/STAGE1/LEVEL.WP2": "0123456789",
		"DATA/B.TXT":            "b",
	})

	mods, err := Mods(root, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{`DATA\B.TXT`, `DATA\STAGE1\LEVEL.WP2`}, inputPaths(mods))
	assert.Equal(t, int64(10), mods[1].Size)

	rc, err := mods[1].Open()
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(data))
}

func TestModsWarnings(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"LOOSE.BIN":      "x",
		"DATA/STAGE.INT": "y",
	})

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	mods, err := Mods(root, logger)
	require.NoError(t, err)
	assert.Len(t, mods, 2)
	assert.Contains(t, buf.String(), "not inside a folder")
	assert.Contains(t, buf.String(), "INT archive")
}

func TestModsWarnLongPaths(t *testing.T) {
	t.Parallel()

	fits := "DATA/" + strings.Repeat("A", MaxLoaderModPath-len("DATA/"))
	long := "DATA/" + strings.Repeat("B", MaxLoaderModPath-len("DATA/")+1)

	root := t.TempDir()
	writeTree(t, root, map[string]string{fits: "a", long: "b"})

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	mods, err := Mods(root, logger)
	require.NoError(t, err)
	require.Len(t, mods, 2)
	assert.Len(t, mods[0].Path, MaxLoaderModPath)

	out := buf.String()
	assert.Equal(t, 1, strings.Count(out, "longer than the loader reads"))
	assert.Contains(t, out, strings.Repeat("B", 8))
	assert.Contains(t, out, "length=50")
}

func TestTexturesDefaultRules(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"skin.png":     "12345",
		"sub/hud.DDS":  "dds",
		"readme.txt":   "skip me",
		"sub/note.jpg": "skip me too",
	})

	textures, skipped, err := Textures(root, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"skin.png", filepath.Join("sub", "hud.DDS")}, inputPaths(textures))
	assert.ElementsMatch(t, []string{"readme.txt", filepath.Join("sub", "note.jpg")}, skipped)
}

func TestTexturesCustomRules(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.tm2": "tm2",
		"b.png": "png",
	})

	textures, skipped, err := Textures(root, []pathrules.Rule{
		{Action: pathrules.ActionInclude, Pattern: "*.tm2"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.tm2"}, inputPaths(textures))
	assert.Equal(t, []string{"b.png"}, skipped)
}

func TestCollectEmptyRoots(t *testing.T) {
	t.Parallel()

	res, err := Collect(Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Mods)
	assert.Empty(t, res.Textures)
}

func TestCollectMissingRoot(t *testing.T) {
	t.Parallel()

	_, err := Collect(Options{ModsDir: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, p2m.ErrIO))
}

func TestCollectFeedsPack(t *testing.T) {
	t.Parallel()

	mods := t.TempDir()
	textures := t.TempDir()
	writeTree(t, mods, map[string]string{"DATA/LEVEL.WP2": "0123456789"})
	writeTree(t, textures, map[string]string{"skin.png": "12345"})

	res, err := Collect(Options{ModsDir: mods, TexturesDir: textures})
	require.NoError(t, err)

	var out bytes.Buffer
	packed, err := p2m.Pack(t.Context(), &out, p2m.Metadata{Title: "t"}, res.Mods, res.Textures, p2m.PackOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, packed.ModFiles)
	assert.Equal(t, 1, packed.TextureFiles)

	r, err := p2m.OpenBytes(out.Bytes())
	require.NoError(t, err)
	assert.Equal(t, p2m.TypeProtected, r.ModFiles()[0].Type)
	assert.Equal(t, `DATA\LEVEL.WP2`, r.ModFiles()[0].Path)
}
