// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/p2m

package p2m

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
)

const (
	benchDefaultEntries = 128
	benchLargeEntries   = 16384
)

var (
	// benchListSink prevents compiler elimination in list benchmark loops.
	benchListSink int
)

func BenchmarkPack(b *testing.B) {
	mods, textures := benchInputs(benchDefaultEntries, 4096)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Pack(context.Background(), io.Discard, Metadata{Title: "bench"}, mods, textures, PackOptions{}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkOpenParse(b *testing.B) {
	path := createBenchArchive(b, benchDefaultEntries, 256)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r, err := Open(path)
		if err != nil {
			b.Fatal(err)
		}
		benchListSink += len(r.ModFiles())
		_ = r.Close()
	}
}

func BenchmarkOpenParseLargeIndex(b *testing.B) {
	path := createBenchArchive(b, benchLargeEntries, 1)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r, err := Open(path)
		if err != nil {
			b.Fatal(err)
		}
		if len(r.TextureFiles()) == 0 {
			b.Fatal("empty textures")
		}
		_ = r.Close()
	}
}

func BenchmarkExtract(b *testing.B) {
	path := createBenchArchive(b, benchDefaultEntries, 4096)
	r, err := Open(path)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = r.Close() })

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		dst := filepath.Join(b.TempDir(), fmt.Sprintf("out-%d", i))
		if err := r.Extract(context.Background(), dst, ExtractOptions{TrimModPadding: true}); err != nil {
			b.Fatal(err)
		}
	}
}

// benchInputs builds matching mod and texture input lists.
func benchInputs(count int, size int) ([]Input, []Input) {
	payload := bytes.Repeat([]byte{0xA5}, size)

	mods := make([]Input, 0, count)
	textures := make([]Input, 0, count)
	for i := range count {
		mods = append(mods, BytesInput(fmt.Sprintf("DATA/DIR%03d/FILE%05d.BIN", i%32, i), payload))
		textures = append(textures, BytesInput(fmt.Sprintf("tex%03d/%05d.png", i%32, i), payload))
	}

	return mods, textures
}

// createBenchArchive packs a synthetic archive into a temp file.
func createBenchArchive(b *testing.B, count int, size int) string {
	b.Helper()

	mods, textures := benchInputs(count, size)
	path := filepath.Join(b.TempDir(), "bench.p2m")
	if _, err := PackFile(context.Background(), path, Metadata{Title: "bench"}, mods, textures, PackOptions{}); err != nil {
		b.Fatal(err)
	}

	if _, err := os.Stat(path); err != nil {
		b.Fatal(err)
	}

	return path
}
