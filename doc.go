// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/p2m

/*
Package p2m provides pack, read, extract, and edit operations for P2M mod
archives consumed by the emulator mod loader. An archive bundles a metadata
block, a list of mod files (each with a type code), and a list of texture
replacement files behind a fixed 0x50-byte header.

Layout rules (summary):
  - all integers are little-endian;
  - chunks follow the header in fixed order: meta, mod paths, mod types,
    mod size/offset table, mod data, texture paths, texture size/offset
    table, texture data;
  - every chunk except texture data is zero-padded to 16 bytes;
  - each mod payload is padded to 16 bytes, texture payloads are packed;
  - size/offset rows carry absolute offsets from the start of the file;
  - mod paths are stored with "\" separators, texture paths as supplied.

Mod files ending in WP2, INT, XTR, or OLM are classified as protected (type
code 0); everything else is standard (type code 1). PackOptions.Protected
adds path rules on top of the built-in set.

# Packing

Pack streams inputs in order into any io.Writer. Layout is planned from
declared sizes first, so the destination needs no seeking:

	mods := []p2m.Input{
	    p2m.BytesInput("DATA/LEVEL.WP2", levelData),
	}
	textures := []p2m.Input{
	    p2m.BytesInput("skin.png", skinData),
	}
	_, err := p2m.PackFile(ctx, "mod.p2m", p2m.Metadata{
	    Title:  "My Mod",
	    Author: "me",
	}, mods, textures, p2m.PackOptions{})
	if err != nil {
	    return err
	}

PackFile writes to a temporary file and renames it into place, so a failed
pack leaves nothing behind. Build is the in-memory variant.

# Reading

Open an archive and read entries by path. Lookup ignores case and accepts
either separator:

	r, err := p2m.Open("mod.p2m")
	if err != nil {
	    return err
	}
	defer r.Close()
	for _, m := range r.ModFiles() {
	    data, _ := r.ReadModFile(m.Path)
	    // use data
	}

For metadata-only scans, use fast helpers without parsing file tables:

	meta, err := p2m.ReadMetadata("mod.p2m")
	if err != nil {
	    return err
	}
	_ = meta

ReaderOptions.Strict additionally requires the canonical contiguous layout.

# Extracting

Extract writes mod files under MOD and textures under textures, matching
where the loader installs them:

	err = r.Extract(ctx, "out", p2m.ExtractOptions{
	    MaxWorkers:     4,
	    TrimModPadding: true,
	})

# Editing

Editor stages changes and rewrites the archive on Commit, keeping a backup
until the new file is in place:

	ed, err := p2m.OpenEditor("mod.p2m", p2m.EditOptions{BackupKeep: 1})
	if err != nil {
	    return err
	}
	_ = ed.DeleteMod(`DATA\OLD.INT`)
	_ = ed.AddTexture(p2m.BytesInput("new.png", pngData))
	_, err = ed.Commit(ctx)

# Errors

Typed errors match sentinels with errors.Is: *FormatError matches
ErrFormat, *TruncatedDataError matches ErrTruncatedData, and *IOError
matches ErrIO while unwrapping its cause.
*/
package p2m
