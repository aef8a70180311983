// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/p2m

package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/woozymasta/p2m"
	"github.com/woozymasta/p2m/internal/logger"
)

func editCmd() *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Change metadata or files of an existing archive in place",
		ArgsUsage: "ARCHIVE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Usage: "new title"},
			&cli.StringFlag{Name: "author", Usage: "new author"},
			&cli.StringFlag{Name: "description", Usage: "new description"},
			&cli.StringSliceFlag{Name: "add-mod", Usage: "add mod file as SRC=DST (DST defaults to file name)"},
			&cli.StringSliceFlag{Name: "replace-mod", Usage: "replace mod file as SRC=DST"},
			&cli.StringSliceFlag{Name: "delete-mod", Usage: "delete mod file by archive path"},
			&cli.StringSliceFlag{Name: "delete-mod-dir", Usage: "delete every mod file under archive directory"},
			&cli.StringSliceFlag{Name: "add-texture", Usage: "add texture as SRC=DST (DST defaults to file name)"},
			&cli.StringSliceFlag{Name: "replace-texture", Usage: "replace texture as SRC=DST"},
			&cli.StringSliceFlag{Name: "delete-texture", Usage: "delete texture by archive path"},
			&cli.StringSliceFlag{Name: "protect", Usage: "extra path pattern packed as protected mod file"},
			&cli.IntFlag{Name: "backup-keep", Usage: "backup generations kept after commit", Value: 1},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			path, err := archiveArg(cmd)
			if err != nil {
				return err
			}

			ed, err := p2m.OpenEditor(path, p2m.EditOptions{
				BackupKeep: cmd.Int("backup-keep"),
				PackOptions: p2m.PackOptions{
					Logger:    log.Slog(),
					Protected: includeRules(cmd.StringSlice("protect")),
				},
			})
			if err != nil {
				return err
			}

			if err := stageMetadata(cmd, ed, path); err != nil {
				return err
			}

			if err := stageFiles(cmd, ed); err != nil {
				return err
			}

			res, err := ed.Commit(ctx)
			if err != nil {
				return err
			}

			log.Info("archive edited",
				slog.String("path", path),
				slog.Int("mod_files", res.ModFiles),
				slog.Int("texture_files", res.TextureFiles),
				slog.Int64("size", res.Size),
			)
			return nil
		},
	}
}

// stageMetadata merges explicitly set metadata flags over current values.
func stageMetadata(cmd *cli.Command, ed *p2m.Editor, path string) error {
	if !cmd.IsSet("title") && !cmd.IsSet("author") && !cmd.IsSet("description") {
		return nil
	}

	meta, err := p2m.ReadMetadata(path)
	if err != nil {
		return err
	}

	if cmd.IsSet("title") {
		meta.Title = cmd.String("title")
	}
	if cmd.IsSet("author") {
		meta.Author = cmd.String("author")
	}
	if cmd.IsSet("description") {
		meta.Description = cmd.String("description")
	}

	return ed.SetMetadata(meta)
}

// stageFiles schedules file operations in flag order: deletes, replaces, adds.
func stageFiles(cmd *cli.Command, ed *p2m.Editor) error {
	if err := ed.DeleteMod(cmd.StringSlice("delete-mod")...); err != nil {
		return err
	}
	if err := ed.DeleteModDir(cmd.StringSlice("delete-mod-dir")...); err != nil {
		return err
	}
	if err := ed.DeleteTexture(cmd.StringSlice("delete-texture")...); err != nil {
		return err
	}

	staged := []struct {
		flag  string
		stage func(...p2m.Input) error
	}{
		{"replace-mod", ed.ReplaceMod},
		{"replace-texture", ed.ReplaceTexture},
		{"add-mod", ed.AddMod},
		{"add-texture", ed.AddTexture},
	}
	for _, s := range staged {
		inputs, err := parseFileSpecs(cmd.StringSlice(s.flag))
		if err != nil {
			return fmt.Errorf("--%s: %w", s.flag, err)
		}
		if err := s.stage(inputs...); err != nil {
			return fmt.Errorf("--%s: %w", s.flag, err)
		}
	}

	return nil
}

// parseFileSpecs turns SRC=DST values into file inputs.
func parseFileSpecs(specs []string) ([]p2m.Input, error) {
	inputs := make([]p2m.Input, 0, len(specs))
	for _, spec := range specs {
		src, dst, ok := strings.Cut(spec, "=")
		if !ok || dst == "" {
			dst = filepath.Base(src)
		}

		in, err := p2m.FileInput(dst, src)
		if err != nil {
			return nil, err
		}

		inputs = append(inputs, in)
	}

	return inputs, nil
}
