// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/p2m

package main

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/urfave/cli/v3"

	"github.com/woozymasta/p2m"
	"github.com/woozymasta/p2m/internal/logger"
)

func extractCmd() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "Extract mod files and textures the way the loader installs them",
		ArgsUsage: "ARCHIVE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "destination directory", Required: true},
			&cli.IntFlag{Name: "workers", Aliases: []string{"j"}, Usage: "parallel writers (0 = GOMAXPROCS)"},
			&cli.BoolFlag{Name: "trim-padding", Usage: "strip trailing alignment zeros from mod files"},
			&cli.StringFlag{Name: "mod-dir", Usage: "mod file subdirectory", Value: p2m.DefaultModDir},
			&cli.StringFlag{Name: "texture-dir", Usage: "texture subdirectory", Value: p2m.DefaultTextureDir},
			&cli.BoolFlag{Name: "skip-mods", Usage: "do not extract mod files"},
			&cli.BoolFlag{Name: "skip-textures", Usage: "do not extract textures"},
			&cli.StringFlag{Name: "mode", Usage: "existing file policy (auto, truncate, create_only)", Value: string(p2m.ExtractFileModeAuto)},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			path, err := archiveArg(cmd)
			if err != nil {
				return err
			}

			r, err := p2m.Open(path)
			if err != nil {
				return err
			}
			defer func() { _ = r.Close() }()

			var files, bytes atomic.Int64
			err = r.Extract(ctx, cmd.String("out"), p2m.ExtractOptions{
				Logger:         log.Slog(),
				FileMode:       p2m.ExtractFileMode(cmd.String("mode")),
				ModDir:         cmd.String("mod-dir"),
				TextureDir:     cmd.String("texture-dir"),
				MaxWorkers:     cmd.Int("workers"),
				SkipMods:       cmd.Bool("skip-mods"),
				SkipTextures:   cmd.Bool("skip-textures"),
				TrimModPadding: cmd.Bool("trim-padding"),
				OnEntryDone: func(_ p2m.EntryKind, _ string, written int64, _ string) {
					files.Add(1)
					bytes.Add(written)
				},
			})
			if err != nil {
				return err
			}

			log.Info("archive extracted",
				slog.String("path", path),
				slog.String("out", cmd.String("out")),
				slog.Int64("files", files.Load()),
				slog.Int64("bytes", bytes.Load()),
			)
			return nil
		},
	}
}
