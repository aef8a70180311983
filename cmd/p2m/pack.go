// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/p2m

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/woozymasta/p2m"
	"github.com/woozymasta/p2m/internal/collect"
	"github.com/woozymasta/p2m/internal/logger"
	"github.com/woozymasta/p2m/internal/manifest"
)

func packCmd() *cli.Command {
	return &cli.Command{
		Name:  "pack",
		Usage: "Pack mod and texture folders into a .p2m archive",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "manifest", Aliases: []string{"m"}, Usage: "YAML or JSON manifest with defaults for every other flag"},
			&cli.StringFlag{Name: "title", Usage: "mod title"},
			&cli.StringFlag{Name: "author", Usage: "mod author"},
			&cli.StringFlag{Name: "description", Usage: "mod description"},
			&cli.StringFlag{Name: "mods", Usage: "folder with modded game files, paths are stored relative to it"},
			&cli.StringFlag{Name: "textures", Usage: "folder with texture replacements"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output archive path (default: <title>.p2m)"},
			&cli.StringSliceFlag{Name: "protect", Usage: "extra path pattern packed as protected mod file"},
			&cli.StringSliceFlag{Name: "texture-include", Usage: "texture file pattern (default: *.png, *.dds)"},
			&cli.BoolFlag{Name: "raw-mod-sizes", Usage: "record unpadded mod file sizes in the table"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)

			m := &manifest.Manifest{}
			if path := cmd.String("manifest"); path != "" {
				loaded, err := manifest.Load(path)
				if err != nil {
					return err
				}
				m = loaded
			}

			applyPackFlags(cmd, m)
			if err := m.Validate(); err != nil {
				return err
			}

			found, err := collect.Collect(collect.Options{
				Logger:       log.Slog(),
				ModsDir:      m.Mods,
				TexturesDir:  m.Textures,
				TextureRules: m.TextureRules(),
			})
			if err != nil {
				return err
			}

			out := m.Output
			if out == "" {
				out = p2m.ArchiveFileName(m.Title)
			}

			res, err := p2m.PackFile(ctx, out, m.Metadata(), found.Mods, found.Textures, p2m.PackOptions{
				Logger:            log.Slog(),
				Protected:         m.ProtectRules(),
				RecordRawModSizes: m.RawModSizes,
				OnEntryDone: func(e p2m.PackEntryProgress) {
					log.Debug("packed file",
						slog.String("kind", string(e.Kind)),
						slog.String("path", e.Path),
						slog.Any("size", e.Size),
						slog.Any("offset", e.Offset),
					)
				},
			})
			if err != nil {
				return fmt.Errorf("pack %s: %w", out, err)
			}

			log.Info("archive packed",
				slog.String("path", out),
				slog.Int("mod_files", res.ModFiles),
				slog.Int("texture_files", res.TextureFiles),
				slog.Int("skipped_textures", len(found.Skipped)),
				slog.Int64("size", res.Size),
				slog.Duration("duration", res.Duration),
			)

			_, err = fmt.Fprintln(outWriter(cmd), out)
			return err
		},
	}
}

// applyPackFlags overrides manifest values with explicitly set flags.
func applyPackFlags(cmd *cli.Command, m *manifest.Manifest) {
	if cmd.IsSet("title") {
		m.Title = cmd.String("title")
	}
	if cmd.IsSet("author") {
		m.Author = cmd.String("author")
	}
	if cmd.IsSet("description") {
		m.Description = cmd.String("description")
	}
	if cmd.IsSet("mods") {
		m.Mods = cmd.String("mods")
	}
	if cmd.IsSet("textures") {
		m.Textures = cmd.String("textures")
	}
	if cmd.IsSet("out") {
		m.Output = cmd.String("out")
	}
	if cmd.IsSet("protect") {
		m.Protect = cmd.StringSlice("protect")
	}
	if cmd.IsSet("texture-include") {
		m.TextureInclude = cmd.StringSlice("texture-include")
	}
	if cmd.IsSet("raw-mod-sizes") {
		m.RawModSizes = cmd.Bool("raw-mod-sizes")
	}
}
