// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/p2m

package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/opencontainers/go-digest"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/woozymasta/p2m"
)

// archiveView is the inspect output document.
type archiveView struct {
	Path     string        `json:"path" yaml:"path"`
	Size     int64         `json:"size" yaml:"size"`
	Version  uint16        `json:"version" yaml:"version"`
	Metadata p2m.Metadata  `json:"metadata" yaml:"metadata"`
	Chunks   []chunkView   `json:"chunks" yaml:"chunks"`
	Mods     []modView     `json:"mods" yaml:"mods"`
	Textures []textureView `json:"textures" yaml:"textures"`
}

type chunkView struct {
	Name   string `json:"name" yaml:"name"`
	Offset uint32 `json:"offset" yaml:"offset"`
	Length uint32 `json:"length" yaml:"length"`
}

type modView struct {
	Path   string        `json:"path" yaml:"path"`
	Type   string        `json:"type" yaml:"type"`
	Size   uint32        `json:"size" yaml:"size"`
	Offset uint32        `json:"offset" yaml:"offset"`
	Digest digest.Digest `json:"digest,omitempty" yaml:"digest,omitempty"`
}

type textureView struct {
	Path   string        `json:"path" yaml:"path"`
	Size   uint32        `json:"size" yaml:"size"`
	Offset uint32        `json:"offset" yaml:"offset"`
	Digest digest.Digest `json:"digest,omitempty" yaml:"digest,omitempty"`
}

func inspectCmd() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Show header, chunk table, and file lists of an archive",
		ArgsUsage: "ARCHIVE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "output format (text, json, yaml)", Value: "text"},
			&cli.BoolFlag{Name: "digests", Usage: "compute sha256 digest of every payload"},
			&cli.BoolFlag{Name: "strict", Usage: "also require canonical contiguous layout"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, err := archiveArg(cmd)
			if err != nil {
				return err
			}

			r, err := p2m.OpenWithOptions(path, p2m.ReaderOptions{Strict: cmd.Bool("strict")})
			if err != nil {
				return err
			}
			defer func() { _ = r.Close() }()

			view, err := buildArchiveView(ctx, path, r, cmd.Bool("digests"))
			if err != nil {
				return err
			}

			return writeArchiveView(outWriter(cmd), view, cmd.String("format"))
		},
	}
}

// buildArchiveView collects reader state into an output document.
func buildArchiveView(ctx context.Context, path string, r *p2m.Reader, digests bool) (*archiveView, error) {
	h := r.Header()
	view := &archiveView{
		Path:     path,
		Size:     r.Size(),
		Version:  h.Version,
		Metadata: r.Metadata(),
	}

	for _, id := range p2m.Chunks() {
		s := h.Section(id)
		view.Chunks = append(view.Chunks, chunkView{Name: id.String(), Offset: s.Offset, Length: s.Length})
	}

	for _, m := range r.ModFiles() {
		item := modView{Path: m.Path, Type: m.Type.String(), Size: m.Size, Offset: m.Offset}
		if digests {
			d, err := payloadDigest(ctx, func() (io.ReadCloser, error) { return r.OpenModFileInfo(m) })
			if err != nil {
				return nil, fmt.Errorf("digest %s: %w", m.Path, err)
			}
			item.Digest = d
		}
		view.Mods = append(view.Mods, item)
	}

	for _, t := range r.TextureFiles() {
		item := textureView{Path: t.Path, Size: t.Size, Offset: t.Offset}
		if digests {
			d, err := payloadDigest(ctx, func() (io.ReadCloser, error) { return r.OpenTextureFileInfo(t) })
			if err != nil {
				return nil, fmt.Errorf("digest %s: %w", t.Path, err)
			}
			item.Digest = d
		}
		view.Textures = append(view.Textures, item)
	}

	return view, nil
}

// payloadDigest hashes one payload stream.
func payloadDigest(ctx context.Context, open func() (io.ReadCloser, error)) (digest.Digest, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	rc, err := open()
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()

	return digest.Canonical.FromReader(rc)
}

// writeArchiveView renders the document in the requested format.
func writeArchiveView(w io.Writer, view *archiveView, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		return writeArchiveText(w, view)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

// writeArchiveText renders a human readable listing.
func writeArchiveText(w io.Writer, view *archiveView) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	_, _ = fmt.Fprintf(tw, "archive:\t%s (%d bytes, version %d)\n", view.Path, view.Size, view.Version)
	_, _ = fmt.Fprintf(tw, "title:\t%s\n", view.Metadata.Title)
	_, _ = fmt.Fprintf(tw, "author:\t%s\n", view.Metadata.Author)
	_, _ = fmt.Fprintf(tw, "description:\t%s\n", view.Metadata.Description)

	_, _ = fmt.Fprintln(tw, "\nCHUNK\tOFFSET\tLENGTH")
	for _, c := range view.Chunks {
		_, _ = fmt.Fprintf(tw, "%s\t0x%08X\t%d\n", c.Name, c.Offset, c.Length)
	}

	_, _ = fmt.Fprintf(tw, "\nMOD FILES (%d)\tTYPE\tSIZE\tOFFSET\tDIGEST\n", len(view.Mods))
	for _, m := range view.Mods {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t0x%08X\t%s\n", m.Path, m.Type, m.Size, m.Offset, m.Digest)
	}

	_, _ = fmt.Fprintf(tw, "\nTEXTURES (%d)\tSIZE\tOFFSET\tDIGEST\n", len(view.Textures))
	for _, t := range view.Textures {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t0x%08X\t%s\n", t.Path, t.Size, t.Offset, t.Digest)
	}

	return tw.Flush()
}
