// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/p2m

package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/woozymasta/p2m"
)

func metaCmd() *cli.Command {
	return &cli.Command{
		Name:      "meta",
		Usage:     "Print title, author, and description without reading file tables",
		ArgsUsage: "ARCHIVE",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path, err := archiveArg(cmd)
			if err != nil {
				return err
			}

			meta, err := p2m.ReadMetadata(path)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(outWriter(cmd), "Title: %s\nAuthor: %s\nDescription: %s\n",
				meta.Title, meta.Author, meta.Description)
			return err
		},
	}
}
