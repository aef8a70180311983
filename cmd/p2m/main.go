// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/p2m

// Command p2m packs, inspects, extracts, and edits P2M mod archives.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"github.com/woozymasta/pathrules"

	"github.com/woozymasta/p2m/internal/logger"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newApp builds the command tree.
func newApp() *cli.Command {
	return &cli.Command{
		Name:  "p2m",
		Usage: "Build and inspect P2M mod archives",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug, info, warn, error)",
				Value: "info",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text, json, pretty)",
				Value: logger.FormatText,
			},
		},
		Before: setupLogger,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			packCmd(),
			inspectCmd(),
			extractCmd(),
			metaCmd(),
			editCmd(),
		},
	}
}

// setupLogger stores a logger built from global flags in the context.
func setupLogger(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	log, err := logger.NewFormat(cmd.String("log-format"), errWriter(cmd), logger.ParseLevel(cmd.String("log-level")))
	if err != nil {
		return ctx, err
	}

	return logger.WithContext(ctx, log), nil
}

// outWriter returns the root command stdout.
func outWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// errWriter returns the root command stderr.
func errWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}

// archiveArg returns the single positional archive path.
func archiveArg(cmd *cli.Command) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", fmt.Errorf("%s: expected exactly one ARCHIVE argument", cmd.Name)
	}
	return cmd.Args().First(), nil
}

// includeRules turns flag patterns into include rules.
func includeRules(patterns []string) []pathrules.Rule {
	rules := make([]pathrules.Rule, 0, len(patterns))
	for _, p := range patterns {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionInclude, Pattern: p})
	}
	return rules
}
