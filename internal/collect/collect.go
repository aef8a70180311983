// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/p2m

// Package collect discovers mod and texture files on disk and turns them
// into ordered pack inputs.
package collect

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/woozymasta/pathrules"

	"github.com/woozymasta/p2m"
)

// DefaultTextureRules accept the texture formats the loader can replace.
var DefaultTextureRules = []pathrules.Rule{
	{Action: pathrules.ActionInclude, Pattern: "*.png"},
	{Action: pathrules.ActionInclude, Pattern: "*.dds"},
}

// Options configures directory collection.
type Options struct {
	// Logger receives discovery warnings; nil discards them.
	Logger *slog.Logger
	// ModsDir is the mod file root. Stored paths are relative to it.
	ModsDir string
	// TexturesDir is the texture root. Stored paths are relative to it.
	TexturesDir string
	// TextureRules select texture files; empty means DefaultTextureRules.
	TextureRules []pathrules.Rule
}

// Result holds collected inputs in discovery order.
type Result struct {
	Mods     []p2m.Input
	Textures []p2m.Input
	// Skipped lists texture files rejected by TextureRules.
	Skipped []string
}

// Collect walks both roots. An empty root yields an empty list.
func Collect(opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	res := &Result{}
	if opts.ModsDir != "" {
		mods, err := Mods(opts.ModsDir, opts.Logger)
		if err != nil {
			return nil, err
		}
		res.Mods = mods
	}

	if opts.TexturesDir != "" {
		textures, skipped, err := Textures(opts.TexturesDir, opts.TextureRules, opts.Logger)
		if err != nil {
			return nil, err
		}
		res.Textures = textures
		res.Skipped = skipped
	}

	return res, nil
}

// MaxLoaderModPath is the longest mod path in bytes the emulator loader
// reads back in full when installing a mod.
const MaxLoaderModPath = 49

// Mods collects every regular file under root. Archive paths are relative
// to root and use "\" separators.
func Mods(root string, logger *slog.Logger) ([]p2m.Input, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var inputs []p2m.Input
	err := walkFiles(root, func(rel string, fsPath string) error {
		if !strings.ContainsRune(rel, filepath.Separator) {
			logger.Warn("mod file is not inside a folder", slog.String("path", rel))
		}
		if p2m.Classify(rel) == p2m.TypeProtected && strings.EqualFold(filepath.Ext(rel), ".int") {
			logger.Warn("whole INT archive found, extracted INT contents are recommended", slog.String("path", rel))
		}

		modPath := p2m.ModPath(filepath.ToSlash(rel))
		if len(modPath) > MaxLoaderModPath {
			logger.Warn("mod path is longer than the loader reads, it will be cut on install",
				slog.String("path", modPath),
				slog.Int("length", len(modPath)),
				slog.Int("limit", MaxLoaderModPath),
			)
		}

		in, err := p2m.FileInput(modPath, fsPath)
		if err != nil {
			return err
		}

		inputs = append(inputs, in)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("collected mod files", slog.String("root", root), slog.Int("count", len(inputs)))
	return inputs, nil
}

// Textures collects files under root accepted by rules. Archive paths are
// relative to root and keep host separators. Rejected files are returned
// as skipped.
func Textures(root string, rules []pathrules.Rule, logger *slog.Logger) ([]p2m.Input, []string, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if len(rules) == 0 {
		rules = DefaultTextureRules
	}

	matcher, err := pathrules.NewMatcher(rules, pathrules.MatcherOptions{
		CaseInsensitive: true,
		DefaultAction:   pathrules.ActionExclude,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("compile texture rules: %w", err)
	}

	var (
		inputs  []p2m.Input
		skipped []string
	)
	err = walkFiles(root, func(rel string, fsPath string) error {
		if !matcher.Included(filepath.ToSlash(rel), false) {
			logger.Warn("skipped texture file with unsupported type", slog.String("path", rel))
			skipped = append(skipped, rel)
			return nil
		}

		in, err := p2m.FileInput(rel, fsPath)
		if err != nil {
			return err
		}

		inputs = append(inputs, in)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	logger.Debug("collected texture files",
		slog.String("root", root),
		slog.Int("count", len(inputs)),
		slog.Int("skipped", len(skipped)),
	)
	return inputs, skipped, nil
}

// walkFiles visits regular files under root in lexical order.
func walkFiles(root string, visit func(rel string, fsPath string) error) error {
	info, err := os.Stat(root)
	if err != nil {
		return &p2m.IOError{Op: "stat", Path: root, Err: err}
	}
	if !info.IsDir() {
		return &p2m.IOError{Op: "stat", Path: root, Err: fmt.Errorf("%s is not a directory", root)}
	}

	return filepath.WalkDir(root, func(fsPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return &p2m.IOError{Op: "walk", Path: fsPath, Err: err}
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, fsPath)
		if err != nil {
			return &p2m.IOError{Op: "walk", Path: fsPath, Err: err}
		}

		return visit(rel, fsPath)
	})
}
