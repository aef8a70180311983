// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/p2m

// Package manifest loads pack settings for a mod from a YAML or JSON file.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/woozymasta/pathrules"
	"gopkg.in/yaml.v3"

	"github.com/woozymasta/p2m"
)

// ErrInvalidManifest means the manifest cannot be decoded or is incomplete.
var ErrInvalidManifest = errors.New("invalid manifest")

// Manifest describes one archive to pack. Relative paths are resolved
// against the manifest directory by Load.
type Manifest struct {
	// Title is the mod title shown by the loader.
	Title string `json:"title" yaml:"title"`
	// Author is the mod author.
	Author string `json:"author,omitempty" yaml:"author,omitempty"`
	// Description is free text shown by the loader.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Mods is the mod file root directory.
	Mods string `json:"mods,omitempty" yaml:"mods,omitempty"`
	// Textures is the texture replacement root directory.
	Textures string `json:"textures,omitempty" yaml:"textures,omitempty"`
	// Output is the archive path; empty derives it from Title.
	Output string `json:"output,omitempty" yaml:"output,omitempty"`
	// Protect lists extra path patterns packed as protected mod files.
	Protect []string `json:"protect,omitempty" yaml:"protect,omitempty"`
	// TextureInclude lists texture patterns; empty keeps PNG and DDS.
	TextureInclude []string `json:"texture_include,omitempty" yaml:"texture_include,omitempty"`
	// RawModSizes records unpadded mod sizes in the table.
	RawModSizes bool `json:"raw_mod_sizes,omitempty" yaml:"raw_mod_sizes,omitempty"`
}

// Load reads a manifest file. Files ending in .json are decoded as JSON,
// everything else as YAML.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &p2m.IOError{Op: "read", Path: path, Err: err}
	}

	format := FormatYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = FormatJSON
	}

	m, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	m.resolve(filepath.Dir(path))
	return m, nil
}

// Encoding formats accepted by Decode and Encode.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Decode parses manifest bytes and validates them.
func Decode(data []byte, format string) (*Manifest, error) {
	var m Manifest
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidManifest, format)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Encode serializes the manifest.
func (m *Manifest) Encode(format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(m, "", "  ")
	case FormatYAML:
		return yaml.Marshal(m)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidManifest, format)
	}
}

// Validate checks that metadata is encodable and patterns are not blank.
func (m *Manifest) Validate() error {
	if _, err := p2m.EncodeMetadata(m.Metadata()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	for _, pattern := range append(append([]string{}, m.Protect...), m.TextureInclude...) {
		if strings.TrimSpace(pattern) == "" {
			return fmt.Errorf("%w: empty pattern", ErrInvalidManifest)
		}
	}

	return nil
}

// Metadata returns the archive metadata block.
func (m *Manifest) Metadata() p2m.Metadata {
	return p2m.Metadata{
		Title:       m.Title,
		Author:      m.Author,
		Description: m.Description,
	}
}

// ProtectRules returns Protect as include rules for PackOptions.Protected.
func (m *Manifest) ProtectRules() []pathrules.Rule {
	return includeRules(m.Protect)
}

// TextureRules returns TextureInclude as include rules for collection.
func (m *Manifest) TextureRules() []pathrules.Rule {
	return includeRules(m.TextureInclude)
}

// resolve makes relative directories absolute against base.
func (m *Manifest) resolve(base string) {
	for _, p := range []*string{&m.Mods, &m.Textures, &m.Output} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// includeRules turns patterns into include rules.
func includeRules(patterns []string) []pathrules.Rule {
	if len(patterns) == 0 {
		return nil
	}

	rules := make([]pathrules.Rule, 0, len(patterns))
	for _, p := range patterns {
		rules = append(rules, pathrules.Rule{Action: pathrules.ActionInclude, Pattern: p})
	}

	return rules
}
