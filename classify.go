// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/p2m

package p2m

import (
	"fmt"
	"strings"

	"github.com/woozymasta/pathrules"
)

// TypeCode is the 2-byte mod file type stored in the mod-types chunk.
type TypeCode uint16

// Mod file type codes.
const (
	// TypeProtected marks engine-critical or already-extracted archive formats.
	TypeProtected TypeCode = 0
	// TypeStandard marks plain overwrite files.
	TypeStandard TypeCode = 1
)

// String returns lower-case type name.
func (t TypeCode) String() string {
	switch t {
	case TypeProtected:
		return "protected"
	case TypeStandard:
		return "standard"
	default:
		return fmt.Sprintf("type(%d)", uint16(t))
	}
}

// protectedExtensions are matched against the last 3 characters of a file name.
var protectedExtensions = map[string]struct{}{
	"WP2": {},
	"INT": {},
	"XTR": {},
	"OLM": {},
}

// ProtectedExtensions returns the built-in protected extension codes.
func ProtectedExtensions() []string {
	return []string{"WP2", "INT", "XTR", "OLM"}
}

// Classifier maps mod file paths to type codes.
type Classifier struct {
	matcher *pathrules.Matcher
}

// NewClassifier compiles extra protected path rules on top of the built-in set.
// Empty rule set keeps built-in extension matching only.
func NewClassifier(rules []pathrules.Rule) (*Classifier, error) {
	rules = normalizeClassifierRules(rules)
	if len(rules) == 0 {
		return &Classifier{}, nil
	}

	matcher, err := pathrules.NewMatcher(rules, pathrules.MatcherOptions{
		CaseInsensitive: true,
		DefaultAction:   pathrules.ActionExclude,
	})
	if err != nil {
		return nil, fmt.Errorf("compile protected rules: %w", err)
	}

	return &Classifier{matcher: matcher}, nil
}

// normalizeClassifierRules converts patterns to slash form and drops empty ones.
func normalizeClassifierRules(rules []pathrules.Rule) []pathrules.Rule {
	normalized := make([]pathrules.Rule, 0, len(rules))
	for _, rule := range rules {
		pattern := normalizePathForMatching(rule.Pattern)
		if pattern == "" {
			continue
		}

		normalized = append(normalized, pathrules.Rule{
			Action:  rule.Action,
			Pattern: pattern,
		})
	}

	return normalized
}

// Classify returns type code for path. It never fails.
func (c *Classifier) Classify(path string) TypeCode {
	if Classify(path) == TypeProtected {
		return TypeProtected
	}

	if c == nil || c.matcher == nil {
		return TypeStandard
	}

	candidate := NormalizePath(path)
	if candidate == "" {
		return TypeStandard
	}

	if c.matcher.Included(candidate, false) {
		return TypeProtected
	}

	return TypeStandard
}

// Classify matches the last 3 characters of the file name against the
// protected extension set, case-insensitively.
func Classify(path string) TypeCode {
	if _, ok := protectedExtensions[extensionCode(path)]; ok {
		return TypeProtected
	}

	return TypeStandard
}

// extensionCode returns upper-cased last 3 characters of the base name.
func extensionCode(path string) string {
	name := path
	if idx := strings.LastIndexAny(name, `/\`); idx >= 0 {
		name = name[idx+1:]
	}

	if len(name) < 3 {
		return ""
	}

	return strings.ToUpper(name[len(name)-3:])
}
