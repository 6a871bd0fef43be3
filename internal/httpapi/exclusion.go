// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package httpapi

import (
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
)

// exclusionEntry holds one pattern and, for wildcard patterns, its
// compiled glob. Exact patterns keep a nil glob and compare by string.
type exclusionEntry struct {
	pattern string
	glob    glob.Glob
}

// ExclusionList matches request paths against an ordered list of
// path patterns exempt from authentication. A pattern is either an
// exact path or a prefix with a single trailing '*' wildcard matching
// any suffix. Matching is case-sensitive; both path and exact
// patterns are normalized to a trailing separator before comparison.
type ExclusionList struct {
	entries []exclusionEntry
}

// NewExclusionList compiles the given patterns. Order is preserved;
// the first matching pattern short-circuits.
func NewExclusionList(patterns []string) (*ExclusionList, error) {
	entries := make([]exclusionEntry, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			return nil, oops.Code("EXCLUSION_INVALID_PATTERN").Errorf("pattern cannot be empty")
		}

		e := exclusionEntry{pattern: p}
		if strings.HasSuffix(p, "*") {
			g, err := glob.Compile(p)
			if err != nil {
				return nil, oops.Code("EXCLUSION_INVALID_PATTERN").
					With("pattern", p).
					Wrap(err)
			}
			e.glob = g
		} else {
			e.pattern = normalizePath(p)
		}
		entries = append(entries, e)
	}
	return &ExclusionList{entries: entries}, nil
}

// Excluded returns true if the path matches any pattern in the list.
// An empty list excludes nothing.
func (l *ExclusionList) Excluded(path string) bool {
	if path == "" {
		return false
	}
	normalized := normalizePath(path)
	for _, e := range l.entries {
		if e.glob != nil {
			if e.glob.Match(normalized) {
				return true
			}
			continue
		}
		if e.pattern == normalized {
			return true
		}
	}
	return false
}

// normalizePath strips trailing separators and appends exactly one,
// so "/api/v1/status" and "/api/v1/status/" compare equal.
func normalizePath(p string) string {
	return strings.TrimRight(p, "/") + "/"
}
