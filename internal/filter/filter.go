// Package filter applies ignore rules and test-file detection to
// candidate file lists. All functions are pure and order-preserving;
// applying a rule set twice yields the same result as applying it once.
package filter

import "strings"

// Rules holds the configured denylists and test keywords.
type Rules struct {
	// IgnoredExtensions are path suffixes, e.g. ".lock" or ".min.js".
	IgnoredExtensions []string
	// IgnoredPaths are matched as substrings of the slash-separated path.
	IgnoredPaths []string
	// TestKeywords mark a path as a test file (case-insensitive substring).
	TestKeywords []string
}

// Apply returns the paths that pass the ignore rules, preserving order.
// Test files are NOT removed here: they stay in context and are only
// excluded from review targets by the caller.
func (r Rules) Apply(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if r.Allowed(p) {
			out = append(out, p)
		}
	}
	return out
}

// Allowed reports whether a single path passes the ignore rules.
func (r Rules) Allowed(path string) bool {
	lower := strings.ToLower(strings.TrimSpace(path))
	if lower == "" {
		return false
	}
	for _, ext := range r.IgnoredExtensions {
		if ext != "" && strings.HasSuffix(lower, strings.ToLower(ext)) {
			return false
		}
	}
	for _, frag := range r.IgnoredPaths {
		if frag != "" && strings.Contains(lower, strings.ToLower(frag)) {
			return false
		}
	}
	return true
}

// IsTest reports whether a path looks like a test file: its path
// contains any configured keyword, case-insensitive.
func (r Rules) IsTest(path string) bool {
	lower := strings.ToLower(path)
	for _, kw := range r.TestKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
