// Package review turns assembled context into structured findings and
// keeps them stable across runs via fingerprints.
package review

import (
	"fmt"
	"strings"
)

// Category classifies what kind of problem a finding reports.
type Category string

const (
	CategoryLogicError   Category = "LogicError"
	CategoryCodeStyle    Category = "CodeStyle"
	CategorySecurity     Category = "Security"
	CategorySuggestion   Category = "Suggestion"
	CategoryTestCoverage Category = "TestCoverage"
	CategoryClarity      Category = "Clarity"
	CategoryPerformance  Category = "Performance"
	CategoryOther        Category = "Other"
)

// AllCategories lists every valid category, in display order.
func AllCategories() []Category {
	return []Category{
		CategoryLogicError,
		CategoryCodeStyle,
		CategorySecurity,
		CategorySuggestion,
		CategoryTestCoverage,
		CategoryClarity,
		CategoryPerformance,
		CategoryOther,
	}
}

// ParseCategory resolves a case-insensitive category name. Accepts both
// "LogicError" and "logic_error" spellings.
func ParseCategory(s string) (Category, error) {
	normalized := strings.ToLower(strings.ReplaceAll(strings.ReplaceAll(s, "_", ""), "-", ""))
	for _, c := range AllCategories() {
		if strings.ToLower(string(c)) == normalized {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown review category %q", s)
}

// Severity ranks how urgent a finding is.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// ParseSeverity resolves a case-insensitive severity name, defaulting
// unknown values to MEDIUM so a sloppy backend answer never drops a
// finding.
func ParseSeverity(s string) Severity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL":
		return SeverityCritical
	case "HIGH":
		return SeverityHigh
	case "MEDIUM":
		return SeverityMedium
	case "LOW":
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// Finding is one review comment anchored to a file.
type Finding struct {
	FilePath    string   `json:"file_path"`
	LineStart   int      `json:"line_start,omitempty"`
	LineEnd     int      `json:"line_end,omitempty"`
	Category    Category `json:"category"`
	Severity    Severity `json:"severity"`
	Message     string   `json:"message"`
	Suggestion  string   `json:"suggestion,omitempty"`
	Fingerprint string   `json:"-"`
}

// Result is the complete output of a review run.
type Result struct {
	Findings []Finding
	Summary  string
	// DegradedContext marks a review produced from incomplete context,
	// either because the file budget ran out or because the context
	// builder hit its round cap while still unsatisfied.
	DegradedContext bool
	// ContextFiles is the number of files the reviewer saw.
	ContextFiles int
	// Rounds is how many context-building rounds ran.
	Rounds int
}
