// Package comments reconciles review findings against the comments
// already posted on a pull request. Platform comments are the only
// cross-run state: a finding's fingerprint, embedded in a hidden
// marker line, decides whether a comment is kept, created, or deleted.
package comments

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/crag-dev/crag/internal/review"
	"github.com/crag-dev/crag/internal/vcs"
)

const markerPrefix = "<!-- crag:fp:"

var markerPattern = regexp.MustCompile(`<!-- crag:fp:([0-9a-f]+) -->`)

// Marker returns the hidden marker line carrying a fingerprint.
func Marker(fingerprint string) string {
	return markerPrefix + fingerprint + " -->"
}

// ExtractFingerprint pulls the fingerprint out of a comment body.
// ok=false means the comment was not written by this tool.
func ExtractFingerprint(body string) (string, bool) {
	m := markerPattern.FindStringSubmatch(body)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// FormatBody renders a finding as a comment body with the trailing
// marker line.
func FormatBody(f review.Finding, suggestionBlock func(string) string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**[%s] %s**\n\n%s\n", f.Severity, f.Category, f.Message)
	if f.Suggestion != "" && suggestionBlock != nil {
		b.WriteString("\n" + suggestionBlock(f.Suggestion) + "\n")
	}
	b.WriteString("\n" + Marker(f.Fingerprint) + "\n")
	return b.String()
}

// Plan is the set of operations reconciliation decided on.
type Plan struct {
	Create []review.Finding
	Delete []vcs.Comment
	// Unchanged counts findings already present on the platform.
	Unchanged int
}

// Empty reports whether the plan requires no platform writes.
func (p *Plan) Empty() bool {
	return len(p.Create) == 0 && len(p.Delete) == 0
}

// BuildPlan diffs current findings against existing comments by
// fingerprint. Only comments carrying the agent marker are ever
// candidates for deletion; human comments are invisible to the plan.
func BuildPlan(findings []review.Finding, existing []vcs.Comment) *Plan {
	plan := &Plan{}

	current := make(map[string]struct{}, len(findings))
	for _, f := range findings {
		current[f.Fingerprint] = struct{}{}
	}

	posted := make(map[string]struct{})
	for _, c := range existing {
		fp, ok := ExtractFingerprint(c.Body)
		if !ok {
			continue
		}
		if _, stillWanted := current[fp]; stillWanted {
			posted[fp] = struct{}{}
			continue
		}
		plan.Delete = append(plan.Delete, c)
	}

	for _, f := range findings {
		if _, ok := posted[f.Fingerprint]; ok {
			plan.Unchanged++
			continue
		}
		plan.Create = append(plan.Create, f)
	}

	return plan
}

// Manager executes reconciliation against one pull request.
type Manager struct {
	Provider vcs.VCSProvider
	Repo     string
	Number   int64
	// Confirm, when set, is asked before deletions. Returning false
	// keeps the stale comments and still creates the new ones.
	Confirm func(plan *Plan) bool
	// Log receives one line per executed operation.
	Log func(format string, args ...any)
}

func (m *Manager) log(format string, args ...any) {
	if m.Log != nil {
		m.Log(format, args...)
	}
}

// Reconcile fetches the marked comments, builds the plan, and applies
// it: deletions first, then creations. Running twice with the same
// findings is a no-op the second time.
func (m *Manager) Reconcile(findings []review.Finding) (*Plan, error) {
	existing, err := m.Provider.ListComments(m.Repo, m.Number)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}

	plan := BuildPlan(findings, existing)
	if plan.Empty() {
		m.log("comments: nothing to do (%d unchanged)", plan.Unchanged)
		return plan, nil
	}

	if len(plan.Delete) > 0 && m.Confirm != nil && !m.Confirm(plan) {
		m.log("comments: skipping %d deletions", len(plan.Delete))
		plan.Delete = nil
	}

	for _, c := range plan.Delete {
		if err := m.Provider.DeleteComment(m.Repo, m.Number, c.ID); err != nil {
			return plan, fmt.Errorf("deleting comment %d: %w", c.ID, err)
		}
		m.log("comments: deleted stale comment %d (%s)", c.ID, c.Path)
	}

	for _, f := range plan.Create {
		anchor := vcs.Anchor{Path: f.FilePath, Line: f.LineStart}
		body := FormatBody(f, m.Provider.FormatSuggestionBlock)
		if err := m.Provider.CreateComment(m.Repo, m.Number, anchor, body); err != nil {
			return plan, fmt.Errorf("creating comment on %s: %w", f.FilePath, err)
		}
		m.log("comments: created comment on %s:%d", f.FilePath, f.LineStart)
	}

	return plan, nil
}
