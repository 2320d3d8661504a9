package review

import (
	"fmt"
	"strings"

	"github.com/crag-dev/crag/internal/contextbuilder"
)

const reviewerSystemPrompt = `You are an expert code reviewer. You respond with a JSON array of findings and nothing else.`

// buildReviewPrompt assembles the single-shot review request: full
// context files, the diff, the focus categories, and any free-text
// rules from config.
func buildReviewPrompt(files []contextbuilder.ContextFile, diff string, focus []Category, rules []string) string {
	var b strings.Builder

	b.WriteString("Review the following change.\n\n")

	b.WriteString("## Context files\n")
	for _, f := range files {
		fmt.Fprintf(&b, "\n### %s (%s)\n```\n%s\n```\n", f.Path, f.Origin, f.Content)
	}

	b.WriteString("\n## Diff under review\n```diff\n")
	b.WriteString(diff)
	b.WriteString("\n```\n")

	names := make([]string, len(focus))
	for i, c := range focus {
		names[i] = string(c)
	}
	fmt.Fprintf(&b, "\nReport only findings in these categories: %s.\n", strings.Join(names, ", "))

	if len(rules) > 0 {
		b.WriteString("\n## Project review rules\n")
		for _, r := range rules {
			b.WriteString("- " + r + "\n")
		}
	}

	b.WriteString(`
Respond with a JSON array, one object per finding:
[
  {
    "file_path": "relative/path",
    "line_start": 10,
    "line_end": 12,
    "category": "LogicError",
    "severity": "HIGH",
    "message": "one or two sentences describing the problem",
    "suggestion": "replacement code, only when you have a concrete fix"
  }
]

Comment only on files that were changed in the diff. An empty array
means the change looks good.`)

	return b.String()
}
