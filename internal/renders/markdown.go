// Package renders turns review output into terminal-friendly text.
package renders

import (
	"fmt"
	"os"
	"strings"

	markdown "github.com/MichaelMure/go-term-markdown"
	"golang.org/x/term"

	"github.com/crag-dev/crag/internal/review"
)

const defaultWidth = 100

// RenderMarkdown renders markdown for the terminal, falling back to
// the raw source when stdout is not a TTY.
func RenderMarkdown(source string) string {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return source
	}
	width := defaultWidth
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}
	return string(markdown.Render(source, width, 0))
}

// ReviewMarkdown formats a review result as a markdown document.
func ReviewMarkdown(result *review.Result) string {
	var b strings.Builder

	b.WriteString("# Review\n\n")
	b.WriteString(result.Summary + "\n")

	if len(result.Findings) == 0 {
		b.WriteString("\nNo findings.\n")
		return b.String()
	}

	for _, f := range result.Findings {
		b.WriteString("\n---\n\n")
		location := f.FilePath
		if f.LineStart > 0 {
			location = fmt.Sprintf("%s:%d", f.FilePath, f.LineStart)
			if f.LineEnd > f.LineStart {
				location = fmt.Sprintf("%s-%d", location, f.LineEnd)
			}
		}
		fmt.Fprintf(&b, "**%s** `[%s] [%s]`\n\n%s\n", location, f.Category, f.Severity, f.Message)
		if f.Suggestion != "" {
			b.WriteString("\n```suggestion\n" + f.Suggestion + "\n```\n")
		}
	}

	return b.String()
}

// AssessmentMarkdown formats an assessment result as markdown.
func AssessmentMarkdown(taskKey string, verdict string, score int, justification, summary string) string {
	var b strings.Builder
	b.WriteString("# Assessment\n\n")
	fmt.Fprintf(&b, "Task **%s**: **%s** (score %d/100)\n\n", taskKey, verdict, score)
	b.WriteString(justification + "\n")
	if summary != "" {
		b.WriteString("\n## Change summary\n\n" + summary + "\n")
	}
	return b.String()
}
