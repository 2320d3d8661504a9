package renders

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/crag-dev/crag/internal/review"
)

func TestRenderMarkdown(t *testing.T) {
	result := RenderMarkdown("# Hello\n\nThis is **bold** text.")
	assert.NotEmpty(t, result)
}

func TestRenderMarkdown_Empty(t *testing.T) {
	result := RenderMarkdown("")
	// Should not panic on empty input
	assert.NotNil(t, result)
}

func TestRenderMarkdown_CodeBlock(t *testing.T) {
	input := "```go\nfunc main() {\n    fmt.Println(\"hello\")\n}\n```"
	result := RenderMarkdown(input)
	assert.NotEmpty(t, result)
}

func TestReviewMarkdown_NoFindings(t *testing.T) {
	doc := ReviewMarkdown(&review.Result{Summary: "Looks clean."})
	assert.Contains(t, doc, "Looks clean.")
	assert.Contains(t, doc, "No findings.")
}

func TestReviewMarkdown_Findings(t *testing.T) {
	doc := ReviewMarkdown(&review.Result{
		Summary: "1 finding.",
		Findings: []review.Finding{
			{
				FilePath:   "pkg/server.go",
				LineStart:  10,
				LineEnd:    12,
				Category:   review.CategoryLogicError,
				Severity:   review.SeverityHigh,
				Message:    "off by one in loop bound",
				Suggestion: "for i := 0; i < n; i++ {",
			},
		},
	})
	assert.Contains(t, doc, "pkg/server.go:10-12")
	assert.Contains(t, doc, "off by one in loop bound")
	assert.Contains(t, doc, "```suggestion")
}

func TestAssessmentMarkdown(t *testing.T) {
	doc := AssessmentMarkdown("PROJ-1", "relevant", 85, "matches the task", "adds a login handler")
	assert.Contains(t, doc, "PROJ-1")
	assert.Contains(t, doc, "85/100")
	assert.Contains(t, doc, "matches the task")
	assert.Contains(t, doc, "adds a login handler")
}
