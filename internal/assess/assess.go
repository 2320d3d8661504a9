// Package assess produces a post-merge relevance verdict: does the
// change actually implement the tracker task it claims to?
package assess

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/crag-dev/crag/internal/common"
	"github.com/crag-dev/crag/internal/provider"
	"github.com/crag-dev/crag/internal/tracker"
)

// Verdict buckets the relevance score.
type Verdict string

const (
	VerdictRelevant          Verdict = "relevant"
	VerdictPartiallyRelevant Verdict = "partially-relevant"
	VerdictIrrelevant        Verdict = "irrelevant"
)

// VerdictFor maps a 0..100 score to a verdict.
func VerdictFor(score int) Verdict {
	switch {
	case score >= 70:
		return VerdictRelevant
	case score >= 30:
		return VerdictPartiallyRelevant
	default:
		return VerdictIrrelevant
	}
}

// Result is the outcome of one assessment run.
type Result struct {
	TaskKey       string
	Score         int
	Verdict       Verdict
	Justification string
	ChangeSummary string
	// Skipped means no verdict was produced; SkipReason says why.
	// A missing task is a notice, never a failure.
	Skipped    bool
	SkipReason string
}

// Assessor runs the summarize and score completions.
type Assessor struct {
	Provider provider.AIProvider
	Model    string
}

const summarizerSystemPrompt = `You summarize code changes for project tracking. Be factual and brief.`

// Summarize turns the diff stat and commit messages into a short
// change summary that grounds the assessment prompt.
func (a *Assessor) Summarize(ctx context.Context, diffStat, commitMessages string) (string, error) {
	var b strings.Builder
	b.WriteString("Summarize this change in 3-5 sentences: what was modified and to what end.\n\n")
	if strings.TrimSpace(commitMessages) != "" {
		b.WriteString("## Commit messages\n" + strings.TrimSpace(commitMessages) + "\n\n")
	}
	b.WriteString("## Diff stat\n```\n" + diffStat + "\n```\n")

	resp, err := provider.WithRetry(ctx, provider.DefaultRetryConfig(), func() (*provider.CompletionResponse, error) {
		return a.Provider.Complete(ctx, provider.CompletionRequest{
			Model: a.Model,
			Messages: []provider.Message{
				{Role: provider.RoleSystem, Content: summarizerSystemPrompt},
				{Role: provider.RoleUser, Content: b.String()},
			},
			Temperature: provider.Float64(0),
		})
	})
	if err != nil {
		return "", fmt.Errorf("summarize completion: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

const assessorSystemPrompt = `You judge whether a code change implements a given task. You respond with JSON only.`

// Assess scores the change summary against the task description.
func (a *Assessor) Assess(ctx context.Context, task *tracker.Task, changeSummary, diff string) (int, string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "## Task %s: %s\n%s\n\n", task.Key, task.Summary, task.Description)
	b.WriteString("## Change summary\n" + changeSummary + "\n\n")
	b.WriteString("## Diff\n```diff\n" + diff + "\n```\n")
	b.WriteString(`
Score from 0 to 100 how well this change implements the task.
Respond with JSON only:
{"score": 0-100, "justification": "two or three sentences"}`)

	resp, err := provider.WithRetry(ctx, provider.DefaultRetryConfig(), func() (*provider.CompletionResponse, error) {
		return a.Provider.Complete(ctx, provider.CompletionRequest{
			Model: a.Model,
			Messages: []provider.Message{
				{Role: provider.RoleSystem, Content: assessorSystemPrompt},
				{Role: provider.RoleUser, Content: b.String()},
			},
			Temperature: provider.Float64(0),
		})
	})
	if err != nil {
		return 0, "", fmt.Errorf("assess completion: %w", err)
	}

	score, justification, ok := parseAssessment(resp.Content)
	if !ok {
		return 0, "", fmt.Errorf("assess: unparseable backend answer")
	}
	return score, justification, nil
}

func parseAssessment(content string) (int, string, bool) {
	payload := common.ExtractJSONPayload(content)
	if payload == "" {
		return 0, "", false
	}
	var out struct {
		Score         *int   `json:"score"`
		Justification string `json:"justification"`
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil || out.Score == nil {
		return 0, "", false
	}
	score := *out.Score
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, strings.TrimSpace(out.Justification), true
}

// FormatComment renders the result as the tracker comment body.
func FormatComment(r *Result) string {
	return fmt.Sprintf(
		"*Automated change assessment*\n\nVerdict: *%s* (score %d/100)\n\n%s\n\nChange summary: %s",
		r.Verdict, r.Score, r.Justification, r.ChangeSummary,
	)
}
