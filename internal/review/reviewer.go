package review

import (
	"context"
	"fmt"

	"github.com/crag-dev/crag/internal/contextbuilder"
	"github.com/crag-dev/crag/internal/diffparse"
	"github.com/crag-dev/crag/internal/filter"
	"github.com/crag-dev/crag/internal/provider"
)

// Reviewer runs the single review completion over assembled context
// and keeps only findings the pipeline can act on.
type Reviewer struct {
	Provider provider.AIProvider
	Model    string
	Focus    []Category
	Rules    *filter.Rules
	// ReviewRules is free-text project guidance forwarded to the model.
	ReviewRules []string
}

// Review asks the backend once and filters its answer. A finding
// survives only when it targets a changed, non-deleted, non-test file
// and its category is in the focus allow-list.
func (r *Reviewer) Review(ctx context.Context, state *contextbuilder.State, changeset *diffparse.Changeset, diff string) ([]Finding, error) {
	// The structured per-file rendering carries hunk headers and stats;
	// the raw diff is the fallback when parsing produced no hunks.
	changes := diffparse.FormatForReview(changeset.Files)
	if changes == "" {
		changes = diff
	}
	prompt := buildReviewPrompt(state.ContextFiles(), changes, r.Focus, r.ReviewRules)

	resp, err := provider.WithRetry(ctx, provider.DefaultRetryConfig(), func() (*provider.CompletionResponse, error) {
		return r.Provider.Complete(ctx, provider.CompletionRequest{
			Model: r.Model,
			Messages: []provider.Message{
				{Role: provider.RoleSystem, Content: reviewerSystemPrompt},
				{Role: provider.RoleUser, Content: prompt},
			},
			Temperature: provider.Float64(0),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("review completion: %w", err)
	}

	return r.filterFindings(ParseFindings(resp.Content), changeset), nil
}

func (r *Reviewer) filterFindings(findings []Finding, changeset *diffparse.Changeset) []Finding {
	allowed := make(map[Category]struct{}, len(r.Focus))
	for _, c := range r.Focus {
		allowed[c] = struct{}{}
	}

	var kept []Finding
	for _, f := range findings {
		status, inChangeset := changeset.StatusOf(f.FilePath)
		if !inChangeset || status == diffparse.StatusDeleted {
			continue
		}
		if r.Rules != nil && r.Rules.IsTest(f.FilePath) {
			continue
		}
		if _, ok := allowed[f.Category]; !ok {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}
