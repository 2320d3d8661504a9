package review

import (
	"context"
	"fmt"

	"github.com/crag-dev/crag/internal/analyzer"
	"github.com/crag-dev/crag/internal/contextbuilder"
	"github.com/crag-dev/crag/internal/core"
	"github.com/crag-dev/crag/internal/diffparse"
	"github.com/crag-dev/crag/internal/filter"
	"github.com/crag-dev/crag/internal/provider"
)

// PipelineOptions configures one review run end to end.
type PipelineOptions struct {
	RepoPath string
	BaseRef  string
	HeadRef  string
	Staged   bool

	Provider     provider.AIProvider
	ContextModel string
	ReviewModel  string

	MaxContextFiles int
	MaxRounds       int

	Rules       *filter.Rules
	Focus       []Category
	ReviewRules []string

	// Trace receives per-round context decisions when --trace is set.
	Trace func(format string, args ...any)
	// Progress receives coarse stage names for the spinner.
	Progress func(stage string)
}

func (o *PipelineOptions) progress(stage string) {
	if o.Progress != nil {
		o.Progress(stage)
	}
}

// RunReview executes the full pipeline: diff, changeset, static
// analysis, context negotiation, and the review call itself.
func RunReview(ctx context.Context, opts PipelineOptions) (*Result, error) {
	opts.progress("Collecting changes")

	var (
		diff string
		err  error
	)
	if opts.Staged {
		diff, err = core.GetStagedDiff(opts.RepoPath)
	} else {
		diff, err = core.GetDiff(opts.RepoPath, opts.BaseRef, opts.HeadRef)
	}
	if err != nil {
		return nil, fmt.Errorf("collecting diff: %w", err)
	}

	changeset, err := diffparse.ParseChangeset(diff)
	if err != nil {
		return nil, fmt.Errorf("parsing diff: %w", err)
	}
	changeset = filterChangeset(changeset, opts.Rules)
	if changeset.Empty() {
		return &Result{Summary: "No reviewable changes found."}, nil
	}

	var commitMessages string
	if !opts.Staged {
		// Commit messages are advisory context; a failure to read them
		// never blocks the review.
		commitMessages, _ = core.GetCommitMessages(opts.RepoPath, opts.BaseRef, opts.HeadRef)
	}

	tracked, err := core.ListTrackedFiles(opts.RepoPath)
	if err != nil {
		return nil, fmt.Errorf("listing tracked files: %w", err)
	}

	opts.progress("Analyzing dependencies")
	candidates := staticCandidates(opts.RepoPath, changeset, tracked)

	opts.progress("Building context")
	builder := &contextbuilder.Builder{
		Provider:  opts.Provider,
		Model:     opts.ContextModel,
		MaxFiles:  opts.MaxContextFiles,
		MaxRounds: opts.MaxRounds,
		Rules:     opts.Rules,
		ReadFile: func(path string) (string, bool) {
			return core.ReadWorktreeFile(opts.RepoPath, path)
		},
		Tracked: tracked,
		Trace:   opts.Trace,
	}
	state, err := builder.Build(ctx, contextbuilder.Input{
		Changeset:        changeset,
		Diff:             diff,
		CommitMessages:   commitMessages,
		StaticCandidates: candidates,
	})
	if err != nil {
		return nil, fmt.Errorf("building context: %w", err)
	}

	opts.progress("Reviewing")
	reviewer := &Reviewer{
		Provider:    opts.Provider,
		Model:       opts.ReviewModel,
		Focus:       opts.Focus,
		Rules:       opts.Rules,
		ReviewRules: opts.ReviewRules,
	}
	findings, err := reviewer.Review(ctx, state, changeset, diff)
	if err != nil {
		return nil, err
	}

	return &Result{
		Findings:        findings,
		Summary:         summarize(changeset, findings, state),
		DegradedContext: state.Degraded,
		ContextFiles:    len(state.Files),
		Rounds:          state.Round,
	}, nil
}

// filterChangeset drops ignored files from the changeset. Test files
// stay: they belong in context even though they are not review targets.
func filterChangeset(cs *diffparse.Changeset, rules *filter.Rules) *diffparse.Changeset {
	if rules == nil {
		return cs
	}
	out := &diffparse.Changeset{}
	for _, fc := range cs.Files {
		if rules.Allowed(fc.Path) {
			out.Files = append(out.Files, fc)
		}
	}
	return out
}

// staticCandidates runs the analyzer over every changed file and
// merges the ranked results, excluding files already in the changeset.
func staticCandidates(repoPath string, cs *diffparse.Changeset, tracked []string) []string {
	a := analyzer.New()
	defer a.Close()

	changed := make(map[string]struct{}, cs.Len())
	for _, p := range cs.Paths() {
		changed[p] = struct{}{}
	}

	var merged []string
	seen := make(map[string]struct{})
	for _, fc := range cs.Files {
		if fc.Status == diffparse.StatusDeleted {
			continue
		}
		content, ok := core.ReadWorktreeFile(repoPath, fc.Path)
		if !ok {
			continue
		}
		refs, err := a.ExtractReferences(fc.Path, []byte(content))
		if err != nil || len(refs) == 0 {
			continue
		}
		for _, cand := range analyzer.Resolve(refs, fc.Path, tracked, nil) {
			if _, ok := changed[cand]; ok {
				continue
			}
			if _, ok := seen[cand]; ok {
				continue
			}
			seen[cand] = struct{}{}
			merged = append(merged, cand)
		}
	}
	return merged
}

func summarize(cs *diffparse.Changeset, findings []Finding, state *contextbuilder.State) string {
	stats := cs.TotalStats()
	summary := fmt.Sprintf(
		"Reviewed %d changed files (+%d/-%d) with %d context files over %d rounds: %d findings.",
		cs.Len(), stats.Additions, stats.Deletions, len(state.Files), state.Round, len(findings),
	)
	if state.Degraded {
		summary += " Context may be incomplete (round limit reached)."
	}
	return summary
}
