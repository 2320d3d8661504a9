package assess

import (
	"context"
	"fmt"
	"strings"

	"github.com/crag-dev/crag/internal/core"
	"github.com/crag-dev/crag/internal/provider"
	"github.com/crag-dev/crag/internal/tracker"
)

// TaskSource is where assessments read and write tracker state. It is
// an interface so tests can run without a live tracker.
type TaskSource interface {
	GetTask(key string) (*tracker.Task, error)
	PostComment(key, body string) error
}

// PipelineOptions configures one assessment run.
type PipelineOptions struct {
	RepoPath string
	BaseRef  string
	HeadRef  string
	// TaskKey overrides task discovery from branch and commits.
	TaskKey string

	Provider provider.AIProvider
	Model    string

	// Tracker may be nil; the verdict is then only returned, not posted.
	Tracker TaskSource

	Log func(format string, args ...any)
}

func (o *PipelineOptions) log(format string, args ...any) {
	if o.Log != nil {
		o.Log(format, args...)
	}
}

// RunAssess discovers the task, summarizes the change, scores it, and
// posts the verdict. A run without a discoverable or fetchable task
// returns a skipped Result and a nil error.
func RunAssess(ctx context.Context, opts PipelineOptions) (*Result, error) {
	diff, err := core.GetDiff(opts.RepoPath, opts.BaseRef, opts.HeadRef)
	if err != nil {
		return nil, fmt.Errorf("collecting diff: %w", err)
	}
	if strings.TrimSpace(diff) == "" {
		return &Result{Skipped: true, SkipReason: "no changes between refs"}, nil
	}

	diffStat, err := core.GetDiffStat(opts.RepoPath, opts.BaseRef, opts.HeadRef)
	if err != nil {
		return nil, fmt.Errorf("collecting diff stat: %w", err)
	}
	commitMessages, _ := core.GetCommitMessages(opts.RepoPath, opts.BaseRef, opts.HeadRef)

	key := opts.TaskKey
	if key == "" {
		branch := core.CurrentBranch(opts.RepoPath)
		key = tracker.FindTaskID(branch, commitMessages)
	}
	if key == "" {
		return &Result{Skipped: true, SkipReason: "no task ID found in branch name or commit messages"}, nil
	}
	opts.log("assess: task %s", key)

	var task *tracker.Task
	if opts.Tracker != nil {
		task, err = opts.Tracker.GetTask(key)
		if err != nil {
			// The task may be private or deleted; that is a notice, not
			// a failure.
			return &Result{
				TaskKey:    key,
				Skipped:    true,
				SkipReason: fmt.Sprintf("could not fetch task %s: %v", key, err),
			}, nil
		}
	} else {
		task = &tracker.Task{Key: key}
	}

	assessor := &Assessor{Provider: opts.Provider, Model: opts.Model}

	summary, err := assessor.Summarize(ctx, diffStat, commitMessages)
	if err != nil {
		return nil, err
	}
	opts.log("assess: change summary ready")

	score, justification, err := assessor.Assess(ctx, task, summary, diff)
	if err != nil {
		return nil, err
	}

	result := &Result{
		TaskKey:       key,
		Score:         score,
		Verdict:       VerdictFor(score),
		Justification: justification,
		ChangeSummary: summary,
	}

	if opts.Tracker != nil {
		if err := opts.Tracker.PostComment(key, FormatComment(result)); err != nil {
			return result, fmt.Errorf("posting assessment: %w", err)
		}
		opts.log("assess: verdict posted to %s", key)
	}

	return result, nil
}
