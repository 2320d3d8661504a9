package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/crag-dev/crag/internal/comments"
	"github.com/crag-dev/crag/internal/common"
	"github.com/crag-dev/crag/internal/core"
	"github.com/crag-dev/crag/internal/printers"
	"github.com/crag-dev/crag/internal/renders"
	"github.com/crag-dev/crag/internal/review"
	"github.com/crag-dev/crag/internal/vcs"
	_ "github.com/crag-dev/crag/internal/vcs/init"
)

// reviewCmd runs the full review pipeline on a changeset.
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review a changeset with LLM-built context.",
	Example: `crag review --base-ref origin/main
crag review --staged --focus LogicError,Security
crag review --post --pr 42 --yes`,
	Run: func(cmd *cobra.Command, args []string) {
		conf, repoPath := loadConfig(cmd)

		if root, err := core.FindRepoRoot(repoPath); err == nil {
			repoPath = root
		}

		focus := conf.ReviewFocus
		if raw := GetArgByKey("focus", cmd.Flags(), false); raw != "" {
			parsed, err := parseFocusFlag(raw)
			if err != nil {
				common.LogError(err.Error(), true, false, nil)
			}
			focus = parsed
		}

		aiProvider, err := resolveProvider(conf, GetArgByKey("provider", cmd.Flags(), false))
		if err != nil {
			common.LogError(err.Error(), true, false, nil)
		}

		modelOverride := GetArgByKey("model", cmd.Flags(), false)
		trace := GetBoolArgByKey("trace", cmd.Flags())

		var traceFn func(format string, args ...any)
		if trace || conf.Debug {
			traceFn = func(format string, args ...any) {
				fmt.Fprintf(os.Stderr, "[trace] "+format+"\n", args...)
			}
		}

		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
		progress := func(stage string) {
			s.Suffix = " " + stage
		}
		if !trace && !conf.Debug {
			s.Start()
		}

		result, err := review.RunReview(context.Background(), review.PipelineOptions{
			RepoPath:        repoPath,
			BaseRef:         GetArgByKey("base-ref", cmd.Flags(), false),
			HeadRef:         GetArgByKey("head-ref", cmd.Flags(), false),
			Staged:          GetBoolArgByKey("staged", cmd.Flags()),
			Provider:        aiProvider,
			ContextModel:    modelFor(modelOverride, conf.ContextBuilderModel),
			ReviewModel:     modelFor(modelOverride, conf.ReviewerModel),
			MaxContextFiles: conf.MaxContextFiles,
			MaxRounds:       conf.MaxRounds,
			Rules:           conf.FilterRules(),
			Focus:           focus,
			ReviewRules:     conf.ReviewRules,
			Trace:           traceFn,
			Progress:        progress,
		})
		s.Stop()
		if err != nil {
			common.LogError(err.Error(), true, false, nil)
		}

		markdown := renders.ReviewMarkdown(result)
		fmt.Print(renders.RenderMarkdown(markdown))

		if GetBoolArgByKey("copy", cmd.Flags()) {
			if err := common.SetClipboardValue(markdown); err != nil {
				common.LogInfo("could not copy review to clipboard: "+err.Error(), nil)
			}
		}

		if GetBoolArgByKey("post", cmd.Flags()) || GetBoolArgByKey("dry-run", cmd.Flags()) {
			postFindings(cmd, conf.Viper, result)
		}
	},
}

func init() {
	reviewCmd.Flags().String("base-ref", "origin/main", "merge base to diff against")
	reviewCmd.Flags().String("head-ref", "HEAD", "head revision to review")
	reviewCmd.Flags().Bool("staged", false, "review the staged diff instead of a ref range")
	reviewCmd.Flags().String("focus", "", "comma-separated categories to surface (overrides config)")
	reviewCmd.Flags().String("provider", "", "AI provider to use (overrides config)")
	reviewCmd.Flags().String("model", "", "model for all pipeline stages (overrides config)")
	reviewCmd.Flags().Bool("post", false, "reconcile findings as PR comments")
	reviewCmd.Flags().Bool("dry-run", false, "print the comment plan without touching the platform")
	reviewCmd.Flags().Bool("yes", false, "skip the deletion confirmation prompt")
	reviewCmd.Flags().Bool("copy", false, "copy the rendered review to the clipboard")
	reviewCmd.Flags().Bool("trace", false, "print per-round context-builder decisions")
	reviewCmd.Flags().Int64("pr", 0, "pull request number to post to")
	rootCmd.AddCommand(reviewCmd)
}

func parseFocusFlag(raw string) ([]review.Category, error) {
	var out []review.Category
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		c, err := review.ParseCategory(part)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no valid categories in --focus %q", raw)
	}
	return out, nil
}

// postFindings reconciles the review result against the configured
// pull request. With --dry-run the plan is printed and nothing is
// written.
func postFindings(cmd *cobra.Command, v *viper.Viper, result *review.Result) {
	platform := v.GetString("vcs.platform")
	repo := v.GetString("vcs.repo")
	number, _ := cmd.Flags().GetInt64("pr")
	if number == 0 {
		number = v.GetInt64("vcs.pr")
	}
	if platform == "" || repo == "" || number == 0 {
		common.LogError("posting requires vcs.platform, vcs.repo and --pr", true, false, nil)
	}

	vp, err := vcs.Get(platform, vcsToken(platform, v.GetString("vcs.token")), v.GetString("vcs.base_url"))
	if err != nil {
		common.LogError(err.Error(), true, false, nil)
	}

	if GetBoolArgByKey("dry-run", cmd.Flags()) {
		existing, err := vp.ListComments(repo, number)
		if err != nil {
			common.LogError(err.Error(), true, false, nil)
		}
		plan := comments.BuildPlan(result.Findings, existing)
		common.LogInfo(fmt.Sprintf(
			"dry run: %d comments to create, %d to delete, %d unchanged",
			len(plan.Create), len(plan.Delete), plan.Unchanged,
		), nil)
		for _, c := range plan.Delete {
			common.LogInfo(fmt.Sprintf("  - delete comment %d on %s", c.ID, c.Path), nil)
		}
		for _, f := range plan.Create {
			common.LogInfo(fmt.Sprintf("  - create comment on %s:%d [%s]", f.FilePath, f.LineStart, f.Category), nil)
		}
		return
	}

	manager := &comments.Manager{
		Provider: vp,
		Repo:     repo,
		Number:   number,
		Log: func(format string, args ...any) {
			common.LogInfo(fmt.Sprintf(format, args...), nil)
		},
	}
	if !GetBoolArgByKey("yes", cmd.Flags()) {
		manager.Confirm = func(plan *comments.Plan) bool {
			return printers.Confirm(fmt.Sprintf("Delete %d stale review comments?", len(plan.Delete)))
		}
	}

	plan, err := manager.Reconcile(result.Findings)
	if err != nil {
		common.LogError(err.Error(), true, false, nil)
	}
	common.LogInfo(fmt.Sprintf(
		"comments reconciled: %d created, %d deleted, %d unchanged",
		len(plan.Create), len(plan.Delete), plan.Unchanged,
	), nil)
}

func vcsToken(platform, configured string) string {
	if configured != "" {
		return configured
	}
	switch platform {
	case "github":
		return os.Getenv("GITHUB_TOKEN")
	case "bitbucket":
		return os.Getenv("BITBUCKET_TOKEN")
	}
	return ""
}
