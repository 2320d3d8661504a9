package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crag-dev/crag/internal/assess"
	"github.com/crag-dev/crag/internal/common"
	"github.com/crag-dev/crag/internal/core"
	"github.com/crag-dev/crag/internal/renders"
	"github.com/crag-dev/crag/internal/tracker"
)

// assessCmd scores a merged change against its tracker task.
var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Assess whether a change implements its tracker task.",
	Example: `crag assess --base-ref origin/main
crag assess --task PROJ-123`,
	Run: func(cmd *cobra.Command, args []string) {
		conf, repoPath := loadConfig(cmd)

		if root, err := core.FindRepoRoot(repoPath); err == nil {
			repoPath = root
		}

		aiProvider, err := resolveProvider(conf, "")
		if err != nil {
			common.LogError(err.Error(), true, false, nil)
		}

		var taskSource assess.TaskSource
		if baseURL := conf.Viper.GetString("tracker.base_url"); baseURL != "" {
			client, err := tracker.New(
				baseURL,
				conf.Viper.GetString("tracker.user"),
				trackerToken(conf.Viper.GetString("tracker.token")),
			)
			if err != nil {
				common.LogError(err.Error(), true, false, nil)
			}
			taskSource = client
		} else {
			common.LogInfo("no tracker configured, verdict will not be posted", nil)
		}

		var logFn func(format string, args ...any)
		if conf.Debug {
			logFn = func(format string, args ...any) {
				common.LogDebug(true, format, args...)
			}
		}

		result, err := assess.RunAssess(context.Background(), assess.PipelineOptions{
			RepoPath: repoPath,
			BaseRef:  GetArgByKey("base-ref", cmd.Flags(), false),
			HeadRef:  GetArgByKey("head-ref", cmd.Flags(), false),
			TaskKey:  GetArgByKey("task", cmd.Flags(), false),
			Provider: aiProvider,
			Model:    conf.AssessorModel,
			Tracker:  taskSource,
			Log:      logFn,
		})
		if err != nil {
			common.LogError(err.Error(), true, false, nil)
		}

		if result.Skipped {
			common.LogInfo("assessment skipped: "+result.SkipReason, nil)
			return
		}

		markdown := renders.AssessmentMarkdown(
			result.TaskKey, string(result.Verdict), result.Score,
			result.Justification, result.ChangeSummary,
		)
		fmt.Print(renders.RenderMarkdown(markdown))
	},
}

func init() {
	assessCmd.Flags().String("base-ref", "origin/main", "merge base to diff against")
	assessCmd.Flags().String("head-ref", "HEAD", "head revision to assess")
	assessCmd.Flags().String("task", "", "tracker task key (otherwise discovered from branch/commits)")
	rootCmd.AddCommand(assessCmd)
}

func trackerToken(configured string) string {
	if configured != "" {
		return configured
	}
	return os.Getenv("JIRA_API_TOKEN")
}
