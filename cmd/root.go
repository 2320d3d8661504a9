package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/crag-dev/crag/internal/common"
	"github.com/crag-dev/crag/internal/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "crag",
	Short: "A context-aware code review agent in your terminal.",
	Long: `crag reviews changesets with an LLM after first building the minimal
file context the review needs, and can assess whether a merged change
actually implements its tracker task.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("repo-path", ".", "path to the git repository")
	rootCmd.PersistentFlags().Bool("debug", false, "print debug output")
}

// loadConfig resolves the repository root from --repo-path and loads
// configuration relative to it. Any failure here is fatal: nothing
// network-facing runs on an invalid config.
func loadConfig(cmd *cobra.Command) (config.Config, string) {
	repoPath := GetArgByKey("repo-path", cmd.Flags(), false)
	if repoPath == "" {
		repoPath = "."
	}

	conf, err := config.Load(repoPath)
	if err != nil {
		common.LogError(err.Error(), true, false, nil)
	}
	if debug, err := cmd.Flags().GetBool("debug"); err == nil && debug {
		conf.Debug = true
	}
	return conf, repoPath
}
