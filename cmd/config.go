package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crag-dev/crag/internal/common"
	"github.com/crag-dev/crag/internal/config"
)

// configCmd prints the resolved configuration and a sample file.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration.",
	Run: func(cmd *cobra.Command, args []string) {
		conf, _ := loadConfig(cmd)

		common.LogInfo("resolved configuration:", nil)
		fmt.Printf("  provider:           %s\n", conf.Provider)
		fmt.Printf("  context model:      %s\n", conf.ContextBuilderModel)
		fmt.Printf("  reviewer model:     %s\n", conf.ReviewerModel)
		fmt.Printf("  assessor model:     %s\n", conf.AssessorModel)
		fmt.Printf("  max context files:  %d\n", conf.MaxContextFiles)
		fmt.Printf("  max rounds:         %d\n", conf.MaxRounds)
		fmt.Printf("  review focus:       %v\n", conf.ReviewFocus)
		fmt.Printf("  ignored extensions: %v\n", conf.IgnoredExtensions)
		fmt.Printf("  ignored paths:      %v\n", conf.IgnoredPaths)
		fmt.Printf("  test keywords:      %v\n", conf.TestKeywords)

		if GetBoolArgByKey("sample", cmd.Flags()) {
			fmt.Println()
			fmt.Print(config.SampleYAML())
		}
	},
}

func init() {
	configCmd.Flags().Bool("sample", false, "print a documented sample .crag.yml")
	rootCmd.AddCommand(configCmd)
}
