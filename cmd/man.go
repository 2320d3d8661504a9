package cmd

import (
	"fmt"

	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/spf13/cobra"

	"github.com/crag-dev/crag/internal/common"
)

// manCmd generates the roff manpage for the whole command tree.
var manCmd = &cobra.Command{
	Use:    "man",
	Short:  "Generate the crag manpage.",
	Hidden: true,
	Run: func(cmd *cobra.Command, args []string) {
		page, err := mcobra.NewManPage(1, rootCmd)
		if err != nil {
			common.LogError(err.Error(), true, false, nil)
		}
		fmt.Println(page.Build(roff.NewDocument()))
	},
}

func init() {
	rootCmd.AddCommand(manCmd)
}
