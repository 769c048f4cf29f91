package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/lasso/internal/ui"
)

var handlesCmd = &cobra.Command{
	Use:     "handles",
	GroupID: "query",
	Short:   "List live query handles on the server",
	Run: func(cmd *cobra.Command, args []string) {
		client := requireServer()
		includeExpired, _ := cmd.Flags().GetBool("include-expired")

		list, err := client.ListHandles(rootCtx, includeExpired)
		if err != nil {
			fatalCallError(err)
		}
		if jsonOutput {
			outputJSON(list)
			return
		}
		fmt.Print(ui.RenderHandleList(list.Handles, time.Now()))
	},
}

func init() {
	handlesCmd.Flags().Bool("include-expired", false, "Include handles past their TTL that the sweeper has not collected yet")
	rootCmd.AddCommand(handlesCmd)
}
