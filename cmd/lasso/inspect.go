package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/lasso/internal/ui"
)

var inspectCmd = &cobra.Command{
	Use:     "inspect <token>",
	GroupID: "query",
	Short:   "Show a handle's metadata and a sample of its snapshots",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client := requireServer()

		ins, err := client.InspectHandle(rootCtx, args[0])
		if err != nil {
			fatalCallError(err)
		}
		if jsonOutput {
			outputJSON(ins)
			return
		}
		fmt.Print(ui.RenderHandle(ins.HandleMeta, ins.Sample, time.Now()))
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
