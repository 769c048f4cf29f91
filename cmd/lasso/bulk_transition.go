package main

import (
	"github.com/spf13/cobra"

	"github.com/steveyegge/lasso/internal/rpc"
	"github.com/steveyegge/lasso/internal/types"
)

var bulkTransitionCmd = &cobra.Command{
	Use:   "transition <state>",
	Short: "Move every selected item to a workflow state",
	Long: `Move every selected item to the given workflow state. The remote store
enforces its own transition rules; items it refuses fail individually
without touching the rest of the selection.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		reason, _ := cmd.Flags().GetString("reason")
		runBulk(cmd, []rpc.ActionArg{{
			Kind:   string(types.ActionTransition),
			State:  args[0],
			Reason: reason,
		}})
	},
}

func init() {
	bulkTransitionCmd.Flags().String("reason", "", "State-change reason recorded on the item")
	bulkCmd.AddCommand(bulkTransitionCmd)
}
