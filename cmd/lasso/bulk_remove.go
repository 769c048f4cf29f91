package main

import (
	"github.com/spf13/cobra"

	"github.com/steveyegge/lasso/internal/rpc"
	"github.com/steveyegge/lasso/internal/types"
)

var bulkRemoveCmd = &cobra.Command{
	Use:   "remove <reason>",
	Short: "Remove every selected item from the backlog",
	Long: `Move every selected item to the Removed state. The reason is mandatory
and is recorded on each item, since removal is the one action here that
takes work off the board.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runBulk(cmd, []rpc.ActionArg{{
			Kind:   string(types.ActionRemove),
			Reason: args[0],
		}})
	},
}

func init() {
	bulkCmd.AddCommand(bulkRemoveCmd)
}
