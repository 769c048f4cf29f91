package main

import (
	"github.com/spf13/cobra"

	"github.com/steveyegge/lasso/internal/rpc"
	"github.com/steveyegge/lasso/internal/types"
)

var bulkMoveCmd = &cobra.Command{
	Use:   "move <iteration-path>",
	Short: "Move every selected item to an iteration",
	Long: `Move every selected item to the given iteration path, for example
"Project\Sprint 42". The path must already exist on the remote store.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runBulk(cmd, []rpc.ActionArg{{
			Kind:          string(types.ActionMove),
			IterationPath: args[0],
		}})
	},
}

func init() {
	bulkCmd.AddCommand(bulkMoveCmd)
}
