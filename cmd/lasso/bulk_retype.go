package main

import (
	"github.com/spf13/cobra"

	"github.com/steveyegge/lasso/internal/rpc"
	"github.com/steveyegge/lasso/internal/types"
)

var bulkRetypeCmd = &cobra.Command{
	Use:   "retype <type>",
	Short: "Change the work item type of every selected item",
	Long: `Change every selected item to the given work item type, for example Bug
or "User Story". Items whose current type the remote store cannot convert
fail individually.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runBulk(cmd, []rpc.ActionArg{{
			Kind:    string(types.ActionChangeType),
			NewType: args[0],
		}})
	},
}

func init() {
	bulkCmd.AddCommand(bulkRetypeCmd)
}
