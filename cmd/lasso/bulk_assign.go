package main

import (
	"github.com/spf13/cobra"

	"github.com/steveyegge/lasso/internal/rpc"
	"github.com/steveyegge/lasso/internal/types"
)

var bulkAssignCmd = &cobra.Command{
	Use:   "assign <assignee>",
	Short: "Assign every selected item to one person",
	Long: `Assign every selected item. The assignee is an identity the remote store
recognizes, usually an email address.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runBulk(cmd, []rpc.ActionArg{{
			Kind:     string(types.ActionAssign),
			Assignee: args[0],
		}})
	},
}

func init() {
	bulkCmd.AddCommand(bulkAssignCmd)
}
