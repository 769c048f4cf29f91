package main

import (
	"github.com/spf13/cobra"

	"github.com/steveyegge/lasso/internal/rpc"
	"github.com/steveyegge/lasso/internal/types"
)

var bulkCommentCmd = &cobra.Command{
	Use:   "comment <text>",
	Short: "Post the same comment on every selected item",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runBulk(cmd, []rpc.ActionArg{{
			Kind: string(types.ActionComment),
			Text: args[0],
		}})
	},
}

func init() {
	bulkCmd.AddCommand(bulkCommentCmd)
}
