package main

import (
	"github.com/spf13/cobra"

	"github.com/steveyegge/lasso/internal/rpc"
	"github.com/steveyegge/lasso/internal/types"
)

var bulkTagCmd = &cobra.Command{
	Use:   "tag <tag>...",
	Short: "Add tags to every selected item",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runBulk(cmd, []rpc.ActionArg{{
			Kind: string(types.ActionAddTag),
			Tags: args,
		}})
	},
}

var bulkUntagCmd = &cobra.Command{
	Use:   "untag <tag>...",
	Short: "Remove tags from every selected item",
	Long: `Remove tags from every selected item. Tags an item does not carry are
ignored rather than failed.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runBulk(cmd, []rpc.ActionArg{{
			Kind: string(types.ActionRemoveTag),
			Tags: args,
		}})
	},
}

func init() {
	bulkCmd.AddCommand(bulkTagCmd)
	bulkCmd.AddCommand(bulkUntagCmd)
}
