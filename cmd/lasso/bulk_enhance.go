package main

import (
	"github.com/spf13/cobra"

	"github.com/steveyegge/lasso/internal/rpc"
	"github.com/steveyegge/lasso/internal/types"
)

var bulkEnhanceCmd = &cobra.Command{
	Use:   "enhance <kind>",
	Short: "Generate content for every selected item",
	Long: `Generate content per item with the configured model and write it back.

Kinds: description, acceptance_criteria, estimate. Generation sees only the
item's own snapshot fields. Run with --dry-run first: the proposed content
is rendered for review without touching the remote store.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")
		notes, _ := cmd.Flags().GetString("notes")
		runBulk(cmd, []rpc.ActionArg{{
			Kind:    string(types.ActionEnhance),
			Enhance: args[0],
			Format:  format,
			Notes:   notes,
		}})
	},
}

func init() {
	bulkEnhanceCmd.Flags().String("format", "", "Output shape hint (e.g. gherkin or checklist for acceptance_criteria)")
	bulkEnhanceCmd.Flags().String("notes", "", "Free-form guidance folded into the generation prompt")
	bulkCmd.AddCommand(bulkEnhanceCmd)
}
