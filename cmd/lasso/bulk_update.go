package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/steveyegge/lasso/internal/rpc"
	"github.com/steveyegge/lasso/internal/types"
)

var bulkUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Apply JSON-patch field updates to every selected item",
	Long: `Apply an ordered list of JSON-patch operations to every selected item.

--set is shorthand for a replace:

  lasso bulk update --set "/fields/System.Priority=2" --match-state Active

Use --ops with a JSON array for anything beyond replaces:

  lasso bulk update --ops '[{"op":"add","path":"/fields/System.Tags","value":"stale"}]'`,
	Run: func(cmd *cobra.Command, args []string) {
		ops, err := patchOpsFromFlags(cmd)
		if err != nil {
			FatalError("%v", err)
		}
		runBulk(cmd, []rpc.ActionArg{{
			Kind: string(types.ActionFieldUpdate),
			Ops:  ops,
		}})
	},
}

func init() {
	bulkUpdateCmd.Flags().String("ops", "", "JSON array of patch operations")
	bulkUpdateCmd.Flags().StringArray("set", nil, "Replace one field: path=value (repeatable)")
	bulkCmd.AddCommand(bulkUpdateCmd)
}

// patchOpsFromFlags merges --ops and --set into one operation list, --ops
// entries first.
func patchOpsFromFlags(cmd *cobra.Command) ([]types.PatchOperation, error) {
	var ops []types.PatchOperation

	if raw, _ := cmd.Flags().GetString("ops"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &ops); err != nil {
			return nil, fmt.Errorf("--ops: %w", err)
		}
	}

	sets, _ := cmd.Flags().GetStringArray("set")
	for _, s := range sets {
		path, value, ok := strings.Cut(s, "=")
		if !ok || path == "" {
			return nil, fmt.Errorf("--set %q: want path=value", s)
		}
		ops = append(ops, types.PatchOperation{Op: "replace", Path: path, Value: value})
	}
	return ops, nil
}
