package main

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/lasso/internal/types"
)

// newFlagCmd builds a throwaway command carrying the shared query and
// selector flags, parsed against args.
func newFlagCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test", Run: func(*cobra.Command, []string) {}}
	registerQueryFlags(cmd.Flags())
	registerSelectorFlags(cmd.Flags())
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestSelectorArgFromFlagsDefaultsToAll(t *testing.T) {
	cmd := newFlagCmd(t)

	sel, err := selectorArgFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, string(types.SelectorAll), sel.Kind)

	decoded, err := sel.Decode()
	require.NoError(t, err)
	assert.IsType(t, types.SelectAll{}, decoded)
}

func TestSelectorArgFromFlagsIndices(t *testing.T) {
	cmd := newFlagCmd(t, "--index", "0", "--index", "2", "--index", "7")

	sel, err := selectorArgFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, string(types.SelectorIndex), sel.Kind)
	assert.Equal(t, []int{0, 2, 7}, sel.Indices)
}

func TestSelectorArgFromFlagsCriteria(t *testing.T) {
	cmd := newFlagCmd(t,
		"--match-state", "Active",
		"--match-state", "New",
		"--match-tag", "stale",
		"--match-title", "login",
		"--min-inactive", "30")

	sel, err := selectorArgFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, string(types.SelectorCriteria), sel.Kind)
	assert.Equal(t, []string{"Active", "New"}, sel.States)
	assert.Equal(t, []string{"stale"}, sel.Tags)
	assert.Equal(t, "login", sel.TitleContains)
	require.NotNil(t, sel.DaysInactiveMin)
	assert.Equal(t, 30, *sel.DaysInactiveMin)
	assert.Nil(t, sel.DaysInactiveMax)

	decoded, err := sel.Decode()
	require.NoError(t, err)
	crit, ok := decoded.(types.SelectByCriteria)
	require.True(t, ok)
	assert.Equal(t, []string{"Active", "New"}, crit.States)
}

func TestSelectorArgFromFlagsZeroBoundStillCounts(t *testing.T) {
	// --max-inactive 0 is a real bound (nothing older than today), not an
	// unset flag.
	cmd := newFlagCmd(t, "--max-inactive", "0")

	sel, err := selectorArgFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, string(types.SelectorCriteria), sel.Kind)
	require.NotNil(t, sel.DaysInactiveMax)
	assert.Equal(t, 0, *sel.DaysInactiveMax)
}

func TestSelectorArgFromFlagsRejectsMixedStyles(t *testing.T) {
	cmd := newFlagCmd(t, "--index", "1", "--match-state", "Active")

	_, err := selectorArgFromFlags(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be combined")
}

func TestPatchOpsFromFlagsSet(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("ops", "", "")
	cmd.Flags().StringArray("set", nil, "")
	require.NoError(t, cmd.Flags().Parse([]string{
		"--set", "/fields/System.Priority=2",
		"--set", "/fields/System.AreaPath=Web\\Auth",
	}))

	ops, err := patchOpsFromFlags(cmd)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, "replace", ops[0].Op)
	assert.Equal(t, "/fields/System.Priority", ops[0].Path)
	assert.Equal(t, "2", ops[0].Value)
	assert.Equal(t, "Web\\Auth", ops[1].Value)
}

func TestPatchOpsFromFlagsMergesOpsBeforeSet(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("ops", "", "")
	cmd.Flags().StringArray("set", nil, "")
	require.NoError(t, cmd.Flags().Parse([]string{
		"--ops", `[{"op":"add","path":"/fields/System.Tags","value":"stale"}]`,
		"--set", "/fields/System.Priority=1",
	}))

	ops, err := patchOpsFromFlags(cmd)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, "add", ops[0].Op)
	assert.Equal(t, "replace", ops[1].Op)
}

func TestPatchOpsFromFlagsRejectsMalformedSet(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("ops", "", "")
	cmd.Flags().StringArray("set", nil, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--set", "no-equals-here"}))

	_, err := patchOpsFromFlags(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path=value")
}

func TestPatchOpsFromFlagsRejectsBadJSON(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("ops", "", "")
	cmd.Flags().StringArray("set", nil, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--ops", "{not json"}))

	_, err := patchOpsFromFlags(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--ops")
}

func TestDeadlineOrConfig(t *testing.T) {
	loadTestConfig(t, "deadline: 90s\n")
	t.Cleanup(func() { bulkDeadline = 0 })

	bulkDeadline = 0
	assert.Equal(t, 90*time.Second, deadlineOrConfig())

	bulkDeadline = 5 * time.Second
	assert.Equal(t, 5*time.Second, deadlineOrConfig())
}
