package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/lasso/internal/playbook"
	"github.com/steveyegge/lasso/internal/rpc"
)

var playbookCmd = &cobra.Command{
	Use:     "playbook",
	GroupID: "bulk",
	Short:   "Run and list reusable bulk-action sequences",
	Long: `Playbooks are TOML or YAML files bundling a selector with an action
sequence, for runs an agent or a cron job repeats. A few ship built in; your
own live in the playbook directory (config playbook-dir) or anywhere a path
points to.`,
}

var playbookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available playbooks",
	Run: func(cmd *cobra.Command, args []string) {
		dir := cfg.PlaybookDir()
		names, err := playbook.Names(dir)
		if err != nil {
			FatalError("%v", err)
		}
		if jsonOutput {
			outputJSON(names)
			return
		}
		for _, name := range names {
			pb, err := playbook.Get(name, dir)
			if err != nil {
				WarnError("%s: %v", name, err)
				continue
			}
			line := fmt.Sprintf("%-20s %s", name, pb.Description)
			if playbook.IsBuiltin(name) && !playbook.InDir(name, dir) {
				line += "  (built-in)"
			}
			fmt.Println(line)
		}
	},
}

var playbookRunCmd = &cobra.Command{
	Use:   "run <name-or-path>",
	Short: "Execute a playbook against a query or handle",
	Long: `Execute a playbook. The selection comes from the playbook itself; the
items come from --handle or the query flags, exactly as with bulk. A
playbook that sets dry_run or stop_on_error pins those on; the flags can
only add restrictions, not lift the playbook's own.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pb, err := playbook.Get(args[0], cfg.PlaybookDir())
		if err != nil {
			FatalError("%v", err)
		}
		// Surface selector and action mistakes before any capture happens.
		if _, _, err := pb.Compile(); err != nil {
			FatalError("playbook %s: %v", pb.Name, err)
		}

		if pb.DryRun {
			bulkDryRun = true
		}
		if pb.StopOnError {
			bulkStopOnError = true
		}
		if pb.MaxConcurrent > 0 {
			bulkMaxConcurrent = pb.MaxConcurrent
		}

		sel := selectorArgFromSpec(pb.Selector)
		actions := make([]rpc.ActionArg, len(pb.Actions))
		for i, spec := range pb.Actions {
			actions[i] = actionArgFromSpec(spec)
		}

		if !jsonOutput {
			fmt.Printf("Running playbook %s (%d action(s))\n", pb.Name, len(actions))
		}
		if serverClient != nil {
			runBulkServer(cmd, sel, actions)
			return
		}
		runBulkDirect(cmd, sel, actions)
	},
}

func init() {
	registerQueryFlags(playbookRunCmd.Flags())
	registerExecutionFlags(playbookRunCmd.Flags())
	playbookCmd.AddCommand(playbookListCmd)
	playbookCmd.AddCommand(playbookRunCmd)
	rootCmd.AddCommand(playbookCmd)
}

// selectorArgFromSpec converts a playbook selector to the wire shape.
func selectorArgFromSpec(spec playbook.SelectorSpec) rpc.SelectorArg {
	return rpc.SelectorArg{
		Kind:            spec.Kind,
		Indices:         spec.Indices,
		States:          spec.States,
		Tags:            spec.Tags,
		TitleContains:   spec.TitleContains,
		DaysInactiveMin: spec.DaysInactiveMin,
		DaysInactiveMax: spec.DaysInactiveMax,
	}
}

// actionArgFromSpec converts one playbook action to the wire shape.
func actionArgFromSpec(spec playbook.ActionSpec) rpc.ActionArg {
	return rpc.ActionArg{
		Kind:          spec.Kind,
		Text:          spec.Text,
		Ops:           spec.Ops,
		Assignee:      spec.Assignee,
		Reason:        spec.Reason,
		Tags:          spec.Tags,
		State:         spec.State,
		IterationPath: spec.IterationPath,
		NewType:       spec.NewType,
		Enhance:       spec.Enhance,
		Format:        spec.Format,
		Notes:         spec.Notes,
	}
}
