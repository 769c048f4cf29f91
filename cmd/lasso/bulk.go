package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/steveyegge/lasso"
	"github.com/steveyegge/lasso/internal/remote"
	"github.com/steveyegge/lasso/internal/remote/azuredevops"
	"github.com/steveyegge/lasso/internal/rpc"
	"github.com/steveyegge/lasso/internal/types"
	"github.com/steveyegge/lasso/internal/ui"
)

// confirmSample bounds how many selected items the confirmation prompt shows.
const confirmSample = 5

var (
	bulkHandle        string
	bulkDryRun        bool
	bulkStopOnError   bool
	bulkYes           bool
	bulkDeadline      time.Duration
	bulkMaxConcurrent int
)

var bulkCmd = &cobra.Command{
	Use:     "bulk",
	GroupID: "bulk",
	Short:   "Apply one action to every selected item",
	Long: `Apply a single action across a selection of captured work items.

Against a serve-mode instance, --handle names an existing query handle, or
the query flags issue a fresh one first. Without a server the query flags
are required: capture, selection, and mutation all happen inside this one
run, so no identifier from outside the capture can slip in.

Selection defaults to every captured item. Restrict it with --index or the
criteria flags (--match-state, --match-tag, --match-title, --min-inactive,
--max-inactive); the two styles cannot be combined.`,
}

func init() {
	flags := bulkCmd.PersistentFlags()
	registerQueryFlags(flags)
	registerSelectorFlags(flags)
	registerExecutionFlags(flags)
	rootCmd.AddCommand(bulkCmd)
}

// registerSelectorFlags declares the flags that narrow a selection.
func registerSelectorFlags(flags *pflag.FlagSet) {
	flags.IntSlice("index", nil, "Select items by zero-based snapshot index (repeatable)")
	flags.StringSlice("match-state", nil, "Select items in any of these states")
	flags.StringSlice("match-tag", nil, "Select items carrying all of these tags")
	flags.String("match-title", "", "Select items whose title contains this substring")
	flags.Int("min-inactive", 0, "Select items inactive for at least this many days")
	flags.Int("max-inactive", 0, "Select items inactive for at most this many days")
}

// registerExecutionFlags declares the flags that shape a bulk run. Shared
// with playbook run, which binds the same globals.
func registerExecutionFlags(flags *pflag.FlagSet) {
	flags.StringVar(&bulkHandle, "handle", "", "Existing query-handle token (serve mode)")
	flags.BoolVar(&bulkDryRun, "dry-run", false, "Validate and predict results without mutating")
	flags.BoolVar(&bulkStopOnError, "stop-on-error", false, "Skip remaining items and actions after the first failure")
	flags.BoolVar(&bulkYes, "yes", false, "Skip the confirmation prompt")
	flags.DurationVar(&bulkDeadline, "deadline", 0, "Wall-clock bound for the whole run (default: config deadline)")
}

// selectorArgFromFlags assembles the selection from --index or the criteria
// flags. No selector flags at all means every captured item.
func selectorArgFromFlags(cmd *cobra.Command) (rpc.SelectorArg, error) {
	indices, _ := cmd.Flags().GetIntSlice("index")
	states, _ := cmd.Flags().GetStringSlice("match-state")
	tags, _ := cmd.Flags().GetStringSlice("match-tag")
	title, _ := cmd.Flags().GetString("match-title")

	hasCriteria := len(states) > 0 || len(tags) > 0 || title != "" ||
		cmd.Flags().Changed("min-inactive") || cmd.Flags().Changed("max-inactive")

	if len(indices) > 0 && hasCriteria {
		return rpc.SelectorArg{}, errors.New("--index cannot be combined with criteria flags")
	}
	if len(indices) > 0 {
		return rpc.SelectorArg{Kind: string(types.SelectorIndex), Indices: indices}, nil
	}
	if hasCriteria {
		arg := rpc.SelectorArg{
			Kind:          string(types.SelectorCriteria),
			States:        states,
			Tags:          tags,
			TitleContains: title,
		}
		if cmd.Flags().Changed("min-inactive") {
			minDays, _ := cmd.Flags().GetInt("min-inactive")
			arg.DaysInactiveMin = &minDays
		}
		if cmd.Flags().Changed("max-inactive") {
			maxDays, _ := cmd.Flags().GetInt("max-inactive")
			arg.DaysInactiveMax = &maxDays
		}
		return arg, nil
	}
	return rpc.SelectorArg{Kind: string(types.SelectorAll)}, nil
}

// runBulk resolves the selection and dispatches the actions. Every bulk
// subcommand funnels through here.
func runBulk(cmd *cobra.Command, actions []rpc.ActionArg) {
	sel, err := selectorArgFromFlags(cmd)
	if err != nil {
		FatalError("%v", err)
	}

	if serverClient != nil {
		runBulkServer(cmd, sel, actions)
		return
	}
	runBulkDirect(cmd, sel, actions)
}

// runBulkServer drives a bulk run against a serve-mode instance: reuse or
// issue a handle, preview the selection, confirm, execute.
func runBulkServer(cmd *cobra.Command, sel rpc.SelectorArg, actions []rpc.ActionArg) {
	token := bulkHandle
	if token == "" {
		wiql, err := wiqlFromFlags(cmd, nil)
		if err != nil {
			FatalErrorWithHint(err.Error(),
				"pass --handle <token> or query flags to issue a fresh handle")
		}
		issued, err := serverClient.RunQuery(rootCtx, rpc.RunQueryArgs{Query: wiql})
		if err != nil {
			fatalCallError(err)
		}
		token = issued.Token
		if !jsonOutput {
			fmt.Printf("Issued handle %s over %d item(s)\n", issued.Token, issued.ItemCount)
		}
	}

	preview, err := serverClient.ResolveSelection(rootCtx, rpc.ResolveSelectionArgs{
		Token:    token,
		Selector: sel,
	})
	if err != nil {
		fatalCallError(err)
	}
	confirmBulk(actions, preview.Count, preview.Items)

	res, err := serverClient.ExecuteBulk(rootCtx, rpc.ExecuteBulkArgs{
		Token:       token,
		Selector:    sel,
		Actions:     actions,
		DryRun:      bulkDryRun,
		StopOnError: bulkStopOnError,
		DeadlineMS:  int(deadlineOrConfig().Milliseconds()),
	})
	if err != nil {
		fatalCallError(err)
	}
	reportResults(res)
}

// runBulkDirect wires the remote store in-process and runs capture,
// selection, and execution as one unit.
func runBulkDirect(cmd *cobra.Command, sel rpc.SelectorArg, actions []rpc.ActionArg) {
	if bulkHandle != "" {
		FatalErrorWithHint("--handle requires a server",
			"handles live inside a serve-mode process; pass --server or set LASSO_SERVER")
	}

	wiql, err := wiqlFromFlags(cmd, nil)
	if err != nil {
		FatalError("%v", err)
	}
	selector, err := sel.Decode()
	if err != nil {
		fatalClassified(err)
	}
	runtimeActions, err := rpc.DecodeActions(actions)
	if err != nil {
		fatalClassified(err)
	}

	client := newADOClient()
	var generator remote.ContentGenerator
	for _, act := range runtimeActions {
		if act.Kind() == types.ActionEnhance {
			generator = newGenerator()
			break
		}
	}

	maxConcurrent := cfg.MaxConcurrent()
	if bulkMaxConcurrent > 0 {
		maxConcurrent = bulkMaxConcurrent
	}
	svc := lasso.New(azuredevops.NewExecutor(client), azuredevops.NewMutator(client), generator, lasso.Options{
		HandleTTL:     cfg.HandleTTL(),
		MaxConcurrent: maxConcurrent,
		MaxAttempts:   cfg.MaxAttempts(),
		Logger:        logger,
	})

	token, count, err := svc.RunQuery(rootCtx, wiql, -1)
	if err != nil {
		fatalClassified(err)
	}
	if !jsonOutput {
		fmt.Printf("Captured %d item(s)\n", count)
	}

	selection, err := svc.ResolveSelection(token, selector)
	if err != nil {
		fatalClassified(err)
	}
	confirmBulk(actions, len(selection), selection)

	results, err := svc.ExecuteBulk(rootCtx, lasso.BulkRequest{
		Token:       token,
		Selector:    selector,
		Actions:     runtimeActions,
		DryRun:      bulkDryRun,
		StopOnError: bulkStopOnError,
		Deadline:    deadlineOrConfig(),
	})

	res := &rpc.ExecuteBulkResult{Results: results}
	if err != nil {
		code := lasso.Classify(err)
		if code != lasso.CodeDeadlineExceeded || len(results) == 0 {
			fatalClassified(err)
		}
		res.Code = string(code)
		res.Error = err.Error()
	}
	reportResults(res)
}

// confirmBulk prompts before mutating. Dry runs, --yes, --json, and
// non-interactive stdin all skip the prompt.
func confirmBulk(actions []rpc.ActionArg, count int, sample []types.WorkItemSnapshot) {
	if bulkDryRun || bulkYes || jsonOutput || !ui.IsTerminal() {
		return
	}
	if count == 0 {
		return
	}

	kinds := make([]string, len(actions))
	for i, a := range actions {
		kinds[i] = a.Kind
	}
	if len(sample) > confirmSample {
		sample = sample[:confirmSample]
	}
	fmt.Print(ui.RenderSnapshots(sample))
	if count > len(sample) {
		fmt.Printf("  ... and %d more\n", count-len(sample))
	}

	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Apply %s to %d item(s)?", strings.Join(kinds, ", "), count)).
				Affirmative("Apply").
				Negative("Cancel").
				Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintln(os.Stderr, "Cancelled.")
			os.Exit(0)
		}
		FatalError("confirmation failed: %v", err)
	}
	if !confirmed {
		fmt.Fprintln(os.Stderr, "Cancelled.")
		os.Exit(0)
	}
}

// reportResults renders outcomes and exits non-zero when anything failed or
// the run was cut short.
func reportResults(res *rpc.ExecuteBulkResult) {
	failed := false
	for i := range res.Results {
		if res.Results[i].Failed > 0 || res.Results[i].Skipped > 0 {
			failed = true
		}
	}

	if jsonOutput {
		outputJSON(res)
	} else {
		ptrs := make([]*types.BulkResult, len(res.Results))
		for i := range res.Results {
			ptrs[i] = &res.Results[i]
		}
		fmt.Print(ui.RenderBulkResults(ptrs))
		renderEnhancePreviews(res.Results)
		if res.Error != "" {
			WarnError("%s", res.Error)
		}
	}

	if res.Code != "" || failed {
		os.Exit(1)
	}
}

// renderEnhancePreviews prints generated content from enhance dry runs. The
// results table flattens multiline values, so full proposals get their own
// section, paged when long.
func renderEnhancePreviews(results []types.BulkResult) {
	var b strings.Builder
	for i := range results {
		res := &results[i]
		if res.Action != types.ActionEnhance || !res.DryRun {
			continue
		}
		for _, item := range res.Items {
			if item.AppliedValue == "" {
				continue
			}
			fmt.Fprintf(&b, "\n## Work item %d\n\n%s\n", item.ID, item.AppliedValue)
		}
	}
	if b.Len() == 0 {
		return
	}
	content := ui.RenderMarkdown("# Proposed content\n" + b.String())
	if err := ui.ToPager(content, ui.PagerOptions{}); err != nil {
		fmt.Print(content)
	}
}

// deadlineOrConfig resolves the effective bulk deadline.
func deadlineOrConfig() time.Duration {
	if bulkDeadline > 0 {
		return bulkDeadline
	}
	return cfg.Deadline()
}
