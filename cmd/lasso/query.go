package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/steveyegge/lasso/internal/remote/azuredevops"
	"github.com/steveyegge/lasso/internal/rpc"
	"github.com/steveyegge/lasso/internal/timeparsing"
	"github.com/steveyegge/lasso/internal/ui"
)

var queryCmd = &cobra.Command{
	Use:     "query [wiql]",
	GroupID: "query",
	Short:   "Run a work-item query",
	Long: `Run a WIQL query against the remote store.

Against a serve-mode instance (--server) the matching items are captured as
an immutable snapshot behind a new query handle; the printed token is what
later selections and bulk runs refer to. Without a server the items are
fetched and printed as a preview, indices included, but nothing outlives the
process.

The query comes from the positional WIQL argument, --wiql, or is assembled
from the structured flags (--state, --type, --tag, --inactive-since).`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		wiql, err := wiqlFromFlags(cmd, args)
		if err != nil {
			FatalError("%v", err)
		}

		if serverClient != nil {
			ttl, _ := cmd.Flags().GetDuration("ttl")
			result, err := serverClient.RunQuery(rootCtx, rpc.RunQueryArgs{
				Query:      wiql,
				TTLSeconds: int(ttl / time.Second),
			})
			if err != nil {
				fatalCallError(err)
			}
			if jsonOutput {
				outputJSON(result)
				return
			}
			fmt.Printf("Issued handle %s over %d item(s)\n", result.Token, result.ItemCount)
			return
		}

		executor := azuredevops.NewExecutor(newADOClient())
		snaps, err := executor.Run(rootCtx, wiql)
		if err != nil {
			fatalClassified(err)
		}
		if jsonOutput {
			outputJSON(snaps)
			return
		}
		fmt.Print(ui.RenderSnapshots(snaps))
		fmt.Printf("\n%d item(s). Point --server at a serve-mode instance to hold results behind a handle.\n", len(snaps))
	},
}

func init() {
	registerQueryFlags(queryCmd.Flags())
	queryCmd.Flags().Duration("ttl", 0, "Handle lifetime when issued on a server (default: server's TTL)")
	rootCmd.AddCommand(queryCmd)
}

// registerQueryFlags declares the flags that name or assemble a WIQL query.
// Shared by query, the bulk subcommands, and playbook run.
func registerQueryFlags(flags *pflag.FlagSet) {
	flags.String("wiql", "", "Hand-written WIQL query")
	flags.StringSlice("state", nil, "Match items in any of these states (repeatable)")
	flags.StringSlice("type", nil, "Match items of any of these work item types (repeatable)")
	flags.String("tag", "", "Match items carrying this tag")
	flags.String("inactive-since", "", "Match items unchanged since (\"90d\", \"2026-01-01\", \"3 months ago\")")
	flags.Int("min-days-inactive", 0, "Match items unchanged for at least this many days")
}

// wiqlFromFlags returns the explicit WIQL (positional or --wiql) or builds a
// query from the structured flags. Mixing the two forms is an error.
func wiqlFromFlags(cmd *cobra.Command, args []string) (string, error) {
	wiql, _ := cmd.Flags().GetString("wiql")
	if wiql == "" && len(args) > 0 {
		wiql = strings.TrimSpace(args[0])
	}

	structured := cmd.Flags().Changed("state") || cmd.Flags().Changed("type") ||
		cmd.Flags().Changed("tag") || cmd.Flags().Changed("inactive-since") ||
		cmd.Flags().Changed("min-days-inactive")

	if wiql != "" {
		if structured {
			return "", errors.New("pass either WIQL or structured query flags, not both")
		}
		return wiql, nil
	}
	if !structured {
		return "", errors.New("nothing to query: pass WIQL or structured flags (--state, --tag, --inactive-since)")
	}

	states, _ := cmd.Flags().GetStringSlice("state")
	itemTypes, _ := cmd.Flags().GetStringSlice("type")
	tag, _ := cmd.Flags().GetString("tag")

	opts := azuredevops.QueryOptions{
		States: states,
		Types:  itemTypes,
		Tag:    tag,
	}

	if since, _ := cmd.Flags().GetString("inactive-since"); since != "" {
		cutoff, err := timeparsing.ParseInactivityCutoff(since, time.Now())
		if err != nil {
			return "", fmt.Errorf("--inactive-since: %w", err)
		}
		opts.InactiveSince = &cutoff
	} else if days, _ := cmd.Flags().GetInt("min-days-inactive"); days > 0 {
		cutoff := time.Now().AddDate(0, 0, -days)
		opts.InactiveSince = &cutoff
	}

	return azuredevops.BuildWIQL(opts), nil
}
