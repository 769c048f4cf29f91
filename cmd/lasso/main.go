// Command lasso is the CLI and server for bulk work-item operations.
//
// A query captures matching work items into an immutable snapshot behind an
// opaque handle token; selections and bulk actions then refer to the handle,
// so stale or restated item IDs never reach the remote store.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile     string
	serverURL   string
	actorFlag   string
	jsonOutput  bool
	verboseFlag bool
	quietFlag   bool
)

func init() {
	// Command groups for organized help output
	rootCmd.AddGroup(&cobra.Group{ID: "query", Title: "Queries & Handles:"})
	rootCmd.AddGroup(&cobra.Group{ID: "bulk", Title: "Bulk Operations:"})
	rootCmd.AddGroup(&cobra.Group{ID: "server", Title: "Server:"})

	// Register persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./lasso.yaml, then ~/.lasso/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Base URL of a serve-mode instance (default: $LASSO_SERVER)")
	rootCmd.PersistentFlags().StringVar(&actorFlag, "actor", "", "Actor name for the audit trail (default: $LASSO_ACTOR, $USER)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors only)")

	// Add --version flag to root command (same behavior as version subcommand)
	rootCmd.Flags().BoolP("version", "V", false, "Print version information")
}

var rootCmd = &cobra.Command{
	Use:   "lasso",
	Short: "lasso - Query-handle layer for bulk work-item operations",
	Long: `Bulk mutations without restated IDs. A query captures matching work items
into an immutable snapshot behind an opaque handle; every selection and bulk
action refers to that handle, so item IDs invented or remembered outside the
capture cannot reach the remote store.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Handle --version flag on root command
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("lasso version %s (%s)\n", Version, Build)
			return
		}
		// No subcommand - show help
		_ = cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupSignalContext()
		loadConfig()
		setupLogging()
		initTelemetry()
		connectServer()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		shutdownTelemetry()
		if rootCancel != nil {
			rootCancel()
		}
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
