package main

import (
	"github.com/spf13/cobra"

	"github.com/steveyegge/lasso/internal/bulk"
	"github.com/steveyegge/lasso/internal/config"
	"github.com/steveyegge/lasso/internal/enhance"
	"github.com/steveyegge/lasso/internal/handle"
	"github.com/steveyegge/lasso/internal/remote"
	"github.com/steveyegge/lasso/internal/remote/azuredevops"
	"github.com/steveyegge/lasso/internal/rpc"
	"github.com/steveyegge/lasso/internal/service"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "server",
	Short:   "Run the bulk-operation service over HTTP",
	Long: `Run a long-lived process exposing the tool surface over HTTP.

Handles issued here outlive individual calls, which is the point: an agent
framework runs a query once, holds the token, and drives selections and
bulk runs against it. Requests carry a bearer token when --token or
LASSO_SERVE_TOKEN is set; /healthz, /readyz, and /metrics stay open for
probes either way.`,
	Run: func(cmd *cobra.Command, args []string) {
		client := newADOClient()

		var generator remote.ContentGenerator
		if cfg.AnthropicAPIKey() != "" {
			g, err := enhance.NewGenerator(cfg.AnthropicAPIKey(), cfg.Model())
			if err != nil {
				FatalError("%v", err)
			}
			generator = g
		} else {
			logger.Warn("enhance actions disabled", "reason", "anthropic api key not configured")
		}

		store := handle.NewStore(handle.Config{
			DefaultTTL: cfg.HandleTTL(),
			Logger:     logger,
		})
		store.StartSweeper(rootCtx, cfg.SweepInterval())

		dispatcher := bulk.NewDispatcher(azuredevops.NewMutator(client), generator, bulk.Config{
			MaxConcurrent: cfg.MaxConcurrent(),
			MaxAttempts:   cfg.MaxAttempts(),
			Logger:        logger,
		})
		svc := service.New(store, azuredevops.NewExecutor(client), dispatcher, service.Config{Logger: logger})

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = cfg.ServeAddr()
		}
		token, _ := cmd.Flags().GetString("token")
		if token == "" {
			token = cfg.ServeToken()
		}
		if token == "" {
			logger.Warn("serving without authentication", "hint", "set LASSO_SERVE_TOKEN or pass --token")
		}

		rpcSrv := rpc.NewServer(svc, rpc.ServerConfig{Version: Version, Logger: logger})
		httpSrv := rpc.NewHTTPServer(rpcSrv, addr, token)

		logger.Info("lasso serving",
			"addr", addr,
			"auth", token != "",
			"handle_ttl", cfg.HandleTTL().String(),
			"sweep_interval", cfg.SweepInterval().String())
		if err := httpSrv.Start(rootCtx); err != nil {
			FatalError("%v", err)
		}
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default: config serve.addr, else "+config.DefaultServeAddr+")")
	serveCmd.Flags().String("token", "", "Bearer token required on tool calls (default: $LASSO_SERVE_TOKEN)")
	rootCmd.AddCommand(serveCmd)
}
