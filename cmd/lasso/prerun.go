package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/steveyegge/lasso/internal/config"
	"github.com/steveyegge/lasso/internal/rpc"
	"github.com/steveyegge/lasso/internal/telemetry"
)

var (
	cfg    *config.Config
	logger *slog.Logger

	// serverClient is non-nil when --server or LASSO_SERVER points at a
	// serve-mode instance. Commands then go over HTTP instead of wiring the
	// remote store in-process.
	serverClient *rpc.Client

	rootCtx    context.Context
	rootCancel context.CancelFunc
)

// setupSignalContext creates the context every command runs under. Ctrl-C or
// SIGTERM cancels it, which stops in-flight bulk work at an item boundary.
func setupSignalContext() {
	rootCtx, rootCancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// loadConfig reads the config file plus LASSO_* environment overrides.
func loadConfig() {
	c, err := config.Load(cfgFile)
	if err != nil {
		FatalError("%v", err)
	}
	cfg = c
}

// setupLogging installs the process-wide slog handler. --verbose and --quiet
// win over the configured level.
func setupLogging() {
	level := cfg.LogLevel()
	if verboseFlag {
		level = slog.LevelDebug
	}
	if quietFlag {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat() == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// initTelemetry starts the OTel providers. Init is a no-op unless
// LASSO_OTEL_ENABLED=true, so plain CLI runs pay nothing for it.
func initTelemetry() {
	if err := telemetry.Init(rootCtx, "lasso", Version); err != nil {
		WarnError("telemetry init failed: %v", err)
	}
}

func shutdownTelemetry() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	telemetry.Shutdown(ctx)
}

// connectServer builds the HTTP client when a serve-mode URL is configured.
// The bearer token comes from the same config key the server reads, so one
// LASSO_SERVE_TOKEN works on both ends.
func connectServer() {
	url := serverURL
	if url == "" {
		url = os.Getenv("LASSO_SERVER")
	}
	if url == "" {
		return
	}
	rpc.ClientVersion = Version
	serverClient = rpc.NewClient(url, cfg.ServeToken())
	serverClient.SetActor(resolveActor())
}

// resolveActor picks the identity recorded on mutations: --actor, then
// LASSO_ACTOR, then the system user.
func resolveActor() string {
	if actorFlag != "" {
		return actorFlag
	}
	if a := os.Getenv("LASSO_ACTOR"); a != "" {
		return a
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}

// requireServer fails commands that only make sense against a live handle
// store.
func requireServer() *rpc.Client {
	if serverClient == nil {
		FatalErrorWithHint("no server configured",
			"handles live inside a serve-mode process; pass --server or set LASSO_SERVER")
	}
	return serverClient
}
