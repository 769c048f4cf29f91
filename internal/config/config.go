// Package config loads lasso settings from config.yaml and the environment.
// Environment variables take precedence over file values; everything has a
// workable default except the remote credentials.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultHandleTTL bounds how long an issued query handle stays valid.
	DefaultHandleTTL = time.Hour
	// DefaultSweepInterval is how often expired handles are evicted.
	DefaultSweepInterval = 5 * time.Minute
	// DefaultMaxConcurrent bounds in-flight mutations per action.
	DefaultMaxConcurrent = 8
	// DefaultMaxAttempts is the total tries per item on transient failures.
	DefaultMaxAttempts = 3
	// DefaultServeAddr is where serve mode listens.
	DefaultServeAddr = ":7171"
)

// Config is a loaded configuration. Zero value is not usable; call Load.
type Config struct {
	v *viper.Viper
}

// Load reads configuration from the given file path. An empty path searches
// ./lasso.yaml then ~/.lasso/config.yaml. A missing file is not an error;
// defaults and environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("model", "")
	v.SetDefault("handle-ttl", DefaultHandleTTL)
	v.SetDefault("sweep-interval", DefaultSweepInterval)
	v.SetDefault("max-concurrent", DefaultMaxConcurrent)
	v.SetDefault("max-attempts", DefaultMaxAttempts)
	v.SetDefault("deadline", time.Duration(0))
	v.SetDefault("log-level", "info")
	v.SetDefault("log-format", "text")
	v.SetDefault("serve.addr", DefaultServeAddr)

	// LASSO_MAX_CONCURRENT and friends override file values.
	v.SetEnvPrefix("LASSO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Credentials keep their conventional names.
	_ = v.BindEnv("organization", "AZURE_DEVOPS_ORGANIZATION")
	_ = v.BindEnv("project", "AZURE_DEVOPS_PROJECT")
	_ = v.BindEnv("pat", "AZURE_DEVOPS_PAT")
	_ = v.BindEnv("anthropic-api-key", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("serve.token", "LASSO_SERVE_TOKEN")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		return &Config{v: v}, nil
	}

	for _, candidate := range []string{"lasso.yaml", filepath.Join(Dir(), "config.yaml")} {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		v.SetConfigFile(candidate)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", candidate, err)
		}
		break
	}
	return &Config{v: v}, nil
}

// Dir returns the lasso home directory, honoring LASSO_HOME.
func Dir() string {
	if dir := os.Getenv("LASSO_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lasso"
	}
	return filepath.Join(home, ".lasso")
}

// Organization is the Azure DevOps organization name or base URL.
func (c *Config) Organization() string { return c.v.GetString("organization") }

// Project is the Azure DevOps project.
func (c *Config) Project() string { return c.v.GetString("project") }

// PAT is the Azure DevOps personal access token.
func (c *Config) PAT() string { return c.v.GetString("pat") }

// AnthropicAPIKey is the key for content generation calls.
func (c *Config) AnthropicAPIKey() string { return c.v.GetString("anthropic-api-key") }

// Model overrides the content generation model; empty picks the default.
func (c *Config) Model() string { return c.v.GetString("model") }

// HandleTTL is the default lifetime of issued query handles.
func (c *Config) HandleTTL() time.Duration { return c.v.GetDuration("handle-ttl") }

// SweepInterval is how often the handle store evicts expired entries.
func (c *Config) SweepInterval() time.Duration { return c.v.GetDuration("sweep-interval") }

// MaxConcurrent bounds in-flight mutations per action.
func (c *Config) MaxConcurrent() int { return c.v.GetInt("max-concurrent") }

// MaxAttempts is the total tries per item on transient failures.
func (c *Config) MaxAttempts() int { return c.v.GetInt("max-attempts") }

// Deadline is the default wall-clock bound for bulk calls; zero means none.
func (c *Config) Deadline() time.Duration { return c.v.GetDuration("deadline") }

// PlaybookDir is where user playbook files live.
func (c *Config) PlaybookDir() string {
	if dir := c.v.GetString("playbook-dir"); dir != "" {
		return dir
	}
	return filepath.Join(Dir(), "playbooks")
}

// ServeAddr is the listen address for serve mode.
func (c *Config) ServeAddr() string { return c.v.GetString("serve.addr") }

// ServeToken is the bearer token serve mode requires; empty disables auth.
func (c *Config) ServeToken() string { return c.v.GetString("serve.token") }

// LogLevel maps the configured level name to slog.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.v.GetString("log-level")) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogFormat is "text" or "json".
func (c *Config) LogFormat() string { return c.v.GetString("log-format") }

// ValidateRemote reports what is missing for talking to the remote store.
// An empty result means the remote is fully configured.
func (c *Config) ValidateRemote() []string {
	var issues []string
	if c.Organization() == "" {
		issues = append(issues, "organization: set it in config.yaml or AZURE_DEVOPS_ORGANIZATION")
	}
	if c.Project() == "" {
		issues = append(issues, "project: set it in config.yaml or AZURE_DEVOPS_PROJECT")
	}
	if c.PAT() == "" {
		issues = append(issues, "pat: set AZURE_DEVOPS_PAT")
	}
	return issues
}

// ValidateEnhance reports what is missing for content generation.
func (c *Config) ValidateEnhance() []string {
	if c.AnthropicAPIKey() == "" && os.Getenv("ANTHROPIC_API_KEY") == "" {
		return []string{"anthropic-api-key: set ANTHROPIC_API_KEY"}
	}
	return nil
}
