package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"AZURE_DEVOPS_ORGANIZATION", "AZURE_DEVOPS_PROJECT", "AZURE_DEVOPS_PAT",
		"ANTHROPIC_API_KEY", "LASSO_SERVE_TOKEN", "LASSO_MAX_CONCURRENT",
		"LASSO_HANDLE_TTL", "LASSO_HOME",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultHandleTTL, cfg.HandleTTL())
	assert.Equal(t, DefaultSweepInterval, cfg.SweepInterval())
	assert.Equal(t, DefaultMaxConcurrent, cfg.MaxConcurrent())
	assert.Equal(t, DefaultMaxAttempts, cfg.MaxAttempts())
	assert.Equal(t, time.Duration(0), cfg.Deadline())
	assert.Equal(t, DefaultServeAddr, cfg.ServeAddr())
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
	assert.Equal(t, "text", cfg.LogFormat())
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
organization: fabrikam
project: Website
handle-ttl: 30m
max-concurrent: 2
log-level: debug
serve:
  addr: "127.0.0.1:9999"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "fabrikam", cfg.Organization())
	assert.Equal(t, "Website", cfg.Project())
	assert.Equal(t, 30*time.Minute, cfg.HandleTTL())
	assert.Equal(t, 2, cfg.MaxConcurrent())
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
	assert.Equal(t, "127.0.0.1:9999", cfg.ServeAddr())
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
organization: from-file
pat: file-pat
max-concurrent: 2
`)
	t.Setenv("AZURE_DEVOPS_ORGANIZATION", "from-env")
	t.Setenv("AZURE_DEVOPS_PAT", "env-pat")
	t.Setenv("LASSO_MAX_CONCURRENT", "16")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Organization())
	assert.Equal(t, "env-pat", cfg.PAT())
	assert.Equal(t, 16, cfg.MaxConcurrent())
}

func TestCredentialEnvNames(t *testing.T) {
	clearEnv(t)
	t.Setenv("AZURE_DEVOPS_PROJECT", "Ops")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("LASSO_SERVE_TOKEN", "bearer-me")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "Ops", cfg.Project())
	assert.Equal(t, "sk-test", cfg.AnthropicAPIKey())
	assert.Equal(t, "bearer-me", cfg.ServeToken())
}

func TestValidateRemote(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	issues := cfg.ValidateRemote()
	assert.Len(t, issues, 3)

	t.Setenv("AZURE_DEVOPS_ORGANIZATION", "fabrikam")
	t.Setenv("AZURE_DEVOPS_PROJECT", "Website")
	t.Setenv("AZURE_DEVOPS_PAT", "pat")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.ValidateRemote())
}

func TestPlaybookDirDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("LASSO_HOME", "/tmp/lasso-home")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/lasso-home/playbooks", cfg.PlaybookDir())
}

func TestDirHonorsLassoHome(t *testing.T) {
	t.Setenv("LASSO_HOME", "/srv/lasso")
	assert.Equal(t, "/srv/lasso", Dir())
}

func TestLogLevels(t *testing.T) {
	clearEnv(t)
	for name, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
	} {
		path := writeConfig(t, "log-level: "+name+"\n")
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, want, cfg.LogLevel(), "level %s", name)
	}
}
