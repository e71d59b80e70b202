package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/retry"
)

func TestLoad_EnvironmentDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GITHUB_TOKEN", "secret")
	t.Setenv("LOG_FORMAT", "JSON")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.GitHub.Token)
	assert.Equal(t, "behavioral-health/website", cfg.GitHub.Repo)
	assert.Equal(t, "main", cfg.GitHub.Branch)
	assert.Equal(t, 10*time.Second, cfg.Publish.StoreTimeout)
	assert.Equal(t, 5*time.Second, cfg.Deploy.Timeout)
	assert.Equal(t, "Update site content via CMS", cfg.Publish.CommitMessage)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
	assert.Equal(t, DefaultTargets(), cfg.Targets)
	assert.Empty(t, cfg.Deploy.BuildHookURL)
	assert.True(t, cfg.UsesStore(StoreGitHub))
	assert.False(t, cfg.UsesStore(StoreS3))
}

func TestLoad_MissingTokenIsNotALoadError(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GITHUB_TOKEN", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.GitHub.Token)
}

func TestLoad_DotEnvDoesNotOverrideProcessEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GITHUB_REPO=from/dotenv\nGITHUB_BRANCH=dotenv-branch\n"), 0o600))
	t.Setenv("GITHUB_BRANCH", "process-branch")
	t.Setenv("GITHUB_REPO", "")
	// t.Setenv registers the original value for restore; unset so .env can supply it.
	require.NoError(t, os.Unsetenv("GITHUB_REPO"))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from/dotenv", cfg.GitHub.Repo)
	assert.Equal(t, "process-branch", cfg.GitHub.Branch)
}

func TestLoad_YAMLFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "sitepublisher.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
publish:
  store_timeout: 3s
  retry:
    mode: linear
    max_retries: 1
deploy:
  build_hook_url: https://api.netlify.com/build_hooks/abc
targets:
  - id: main
    store: MEMORY
    path: site.json
`), 0o600))
	t.Setenv("PUBLISH_COMMIT_MESSAGE", "from env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Publish.StoreTimeout)
	assert.Equal(t, "from env", cfg.Publish.CommitMessage)
	assert.Equal(t, "https://api.netlify.com/build_hooks/abc", cfg.Deploy.BuildHookURL)
	require.Len(t, cfg.Targets, 1)
	assert.Equal(t, StoreMemory, cfg.Targets[0].Store)

	p := cfg.RetryPolicy()
	assert.Equal(t, retry.ModeLinear, p.Mode)
	assert.Equal(t, 1, p.MaxRetries)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no targets", func(c *Config) { c.Targets = nil }},
		{"duplicate id", func(c *Config) { c.Targets[1].ID = c.Targets[0].ID }},
		{"empty id", func(c *Config) { c.Targets[0].ID = "" }},
		{"empty path", func(c *Config) { c.Targets[0].Path = "" }},
		{"unknown store", func(c *Config) { c.Targets[0].Store = "ftp" }},
		{"zero store timeout", func(c *Config) { c.Publish.StoreTimeout = 0 }},
		{"zero concurrency", func(c *Config) { c.Publish.Concurrency = 0 }},
		{"bad retry mode", func(c *Config) { c.Publish.Retry.Mode = "random" }},
		{"negative retries", func(c *Config) { c.Publish.Retry.MaxRetries = -1 }},
		{"zero deploy timeout", func(c *Config) { c.Deploy.Timeout = 0 }},
		{"relative hook url", func(c *Config) { c.Deploy.BuildHookURL = "/hooks/abc" }},
		{"ftp hook url", func(c *Config) { c.Deploy.BuildHookURL = "ftp://example.com/x" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Sample()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
		})
	}

	cfg := Sample()
	assert.NoError(t, cfg.Validate())
}

func TestWriteSample_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "sitepublisher.yaml")

	require.NoError(t, WriteSample(path, false))
	require.Error(t, WriteSample(path, false))
	require.NoError(t, WriteSample(path, true))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "store_timeout: 10s")
	assert.Contains(t, string(data), "src/data/siteContent.json")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Sample().Publish, cfg.Publish)
	assert.Equal(t, Sample().Targets, cfg.Targets)
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelWarn, NormalizeLogLevel("WARNING"))
	assert.Equal(t, LogLevelInfo, NormalizeLogLevel("chatty"))
	assert.Equal(t, LogLevelDebug.SlogLevel().String(), "DEBUG")
}
