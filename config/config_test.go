package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func configPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config", "config.yaml")
}

func TestLoadConfigCreatesDefaults(t *testing.T) {
	path := configPath(t)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "https://www.linkedin.com/login", cfg.LinkedIn.LoginURL)
	assert.Equal(t, "https://www.linkedin.com/feed/", cfg.LinkedIn.ProbeURL)
	assert.Equal(t, "https://www.linkedin.com", cfg.LinkedIn.BaseURL)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 1920, cfg.Browser.ViewportWidth)
	assert.NotEmpty(t, cfg.Browser.UserAgent)
	assert.Equal(t, "imap.gmail.com:993", cfg.Mailbox.Address)
	assert.Equal(t, "linkedin.com", cfg.Mailbox.SenderFilter)
	assert.Equal(t, "verification", cfg.Mailbox.SubjectMarker)
	assert.Equal(t, 10*time.Second, cfg.Timing.FieldWait)
	assert.Equal(t, 3*time.Second, cfg.Timing.PollInterval)
	assert.Equal(t, 60*time.Second, cfg.Timing.CodeTimeout)
	assert.Equal(t, 20, cfg.Limits.DailyLogins)
	assert.Equal(t, "./data/sentinel.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "./sessions", cfg.Storage.SessionDir)
	assert.Equal(t, "info", cfg.Logging.Level)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config file must be written")
}

func TestLoadConfigReloadsGeneratedFile(t *testing.T) {
	path := configPath(t)

	first, err := LoadConfig(path)
	require.NoError(t, err)

	second, err := LoadConfig(path)
	require.NoError(t, err, "the generated file must pass validation when read back")
	assert.Equal(t, first, second)
}

func TestLoadConfigReadsUnderscoreKeys(t *testing.T) {
	path := configPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))

	contents := `linkedin:
  email: "user@example.com"
  login_url: "https://example.test/login"
  probe_url: "https://example.test/home"
browser:
  user_agent: "test-agent"
  viewport_width: 800
mailbox:
  app_password: "abcd efgh"
  sender_filter: "example.test"
timing:
  poll_interval: "2s"
  code_timeout: "30s"
limits:
  daily_logins: 3
storage:
  database_path: "./tmp/test.db"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "user@example.com", cfg.LinkedIn.Email)
	assert.Equal(t, "https://example.test/login", cfg.LinkedIn.LoginURL)
	assert.Equal(t, "https://example.test/home", cfg.LinkedIn.ProbeURL)
	assert.Equal(t, "test-agent", cfg.Browser.UserAgent)
	assert.Equal(t, 800, cfg.Browser.ViewportWidth)
	assert.Equal(t, "abcd efgh", cfg.Mailbox.AppPassword)
	assert.Equal(t, "example.test", cfg.Mailbox.SenderFilter)
	assert.Equal(t, 2*time.Second, cfg.Timing.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.Timing.CodeTimeout)
	assert.Equal(t, 3, cfg.Limits.DailyLogins)
	assert.Equal(t, "./tmp/test.db", cfg.Storage.DatabasePath)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("LINKEDIN_EMAIL", "env-user@example.com")
	t.Setenv("LINKEDIN_PASSWORD", "env-secret")
	t.Setenv("GMAIL_EMAIL", "env-inbox@example.com")
	t.Setenv("GMAIL_APP_PASSWORD", "env-app-password")

	cfg, err := LoadConfig(configPath(t))
	require.NoError(t, err)

	assert.Equal(t, "env-user@example.com", cfg.LinkedIn.Email)
	assert.Equal(t, "env-secret", cfg.LinkedIn.Password)
	assert.Equal(t, "env-inbox@example.com", cfg.Mailbox.Email)
	assert.Equal(t, "env-app-password", cfg.Mailbox.AppPassword)
}

func TestLoadConfigRejectsZeroPollInterval(t *testing.T) {
	path := configPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("timing:\n  poll_interval: \"0s\"\n"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll interval must be positive")
}

func TestLoadConfigRejectsZeroDailyLogins(t *testing.T) {
	path := configPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("limits:\n  daily_logins: 0\n"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daily logins must be positive")
}
