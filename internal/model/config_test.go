package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, "imap.gmail.com", cfg.IMAP.Host)
	require.Equal(t, "INBOX", cfg.IMAP.Mailbox)
	require.Equal(t, 50, cfg.Sync.BatchSize)
	require.Equal(t, 5, cfg.Sync.AnalysisBatchSize)
	require.True(t, cfg.LLM.FallbackEnabled)
	require.Equal(t, []string{"marketing", "notification", "spam"}, cfg.User.ExcludedCategories)
}

func TestLoadConfigOverridesAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
imap:
  host: mail.internal
  username: me@example.com
sync:
  batch_size: 10
user:
  email: me@example.com
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "mail.internal", cfg.IMAP.Host)
	require.Equal(t, "993", cfg.IMAP.Port)
	require.Equal(t, 10, cfg.Sync.BatchSize)
	require.Equal(t, "me@example.com", cfg.User.Email)
	require.Equal(t, 3, cfg.FollowUp.DefaultDueDays)
}

func TestLoadConfigRejectsBadBatchSizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sync:\n  batch_size: 0\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := defaultAppConfig()
	cfg.User.Email = "me@example.com"
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "me@example.com", loaded.User.Email)
	require.Equal(t, cfg.IMAP.Host, loaded.IMAP.Host)
}

func TestExcludedCategorySet(t *testing.T) {
	cfg := AppConfig{User: UserConfig{ExcludedCategories: []string{"spam", "marketing"}}}
	set := cfg.ExcludedCategorySet()
	require.True(t, set["spam"])
	require.True(t, set["marketing"])
	require.False(t, set["meeting"])
}
