package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// IMAPConfig holds connectivity settings for the mail source.
type IMAPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`

	// Password may be left empty in the config file; it is then resolved
	// through the system keyring instead.
	Password string `mapstructure:"password" yaml:"password"`

	Mailbox string `mapstructure:"mailbox" yaml:"mailbox"`
	TLS     bool   `mapstructure:"tls" yaml:"tls"`
}

// LLMConfig holds settings for the completion backend.
type LLMConfig struct {
	BaseURL         string  `mapstructure:"base_url" yaml:"base_url"`
	Model           string  `mapstructure:"model" yaml:"model"`
	TimeoutSec      int     `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxOutputTokens int     `mapstructure:"max_output_tokens" yaml:"max_output_tokens"`

	// FallbackEnabled controls whether deterministic heuristics run when
	// the backend fails.
	FallbackEnabled bool `mapstructure:"fallback_enabled" yaml:"fallback_enabled"`
}

// StorageConfig holds local persistence settings.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// SyncConfig controls fetch cadence and bounds.
type SyncConfig struct {
	// BatchSize is the number of messages fetched per source round trip.
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size"`

	// MaxMessages caps the messages processed in one run; zero means
	// unlimited.
	MaxMessages int `mapstructure:"max_messages" yaml:"max_messages"`

	// AnalysisBatchSize is the number of envelopes analyzed concurrently
	// by the optimized pipeline.
	AnalysisBatchSize int `mapstructure:"analysis_batch_size" yaml:"analysis_batch_size"`
}

// FollowUpConfig holds due-date estimation heuristics.
type FollowUpConfig struct {
	DefaultDueDays    int `mapstructure:"default_due_days" yaml:"default_due_days"`
	PriorityDueDays   int `mapstructure:"priority_due_days" yaml:"priority_due_days"`
	PriorityThreshold int `mapstructure:"priority_threshold" yaml:"priority_threshold"`
}

// UserConfig identifies the mailbox owner and category exclusions.
type UserConfig struct {
	// Email is the owner's address; drafts are only generated for
	// messages addressed to it.
	Email string `mapstructure:"email" yaml:"email"`

	// ExcludedCategories suppress drafting and follow-up planning.
	ExcludedCategories []string `mapstructure:"excluded_categories" yaml:"excluded_categories"`
}

// LoggingConfig holds logging preferences.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	IMAP     IMAPConfig     `mapstructure:"imap" yaml:"imap"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Sync     SyncConfig     `mapstructure:"sync" yaml:"sync"`
	FollowUp FollowUpConfig `mapstructure:"follow_up" yaml:"follow_up"`
	User     UserConfig     `mapstructure:"user" yaml:"user"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
}

// ExcludedCategorySet returns the excluded categories as a lookup set.
func (c AppConfig) ExcludedCategorySet() map[string]bool {
	set := make(map[string]bool, len(c.User.ExcludedCategories))
	for _, key := range c.User.ExcludedCategories {
		set[key] = true
	}
	return set
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/inboxai/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "inboxai", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		IMAP: IMAPConfig{
			Host:    "imap.gmail.com",
			Port:    "993",
			Mailbox: "INBOX",
			TLS:     true,
		},
		LLM: LLMConfig{
			BaseURL:         "http://localhost:11434",
			Model:           "gpt-oss:20b",
			TimeoutSec:      30,
			Temperature:     0.2,
			MaxOutputTokens: 512,
			FallbackEnabled: true,
		},
		Storage: StorageConfig{DBPath: "./inbox_ai.db"},
		Sync: SyncConfig{
			BatchSize:         50,
			AnalysisBatchSize: 5,
		},
		FollowUp: FollowUpConfig{
			DefaultDueDays:    3,
			PriorityDueDays:   1,
			PriorityThreshold: 8,
		},
		User: UserConfig{
			ExcludedCategories: []string{"marketing", "notification", "spam"},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("imap.host", "imap.gmail.com")
	v.SetDefault("imap.port", "993")
	v.SetDefault("imap.mailbox", "INBOX")
	v.SetDefault("imap.tls", true)
	v.SetDefault("llm.base_url", "http://localhost:11434")
	v.SetDefault("llm.model", "gpt-oss:20b")
	v.SetDefault("llm.timeout_sec", 30)
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_output_tokens", 512)
	v.SetDefault("llm.fallback_enabled", true)
	v.SetDefault("storage.db_path", "./inbox_ai.db")
	v.SetDefault("sync.batch_size", 50)
	v.SetDefault("sync.max_messages", 0)
	v.SetDefault("sync.analysis_batch_size", 5)
	v.SetDefault("follow_up.default_due_days", 3)
	v.SetDefault("follow_up.priority_due_days", 1)
	v.SetDefault("follow_up.priority_threshold", 8)
	v.SetDefault("user.excluded_categories", []string{"marketing", "notification", "spam"})
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.json", false)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Sync.BatchSize <= 0 {
		return nil, fmt.Errorf("sync.batch_size must be positive, got %d", cfg.Sync.BatchSize)
	}
	if cfg.Sync.AnalysisBatchSize <= 0 {
		return nil, fmt.Errorf("sync.analysis_batch_size must be positive, got %d", cfg.Sync.AnalysisBatchSize)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("imap", cfg.IMAP)
	v.Set("llm", cfg.LLM)
	v.Set("storage", cfg.Storage)
	v.Set("sync", cfg.Sync)
	v.Set("follow_up", cfg.FollowUp)
	v.Set("user", cfg.User)
	v.Set("logging", cfg.Logging)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
