package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/inbox-ai/internal/logging"
	"github.com/nhle/inbox-ai/internal/model"
	"github.com/nhle/inbox-ai/internal/store"
)

// Version is set via ldflags at build time.
var Version = "dev"

var (
	configPath string

	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#16a34a"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	boldStyle    = lipgloss.NewStyle().Bold(true)

	urgentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#dc2626"))
	highStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#d97706"))
	lowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
)

var rootCmd = &cobra.Command{
	Use:           "inboxai",
	Short:         "inboxai - Pull, analyze, and triage your inbox locally",
	Long:          "Inbox AI syncs mail over IMAP into a local database and enriches it with summaries, priorities, categories, follow-ups, and reply drafts from a local model.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("inboxai version %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file path (default: ~/.config/inboxai/config.yaml)")
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the configuration from the --config flag or the
// default location.
func loadConfig() (*model.AppConfig, error) {
	path := configPath
	if path == "" {
		path = model.DefaultConfigPath()
	}
	return model.LoadConfig(path)
}

// setup loads the configuration and builds the logger and store every
// data command needs.
func setup() (*model.AppConfig, *zap.Logger, store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("building logger: %w", err)
	}

	st, err := store.NewSQLiteStore(cfg.Storage.DBPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database: %w", err)
	}

	return cfg, logger, st, nil
}

// priorityBadge renders a priority score with its label, colored by
// severity.
func priorityBadge(priority int) string {
	label := fmt.Sprintf("P%d", priority)
	switch {
	case priority >= 9:
		return urgentStyle.Render(label)
	case priority >= 7:
		return highStyle.Render(label)
	case priority >= 4:
		return boldStyle.Render(label)
	default:
		return lowStyle.Render(label)
	}
}

// truncate shortens s to max runes with an ellipsis.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
