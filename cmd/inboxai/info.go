package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/inbox-ai/internal/store"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show resolved configuration and database stats",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, st, err := setup()
		if err != nil {
			return err
		}
		defer st.Close()
		defer logger.Sync()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, boldStyle.Render("Configuration"))
		fmt.Fprintf(out, "  IMAP: %s@%s:%s mailbox=%s tls=%t\n",
			cfg.IMAP.Username, cfg.IMAP.Host, cfg.IMAP.Port, cfg.IMAP.Mailbox, cfg.IMAP.TLS)
		fmt.Fprintf(out, "  Model: %s at %s (fallback=%t)\n",
			cfg.LLM.Model, cfg.LLM.BaseURL, cfg.LLM.FallbackEnabled)
		fmt.Fprintf(out, "  Database: %s\n", cfg.Storage.DBPath)
		fmt.Fprintf(out, "  Sync: batch=%d analysis_batch=%d max=%d\n",
			cfg.Sync.BatchSize, cfg.Sync.AnalysisBatchSize, cfg.Sync.MaxMessages)
		fmt.Fprintf(out, "  User: %s excluded=%v\n",
			cfg.User.Email, cfg.User.ExcludedCategories)

		checkpoint, err := st.GetCheckpoint(ctx, cfg.IMAP.Mailbox)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, boldStyle.Render("State"))
		if checkpoint == nil {
			fmt.Fprintln(out, mutedStyle.Render("  No sync has run yet."))
		} else {
			fmt.Fprintf(out, "  Checkpoint: %s at UID %d\n", checkpoint.Mailbox, checkpoint.LastUID)
		}

		total, err := st.CountInsights(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  Insights: %d\n", total)

		records, err := st.ListRecentInsights(ctx, store.InsightFilter{Limit: 5})
		if err != nil {
			return err
		}
		if len(records) > 0 {
			fmt.Fprintln(out, boldStyle.Render("Recent insights"))
			for _, r := range records {
				fmt.Fprintf(out, "  %s %s %s\n",
					priorityBadge(r.Insight.Priority),
					truncate(r.Envelope.Subject, 50),
					mutedStyle.Render(truncate(r.Insight.Summary, 60)))
			}
		}

		drafts, err := st.ListRecentDrafts(ctx, 5)
		if err != nil {
			return err
		}
		if len(drafts) > 0 {
			fmt.Fprintln(out, boldStyle.Render("Recent drafts"))
			for _, d := range drafts {
				fmt.Fprintf(out, "  uid %d via %s: %s\n",
					d.EmailUID, d.Provider, mutedStyle.Render(truncate(d.Body, 60)))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
