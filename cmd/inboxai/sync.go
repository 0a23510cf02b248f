package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nhle/inbox-ai/internal/credential"
	"github.com/nhle/inbox-ai/internal/ingest"
	"github.com/nhle/inbox-ai/internal/intelligence"
	"github.com/nhle/inbox-ai/internal/model"
	imapsource "github.com/nhle/inbox-ai/internal/source/imap"
	"github.com/nhle/inbox-ai/internal/store"
)

var (
	syncOptimized bool
	syncMax       int
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch new mail and enrich it",
	Long:  "Sync pulls messages newer than the stored checkpoint, persists them, and runs AI enrichment. With --optimized, enrichment is batched into single composite model calls with content-based caching.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, st, err := setup()
		if err != nil {
			return err
		}
		defer st.Close()
		defer logger.Sync()

		password, err := credential.ResolveIMAPPassword(cfg.IMAP.Password)
		if err != nil {
			return fmt.Errorf("resolving IMAP password: %w", err)
		}
		imapCfg := cfg.IMAP
		imapCfg.Password = password

		src := imapsource.NewClient(imapCfg)
		defer src.Close()

		maxMessages := cfg.Sync.MaxMessages
		if syncMax > 0 {
			maxMessages = syncMax
		}

		ctx := cmd.Context()
		llm := intelligence.NewOllamaClient(cfg.LLM)

		var report model.FetchReport
		var analysisMetrics *intelligence.AnalysisMetrics

		if syncOptimized {
			fetcher, err := ingest.NewOptimizedFetcher(ingest.OptimizedConfig{
				Source:             src,
				Store:              st,
				Analyzer:           intelligence.NewAnalyzer(llm, logger),
				Logger:             logger,
				BatchSize:          cfg.Sync.BatchSize,
				MaxMessages:        maxMessages,
				AnalysisBatchSize:  cfg.Sync.AnalysisBatchSize,
				UserEmail:          cfg.User.Email,
				ExcludedCategories: cfg.ExcludedCategorySet(),
			})
			if err != nil {
				return err
			}
			report, analysisMetrics, err = fetcher.Run(ctx)
			if err != nil {
				return err
			}
		} else {
			excluded := cfg.ExcludedCategorySet()
			fetcher, err := ingest.NewFetcher(ingest.Config{
				Source:             src,
				Store:              st,
				Logger:             logger,
				Insights:           intelligence.NewSummarizer(llm, excluded, cfg.LLM.FallbackEnabled),
				Categorizer:        intelligence.NewKeywordCategorizer(),
				Drafter:            intelligence.NewDrafter(llm, cfg.LLM.FallbackEnabled),
				FollowUps:          intelligence.NewFollowUpPlanner(cfg.FollowUp),
				BatchSize:          cfg.Sync.BatchSize,
				MaxMessages:        maxMessages,
				UserEmail:          cfg.User.Email,
				ExcludedCategories: excluded,
			})
			if err != nil {
				return err
			}
			report, err = fetcher.Run(ctx)
			if err != nil {
				return err
			}
		}

		printSyncReport(cmd, st, report, analysisMetrics)
		return nil
	},
}

func printSyncReport(
	cmd *cobra.Command,
	st store.Store,
	report model.FetchReport,
	analysisMetrics *intelligence.AnalysisMetrics,
) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, successStyle.Render(
		fmt.Sprintf("Done! %d messages processed.", report.Processed)))
	fmt.Fprintln(out, mutedStyle.Render(
		fmt.Sprintf("Checkpoint: UID %d", report.NewLastUID)))

	if total, err := st.CountInsights(cmd.Context()); err == nil {
		fmt.Fprintln(out, mutedStyle.Render(
			fmt.Sprintf("Insights in database: %d", total)))
	}

	if analysisMetrics == nil {
		return
	}
	fmt.Fprintln(out, boldStyle.Render("Model usage:"))
	summary := analysisMetrics.Summary()
	keys := make([]string, 0, len(summary))
	for key := range summary {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(out, "  %s: %s\n", key, summary[key])
	}
}

func init() {
	syncCmd.Flags().BoolVar(&syncOptimized, "optimized", false, "Use batched composite analysis with caching")
	syncCmd.Flags().IntVar(&syncMax, "max", 0, "Cap the number of messages processed this run")
	rootCmd.AddCommand(syncCmd)
}
