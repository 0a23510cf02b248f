package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/inbox-ai/internal/intelligence"
	"github.com/nhle/inbox-ai/internal/metrics"
	"github.com/nhle/inbox-ai/internal/model"
	"github.com/nhle/inbox-ai/internal/source"
	"github.com/nhle/inbox-ai/internal/store"
)

// OptimizedConfig wires the batched fetcher.
type OptimizedConfig struct {
	Source   source.Source
	Store    store.Store
	Analyzer *intelligence.Analyzer
	Logger   *zap.Logger

	// BatchSize bounds messages fetched per server round trip.
	BatchSize int

	// MaxMessages caps messages processed per run; zero means no cap.
	MaxMessages int

	// AnalysisBatchSize is how many envelopes are buffered before one
	// concurrent analysis pass.
	AnalysisBatchSize int

	UserEmail          string
	ExcludedCategories map[string]bool
}

// OptimizedFetcher runs the batched ingestion pipeline. Enrichment is
// a single composite model call per envelope, issued concurrently per
// batch, with a content-hash cache so identical mail is analyzed once.
type OptimizedFetcher struct {
	cfg OptimizedConfig
}

// NewOptimizedFetcher validates the configuration and creates the
// fetcher.
func NewOptimizedFetcher(cfg OptimizedConfig) (*OptimizedFetcher, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("source is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}
	if cfg.AnalysisBatchSize <= 0 {
		return nil, fmt.Errorf("analysis batch size must be positive, got %d", cfg.AnalysisBatchSize)
	}
	return &OptimizedFetcher{cfg: cfg}, nil
}

// Run executes one synchronization cycle and reports what it did along
// with model usage metrics. Checkpoint semantics match the sequential
// fetcher: every parsed message advances the checkpoint, a parse
// failure stops the run without advancing past the failed message.
func (f *OptimizedFetcher) Run(ctx context.Context) (model.FetchReport, *intelligence.AnalysisMetrics, error) {
	mailbox := f.cfg.Source.Mailbox()
	logger := f.cfg.Logger.With(zap.String("mailbox", mailbox))
	runMetrics := intelligence.NewAnalysisMetrics()

	var lastUID uint32
	checkpoint, err := f.cfg.Store.GetCheckpoint(ctx, mailbox)
	if err != nil {
		return model.FetchReport{}, runMetrics, fmt.Errorf("loading checkpoint: %w", err)
	}
	if checkpoint != nil {
		lastUID = checkpoint.LastUID
	}
	logger.Info("starting optimized fetch", zap.Uint32("last_uid", lastUID))

	report := model.FetchReport{NewLastUID: lastUID}

	messages, err := f.cfg.Source.FetchSince(ctx, lastUID, f.cfg.BatchSize)
	if err != nil {
		return report, runMetrics, err
	}

	var pending []model.Envelope
	flush := func() {
		f.processBatch(ctx, logger, pending, runMetrics)
		pending = pending[:0]
	}

	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			flush()
			return report, runMetrics, err
		}

		env, err := ParseMessage(mailbox, msg)
		if err != nil {
			metrics.RecordEmail(metrics.StatusParseFailed)
			logger.Error("parse failed", zap.Uint32("uid", msg.UID), zap.Error(err))
			flush()
			return report, runMetrics, err
		}

		if err := f.cfg.Store.UpsertEnvelope(ctx, env); err != nil {
			metrics.RecordEmail(metrics.StatusStoreFailed)
			logger.Warn("persisting envelope failed, skipping enrichment",
				zap.Uint32("uid", env.UID), zap.Error(err))
			f.advanceCheckpoint(ctx, logger, mailbox, env.UID, &report)
			continue
		}

		pending = append(pending, env)
		if len(pending) >= f.cfg.AnalysisBatchSize {
			flush()
		}

		metrics.RecordEmail(metrics.StatusPersisted)
		f.advanceCheckpoint(ctx, logger, mailbox, env.UID, &report)
		report.Processed++

		if f.cfg.MaxMessages > 0 && report.Processed >= f.cfg.MaxMessages {
			logger.Info("reached message cap", zap.Int("max_messages", f.cfg.MaxMessages))
			break
		}
	}

	flush()
	runMetrics.Merge(f.cfg.Analyzer.Metrics)

	logger.Info("optimized fetch completed",
		zap.Int("processed", report.Processed),
		zap.Uint32("new_last_uid", report.NewLastUID),
		zap.Any("metrics", runMetrics.Summary()),
	)
	return report, runMetrics, nil
}

func (f *OptimizedFetcher) advanceCheckpoint(
	ctx context.Context,
	logger *zap.Logger,
	mailbox string,
	uid uint32,
	report *model.FetchReport,
) {
	if err := f.cfg.Store.SetCheckpoint(ctx, model.Checkpoint{Mailbox: mailbox, LastUID: uid}); err != nil {
		logger.Warn("persisting checkpoint failed", zap.Uint32("uid", uid), zap.Error(err))
	}
	report.NewLastUID = uid
}

// processBatch enriches a buffered batch. Envelopes whose content hash
// matches a stored analysis reuse it without a model call; duplicates
// within the batch share the leader's result the same way. The rest go
// to the analyzer concurrently.
func (f *OptimizedFetcher) processBatch(
	ctx context.Context,
	logger *zap.Logger,
	envelopes []model.Envelope,
	runMetrics *intelligence.AnalysisMetrics,
) {
	if len(envelopes) == 0 {
		return
	}
	logger.Debug("processing analysis batch", zap.Int("size", len(envelopes)))

	var needAnalysis []model.Envelope
	leaderByHash := make(map[string]int) // hash -> index into needAnalysis
	duplicates := make(map[string][]model.Envelope)

	for _, env := range envelopes {
		hash := intelligence.ContentHash(env)
		if err := f.cfg.Store.SetContentHash(ctx, env.UID, hash); err != nil {
			logger.Warn("storing content hash failed", zap.Uint32("uid", env.UID), zap.Error(err))
		}

		cached, err := f.cfg.Store.FindInsightByContentHash(ctx, hash)
		if err != nil {
			logger.Warn("cache lookup failed", zap.Uint32("uid", env.UID), zap.Error(err))
		}
		if cached != nil {
			runMetrics.RecordCacheHit()
			metrics.RecordCacheHit()
			logger.Debug("analysis cache hit",
				zap.Uint32("uid", env.UID), zap.String("hash", hash[:8]))
			f.storeCachedResult(ctx, logger, env, cached.Insight, cached.Categories)
			continue
		}

		if _, claimed := leaderByHash[hash]; claimed {
			runMetrics.RecordCacheHit()
			metrics.RecordCacheHit()
			duplicates[hash] = append(duplicates[hash], env)
			continue
		}

		leaderByHash[hash] = len(needAnalysis)
		needAnalysis = append(needAnalysis, env)
	}

	if len(needAnalysis) == 0 {
		return
	}

	results := f.cfg.Analyzer.AnalyzeBatch(ctx, needAnalysis)
	generatedAt := time.Now().UTC()

	for i, env := range needAnalysis {
		f.storeAnalysis(ctx, logger, env, results[i], generatedAt)
	}

	for hash, dups := range duplicates {
		analysis := results[leaderByHash[hash]]
		insight := analysis.Insight(0, generatedAt)
		for _, env := range dups {
			f.storeCachedResult(ctx, logger, env, insight, analysisCategories(analysis))
		}
	}
}

// storeAnalysis persists a fresh composite result: insight, categories,
// follow-ups, and the suggested reply when one is warranted.
func (f *OptimizedFetcher) storeAnalysis(
	ctx context.Context,
	logger *zap.Logger,
	env model.Envelope,
	analysis intelligence.Analysis,
	generatedAt time.Time,
) {
	insight := analysis.Insight(env.UID, generatedAt)
	if err := f.cfg.Store.UpsertInsight(ctx, insight); err != nil {
		logger.Warn("persisting insight failed", zap.Uint32("uid", env.UID), zap.Error(err))
	}

	categories := analysisCategories(analysis)
	if err := f.cfg.Store.ReplaceCategories(ctx, env.UID, categories); err != nil {
		logger.Warn("persisting categories failed", zap.Uint32("uid", env.UID), zap.Error(err))
	}

	excluded := model.ContainsAnyCategory(categories, f.cfg.ExcludedCategories)

	if !excluded {
		tasks := make([]model.FollowUpTask, 0, len(analysis.FollowUps))
		for _, planned := range analysis.FollowUps {
			if strings.TrimSpace(planned.Action) == "" {
				continue
			}
			tasks = append(tasks, model.FollowUpTask{
				EmailUID:  env.UID,
				Action:    planned.Action,
				DueAt:     parseDueDate(planned.DueDate),
				Status:    model.FollowUpStatusOpen,
				CreatedAt: generatedAt,
			})
		}
		if err := f.cfg.Store.ReplaceFollowUps(ctx, env.UID, tasks); err != nil {
			logger.Warn("persisting follow-ups failed", zap.Uint32("uid", env.UID), zap.Error(err))
		}
	}

	if analysis.SuggestedReply == "" || !f.shouldDraft(env, excluded) {
		return
	}
	draft := model.Draft{
		EmailUID:     env.UID,
		Body:         analysis.SuggestedReply,
		Provider:     analysis.Provider,
		GeneratedAt:  generatedAt,
		UsedFallback: analysis.UsedFallback,
	}
	if _, err := f.cfg.Store.AppendDraft(ctx, draft); err != nil {
		logger.Warn("persisting draft failed", zap.Uint32("uid", env.UID), zap.Error(err))
	}
}

// storeCachedResult persists a reused analysis for env, retagging the
// provider so the reuse is visible in listings. Drafts and follow-ups
// are not copied; they belong to the original message.
func (f *OptimizedFetcher) storeCachedResult(
	ctx context.Context,
	logger *zap.Logger,
	env model.Envelope,
	cached model.Insight,
	categories []model.Category,
) {
	insight := cached
	insight.EmailUID = env.UID
	if !strings.HasSuffix(insight.Provider, " (cached)") {
		insight.Provider += " (cached)"
	}

	if err := f.cfg.Store.UpsertInsight(ctx, insight); err != nil {
		logger.Warn("persisting insight failed", zap.Uint32("uid", env.UID), zap.Error(err))
	}
	if err := f.cfg.Store.ReplaceCategories(ctx, env.UID, categories); err != nil {
		logger.Warn("persisting categories failed", zap.Uint32("uid", env.UID), zap.Error(err))
	}
}

func (f *OptimizedFetcher) shouldDraft(env model.Envelope, excludedCategory bool) bool {
	if excludedCategory {
		return false
	}
	return env.AddressedTo(f.cfg.UserEmail)
}

// analysisCategories normalizes the analyzer's free-form category names
// into keyed records.
func analysisCategories(analysis intelligence.Analysis) []model.Category {
	var categories []model.Category
	seen := make(map[string]bool)
	for _, name := range analysis.Categories {
		key := categoryKey(name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		categories = append(categories, model.Category{
			Key:   key,
			Label: categoryLabel(key),
		})
	}
	return categories
}

func categoryKey(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(key, " ", "_")
}

func categoryLabel(key string) string {
	words := strings.Split(strings.ReplaceAll(key, "_", " "), " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

// parseDueDate reads an ISO date suggestion; anything unparseable means
// no due date.
func parseDueDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil
	}
	parsed = parsed.UTC()
	return &parsed
}
