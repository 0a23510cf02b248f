package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nhle/inbox-ai/internal/metrics"
	"github.com/nhle/inbox-ai/internal/model"
	"github.com/nhle/inbox-ai/internal/source"
	"github.com/nhle/inbox-ai/internal/store"
)

// InsightService generates insights for envelopes, optionally steered
// by already-assigned categories.
type InsightService interface {
	GenerateInsight(ctx context.Context, env model.Envelope, categories []model.Category) (model.Insight, error)
}

// CategoryService assigns categories to an envelope. The insight may be
// nil when none is available.
type CategoryService interface {
	Categorize(env model.Envelope, insight *model.Insight) []model.Category
}

// DraftService composes reply drafts.
type DraftService interface {
	DraftReply(ctx context.Context, env model.Envelope, insight model.Insight) (model.Draft, error)
}

// FollowUpService derives follow-up tasks from an insight.
type FollowUpService interface {
	PlanFollowUps(env model.Envelope, insight model.Insight) []model.FollowUpTask
}

// Config wires a fetcher. Source, Store, and Logger are required; each
// enrichment service is optional and skipped when nil.
type Config struct {
	Source source.Source
	Store  store.Store
	Logger *zap.Logger

	Insights    InsightService
	Categorizer CategoryService
	Drafter     DraftService
	FollowUps   FollowUpService

	// BatchSize bounds messages fetched per server round trip.
	BatchSize int

	// MaxMessages caps messages processed per run; zero means no cap.
	MaxMessages int

	// UserEmail identifies the mailbox owner; drafts are only composed
	// for mail addressed to it.
	UserEmail string

	// ExcludedCategories names category keys that suppress drafts and
	// follow-ups.
	ExcludedCategories map[string]bool
}

// Fetcher runs the sequential ingestion pipeline: fetch new messages,
// parse, persist, enrich, and advance the checkpoint one message at a
// time.
type Fetcher struct {
	cfg Config
}

// NewFetcher validates the configuration and creates a fetcher.
func NewFetcher(cfg Config) (*Fetcher, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("source is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}
	return &Fetcher{cfg: cfg}, nil
}

// Run executes one synchronization cycle. The checkpoint advances past
// every message that was parsed, including those whose persistence
// failed, so a poison message cannot wedge the pipeline. A parse
// failure stops the run without advancing past the failed message.
func (f *Fetcher) Run(ctx context.Context) (model.FetchReport, error) {
	mailbox := f.cfg.Source.Mailbox()
	logger := f.cfg.Logger.With(zap.String("mailbox", mailbox))

	var lastUID uint32
	checkpoint, err := f.cfg.Store.GetCheckpoint(ctx, mailbox)
	if err != nil {
		return model.FetchReport{}, fmt.Errorf("loading checkpoint: %w", err)
	}
	if checkpoint != nil {
		lastUID = checkpoint.LastUID
	}
	logger.Info("starting fetch", zap.Uint32("last_uid", lastUID))

	report := model.FetchReport{NewLastUID: lastUID}

	messages, err := f.cfg.Source.FetchSince(ctx, lastUID, f.cfg.BatchSize)
	if err != nil {
		return report, err
	}

	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		env, err := ParseMessage(mailbox, msg)
		if err != nil {
			metrics.RecordEmail(metrics.StatusParseFailed)
			logger.Error("parse failed", zap.Uint32("uid", msg.UID), zap.Error(err))
			return report, err
		}

		if err := f.cfg.Store.UpsertEnvelope(ctx, env); err != nil {
			metrics.RecordEmail(metrics.StatusStoreFailed)
			logger.Warn("persisting envelope failed, skipping enrichment",
				zap.Uint32("uid", env.UID), zap.Error(err))
			f.advanceCheckpoint(ctx, logger, mailbox, env.UID, &report)
			continue
		}

		f.enrich(ctx, logger, env)

		metrics.RecordEmail(metrics.StatusPersisted)
		f.advanceCheckpoint(ctx, logger, mailbox, env.UID, &report)
		report.Processed++

		logger.Debug("processed message", zap.Uint32("uid", env.UID))
		if f.cfg.MaxMessages > 0 && report.Processed >= f.cfg.MaxMessages {
			logger.Info("reached message cap", zap.Int("max_messages", f.cfg.MaxMessages))
			break
		}
	}

	logger.Info("fetch completed",
		zap.Int("processed", report.Processed),
		zap.Uint32("new_last_uid", report.NewLastUID),
	)
	return report, nil
}

// enrich runs the enrichment stages for one persisted envelope. Each
// stage failure is logged and the remaining stages still run.
func (f *Fetcher) enrich(ctx context.Context, logger *zap.Logger, env model.Envelope) {
	var insight *model.Insight

	if f.cfg.Insights != nil {
		fresh, err := f.cfg.Insights.GenerateInsight(ctx, env, nil)
		if err != nil {
			logger.Warn("insight generation failed", zap.Uint32("uid", env.UID), zap.Error(err))
		} else if err := f.cfg.Store.UpsertInsight(ctx, fresh); err != nil {
			logger.Warn("persisting insight failed", zap.Uint32("uid", env.UID), zap.Error(err))
		} else {
			insight = &fresh
		}
	}

	if insight == nil {
		stored, err := f.cfg.Store.GetInsight(ctx, env.UID)
		if err != nil {
			logger.Warn("loading stored insight failed", zap.Uint32("uid", env.UID), zap.Error(err))
		} else {
			insight = stored
		}
	}

	var categories []model.Category
	if f.cfg.Categorizer != nil {
		categories = f.cfg.Categorizer.Categorize(env, insight)
		if err := f.cfg.Store.ReplaceCategories(ctx, env.UID, categories); err != nil {
			logger.Warn("persisting categories failed", zap.Uint32("uid", env.UID), zap.Error(err))
		}
	}

	// Second pass: regenerate the insight with category context so the
	// summary and priority reflect what kind of mail this is.
	if f.cfg.Insights != nil && len(categories) > 0 {
		refined, err := f.cfg.Insights.GenerateInsight(ctx, env, categories)
		if err != nil {
			logger.Warn("category-aware insight failed", zap.Uint32("uid", env.UID), zap.Error(err))
		} else if err := f.cfg.Store.UpsertInsight(ctx, refined); err != nil {
			logger.Warn("persisting insight failed", zap.Uint32("uid", env.UID), zap.Error(err))
		} else {
			insight = &refined
		}
	}

	excluded := model.ContainsAnyCategory(categories, f.cfg.ExcludedCategories)

	if f.cfg.Drafter != nil && insight != nil && f.shouldDraft(env, excluded) {
		draft, err := f.cfg.Drafter.DraftReply(ctx, env, *insight)
		if err != nil {
			logger.Warn("draft generation failed", zap.Uint32("uid", env.UID), zap.Error(err))
		} else if _, err := f.cfg.Store.AppendDraft(ctx, draft); err != nil {
			logger.Warn("persisting draft failed", zap.Uint32("uid", env.UID), zap.Error(err))
		}
	}

	if f.cfg.FollowUps != nil && insight != nil && !excluded {
		tasks := f.cfg.FollowUps.PlanFollowUps(env, *insight)
		if err := f.cfg.Store.ReplaceFollowUps(ctx, env.UID, tasks); err != nil {
			logger.Warn("persisting follow-ups failed", zap.Uint32("uid", env.UID), zap.Error(err))
		}
	}
}

// shouldDraft reports whether a reply draft is warranted: the mail must
// be addressed to the user and not carry an excluded category.
func (f *Fetcher) shouldDraft(env model.Envelope, excludedCategory bool) bool {
	if excludedCategory {
		return false
	}
	return env.AddressedTo(f.cfg.UserEmail)
}

// advanceCheckpoint moves the checkpoint to uid. A checkpoint write
// failure is logged; the in-memory report still advances so the run
// summary reflects what was handled.
func (f *Fetcher) advanceCheckpoint(
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
