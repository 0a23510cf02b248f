package store

import (
	"context"

	"github.com/nhle/inbox-ai/internal/model"
)

// InsightFilter controls filtering and pagination for insight queries.
type InsightFilter struct {
	MinPriority *int
	MaxPriority *int
	Limit       int
}

// FollowUpFilter controls filtering for follow-up task queries.
type FollowUpFilter struct {
	Status *string // "open", "done", or nil (all)
	Limit  int
}

// InsightRecord pairs a stored envelope with its current insight.
type InsightRecord struct {
	Envelope model.Envelope
	Insight  model.Insight
}

// CachedAnalysis is a previously computed enrichment result found through
// the content-hash index.
type CachedAnalysis struct {
	Insight    model.Insight
	Categories []model.Category
}

// Store defines the persistence interface for envelopes, checkpoints, and
// all enrichment records. Writers are expected to issue strictly monotonic
// checkpoint updates; the store does not enforce that itself.
type Store interface {
	// === Envelopes ===

	UpsertEnvelope(ctx context.Context, env model.Envelope) error
	GetEnvelope(ctx context.Context, uid uint32) (*model.Envelope, error)
	DeleteEnvelope(ctx context.Context, uid uint32) (bool, error)

	// === Checkpoints ===

	GetCheckpoint(ctx context.Context, mailbox string) (*model.Checkpoint, error)
	SetCheckpoint(ctx context.Context, cp model.Checkpoint) error

	// === Insights ===

	UpsertInsight(ctx context.Context, insight model.Insight) error
	GetInsight(ctx context.Context, uid uint32) (*model.Insight, error)
	ListRecentInsights(ctx context.Context, filter InsightFilter) ([]InsightRecord, error)
	CountInsights(ctx context.Context) (int, error)

	// === Categories (replace-entire-set semantics) ===

	ReplaceCategories(ctx context.Context, uid uint32, categories []model.Category) error
	GetCategories(ctx context.Context, uid uint32) ([]model.Category, error)

	// === Follow-ups (replace-entire-set semantics) ===

	ReplaceFollowUps(ctx context.Context, uid uint32, tasks []model.FollowUpTask) error
	ListFollowUps(ctx context.Context, filter FollowUpFilter) ([]model.FollowUpTask, error)
	UpdateFollowUpStatus(ctx context.Context, id string, status string) error

	// === Drafts (append-only history) ===

	AppendDraft(ctx context.Context, draft model.Draft) (model.Draft, error)
	LatestDrafts(ctx context.Context, uids []uint32) (map[uint32]model.Draft, error)
	ListRecentDrafts(ctx context.Context, limit int) ([]model.Draft, error)

	// === Content-hash index ===

	SetContentHash(ctx context.Context, uid uint32, hash string) error
	FindInsightByContentHash(ctx context.Context, hash string) (*CachedAnalysis, error)

	Close() error
}
