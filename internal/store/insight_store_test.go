package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhle/inbox-ai/internal/model"
	"github.com/nhle/inbox-ai/internal/store"
	"github.com/nhle/inbox-ai/tests/testutil"
)

func testInsight(uid uint32, generatedAt time.Time) model.Insight {
	return model.Insight{
		EmailUID:    uid,
		Summary:     "review the report",
		ActionItems: []string{"review", "reply by friday"},
		Priority:    6,
		Provider:    "ollama:gpt-oss:20b",
		GeneratedAt: generatedAt,
	}
}

func TestUpsertInsightReplacesCurrent(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertEnvelope(ctx, testEnvelope(5)))

	first := testInsight(5, time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, s.UpsertInsight(ctx, first))

	second := first
	second.Summary = "updated summary"
	second.Priority = 9
	second.GeneratedAt = first.GeneratedAt.Add(time.Hour)
	require.NoError(t, s.UpsertInsight(ctx, second))

	got, err := s.GetInsight(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "updated summary", got.Summary)
	require.Equal(t, 9, got.Priority)
	require.Equal(t, []string{"review", "reply by friday"}, got.ActionItems)

	count, err := s.CountInsights(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestListRecentInsightsFiltersAndOrders(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	for i, priority := range []int{3, 8, 5} {
		uid := uint32(i + 1)
		env := testEnvelope(uid)
		require.NoError(t, s.UpsertEnvelope(ctx, env))

		insight := testInsight(uid, base.Add(time.Duration(i)*time.Hour))
		insight.Priority = priority
		require.NoError(t, s.UpsertInsight(ctx, insight))
	}

	records, err := s.ListRecentInsights(ctx, store.InsightFilter{})
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, uint32(3), records[0].Envelope.UID)
	require.Equal(t, uint32(1), records[2].Envelope.UID)

	min := 5
	records, err = s.ListRecentInsights(ctx, store.InsightFilter{MinPriority: &min})
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		require.GreaterOrEqual(t, r.Insight.Priority, 5)
	}
}

func TestReplaceCategoriesSwapsWholeSet(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertEnvelope(ctx, testEnvelope(5)))
	require.NoError(t, s.ReplaceCategories(ctx, 5, []model.Category{
		{Key: "meeting", Label: "Meetings"},
		{Key: "billing", Label: "Billing & Payments"},
	}))
	require.NoError(t, s.ReplaceCategories(ctx, 5, []model.Category{
		{Key: "support", Label: "Support Request"},
	}))

	got, err := s.GetCategories(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, []model.Category{{Key: "support", Label: "Support Request"}}, got)
}

func TestFindInsightByContentHash(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	for uid := uint32(1); uid <= 2; uid++ {
		require.NoError(t, s.UpsertEnvelope(ctx, testEnvelope(uid)))
		require.NoError(t, s.SetContentHash(ctx, uid, "hash-a"))
		insight := testInsight(uid, base.Add(time.Duration(uid)*time.Hour))
		insight.Summary = map[uint32]string{1: "older", 2: "newer"}[uid]
		require.NoError(t, s.UpsertInsight(ctx, insight))
	}
	require.NoError(t, s.ReplaceCategories(ctx, 2, []model.Category{
		{Key: "meeting", Label: "Meetings"},
	}))

	cached, err := s.FindInsightByContentHash(ctx, "hash-a")
	require.NoError(t, err)
	require.NotNil(t, cached)
	require.Equal(t, "newer", cached.Insight.Summary)
	require.Len(t, cached.Categories, 1)

	cached, err = s.FindInsightByContentHash(ctx, "hash-missing")
	require.NoError(t, err)
	require.Nil(t, cached)

	cached, err = s.FindInsightByContentHash(ctx, "")
	require.NoError(t, err)
	require.Nil(t, cached)
}
