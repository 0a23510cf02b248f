package ingest_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nhle/inbox-ai/internal/ingest"
	"github.com/nhle/inbox-ai/internal/intelligence"
	"github.com/nhle/inbox-ai/internal/source"
	"github.com/nhle/inbox-ai/internal/store"
	"github.com/nhle/inbox-ai/tests/testutil"
)

// countingLLM returns the same composite analysis for every prompt and
// counts calls.
type countingLLM struct {
	mu    sync.Mutex
	calls int
}

func (c *countingLLM) Generate(context.Context, string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return `{
		"summary": "Alice asks a question.",
		"priority": 4,
		"priority_label": "Medium",
		"action_items": ["answer alice"],
		"categories": ["Support", "Follow Up"],
		"follow_ups": [{"action": "answer alice", "due_date": "2026-08-10"}],
		"suggested_reply": "On it, will reply shortly."
	}`, nil
}

func (c *countingLLM) ProviderID() string { return "fake:test" }

func (c *countingLLM) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func optimizedConfig(
	t *testing.T,
	src source.Source,
	st store.Store,
	llm intelligence.LLMClient,
) ingest.OptimizedConfig {
	logger := zaptest.NewLogger(t)
	return ingest.OptimizedConfig{
		Source:             src,
		Store:              st,
		Analyzer:           intelligence.NewAnalyzer(llm, logger),
		Logger:             logger,
		BatchSize:          10,
		AnalysisBatchSize:  2,
		UserEmail:          "me@example.com",
		ExcludedCategories: map[string]bool{"marketing": true, "notification": true, "spam": true},
	}
}

func TestOptimizedFetcherPersistsFullAnalysis(t *testing.T) {
	st := testutil.NewTestStore(t)
	src := &fakeSource{mailbox: "INBOX", messages: []source.Message{
		sourceMessage(5, "question one"),
	}}
	llm := &countingLLM{}

	fetcher, err := ingest.NewOptimizedFetcher(optimizedConfig(t, src, st, llm))
	require.NoError(t, err)

	ctx := context.Background()
	report, runMetrics, err := fetcher.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.Processed)
	require.Equal(t, uint32(5), report.NewLastUID)
	require.Equal(t, 1, llm.callCount())
	require.Equal(t, 1, runMetrics.CacheMisses)

	insight, err := st.GetInsight(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, insight)
	require.Equal(t, "Alice asks a question.", insight.Summary)
	require.Equal(t, "fake:test", insight.Provider)

	categories, err := st.GetCategories(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, 2, len(categories))
	require.Equal(t, "follow_up", categories[0].Key)
	require.Equal(t, "Follow Up", categories[0].Label)
	require.Equal(t, "support", categories[1].Key)

	tasks, err := st.ListFollowUps(ctx, store.FollowUpFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, "answer alice", tasks[0].Action)
	require.NotNil(t, tasks[0].DueAt)
	require.Equal(t, "2026-08-10", tasks[0].DueAt.Format("2006-01-02"))

	drafts, err := st.ListRecentDrafts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	require.Equal(t, "On it, will reply shortly.", drafts[0].Body)
}

func TestOptimizedFetcherDeduplicatesWithinBatch(t *testing.T) {
	st := testutil.NewTestStore(t)
	// UIDs 5 and 6 carry identical content; 7 differs.
	src := &fakeSource{mailbox: "INBOX", messages: []source.Message{
		sourceMessage(5, "same question"),
		sourceMessage(6, "same question"),
		sourceMessage(7, "different question"),
	}}
	llm := &countingLLM{}

	cfg := optimizedConfig(t, src, st, llm)
	cfg.AnalysisBatchSize = 3
	fetcher, err := ingest.NewOptimizedFetcher(cfg)
	require.NoError(t, err)

	ctx := context.Background()
	report, runMetrics, err := fetcher.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, report.Processed)

	// One call for the duplicate pair, one for the distinct message.
	require.Equal(t, 2, llm.callCount())
	require.Equal(t, 1, runMetrics.CacheHits)
	require.Equal(t, 2, runMetrics.CacheMisses)

	leader, err := st.GetInsight(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, "fake:test", leader.Provider)

	duplicate, err := st.GetInsight(ctx, 6)
	require.NoError(t, err)
	require.NotNil(t, duplicate)
	require.Equal(t, "fake:test (cached)", duplicate.Provider)
	require.Equal(t, leader.Summary, duplicate.Summary)

	categories, err := st.GetCategories(ctx, 6)
	require.NoError(t, err)
	require.NotEmpty(t, categories)
}

func TestOptimizedFetcherReusesStoredAnalysisAcrossRuns(t *testing.T) {
	st := testutil.NewTestStore(t)
	src := &fakeSource{mailbox: "INBOX", messages: []source.Message{
		sourceMessage(5, "same question"),
	}}
	llm := &countingLLM{}

	fetcher, err := ingest.NewOptimizedFetcher(optimizedConfig(t, src, st, llm))
	require.NoError(t, err)

	ctx := context.Background()
	_, _, err = fetcher.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, llm.callCount())

	// A later message with identical content is served from the cache.
	src.messages = append(src.messages, sourceMessage(9, "same question"))
	secondRun, err := ingest.NewOptimizedFetcher(optimizedConfig(t, src, st, llm))
	require.NoError(t, err)

	_, runMetrics, err := secondRun.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, llm.callCount())
	require.Equal(t, 1, runMetrics.CacheHits)
	require.Zero(t, runMetrics.CacheMisses)

	insight, err := st.GetInsight(ctx, 9)
	require.NoError(t, err)
	require.NotNil(t, insight)
	require.Equal(t, "fake:test (cached)", insight.Provider)
}

func TestOptimizedFetcherSkipsDraftAndFollowUpsForExcludedCategory(t *testing.T) {
	st := testutil.NewTestStore(t)
	src := &fakeSource{mailbox: "INBOX", messages: []source.Message{
		sourceMessage(5, "promo"),
	}}
	llm := &marketingLLM{}

	fetcher, err := ingest.NewOptimizedFetcher(optimizedConfig(t, src, st, llm))
	require.NoError(t, err)

	ctx := context.Background()
	_, _, err = fetcher.Run(ctx)
	require.NoError(t, err)

	// The insight and categories land, but nothing actionable does.
	insight, err := st.GetInsight(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, insight)

	drafts, err := st.ListRecentDrafts(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, drafts)

	tasks, err := st.ListFollowUps(ctx, store.FollowUpFilter{})
	require.NoError(t, err)
	require.Empty(t, tasks)
}

// marketingLLM categorizes everything as marketing.
type marketingLLM struct{}

func (marketingLLM) Generate(context.Context, string) (string, error) {
	return `{
		"summary": "Promo blast.",
		"priority": 2,
		"priority_label": "Low",
		"action_items": [],
		"categories": ["Marketing"],
		"follow_ups": [{"action": "check the promo deadline", "due_date": "2026-09-01"}],
		"suggested_reply": "Thanks!"
	}`, nil
}

func (marketingLLM) ProviderID() string { return "fake:test" }
