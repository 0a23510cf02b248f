package intelligence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nhle/inbox-ai/internal/metrics"
	"github.com/nhle/inbox-ai/internal/model"
)

// PlannedFollowUp is a follow-up suggestion from the composite
// analysis, before scheduling turns it into a stored task.
type PlannedFollowUp struct {
	Action  string `json:"action"`
	DueDate string `json:"due_date"`
}

// Analysis holds the full result of one composite model call.
type Analysis struct {
	Summary        string
	Priority       int
	PriorityLabel  string
	ActionItems    []string
	Categories     []string
	FollowUps      []PlannedFollowUp
	SuggestedReply string
	Provider       string
	UsedFallback   bool
}

// Insight converts the analysis into the persisted insight shape.
func (a Analysis) Insight(uid uint32, generatedAt time.Time) model.Insight {
	return model.Insight{
		EmailUID:     uid,
		Summary:      a.Summary,
		ActionItems:  a.ActionItems,
		Priority:     a.Priority,
		Provider:     a.Provider,
		GeneratedAt:  generatedAt,
		UsedFallback: a.UsedFallback,
	}
}

// AnalysisMetrics tracks model usage across a run. Token counts are
// approximated at four characters per token. Safe for concurrent use.
type AnalysisMetrics struct {
	mu           sync.Mutex
	Calls        int
	TokensInput  int
	TokensOutput int
	CacheHits    int
	CacheMisses  int
	startedAt    time.Time
}

// NewAnalysisMetrics creates a metrics tracker anchored at now.
func NewAnalysisMetrics() *AnalysisMetrics {
	return &AnalysisMetrics{startedAt: time.Now()}
}

// RecordCall counts one model call and its approximate token usage.
func (m *AnalysisMetrics) RecordCall(promptLen, outputLen int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.TokensInput += promptLen / 4
	m.TokensOutput += outputLen / 4
}

// RecordCacheHit counts an analysis served without a model call.
func (m *AnalysisMetrics) RecordCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

// RecordCacheMiss counts an analysis that required a model call.
func (m *AnalysisMetrics) RecordCacheMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

// Merge folds another tracker's counters into this one.
func (m *AnalysisMetrics) Merge(other *AnalysisMetrics) {
	other.mu.Lock()
	calls, in, out := other.Calls, other.TokensInput, other.TokensOutput
	hits, misses := other.CacheHits, other.CacheMisses
	other.mu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls += calls
	m.TokensInput += in
	m.TokensOutput += out
	m.CacheHits += hits
	m.CacheMisses += misses
}

// Summary renders the counters as display strings.
func (m *AnalysisMetrics) Summary() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	elapsed := time.Since(m.startedAt).Seconds()
	total := m.CacheHits + m.CacheMisses

	summary := map[string]string{
		"total_calls":     fmt.Sprintf("%d", m.Calls),
		"total_tokens":    fmt.Sprintf("%d", m.TokensInput+m.TokensOutput),
		"tokens_input":    fmt.Sprintf("%d", m.TokensInput),
		"tokens_output":   fmt.Sprintf("%d", m.TokensOutput),
		"cache_hits":      fmt.Sprintf("%d", m.CacheHits),
		"cache_misses":    fmt.Sprintf("%d", m.CacheMisses),
		"cache_hit_rate":  "N/A",
		"elapsed_seconds": fmt.Sprintf("%.1f", elapsed),
	}
	if total > 0 {
		summary["cache_hit_rate"] = fmt.Sprintf("%.1f%%", float64(m.CacheHits)/float64(total)*100)
	}
	return summary
}

// Analyzer performs composite analysis: one model call yields the
// summary, priority, categories, follow-ups, and reply draft together.
type Analyzer struct {
	llm     LLMClient
	logger  *zap.Logger
	Metrics *AnalysisMetrics
	now     func() time.Time
}

// NewAnalyzer creates a composite analyzer.
func NewAnalyzer(llm LLMClient, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		llm:     llm,
		logger:  logger,
		Metrics: NewAnalysisMetrics(),
		now:     time.Now,
	}
}

type analysisPayload struct {
	Summary        string            `json:"summary"`
	Priority       int               `json:"priority"`
	PriorityLabel  string            `json:"priority_label"`
	ActionItems    []string          `json:"action_items"`
	Categories     []string          `json:"categories"`
	FollowUps      []PlannedFollowUp `json:"follow_ups"`
	SuggestedReply string            `json:"suggested_reply"`
}

// AnalyzeComprehensive analyzes one envelope with a single model call.
// Any failure yields a neutral fallback analysis rather than an error,
// so one bad message never stalls a batch.
func (a *Analyzer) AnalyzeComprehensive(ctx context.Context, env model.Envelope) Analysis {
	a.Metrics.RecordCacheMiss()
	metrics.RecordCacheMiss()

	prompt := analysisPrompt(env)
	output, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		a.logger.Warn("composite analysis failed",
			zap.Uint32("uid", env.UID),
			zap.Error(err),
		)
		return a.fallbackAnalysis(env)
	}
	a.Metrics.RecordCall(len(prompt), len(output))

	analysis, err := a.parseAnalysis(output)
	if err != nil {
		a.logger.Warn("composite analysis output rejected",
			zap.Uint32("uid", env.UID),
			zap.Error(err),
		)
		return a.fallbackAnalysis(env)
	}
	return analysis
}

// AnalyzeBatch analyzes envelopes concurrently, returning results in
// input order.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, envs []model.Envelope) []Analysis {
	results := make([]Analysis, len(envs))

	var wg sync.WaitGroup
	for i, env := range envs {
		wg.Add(1)
		go func(i int, env model.Envelope) {
			defer wg.Done()
			results[i] = a.AnalyzeComprehensive(ctx, env)
		}(i, env)
	}
	wg.Wait()

	return results
}

func (a *Analyzer) parseAnalysis(output string) (Analysis, error) {
	raw, err := extractJSON(output)
	if err != nil {
		return Analysis{}, &ContractError{Expected: "analysis", Err: err}
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return Analysis{}, &ContractError{Expected: "analysis", Err: err}
	}

	if payload.Priority < 1 {
		payload.Priority = 1
	}
	if payload.Priority > 10 {
		payload.Priority = 10
	}
	if payload.PriorityLabel == "" {
		payload.PriorityLabel = labelForPriority(payload.Priority)
	}

	return Analysis{
		Summary:        payload.Summary,
		Priority:       payload.Priority,
		PriorityLabel:  payload.PriorityLabel,
		ActionItems:    payload.ActionItems,
		Categories:     payload.Categories,
		FollowUps:      payload.FollowUps,
		SuggestedReply: payload.SuggestedReply,
		Provider:       a.llm.ProviderID(),
	}, nil
}

// fallbackAnalysis is the neutral result substituted when the model
// fails or returns garbage for one envelope.
func (a *Analyzer) fallbackAnalysis(env model.Envelope) Analysis {
	return Analysis{
		Summary:        fmt.Sprintf("Email from %s regarding: %s", env.Sender, env.Subject),
		Priority:       5,
		PriorityLabel:  "Medium",
		ActionItems:    []string{"Review this email"},
		Categories:     []string{"Uncategorized"},
		SuggestedReply: "Thank you for your email. I will review this and get back to you soon.",
		Provider:       FallbackProvider,
		UsedFallback:   true,
	}
}

// ContentHash digests the analyzable content of an envelope so
// identical messages can share one analysis.
func ContentHash(env model.Envelope) string {
	sum := sha256.Sum256([]byte(env.Subject + "\n" + env.Sender + "\n" + env.BodyForAnalysis()))
	return hex.EncodeToString(sum[:])
}
