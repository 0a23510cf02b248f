package intelligence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nhle/inbox-ai/internal/model"
)

// EnrichmentError wraps a failure in one enrichment stage. Enrichment
// failures are logged and skipped; they never abort a run.
type EnrichmentError struct {
	Stage string
	UID   uint32
	Err   error
}

func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("%s enrichment failed for %d: %v", e.Stage, e.UID, e.Err)
}

func (e *EnrichmentError) Unwrap() error {
	return e.Err
}

// Summarizer produces insights for envelopes, preferring the model and
// falling back to deterministic extraction when it fails.
type Summarizer struct {
	llm             LLMClient
	excluded        map[string]bool
	fallbackEnabled bool
	now             func() time.Time
}

// NewSummarizer creates an insight service. excluded names category
// keys whose action items should be suppressed; low-value mail still
// gets a summary but no extracted work.
func NewSummarizer(
	llm LLMClient,
	excluded map[string]bool,
	fallbackEnabled bool,
) *Summarizer {
	return &Summarizer{
		llm:             llm,
		excluded:        excluded,
		fallbackEnabled: fallbackEnabled,
		now:             time.Now,
	}
}

type insightPayload struct {
	Summary     string   `json:"summary"`
	ActionItems []string `json:"action_items"`
	Priority    int      `json:"priority"`
}

// GenerateInsight analyzes an envelope, optionally steered by known
// categories. On model failure it returns a deterministic fallback
// insight when fallbacks are enabled, otherwise the error.
func (s *Summarizer) GenerateInsight(
	ctx context.Context,
	env model.Envelope,
	categories []model.Category,
) (model.Insight, error) {
	insight, err := s.generateFromModel(ctx, env, categories)
	if err != nil {
		if !s.fallbackEnabled {
			return model.Insight{}, &EnrichmentError{Stage: "insight", UID: env.UID, Err: err}
		}
		insight = fallbackInsight(env, s.now().UTC())
	}

	if model.ContainsAnyCategory(categories, s.excluded) {
		insight.ActionItems = nil
	}
	return insight, nil
}

func (s *Summarizer) generateFromModel(
	ctx context.Context,
	env model.Envelope,
	categories []model.Category,
) (model.Insight, error) {
	output, err := s.llm.Generate(ctx, insightPrompt(env, categories))
	if err != nil {
		return model.Insight{}, err
	}

	raw, err := extractJSON(output)
	if err != nil {
		return model.Insight{}, &ContractError{Expected: "insight", Err: err}
	}

	var payload insightPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return model.Insight{}, &ContractError{Expected: "insight", Err: err}
	}

	priority := payload.Priority
	if priority < 0 {
		priority = 0
	}
	if priority > 10 {
		priority = 10
	}

	return model.Insight{
		EmailUID:    env.UID,
		Summary:     payload.Summary,
		ActionItems: payload.ActionItems,
		Priority:    priority,
		Provider:    s.llm.ProviderID(),
		GeneratedAt: s.now().UTC(),
	}, nil
}
