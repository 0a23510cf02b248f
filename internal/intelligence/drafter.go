package intelligence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nhle/inbox-ai/internal/model"
)

var errMissingBody = errors.New("empty draft body")

// Drafter composes reply drafts for envelopes, preferring the model
// and falling back to a generic acknowledgment when it fails.
type Drafter struct {
	llm             LLMClient
	fallbackEnabled bool
	now             func() time.Time
}

// NewDrafter creates a draft service.
func NewDrafter(llm LLMClient, fallbackEnabled bool) *Drafter {
	return &Drafter{llm: llm, fallbackEnabled: fallbackEnabled, now: time.Now}
}

type draftPayload struct {
	Body       string   `json:"body"`
	Confidence *float64 `json:"confidence"`
}

// DraftReply composes a reply to the envelope, informed by its insight.
func (d *Drafter) DraftReply(
	ctx context.Context,
	env model.Envelope,
	insight model.Insight,
) (model.Draft, error) {
	draft, err := d.draftFromModel(ctx, env, insight)
	if err != nil {
		if !d.fallbackEnabled {
			return model.Draft{}, &EnrichmentError{Stage: "draft", UID: env.UID, Err: err}
		}
		draft = fallbackDraft(env, insight, d.now().UTC())
	}
	return draft, nil
}

func (d *Drafter) draftFromModel(
	ctx context.Context,
	env model.Envelope,
	insight model.Insight,
) (model.Draft, error) {
	output, err := d.llm.Generate(ctx, draftPrompt(env, insight))
	if err != nil {
		return model.Draft{}, err
	}

	raw, err := extractJSON(output)
	if err != nil {
		return model.Draft{}, &ContractError{Expected: "draft", Err: err}
	}

	var payload draftPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return model.Draft{}, &ContractError{Expected: "draft", Err: err}
	}
	if payload.Body == "" {
		return model.Draft{}, &ContractError{Expected: "draft", Err: errMissingBody}
	}

	return model.Draft{
		EmailUID:    env.UID,
		Body:        payload.Body,
		Provider:    d.llm.ProviderID(),
		GeneratedAt: d.now().UTC(),
		Confidence:  payload.Confidence,
	}, nil
}
