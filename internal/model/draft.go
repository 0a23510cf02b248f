package model

import "time"

// Draft is a generated reply for an envelope. Drafts are append-only:
// each enrichment pass may add a new one, and the most recent by
// generation time is considered current.
type Draft struct {
	// ID is the store-assigned identifier.
	ID string `json:"id"`

	// EmailUID is the UID of the envelope being replied to.
	EmailUID uint32 `json:"email_uid"`

	// Body is the draft reply text, including greeting and closing.
	Body string `json:"body"`

	// Provider identifies what generated the draft.
	Provider string `json:"provider"`

	GeneratedAt time.Time `json:"generated_at"`

	// Confidence is an optional self-reported score between 0 and 1.
	Confidence *float64 `json:"confidence,omitempty"`

	// UsedFallback marks deterministic, non-AI drafts.
	UsedFallback bool `json:"used_fallback"`
}
