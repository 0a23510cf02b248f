package model

import "time"

// Insight holds the AI- or heuristic-derived metadata for one envelope.
// There is exactly one current insight per UID; regeneration replaces it.
type Insight struct {
	// EmailUID is the UID of the envelope this insight belongs to.
	EmailUID uint32 `json:"email_uid"`

	// Summary is a short prose digest of the message.
	Summary string `json:"summary"`

	// ActionItems are concrete actions requested of the recipient,
	// in the order they were extracted.
	ActionItems []string `json:"action_items"`

	// Priority is a coarse urgency score from 0 (low) to 10 (critical).
	Priority int `json:"priority"`

	// Provider identifies what produced the insight, e.g.
	// "ollama:gpt-oss:20b", "deterministic", or a "(cached)" variant.
	Provider string `json:"provider"`

	GeneratedAt time.Time `json:"generated_at"`

	// UsedFallback is true when the deterministic path produced the
	// insight because the AI backend failed or was disabled.
	UsedFallback bool `json:"used_fallback"`
}

// Category is a label assigned to an envelope. Categories are replaced
// as a whole set on recategorization, never merged.
type Category struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// ContainsAnyCategory reports whether any category key appears in keys.
func ContainsAnyCategory(categories []Category, keys map[string]bool) bool {
	for _, c := range categories {
		if keys[c.Key] {
			return true
		}
	}
	return false
}
