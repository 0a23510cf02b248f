package intelligence

import (
	"strings"

	"github.com/nhle/inbox-ai/internal/model"
)

// categoryRule matches an envelope by keyword or predicate. Rules are
// evaluated in declaration order.
type categoryRule struct {
	key       string
	label     string
	keywords  []string
	predicate func(env model.Envelope, insight *model.Insight) bool
}

const maxCategories = 3

var defaultCategory = model.Category{Key: "general", Label: "General"}

var categoryRules = []categoryRule{
	{
		key:   "high_priority",
		label: "High Priority",
		predicate: func(_ model.Envelope, insight *model.Insight) bool {
			return insight != nil && insight.Priority >= 8
		},
	},
	{
		key:   "meeting",
		label: "Meetings",
		keywords: []string{
			"meeting", "calendar", "schedule", "invite",
			"call", "zoom", "webex", "sync",
		},
	},
	{
		key:   "billing",
		label: "Billing & Payments",
		keywords: []string{
			"invoice", "payment", "receipt", "bill",
			"billing", "charge", "refund", "subscription",
		},
	},
	{
		key:   "follow_up",
		label: "Follow Up",
		keywords: []string{
			"follow up", "follow-up", "check in",
			"checking in", "reminder", "ping",
		},
	},
	{
		key:   "sales",
		label: "Sales & Deals",
		keywords: []string{
			"proposal", "quote", "pricing", "contract",
			"renewal", "deal", "discount",
		},
	},
	{
		key:   "support",
		label: "Support Request",
		keywords: []string{
			"support", "issue", "bug", "error",
			"trouble", "incident", "ticket",
		},
	},
	{
		key:   "travel",
		label: "Travel",
		keywords: []string{
			"flight", "hotel", "booking", "reservation",
			"itinerary", "travel", "boarding", "airline",
		},
	},
	{
		key:   "recruiting",
		label: "Hiring & People",
		keywords: []string{
			"candidate", "interview", "resume", "cv",
			"onboarding", "offer", "payroll",
		},
	},
	{
		key:   "attachments",
		label: "Has Attachments",
		predicate: func(env model.Envelope, _ *model.Insight) bool {
			return len(env.Attachments) > 0
		},
	},
}

// KeywordCategorizer assigns categories with keyword and predicate
// rules, no model involved.
type KeywordCategorizer struct{}

// NewKeywordCategorizer creates the rule-based categorizer.
func NewKeywordCategorizer() *KeywordCategorizer {
	return &KeywordCategorizer{}
}

// Categorize returns up to three matching categories for the envelope,
// falling back to the general category when nothing matches. The
// insight, when present, contributes its summary and action items to
// keyword matching and enables the high-priority rule.
func (c *KeywordCategorizer) Categorize(
	env model.Envelope,
	insight *model.Insight,
) []model.Category {
	haystack := buildHaystack(env, insight)

	var selected []model.Category
	for _, rule := range categoryRules {
		if !rule.matches(env, insight, haystack) {
			continue
		}
		selected = append(selected, model.Category{Key: rule.key, Label: rule.label})
		if len(selected) == maxCategories {
			break
		}
	}

	if len(selected) == 0 {
		selected = append(selected, defaultCategory)
	}
	return selected
}

func (r categoryRule) matches(env model.Envelope, insight *model.Insight, haystack string) bool {
	for _, keyword := range r.keywords {
		if strings.Contains(haystack, keyword) {
			return true
		}
	}
	if r.predicate != nil {
		return r.predicate(env, insight)
	}
	return false
}

// buildHaystack concatenates the searchable text of an envelope and its
// insight, lowercased.
func buildHaystack(env model.Envelope, insight *model.Insight) string {
	parts := []string{env.Subject, env.BodyText, env.BodyHTML}
	if insight != nil {
		parts = append(parts, insight.Summary)
		parts = append(parts, insight.ActionItems...)
	}
	return strings.ToLower(strings.Join(parts, " "))
}
