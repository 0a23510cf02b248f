package intelligence

import (
	"strings"

	"github.com/nhle/inbox-ai/internal/model"
)

// urgencyKeywords maps subject/body phrases to their priority weight.
// Only the strongest occurrence of each phrase counts.
var urgencyKeywords = map[string]int{
	"urgent":    4,
	"asap":      3,
	"important": 2,
	"overdue":   2,
	"follow up": 1,
}

// senderKeywords boosts mail from people likely to matter.
var senderKeywords = map[string]int{
	"ceo":     4,
	"founder": 3,
	"manager": 2,
}

// scorePriority computes a deterministic 0-10 urgency score from
// keywords, sender, extracted actions, and attachments.
func scorePriority(env model.Envelope, actionItems []string) int {
	score := 0
	text := strings.ToLower(env.Subject + " " + env.BodyForAnalysis())
	for keyword, weight := range urgencyKeywords {
		if strings.Contains(text, keyword) {
			score += weight
		}
	}

	sender := strings.ToLower(env.Sender)
	for keyword, weight := range senderKeywords {
		if strings.Contains(sender, keyword) {
			score += weight
		}
	}

	actions := len(actionItems)
	if actions > 3 {
		actions = 3
	}
	score += actions

	if len(env.Attachments) > 0 {
		score++
	}

	if score > 10 {
		score = 10
	}
	if score < 0 {
		score = 0
	}
	return score
}

// labelForPriority maps a numeric score to its display label.
func labelForPriority(priority int) string {
	switch {
	case priority >= 9:
		return "Urgent"
	case priority >= 7:
		return "High"
	case priority >= 4:
		return "Medium"
	default:
		return "Low"
	}
}
