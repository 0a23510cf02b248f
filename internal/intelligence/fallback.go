package intelligence

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/nhle/inbox-ai/internal/model"
)

// FallbackProvider tags insights and drafts produced without the model.
const FallbackProvider = "deterministic"

const (
	maxFallbackSummaryLen = 500
	maxFallbackActions    = 5
	maxDraftNextSteps     = 3
)

var actionLinePattern = regexp.MustCompile(`(?i)\b(urgent|asap|action required|please)\b`)

// fallbackInsight derives an insight without the model: a truncated
// excerpt summary, keyword-matched action lines, and the heuristic
// priority score.
func fallbackInsight(env model.Envelope, now time.Time) model.Insight {
	actions := extractActionLines(env.BodyForAnalysis())
	return model.Insight{
		EmailUID:     env.UID,
		Summary:      excerptSummary(env),
		ActionItems:  actions,
		Priority:     scorePriority(env, actions),
		Provider:     FallbackProvider,
		GeneratedAt:  now,
		UsedFallback: true,
	}
}

// excerptSummary builds a summary from the subject and the first few
// non-empty body lines, truncated to a fixed length.
func excerptSummary(env model.Envelope) string {
	var parts []string
	if env.Subject != "" {
		parts = append(parts, env.Subject)
	}

	count := 0
	for _, line := range strings.Split(env.BodyForAnalysis(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts = append(parts, line)
		count++
		if count == 3 {
			break
		}
	}

	summary := strings.Join(parts, " ")
	if len(summary) > maxFallbackSummaryLen {
		summary = summary[:maxFallbackSummaryLen]
	}
	return summary
}

// extractActionLines collects body lines that read like requests, up to
// a fixed maximum.
func extractActionLines(body string) []string {
	var actions []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		starts := strings.HasPrefix(lower, "please") ||
			strings.HasPrefix(lower, "todo") ||
			strings.HasPrefix(lower, "action") ||
			strings.HasPrefix(lower, "kindly")
		if starts || actionLinePattern.MatchString(line) {
			actions = append(actions, line)
			if len(actions) == maxFallbackActions {
				break
			}
		}
	}
	return actions
}

// fallbackDraft composes a generic acknowledgment reply when the model
// cannot produce one. Confidence is fixed low so callers can surface it
// as a stub rather than a usable reply.
func fallbackDraft(env model.Envelope, insight model.Insight, now time.Time) model.Draft {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", senderName(env.Sender))
	fmt.Fprintf(&b, "Thanks for your email regarding %q.\n\n", env.Subject)

	if insight.Summary != "" {
		fmt.Fprintf(&b, "%s\n\n", insight.Summary)
	}

	if len(insight.ActionItems) > 0 {
		b.WriteString("Next steps:\n")
		steps := insight.ActionItems
		if len(steps) > maxDraftNextSteps {
			steps = steps[:maxDraftNextSteps]
		}
		for _, step := range steps {
			fmt.Fprintf(&b, "- %s\n", step)
		}
		b.WriteString("\n")
	}

	b.WriteString("Best regards,\n<Your Name>")

	confidence := 0.25
	return model.Draft{
		EmailUID:     env.UID,
		Body:         b.String(),
		Provider:     FallbackProvider,
		GeneratedAt:  now,
		Confidence:   &confidence,
		UsedFallback: true,
	}
}

// senderName extracts a salutation name from a sender address, using
// the local part of the address when no display name is available.
func senderName(sender string) string {
	sender = strings.TrimSpace(sender)
	if at := strings.Index(sender, "@"); at > 0 {
		return sender[:at]
	}
	if sender == "" {
		return "there"
	}
	return sender
}
