package intelligence

import (
	"fmt"
	"strings"

	"github.com/nhle/inbox-ai/internal/model"
)

// Prompt bodies are truncated so a long message cannot blow the model's
// context window.
const maxPromptBodyLen = 4000

// insightPrompt asks for a summary, action items, and a priority score
// as a single JSON object. Known categories, when available, steer the
// summary toward what matters for that kind of mail.
func insightPrompt(env model.Envelope, categories []model.Category) string {
	var b strings.Builder
	b.WriteString("You are an email assistant. Analyze the email below and respond with ONLY a JSON object, no other text.\n\n")
	b.WriteString("The JSON object must have exactly these fields:\n")
	b.WriteString(`  "summary": a 1-2 sentence summary of the email` + "\n")
	b.WriteString(`  "action_items": a list of concrete actions requested of the recipient (empty list if none)` + "\n")
	b.WriteString(`  "priority": an integer from 1 (ignorable) to 10 (drop everything)` + "\n\n")

	if len(categories) > 0 {
		keys := make([]string, 0, len(categories))
		for _, c := range categories {
			keys = append(keys, c.Key)
		}
		fmt.Fprintf(&b, "This email has been categorized as: %s. Weigh the summary and priority accordingly.\n\n",
			strings.Join(keys, ", "))
	}

	writeEnvelope(&b, env)
	return b.String()
}

// draftPrompt asks for a reply draft with a confidence estimate.
func draftPrompt(env model.Envelope, insight model.Insight) string {
	var b strings.Builder
	b.WriteString("You are an email assistant. Write a reply to the email below and respond with ONLY a JSON object, no other text.\n\n")
	b.WriteString("The JSON object must have exactly these fields:\n")
	b.WriteString(`  "body": the full reply text, ready to send` + "\n")
	b.WriteString(`  "confidence": a number from 0.0 to 1.0 estimating how likely the reply is usable as-is` + "\n\n")

	if insight.Summary != "" {
		fmt.Fprintf(&b, "Summary of the email: %s\n\n", insight.Summary)
	}

	writeEnvelope(&b, env)
	return b.String()
}

// analysisPrompt asks for the full composite analysis in one call:
// summary, priority, categories, follow-ups, and a suggested reply.
func analysisPrompt(env model.Envelope) string {
	var b strings.Builder
	b.WriteString("You are an email assistant. Analyze the email below and respond with ONLY a JSON object, no other text.\n\n")
	b.WriteString("The JSON object must have exactly these fields:\n")
	b.WriteString(`  "summary": a 1-2 sentence summary of the email` + "\n")
	b.WriteString(`  "priority": an integer from 1 (ignorable) to 10 (drop everything)` + "\n")
	b.WriteString(`  "priority_label": one of "Low", "Medium", "High", "Urgent"` + "\n")
	b.WriteString(`  "action_items": a list of concrete actions requested of the recipient` + "\n")
	b.WriteString(`  "categories": a list of labels such as "meeting", "billing", "sales", "support", "travel", "recruiting", "follow_up", "marketing", "notification", "general"` + "\n")
	b.WriteString(`  "follow_ups": a list of objects with "action" and "due_date" (ISO 8601 date or empty)` + "\n")
	b.WriteString(`  "suggested_reply": a short reply draft, or empty if no reply is warranted` + "\n\n")

	writeEnvelope(&b, env)
	return b.String()
}

// writeEnvelope appends the email headers and body in a fixed layout.
func writeEnvelope(b *strings.Builder, env model.Envelope) {
	fmt.Fprintf(b, "From: %s\n", env.Sender)
	fmt.Fprintf(b, "Subject: %s\n", env.Subject)
	if len(env.Attachments) > 0 {
		names := make([]string, 0, len(env.Attachments))
		for _, a := range env.Attachments {
			names = append(names, a.Filename)
		}
		fmt.Fprintf(b, "Attachments: %s\n", strings.Join(names, ", "))
	}

	body := env.BodyForAnalysis()
	if len(body) > maxPromptBodyLen {
		body = body[:maxPromptBodyLen]
	}
	fmt.Fprintf(b, "\n%s\n", body)
}
