package intelligence

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/inbox-ai/internal/model"
)

func TestScorePriorityKeywords(t *testing.T) {
	env := model.Envelope{
		Subject:  "URGENT: invoice overdue",
		Sender:   "billing@example.com",
		BodyText: "Please pay asap.",
	}
	// urgent=4, overdue=2, asap=3, one action item=1
	require.Equal(t, 10, scorePriority(env, []string{"Please pay asap."}))
}

func TestScorePrioritySenderHints(t *testing.T) {
	env := model.Envelope{
		Subject:  "Weekly numbers",
		Sender:   "ceo@example.com",
		BodyText: "See below.",
	}
	require.Equal(t, 4, scorePriority(env, nil))
}

func TestScorePriorityActionItemsCapped(t *testing.T) {
	env := model.Envelope{Subject: "Tasks", Sender: "a@b.com", BodyText: "list"}
	require.Equal(t, 3, scorePriority(env, []string{"a", "b", "c", "d", "e"}))
}

func TestScorePriorityAttachmentsAndClamp(t *testing.T) {
	env := model.Envelope{
		Subject: "urgent urgent important asap follow up overdue",
		Sender:  "ceo founder manager@example.com",
		Attachments: []model.Attachment{
			{Filename: "a.pdf"},
		},
	}
	require.Equal(t, 10, scorePriority(env, []string{"a", "b", "c"}))
}

func TestScorePriorityQuietMail(t *testing.T) {
	env := model.Envelope{
		Subject:  "Newsletter",
		Sender:   "news@example.com",
		BodyText: "This week in tech.",
	}
	require.Equal(t, 0, scorePriority(env, nil))
}

func TestLabelForPriority(t *testing.T) {
	require.Equal(t, "Low", labelForPriority(2))
	require.Equal(t, "Medium", labelForPriority(5))
	require.Equal(t, "High", labelForPriority(7))
	require.Equal(t, "Urgent", labelForPriority(9))
}
