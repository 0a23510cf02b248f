package intelligence

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/inbox-ai/internal/model"
)

// fakeLLM returns canned responses in order, recording the prompts it
// received. Safe for concurrent use.
type fakeLLM struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
	calls     int
}

func (f *fakeLLM) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", errors.New("no canned response")
	}
	response := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return response, nil
}

func (f *fakeLLM) ProviderID() string { return "fake:test" }

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestGenerateInsightFromModel(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`Here you go: {"summary": "Alice asks for the Q3 numbers.", "action_items": ["send numbers"], "priority": 12}`,
	}}
	s := NewSummarizer(llm, nil, true)

	env := model.Envelope{UID: 5, Subject: "Q3", Sender: "alice@example.com", BodyText: "numbers please"}
	insight, err := s.GenerateInsight(context.Background(), env, nil)
	require.NoError(t, err)
	require.Equal(t, uint32(5), insight.EmailUID)
	require.Equal(t, "Alice asks for the Q3 numbers.", insight.Summary)
	require.Equal(t, []string{"send numbers"}, insight.ActionItems)
	require.Equal(t, 10, insight.Priority)
	require.Equal(t, "fake:test", insight.Provider)
	require.False(t, insight.UsedFallback)
}

func TestGenerateInsightFallsBackOnModelError(t *testing.T) {
	llm := &fakeLLM{err: errors.New("connection refused")}
	s := NewSummarizer(llm, nil, true)

	env := model.Envelope{UID: 5, Subject: "Q3", BodyText: "Please send the numbers."}
	insight, err := s.GenerateInsight(context.Background(), env, nil)
	require.NoError(t, err)
	require.True(t, insight.UsedFallback)
	require.Equal(t, FallbackProvider, insight.Provider)
}

func TestGenerateInsightFallsBackOnBadJSON(t *testing.T) {
	llm := &fakeLLM{responses: []string{"I cannot answer in JSON, sorry."}}
	s := NewSummarizer(llm, nil, true)

	env := model.Envelope{UID: 5, Subject: "Q3", BodyText: "body"}
	insight, err := s.GenerateInsight(context.Background(), env, nil)
	require.NoError(t, err)
	require.True(t, insight.UsedFallback)
}

func TestGenerateInsightErrorWhenFallbackDisabled(t *testing.T) {
	llm := &fakeLLM{err: errors.New("connection refused")}
	s := NewSummarizer(llm, nil, false)

	_, err := s.GenerateInsight(context.Background(), model.Envelope{UID: 5}, nil)
	require.Error(t, err)
	var enrichErr *EnrichmentError
	require.ErrorAs(t, err, &enrichErr)
	require.Equal(t, "insight", enrichErr.Stage)
}

func TestGenerateInsightSuppressesActionsForExcludedCategories(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`{"summary": "Promo blast.", "action_items": ["buy now"], "priority": 2}`,
	}}
	s := NewSummarizer(llm, map[string]bool{"marketing": true}, true)

	env := model.Envelope{UID: 5, Subject: "Sale", BodyText: "buy now"}
	categories := []model.Category{{Key: "marketing", Label: "Marketing"}}
	insight, err := s.GenerateInsight(context.Background(), env, categories)
	require.NoError(t, err)
	require.Empty(t, insight.ActionItems)
	require.Equal(t, "Promo blast.", insight.Summary)
}

func TestInsightPromptMentionsCategories(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"summary": "s", "action_items": [], "priority": 1}`}}
	s := NewSummarizer(llm, nil, true)

	env := model.Envelope{UID: 5, Subject: "Invoice", BodyText: "pay"}
	categories := []model.Category{{Key: "billing", Label: "Billing & Payments"}}
	_, err := s.GenerateInsight(context.Background(), env, categories)
	require.NoError(t, err)
	require.Len(t, llm.prompts, 1)
	require.Contains(t, llm.prompts[0], "billing")
}

func TestDraftReplyFromModel(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		`{"body": "Hi Alice, numbers attached.", "confidence": 0.9}`,
	}}
	d := NewDrafter(llm, true)

	env := model.Envelope{UID: 5, Subject: "Q3", Sender: "alice@example.com"}
	draft, err := d.DraftReply(context.Background(), env, model.Insight{Summary: "wants numbers"})
	require.NoError(t, err)
	require.Equal(t, "Hi Alice, numbers attached.", draft.Body)
	require.NotNil(t, draft.Confidence)
	require.InDelta(t, 0.9, *draft.Confidence, 0.0001)
	require.False(t, draft.UsedFallback)
}

func TestDraftReplyFallsBackOnEmptyBody(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"body": "", "confidence": 0.9}`}}
	d := NewDrafter(llm, true)

	env := model.Envelope{UID: 5, Subject: "Q3", Sender: "alice@example.com"}
	draft, err := d.DraftReply(context.Background(), env, model.Insight{})
	require.NoError(t, err)
	require.True(t, draft.UsedFallback)
}
