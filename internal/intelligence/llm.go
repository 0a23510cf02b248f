// Package intelligence derives summaries, priorities, categories,
// follow-ups, and reply drafts from envelopes, backed by a local LLM
// with deterministic fallbacks.
package intelligence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nhle/inbox-ai/internal/metrics"
	"github.com/nhle/inbox-ai/internal/model"
)

// ContractError indicates the model replied but its output did not
// match the expected JSON shape. Callers fall back to deterministic
// results rather than failing the message.
type ContractError struct {
	Expected string
	Err      error
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("model output did not match %s contract: %v", e.Expected, e.Err)
}

func (e *ContractError) Unwrap() error {
	return e.Err
}

// IsContractError reports whether err (or any error in its chain) is a
// ContractError.
func IsContractError(err error) bool {
	var contractErr *ContractError
	return errors.As(err, &contractErr)
}

// LLMClient produces completions for prompts. Implementations must be
// safe for concurrent use.
type LLMClient interface {
	// Generate returns the raw completion text for the prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// ProviderID identifies the backing model for provenance tagging.
	ProviderID() string
}

const (
	maxGenerateAttempts = 3
	retryBaseDelay      = 500 * time.Millisecond
)

// OllamaClient talks to a local Ollama server over its generate API.
type OllamaClient struct {
	baseURL     string
	modelName   string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// NewOllamaClient creates a client from the LLM configuration.
func NewOllamaClient(cfg model.LLMConfig) *OllamaClient {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		modelName:   cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxOutputTokens,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// ProviderID returns an identifier like "ollama:gpt-oss:20b".
func (c *OllamaClient) ProviderID() string {
	return "ollama:" + c.modelName
}

type generateRequest struct {
	Model   string                 `json:"model"`
	Prompt  string                 `json:"prompt"`
	Stream  bool                   `json:"stream"`
	Options map[string]interface{} `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate sends the prompt to Ollama, retrying transient failures with
// exponential backoff.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	options := map[string]interface{}{
		"temperature": c.temperature,
	}
	if c.maxTokens > 0 {
		options["num_predict"] = c.maxTokens
	}

	payload, err := json.Marshal(generateRequest{
		Model:   c.modelName,
		Prompt:  prompt,
		Stream:  false,
		Options: options,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling generate request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := c.generateOnce(ctx, payload)
		if err == nil {
			metrics.RecordLLMCall(len(prompt)/4, len(text)/4)
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}

	return "", fmt.Errorf("generate failed after %d attempts: %w", maxGenerateAttempts, lastErr)
}

func (c *OllamaClient) generateOnce(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost,
		c.baseURL+"/api/generate",
		bytes.NewReader(payload),
	)
	if err != nil {
		return "", fmt.Errorf("building generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling ollama: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading ollama response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decoding ollama response: %w", err)
	}
	return parsed.Response, nil
}

// extractJSON pulls the first JSON object out of a completion, which
// models often wrap in prose or code fences.
func extractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", errors.New("no JSON object in output")
	}
	return text[start : end+1], nil
}
