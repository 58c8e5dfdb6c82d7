// Package llm talks to the AI completion provider: prompt construction,
// the chat-completions HTTP client, and parsing of the provider's
// untrusted output into structured findings.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sevigo/boxedbot/internal/config"
)

const (
	completionsPath    = "/v1/chat/completions"
	defaultTemperature = 0.1

	// responseBodyLimit bounds how much of the provider's response is
	// read, independent of the max_tokens request parameter.
	responseBodyLimit = 1 << 20

	systemPrompt = "You are a code review assistant. Analyze the code and provide feedback in JSON format."
)

// Provider is the AI collaborator: one prompt in, one text completion out.
//
//go:generate mockgen -destination=../../mocks/mock_llm_provider.go -package=mocks . Provider
type Provider interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// SelectModel picks the model tier from the PR's total changed-line count
// using the configured thresholds. A policy override always wins. Mid-size
// PRs stay on the small model; only genuinely large ones pay for the big
// tier.
func SelectModel(cfg *config.Config, totalChanges int, override string) string {
	if override != "" {
		return override
	}
	if totalChanges <= cfg.LargePRThreshold {
		return cfg.ModelSmall
	}
	return cfg.ModelLarge
}

// OpenAIClient is an HTTP client for an OpenAI-compatible chat-completions
// API.
type OpenAIClient struct {
	apiKey    string
	baseURL   string
	maxTokens int
	client    *http.Client
	logger    *slog.Logger
}

// NewOpenAIClient creates a provider client from the application config.
// The HTTP client timeout is the per-call bound; callers add their own
// context deadlines on top.
func NewOpenAIClient(cfg *config.Config, logger *slog.Logger) *OpenAIClient {
	return &OpenAIClient{
		apiKey:    cfg.OpenAIAPIKey,
		baseURL:   cfg.OpenAIBaseURL,
		maxTokens: cfg.OpenAIMaxTokens,
		client:    &http.Client{Timeout: cfg.OpenAITimeout},
		logger:    logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends one prompt to the provider and returns the raw completion
// text. Failures carry enough detail for logging but are never retried
// here; a failed file simply contributes no findings.
func (c *OpenAIClient) Complete(ctx context.Context, model, prompt string) (string, error) {
	reqBody := chatCompletionRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: defaultTemperature,
		MaxTokens:   c.maxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsPath, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
	if err != nil {
		return "", fmt.Errorf("failed to read completion response: %w", err)
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("failed to decode completion response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := "unknown error"
		if completion.Error != nil {
			msg = completion.Error.Message
		}
		return "", fmt.Errorf("provider returned status %d: %s", resp.StatusCode, msg)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("provider returned no choices")
	}

	return completion.Choices[0].Message.Content, nil
}
