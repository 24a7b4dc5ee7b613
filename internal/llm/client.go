// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm calls the OpenAI chat completions API. Stages depend on
// the Backend interface so tests can supply a mock.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/niderhoff/scolar/internal/httputil"
	"github.com/niderhoff/scolar/pkg/types"
)

// Backend produces one completion for a system+user prompt pair.
type Backend interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// defaultAPIURL is the OpenAI chat completions endpoint.
const defaultAPIURL = "https://api.openai.com/v1/chat/completions"

// maxErrorBodyBytes caps how much of an error response is echoed back.
const maxErrorBodyBytes = 2048

// OpenAIBackend calls the OpenAI chat completions API over HTTP.
type OpenAIBackend struct {
	APIKey      string
	Model       string
	Temperature float64

	// BaseURL overrides the API endpoint. Tests point this at an
	// httptest server.
	BaseURL string

	// Client is the HTTP client; http.DefaultClient when nil.
	Client *http.Client

	// Retry controls backoff on 429/5xx responses.
	Retry httputil.Policy
}

// NewOpenAIBackend builds a backend from the OpenAI settings.
func NewOpenAIBackend(cfg types.OpenAIConfig) *OpenAIBackend {
	return &OpenAIBackend{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Client:      &http.Client{Timeout: cfg.Timeout},
		Retry:       httputil.Policy{Retries: 2, Backoff: time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends the prompt pair and returns the trimmed completion
// text. An empty completion is an error.
func (b *OpenAIBackend) Complete(ctx context.Context, system, user string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       b.Model,
		Temperature: b.Temperature,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}

	url := b.BaseURL
	if url == "" {
		url = defaultAPIURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.APIKey)

	client := b.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, b.Retry)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", fmt.Errorf("chat request: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("chat response has no choices")
	}

	content := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("chat response is empty")
	}
	return content, nil
}
