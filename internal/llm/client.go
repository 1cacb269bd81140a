// Package llm talks to an OpenAI-compatible chat completion endpoint and
// layers bounded retry and model fallback on top of single calls.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a single chat completion request.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
}

// Usage reports provider-side token accounting.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the extracted result of a chat completion.
type ChatResponse struct {
	Model        string
	Content      string
	FinishReason string
	Usage        Usage
}

// ModelError is a failed provider call. StatusCode is zero for transport
// errors that never produced an HTTP response.
type ModelError struct {
	Message    string
	StatusCode int
	Raw        string
}

func (e *ModelError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("model call failed (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("model call failed: %s", e.Message)
}

// Retryable reports whether the failure is worth retrying. Authentication
// and malformed-request errors fail immediately.
func (e *ModelError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return false
	}
	return true
}

// Caller issues one chat completion request. Implemented by Client and
// wrapped by Retryer.
type Caller interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// Client is a thin HTTP client for an OpenAI-compatible endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for the given endpoint. The API key is sent as
// a bearer credential.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type wireResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Chat performs one chat completion call.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &ModelError{Message: fmt.Sprintf("marshal request: %v", err), StatusCode: http.StatusBadRequest}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &ModelError{Message: fmt.Sprintf("build request: %v", err), StatusCode: http.StatusBadRequest}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &ModelError{Message: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &ModelError{Message: fmt.Sprintf("read response: %v", err), StatusCode: resp.StatusCode}
	}

	var wire wireResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &ModelError{Message: http.StatusText(resp.StatusCode), StatusCode: resp.StatusCode, Raw: string(raw)}
		}
		return nil, &ModelError{Message: fmt.Sprintf("decode response: %v", err), StatusCode: resp.StatusCode, Raw: string(raw)}
	}
	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if wire.Error != nil && wire.Error.Message != "" {
			msg = wire.Error.Message
		}
		return nil, &ModelError{Message: msg, StatusCode: resp.StatusCode, Raw: string(raw)}
	}
	if len(wire.Choices) == 0 {
		return nil, &ModelError{Message: "response has no choices", StatusCode: resp.StatusCode, Raw: string(raw)}
	}

	return &ChatResponse{
		Model:        wire.Model,
		Content:      wire.Choices[0].Message.Content,
		FinishReason: wire.Choices[0].FinishReason,
		Usage:        wire.Usage,
	}, nil
}

// Ping performs a lightweight authenticated request to confirm the provider
// is reachable. Used for health reporting only.
func (c *Client) Ping(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("provider unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	return nil
}
