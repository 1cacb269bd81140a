package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// apiClient is a thin JSON client for the aiops server.
type apiClient struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

func newClientFromEnv() (*apiClient, error) {
	baseURL := "http://localhost:3100"
	if v := os.Getenv("AIOPS_SERVER_URL"); v != "" {
		baseURL = v
	}
	apiKey := os.Getenv("AIOPS_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("AIOPS_API_KEY is required")
	}
	return &apiClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		// Task execution can run many model rounds; give it room.
		hc: &http.Client{Timeout: 10 * time.Minute},
	}, nil
}

type taskView struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Input     string    `json:"input"`
	Priority  string    `json:"priority"`
	Status    string    `json:"status"`
	Result    string    `json:"result"`
	Error     string    `json:"error"`
	CreatedAt time.Time `json:"created_at"`
}

type queueView struct {
	Counts    map[string]int `json:"counts"`
	Pending   []taskView     `json:"pending"`
	Running   []taskView     `json:"running"`
	Completed []taskView     `json:"completed"`
	Failed    []taskView     `json:"failed"`
}

type modelView struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Provider   string   `json:"provider"`
	Categories []string `json:"categories"`
}

type classifyView struct {
	Category string   `json:"category"`
	Model    string   `json:"model"`
	Fallback []string `json:"fallback"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (c *apiClient) submitTask(ctx context.Context, input, category, priority string) (*taskView, error) {
	body := map[string]string{
		"input":    input,
		"category": category,
		"priority": priority,
	}
	var t taskView
	if err := c.do(ctx, http.MethodPost, "/api/tasks", body, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *apiClient) getTask(ctx context.Context, id string) (*taskView, error) {
	var t taskView
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+id, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *apiClient) executeTask(ctx context.Context, id string) (*taskView, error) {
	var t taskView
	if err := c.do(ctx, http.MethodPost, "/api/tasks/"+id+"/execute", nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *apiClient) cancelTask(ctx context.Context, id string) (*taskView, error) {
	var t taskView
	if err := c.do(ctx, http.MethodPost, "/api/tasks/"+id+"/cancel", nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *apiClient) retryTask(ctx context.Context, id string) (*taskView, error) {
	var t taskView
	if err := c.do(ctx, http.MethodPost, "/api/tasks/"+id+"/retry", nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (c *apiClient) queueStatus(ctx context.Context) (*queueView, error) {
	var q queueView
	if err := c.do(ctx, http.MethodGet, "/api/queue", nil, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (c *apiClient) listModels(ctx context.Context) ([]modelView, error) {
	var models []modelView
	if err := c.do(ctx, http.MethodGet, "/api/models", nil, &models); err != nil {
		return nil, err
	}
	return models, nil
}

func (c *apiClient) classify(ctx context.Context, input string) (*classifyView, error) {
	var res classifyView
	if err := c.do(ctx, http.MethodPost, "/api/models/classify", map[string]string{"input": input}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Message == "" {
			return fmt.Errorf("server returned %s", resp.Status)
		}
		return &apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
