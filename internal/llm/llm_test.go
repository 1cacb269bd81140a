package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkihara/aiops/internal/modelcat"
)

// fakeCaller fails a configurable number of times per model before
// succeeding, and records every attempt.
type fakeCaller struct {
	failures map[string]int // model -> remaining failures
	failWith *ModelError
	attempts []string
}

func (f *fakeCaller) Chat(_ context.Context, req ChatRequest) (*ChatResponse, error) {
	f.attempts = append(f.attempts, req.Model)
	if n := f.failures[req.Model]; n > 0 {
		f.failures[req.Model] = n - 1
		if f.failWith != nil {
			return nil, f.failWith
		}
		return nil, &ModelError{Message: "transient", StatusCode: http.StatusServiceUnavailable}
	}
	return &ChatResponse{Model: req.Model, Content: "ok"}, nil
}

func TestRetryerRetriesTransientFailures(t *testing.T) {
	fake := &fakeCaller{failures: map[string]int{"m": 2}}
	r := NewRetryer(fake, 3, time.Millisecond)

	resp, err := r.Chat(context.Background(), ChatRequest{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Len(t, fake.attempts, 3)
}

func TestRetryerGivesUpAfterMaxAttempts(t *testing.T) {
	fake := &fakeCaller{failures: map[string]int{"m": 10}}
	r := NewRetryer(fake, 3, time.Millisecond)

	_, err := r.Chat(context.Background(), ChatRequest{Model: "m"})
	require.Error(t, err)
	assert.Len(t, fake.attempts, 3)
}

func TestRetryerDoesNotRetryAuthErrors(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusBadRequest} {
		fake := &fakeCaller{
			failures: map[string]int{"m": 10},
			failWith: &ModelError{Message: "nope", StatusCode: status},
		}
		r := NewRetryer(fake, 3, time.Millisecond)

		_, err := r.Chat(context.Background(), ChatRequest{Model: "m"})
		require.Error(t, err)
		assert.Len(t, fake.attempts, 1, "status %d must not be retried", status)
	}
}

func TestFallbackTriesEachCandidateOnce(t *testing.T) {
	// Candidate list for log-analysis: requested, then the chain. Only the
	// last candidate succeeds; every candidate before it must be attempted
	// exactly once.
	cat := modelcat.CategoryLogAnalysis
	candidates := Candidates(modelcat.SelectModel(cat), cat)
	require.Greater(t, len(candidates), 1)

	failures := map[string]int{}
	for _, id := range candidates[:len(candidates)-1] {
		failures[id] = 100
	}
	fake := &fakeCaller{failures: failures}
	fb := NewFallbackCaller(NewRetryer(fake, 1, time.Millisecond))

	resp, err := fb.ChatWithFallback(context.Background(), ChatRequest{Model: candidates[0]}, cat)
	require.NoError(t, err)
	assert.Equal(t, candidates[len(candidates)-1], resp.Model)
	assert.Equal(t, candidates, fake.attempts, "each candidate attempted once, in order")
}

func TestFallbackAggregateErrorNamesCategory(t *testing.T) {
	fake := &fakeCaller{failures: map[string]int{
		"openai/gpt-4o": 100, "openai/gpt-4o-mini": 100,
		"anthropic/claude-3.5-sonnet": 100, "deepseek/deepseek-r1": 100,
		"google/gemini-flash-1.5": 100, "qwen/qwen-2.5-coder-32b": 100,
	}}
	fb := NewFallbackCaller(NewRetryer(fake, 1, time.Millisecond))

	_, err := fb.ChatWithFallback(context.Background(), ChatRequest{Model: "openai/gpt-4o"}, modelcat.CategoryDebugging)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "debugging")
}

func TestCandidatesDeduplicates(t *testing.T) {
	cat := modelcat.CategoryLogAnalysis
	chain := modelcat.FallbackChain(cat)
	// Request a model that also appears in the chain.
	got := Candidates(chain[0], cat)
	seen := map[string]int{}
	for _, id := range got {
		seen[id]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "model %s appears %d times", id, n)
	}
}

func TestClientChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sekrit", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "openai/gpt-4o",
			"choices": [{"message": {"content": "hi"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 3, "completion_tokens": 1, "total_tokens": 4}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sekrit")
	resp, err := c.Chat(context.Background(), ChatRequest{Model: "openai/gpt-4o", Messages: []Message{{Role: "user", Content: "hi"}}})
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 4, resp.Usage.TotalTokens)
}

func TestClientChatProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limited", "type": "rate_limit"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "k")
	_, err := c.Chat(context.Background(), ChatRequest{Model: "m"})
	require.Error(t, err)
	merr, ok := err.(*ModelError)
	require.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, merr.StatusCode)
	assert.Equal(t, "rate limited", merr.Message)
	assert.True(t, merr.Retryable())
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"bare object", `{"a": 1}`, `{"a": 1}`, true},
		{"object in prose", "Here is the result:\n{\"a\": 1}\nDone.", `{"a": 1}`, true},
		{"nested braces", `result {"a": {"b": 2}} trailing`, `{"a": {"b": 2}}`, true},
		{"braces in strings", `{"msg": "use {curly} braces"}`, `{"msg": "use {curly} braces"}`, true},
		{"escaped quote", `{"msg": "say \"hi\" {ok}"}`, `{"msg": "say \"hi\" {ok}"}`, true},
		{"no object", "plain text only", "", false},
		{"unbalanced", `{"a": 1`, "", false},
		{"skips invalid finds valid", `{not json} then {"a": 1}`, `{"a": 1}`, true},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("ExtractJSON ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && string(got) != tt.want {
				t.Errorf("ExtractJSON = %q, want %q", got, tt.want)
			}
		})
	}
}
