package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mkihara/aiops/internal/modelcat"
)

// FallbackCaller tries the requested model first, then each model in the
// category's fallback chain, running one retry-bounded attempt sequence per
// candidate. No candidate is attempted twice within one pass.
type FallbackCaller struct {
	caller Caller
}

func NewFallbackCaller(caller Caller) *FallbackCaller {
	return &FallbackCaller{caller: caller}
}

// Candidates returns the deduplicated candidate list for a request:
// the requested model followed by the category's fallback chain.
func Candidates(requested string, cat modelcat.Category) []string {
	seen := make(map[string]bool)
	var out []string
	for _, id := range append([]string{requested}, modelcat.FallbackChain(cat)...) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// ChatWithFallback tries each candidate in order and returns the first
// success. When every candidate fails, the aggregate error names the task
// category and carries the last underlying error.
func (f *FallbackCaller) ChatWithFallback(ctx context.Context, req ChatRequest, cat modelcat.Category) (*ChatResponse, error) {
	candidates := Candidates(req.Model, cat)

	var lastErr error
	for _, id := range candidates {
		attempt := req
		attempt.Model = id
		resp, err := f.caller.Chat(ctx, attempt)
		if err == nil {
			if resp.Model == "" {
				resp.Model = id
			}
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		slog.WarnContext(ctx, "model exhausted retries, falling back",
			"model", id,
			"category", cat,
			"error", err,
		)
	}
	return nil, fmt.Errorf("all models failed for category %q: %w", cat, lastErr)
}
