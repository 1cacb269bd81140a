package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Retryer wraps a Caller with bounded retry and exponential backoff. Auth
// and malformed-request errors are never retried.
type Retryer struct {
	caller      Caller
	maxAttempts int
	baseDelay   time.Duration
}

// NewRetryer wraps caller. maxAttempts <= 0 defaults to 3, baseDelay <= 0
// defaults to one second. The delay doubles after each failed attempt.
func NewRetryer(caller Caller, maxAttempts int, baseDelay time.Duration) *Retryer {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &Retryer{
		caller:      caller,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
	}
}

func (r *Retryer) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var lastErr error
	delay := r.baseDelay

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		resp, err := r.caller.Chat(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var merr *ModelError
		if errors.As(err, &merr) && !merr.Retryable() {
			return nil, err
		}
		if attempt == r.maxAttempts {
			break
		}

		slog.WarnContext(ctx, "model call failed, retrying",
			"model", req.Model,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay *= 2
	}
	return nil, lastErr
}
