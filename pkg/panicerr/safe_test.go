package panicerr

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSafePassesThroughResult(t *testing.T) {
	if err := Safe(func() error { return nil })(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	want := errors.New("boom")
	if err := Safe(func() error { return want })(); !errors.Is(err, want) {
		t.Errorf("got %v, want %v", err, want)
	}
}

func TestSafeRecoversPanic(t *testing.T) {
	err := Safe(func() error { panic("tool exploded") })()
	if err == nil {
		t.Fatal("expected an error from a panicking function")
	}
	if !strings.Contains(err.Error(), "tool exploded") {
		t.Errorf("panic value not in error: %v", err)
	}
}

func TestSafeContextRecoversPanic(t *testing.T) {
	err := SafeContext(func(ctx context.Context) error { panic("bad input") })(context.Background())
	if err == nil {
		t.Fatal("expected an error from a panicking function")
	}
	if !strings.Contains(err.Error(), "bad input") {
		t.Errorf("panic value not in error: %v", err)
	}
}

func TestSafeContextForwardsContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")

	err := SafeContext(func(got context.Context) error {
		if got.Value(key{}) != "v" {
			t.Error("context not forwarded")
		}
		return nil
	})(ctx)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
