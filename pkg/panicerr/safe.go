// Package panicerr converts panics in wrapped functions into returned
// errors, so a misbehaving tool or workflow can never take the process
// down with it.
package panicerr

import (
	"context"

	"github.com/sourcegraph/conc/panics"
)

// Safe wraps fn so that a panic inside it is returned as an error. The
// function's own error takes precedence over a recovered panic.
func Safe(fn func() error) func() error {
	return func() error {
		return run(fn)
	}
}

// SafeContext is Safe for context-taking functions.
func SafeContext(fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		return run(func() error { return fn(ctx) })
	}
}

func run(fn func() error) error {
	var (
		catcher panics.Catcher
		err     error
	)
	catcher.Try(func() {
		err = fn()
	})
	if err != nil {
		return err
	}
	return catcher.Recovered().AsError()
}
