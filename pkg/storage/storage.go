// Package storage abstracts the persistence backend behind a small
// key-value style interface. Paths are slash-separated keys relative to
// the backend root; List is flat, not recursive.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Read and Delete when the key does not exist.
var ErrNotFound = errors.New("not found")

type Storage interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, path string) (bool, error)
}
