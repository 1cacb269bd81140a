package cerr

import (
	"errors"
	"fmt"

	"github.com/mkihara/aiops/pkg/storage"
)

// Storage wrappers translate backend failures into caller-facing codes.
// A missing key surfaces as NotFound; anything else is an Internal error
// whose detail stays in the log, not the response.

func WrapStorageReadError(target string, err error) error {
	return wrapStorageError("read", target, err)
}

func WrapStorageWriteError(target string, err error) error {
	// A write never legitimately observes a missing key.
	return NewError(Internal, "server error", fmt.Errorf("failed to write %s: %w", target, err))
}

func WrapStorageDeleteError(target string, err error) error {
	return wrapStorageError("delete", target, err)
}

func wrapStorageError(op, target string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return NewError(NotFound, fmt.Sprintf("%s not found", target), err)
	}
	return NewError(Internal, "server error", fmt.Errorf("failed to %s %s: %w", op, target, err))
}
