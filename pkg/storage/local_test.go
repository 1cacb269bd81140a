package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newLocal(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage failed: %v", err)
	}
	return s
}

func TestLocalStorageRoundTrip(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	if err := s.Write(ctx, "tasks/01ABC.yaml", []byte("status: pending")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := s.Read(ctx, "tasks/01ABC.yaml")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(data) != "status: pending" {
		t.Errorf("Read returned %q", data)
	}

	exists, err := s.Exists(ctx, "tasks/01ABC.yaml")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("Exists returned false for a written key")
	}
}

func TestLocalStorageReadMissing(t *testing.T) {
	s := newLocal(t)

	_, err := s.Read(context.Background(), "tasks/missing.yaml")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLocalStorageDelete(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	if err := s.Write(ctx, "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestLocalStorageList(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	for _, key := range []string{"tasks/b.yaml", "tasks/a.yaml", "other/c.yaml"} {
		if err := s.Write(ctx, key, []byte("x")); err != nil {
			t.Fatal(err)
		}
	}

	keys, err := s.List(ctx, "tasks")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("List returned %d keys, want 2: %v", len(keys), keys)
	}
	for _, k := range keys {
		if k != "tasks/a.yaml" && k != "tasks/b.yaml" {
			t.Errorf("unexpected key %q", k)
		}
	}

	keys, err = s.List(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("List of missing prefix failed: %v", err)
	}
	if keys != nil {
		t.Errorf("List of missing prefix returned %v, want nil", keys)
	}
}

func TestLocalStorageWriteLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Write(context.Background(), "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "k.tmp")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("temp file left behind after write")
	}
}
