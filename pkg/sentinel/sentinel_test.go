package sentinel

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestHashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "binary")
	content := []byte("hello world")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}

	want := sha256.Sum256(content)
	if got != want {
		t.Errorf("hash mismatch: got %x, want %x", got, want)
	}
}

func TestHashFileDistinguishesContent(t *testing.T) {
	dir := t.TempDir()

	path1 := filepath.Join(dir, "a")
	path2 := filepath.Join(dir, "b")
	path3 := filepath.Join(dir, "c")
	if err := os.WriteFile(path1, []byte("build one"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path2, []byte("build two"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path3, []byte("build one"), 0644); err != nil {
		t.Fatal(err)
	}

	hash1, err := HashFile(path1)
	if err != nil {
		t.Fatalf("HashFile(a) failed: %v", err)
	}
	hash2, err := HashFile(path2)
	if err != nil {
		t.Fatalf("HashFile(b) failed: %v", err)
	}
	hash3, err := HashFile(path3)
	if err != nil {
		t.Fatalf("HashFile(c) failed: %v", err)
	}

	if hash1 == hash2 {
		t.Error("different files produced the same hash")
	}
	if hash1 != hash3 {
		t.Errorf("identical files produced different hashes: %x vs %x", hash1, hash3)
	}
}

func TestHashFileNotFound(t *testing.T) {
	if _, err := HashFile("/nonexistent/file/path"); err == nil {
		t.Error("expected error for nonexistent file, got nil")
	}
}

func TestBackoffProgression(t *testing.T) {
	s := &Sentinel{
		backoff: InitialBackoff,
		stopCh:  make(chan struct{}),
	}

	// 5s doubles each step until the 10m cap.
	expected := []time.Duration{
		10 * time.Second,
		20 * time.Second,
		40 * time.Second,
		80 * time.Second,
		160 * time.Second,
		320 * time.Second,
		600 * time.Second,
	}

	for i, want := range expected {
		s.increaseBackoff()
		if s.backoff != want {
			t.Errorf("step %d: got %v, want %v", i+1, s.backoff, want)
		}
	}

	// Further increases stay capped.
	s.increaseBackoff()
	if s.backoff != MaxBackoff {
		t.Errorf("got %v, want %v (should stay capped)", s.backoff, MaxBackoff)
	}
}

func TestSleepBackoffInterruptible(t *testing.T) {
	s := &Sentinel{
		backoff: 10 * time.Second,
		stopCh:  make(chan struct{}),
	}

	start := time.Now()
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(s.stopCh)
	}()

	s.sleepBackoff()
	if elapsed := time.Since(start); elapsed >= 1*time.Second {
		t.Errorf("sleepBackoff was not interrupted: elapsed %v", elapsed)
	}
}

func TestStopChildNilSafe(t *testing.T) {
	s := &Sentinel{stopCh: make(chan struct{})}

	// Must not panic for a child that never started.
	s.stopChild(nil)
}

func TestConstants(t *testing.T) {
	if InitialBackoff != 5*time.Second {
		t.Errorf("InitialBackoff: got %v, want %v", InitialBackoff, 5*time.Second)
	}
	if MaxBackoff != 10*time.Minute {
		t.Errorf("MaxBackoff: got %v, want %v", MaxBackoff, 10*time.Minute)
	}
	if GracePeriod != 10*time.Second {
		t.Errorf("GracePeriod: got %v, want %v", GracePeriod, 10*time.Second)
	}
	if BackoffFactor != 2.0 {
		t.Errorf("BackoffFactor: got %v, want %v", BackoffFactor, 2.0)
	}
	if SuccessRunTime != 30*time.Second {
		t.Errorf("SuccessRunTime: got %v, want %v", SuccessRunTime, 30*time.Second)
	}
}
