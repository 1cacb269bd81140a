package logwatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkihara/aiops/internal/eventbus"
	"github.com/mkihara/aiops/internal/queue"
	"github.com/mkihara/aiops/internal/task"
	"github.com/mkihara/aiops/internal/task/repositoryimpl"
	"github.com/mkihara/aiops/pkg/storage"
)

func newTestQueue(t *testing.T) *queue.Queue {
	t.Helper()
	st, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	repo := repositoryimpl.NewYAMLRepository(st)
	runner := queue.RunnerFunc(func(_ context.Context, _ *task.Task) (string, error) {
		return "", nil
	})
	return queue.New(repo, eventbus.New(), runner)
}

func TestErrorLineDetection(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"ERROR: Connection refused at db.py:10", true},
		{"2026-08-31 12:00:01 FATAL out of memory", true},
		{"panic: runtime error: index out of range", true},
		{"Traceback (most recent call last):", true},
		{"INFO request served in 12ms", false},
		{"DEBUG cache warm", false},
		{"user tried an errorless path", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorLineRe.MatchString(tt.line), tt.line)
	}
}

func TestConsumeSubmitsNewErrorLines(t *testing.T) {
	q := newTestQueue(t)
	w := New(q, eventbus.New())

	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(logPath, []byte("INFO boot\n"), 0o644))
	// Existing content is treated as already seen.
	info, err := os.Stat(logPath)
	require.NoError(t, err)
	w.offsets[logPath] = info.Size()

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("ERROR: disk full on /var\nINFO retrying\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	w.consume(context.Background(), logPath)

	pending := q.Status().Pending
	require.Len(t, pending, 1, "only the error line is submitted")
	assert.Contains(t, pending[0].Input, "disk full")
	assert.Equal(t, "logwatch", pending[0].Metadata["source"])
}

func TestConsumeDeduplicatesWithinWindow(t *testing.T) {
	q := newTestQueue(t)
	w := New(q, eventbus.New(), WithDedupeWindow(time.Hour))

	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(logPath, []byte("ERROR: flapping service\n"), 0o644))

	w.consume(context.Background(), logPath)
	require.NoError(t, os.WriteFile(logPath, []byte("ERROR: flapping service\nERROR: flapping service\n"), 0o644))
	w.consume(context.Background(), logPath)

	assert.Len(t, q.Status().Pending, 1, "identical lines inside the window collapse")
}

func TestFatalLinesGetHighPriority(t *testing.T) {
	q := newTestQueue(t)
	w := New(q, eventbus.New())

	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(logPath, []byte("FATAL database gone\n"), 0o644))

	w.consume(context.Background(), logPath)

	pending := q.Status().Pending
	require.Len(t, pending, 1)
	assert.Equal(t, task.PriorityHigh, pending[0].Priority)
}

func TestConsumeTracksCRLFOffsets(t *testing.T) {
	q := newTestQueue(t)
	w := New(q, eventbus.New(), WithDedupeWindow(time.Nanosecond))

	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")
	content := "ERROR: windows writer acting up\r\nINFO all clear\r\n"
	require.NoError(t, os.WriteFile(logPath, []byte(content), 0o644))

	w.consume(context.Background(), logPath)
	assert.Equal(t, int64(len(content)), w.offsets[logPath], "offset covers the CR bytes")

	// A second pass over the unchanged file must not resubmit anything.
	w.consume(context.Background(), logPath)
	pending := q.Status().Pending
	require.Len(t, pending, 1)
	assert.Contains(t, pending[0].Input, "windows writer")
	assert.NotContains(t, pending[0].Input, "\r")
}

func TestConsumeHoldsUnterminatedTail(t *testing.T) {
	q := newTestQueue(t)
	w := New(q, eventbus.New())

	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(logPath, []byte("INFO boot\nERROR: half-writ"), 0o644))

	w.consume(context.Background(), logPath)
	assert.Equal(t, int64(len("INFO boot\n")), w.offsets[logPath], "partial line stays unread")
	assert.Empty(t, q.Status().Pending)

	// The rest of the line arrives; it is read exactly once, in full.
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("ten disk is full\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	w.consume(context.Background(), logPath)
	pending := q.Status().Pending
	require.Len(t, pending, 1)
	assert.Contains(t, pending[0].Input, "ERROR: half-written disk is full")
}

func TestConsumeHandlesTruncation(t *testing.T) {
	q := newTestQueue(t)
	w := New(q, eventbus.New(), WithDedupeWindow(time.Millisecond))

	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(logPath, []byte("ERROR: first incident line\n"), 0o644))
	w.consume(context.Background(), logPath)

	// Rotation: the file restarts smaller than the stored offset.
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, os.WriteFile(logPath, []byte("ERROR: post-rotate\n"), 0o644))
	w.consume(context.Background(), logPath)

	assert.Len(t, q.Status().Pending, 2)
}
