package logwatch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mkihara/aiops/internal/eventbus"
	"github.com/mkihara/aiops/internal/modelcat"
	"github.com/mkihara/aiops/internal/queue"
	"github.com/mkihara/aiops/internal/task"
)

// DefaultDedupeWindow suppresses repeat submissions of the same error line.
const DefaultDedupeWindow = time.Minute

// Lines that should wake the analyzer.
var errorLineRe = regexp.MustCompile(`(?i)\b(error|fatal|panic|exception|traceback|segfault)\b`)

// Watcher tails log files and submits a log-analysis task for every new
// error line, deduplicated within a time window. Rotation is handled by
// reopening from the start when a file shrinks.
type Watcher struct {
	queue  *queue.Queue
	bus    *eventbus.Bus
	window time.Duration

	mu       sync.Mutex
	offsets  map[string]int64
	lastSeen map[string]time.Time
}

type Option func(*Watcher)

func WithDedupeWindow(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.window = d
		}
	}
}

func New(q *queue.Queue, bus *eventbus.Bus, opts ...Option) *Watcher {
	w := &Watcher{
		queue:    q,
		bus:      bus,
		window:   DefaultDedupeWindow,
		offsets:  map[string]int64{},
		lastSeen: map[string]time.Time{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches paths until ctx is cancelled. Existing content is skipped;
// only lines appended after the watch starts are considered.
func (w *Watcher) Run(ctx context.Context, paths []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	for _, p := range paths {
		if info, err := os.Stat(p); err == nil {
			w.offsets[p] = info.Size()
		}
		if err := watcher.Add(p); err != nil {
			slog.WarnContext(ctx, "cannot watch log file", "path", p, "error", err)
			continue
		}
		slog.InfoContext(ctx, "watching log file", "path", p)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == 0 {
				continue
			}
			w.consume(ctx, event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "log watcher error", "error", err)
		}
	}
}

// consume reads new lines past the stored offset and submits error lines.
func (w *Watcher) consume(ctx context.Context, path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return
	}

	w.mu.Lock()
	offset := w.offsets[path]
	if info.Size() < offset {
		// Truncated or rotated: start over.
		offset = 0
	}
	w.mu.Unlock()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return
	}

	// Count the bytes actually consumed so CRLF endings advance the offset
	// correctly. An unterminated tail is held back until its newline
	// arrives on a later write.
	reader := bufio.NewReaderSize(f, 64*1024)
	read := offset
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		read += int64(len(line))
		line = strings.TrimRight(line, "\r\n")
		if errorLineRe.MatchString(line) {
			w.submit(ctx, path, line)
		}
	}

	w.mu.Lock()
	w.offsets[path] = read
	w.mu.Unlock()
}

func (w *Watcher) submit(ctx context.Context, path, line string) {
	key := strings.TrimSpace(line)

	w.mu.Lock()
	if last, seen := w.lastSeen[key]; seen && time.Since(last) < w.window {
		w.mu.Unlock()
		return
	}
	w.lastSeen[key] = time.Now()
	w.mu.Unlock()

	w.bus.PublishNew(eventbus.EventTypeLogLineDetected, path, line, nil)

	priority := task.PriorityMedium
	if strings.Contains(strings.ToLower(line), "fatal") || strings.Contains(strings.ToLower(line), "panic") {
		priority = task.PriorityHigh
	}
	input := fmt.Sprintf("Detected in %s:\n%s", path, line)
	if _, err := w.queue.Create(ctx, modelcat.CategoryLogAnalysis, input, priority, map[string]string{
		"source": "logwatch",
		"path":   path,
	}); err != nil {
		slog.WarnContext(ctx, "failed to submit log-analysis task", "path", path, "error", err)
	}
}
