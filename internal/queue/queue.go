package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mkihara/aiops/internal/eventbus"
	"github.com/mkihara/aiops/internal/modelcat"
	"github.com/mkihara/aiops/internal/task"
	"github.com/mkihara/aiops/pkg/cerr"
)

// DefaultConcurrencyCap bounds the running partition.
const DefaultConcurrencyCap = 5

// Runner executes one task to completion and returns its result text.
type Runner interface {
	RunTask(ctx context.Context, t *task.Task) (string, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, t *task.Task) (string, error)

func (f RunnerFunc) RunTask(ctx context.Context, t *task.Task) (string, error) {
	return f(ctx, t)
}

// Queue holds tasks in four partitions: pending (priority-ordered, FIFO
// within a priority), running, completed and failed. Cancelled tasks live
// in the failed partition with status cancelled. All partition mutation
// happens under one lock; task execution itself runs outside it.
type Queue struct {
	mu        sync.Mutex
	pending   []*task.Task
	running   map[string]*task.Task
	completed []*task.Task
	failed    []*task.Task

	repo   task.Repository
	bus    *eventbus.Bus
	runner Runner
	cap    int
}

type Option func(*Queue)

func WithConcurrencyCap(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.cap = n
		}
	}
}

func New(repo task.Repository, bus *eventbus.Bus, runner Runner, opts ...Option) *Queue {
	q := &Queue{
		running: map[string]*task.Task{},
		repo:    repo,
		bus:     bus,
		runner:  runner,
		cap:     DefaultConcurrencyCap,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Restore rebuilds the partitions from the repository. A task that was
// running when the process died is moved to failed; it never resumes.
func (q *Queue) Restore(ctx context.Context) error {
	all, _, err := q.repo.List(ctx, "", 0, 0)
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range all {
		switch t.Status {
		case task.StatusPending:
			q.insertPendingLocked(t)
		case task.StatusRunning:
			t.Status = task.StatusFailed
			t.Error = "interrupted by restart"
			now := time.Now()
			t.CompletedAt = &now
			if err := q.repo.Update(ctx, t); err != nil {
				slog.WarnContext(ctx, "failed to persist interrupted task", "task_id", t.ID, "error", err)
			}
			q.failed = append(q.failed, t)
		case task.StatusCompleted:
			q.completed = append(q.completed, t)
		case task.StatusFailed, task.StatusCancelled:
			q.failed = append(q.failed, t)
		}
	}
	return nil
}

// Create inserts a new pending task at the position preserving priority
// order.
func (q *Queue) Create(ctx context.Context, category modelcat.Category, input string, priority task.Priority, metadata map[string]string) (*task.Task, error) {
	if input == "" {
		return nil, cerr.NewError(cerr.InvalidArgument, "task input is required", nil)
	}
	t := task.New(category, input, priority, metadata)
	if err := q.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	q.mu.Lock()
	q.insertPendingLocked(t)
	q.mu.Unlock()

	q.bus.PublishNew(eventbus.EventTypeTaskCreated, t.ID, t.Input, map[string]string{
		"category": string(t.Category),
		"priority": string(t.Priority),
	})
	return t, nil
}

// insertPendingLocked keeps pending priority-ordered and FIFO within one
// priority: the task goes after every entry of equal or higher priority.
func (q *Queue) insertPendingLocked(t *task.Task) {
	i := len(q.pending)
	for ; i > 0; i-- {
		if q.pending[i-1].Priority.Rank() <= t.Priority.Rank() {
			break
		}
	}
	q.pending = append(q.pending, nil)
	copy(q.pending[i+1:], q.pending[i:])
	q.pending[i] = t
}

// Execute runs one pending task synchronously from the caller's view.
func (q *Queue) Execute(ctx context.Context, id string) (*task.Task, error) {
	t, err := q.startTask(ctx, id)
	if err != nil {
		return nil, err
	}
	return q.runToCompletion(ctx, t)
}

// ProcessNext starts the highest-priority pending task. It refuses when
// the running partition is at the concurrency cap; both "nothing pending"
// and "at capacity" return started=false without error.
func (q *Queue) ProcessNext(ctx context.Context) (started bool, t *task.Task, err error) {
	q.mu.Lock()
	if len(q.pending) == 0 || len(q.running) >= q.cap {
		q.mu.Unlock()
		return false, nil, nil
	}
	next := q.pending[0]
	q.mu.Unlock()

	done, err := q.Execute(ctx, next.ID)
	if err != nil {
		return false, nil, err
	}
	return true, done, nil
}

func (q *Queue) startTask(ctx context.Context, id string) (*task.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.running) >= q.cap {
		return nil, cerr.NewError(cerr.ResourceExhausted, "queue is at its concurrency cap", nil)
	}

	idx := -1
	for i, t := range q.pending {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, cerr.NewError(cerr.NotFound, "no pending task with id "+id, nil)
	}

	t := q.pending[idx]
	q.pending = append(q.pending[:idx], q.pending[idx+1:]...)

	now := time.Now()
	t.Status = task.StatusRunning
	t.StartedAt = &now
	q.running[t.ID] = t
	if err := q.repo.Update(ctx, t); err != nil {
		slog.WarnContext(ctx, "failed to persist running task", "task_id", t.ID, "error", err)
	}
	q.bus.PublishNew(eventbus.EventTypeTaskStarted, t.ID, "", nil)
	return t, nil
}

func (q *Queue) runToCompletion(ctx context.Context, t *task.Task) (*task.Task, error) {
	result, runErr := q.runner.RunTask(ctx, t)

	q.mu.Lock()
	delete(q.running, t.ID)
	now := time.Now()
	t.CompletedAt = &now
	if runErr != nil {
		t.Status = task.StatusFailed
		t.Error = runErr.Error()
		q.failed = append(q.failed, t)
	} else {
		t.Status = task.StatusCompleted
		t.Result = result
		q.completed = append(q.completed, t)
	}
	q.mu.Unlock()

	if err := q.repo.Update(ctx, t); err != nil {
		slog.WarnContext(ctx, "failed to persist finished task", "task_id", t.ID, "error", err)
	}
	if runErr != nil {
		q.bus.PublishNew(eventbus.EventTypeTaskFailed, t.ID, t.Error, nil)
	} else {
		q.bus.PublishNew(eventbus.EventTypeTaskCompleted, t.ID, "", nil)
	}
	return t, nil
}

// Cancel only succeeds while the task is still pending. Cancelled tasks
// move to the failed partition with status cancelled.
func (q *Queue) Cancel(ctx context.Context, id string) (*task.Task, error) {
	q.mu.Lock()
	idx := -1
	for i, t := range q.pending {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		_, running := q.running[id]
		q.mu.Unlock()
		if running {
			return nil, cerr.NewError(cerr.FailedPrecondition, "task is already running", nil)
		}
		return nil, cerr.NewError(cerr.NotFound, "no pending task with id "+id, nil)
	}

	t := q.pending[idx]
	q.pending = append(q.pending[:idx], q.pending[idx+1:]...)
	now := time.Now()
	t.Status = task.StatusCancelled
	t.CompletedAt = &now
	q.failed = append(q.failed, t)
	q.mu.Unlock()

	if err := q.repo.Update(ctx, t); err != nil {
		slog.WarnContext(ctx, "failed to persist cancelled task", "task_id", t.ID, "error", err)
	}
	q.bus.PublishNew(eventbus.EventTypeTaskCancelled, t.ID, "", nil)
	return t, nil
}

// Retry reinserts a failed or cancelled task into pending by priority.
// The error and completion timestamp are cleared; history is kept.
func (q *Queue) Retry(ctx context.Context, id string) (*task.Task, error) {
	q.mu.Lock()
	idx := -1
	for i, t := range q.failed {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		q.mu.Unlock()
		return nil, cerr.NewError(cerr.FailedPrecondition, "task is not in the failed partition", nil)
	}

	t := q.failed[idx]
	q.failed = append(q.failed[:idx], q.failed[idx+1:]...)
	t.Status = task.StatusPending
	t.Error = ""
	t.CompletedAt = nil
	q.insertPendingLocked(t)
	q.mu.Unlock()

	if err := q.repo.Update(ctx, t); err != nil {
		slog.WarnContext(ctx, "failed to persist retried task", "task_id", t.ID, "error", err)
	}
	return t, nil
}

// Get looks a task up across all partitions.
func (q *Queue) Get(id string) (*task.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, t := range q.pending {
		if t.ID == id {
			return t, true
		}
	}
	if t, ok := q.running[id]; ok {
		return t, true
	}
	for _, t := range q.completed {
		if t.ID == id {
			return t, true
		}
	}
	for _, t := range q.failed {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// Status is a snapshot of all four partitions.
type Status struct {
	Pending   []*task.Task `json:"pending"`
	Running   []*task.Task `json:"running"`
	Completed []*task.Task `json:"completed"`
	Failed    []*task.Task `json:"failed"`
}

func (s Status) Counts() map[string]int {
	return map[string]int{
		"pending":   len(s.Pending),
		"running":   len(s.Running),
		"completed": len(s.Completed),
		"failed":    len(s.Failed),
	}
}

func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := Status{
		Pending:   append([]*task.Task(nil), q.pending...),
		Completed: append([]*task.Task(nil), q.completed...),
		Failed:    append([]*task.Task(nil), q.failed...),
	}
	for _, t := range q.running {
		s.Running = append(s.Running, t)
	}
	return s
}
