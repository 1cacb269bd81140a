package task

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mkihara/aiops/internal/modelcat"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank orders priorities for the pending queue; lower ranks first.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	}
	return 4
}

func (p Priority) Valid() bool {
	return p.Rank() < 4
}

type Task struct {
	ID          string            `yaml:"id"`
	Category    modelcat.Category `yaml:"category"`
	Input       string            `yaml:"input"`
	Priority    Priority          `yaml:"priority"`
	Status      Status            `yaml:"status"`
	Result      string            `yaml:"result,omitempty"`
	Error       string            `yaml:"error,omitempty"`
	Metadata    map[string]string `yaml:"metadata,omitempty"`
	CreatedAt   time.Time         `yaml:"created_at"`
	StartedAt   *time.Time        `yaml:"started_at,omitempty"`
	CompletedAt *time.Time        `yaml:"completed_at,omitempty"`
}

func New(category modelcat.Category, input string, priority Priority, metadata map[string]string) *Task {
	if !priority.Valid() {
		priority = PriorityMedium
	}
	return &Task{
		ID:        ulid.Make().String(),
		Category:  category,
		Input:     input,
		Priority:  priority,
		Status:    StatusPending,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
}

// Terminal reports whether the task has reached a final status.
func (t *Task) Terminal() bool {
	switch t.Status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}
