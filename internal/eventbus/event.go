package eventbus

import "time"

type EventType string

const (
	EventTypeTaskCreated      EventType = "task.created"
	EventTypeTaskStarted      EventType = "task.started"
	EventTypeTaskCompleted    EventType = "task.completed"
	EventTypeTaskFailed       EventType = "task.failed"
	EventTypeTaskCancelled    EventType = "task.cancelled"
	EventTypeApprovalPending  EventType = "approval.pending"
	EventTypeApprovalResolved EventType = "approval.resolved"
	EventTypeLogLineDetected  EventType = "logwatch.line_detected"
)

type Event struct {
	ID         string
	Type       EventType
	ResourceID string
	Payload    string
	Metadata   map[string]string
	CreatedAt  time.Time
}
