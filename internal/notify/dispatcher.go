package notify

import (
	"context"
	"fmt"

	"github.com/mkihara/aiops/internal/eventbus"
)

// Dispatcher turns task lifecycle events into push notifications.
type Dispatcher struct {
	bus    *eventbus.Bus
	sender *Sender
}

func NewDispatcher(bus *eventbus.Bus, sender *Sender) *Dispatcher {
	return &Dispatcher{bus: bus, sender: sender}
}

// Run consumes the event stream until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	id, events := d.bus.Subscribe(64)
	defer d.bus.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if payload := payloadFor(event); payload != nil {
				d.sender.SendToAll(ctx, payload)
			}
		}
	}
}

func payloadFor(event *eventbus.Event) *Payload {
	switch event.Type {
	case eventbus.EventTypeTaskCompleted:
		return &Payload{
			Title: "Task completed",
			Body:  fmt.Sprintf("Task %s finished successfully", event.ResourceID),
			Tag:   event.ResourceID,
		}
	case eventbus.EventTypeTaskFailed:
		return &Payload{
			Title: "Task failed",
			Body:  fmt.Sprintf("Task %s failed: %s", event.ResourceID, event.Payload),
			Tag:   event.ResourceID,
		}
	case eventbus.EventTypeApprovalPending:
		return &Payload{
			Title: "Approval needed",
			Body:  fmt.Sprintf("A %s invocation is waiting for approval (risk: %s)", event.Payload, event.Metadata["risk"]),
			Tag:   event.ID,
		}
	}
	return nil
}
