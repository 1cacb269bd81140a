package approval

import (
	"context"
	"time"

	"github.com/mkihara/aiops/internal/eventbus"
	"github.com/mkihara/aiops/internal/tool"
	"github.com/mkihara/aiops/pkg/cerr"
)

// Request is presented to the approval handler. It is transient: created,
// answered, discarded.
type Request struct {
	Tool      string
	Input     map[string]string
	Risk      RiskLevel
	CreatedAt time.Time
}

// Response carries the human decision. ModifiedInput, when non-nil,
// replaces the invocation's input before execution.
type Response struct {
	Approved      bool
	ModifiedInput map[string]string
	Feedback      string
}

// Handler decides on one approval request. It may block for human input.
type Handler interface {
	Decide(ctx context.Context, req Request) (Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req Request) (Response, error)

func (f HandlerFunc) Decide(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Decision is the gate's verdict on one invocation.
type Decision struct {
	Approved bool
	// Input to execute with; equals the proposed input unless the handler
	// substituted a modified one.
	Input    map[string]string
	Risk     RiskLevel
	Feedback string
}

// Gate sits between a proposed invocation and its execution. Tools not
// flagged as requiring approval bypass it entirely, as does a gate
// configured for auto-approval.
type Gate struct {
	autoApprove bool
	handler     Handler
	bus         *eventbus.Bus
}

func NewGate(autoApprove bool, handler Handler, bus *eventbus.Bus) *Gate {
	return &Gate{
		autoApprove: autoApprove,
		handler:     handler,
		bus:         bus,
	}
}

// WillPrompt reports whether authorizing this tool would block on a human
// decision.
func (g *Gate) WillPrompt(toolName string) bool {
	spec, ok := tool.Lookup(toolName)
	if !ok {
		return false
	}
	return spec.RequiresApproval && !g.autoApprove
}

// Authorize evaluates one invocation. It is called at most once per
// invocation. Denial is a normal decision, not an error; the error return
// covers handler failures only.
func (g *Gate) Authorize(ctx context.Context, inv tool.Invocation) (Decision, error) {
	risk := AssessRisk(inv.Tool, inv.Input)

	spec, ok := tool.Lookup(inv.Tool)
	if !ok {
		return Decision{}, cerr.NewError(cerr.InvalidArgument, "unknown tool "+inv.Tool, nil)
	}
	if !spec.RequiresApproval || g.autoApprove {
		return Decision{Approved: true, Input: inv.Input, Risk: risk}, nil
	}

	req := Request{
		Tool:      inv.Tool,
		Input:     inv.Input,
		Risk:      risk,
		CreatedAt: time.Now(),
	}
	if g.bus != nil {
		g.bus.PublishNew(eventbus.EventTypeApprovalPending, inv.ID, inv.Tool, map[string]string{
			"risk": string(risk),
		})
	}

	resp, err := g.handler.Decide(ctx, req)
	if err != nil {
		return Decision{}, cerr.NewError(cerr.Internal, "approval handler failed", err)
	}

	if g.bus != nil {
		outcome := "denied"
		if resp.Approved {
			outcome = "approved"
		}
		g.bus.PublishNew(eventbus.EventTypeApprovalResolved, inv.ID, inv.Tool, map[string]string{
			"risk":    string(risk),
			"outcome": outcome,
		})
	}

	input := inv.Input
	if resp.Approved && resp.ModifiedInput != nil {
		input = resp.ModifiedInput
	}
	return Decision{
		Approved: resp.Approved,
		Input:    input,
		Risk:     risk,
		Feedback: resp.Feedback,
	}, nil
}
