package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mkihara/aiops/internal/approval"
	"github.com/mkihara/aiops/internal/executor"
	"github.com/mkihara/aiops/internal/llm"
	"github.com/mkihara/aiops/internal/modelcat"
	"github.com/mkihara/aiops/internal/tool"
)

// DefaultMaxIterations bounds one loop run. Reaching it without a
// completion signal ends the run in error with a progress summary.
const DefaultMaxIterations = 50

// ModelCaller is the resilient model client surface the loop depends on.
type ModelCaller interface {
	ChatWithFallback(ctx context.Context, req llm.ChatRequest, cat modelcat.Category) (*llm.ChatResponse, error)
}

// Loop drives one task: ask the model for the next step, run the tools it
// proposes through validation, approval and execution, feed results back,
// repeat until completion or the iteration cap.
type Loop struct {
	caller        ModelCaller
	gate          *approval.Gate
	executor      *executor.Executor
	workDir       string
	maxIterations int
	capabilities  []string
	statusFn      func(Status)
}

type LoopOption func(*Loop)

func WithMaxIterations(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.maxIterations = n
		}
	}
}

// WithCapabilities restricts the loop to a subset of the catalog.
func WithCapabilities(names []string) LoopOption {
	return func(l *Loop) { l.capabilities = names }
}

// WithStatusFunc is called on every phase transition of a run.
func WithStatusFunc(fn func(Status)) LoopOption {
	return func(l *Loop) { l.statusFn = fn }
}

func NewLoop(caller ModelCaller, gate *approval.Gate, exec *executor.Executor, workDir string, opts ...LoopOption) *Loop {
	l := &Loop{
		caller:        caller,
		gate:          gate,
		executor:      exec,
		workDir:       workDir,
		maxIterations: DefaultMaxIterations,
		capabilities:  tool.Names(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RunOption adjusts a single run, not the loop itself.
type RunOption func(*runConfig)

type runConfig struct {
	model string
}

// WithModel pins the primary model for this run instead of routing by
// category. Fallback candidates still come from the category chain.
func WithModel(id string) RunOption {
	return func(rc *runConfig) { rc.model = id }
}

// Result is the terminal outcome of one loop run.
type Result struct {
	Status         Status
	FinalText      string
	Iterations     int
	StepsCompleted int
	StepsFailed    int
}

// Run executes the loop for one task input. The returned error covers
// infrastructure failures (every model candidate exhausted); tool failures
// and denials are ordinary conversation turns.
func (l *Loop) Run(ctx context.Context, input string, cat modelcat.Category, opts ...RunOption) (*Result, error) {
	var rc runConfig
	for _, opt := range opts {
		opt(&rc)
	}
	model := rc.model
	if model == "" {
		model = modelcat.SelectModelWithHints(cat, modelcat.Hints{InputLen: len(input)})
	}

	state := NewState(l.workDir, l.capabilities)
	state.Append("system", systemPrompt(l.capabilities))
	state.Append("user", input)

	res := &Result{}
	for res.Iterations < l.maxIterations {
		res.Iterations++
		l.setStatus(state, StatusThinking)

		req := llm.ChatRequest{
			Model:    model,
			Messages: historyMessages(state),
		}
		resp, err := l.caller.ChatWithFallback(ctx, req, cat)
		if err != nil {
			l.setStatus(state, StatusError)
			res.Status = StatusError
			return res, err
		}
		state.Append("assistant", resp.Content)

		invocations := l.recognized(ParseInvocations(resp.Content))

		if completionSignal(invocations) {
			l.setStatus(state, StatusCompleted)
			res.Status = StatusCompleted
			res.FinalText = completionText(ctx, l.executor, invocations, resp.Content)
			return res, nil
		}
		if len(invocations) == 0 {
			// Plain conversational text is a final answer.
			l.setStatus(state, StatusCompleted)
			res.Status = StatusCompleted
			res.FinalText = resp.Content
			return res, nil
		}

		l.setStatus(state, StatusExecuting)
		for _, prop := range invocations {
			// A followup question or an approval prompt blocks on a human.
			waits := prop.Tool == tool.AskFollowupQuestion || l.gate.WillPrompt(prop.Tool)
			if waits {
				l.setStatus(state, StatusWaiting)
			}
			outcome := l.step(ctx, prop)
			if waits {
				l.setStatus(state, StatusExecuting)
			}
			if outcome.IsError {
				res.StepsFailed++
			} else {
				res.StepsCompleted++
			}
			state.Append("user", fmt.Sprintf("[%s result]\n%s", outcome.Tool, outcome.Content))
		}
	}

	l.setStatus(state, StatusError)
	res.Status = StatusError
	res.FinalText = fmt.Sprintf("iteration limit reached after %d rounds: %d step(s) completed, %d failed",
		res.Iterations, res.StepsCompleted, res.StepsFailed)
	return res, nil
}

func (l *Loop) setStatus(state *State, s Status) {
	state.Status = s
	if l.statusFn != nil {
		l.statusFn(s)
	}
}

// step takes one proposed invocation through validate, authorize, execute.
// Every failure becomes an error-flagged outcome, never a thrown error.
func (l *Loop) step(ctx context.Context, prop proposed) tool.Outcome {
	inv := tool.NewInvocation(prop.Tool, prop.Input)

	if v := tool.Validate(inv.Tool, inv.Input); !v.Valid {
		return tool.NewOutcome(inv, "invalid invocation: "+strings.Join(v.Errors, "; "), true)
	}

	decision, err := l.gate.Authorize(ctx, inv)
	if err != nil {
		return tool.NewOutcome(inv, "approval failed: "+err.Error(), true)
	}
	if !decision.Approved {
		msg := fmt.Sprintf("the user denied this %s operation (risk: %s)", inv.Tool, decision.Risk)
		if decision.Feedback != "" {
			msg += "\nfeedback: " + decision.Feedback
		}
		return tool.NewOutcome(inv, msg, true)
	}

	slog.InfoContext(ctx, "executing tool",
		"tool", inv.Tool,
		"risk", string(decision.Risk),
	)
	return l.executor.Execute(ctx, inv, decision.Input)
}

// recognized filters parsed invocations down to the enabled capability
// list and groups consecutive duplicates of the same tool and input.
func (l *Loop) recognized(proposals []proposed) []proposed {
	enabled := make(map[string]bool, len(l.capabilities))
	for _, name := range l.capabilities {
		enabled[name] = true
	}

	var out []proposed
	for _, p := range proposals {
		if !enabled[p.Tool] {
			continue
		}
		if len(out) > 0 && sameProposal(out[len(out)-1], p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func sameProposal(a, b proposed) bool {
	if a.Tool != b.Tool || len(a.Input) != len(b.Input) {
		return false
	}
	for k, v := range a.Input {
		if b.Input[k] != v {
			return false
		}
	}
	return true
}

// completionText runs the terminal invocation through the executor so the
// formatted result is consistent with mid-loop outcomes.
func completionText(ctx context.Context, exec *executor.Executor, invocations []proposed, fallback string) string {
	for _, p := range invocations {
		if p.Tool != tool.AttemptCompletion {
			continue
		}
		inv := tool.NewInvocation(p.Tool, p.Input)
		if v := tool.Validate(inv.Tool, inv.Input); !v.Valid {
			break
		}
		return exec.Execute(ctx, inv, p.Input).Content
	}
	return fallback
}

func historyMessages(state *State) []llm.Message {
	msgs := make([]llm.Message, 0, len(state.History))
	for _, turn := range state.History {
		msgs = append(msgs, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	return msgs
}

func systemPrompt(capabilities []string) string {
	var b strings.Builder
	b.WriteString("You are an operations agent. Work step by step. To act, emit exactly one tool block per step using nested tags, for example:\n")
	b.WriteString("<execute_command>\n<command>systemctl status app</command>\n</execute_command>\n")
	b.WriteString("When the task is done, emit <attempt_completion> with a <result>.\n")
	b.WriteString("Available tools: ")
	b.WriteString(strings.Join(capabilities, ", "))
	return b.String()
}
