package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mkihara/aiops/internal/tool"
	"github.com/mkihara/aiops/pkg/panicerr"
)

// Interactor answers questions on behalf of a human frontend.
type Interactor interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Executor performs the side effect of a validated, authorized invocation.
// Every code path returns a structured outcome; nothing escapes as a panic
// or error past Execute.
type Executor struct {
	workDir        string
	defaultTimeout time.Duration
	desktop        Desktop
	interactor     Interactor
}

type Option func(*Executor)

func WithDesktop(d Desktop) Option {
	return func(e *Executor) { e.desktop = d }
}

func WithInteractor(i Interactor) Option {
	return func(e *Executor) { e.interactor = i }
}

func WithDefaultTimeout(d time.Duration) Option {
	return func(e *Executor) { e.defaultTimeout = d }
}

func New(workDir string, opts ...Option) *Executor {
	e := &Executor{
		workDir:        workDir,
		defaultTimeout: 60 * time.Second,
		desktop:        UnsupportedDesktop{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one invocation with the given input, which is the gate's
// possibly-modified copy. The invocation is attempted at most once.
func (e *Executor) Execute(ctx context.Context, inv tool.Invocation, input map[string]string) tool.Outcome {
	run := inv
	run.Input = input

	var outcome tool.Outcome
	err := panicerr.SafeContext(func(ctx context.Context) error {
		outcome = e.dispatch(ctx, run)
		return nil
	})(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "tool execution panicked",
			"tool", inv.Tool,
			"error", err,
		)
		return tool.NewOutcome(inv, fmt.Sprintf("tool %s crashed: %v", inv.Tool, err), true)
	}
	return outcome
}

func (e *Executor) dispatch(ctx context.Context, inv tool.Invocation) tool.Outcome {
	params, err := tool.Decode(inv)
	if err != nil {
		return tool.NewOutcome(inv, err.Error(), true)
	}

	switch p := params.(type) {
	case tool.ExecuteCommandParams:
		return e.runCommand(ctx, inv, p)
	case tool.ReadFileParams:
		return e.readFile(inv, p)
	case tool.WriteFileParams:
		return e.writeFile(inv, p)
	case tool.EditFileParams:
		return e.editFile(inv, p)
	case tool.SearchFilesParams:
		return e.searchFiles(inv, p)
	case tool.ListFilesParams:
		return e.listFiles(inv, p)
	case tool.BrowserActionParams:
		return wrapDesktop(inv, e.desktop.BrowserAction(ctx, p))
	case tool.AppControlParams:
		return wrapDesktop(inv, e.desktop.AppControl(ctx, p))
	case tool.ClipboardReadParams:
		return wrapDesktop(inv, e.desktop.ClipboardRead(ctx))
	case tool.ClipboardWriteParams:
		return wrapDesktop(inv, e.desktop.ClipboardWrite(ctx, p.Text))
	case tool.ScreenshotParams:
		return wrapDesktop(inv, e.desktop.Screenshot(ctx, p.Path))
	case tool.AskFollowupQuestionParams:
		return e.askFollowup(ctx, inv, p)
	case tool.PlanModeRespondParams:
		return tool.NewOutcome(inv, p.Response, false)
	case tool.AttemptCompletionParams:
		content := p.Result
		if p.Command != "" {
			content += "\n\nSuggested verification: " + p.Command
		}
		return tool.NewOutcome(inv, content, false)
	}
	return tool.NewOutcome(inv, fmt.Sprintf("tool %s has no executor", inv.Tool), true)
}

func (e *Executor) askFollowup(ctx context.Context, inv tool.Invocation, p tool.AskFollowupQuestionParams) tool.Outcome {
	if e.interactor == nil {
		return tool.NewOutcome(inv, "no interactive frontend is attached; proceed with your best judgment", true)
	}
	answer, err := e.interactor.Ask(ctx, p.Question)
	if err != nil {
		return tool.NewOutcome(inv, fmt.Sprintf("question was not answered: %v", err), true)
	}
	return tool.NewOutcome(inv, answer, false)
}
