package agent

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkihara/aiops/internal/approval"
	"github.com/mkihara/aiops/internal/executor"
	"github.com/mkihara/aiops/internal/llm"
	"github.com/mkihara/aiops/internal/modelcat"
	"github.com/mkihara/aiops/internal/tool"
)

func TestParseInvocations(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []proposed
	}{
		{
			name: "single command",
			text: "Let me check the service.\n<execute_command>\n<command>systemctl status app</command>\n</execute_command>",
			want: []proposed{{Tool: "execute_command", Input: map[string]string{"command": "systemctl status app"}}},
		},
		{
			name: "multiple params",
			text: "<write_file>\n<path>notes.txt</path>\n<content>hello</content>\n</write_file>",
			want: []proposed{{Tool: "write_file", Input: map[string]string{"path": "notes.txt", "content": "hello"}}},
		},
		{
			name: "two blocks in order",
			text: "<read_file>\n<path>a.txt</path>\n</read_file>\nand then\n<read_file>\n<path>b.txt</path>\n</read_file>",
			want: []proposed{
				{Tool: "read_file", Input: map[string]string{"path": "a.txt"}},
				{Tool: "read_file", Input: map[string]string{"path": "b.txt"}},
			},
		},
		{
			name: "markup inside a value",
			text: "<write_file>\n<path>index.html</path>\n<content><html><body>hi</body></html></content>\n</write_file>",
			want: []proposed{{Tool: "write_file", Input: map[string]string{"path": "index.html", "content": "<html><body>hi</body></html>"}}},
		},
		{
			name: "unterminated block is plain text",
			text: "<execute_command>\n<command>ls</command>",
			want: nil,
		},
		{
			name: "unknown tag is plain text",
			text: "<reticulate_splines>\n<speed>9</speed>\n</reticulate_splines>",
			want: nil,
		},
		{
			name: "plain conversation",
			text: "The logs look clean; nothing to do here.",
			want: nil,
		},
		{
			name: "angle brackets in prose",
			text: "Use a < b and b > c to compare, no tools needed.",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseInvocations(tt.text)
			assert.Equal(t, tt.want, got)
		})
	}
}

// scripted replays canned model responses in order and records the model
// each request asked for.
type scripted struct {
	responses []string
	calls     int
	models    []string
}

func (s *scripted) ChatWithFallback(_ context.Context, req llm.ChatRequest, _ modelcat.Category) (*llm.ChatResponse, error) {
	s.models = append(s.models, req.Model)
	i := s.calls
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	s.calls++
	return &llm.ChatResponse{Content: s.responses[i]}, nil
}

func approveAll() *approval.Gate {
	return approval.NewGate(true, nil, nil)
}

func denyAll() *approval.Gate {
	handler := approval.HandlerFunc(func(_ context.Context, _ approval.Request) (approval.Response, error) {
		return approval.Response{Approved: false, Feedback: "not on my watch"}, nil
	})
	return approval.NewGate(false, handler, nil)
}

func TestLoopCompletesOnCompletionSignal(t *testing.T) {
	dir := t.TempDir()
	model := &scripted{responses: []string{
		"<execute_command>\n<command>echo checking</command>\n</execute_command>",
		"<attempt_completion>\n<result>service is healthy</result>\n</attempt_completion>",
	}}
	l := NewLoop(model, approveAll(), executor.New(dir), dir)

	res, err := l.Run(context.Background(), "check the service", modelcat.CategoryDebugging)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, "service is healthy", res.FinalText)
	assert.Equal(t, 2, res.Iterations)
	assert.Equal(t, 1, res.StepsCompleted)
	assert.Zero(t, res.StepsFailed)
}

func TestLoopPlainTextIsFinalAnswer(t *testing.T) {
	dir := t.TempDir()
	model := &scripted{responses: []string{"Nothing is wrong with the deployment."}}
	l := NewLoop(model, approveAll(), executor.New(dir), dir)

	res, err := l.Run(context.Background(), "anything broken?", modelcat.CategoryGeneral)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, "Nothing is wrong with the deployment.", res.FinalText)
	assert.Equal(t, 1, res.Iterations)
}

func TestLoopModelOverrideReachesCaller(t *testing.T) {
	dir := t.TempDir()
	model := &scripted{responses: []string{"All services are healthy."}}
	l := NewLoop(model, approveAll(), executor.New(dir), dir)

	_, err := l.Run(context.Background(), "check the service", modelcat.CategoryDebugging,
		WithModel("deepseek/deepseek-r1"))
	require.NoError(t, err)
	require.NotEmpty(t, model.models)
	assert.Equal(t, "deepseek/deepseek-r1", model.models[0])
}

func TestLoopRoutesByCategoryWithoutOverride(t *testing.T) {
	dir := t.TempDir()
	model := &scripted{responses: []string{"Nothing to do."}}
	l := NewLoop(model, approveAll(), executor.New(dir), dir)

	_, err := l.Run(context.Background(), "why is the app broken", modelcat.CategoryDebugging)
	require.NoError(t, err)
	require.NotEmpty(t, model.models)
	assert.Equal(t, modelcat.SelectModel(modelcat.CategoryDebugging), model.models[0])
}

func TestLoopLargeInputPrefersLargeContextModel(t *testing.T) {
	dir := t.TempDir()
	model := &scripted{responses: []string{"Summarized."}}
	l := NewLoop(model, approveAll(), executor.New(dir), dir)

	input := "summarize this dump\n" + strings.Repeat("x", 60_000)
	_, err := l.Run(context.Background(), input, modelcat.CategoryGeneral)
	require.NoError(t, err)
	require.NotEmpty(t, model.models)
	assert.Equal(t, "google/gemini-flash-1.5", model.models[0])
}

func TestLoopIterationCap(t *testing.T) {
	dir := t.TempDir()
	model := &scripted{responses: []string{
		"<execute_command>\n<command>true</command>\n</execute_command>",
	}}
	l := NewLoop(model, approveAll(), executor.New(dir), dir, WithMaxIterations(3))

	res, err := l.Run(context.Background(), "loop forever", modelcat.CategoryGeneral)
	require.NoError(t, err)
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, 3, res.Iterations)
	assert.Contains(t, res.FinalText, "iteration limit")
	assert.Contains(t, res.FinalText, "3 step(s) completed")
}

// cannedInteractor answers every followup question the same way.
type cannedInteractor struct{ answer string }

func (c cannedInteractor) Ask(_ context.Context, _ string) (string, error) {
	return c.answer, nil
}

func TestLoopWaitsOnFollowupQuestion(t *testing.T) {
	dir := t.TempDir()
	model := &scripted{responses: []string{
		"<ask_followup_question>\n<question>which environment?</question>\n</ask_followup_question>",
		"<attempt_completion>\n<result>done in staging</result>\n</attempt_completion>",
	}}
	var transitions []Status
	exec := executor.New(dir, executor.WithInteractor(cannedInteractor{answer: "staging"}))
	l := NewLoop(model, approveAll(), exec, dir,
		WithStatusFunc(func(s Status) { transitions = append(transitions, s) }))

	res, err := l.Run(context.Background(), "deploy the app", modelcat.CategoryGeneral)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, []Status{
		StatusThinking, StatusExecuting, StatusWaiting, StatusExecuting,
		StatusThinking, StatusCompleted,
	}, transitions, "the loop waits while the question is pending")
}

func TestLoopWaitsOnApprovalPrompt(t *testing.T) {
	dir := t.TempDir()
	model := &scripted{responses: []string{
		"<execute_command>\n<command>echo hi</command>\n</execute_command>",
		"<attempt_completion>\n<result>blocked</result>\n</attempt_completion>",
	}}
	var transitions []Status
	l := NewLoop(model, denyAll(), executor.New(dir), dir,
		WithStatusFunc(func(s Status) { transitions = append(transitions, s) }))

	_, err := l.Run(context.Background(), "run something", modelcat.CategoryGeneral)
	require.NoError(t, err)
	assert.Contains(t, transitions, StatusWaiting, "an approval prompt is a wait")
}

func TestDeniedCommandNeverExecutes(t *testing.T) {
	dir := t.TempDir()
	victim := filepath.Join(dir, "precious.txt")
	require.NoError(t, os.WriteFile(victim, []byte("keep me"), 0o644))

	model := &scripted{responses: []string{
		"<execute_command>\n<command>rm -rf " + victim + "</command>\n</execute_command>",
		"<attempt_completion>\n<result>could not clean up</result>\n</attempt_completion>",
	}}
	l := NewLoop(model, denyAll(), executor.New(dir), dir)

	res, err := l.Run(context.Background(), "remove temp files", modelcat.CategoryGeneral)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, 1, res.StepsFailed, "denial is an error-flagged outcome")
	assert.Zero(t, res.StepsCompleted)

	_, statErr := os.Stat(victim)
	assert.NoError(t, statErr, "denied command must never run")
}

func TestInvalidInvocationNeverReachesExecutor(t *testing.T) {
	dir := t.TempDir()
	// write_file without its required content parameter.
	model := &scripted{responses: []string{
		"<write_file>\n<path>out.txt</path>\n</write_file>",
		"<attempt_completion>\n<result>gave up</result>\n</attempt_completion>",
	}}
	l := NewLoop(model, approveAll(), executor.New(dir), dir)

	res, err := l.Run(context.Background(), "write a file", modelcat.CategoryGeneral)
	require.NoError(t, err)
	assert.Equal(t, 1, res.StepsFailed)

	_, statErr := os.Stat(filepath.Join(dir, "out.txt"))
	assert.True(t, os.IsNotExist(statErr), "invalid invocation must not execute")
}

func TestCapabilityListFiltersTools(t *testing.T) {
	dir := t.TempDir()
	model := &scripted{responses: []string{
		"<execute_command>\n<command>echo hi</command>\n</execute_command>",
	}}
	l := NewLoop(model, approveAll(), executor.New(dir), dir,
		WithCapabilities([]string{tool.ReadFile, tool.AttemptCompletion}))

	res, err := l.Run(context.Background(), "run something", modelcat.CategoryGeneral)
	require.NoError(t, err)
	// The only block names a disabled tool, so the text is treated as a
	// final conversational answer.
	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, 1, res.Iterations)
	assert.Zero(t, res.StepsCompleted)
}

func TestLoopDeduplicatesConsecutiveIdenticalBlocks(t *testing.T) {
	dir := t.TempDir()
	block := "<execute_command>\n<command>echo once</command>\n</execute_command>"
	model := &scripted{responses: []string{
		block + "\n" + block,
		"<attempt_completion>\n<result>done</result>\n</attempt_completion>",
	}}
	l := NewLoop(model, approveAll(), executor.New(dir), dir)

	res, err := l.Run(context.Background(), "say once", modelcat.CategoryGeneral)
	require.NoError(t, err)
	assert.Equal(t, 1, res.StepsCompleted, "identical consecutive invocations are grouped")
}
