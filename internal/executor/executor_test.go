package executor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkihara/aiops/internal/tool"
)

func run(t *testing.T, e *Executor, name string, input map[string]string) tool.Outcome {
	t.Helper()
	inv := tool.NewInvocation(name, input)
	v := tool.Validate(name, input)
	require.True(t, v.Valid, "invalid input for %s: %v", name, v.Errors)
	return e.Execute(context.Background(), inv, input)
}

func TestCommandCapturesExit(t *testing.T) {
	e := New(t.TempDir())

	out := run(t, e, tool.ExecuteCommand, map[string]string{"command": "echo hello; exit 3"})
	assert.False(t, out.IsError, "non-zero exit is encoded in the result, not an error")
	assert.Contains(t, out.Content, "exit: 3")
	assert.Contains(t, out.Content, "hello")
}

func TestCommandStderr(t *testing.T) {
	e := New(t.TempDir())

	out := run(t, e, tool.ExecuteCommand, map[string]string{"command": "echo oops 1>&2"})
	assert.False(t, out.IsError)
	assert.Contains(t, out.Content, "stderr:")
	assert.Contains(t, out.Content, "oops")
}

func TestCommandRunsInWorkDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("x"), 0o644))
	e := New(dir)

	out := run(t, e, tool.ExecuteCommand, map[string]string{"command": "ls"})
	assert.Contains(t, out.Content, "marker.txt")
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	e := New(t.TempDir())

	wrote := run(t, e, tool.WriteFile, map[string]string{
		"path":        "sub/dir/app.log",
		"content":     "line one\nline two\n",
		"create_dirs": "true",
	})
	require.False(t, wrote.IsError, wrote.Content)
	assert.Contains(t, wrote.Content, "created")

	read := run(t, e, tool.ReadFile, map[string]string{"path": "sub/dir/app.log"})
	require.False(t, read.IsError)
	assert.Equal(t, "line one\nline two\n", read.Content)
}

func TestReadMissingFileIsNotError(t *testing.T) {
	e := New(t.TempDir())

	out := run(t, e, tool.ReadFile, map[string]string{"path": "nowhere.txt"})
	assert.False(t, out.IsError)
	assert.Contains(t, out.Content, "does not exist")
}

func TestReadLineRange(t *testing.T) {
	e := New(t.TempDir())
	run(t, e, tool.WriteFile, map[string]string{"path": "f.txt", "content": "a\nb\nc\nd"})

	out := run(t, e, tool.ReadFile, map[string]string{"path": "f.txt", "start_line": "2", "end_line": "3"})
	require.False(t, out.IsError)
	assert.Equal(t, "b\nc", out.Content)
}

func TestEditAppliesBlocks(t *testing.T) {
	e := New(t.TempDir())
	run(t, e, tool.WriteFile, map[string]string{"path": "conf.yaml", "content": "port: 8080\nhost: localhost\n"})

	diff := strings.Join([]string{
		"<<<<<<< SEARCH",
		"port: 8080",
		"=======",
		"port: 9090",
		">>>>>>> REPLACE",
	}, "\n")
	out := run(t, e, tool.EditFile, map[string]string{"path": "conf.yaml", "diff": diff})
	require.False(t, out.IsError, out.Content)
	assert.Contains(t, out.Content, "1 replacement")

	read := run(t, e, tool.ReadFile, map[string]string{"path": "conf.yaml"})
	assert.Contains(t, read.Content, "port: 9090")
	assert.NotContains(t, read.Content, "8080")
}

func TestEditNoMatchFailsSoftly(t *testing.T) {
	e := New(t.TempDir())
	run(t, e, tool.WriteFile, map[string]string{"path": "conf.yaml", "content": "port: 8080\n"})

	diff := strings.Join([]string{
		"<<<<<<< SEARCH",
		"port: 1234",
		"=======",
		"port: 9090",
		">>>>>>> REPLACE",
	}, "\n")
	out := run(t, e, tool.EditFile, map[string]string{"path": "conf.yaml", "diff": diff})
	assert.False(t, out.IsError, "zero replacements is a soft failure")
	assert.Contains(t, out.Content, "0 replacements")

	read := run(t, e, tool.ReadFile, map[string]string{"path": "conf.yaml"})
	assert.Contains(t, read.Content, "port: 8080", "file must be untouched")
}

func TestSearchFindsMatchesWithContext(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "server.go"), []byte("package main\n\nfunc serve() {}\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules", "pkg"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "pkg", "x.go"), []byte("func serve() {}\n"), 0o644))
	e := New(dir)

	out := run(t, e, tool.SearchFiles, map[string]string{"path": ".", "regex": `func \w+`})
	require.False(t, out.IsError, out.Content)
	assert.Contains(t, out.Content, "server.go:3")
	assert.NotContains(t, out.Content, "node_modules", "dependency dirs are skipped")
}

func TestSearchInvalidRegex(t *testing.T) {
	e := New(t.TempDir())
	out := run(t, e, tool.SearchFiles, map[string]string{"path": ".", "regex": "["})
	assert.True(t, out.IsError)
}

func TestListRespectsDepth(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "a", "b", "c"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a", "top.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a", "b", "deep.txt"), []byte("x"), 0o644))
	e := New(dir)

	flat := run(t, e, tool.ListFiles, map[string]string{"path": "."})
	assert.Contains(t, flat.Content, "a")
	assert.NotContains(t, flat.Content, "top.txt")

	deep := run(t, e, tool.ListFiles, map[string]string{"path": ".", "recursive": "true", "max_depth": "2"})
	assert.Contains(t, deep.Content, "top.txt")
	assert.NotContains(t, deep.Content, "deep.txt")
}

func TestDesktopToolsUnsupportedByDefault(t *testing.T) {
	e := New(t.TempDir())

	out := run(t, e, tool.ClipboardRead, map[string]string{})
	assert.False(t, out.IsError, "unsupported is a structured result, not an error")
	assert.Contains(t, out.Content, "not available")

	out = run(t, e, tool.BrowserAction, map[string]string{"action": "launch", "url": "https://example.com"})
	assert.False(t, out.IsError)
	assert.Contains(t, out.Content, "not available")
}

func TestAttemptCompletionFormatsResult(t *testing.T) {
	e := New(t.TempDir())

	out := run(t, e, tool.AttemptCompletion, map[string]string{"result": "all services healthy", "command": "systemctl status app"})
	require.False(t, out.IsError)
	assert.Contains(t, out.Content, "all services healthy")
	assert.Contains(t, out.Content, "systemctl status app")
}

func TestAskFollowupWithoutInteractor(t *testing.T) {
	e := New(t.TempDir())

	out := run(t, e, tool.AskFollowupQuestion, map[string]string{"question": "which env?"})
	assert.True(t, out.IsError)
	assert.Contains(t, out.Content, "no interactive frontend")
}

type canned struct{ answer string }

func (c canned) Ask(_ context.Context, _ string) (string, error) { return c.answer, nil }

func TestAskFollowupWithInteractor(t *testing.T) {
	e := New(t.TempDir(), WithInteractor(canned{answer: "staging"}))

	out := run(t, e, tool.AskFollowupQuestion, map[string]string{"question": "which env?"})
	require.False(t, out.IsError)
	assert.Equal(t, "staging", out.Content)
}
