package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/mkihara/aiops/internal/tool"
)

// runCommand executes a shell command and encodes everything, including a
// non-zero exit, into the outcome. The error flag is set only when the
// command could not be run at all or timed out.
func (e *Executor) runCommand(ctx context.Context, inv tool.Invocation, p tool.ExecuteCommandParams) tool.Outcome {
	timeout := e.defaultTimeout
	if p.TimeoutSec > 0 {
		timeout = time.Duration(p.TimeoutSec) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cwd := p.Cwd
	if cwd == "" {
		cwd = e.workDir
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", p.Command)
	cmd.Dir = cwd
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start).Round(time.Millisecond)

	if ctx.Err() == context.DeadlineExceeded {
		return tool.NewOutcome(inv, fmt.Sprintf("command timed out after %s\nstdout:\n%s\nstderr:\n%s",
			timeout, stdout.String(), stderr.String()), true)
	}

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return tool.NewOutcome(inv, fmt.Sprintf("command failed to start: %v", err), true)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "exit: %d (%s)\n", exitCode, elapsed)
	if out := strings.TrimRight(stdout.String(), "\n"); out != "" {
		fmt.Fprintf(&b, "stdout:\n%s\n", out)
	}
	if errOut := strings.TrimRight(stderr.String(), "\n"); errOut != "" {
		fmt.Fprintf(&b, "stderr:\n%s\n", errOut)
	}
	return tool.NewOutcome(inv, b.String(), false)
}
