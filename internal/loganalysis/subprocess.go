package loganalysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/mkihara/aiops/pkg/cerr"
)

// DefaultAnalyzerTimeout bounds one subprocess run.
const DefaultAnalyzerTimeout = 120 * time.Second

// Subprocess wraps the external log-analysis pipeline: an opaque command
// that reads raw log text on stdin and writes one JSON document to stdout.
// It may be slow and may fail; both are contained here.
type Subprocess struct {
	command string
	timeout time.Duration
}

func NewSubprocess(command string, timeout time.Duration) *Subprocess {
	if timeout <= 0 {
		timeout = DefaultAnalyzerTimeout
	}
	return &Subprocess{command: command, timeout: timeout}
}

// Analyze feeds logText to the analyzer and parses its JSON output.
func (s *Subprocess) Analyze(ctx context.Context, logText string) (*Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	parts := strings.Fields(s.command)
	if len(parts) == 0 {
		return nil, cerr.NewError(cerr.FailedPrecondition, "no analyzer command configured", nil)
	}

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Stdin = strings.NewReader(logText)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, cerr.NewError(cerr.DeadlineExceeded,
				fmt.Sprintf("analyzer timed out after %s", s.timeout), nil)
		}
		return nil, cerr.NewError(cerr.Internal, "analyzer failed",
			fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String())))
	}

	var a Analysis
	if err := json.Unmarshal(stdout.Bytes(), &a); err != nil {
		return nil, cerr.NewError(cerr.Internal, "analyzer produced invalid JSON", err)
	}
	a.Source = "analyzer"
	return &a, nil
}
