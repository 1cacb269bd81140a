package approval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/mkihara/aiops/internal/tool"
	"github.com/mkihara/aiops/pkg/shellformat"
)

var riskColors = map[RiskLevel]*color.Color{
	RiskLow:      color.New(color.FgGreen),
	RiskMedium:   color.New(color.FgYellow),
	RiskHigh:     color.New(color.FgHiYellow, color.Bold),
	RiskCritical: color.New(color.FgRed, color.Bold),
}

// ConsoleHandler prompts on a terminal for each approval request and reads
// the decision from in. Answers: y approves, n denies, anything else after
// a reprompt denies.
type ConsoleHandler struct {
	in  io.Reader
	out io.Writer
}

func NewConsoleHandler() *ConsoleHandler {
	return &ConsoleHandler{in: os.Stdin, out: os.Stdout}
}

// NewConsoleHandlerWithIO is for tests and non-terminal frontends.
func NewConsoleHandlerWithIO(in io.Reader, out io.Writer) *ConsoleHandler {
	return &ConsoleHandler{in: in, out: out}
}

func (h *ConsoleHandler) Decide(ctx context.Context, req Request) (Response, error) {
	c, ok := riskColors[req.Risk]
	if !ok {
		c = color.New(color.FgWhite)
	}
	fmt.Fprintf(h.out, "\n%s %s\n", c.Sprintf("[%s]", strings.ToUpper(string(req.Risk))), req.Tool)
	h.printProposal(req)
	fmt.Fprint(h.out, "approve? [y/N]: ")

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(h.in).ReadString('\n')
		ch <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case a := <-ch:
		if a.err != nil && a.line == "" {
			return Response{}, a.err
		}
		approved := strings.EqualFold(strings.TrimSpace(a.line), "y")
		return Response{Approved: approved}, nil
	}
}

func (h *ConsoleHandler) printProposal(req Request) {
	switch req.Tool {
	case tool.ExecuteCommand:
		cmd := req.Input["command"]
		if formatted, err := shellformat.Format(cmd); err == nil {
			cmd = formatted
		}
		fmt.Fprintf(h.out, "  $ %s\n", cmd)
	case tool.WriteFile:
		fmt.Fprintf(h.out, "  write %s (%d bytes)\n", req.Input["path"], len(req.Input["content"]))
	case tool.EditFile:
		fmt.Fprintf(h.out, "  edit %s\n", req.Input["path"])
		h.printDiff(req.Input["path"], req.Input["diff"])
	default:
		for k, v := range req.Input {
			if len(v) > 120 {
				v = v[:120] + "..."
			}
			fmt.Fprintf(h.out, "  %s: %s\n", k, v)
		}
	}
}

// printDiff renders the search/replace blocks of an edit as a unified diff
// so the reviewer sees what would change, not the raw block markers.
func (h *ConsoleHandler) printDiff(path, blocks string) {
	for _, b := range tool.ParseEditBlocks(blocks) {
		text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(b.Search),
			B:        difflib.SplitLines(b.Replace),
			FromFile: path,
			ToFile:   path,
			Context:  2,
		})
		if err != nil {
			continue
		}
		for _, line := range strings.Split(text, "\n") {
			switch {
			case strings.HasPrefix(line, "+"):
				fmt.Fprintln(h.out, color.GreenString("  %s", line))
			case strings.HasPrefix(line, "-"):
				fmt.Fprintln(h.out, color.RedString("  %s", line))
			default:
				fmt.Fprintf(h.out, "  %s\n", line)
			}
		}
	}
}
