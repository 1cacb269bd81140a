package tool

import (
	"fmt"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
)

// Invocation is one structured request to perform a tool's side effect,
// produced by parsing a model response. It is consumed exactly once by the
// executor.
type Invocation struct {
	ID    string
	Tool  string
	Input map[string]string
}

func NewInvocation(tool string, input map[string]string) Invocation {
	return Invocation{
		ID:    ulid.Make().String(),
		Tool:  tool,
		Input: input,
	}
}

// Outcome is the executor's result for one invocation. Content carries the
// textual result fed back into the conversation; IsError marks failures,
// denials and unsupported-platform results alike.
type Outcome struct {
	InvocationID string
	Tool         string
	Content      string
	IsError      bool
	CreatedAt    time.Time
}

func NewOutcome(inv Invocation, content string, isError bool) Outcome {
	return Outcome{
		InvocationID: inv.ID,
		Tool:         inv.Tool,
		Content:      content,
		IsError:      isError,
		CreatedAt:    time.Now(),
	}
}

// Params is the typed parameter record of a validated invocation, one
// variant per tool, discriminated by tool name in Decode.
type Params interface {
	isParams()
}

type ExecuteCommandParams struct {
	Command    string
	Cwd        string
	TimeoutSec int
}

type ReadFileParams struct {
	Path      string
	StartLine int
	EndLine   int
}

type WriteFileParams struct {
	Path       string
	Content    string
	CreateDirs bool
}

type EditFileParams struct {
	Path string
	Diff string
}

type SearchFilesParams struct {
	Path        string
	Regex       string
	FilePattern string
	MaxResults  int
}

type ListFilesParams struct {
	Path      string
	Recursive bool
	MaxDepth  int
}

type BrowserActionParams struct {
	Action     string
	URL        string
	Coordinate string
	Text       string
}

type AppControlParams struct {
	Action string
	App    string
}

type ClipboardReadParams struct{}

type ClipboardWriteParams struct {
	Text string
}

type ScreenshotParams struct {
	Path string
}

type AskFollowupQuestionParams struct {
	Question string
}

type PlanModeRespondParams struct {
	Response string
}

type AttemptCompletionParams struct {
	Result  string
	Command string
}

func (ExecuteCommandParams) isParams()      {}
func (ReadFileParams) isParams()            {}
func (WriteFileParams) isParams()           {}
func (EditFileParams) isParams()            {}
func (SearchFilesParams) isParams()         {}
func (ListFilesParams) isParams()           {}
func (BrowserActionParams) isParams()       {}
func (AppControlParams) isParams()          {}
func (ClipboardReadParams) isParams()       {}
func (ClipboardWriteParams) isParams()      {}
func (ScreenshotParams) isParams()          {}
func (AskFollowupQuestionParams) isParams() {}
func (PlanModeRespondParams) isParams()     {}
func (AttemptCompletionParams) isParams()   {}

// Decode converts a validated invocation's raw string input into the typed
// variant for its tool. Call Validate first; Decode assumes types parse.
func Decode(inv Invocation) (Params, error) {
	in := inv.Input
	switch inv.Tool {
	case ExecuteCommand:
		return ExecuteCommandParams{
			Command:    in["command"],
			Cwd:        in["cwd"],
			TimeoutSec: atoiOr(in["timeout"], 0),
		}, nil
	case ReadFile:
		return ReadFileParams{
			Path:      in["path"],
			StartLine: atoiOr(in["start_line"], 0),
			EndLine:   atoiOr(in["end_line"], 0),
		}, nil
	case WriteFile:
		return WriteFileParams{
			Path:       in["path"],
			Content:    in["content"],
			CreateDirs: boolOr(in["create_dirs"], false),
		}, nil
	case EditFile:
		return EditFileParams{Path: in["path"], Diff: in["diff"]}, nil
	case SearchFiles:
		return SearchFilesParams{
			Path:        in["path"],
			Regex:       in["regex"],
			FilePattern: in["file_pattern"],
			MaxResults:  atoiOr(in["max_results"], 0),
		}, nil
	case ListFiles:
		return ListFilesParams{
			Path:      in["path"],
			Recursive: boolOr(in["recursive"], false),
			MaxDepth:  atoiOr(in["max_depth"], 0),
		}, nil
	case BrowserAction:
		return BrowserActionParams{
			Action:     in["action"],
			URL:        in["url"],
			Coordinate: in["coordinate"],
			Text:       in["text"],
		}, nil
	case AppControl:
		return AppControlParams{Action: in["action"], App: in["app"]}, nil
	case ClipboardRead:
		return ClipboardReadParams{}, nil
	case ClipboardWrite:
		return ClipboardWriteParams{Text: in["text"]}, nil
	case Screenshot:
		return ScreenshotParams{Path: in["path"]}, nil
	case AskFollowupQuestion:
		return AskFollowupQuestionParams{Question: in["question"]}, nil
	case PlanModeRespond:
		return PlanModeRespondParams{Response: in["response"]}, nil
	case AttemptCompletion:
		return AttemptCompletionParams{Result: in["result"], Command: in["command"]}, nil
	}
	return nil, fmt.Errorf("unknown tool %q", inv.Tool)
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return def
		}
		return int(f)
	}
	return n
}

func boolOr(s string, def bool) bool {
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}
