package tool

import "sort"

// ParamType is the declared primitive type of a tool parameter.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
)

// ParamSpec declares one parameter of a tool: its name, primitive type,
// whether it must be present, and an optional closed set of allowed values.
type ParamSpec struct {
	Name     string
	Type     ParamType
	Required bool
	Enum     []string
}

// Spec declares one invocable tool. RequiresApproval marks tools whose
// invocations must pass the approval gate before execution.
type Spec struct {
	Name             string
	Description      string
	Params           []ParamSpec
	RequiresApproval bool
}

// Tool names form a closed set. The agent loop only recognizes invocations
// whose name appears here and in the running agent's capability list.
const (
	ExecuteCommand      = "execute_command"
	ReadFile            = "read_file"
	WriteFile           = "write_file"
	EditFile            = "edit_file"
	SearchFiles         = "search_files"
	ListFiles           = "list_files"
	BrowserAction       = "browser_action"
	AppControl          = "app_control"
	ClipboardRead       = "clipboard_read"
	ClipboardWrite      = "clipboard_write"
	Screenshot          = "screenshot"
	AskFollowupQuestion = "ask_followup_question"
	PlanModeRespond     = "plan_mode_respond"
	AttemptCompletion   = "attempt_completion"
)

var catalog = map[string]Spec{
	ExecuteCommand: {
		Name:        ExecuteCommand,
		Description: "Run a shell command and capture stdout, stderr and exit status",
		Params: []ParamSpec{
			{Name: "command", Type: TypeString, Required: true},
			{Name: "cwd", Type: TypeString},
			{Name: "timeout", Type: TypeNumber},
		},
		RequiresApproval: true,
	},
	ReadFile: {
		Name:        ReadFile,
		Description: "Read a file's content, optionally a line range",
		Params: []ParamSpec{
			{Name: "path", Type: TypeString, Required: true},
			{Name: "start_line", Type: TypeNumber},
			{Name: "end_line", Type: TypeNumber},
		},
	},
	WriteFile: {
		Name:        WriteFile,
		Description: "Write full content to a file, creating parents when asked",
		Params: []ParamSpec{
			{Name: "path", Type: TypeString, Required: true},
			{Name: "content", Type: TypeString, Required: true},
			{Name: "create_dirs", Type: TypeBoolean},
		},
		RequiresApproval: true,
	},
	EditFile: {
		Name:        EditFile,
		Description: "Apply literal search/replace blocks to an existing file",
		Params: []ParamSpec{
			{Name: "path", Type: TypeString, Required: true},
			{Name: "diff", Type: TypeString, Required: true},
		},
		RequiresApproval: true,
	},
	SearchFiles: {
		Name:        SearchFiles,
		Description: "Recursively search files under a directory with a regular expression",
		Params: []ParamSpec{
			{Name: "path", Type: TypeString, Required: true},
			{Name: "regex", Type: TypeString, Required: true},
			{Name: "file_pattern", Type: TypeString},
			{Name: "max_results", Type: TypeNumber},
		},
	},
	ListFiles: {
		Name:        ListFiles,
		Description: "List directory entries, flat or recursive up to a depth bound",
		Params: []ParamSpec{
			{Name: "path", Type: TypeString, Required: true},
			{Name: "recursive", Type: TypeBoolean},
			{Name: "max_depth", Type: TypeNumber},
		},
	},
	BrowserAction: {
		Name:        BrowserAction,
		Description: "Drive a browser session",
		Params: []ParamSpec{
			{Name: "action", Type: TypeString, Required: true, Enum: []string{"launch", "click", "type", "scroll", "close"}},
			{Name: "url", Type: TypeString},
			{Name: "coordinate", Type: TypeString},
			{Name: "text", Type: TypeString},
		},
		RequiresApproval: true,
	},
	AppControl: {
		Name:        AppControl,
		Description: "Focus, launch or close a desktop application",
		Params: []ParamSpec{
			{Name: "action", Type: TypeString, Required: true, Enum: []string{"focus", "launch", "close"}},
			{Name: "app", Type: TypeString, Required: true},
		},
		RequiresApproval: true,
	},
	ClipboardRead: {
		Name:        ClipboardRead,
		Description: "Read the system clipboard",
	},
	ClipboardWrite: {
		Name:        ClipboardWrite,
		Description: "Write text to the system clipboard",
		Params: []ParamSpec{
			{Name: "text", Type: TypeString, Required: true},
		},
		RequiresApproval: true,
	},
	Screenshot: {
		Name:        Screenshot,
		Description: "Capture the screen to an image file",
		Params: []ParamSpec{
			{Name: "path", Type: TypeString},
		},
	},
	AskFollowupQuestion: {
		Name:        AskFollowupQuestion,
		Description: "Ask the human a clarifying question and wait for the answer",
		Params: []ParamSpec{
			{Name: "question", Type: TypeString, Required: true},
		},
	},
	PlanModeRespond: {
		Name:        PlanModeRespond,
		Description: "Present a plan without performing side effects",
		Params: []ParamSpec{
			{Name: "response", Type: TypeString, Required: true},
		},
	},
	AttemptCompletion: {
		Name:        AttemptCompletion,
		Description: "Present the final result of the task; terminal for the agent loop",
		Params: []ParamSpec{
			{Name: "result", Type: TypeString, Required: true},
			{Name: "command", Type: TypeString},
		},
	},
}

// Lookup returns the spec for name, or false when name is not a known tool.
func Lookup(name string) (Spec, bool) {
	s, ok := catalog[name]
	return s, ok
}

// Names returns every tool name in the catalog, sorted.
func Names() []string {
	out := make([]string, 0, len(catalog))
	for name := range catalog {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
