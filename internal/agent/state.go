package agent

// Status is the agent loop's current phase.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusThinking  Status = "thinking"
	StatusExecuting Status = "executing"
	StatusWaiting   Status = "waiting"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// TurnMessage is one entry of the conversation history: a role and its
// content. History is append-only.
type TurnMessage struct {
	Role    string
	Content string
}

// State holds everything one running loop needs: phase, ordered
// conversation, working directory, and the enabled tool names. One instance
// per loop; discarded when the loop terminates.
type State struct {
	Status       Status
	History      []TurnMessage
	WorkDir      string
	Capabilities map[string]bool
}

func NewState(workDir string, capabilities []string) *State {
	caps := make(map[string]bool, len(capabilities))
	for _, name := range capabilities {
		caps[name] = true
	}
	return &State{
		Status:       StatusIdle,
		WorkDir:      workDir,
		Capabilities: caps,
	}
}

func (s *State) Append(role, content string) {
	s.History = append(s.History, TurnMessage{Role: role, Content: content})
}

func (s *State) Can(toolName string) bool {
	return s.Capabilities[toolName]
}
