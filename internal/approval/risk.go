package approval

import (
	"strings"

	"github.com/mkihara/aiops/internal/tool"
	"github.com/mkihara/aiops/pkg/shellformat"
)

// RiskLevel is a coarse classification of how dangerous a proposed tool
// invocation is judged to be.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Commands whose presence anywhere in a command line marks it destructive.
var destructiveVerbs = map[string]bool{
	"rm": true, "rmdir": true, "del": true, "delete": true,
	"format": true, "mkfs": true, "dd": true,
	"shutdown": true, "reboot": true, "halt": true, "poweroff": true,
	"truncate": true, "drop": true,
}

// Verbs that push state to a remote or public place.
var publishVerbs = map[string]bool{
	"push": true, "publish": true, "deploy": true, "release": true,
	"upload": true, "promote": true,
}

var secretPathHints = []string{".env", "config", "secret", "credential", "token", ".pem", ".key"}

// AssessRisk computes the risk level for a proposed invocation with a
// deterministic heuristic. The same tool and input always yield the same
// level.
func AssessRisk(name string, input map[string]string) RiskLevel {
	switch name {
	case tool.ExecuteCommand:
		return commandRisk(input["command"])
	case tool.WriteFile, tool.EditFile:
		if looksSecret(input["path"]) {
			return RiskHigh
		}
		return RiskMedium
	case tool.AppControl:
		if input["action"] == "close" {
			return RiskHigh
		}
		return RiskMedium
	case tool.BrowserAction:
		if input["action"] == "close" {
			return RiskHigh
		}
		return RiskMedium
	case tool.ClipboardWrite:
		return RiskMedium
	case tool.ReadFile, tool.SearchFiles, tool.ListFiles, tool.ClipboardRead,
		tool.Screenshot, tool.AskFollowupQuestion, tool.PlanModeRespond,
		tool.AttemptCompletion:
		return RiskLow
	}
	return RiskMedium
}

func commandRisk(command string) RiskLevel {
	words := map[string]bool{}
	for _, name := range shellformat.CommandNames(command) {
		words[strings.ToLower(name)] = true
	}
	for _, field := range strings.Fields(command) {
		words[strings.ToLower(strings.Trim(field, `"'`))] = true
	}

	for w := range words {
		if destructiveVerbs[w] || strings.HasPrefix(w, "mkfs.") {
			return RiskCritical
		}
	}
	for w := range words {
		if publishVerbs[w] {
			return RiskHigh
		}
	}
	return RiskMedium
}

func looksSecret(path string) bool {
	p := strings.ToLower(path)
	for _, hint := range secretPathHints {
		if strings.Contains(p, hint) {
			return true
		}
	}
	return false
}
