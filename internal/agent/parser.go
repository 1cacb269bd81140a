package agent

import (
	"strings"

	"github.com/mkihara/aiops/internal/tool"
)

// The model embeds tool invocations in its text as plain nested tags:
//
//	<execute_command>
//	<command>systemctl restart app</command>
//	</execute_command>
//
// The outer tag names the tool, each inner tag one parameter. Anything that
// does not form a well-nested pair of known tags is plain conversation.
// Malformed or partial tags never abort parsing; they simply yield nothing.

// proposed is one parsed invocation before capability filtering.
type proposed struct {
	Tool  string
	Input map[string]string
}

// ParseInvocations extracts every well-formed tool block from model text,
// in order of appearance. Only names in the catalog open a block; unknown
// tags stay part of the surrounding text.
func ParseInvocations(text string) []proposed {
	var out []proposed

	rest := text
	for {
		name, body, remaining, found := nextToolBlock(rest)
		if !found {
			break
		}
		out = append(out, proposed{Tool: name, Input: parseParams(name, body)})
		rest = remaining
	}
	return out
}

// nextToolBlock finds the earliest opening tag whose name is a catalog tool
// and has a matching closing tag. Returns the text after the block.
func nextToolBlock(text string) (name, body, rest string, found bool) {
	searchFrom := 0
	for {
		openStart := strings.Index(text[searchFrom:], "<")
		if openStart == -1 {
			return "", "", "", false
		}
		openStart += searchFrom

		openEnd := strings.Index(text[openStart:], ">")
		if openEnd == -1 {
			return "", "", "", false
		}
		openEnd += openStart

		candidate := text[openStart+1 : openEnd]
		if _, ok := tool.Lookup(candidate); !ok {
			searchFrom = openStart + 1
			continue
		}

		closeTag := "</" + candidate + ">"
		closeStart := strings.Index(text[openEnd+1:], closeTag)
		if closeStart == -1 {
			// Unterminated block: not an invocation.
			searchFrom = openStart + 1
			continue
		}
		closeStart += openEnd + 1

		return candidate, text[openEnd+1 : closeStart], text[closeStart+len(closeTag):], true
	}
}

// parseParams reads the inner tags of a tool block, driven by the tool's
// declared parameters. The widest span between a parameter's opening tag
// and its last closing tag wins, so values may themselves contain markup.
func parseParams(toolName, body string) map[string]string {
	spec, ok := tool.Lookup(toolName)
	if !ok {
		return map[string]string{}
	}

	input := map[string]string{}
	for _, p := range spec.Params {
		openTag := "<" + p.Name + ">"
		closeTag := "</" + p.Name + ">"
		start := strings.Index(body, openTag)
		if start == -1 {
			continue
		}
		end := strings.LastIndex(body, closeTag)
		if end == -1 || end < start+len(openTag) {
			continue
		}
		input[p.Name] = strings.TrimSpace(body[start+len(openTag) : end])
	}
	return input
}

// completionSignal reports whether text carries a terminal completion
// invocation.
func completionSignal(invocations []proposed) bool {
	for _, inv := range invocations {
		if inv.Tool == tool.AttemptCompletion {
			return true
		}
	}
	return false
}
