package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mkihara/aiops/internal/tool"
)

// resolve joins relative paths onto the executor's working directory.
func (e *Executor) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.workDir, path)
}

// readFile reports a missing file as exists:false content, not an error.
func (e *Executor) readFile(inv tool.Invocation, p tool.ReadFileParams) tool.Outcome {
	data, err := os.ReadFile(e.resolve(p.Path))
	if err != nil {
		if os.IsNotExist(err) {
			return tool.NewOutcome(inv, fmt.Sprintf("file %s does not exist", p.Path), false)
		}
		return tool.NewOutcome(inv, fmt.Sprintf("read %s: %v", p.Path, err), true)
	}

	content := string(data)
	if p.StartLine > 0 || p.EndLine > 0 {
		content = sliceLines(content, p.StartLine, p.EndLine)
	}
	return tool.NewOutcome(inv, content, false)
}

// sliceLines returns lines start..end inclusive, 1-based. Zero bounds mean
// "from the beginning" and "to the end" respectively.
func sliceLines(content string, start, end int) string {
	lines := strings.Split(content, "\n")
	if start < 1 {
		start = 1
	}
	if end < 1 || end > len(lines) {
		end = len(lines)
	}
	if start > len(lines) || start > end {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}

func (e *Executor) writeFile(inv tool.Invocation, p tool.WriteFileParams) tool.Outcome {
	path := e.resolve(p.Path)

	_, statErr := os.Stat(path)
	created := os.IsNotExist(statErr)

	if p.CreateDirs {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return tool.NewOutcome(inv, fmt.Sprintf("create directories for %s: %v", p.Path, err), true)
		}
	}
	if err := os.WriteFile(path, []byte(p.Content), 0o644); err != nil {
		return tool.NewOutcome(inv, fmt.Sprintf("write %s: %v", p.Path, err), true)
	}

	verb := "updated"
	if created {
		verb = "created"
	}
	return tool.NewOutcome(inv, fmt.Sprintf("%s %s (%d bytes)", verb, p.Path, len(p.Content)), false)
}

// editFile applies literal search/replace blocks. A block whose search text
// is absent contributes zero replacements; the edit still succeeds.
func (e *Executor) editFile(inv tool.Invocation, p tool.EditFileParams) tool.Outcome {
	path := e.resolve(p.Path)
	data, err := os.ReadFile(path)
	if err != nil {
		return tool.NewOutcome(inv, fmt.Sprintf("edit %s: %v", p.Path, err), true)
	}

	content := string(data)
	replacements := 0
	for _, b := range tool.ParseEditBlocks(p.Diff) {
		if b.Search == "" {
			continue
		}
		count := strings.Count(content, b.Search)
		if count == 0 {
			continue
		}
		content = strings.ReplaceAll(content, b.Search, b.Replace)
		replacements += count
	}

	if replacements == 0 {
		return tool.NewOutcome(inv, fmt.Sprintf("no search block matched in %s (0 replacements)", p.Path), false)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return tool.NewOutcome(inv, fmt.Sprintf("write %s: %v", p.Path, err), true)
	}
	return tool.NewOutcome(inv, fmt.Sprintf("applied %d replacement(s) to %s", replacements, p.Path), false)
}
