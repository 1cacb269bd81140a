package executor

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mkihara/aiops/internal/tool"
)

const (
	defaultMaxResults  = 100
	searchContextLines = 1
)

// Directories never descended into during search and list.
var skippedDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	".git":         true,
}

func skipDir(name string) bool {
	return skippedDirs[name] || strings.HasPrefix(name, ".")
}

func (e *Executor) searchFiles(inv tool.Invocation, p tool.SearchFilesParams) tool.Outcome {
	re, err := regexp.Compile(p.Regex)
	if err != nil {
		return tool.NewOutcome(inv, fmt.Sprintf("invalid regex %q: %v", p.Regex, err), true)
	}

	maxResults := p.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	root := e.resolve(p.Path)
	var b strings.Builder
	found := 0

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if p.FilePattern != "" {
			if ok, _ := filepath.Match(p.FilePattern, d.Name()); !ok {
				return nil
			}
		}
		if found >= maxResults {
			return filepath.SkipAll
		}
		found += searchFile(&b, re, root, path, maxResults-found)
		return nil
	})
	if walkErr != nil {
		return tool.NewOutcome(inv, fmt.Sprintf("search %s: %v", p.Path, walkErr), true)
	}

	if found == 0 {
		return tool.NewOutcome(inv, fmt.Sprintf("no matches for %q under %s", p.Regex, p.Path), false)
	}
	header := fmt.Sprintf("%d match(es) for %q:\n", found, p.Regex)
	return tool.NewOutcome(inv, header+b.String(), false)
}

// searchFile appends up to limit matches with surrounding context and
// returns how many it found.
func searchFile(b *strings.Builder, re *regexp.Regexp, root, path string, limit int) int {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()

	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	found := 0
	for i, line := range lines {
		if found >= limit {
			break
		}
		if !re.MatchString(line) {
			continue
		}
		found++
		fmt.Fprintf(b, "%s:%d\n", rel, i+1)
		lo := i - searchContextLines
		hi := i + searchContextLines
		if lo < 0 {
			lo = 0
		}
		if hi >= len(lines) {
			hi = len(lines) - 1
		}
		for j := lo; j <= hi; j++ {
			marker := " "
			if j == i {
				marker = ">"
			}
			fmt.Fprintf(b, " %s %d | %s\n", marker, j+1, lines[j])
		}
	}
	return found
}
