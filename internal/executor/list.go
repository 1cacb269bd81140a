package executor

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mkihara/aiops/internal/tool"
)

const defaultMaxDepth = 5

type listEntry struct {
	path  string
	isDir bool
	size  int64
	mtime string
}

func (e *Executor) listFiles(inv tool.Invocation, p tool.ListFilesParams) tool.Outcome {
	root := e.resolve(p.Path)

	maxDepth := 1
	if p.Recursive {
		maxDepth = p.MaxDepth
		if maxDepth <= 0 {
			maxDepth = defaultMaxDepth
		}
	}

	var entries []listEntry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == root {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		depth := strings.Count(rel, string(filepath.Separator)) + 1
		if depth > maxDepth {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		entries = append(entries, entryFor(rel, d))
		if d.IsDir() && (skipDir(d.Name()) || depth == maxDepth) {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return tool.NewOutcome(inv, fmt.Sprintf("list %s: %v", p.Path, err), true)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].path < entries[j].path })

	var b strings.Builder
	for _, en := range entries {
		kind := "file"
		if en.isDir {
			kind = "dir"
		}
		fmt.Fprintf(&b, "%-4s %10d  %s  %s\n", kind, en.size, en.mtime, en.path)
	}
	if len(entries) == 0 {
		return tool.NewOutcome(inv, fmt.Sprintf("%s is empty", p.Path), false)
	}
	return tool.NewOutcome(inv, b.String(), false)
}

func entryFor(rel string, d fs.DirEntry) listEntry {
	en := listEntry{path: rel, isDir: d.IsDir()}
	if info, err := d.Info(); err == nil {
		en.size = info.Size()
		en.mtime = info.ModTime().Format("2006-01-02 15:04")
	}
	return en
}
