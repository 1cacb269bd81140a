package tool

import "strings"

// EditBlock is one literal search/replace pair extracted from an edit
// tool's diff parameter.
type EditBlock struct {
	Search  string
	Replace string
}

const (
	searchMarker  = "<<<<<<< SEARCH"
	divideMarker  = "======="
	replaceMarker = ">>>>>>> REPLACE"
)

// ParseEditBlocks extracts the search/replace blocks from a diff string.
// The format is line-oriented:
//
//	<<<<<<< SEARCH
//	old text
//	=======
//	new text
//	>>>>>>> REPLACE
//
// Malformed or unterminated blocks are skipped rather than reported: an
// edit with no usable block simply produces zero replacements.
func ParseEditBlocks(diff string) []EditBlock {
	var blocks []EditBlock
	lines := strings.Split(diff, "\n")

	i := 0
	for i < len(lines) {
		if strings.TrimRight(lines[i], " \r") != searchMarker {
			i++
			continue
		}
		i++
		var search []string
		for i < len(lines) && strings.TrimRight(lines[i], " \r") != divideMarker {
			search = append(search, lines[i])
			i++
		}
		if i >= len(lines) {
			break
		}
		i++
		var replace []string
		terminated := false
		for i < len(lines) {
			if strings.TrimRight(lines[i], " \r") == replaceMarker {
				terminated = true
				i++
				break
			}
			replace = append(replace, lines[i])
			i++
		}
		if !terminated {
			break
		}
		blocks = append(blocks, EditBlock{
			Search:  strings.Join(search, "\n"),
			Replace: strings.Join(replace, "\n"),
		})
	}
	return blocks
}
