package shellformat

import (
	"reflect"
	"strings"
	"testing"

	"mvdan.cc/sh/v3/syntax"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		opts     []Option
	}{
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "whitespace only",
			input:    "   \n\t  ",
			expected: "",
		},
		{
			name:     "simple command stays on one line",
			input:    "echo hello",
			expected: "echo hello",
		},
		{
			name:     "short chain stays on one line",
			input:    "echo a && echo b",
			expected: "echo a && echo b",
		},
		{
			name:     "short 3-element chain still fits on one line",
			input:    "echo a && echo b && echo c",
			expected: "echo a && echo b && echo c",
		},
		{
			name:  "chain over the width threshold breaks into lines",
			input: "docker compose build --no-cache --pull --progress=plain 2>&1 && docker compose up -d --remove-orphans --force-recreate",
			expected: `docker compose build --no-cache --pull --progress=plain 2>&1 \
  && docker compose up -d --remove-orphans --force-recreate`,
		},
		{
			name:  "long pipe chain breaks at every stage",
			input: "cat /var/log/app/current.log | grep -i 'connection reset' | sort | uniq -c | sort -rn",
			expected: `cat /var/log/app/current.log \
  | grep -i 'connection reset' \
  | sort \
  | uniq -c \
  | sort -rn`,
		},
		{
			name:  "mixed and-or chain with subshell tail",
			input: `cd /app && docker compose build --no-cache && docker compose up -d && echo "Deploy done" || (echo "Deploy failed" && exit 1)`,
			expected: `cd /app \
  && docker compose build --no-cache \
  && docker compose up -d \
  && echo "Deploy done" \
  || (echo "Deploy failed" && exit 1)`,
		},
		{
			name:  "semicolon separated statements",
			input: "cd /tmp; ls -la; echo done",
			expected: `cd /tmp
ls -la
echo done`,
		},
		{
			name:  "if statement",
			input: `if [ -f /tmp/foo ]; then echo exists; else echo missing; fi`,
			expected: `if [ -f /tmp/foo ]; then
  echo exists
else
  echo missing
fi`,
		},
		{
			name:  "for loop",
			input: "for i in 1 2 3; do echo $i; done",
			expected: `for i in 1 2 3; do
  echo $i
done`,
		},
		{
			name:     "backtick substitution normalized to dollar-paren",
			input:    "echo `date +%Y-%m-%d`",
			expected: "echo $(date +%Y-%m-%d)",
		},
		{
			name:     "background command",
			input:    "sleep 10 & echo started",
			expected: "sleep 10 &\necho started",
		},
		{
			name:     "parse error returns original",
			input:    `echo "unclosed string`,
			expected: `echo "unclosed string`,
		},
		{
			name:  "custom indent width",
			input: "echo a && echo b && echo c",
			opts:  []Option{WithIndent(4), WithMaxWidth(10)},
			expected: `echo a \
    && echo b \
    && echo c`,
		},
		{
			name:  "lower width threshold forces the break",
			input: "echo a && echo b",
			opts:  []Option{WithMaxWidth(10)},
			expected: `echo a \
  && echo b`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Format(tt.input, tt.opts...)
			if err != nil {
				t.Fatalf("Format() returned error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Format(%q)\n  got:\n%s\n\n  expected:\n%s", tt.input, got, tt.expected)
			}
		})
	}
}

// The continuation style must stay valid shell, so everything Format emits
// has to parse again.
func TestFormatOutputReparses(t *testing.T) {
	inputs := []string{
		"docker compose build --no-cache --pull --progress=plain 2>&1 && docker compose up -d --remove-orphans --force-recreate",
		"cat /var/log/app/current.log | grep -i 'connection reset' | sort | uniq -c | sort -rn",
		"cd /tmp; ls -la; echo done",
		`if [ -f /tmp/foo ]; then echo exists; else echo missing; fi`,
		`cd /app && docker compose build --no-cache && docker compose up -d && echo "Deploy done" || (echo "Deploy failed" && exit 1)`,
		"for i in 1 2 3; do echo $i; done",
		"sleep 10 & echo started",
	}

	parser := syntax.NewParser(syntax.KeepComments(true))
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			formatted, err := Format(input)
			if err != nil {
				t.Fatalf("Format() returned error: %v", err)
			}
			if _, err := parser.Parse(strings.NewReader(formatted), ""); err != nil {
				t.Errorf("formatted output does not parse:\n%s\n\nparse error: %v", formatted, err)
			}
		})
	}
}

func TestCommandNames(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "single command",
			input:    "echo hello",
			expected: []string{"echo"},
		},
		{
			name:     "pipeline",
			input:    "cat file | grep foo | sort",
			expected: []string{"cat", "grep", "sort"},
		},
		{
			name:     "command substitution is traversed",
			input:    "echo $(date) && rm -rf /tmp/x",
			expected: []string{"echo", "date", "rm"},
		},
		{
			name:     "subshell",
			input:    "(cd /tmp && make)",
			expected: []string{"cd", "make"},
		},
		{
			name:     "env assignments are not command names",
			input:    "ENV=production APP=myapp make deploy",
			expected: []string{"make"},
		},
		{
			name:     "expanded program name is skipped",
			input:    "$RUNNER --verbose",
			expected: nil,
		},
		{
			name:     "unparseable input falls back to first token",
			input:    `rm "unclosed`,
			expected: []string{"rm"},
		},
		{
			name:     "empty input",
			input:    "   ",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CommandNames(tt.input)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("CommandNames(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}
