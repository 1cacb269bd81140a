// Package shellformat renders shell one-liners for human review.
//
// It parses commands using mvdan.cc/sh/v3/syntax (the shfmt parser). Format
// reflows long pipelines with backslash continuations so an operator can read
// a proposed command before approving it; CommandNames extracts every program
// invoked anywhere in the statement, including inside pipelines, subshells,
// and command substitutions, for risk assessment.
package shellformat

import (
	"bytes"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Option configures the formatter.
type Option func(*config)

type config struct {
	indent   int
	maxWidth int
}

func defaultConfig() *config {
	return &config{
		indent:   2,
		maxWidth: 80,
	}
}

// WithIndent sets the indentation width in spaces (default: 2).
func WithIndent(n int) Option {
	return func(c *config) { c.indent = n }
}

// WithMaxWidth sets the maximum line width threshold (default: 80).
// Statements shorter than this threshold are kept on a single line.
func WithMaxWidth(n int) Option {
	return func(c *config) { c.maxWidth = n }
}

// Format parses a shell one-liner and reformats it for readability. The
// output uses backslash continuations, so it remains valid shell that can be
// copy-pasted and executed.
//
// On parse error the original input is returned unchanged with a nil error:
// an unparseable command must still be shown to the operator verbatim.
func Format(input string, opts ...Option) (string, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return "", nil
	}

	parser := syntax.NewParser(syntax.KeepComments(true))
	prog, err := parser.Parse(strings.NewReader(input), "")
	if err != nil {
		return input, nil
	}

	f := &formatter{
		width:   cfg.indent,
		maxW:    cfg.maxWidth,
		printer: syntax.NewPrinter(syntax.Indent(uint(cfg.indent)), syntax.SpaceRedirects(true)),
	}

	for i, stmt := range prog.Stmts {
		if i > 0 {
			f.buf.WriteByte('\n')
		}
		f.stmt(stmt)
	}
	return strings.TrimRight(f.buf.String(), "\n"), nil
}

// CommandNames returns the name of every program invoked by the statement,
// in source order. Pipelines, lists, subshells, command substitutions, and
// conditionals are all traversed. An unparseable input falls back to the
// first whitespace-separated token.
func CommandNames(input string) []string {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}

	parser := syntax.NewParser()
	prog, err := parser.Parse(strings.NewReader(input), "")
	if err != nil {
		fields := strings.Fields(input)
		if len(fields) == 0 {
			return nil
		}
		return []string{fields[0]}
	}

	var names []string
	syntax.Walk(prog, func(node syntax.Node) bool {
		call, ok := node.(*syntax.CallExpr)
		if !ok || len(call.Args) == 0 {
			return true
		}
		if name := literalWord(call.Args[0]); name != "" {
			names = append(names, name)
		}
		return true
	})
	return names
}

// literalWord renders a word consisting only of literal parts; words with
// expansions return "".
func literalWord(w *syntax.Word) string {
	var sb strings.Builder
	for _, part := range w.Parts {
		lit, ok := part.(*syntax.Lit)
		if !ok {
			return ""
		}
		sb.WriteString(lit.Value)
	}
	return sb.String()
}

type formatter struct {
	buf     bytes.Buffer
	width   int
	maxW    int
	printer *syntax.Printer
}

func (f *formatter) nodeStr(node syntax.Node) string {
	var buf bytes.Buffer
	f.printer.Print(&buf, node)
	return strings.TrimRight(buf.String(), "\n")
}

func (f *formatter) stmt(s *syntax.Stmt) {
	bin, isBinary := s.Cmd.(*syntax.BinaryCmd)

	if !isBinary {
		f.buf.WriteString(f.nodeStr(s))
		return
	}

	flat := f.nodeStr(s)
	if !strings.Contains(flat, "\n") && len(flat) <= f.maxW {
		f.buf.WriteString(flat)
		return
	}

	if s.Negated {
		f.buf.WriteString("! ")
	}
	chain := flattenBinaryCmd(bin)
	indent := strings.Repeat(" ", f.width)
	for i, elem := range chain {
		if i > 0 {
			f.buf.WriteString(" \\\n")
			f.buf.WriteString(indent)
			f.buf.WriteString(elem.op)
			f.buf.WriteByte(' ')
		}
		f.buf.WriteString(f.nodeStr(elem.stmt))
	}
	if s.Background {
		f.buf.WriteString(" &")
	}
}

// chainElem is one element in a flattened binary command chain.
type chainElem struct {
	op   string // operator before this element ("" for first)
	stmt *syntax.Stmt
}

// flattenBinaryCmd flattens a left-associative binary command tree
// into a linear chain of (operator, statement) pairs.
func flattenBinaryCmd(cmd *syntax.BinaryCmd) []chainElem {
	var chain []chainElem
	collectBinary(cmd, &chain)
	return chain
}

func collectBinary(cmd *syntax.BinaryCmd, chain *[]chainElem) {
	if leftBin, ok := cmd.X.Cmd.(*syntax.BinaryCmd); ok && isBareBinaryStmt(cmd.X) {
		collectBinary(leftBin, chain)
	} else {
		*chain = append(*chain, chainElem{stmt: cmd.X})
	}

	op := cmd.Op.String()

	if rightBin, ok := cmd.Y.Cmd.(*syntax.BinaryCmd); ok && isBareBinaryStmt(cmd.Y) {
		var rightChain []chainElem
		collectBinary(rightBin, &rightChain)
		if len(rightChain) > 0 {
			rightChain[0].op = op
			*chain = append(*chain, rightChain...)
		}
	} else {
		*chain = append(*chain, chainElem{op: op, stmt: cmd.Y})
	}
}

// isBareBinaryStmt reports whether the statement is a plain binary command
// with no negation, background, or redirects, so it can be flattened into
// the parent chain.
func isBareBinaryStmt(s *syntax.Stmt) bool {
	return !s.Negated && !s.Background && len(s.Redirs) == 0
}
