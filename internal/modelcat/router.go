package modelcat

import "strings"

// classifyRule maps trigger phrases to a category. Rules are evaluated in
// order and the first match wins.
type classifyRule struct {
	category Category
	phrases  []string
}

var classifyRules = []classifyRule{
	{CategoryLogAnalysis, []string{"error:", "traceback", "exception", "fatal", "panic:", "stack trace", "segfault"}},
	{CategoryDebugging, []string{"debug", "why is", "not working", "broken", "fails"}},
	{CategoryCodeGeneration, []string{"create", "generate", "implement", "write a", "build a"}},
	{CategoryRefactoring, []string{"refactor", "optimize", "clean up", "simplify"}},
	{CategoryDocumentation, []string{"document", "explain", "describe", "summarize"}},
}

// Classify maps free-text input to a task category. Matching is
// case-insensitive; input matching no rule is classified as general.
func Classify(text string) Category {
	lower := strings.ToLower(text)
	for _, rule := range classifyRules {
		for _, phrase := range rule.phrases {
			if strings.Contains(lower, phrase) {
				return rule.category
			}
		}
	}
	return CategoryGeneral
}

var categoryModel = map[Category]string{
	CategoryLogAnalysis:    "deepseek/deepseek-r1",
	CategoryDebugging:      "openai/gpt-4o",
	CategoryCodeGeneration: "anthropic/claude-3.5-sonnet",
	CategoryRefactoring:    "qwen/qwen-2.5-coder-32b",
	CategoryDocumentation:  "openai/gpt-4o-mini",
	CategoryGeneral:        "openai/gpt-4o",
}

var categoryFallbacks = map[Category][]string{
	CategoryLogAnalysis:    {"openai/gpt-4o", "google/gemini-flash-1.5"},
	CategoryDebugging:      {"anthropic/claude-3.5-sonnet", "deepseek/deepseek-r1"},
	CategoryCodeGeneration: {"qwen/qwen-2.5-coder-32b", "openai/gpt-4o"},
	CategoryRefactoring:    {"anthropic/claude-3.5-sonnet", "openai/gpt-4o"},
	CategoryDocumentation:  {"google/gemini-flash-1.5", "openai/gpt-4o"},
}

// genericFallbacks is used for any category without an explicit chain.
var genericFallbacks = []string{"openai/gpt-4o", "openai/gpt-4o-mini"}

// SelectModel returns the primary model id for a category. Pure: the same
// category always yields the same id.
func SelectModel(cat Category) string {
	if id, ok := categoryModel[cat]; ok {
		return id
	}
	return categoryModel[CategoryGeneral]
}

// FallbackChain returns the ordered fallback model ids for a category.
func FallbackChain(cat Category) []string {
	chain, ok := categoryFallbacks[cat]
	if !ok {
		chain = genericFallbacks
	}
	out := make([]string, len(chain))
	copy(out, chain)
	return out
}

// Hints carries optional request attributes that override the plain
// category-based selection.
type Hints struct {
	// HighComplexity requests a reasoning-oriented model.
	HighComplexity bool
	// LowLatency requests a fast, small model.
	LowLatency bool
	// Language is the programming language involved, if any.
	Language string
	// InputLen is the input size in characters.
	InputLen int
}

// largeContextThreshold is the input size beyond which a large-context
// model is preferred.
const largeContextThreshold = 48_000

const (
	reasoningModel    = "deepseek/deepseek-r1"
	fastModel         = "openai/gpt-4o-mini"
	largeContextModel = "google/gemini-flash-1.5"
	coderModel        = "anthropic/claude-3.5-sonnet"
)

// SelectModelWithHints picks a model for the category, letting explicit
// hints override the static mapping. Priority: latency > complexity >
// input size > language.
func SelectModelWithHints(cat Category, h Hints) string {
	switch {
	case h.LowLatency:
		return fastModel
	case h.HighComplexity:
		return reasoningModel
	case h.InputLen > largeContextThreshold:
		return largeContextModel
	case h.Language != "":
		return coderModel
	default:
		return SelectModel(cat)
	}
}
