// Package modelcat holds the static model catalog and the routing rules that
// pick a model (and its fallbacks) for a task.
package modelcat

// Category classifies what kind of work a task asks for.
type Category string

const (
	CategoryLogAnalysis    Category = "log-analysis"
	CategoryDebugging      Category = "debugging"
	CategoryCodeGeneration Category = "code-generation"
	CategoryRefactoring    Category = "refactoring"
	CategoryDocumentation  Category = "documentation"
	CategoryGeneral        Category = "general"
)

// Model describes one entry in the static catalog. The catalog is read-only
// once loaded; routing functions are pure lookups over it.
type Model struct {
	ID         string
	Name       string
	Provider   string
	Strengths  []string
	Categories []Category
	MaxTokens  int
}

var catalog = []Model{
	{
		ID:         "openai/gpt-4o",
		Name:       "GPT-4o",
		Provider:   "openai",
		Strengths:  []string{"reasoning", "code", "long-form"},
		Categories: []Category{CategoryLogAnalysis, CategoryDebugging, CategoryCodeGeneration, CategoryGeneral},
		MaxTokens:  16384,
	},
	{
		ID:         "openai/gpt-4o-mini",
		Name:       "GPT-4o mini",
		Provider:   "openai",
		Strengths:  []string{"speed", "low-cost"},
		Categories: []Category{CategoryDocumentation, CategoryGeneral},
		MaxTokens:  16384,
	},
	{
		ID:         "anthropic/claude-3.5-sonnet",
		Name:       "Claude 3.5 Sonnet",
		Provider:   "anthropic",
		Strengths:  []string{"code", "refactoring", "long-context"},
		Categories: []Category{CategoryCodeGeneration, CategoryRefactoring, CategoryDebugging},
		MaxTokens:  8192,
	},
	{
		ID:         "deepseek/deepseek-r1",
		Name:       "DeepSeek R1",
		Provider:   "deepseek",
		Strengths:  []string{"reasoning", "root-cause-analysis"},
		Categories: []Category{CategoryLogAnalysis, CategoryDebugging},
		MaxTokens:  8192,
	},
	{
		ID:         "google/gemini-flash-1.5",
		Name:       "Gemini 1.5 Flash",
		Provider:   "google",
		Strengths:  []string{"speed", "large-context"},
		Categories: []Category{CategoryLogAnalysis, CategoryDocumentation, CategoryGeneral},
		MaxTokens:  8192,
	},
	{
		ID:         "qwen/qwen-2.5-coder-32b",
		Name:       "Qwen 2.5 Coder",
		Provider:   "qwen",
		Strengths:  []string{"code", "patches"},
		Categories: []Category{CategoryCodeGeneration, CategoryRefactoring},
		MaxTokens:  8192,
	},
}

// All returns the full catalog.
func All() []Model {
	out := make([]Model, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the model with the given id.
func Lookup(id string) (Model, bool) {
	for _, m := range catalog {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// ByCategory returns every model declaring support for the category,
// in catalog order.
func ByCategory(cat Category) []Model {
	var out []Model
	for _, m := range catalog {
		for _, c := range m.Categories {
			if c == cat {
				out = append(out, m)
				break
			}
		}
	}
	return out
}
