package loganalysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mkihara/aiops/internal/llm"
	"github.com/mkihara/aiops/internal/modelcat"
	"github.com/mkihara/aiops/pkg/cerr"
)

// ModelCaller is the resilient client surface the workflow depends on.
type ModelCaller interface {
	ChatWithFallback(ctx context.Context, req llm.ChatRequest, cat modelcat.Category) (*llm.ChatResponse, error)
}

// Workflow is the single-shot path for log-analysis and code-fix tasks:
// one classification, one model call through the fallback chain, one
// optional refinement pass. No multi-step tool use.
type Workflow struct {
	caller    ModelCaller
	analyzer  *Subprocess
	threshold int
}

type WorkflowOption func(*Workflow)

// WithAnalyzer attaches the external pipeline; its result is preferred
// when it reports confidently.
func WithAnalyzer(s *Subprocess) WorkflowOption {
	return func(w *Workflow) { w.analyzer = s }
}

func WithConfidenceThreshold(n int) WorkflowOption {
	return func(w *Workflow) {
		if n > 0 {
			w.threshold = n
		}
	}
}

// CallOption adjusts one workflow call.
type CallOption func(*callConfig)

type callConfig struct {
	model string
}

// WithModel pins the primary model for this call instead of routing by
// category. Fallback candidates still come from the category chain.
func WithModel(id string) CallOption {
	return func(cc *callConfig) { cc.model = id }
}

func NewWorkflow(caller ModelCaller, opts ...WorkflowOption) *Workflow {
	w := &Workflow{
		caller:    caller,
		threshold: DefaultConfidenceThreshold,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Analyze produces a structured analysis for one log excerpt. When the
// first result's confidence is below the threshold, a refinement pass runs
// and its result is adopted only if it reports strictly higher confidence.
func (w *Workflow) Analyze(ctx context.Context, logText string, opts ...CallOption) (*Analysis, error) {
	if w.analyzer != nil {
		if a, err := w.analyzer.Analyze(ctx, logText); err == nil && a.Confidence >= w.threshold {
			return a, nil
		} else if err != nil {
			slog.WarnContext(ctx, "analyzer subprocess failed, falling back to model", "error", err)
		}
	}

	model := resolveModel(opts, modelcat.CategoryLogAnalysis, modelcat.Hints{InputLen: len(logText)})
	first, err := w.modelAnalyze(ctx, analysisPrompt(logText), model, modelcat.CategoryLogAnalysis)
	if err != nil {
		return nil, err
	}
	if first.Confidence >= w.threshold {
		return first, nil
	}

	slog.InfoContext(ctx, "analysis confidence below threshold, refining",
		"confidence", first.Confidence,
		"threshold", w.threshold,
	)
	refined, err := w.modelAnalyze(ctx, refinementPrompt(logText, first), model, modelcat.CategoryLogAnalysis)
	if err != nil {
		// The first pass still stands.
		return first, nil
	}
	// The second pass wins only when it is strictly more confident than
	// the first; its self-reported score is the sole criterion.
	if refined.Confidence > first.Confidence {
		refined.Refined = true
		return refined, nil
	}
	return first, nil
}

// resolveModel returns the pinned model from opts, or routes by category
// and hints when no call pinned one.
func resolveModel(opts []CallOption, cat modelcat.Category, h modelcat.Hints) string {
	var cc callConfig
	for _, opt := range opts {
		opt(&cc)
	}
	if cc.model != "" {
		return cc.model
	}
	return modelcat.SelectModelWithHints(cat, h)
}

func (w *Workflow) modelAnalyze(ctx context.Context, prompt, model string, cat modelcat.Category) (*Analysis, error) {
	resp, err := w.chat(ctx, prompt, model, cat)
	if err != nil {
		return nil, err
	}
	raw, ok := llm.ExtractJSON(resp.Content)
	if !ok {
		return nil, cerr.NewError(cerr.Internal, "model response carried no JSON analysis", nil)
	}
	var a Analysis
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, cerr.NewError(cerr.Internal, "model analysis was not parseable", err)
	}
	a.Source = resp.Model
	return &a, nil
}

// FixCode asks for a corrected version of code given an error description.
func (w *Workflow) FixCode(ctx context.Context, code, language, errorText string, opts ...CallOption) (*CodeFix, error) {
	model := resolveModel(opts, modelcat.CategoryCodeGeneration, modelcat.Hints{Language: language, InputLen: len(code)})
	resp, err := w.chat(ctx, codeFixPrompt(code, language, errorText), model, modelcat.CategoryCodeGeneration)
	if err != nil {
		return nil, err
	}
	raw, ok := llm.ExtractJSON(resp.Content)
	if !ok {
		return nil, cerr.NewError(cerr.Internal, "model response carried no JSON fix", nil)
	}
	var fix CodeFix
	if err := json.Unmarshal(raw, &fix); err != nil {
		return nil, cerr.NewError(cerr.Internal, "model fix was not parseable", err)
	}
	fix.Source = resp.Model
	return &fix, nil
}

func (w *Workflow) chat(ctx context.Context, prompt, model string, cat modelcat.Category) (*llm.ChatResponse, error) {
	req := llm.ChatRequest{
		Model: model,
		Messages: []llm.Message{
			{Role: "system", Content: "You are a log analysis assistant. Respond with a single JSON object and nothing else."},
			{Role: "user", Content: prompt},
		},
	}
	return w.caller.ChatWithFallback(ctx, req, cat)
}

func analysisPrompt(logText string) string {
	return fmt.Sprintf(`Analyze this log excerpt. Return JSON with fields:
category (string), confidence (0-100), critical (bool), root_cause (string), suggested_fixes (array of strings), patch (string, optional).

Log:
%s`, logText)
}

func refinementPrompt(logText string, first *Analysis) string {
	prior, _ := json.Marshal(first)
	return fmt.Sprintf(`A first analysis of this log scored low confidence. Re-examine it carefully and return an improved JSON analysis in the same shape, with an honest confidence score.

Prior analysis:
%s

Log:
%s`, prior, logText)
}

func codeFixPrompt(code, language, errorText string) string {
	return fmt.Sprintf(`Fix this %s code. Return JSON with fields: fixed_code (string), explanation (string), confidence (0-100).

Error:
%s

Code:
%s`, language, errorText, code)
}
