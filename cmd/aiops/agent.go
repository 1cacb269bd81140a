package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mkihara/aiops/internal/agent"
	"github.com/mkihara/aiops/internal/approval"
	"github.com/mkihara/aiops/internal/executor"
	"github.com/mkihara/aiops/internal/llm"
	"github.com/mkihara/aiops/internal/modelcat"
)

// handleAgent runs the agent loop locally with approval prompts on the
// terminal, bypassing the server entirely.
func handleAgent(ctx context.Context, goal, workDir string, autoApprove bool, maxIterations int, model string) {
	baseURL := "https://api.openai.com/v1"
	if v := os.Getenv("AIOPS_MODEL_BASE_URL"); v != "" {
		baseURL = v
	}
	modelKey := os.Getenv("AIOPS_MODEL_API_KEY")
	if modelKey == "" {
		fatal(fmt.Errorf("AIOPS_MODEL_API_KEY is required"))
	}

	caller := llm.NewFallbackCaller(llm.NewRetryer(llm.NewClient(baseURL, modelKey), 3, time.Second))
	gate := approval.NewGate(autoApprove, approval.NewConsoleHandler(), nil)
	exec := executor.New(workDir, executor.WithInteractor(newConsoleInteractor()))
	loop := agent.NewLoop(caller, gate, exec, workDir, agent.WithMaxIterations(maxIterations))

	cat := modelcat.Classify(goal)
	var runOpts []agent.RunOption
	if model == "" {
		model = modelcat.SelectModel(cat)
	} else {
		runOpts = append(runOpts, agent.WithModel(model))
	}
	fmt.Printf("category: %s  model: %s\n\n", cat, model)

	result, err := loop.Run(ctx, goal, cat, runOpts...)
	if err != nil {
		fatal(err)
	}
	if result.Status == agent.StatusError {
		fatal(fmt.Errorf("%s", result.FinalText))
	}

	fmt.Printf("\n%s\n", result.FinalText)
	fmt.Printf("\n%d iteration(s), %d step(s) completed, %d failed\n",
		result.Iterations, result.StepsCompleted, result.StepsFailed)
}

// consoleInteractor answers ask_followup_question by reading a full line
// from the terminal. Answers with spaces come through intact.
type consoleInteractor struct {
	in  io.Reader
	out io.Writer
}

func newConsoleInteractor() consoleInteractor {
	return consoleInteractor{in: os.Stdin, out: os.Stdout}
}

func (c consoleInteractor) Ask(ctx context.Context, question string) (string, error) {
	fmt.Fprintf(c.out, "\n%s\n> ", question)
	answerCh := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(c.in).ReadString('\n')
		answerCh <- strings.TrimSpace(line)
	}()
	select {
	case line := <-answerCh:
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
