package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
)

var (
	app = kingpin.New("aiops", "AI DevOps agent orchestration tool")

	// Task commands
	submitCmd      = app.Command("submit", "Submit a new task")
	submitInput    = submitCmd.Arg("input", "Task input text").Required().String()
	submitCategory = submitCmd.Flag("category", "Task category (classified from input when empty)").String()
	submitPriority = submitCmd.Flag("priority", "Task priority").Default("medium").String()
	submitExecute  = submitCmd.Flag("execute", "Execute the task immediately after submitting").Bool()

	showCmd = app.Command("show", "Show task details")
	showID  = showCmd.Arg("id", "Task ID").Required().String()

	executeCmd = app.Command("execute", "Execute a pending task and wait for the result")
	executeID  = executeCmd.Arg("id", "Task ID").Required().String()

	cancelCmd = app.Command("cancel", "Cancel a pending task")
	cancelID  = cancelCmd.Arg("id", "Task ID").Required().String()

	retryCmd = app.Command("retry", "Re-queue a failed task")
	retryID  = retryCmd.Arg("id", "Task ID").Required().String()

	queueCmd = app.Command("queue", "Show queue status")

	// Model commands
	modelsCmd = app.Command("models", "List registered models")

	classifyCmd   = app.Command("classify", "Classify input and show the routing decision")
	classifyInput = classifyCmd.Arg("input", "Input text to classify").Required().String()

	// Local agent session (no server required)
	agentCmd         = app.Command("agent", "Run a one-shot agent session in this terminal")
	agentGoal        = agentCmd.Arg("goal", "What the agent should accomplish").Required().String()
	agentWorkDir     = agentCmd.Flag("workdir", "Working directory for tool execution").Default(".").String()
	agentAutoApprove = agentCmd.Flag("auto-approve", "Skip approval prompts").Bool()
	agentIterations  = agentCmd.Flag("max-iterations", "Iteration cap for the loop").Default("50").Int()
	agentModel       = agentCmd.Flag("model", "Model ID to use instead of category routing").String()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if command == agentCmd.FullCommand() {
		handleAgent(ctx, *agentGoal, *agentWorkDir, *agentAutoApprove, *agentIterations, *agentModel)
		return
	}

	client, err := newClientFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	switch command {
	case submitCmd.FullCommand():
		handleSubmit(ctx, client, *submitInput, *submitCategory, *submitPriority, *submitExecute)
	case showCmd.FullCommand():
		handleShow(ctx, client, *showID)
	case executeCmd.FullCommand():
		handleExecute(ctx, client, *executeID)
	case cancelCmd.FullCommand():
		handleCancel(ctx, client, *cancelID)
	case retryCmd.FullCommand():
		handleRetry(ctx, client, *retryID)
	case queueCmd.FullCommand():
		handleQueue(ctx, client)
	case modelsCmd.FullCommand():
		handleModels(ctx, client)
	case classifyCmd.FullCommand():
		handleClassify(ctx, client, *classifyInput)
	}
}

func handleSubmit(ctx context.Context, c *apiClient, input, category, priority string, execute bool) {
	t, err := c.submitTask(ctx, input, category, priority)
	if err != nil {
		fatal(err)
	}
	if execute {
		t, err = c.executeTask(ctx, t.ID)
		if err != nil {
			fatal(err)
		}
	}
	printTask(t)
}

func handleShow(ctx context.Context, c *apiClient, id string) {
	t, err := c.getTask(ctx, id)
	if err != nil {
		fatal(err)
	}
	printTask(t)
}

func handleExecute(ctx context.Context, c *apiClient, id string) {
	t, err := c.executeTask(ctx, id)
	if err != nil {
		fatal(err)
	}
	printTask(t)
}

func handleCancel(ctx context.Context, c *apiClient, id string) {
	t, err := c.cancelTask(ctx, id)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("cancelled %s\n", t.ID)
}

func handleRetry(ctx context.Context, c *apiClient, id string) {
	t, err := c.retryTask(ctx, id)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("re-queued %s (status: %s)\n", t.ID, t.Status)
}

func handleQueue(ctx context.Context, c *apiClient) {
	st, err := c.queueStatus(ctx)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("pending: %d  running: %d  completed: %d  failed: %d\n",
		st.Counts["pending"], st.Counts["running"], st.Counts["completed"], st.Counts["failed"])
	printTaskList("PENDING", st.Pending)
	printTaskList("RUNNING", st.Running)
	printTaskList("FAILED", st.Failed)
}

func handleModels(ctx context.Context, c *apiClient) {
	models, err := c.listModels(ctx)
	if err != nil {
		fatal(err)
	}
	for _, m := range models {
		fmt.Printf("%-32s %-12s %v\n", m.ID, m.Provider, m.Categories)
	}
}

func handleClassify(ctx context.Context, c *apiClient, input string) {
	res, err := c.classify(ctx, input)
	if err != nil {
		fatal(err)
	}
	fmt.Printf("category: %s\n", res.Category)
	fmt.Printf("model:    %s\n", res.Model)
	fmt.Printf("fallback: %v\n", res.Fallback)
}

func printTask(t *taskView) {
	fmt.Printf("id:       %s\n", t.ID)
	fmt.Printf("category: %s\n", t.Category)
	fmt.Printf("priority: %s\n", t.Priority)
	fmt.Printf("status:   %s\n", t.Status)
	fmt.Printf("created:  %s\n", t.CreatedAt.Format(time.RFC3339))
	if t.Result != "" {
		fmt.Printf("result:\n%s\n", t.Result)
	}
	if t.Error != "" {
		fmt.Printf("error:    %s\n", t.Error)
	}
}

func printTaskList(header string, tasks []taskView) {
	if len(tasks) == 0 {
		return
	}
	fmt.Printf("\n%s\n", header)
	for _, t := range tasks {
		fmt.Printf("  %s  %-8s  %-16s  %s\n", t.ID, t.Priority, t.Category, truncate(t.Input, 60))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
