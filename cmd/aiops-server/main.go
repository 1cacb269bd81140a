package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkihara/aiops/internal/agent"
	"github.com/mkihara/aiops/internal/approval"
	"github.com/mkihara/aiops/internal/config"
	"github.com/mkihara/aiops/internal/eventbus"
	"github.com/mkihara/aiops/internal/executor"
	"github.com/mkihara/aiops/internal/httpapi"
	"github.com/mkihara/aiops/internal/llm"
	"github.com/mkihara/aiops/internal/loganalysis"
	"github.com/mkihara/aiops/internal/logwatch"
	"github.com/mkihara/aiops/internal/modelcat"
	"github.com/mkihara/aiops/internal/notify"
	notifyrepo "github.com/mkihara/aiops/internal/notify/repositoryimpl"
	"github.com/mkihara/aiops/internal/queue"
	"github.com/mkihara/aiops/internal/task"
	taskrepo "github.com/mkihara/aiops/internal/task/repositoryimpl"
	"github.com/mkihara/aiops/pkg/clog"
	"github.com/mkihara/aiops/pkg/storage"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "sentinel" {
		runSentinel()
		return
	}
	run()
}

func run() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewHTTPTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	// Setup storage
	var store storage.Storage
	switch env.StorageEnv.Type {
	case "s3":
		store, err = storage.NewS3Storage(context.Background(), env.StorageEnv.S3Bucket, env.StorageEnv.S3Prefix, env.StorageEnv.S3Region)
		if err != nil {
			slog.Error("failed to create S3 storage", "error", err)
			os.Exit(1)
		}
	default:
		store, err = storage.NewLocalStorage(env.StorageEnv.BaseDir)
		if err != nil {
			slog.Error("failed to create local storage", "error", err)
			os.Exit(1)
		}
	}

	// Setup event bus and repositories
	bus := eventbus.New()
	taskRepository := taskrepo.NewYAMLRepository(store)
	subRepository := notifyrepo.NewYAMLRepository(store)

	// Setup model client stack: client -> retry -> fallback
	client := llm.NewClient(env.ModelEnv.BaseURL, env.ModelEnv.Key)
	retryer := llm.NewRetryer(client, env.ModelEnv.MaxRetries, time.Duration(env.ModelEnv.RetryDelay*float64(time.Second)))
	caller := llm.NewFallbackCaller(retryer)

	// Setup approval gate and executor
	gate := approval.NewGate(env.AgentEnv.AutoApprove, approval.NewConsoleHandler(), bus)
	exec := executor.New(env.AgentEnv.WorkDir)

	// Setup workflows
	var workflowOpts []loganalysis.WorkflowOption
	if env.AgentEnv.AnalyzerCommand != "" {
		workflowOpts = append(workflowOpts, loganalysis.WithAnalyzer(
			loganalysis.NewSubprocess(env.AgentEnv.AnalyzerCommand, time.Duration(env.AgentEnv.AnalyzerTimeout*float64(time.Second))),
		))
	}
	workflowOpts = append(workflowOpts, loganalysis.WithConfidenceThreshold(int(env.AgentEnv.ConfidenceThreshold)))
	workflow := loganalysis.NewWorkflow(caller, workflowOpts...)

	loop := agent.NewLoop(caller, gate, exec, env.AgentEnv.WorkDir,
		agent.WithMaxIterations(env.AgentEnv.MaxIterations),
		agent.WithStatusFunc(func(s agent.Status) {
			slog.Debug("agent loop status", "status", string(s))
		}))

	// Setup queue
	q := queue.New(taskRepository, bus, newTaskRunner(loop, workflow),
		queue.WithConcurrencyCap(env.AgentEnv.ConcurrencyCap))
	if err := q.Restore(context.Background()); err != nil {
		slog.Error("failed to restore queue", "error", err)
		os.Exit(1)
	}

	// Setup push notifications
	pushSender := notify.NewSender(&env.PushEnv, subRepository)
	pushDispatcher := notify.NewDispatcher(bus, pushSender)

	srv := httpapi.NewServer(env, q, client, subRepository)

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	go pushDispatcher.Run(ctx)

	if len(env.WatchEnv.LogPaths) > 0 {
		watcher := logwatch.New(q, bus,
			logwatch.WithDedupeWindow(time.Duration(env.WatchEnv.DedupeWindow*float64(time.Second))))
		go func() {
			if err := watcher.Run(ctx, env.WatchEnv.LogPaths); err != nil && ctx.Err() == nil {
				slog.Error("log watcher stopped", "error", err)
			}
		}()
	}

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// newTaskRunner routes tasks by category: log-analysis and code-fix run a
// single-shot workflow, everything else the full agent loop.
func newTaskRunner(loop *agent.Loop, workflow *loganalysis.Workflow) queue.Runner {
	return queue.RunnerFunc(func(ctx context.Context, t *task.Task) (string, error) {
		override := t.Metadata["model"]

		switch t.Category {
		case modelcat.CategoryLogAnalysis:
			var callOpts []loganalysis.CallOption
			if override != "" {
				callOpts = append(callOpts, loganalysis.WithModel(override))
			}
			a, err := workflow.Analyze(ctx, t.Input, callOpts...)
			if err != nil {
				return "", err
			}
			data, err := marshalResult(a)
			if err != nil {
				return "", err
			}
			return data, nil
		case modelcat.CategoryCodeGeneration:
			if code, lang, errText, ok := codeFixPayload(t); ok {
				var callOpts []loganalysis.CallOption
				if override != "" {
					callOpts = append(callOpts, loganalysis.WithModel(override))
				}
				fix, err := workflow.FixCode(ctx, code, lang, errText, callOpts...)
				if err != nil {
					return "", err
				}
				return marshalResult(fix)
			}
		}

		var runOpts []agent.RunOption
		if override != "" {
			runOpts = append(runOpts, agent.WithModel(override))
		}
		res, err := loop.Run(ctx, t.Input, t.Category, runOpts...)
		if err != nil {
			return "", err
		}
		if res.Status == agent.StatusError {
			return "", errTaskFailed(res.FinalText)
		}
		return res.FinalText, nil
	})
}
