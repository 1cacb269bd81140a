package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mkihara/aiops/internal/modelcat"
	"github.com/mkihara/aiops/internal/notify"
	"github.com/mkihara/aiops/internal/task"
	"github.com/mkihara/aiops/pkg/cerr"
)

type createTaskRequest struct {
	Category string            `json:"category"`
	Input    string            `json:"input"`
	Priority string            `json:"priority"`
	Metadata map[string]string `json:"metadata"`
}

type taskResponse struct {
	ID          string            `json:"id"`
	Category    string            `json:"category"`
	Input       string            `json:"input"`
	Priority    string            `json:"priority"`
	Status      string            `json:"status"`
	Result      string            `json:"result,omitempty"`
	Error       string            `json:"error,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	StartedAt   *time.Time        `json:"started_at,omitempty"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

func toTaskResponse(t *task.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Category:    string(t.Category),
		Input:       t.Input,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		Result:      t.Result,
		Error:       t.Error,
		Metadata:    t.Metadata,
		CreatedAt:   t.CreatedAt,
		StartedAt:   t.StartedAt,
		CompletedAt: t.CompletedAt,
	}
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}

	category := modelcat.Category(req.Category)
	if req.Category == "" {
		category = modelcat.Classify(req.Input)
	}
	t, err := s.queue.Create(ctx, category, req.Input, task.Priority(req.Priority), req.Metadata)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, toTaskResponse(t))
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	t, ok := s.queue.Get(id)
	if !ok {
		cerr.SetNewJSONError(ctx, cerr.NotFound, "task not found", nil)
		return
	}
	cerr.SetJSONResponse(ctx, toTaskResponse(t))
}

// executeTask runs the task synchronously from the caller's perspective.
func (s *Server) executeTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	t, err := s.queue.Execute(ctx, id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, toTaskResponse(t))
}

func (s *Server) cancelTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	t, err := s.queue.Cancel(ctx, id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, toTaskResponse(t))
}

func (s *Server) retryTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	t, err := s.queue.Retry(ctx, id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, toTaskResponse(t))
}

type queueStatusResponse struct {
	Counts    map[string]int `json:"counts"`
	Pending   []taskResponse `json:"pending"`
	Running   []taskResponse `json:"running"`
	Completed []taskResponse `json:"completed"`
	Failed    []taskResponse `json:"failed"`
}

func (s *Server) queueStatus(w http.ResponseWriter, r *http.Request) {
	st := s.queue.Status()
	resp := queueStatusResponse{
		Counts:    st.Counts(),
		Pending:   toTaskResponses(st.Pending),
		Running:   toTaskResponses(st.Running),
		Completed: toTaskResponses(st.Completed),
		Failed:    toTaskResponses(st.Failed),
	}
	cerr.SetJSONResponse(r.Context(), resp)
}

func toTaskResponses(tasks []*task.Task) []taskResponse {
	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	return out
}

type modelResponse struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Provider   string   `json:"provider"`
	Strengths  []string `json:"strengths"`
	Categories []string `json:"categories"`
	MaxTokens  int      `json:"max_tokens"`
}

func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	models := modelcat.All()
	out := make([]modelResponse, 0, len(models))
	for _, m := range models {
		cats := make([]string, 0, len(m.Categories))
		for _, c := range m.Categories {
			cats = append(cats, string(c))
		}
		out = append(out, modelResponse{
			ID:         m.ID,
			Name:       m.Name,
			Provider:   m.Provider,
			Strengths:  m.Strengths,
			Categories: cats,
			MaxTokens:  m.MaxTokens,
		})
	}
	cerr.SetJSONResponse(r.Context(), out)
}

type classifyRequest struct {
	Input string `json:"input"`
}

type classifyResponse struct {
	Category string   `json:"category"`
	Model    string   `json:"model"`
	Fallback []string `json:"fallback"`
}

func (s *Server) classify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req classifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	cat := modelcat.Classify(req.Input)
	cerr.SetJSONResponse(ctx, classifyResponse{
		Category: string(cat),
		Model:    modelcat.SelectModel(cat),
		Fallback: modelcat.FallbackChain(cat),
	})
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

func (s *Server) createSubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid request body", err)
		return
	}
	if req.Endpoint == "" {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "endpoint is required", nil)
		return
	}
	sub := notify.NewSubscription(req.Endpoint, req.P256dh, req.Auth)
	if err := s.subRepo.Create(ctx, sub); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, map[string]string{"id": sub.ID})
}

type healthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

// health reports process liveness plus a best-effort provider probe. The
// probe never fails the endpoint; it only colors the model field.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	modelStatus := "unknown"
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			modelStatus = "unreachable"
		} else {
			modelStatus = "ok"
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(healthResponse{Status: "ok", Model: modelStatus})
}
