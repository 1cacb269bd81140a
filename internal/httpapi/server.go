package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mkihara/aiops/internal/config"
	"github.com/mkihara/aiops/internal/llm"
	"github.com/mkihara/aiops/internal/notify"
	"github.com/mkihara/aiops/internal/queue"
	"github.com/mkihara/aiops/pkg/cerr"
	"github.com/mkihara/aiops/pkg/clog"
)

type Server struct {
	server  *http.Server
	env     *config.Env
	queue   *queue.Queue
	pinger  *llm.Client
	subRepo notify.Repository
}

func NewServer(env *config.Env, q *queue.Queue, pinger *llm.Client, subRepo notify.Repository) *Server {
	return &Server{
		env:     env,
		queue:   q,
		pinger:  pinger,
		subRepo: subRepo,
	}
}

// Handler assembles the full middleware stack and routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(
			clog.SlogChiMiddleware(),
			cerr.NewJSONResponseChiMiddleware(),
		)
		r.Route("/tasks", func(r chi.Router) {
			r.Post("/", s.createTask)
			r.Get("/{id}", s.getTask)
			r.Post("/{id}/execute", s.executeTask)
			r.Post("/{id}/cancel", s.cancelTask)
			r.Post("/{id}/retry", s.retryTask)
		})
		r.Get("/queue", s.queueStatus)
		r.Get("/models", s.listModels)
		r.Post("/models/classify", s.classify)
		r.Post("/subscriptions", s.createSubscription)
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			cerr.SetNewJSONError(r.Context(), cerr.NotFound, "not found", nil)
		})
	})

	mux := http.NewServeMux()
	mux.Handle("/health", http.HandlerFunc(s.health))
	mux.Handle("/api/", r)

	return h2c.NewHandler(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(s.apiKeyMiddleware(mux)), &http2.Server{})
}

// ListenAndServe starts the HTTP server. The provided context is the base
// context for all incoming requests, so cancelling it on shutdown also
// cancels in-flight handlers.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.env.HTTPHost, s.env.HTTPPort)
	slog.Info("starting server", "addr", addr)

	s.server = &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Health stays open for probes.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		apiKey := r.Header.Get("X-API-Key")
		if apiKey == "" {
			apiKey = r.Header.Get("Authorization")
			if len(apiKey) > 7 && apiKey[:7] == "Bearer " {
				apiKey = apiKey[7:]
			}
		}
		if apiKey != s.env.APIKey {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
