// Package web serves the learning tracker's JSON API and HTML dashboard.
package web

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nas/track-learning/internal/config"
	"github.com/nas/track-learning/internal/metrics"
	"github.com/nas/track-learning/internal/ops"
	"github.com/nas/track-learning/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 5 * time.Second

// Deps are the collaborators the server needs.
type Deps struct {
	Store   store.Store
	Parser  ops.Parser
	Config  *config.Config
	Logger  *slog.Logger
	Version string

	// Metrics and Gatherer are optional; /metrics is only mounted with a Gatherer.
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer
}

// NewServer creates the HTTP server for the API and dashboard.
func NewServer(deps Deps) *http.Server {
	return &http.Server{
		Addr:              deps.Config.Addr(),
		Handler:           NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter wires routes and middleware.
//
// Middleware order: recovery → security headers → logging → auth.
// The parse routes additionally pass through the per-client rate limiter.
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(err)
	}
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}

	h := &Handlers{
		store:    deps.Store,
		parser:   deps.Parser,
		cfg:      deps.Config,
		logger:   deps.Logger,
		renderer: NewRenderer(templateSub, deps.Version),
		sessions: newSessionStore(),
	}
	limiter := newRateLimiter(deps.Logger, deps.Config.ParseRatePerMinute, deps.Config.ParseBurst)

	r := chi.NewRouter()
	r.Use(recovery(deps.Logger))
	r.Use(securityHeaders)
	r.Use(requestLogging(deps.Logger, deps.Metrics))
	r.Use(h.requireSession)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	// Pages
	r.Get("/", h.HandleList)
	r.Get("/items/{id}", h.HandleDetail)
	r.Get("/login", h.HandleLoginPage)

	// API
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.HandleLogin)
		r.Post("/auth/logout", h.HandleLogout)

		r.Route("/learning-items", func(r chi.Router) {
			r.Get("/", h.HandleAPIList)
			r.Post("/", h.HandleAPIAdd)
			r.Patch("/", h.HandleAPIUpdate)
			r.Post("/search", h.HandleAPISearch)
			r.Post("/{id}/archive", h.HandleAPIArchive)

			r.Group(func(r chi.Router) {
				r.Use(limiter.middleware)
				r.Post("/parse", h.HandleParse)
				r.Post("/parse-edit", h.HandleParseEdit)
				r.Post("/parse-search", h.HandleParseSearch)
			})
		})
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("dashboard running", slog.String("url", "http://"+srv.Addr))
	if strings.HasPrefix(srv.Addr, "0.0.0.0") || strings.HasPrefix(srv.Addr, "[::]") || strings.HasPrefix(srv.Addr, ":") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
