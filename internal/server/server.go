// Package server exposes the profiling pipeline over HTTP: submit a run,
// poll its status, list what ran before. Profiling is asynchronous; the
// submit endpoint answers 202 with a run id and the result lands in the
// store when the build finishes.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/policyengine/simprof/internal/store"
)

// DefaultProfileEvery is the minimum gap between accepted profile
// requests. Profiling saturates one CPU for the length of a build, so
// back-to-back requests would contend with the run they want to measure.
const DefaultProfileEvery = 30 * time.Second

// Options tunes the server.
type Options struct {
	// TopN and Epsilon are passed through to each comparison; zero
	// selects the model defaults.
	TopN    int
	Epsilon float64

	// ProfileEvery overrides DefaultProfileEvery.
	ProfileEvery time.Duration
}

// Server handles the profiling API.
type Server struct {
	// baseCtx bounds asynchronous profiling work started by requests;
	// normally the serve command's signal context.
	baseCtx context.Context

	store   store.Store
	limiter *rate.Limiter
	topN    int
	epsilon float64
}

// New creates a Server persisting runs to st.
func New(ctx context.Context, st store.Store, opts Options) *Server {
	every := opts.ProfileEvery
	if every <= 0 {
		every = DefaultProfileEvery
	}
	return &Server{
		baseCtx: ctx,
		store:   st,
		limiter: rate.NewLimiter(rate.Every(every), 1),
		topN:    opts.TopN,
		epsilon: opts.Epsilon,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/engines", s.handleEngines)
		r.Post("/profile", s.handleProfile)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		zap.L().Debug("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
