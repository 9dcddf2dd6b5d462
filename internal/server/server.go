package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/localmem/memsys/internal/fsrs"
	"github.com/localmem/memsys/internal/graph"
	"github.com/localmem/memsys/internal/maintenance"
	"github.com/localmem/memsys/internal/memory"
	"github.com/localmem/memsys/internal/promote"
	"github.com/localmem/memsys/internal/search"
	"github.com/localmem/memsys/internal/store"
)

// Server is the memsys HTTP API: session lifecycle for the hook client,
// hybrid search, spaced review, the relationship graph, and cross-project
// sharing, all fronting the same components the CLI drives directly.
type Server struct {
	mem      *memory.Store
	db       *store.DB
	search   *search.Engine
	graph    *graph.Graph
	promoter *promote.Engine
	sharer   *promote.Sharer
	review   *fsrs.Scheduler
	maint    *maintenance.Runner

	router        chi.Router
	version       string
	started       time.Time
	queueCapacity int
}

// defaultQueueCapacity is the soft cap on pending+processing jobs used
// when no explicit capacity is configured, per spec.md §5's backpressure
// requirement.
const defaultQueueCapacity = 1000

// New wires a Server out of the already-constructed components. Any of
// search, graph, promoter, sharer, review, and maint may be nil — the
// routes backed by a nil component answer 503 rather than panicking.
func New(mem *memory.Store, db *store.DB, se *search.Engine, gr *graph.Graph, pr *promote.Engine, sh *promote.Sharer, rv *fsrs.Scheduler, mt *maintenance.Runner, version string) *Server {
	s := &Server{
		mem:           mem,
		db:            db,
		search:        se,
		graph:         gr,
		promoter:      pr,
		sharer:        sh,
		review:        rv,
		maint:         mt,
		version:       version,
		started:       time.Now(),
		queueCapacity: defaultQueueCapacity,
	}
	s.routes()
	return s
}

// WithQueueCapacity overrides the default soft cap on the async
// ingestion queue.
func (s *Server) WithQueueCapacity(capacity int) *Server {
	if capacity > 0 {
		s.queueCapacity = capacity
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/sessions/init", s.handleSessionInit)
		r.Post("/sessions/{sessionID}/signal", s.handleSignal)
		r.Post("/sessions/{sessionID}/complete", s.handleCompleteSession)
		r.Post("/sessions/{sessionID}/end", s.handleEndSession)
		r.Get("/context", s.handleGetContext)

		r.Get("/search", s.handleSearch)

		r.Get("/review/next", s.handleReviewNext)
		r.Post("/review/record", s.handleReviewRecord)

		r.Post("/relate", s.handleRelate)
		r.Get("/memories/{id}/related", s.handleRelated)
		r.Get("/memories/{id}/contradictions", s.handleContradictions)

		r.Get("/sharing/{project}", s.handleSharedWith)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := s.db.Ping() == nil

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
