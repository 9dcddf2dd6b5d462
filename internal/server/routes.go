package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/localmem/memsys/internal/fsrs"
	"github.com/localmem/memsys/internal/importance"
	"github.com/localmem/memsys/internal/memory"
	"github.com/localmem/memsys/internal/search"
)

func (s *Server) handleSessionInit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Project   string `json:"project"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id required")
		return
	}

	sess, err := s.db.InitSession(req.SessionID, req.Project)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": sess.SessionID,
		"status":     sess.Status,
	})
}

// handleSignal captures an immediately-flagged memory ("remember this: ...")
// without waiting for session-end consolidation. The markdown write runs
// before the response; the search index update runs in a background
// goroutine, so the handler answers 202 with the new memory id.
func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt required")
		return
	}

	sess, err := s.db.InitSession(sessionID, "")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	imp := importance.Clamp(importance.BaseScore(req.Prompt) + 0.15)
	id, err := s.mem.Create(req.Prompt, memory.ScopeProject, sess.Project, []string{"signal"}, imp, sessionID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if s.search != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if rec, err := s.mem.Read(id); err == nil {
				s.search.IndexMemory(ctx, rec)
			}
		}()
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "processing", "memory_id": id})
}

func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := s.db.CompleteSession(sessionID); err != nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "note": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"})
}

// handleEndSession is the session-end hook contract: enqueue and return.
// Consolidation runs later, off the background consumer loop, so this
// handler must not touch the consolidator directly.
func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req struct {
		Project        string `json:"project"`
		TranscriptPath string `json:"transcript_path"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	if _, err := s.db.InitSession(sessionID, req.Project); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if pending, err := s.db.PendingCount(); err == nil && pending >= s.queueCapacity {
		log.Printf("queue: soft cap reached (%d/%d), dropping session %s", pending, s.queueCapacity, sessionID)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "dropped", "reason": "queue at capacity"})
		return
	}

	if _, err := s.db.Enqueue(sessionID, req.Project, req.TranscriptPath); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.db.EndSession(sessionID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.search == nil {
		writeError(w, http.StatusServiceUnavailable, "search not configured")
		return
	}

	q := r.URL.Query()
	limit := 10
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	filters := memory.Filters{
		Project: q.Get("project"),
		Tag:     q.Get("tag"),
	}
	if mi := q.Get("min_importance"); mi != "" {
		if f, err := strconv.ParseFloat(mi, 64); err == nil {
			filters.MinImportance = f
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	results, err := s.search.Search(ctx, search.Query{Text: q.Get("q"), Filters: filters, Limit: limit})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   q.Get("q"),
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) handleReviewNext(w http.ResponseWriter, r *http.Request) {
	if s.review == nil {
		writeError(w, http.StatusServiceUnavailable, "review not configured")
		return
	}

	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	due, err := s.review.DueReviews(limit, func(memoryID string) float64 {
		meta, err := s.mem.ReadMeta(memoryID)
		if err != nil {
			return 0
		}
		return meta.Importance
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"due": due})
}

func (s *Server) handleReviewRecord(w http.ResponseWriter, r *http.Request) {
	if s.review == nil {
		writeError(w, http.StatusServiceUnavailable, "review not configured")
		return
	}

	var req struct {
		MemoryID string `json:"memory_id"`
		Grade    string `json:"grade"`
		Project  string `json:"project"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	grade := fsrs.Grade(req.Grade)
	switch grade {
	case fsrs.Fail, fsrs.Hard, fsrs.Good, fsrs.Easy:
	default:
		writeError(w, http.StatusBadRequest, "grade must be one of FAIL, HARD, GOOD, EASY")
		return
	}

	newProject, err := s.review.RecordReview(req.MemoryID, string(grade), req.Project)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "recorded", "new_validated_project": newProject})
}

func (s *Server) handleRelate(w http.ResponseWriter, r *http.Request) {
	if s.graph == nil {
		writeError(w, http.StatusServiceUnavailable, "graph not configured")
		return
	}

	var req struct {
		FromID    string  `json:"from_id"`
		ToID      string  `json:"to_id"`
		Type      string  `json:"type"`
		Strength  float64 `json:"strength"`
		Evidence  string  `json:"evidence"`
		CreatedBy string  `json:"created_by"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Strength == 0 {
		req.Strength = 1.0
	}

	if err := s.graph.Link(req.FromID, req.ToID, req.Type, req.Strength, req.Evidence, req.CreatedBy); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"status": "linked"})
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	if s.graph == nil {
		writeError(w, http.StatusServiceUnavailable, "graph not configured")
		return
	}

	id := chi.URLParam(r, "id")
	edges, err := s.graph.Related(id, r.URL.Query().Get("type"), r.URL.Query().Get("direction"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "edges": edges})
}

func (s *Server) handleContradictions(w http.ResponseWriter, r *http.Request) {
	if s.graph == nil {
		writeError(w, http.StatusServiceUnavailable, "graph not configured")
		return
	}

	id := chi.URLParam(r, "id")
	edges, err := s.graph.Contradictions(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "contradictions": edges})
}

func (s *Server) handleSharedWith(w http.ResponseWriter, r *http.Request) {
	if s.sharer == nil {
		writeError(w, http.StatusServiceUnavailable, "sharing not configured")
		return
	}

	project := chi.URLParam(r, "project")
	shared, err := s.sharer.SharedWith(project)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"project": project, "shared": shared})
}
