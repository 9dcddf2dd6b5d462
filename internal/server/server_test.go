package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/localmem/memsys/internal/config"
	"github.com/localmem/memsys/internal/embed"
	"github.com/localmem/memsys/internal/fsrs"
	"github.com/localmem/memsys/internal/graph"
	"github.com/localmem/memsys/internal/maintenance"
	"github.com/localmem/memsys/internal/memory"
	"github.com/localmem/memsys/internal/promote"
	"github.com/localmem/memsys/internal/search"
	"github.com/localmem/memsys/internal/store"
)

func testServer(t *testing.T) (*Server, *memory.Store, *store.DB) {
	t.Helper()

	mem, err := memory.New(t.TempDir())
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	embedder := embed.NewTFIDFEmbedder(nil, 64)
	se := search.New(mem, db, embedder, config.Default().Search)
	gr := graph.New(db)
	pr := promote.New(mem, db)
	sh := promote.NewSharer(mem, db)
	rv := fsrs.New(db)
	mt := maintenance.New(mem, db, pr, 0, 0)

	srv := New(mem, db, se, gr, pr, sh, rv, mt, "test-version")
	return srv, mem, db
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]any
	decodeJSON(t, w, &body)
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
	if body["version"] != "test-version" {
		t.Errorf("version = %v, want test-version", body["version"])
	}
	if body["db"] != true {
		t.Errorf("db = %v, want true", body["db"])
	}
}

func TestSessionInitCreatesSession(t *testing.T) {
	srv, _, db := testServer(t)

	body, _ := json.Marshal(map[string]string{"session_id": "sess-1", "project": "/proj/a"})
	req := httptest.NewRequest("POST", "/api/sessions/init", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	sessions, err := db.GetRecentSessions(10)
	if err != nil || len(sessions) != 1 {
		t.Fatalf("GetRecentSessions: %v, %d sessions", err, len(sessions))
	}
	if sessions[0].Project != "/proj/a" {
		t.Errorf("project = %q, want /proj/a", sessions[0].Project)
	}
}

func TestSessionInitRequiresID(t *testing.T) {
	srv, _, _ := testServer(t)

	body, _ := json.Marshal(map[string]string{"project": "/proj/a"})
	req := httptest.NewRequest("POST", "/api/sessions/init", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestEndSessionEnqueuesJob(t *testing.T) {
	srv, _, db := testServer(t)

	body, _ := json.Marshal(map[string]string{
		"project":         "/proj/a",
		"transcript_path": "/tmp/t.jsonl",
	})
	req := httptest.NewRequest("POST", "/api/sessions/sess-1/end", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}

	n, err := db.PendingCount()
	if err != nil {
		t.Fatalf("PendingCount: %v", err)
	}
	if n != 1 {
		t.Errorf("pending count = %d, want 1", n)
	}

	sessions, _ := db.GetRecentSessions(10)
	if len(sessions) != 1 || sessions[0].Status != "completed" {
		t.Errorf("session not marked completed: %+v", sessions)
	}
}
