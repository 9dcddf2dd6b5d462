package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/localmem/memsys/internal/memory"
)

func TestSignalCreatesMemory(t *testing.T) {
	srv, mem, _ := testServer(t)

	init := `{"session_id":"test-001","project":"/tmp/myproject"}`
	req := httptest.NewRequest("POST", "/api/sessions/init", strings.NewReader(init))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	body := `{"prompt":"remember this: always use WAL mode"}`
	req = httptest.NewRequest("POST", "/api/sessions/test-001/signal", strings.NewReader(body))
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusAccepted, w.Body.String())
	}

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["memory_id"] == "" {
		t.Fatal("expected a memory_id in response")
	}

	rec, err := mem.Read(resp["memory_id"])
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if rec.Content != "remember this: always use WAL mode" {
		t.Errorf("content = %q", rec.Content)
	}
}

func TestSignalRouteMissingPrompt(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest("POST", "/api/sessions/test-001/signal", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestSignalRouteInvalidJSON(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest("POST", "/api/sessions/test-001/signal", strings.NewReader("not json"))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestGetContextEmpty(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest("GET", "/api/context", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !strings.Contains(resp["context"], "memsys") {
		t.Errorf("context missing header: %s", resp["context"])
	}
}

func TestGetContextWithSessionsAndMemories(t *testing.T) {
	srv, mem, _ := testServer(t)

	init := `{"session_id":"old-001","project":"/tmp/myproject"}`
	req := httptest.NewRequest("POST", "/api/sessions/init", strings.NewReader(init))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if _, err := mem.Create("the build uses WAL mode for sqlite", memory.ScopeProject, "/tmp/myproject", nil, 0.9, "old-001"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	req = httptest.NewRequest("GET", "/api/context?session_id=new-001", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)

	if !strings.Contains(resp["context"], "Recent Sessions") {
		t.Errorf("context missing 'Recent Sessions': %s", resp["context"])
	}
	if !strings.Contains(resp["context"], "myproject") {
		t.Errorf("context missing project name: %s", resp["context"])
	}
}

func TestSearchRoute(t *testing.T) {
	srv, mem, _ := testServer(t)

	if _, err := mem.Create("the connection pool leaked under load", memory.ScopeProject, "p1", []string{"bug"}, 0.7, "s1"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/search?q=connection+pool&project=p1", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Count int `json:"count"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count == 0 {
		t.Error("expected at least one search hit")
	}
}

func TestReviewRecordRejectsUnknownGrade(t *testing.T) {
	srv, _, _ := testServer(t)

	body := `{"memory_id":"m1","grade":"MAYBE","project":"p1"}`
	req := httptest.NewRequest("POST", "/api/review/record", strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestReviewRecordAndNext(t *testing.T) {
	srv, mem, _ := testServer(t)

	id, err := mem.Create("keep retry backoff below 2s", memory.ScopeProject, "p1", nil, 0.8, "s1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	body, _ := json.Marshal(map[string]string{"memory_id": id, "grade": "GOOD", "project": "p1"})
	req := httptest.NewRequest("POST", "/api/review/record", strings.NewReader(string(body)))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("record status = %d, want 200: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/review/next?limit=5", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("next status = %d, want 200: %s", w.Code, w.Body.String())
	}
}

func TestRelateAndRelated(t *testing.T) {
	srv, mem, _ := testServer(t)

	a, _ := mem.Create("root cause was a race condition", memory.ScopeProject, "p1", nil, 0.6, "s1")
	b, _ := mem.Create("the fix was to add a mutex", memory.ScopeProject, "p1", nil, 0.6, "s1")

	body, _ := json.Marshal(map[string]any{
		"from_id": a, "to_id": b, "type": "causal", "strength": 0.9, "evidence": "postmortem",
	})
	req := httptest.NewRequest("POST", "/api/relate", strings.NewReader(string(body)))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("relate status = %d, want 201: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest("GET", "/api/memories/"+a+"/related", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("related status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), b) {
		t.Errorf("related response missing target id: %s", w.Body.String())
	}
}

func TestRelateRejectsUnknownType(t *testing.T) {
	srv, mem, _ := testServer(t)

	a, _ := mem.Create("a", memory.ScopeProject, "p1", nil, 0.5, "s1")
	b, _ := mem.Create("b", memory.ScopeProject, "p1", nil, 0.5, "s1")

	body, _ := json.Marshal(map[string]any{"from_id": a, "to_id": b, "type": "bogus"})
	req := httptest.NewRequest("POST", "/api/relate", strings.NewReader(string(body)))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestSharedWithRoute(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest("GET", "/api/sharing/p2", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
}
