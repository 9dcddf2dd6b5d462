package hooks

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

// captureStdout replaces os.Stdout with a pipe, runs fn, then returns what was written.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func TestHandleStartWithServer(t *testing.T) {
	// Mock server that returns context
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/health":
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		case r.URL.Path == "/api/context":
			json.NewEncoder(w).Encode(map[string]string{
				"context": "<context>\n## memsys — Session Memory\n</context>",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	// Client with the test server's transport; requests below use ts.URL
	client := &Client{http: ts.Client()}

	input := &HookInput{
		SessionID:     "test-001",
		HookEventName: "SessionStart",
	}

	output := captureStdout(t, func() {
		// Replay handleStart's steps: fetch the context, then write the SessionStart output
		data, err := client.http.Get(ts.URL + "/api/context?session_id=test-001")
		if err != nil {
			t.Fatalf("get context: %v", err)
		}
		defer data.Body.Close()

		var resp struct {
			Context string `json:"context"`
		}
		json.NewDecoder(data.Body).Decode(&resp)

		_ = input // verify input was constructed correctly
		WriteSessionStartOutput(resp.Context)
	})

	if !strings.Contains(output, "hookSpecificOutput") {
		t.Errorf("output missing hookSpecificOutput: %s", output)
	}
	if !strings.Contains(output, "SessionStart") {
		t.Errorf("output missing SessionStart: %s", output)
	}
	if !strings.Contains(output, "memsys") {
		t.Errorf("output missing memsys context: %s", output)
	}

	// Verify it's valid JSON
	var parsed SessionStartOutput
	if err := json.Unmarshal([]byte(output), &parsed); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if parsed.HookSpecificOutput.HookEventName != "SessionStart" {
		t.Errorf("hookEventName = %q, want SessionStart", parsed.HookSpecificOutput.HookEventName)
	}
}

func TestHandleStartEmptyOnServerDown(t *testing.T) {
	// Point at unreachable port so Healthy() returns false
	t.Setenv("MEMSYS_URL", "http://127.0.0.1:1")
	// No server running — should output empty context
	input := `{"session_id":"test-001","hook_event_name":"SessionStart"}`

	output := captureStdout(t, func() {
		// Override Handle to not call os.Exit
		var hookInput HookInput
		json.NewDecoder(strings.NewReader(input)).Decode(&hookInput)

		client := NewClient()
		// Client points at MEMSYS_URL (127.0.0.1:1), where no server is running
		// Healthy() will return false, so handleStart won't be called
		if !client.Healthy() {
			WriteSessionStartOutput("")
			return
		}
	})

	var parsed SessionStartOutput
	if err := json.Unmarshal([]byte(output), &parsed); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if parsed.HookSpecificOutput.AdditionalContext != "" {
		t.Errorf("expected empty context, got %q", parsed.HookSpecificOutput.AdditionalContext)
	}
}

func TestHookInputParsing(t *testing.T) {
	raw := `{
		"session_id": "abc123",
		"transcript_path": "/path/to/transcript.jsonl",
		"cwd": "/working/dir",
		"hook_event_name": "SessionEnd",
		"reason": "exit"
	}`

	var input HookInput
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if input.SessionID != "abc123" {
		t.Errorf("SessionID = %q, want abc123", input.SessionID)
	}
	if input.TranscriptPath != "/path/to/transcript.jsonl" {
		t.Errorf("TranscriptPath = %q", input.TranscriptPath)
	}
	if input.Reason != "exit" {
		t.Errorf("Reason = %q, want exit", input.Reason)
	}
}

func TestSessionStartOutputFormat(t *testing.T) {
	output := captureStdout(t, func() {
		WriteSessionStartOutput("test context")
	})

	var parsed map[string]any
	if err := json.Unmarshal([]byte(output), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	hookOutput, ok := parsed["hookSpecificOutput"].(map[string]any)
	if !ok {
		t.Fatal("missing hookSpecificOutput")
	}
	if hookOutput["hookEventName"] != "SessionStart" {
		t.Errorf("hookEventName = %v", hookOutput["hookEventName"])
	}
	if hookOutput["additionalContext"] != "test context" {
		t.Errorf("additionalContext = %v", hookOutput["additionalContext"])
	}
}

func TestClientHealthyFalseWhenDown(t *testing.T) {
	t.Setenv("MEMSYS_URL", "http://127.0.0.1:1")
	client := NewClient()
	if client.Healthy() {
		t.Error("expected Healthy() = false when server is not running")
	}
}

func TestIsInternalPrompt(t *testing.T) {
	tests := []struct {
		prompt string
		want   bool
	}{
		// Internal extraction prompts should be detected
		{"[memsys-internal] You are a memory extraction system.", true},
		{"[memsys-internal] The user has explicitly flagged something.", true},
		// Normal user messages should not match
		{"remember this: always use WAL mode", false},
		{"help me fix this bug", false},
		{"", false},
		// Sentinel buried in the middle should not match (must be prefix)
		{"some preamble [memsys-internal] then extraction", false},
	}

	for _, tt := range tests {
		got := isInternalPrompt(tt.prompt)
		if got != tt.want {
			t.Errorf("isInternalPrompt(%q) = %v, want %v", tt.prompt[:min(len(tt.prompt), 40)], got, tt.want)
		}
	}
}

func TestInternalPromptGuardPrecedesHasSignal(t *testing.T) {
	// An internal extraction prompt can contain signal keywords. hasSignal
	// itself doesn't check the sentinel — that's handleSubmit's job, so the
	// isInternalPrompt guard must run before hasSignal is called.
	internal := "[memsys-internal] The user has explicitly flagged something to remember this."
	if !hasSignal(internal) {
		t.Error("expected hasSignal to match the \"remember this\" in the internal prompt")
	}
	if !isInternalPrompt(internal) {
		t.Error("expected isInternalPrompt to recognize the sentinel prefix")
	}
}

func TestHasSignal(t *testing.T) {
	tests := []struct {
		prompt string
		want   bool
	}{
		{"remember this: always use WAL mode", true},
		{"I said don't forget about the config", true},
		{"always use devbox for development", true},
		{"never use CGO in this project", true},
		{"always do a review before merging", true},
		{"never do force pushes to main", true},
		{"this is an architecture decision", true},
		{"we decided to use Go", true},
		{"this pattern works well for concurrent access", true},
		{"the trick is to use buffered channels", true},
		{"the bug was in the connection pool", true},
		{"the root cause was a race condition", true},
		{"the fix was to add a mutex", true},
		{"REMEMBER THIS: use WAL mode", true}, // case insensitive
		{"just a normal prompt with no signals", false},
		{"help me fix this bug", false},
		{"what is the status of the project", false},
		{"", false},
	}

	for _, tt := range tests {
		got := hasSignal(tt.prompt)
		if got != tt.want {
			t.Errorf("hasSignal(%q) = %v, want %v", tt.prompt, got, tt.want)
		}
	}
}

func TestHandleSubmitSignalDetection(t *testing.T) {
	var signalReceived bool

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/health":
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		case r.URL.Path == "/api/sessions/init":
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		case strings.Contains(r.URL.Path, "/signal"):
			signalReceived = true
			var req map[string]string
			json.NewDecoder(r.Body).Decode(&req)
			if req["prompt"] == "" {
				t.Error("signal request missing prompt")
			}
			w.WriteHeader(http.StatusAccepted)
			json.NewEncoder(w).Encode(map[string]string{"status": "processing"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	// Client with the test server's transport but no serverURL
	client := &Client{http: ts.Client()}

	// handleSubmit is not invoked here; this checks signal detection on the
	// prompt alone, so the test server never receives a request.
	input := &HookInput{
		SessionID: "test-001",
		CWD:       "/tmp/project",
		Prompt:    "remember this: always use WAL mode",
	}

	if !hasSignal(input.Prompt) {
		t.Error("expected signal to be detected")
	}

	_ = client
	_ = signalReceived
}

func TestClientTransportPostAndGet(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case "POST":
			body, _ := io.ReadAll(r.Body)
			w.WriteHeader(http.StatusCreated)
			w.Write(body) // echo back
		case "GET":
			json.NewEncoder(w).Encode(map[string]string{"result": "ok"})
		}
	}))
	defer ts.Close()

	// Exercises the Client's underlying http.Client against the test
	// server; Client.Post and Client.Get are not called here.
	client := &Client{http: ts.Client()}

	// Test POST — need to use the test server URL
	resp, err := client.http.Post(ts.URL+"/test", "application/json", strings.NewReader(`{"key":"value"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("POST status = %d, want 201", resp.StatusCode)
	}

	// Test GET
	resp, err = client.http.Get(ts.URL + "/test")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var result map[string]string
	json.NewDecoder(resp.Body).Decode(&result)
	if result["result"] != "ok" {
		t.Errorf("GET result = %q, want ok", result["result"])
	}
}
