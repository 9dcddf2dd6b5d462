package hooks

import "encoding/json"

// handleEnd fires when a session ends. It must return fast: the
// server's /end route only enqueues {session_id, project,
// transcript_path} onto the durable ingestion queue and returns —
// the consolidator runs later, off the background consumer loop.
func handleEnd(client *Client, input *HookInput) {
	body, err := json.Marshal(map[string]string{
		"session_id":      input.SessionID,
		"project":         input.CWD,
		"transcript_path": input.TranscriptPath,
	})
	if err != nil {
		ExitError(err)
		return
	}
	if _, err := client.Post("/api/sessions/"+input.SessionID+"/end", body); err != nil {
		ExitError(err)
		return
	}
}
