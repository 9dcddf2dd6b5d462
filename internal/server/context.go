package server

import (
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/localmem/memsys/internal/memory"
)

func (s *Server) handleGetContext(w http.ResponseWriter, r *http.Request) {
	ctx := s.buildContext(r.URL.Query().Get("session_id"))
	writeJSON(w, http.StatusOK, map[string]string{"context": ctx})
}

// maxContextItems caps how many memories get injected into a fresh
// session, the same wall-of-text guard the teacher's context builder used.
const maxContextItems = 15

// buildContext assembles the markdown injected by the SessionStart hook:
// the current project's highest-importance memories (falling back to
// global-scope ones), plus a short list of other recent sessions.
func (s *Server) buildContext(currentSessionID string) string {
	var b strings.Builder
	b.WriteString("<context>\n## memsys — Session Memory\n")

	project := s.projectForSession(currentSessionID)

	metas, err := s.mem.List(memory.Filters{Project: project})
	if err != nil {
		metas = nil
	}
	if project != "" {
		global, err := s.mem.List(memory.Filters{Scope: memory.ScopeGlobal})
		if err == nil {
			metas = append(metas, global...)
		}
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].Importance > metas[j].Importance
	})
	if len(metas) > maxContextItems {
		metas = metas[:maxContextItems]
	}

	if len(metas) > 0 {
		b.WriteString("\n### Relevant Memories\n")
		for _, m := range metas {
			rec, err := s.mem.Read(m.ID)
			if err != nil {
				continue
			}
			b.WriteString(fmt.Sprintf("- [%.2f] %s\n", m.Importance, oneLine(rec.Content, 200)))
		}
	}

	sessions, err := s.db.GetRecentSessions(5)
	if err == nil && len(sessions) > 0 {
		b.WriteString("\n### Recent Sessions\n")
		for _, sess := range sessions {
			if sess.SessionID == currentSessionID {
				continue
			}
			ts := time.UnixMilli(sess.StartedAt).Format("2006-01-02 15:04")
			proj := sess.Project
			if proj == "" {
				proj = "unknown"
			} else {
				proj = filepath.Base(proj)
			}
			b.WriteString(fmt.Sprintf("- [%s] %s: %s\n", ts, proj, sess.Status))
		}
	}

	b.WriteString("</context>")
	return b.String()
}

// projectForSession resolves the project for an already-started session
// without creating one — context is typically requested by SessionStart,
// before the session has a project on record from UserPromptSubmit.
func (s *Server) projectForSession(sessionID string) string {
	if sessionID == "" {
		return ""
	}
	sessions, err := s.db.GetRecentSessions(50)
	if err != nil {
		return ""
	}
	for _, sess := range sessions {
		if sess.SessionID == sessionID {
			return sess.Project
		}
	}
	return ""
}

func oneLine(content string, maxLen int) string {
	content = strings.Join(strings.Fields(content), " ")
	if len(content) <= maxLen {
		return content
	}
	return content[:maxLen] + "..."
}
