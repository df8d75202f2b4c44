// ABOUTME: Read-only HTTP API for session listings and turn history.
// ABOUTME: Clients pull history here after joining; the websocket never replays.

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/minuet-ai/agentwire/internal/protocol"
	"github.com/minuet-ai/agentwire/internal/store"
)

// turnView is the JSON shape of one history entry.
type turnView struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// RegisterAPI mounts the history endpoints on mux.
func (g *Gateway) RegisterAPI(mux *http.ServeMux) {
	mux.HandleFunc("GET /sessions", g.handleListSessions)
	mux.HandleFunc("GET /sessions/{id}/turns", g.handleGetTurns)
}

func (g *Gateway) handleListSessions(w http.ResponseWriter, r *http.Request) {
	org := r.URL.Query().Get("org")
	user := r.URL.Query().Get("user")
	if org == "" || user == "" {
		http.Error(w, "org and user query parameters are required", http.StatusBadRequest)
		return
	}

	sessions, err := g.store.ListSessions(r.Context(), org, user)
	if err != nil {
		g.logger.Error("listing sessions failed", "org", org, "user", user, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]protocol.SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, protocol.SessionInfo{
			ID:        s.ID,
			Title:     s.Title,
			CreatedAt: s.CreatedAt,
		})
	}
	writeJSON(w, out)
}

func (g *Gateway) handleGetTurns(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	if _, err := g.store.GetSession(r.Context(), sessionID); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		g.logger.Error("loading session failed", "session_id", sessionID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	turns, err := g.store.GetTurns(r.Context(), sessionID, limit)
	if err != nil {
		g.logger.Error("loading turns failed", "session_id", sessionID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]turnView, 0, len(turns))
	for _, t := range turns {
		out = append(out, turnView{
			ID:        t.ID,
			SessionID: t.SessionID,
			Role:      t.Role,
			Content:   t.Content,
			CreatedAt: t.CreatedAt,
		})
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
