// ABOUTME: Tests for the read-only history API.
// ABOUTME: Covers session listings, turn history limits, and not-found handling.

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minuet-ai/agentwire/internal/protocol"
	"github.com/minuet-ai/agentwire/internal/store"
)

func newAPIServer(t *testing.T) (*testHarness, *httptest.Server) {
	t.Helper()
	h := newHarness(t)
	mux := http.NewServeMux()
	h.gateway.RegisterAPI(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return h, srv
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestAPI_ListSessionsNewestFirst(t *testing.T) {
	h, srv := newAPIServer(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		require.NoError(t, h.store.CreateSession(context.Background(), &store.Session{
			ID:             uuid.New().String(),
			Title:          fmt.Sprintf("conversation %d", i),
			OrganizationID: "org-1",
			UserID:         "user-1",
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}))
	}

	var sessions []protocol.SessionInfo
	status := getJSON(t, srv.URL+"/sessions?org=org-1&user=user-1", &sessions)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, sessions, 3)
	assert.Equal(t, "conversation 2", sessions[0].Title)
	assert.Equal(t, "conversation 0", sessions[2].Title)
}

func TestAPI_ListSessionsRequiresOwner(t *testing.T) {
	_, srv := newAPIServer(t)

	resp, err := http.Get(srv.URL + "/sessions?org=org-1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_TurnHistoryWithLimit(t *testing.T) {
	h, srv := newAPIServer(t)

	sess := &store.Session{
		ID:        uuid.New().String(),
		Title:     "history",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, h.store.CreateSession(context.Background(), sess))
	for i := 0; i < 5; i++ {
		role := store.RoleUser
		if i%2 == 1 {
			role = store.RoleAgent
		}
		require.NoError(t, h.store.AppendTurn(context.Background(), &store.Turn{
			SessionID: sess.ID,
			Role:      role,
			Content:   fmt.Sprintf("turn %d", i),
			CreatedAt: time.Now().UTC(),
		}))
	}

	var all []turnView
	status := getJSON(t, srv.URL+"/sessions/"+sess.ID+"/turns", &all)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, all, 5)
	assert.Equal(t, "turn 0", all[0].Content)

	var tail []turnView
	status = getJSON(t, srv.URL+"/sessions/"+sess.ID+"/turns?limit=2", &tail)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, tail, 2)
	assert.Equal(t, "turn 3", tail[0].Content)
	assert.Equal(t, "turn 4", tail[1].Content)
}

func TestAPI_TurnsForUnknownSession(t *testing.T) {
	_, srv := newAPIServer(t)

	resp, err := http.Get(srv.URL + "/sessions/" + uuid.New().String() + "/turns")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
