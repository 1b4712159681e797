package httpapi

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/findtheai/find-the-ai-backend/internal/game"
	"github.com/findtheai/find-the-ai-backend/internal/session"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	state := game.NewState(rand.New(rand.NewSource(1)), time.Now())
	s := session.New(ctx, state, zap.NewNop())
	return SetupRoutes(s, zap.NewNop())
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestResetReturnsNoContent(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reset", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// The session is back to an empty waiting state.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessionz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Phase string `json:"phase"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(game.PhaseWaiting), body.Phase)
}

func TestSessionViewReportsPhaseAndClients(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessionz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Clients  int    `json:"clients"`
		Phase    string `json:"phase"`
		Snapshot struct {
			GameInProgress bool `json:"gameInProgress"`
		} `json:"snapshot"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 0, body.Clients)
	assert.Equal(t, string(game.PhaseWaiting), body.Phase)
	assert.False(t, body.Snapshot.GameInProgress)
}
