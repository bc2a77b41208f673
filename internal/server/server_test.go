package server

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memohub/memo-gateway/internal/config"
	"github.com/memohub/memo-gateway/internal/conversation"
	"github.com/memohub/memo-gateway/internal/logging"
	"github.com/memohub/memo-gateway/internal/state"
)

func newTestServer() (*Server, *state.Store) {
	store := state.NewStore(0)
	s := New(&config.ServerConfig{Host: "127.0.0.1", Port: 0}, store, logging.WithComponent("server-test"))
	return s, store
}

func TestAlive(t *testing.T) {
	s, _ := newTestServer()
	rec := httptest.NewRecorder()
	s.aliveHandler(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "I'm alive! Bot is running.", rec.Body.String())
}

func TestAliveUnknownPath(t *testing.T) {
	s, _ := newTestServer()
	rec := httptest.NewRecorder()
	s.aliveHandler(rec, httptest.NewRequest("GET", "/nope", nil))
	assert.Equal(t, 404, rec.Code)
}

func TestHealth(t *testing.T) {
	s, store := newTestServer()
	store.Append("user_1_default", conversation.ModelTurn("x"))

	rec := httptest.NewRecorder()
	s.healthHandler(rec, httptest.NewRequest("GET", "/health", nil))
	require.Equal(t, 200, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 1, resp.Histories)
}

func TestHealthRejectsPost(t *testing.T) {
	s, _ := newTestServer()
	rec := httptest.NewRecorder()
	s.healthHandler(rec, httptest.NewRequest("POST", "/health", nil))
	assert.Equal(t, 405, rec.Code)
}
