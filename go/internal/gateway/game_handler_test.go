package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivebomber/backend/go/internal/broadcast"
	"github.com/fivebomber/backend/go/internal/game"
)

func newGameHandlerFixture(t *testing.T) (*GameHandler, *routerFixture) {
	t.Helper()
	f := newRouterFixture(t)
	return NewGameHandler(f.engine, f.scheduler, broadcast.New(f.store, f.sender)), f
}

func TestHandleStartGame(t *testing.T) {
	h, f := newGameHandlerFixture(t)
	f.connect(t, "c1", "room-1")

	body := `{"roomId":"room-1","questionId":"q1","teamName":"team-alpha"}`
	req := httptest.NewRequest(http.MethodPost, "/api/games", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.HandleStartGame(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp game.StartGameResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Session.SessionID)
	assert.Equal(t, "room-1", resp.Session.RoomID)
	assert.Equal(t, game.StatusPlaying, resp.Session.Status)
	assert.Equal(t, "q1", resp.Question.QuestionID)

	// The room got a questionStart frame.
	frames := f.sender.framesFor("c1")
	require.Len(t, frames, 1)
	var env Envelope
	require.NoError(t, json.Unmarshal(frames[0], &env))
	assert.Equal(t, TypeQuestionStart, env.Type)
	assert.NotContains(t, string(env.Payload), "東京")
}

func TestHandleStartGameValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "malformed body", body: `{oops`, want: http.StatusBadRequest},
		{name: "missing room", body: `{"questionId":"q1"}`, want: http.StatusBadRequest},
		{name: "missing question", body: `{"roomId":"room-1"}`, want: http.StatusBadRequest},
		{name: "unknown question", body: `{"roomId":"room-1","questionId":"zzz"}`, want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newGameHandlerFixture(t)
			req := httptest.NewRequest(http.MethodPost, "/api/games", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			h.HandleStartGame(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestHandleGetSession(t *testing.T) {
	h, f := newGameHandlerFixture(t)
	resp := f.startGame(t, "room-1")

	req := httptest.NewRequest(http.MethodGet, "/api/games/"+resp.Session.SessionID, nil)
	rec := httptest.NewRecorder()

	h.HandleGetSession(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var session game.GameSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, resp.Session.SessionID, session.SessionID)
}

func TestHandleGetSessionNotFound(t *testing.T) {
	h, _ := newGameHandlerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/games/nope", nil)
	rec := httptest.NewRecorder()

	h.HandleGetSession(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebSocketHandlerRequiresQueryParams(t *testing.T) {
	f := newRouterFixture(t)
	cm := NewConnectionManager(DefaultConnectionConfig(), f.store, f.clock)
	h := NewWebSocketHandler(cm)

	tests := []struct {
		name   string
		target string
	}{
		{name: "missing playerId", target: "/ws/game?roomId=room-1"},
		{name: "missing roomId", target: "/ws/game?playerId=p1"},
		{name: "missing both", target: "/ws/game"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			rec := httptest.NewRecorder()

			h.HandleGameConnection(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)

			// No record was persisted for the rejected request.
			conns, err := f.store.ListByRoom(context.Background(), "room-1")
			require.NoError(t, err)
			assert.Empty(t, conns)
		})
	}
}
