package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fivebomber/backend/go/internal/broadcast"
	"github.com/fivebomber/backend/go/internal/game"
	"github.com/fivebomber/backend/go/internal/question"
)

// StartGameRequest is the body of POST /api/games.
type StartGameRequest struct {
	RoomID     string `json:"roomId"`
	QuestionID string `json:"questionId"`
	TeamName   string `json:"teamName,omitempty"`
}

// GameHandler exposes the HTTP surface for starting games and reading
// session state.
type GameHandler struct {
	engine      *game.App
	scheduler   *game.TimeoutScheduler
	broadcaster *broadcast.Broadcaster
}

// NewGameHandler creates a new game HTTP handler.
func NewGameHandler(engine *game.App, scheduler *game.TimeoutScheduler, broadcaster *broadcast.Broadcaster) *GameHandler {
	return &GameHandler{
		engine:      engine,
		scheduler:   scheduler,
		broadcaster: broadcaster,
	}
}

// HandleStartGame handles POST /api/games. It creates a playing session,
// arms the round timer and announces questionStart to the whole room.
func (h *GameHandler) HandleStartGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req StartGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.RoomID == "" || req.QuestionID == "" {
		http.Error(w, "roomId and questionId are required", http.StatusBadRequest)
		return
	}

	resp, err := h.engine.Start(r.Context(), req.RoomID, req.QuestionID, req.TeamName)
	if err != nil {
		if errors.Is(err, question.ErrNotFound) {
			http.Error(w, "question not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("room_id", req.RoomID).Msg("failed to start game")
		http.Error(w, "failed to start game", http.StatusInternalServerError)
		return
	}

	h.scheduler.Schedule(resp.Session.SessionID)

	if err := h.broadcaster.BroadcastToRoom(r.Context(), req.RoomID, newEnvelope(TypeQuestionStart, resp.Question)); err != nil {
		log.Error().Err(err).Str("room_id", req.RoomID).Msg("failed to broadcast question start")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("failed to encode start game response")
	}
}

// HandleGetSession handles GET /api/games/{id}.
func (h *GameHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := strings.TrimPrefix(r.URL.Path, "/api/games/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		http.Error(w, "session ID is required", http.StatusBadRequest)
		return
	}

	session, err := h.engine.Session(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, game.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to get session")
		http.Error(w, "failed to get session", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(session); err != nil {
		log.Error().Err(err).Msg("failed to encode session response")
	}
}

// RegisterRoutes registers game HTTP routes with an HTTP mux.
func (h *GameHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/games", h.HandleStartGame)
	mux.HandleFunc("/api/games/", h.HandleGetSession)
}
