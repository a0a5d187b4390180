package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/fivebomber/backend/go/internal/broadcast"
	"github.com/fivebomber/backend/go/internal/events"
	"github.com/fivebomber/backend/go/internal/game"
	"github.com/fivebomber/backend/go/internal/question"
)

// Router parses inbound envelopes, dispatches to the game engine, and
// translates engine results into outbound envelopes. The returned envelope
// is the direct reply to the submitting connection; room-wide effects go
// through the broadcaster and the event bus.
type Router struct {
	engine      *game.App
	broadcaster *broadcast.Broadcaster
	scheduler   *game.TimeoutScheduler
	publisher   events.Publisher
	clock       clockwork.Clock
}

func NewRouter(
	engine *game.App,
	broadcaster *broadcast.Broadcaster,
	scheduler *game.TimeoutScheduler,
	publisher events.Publisher,
	clock clockwork.Clock,
) *Router {
	return &Router{
		engine:      engine,
		broadcaster: broadcaster,
		scheduler:   scheduler,
		publisher:   publisher,
		clock:       clock,
	}
}

// HandleMessage processes one inbound frame and returns the direct reply.
// Failures never escape as panics or raw errors; they come back as
// structured error envelopes.
func (r *Router) HandleMessage(ctx context.Context, connectionID string, raw []byte) Envelope {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Warn().
			Err(err).
			Str("connection_id", connectionID).
			Msg("malformed inbound message")
		return errorEnvelope(CodeParseError, "invalid JSON format")
	}

	switch env.Type {
	case TypeSubmitAnswer:
		return r.handleSubmitAnswer(ctx, env.Payload)
	case TypeSyncGameState:
		return r.handleSyncGameState(ctx, env.Payload)
	default:
		return errorEnvelope(CodeUnknownType, fmt.Sprintf("unknown message type: %s", env.Type))
	}
}

func (r *Router) handleSubmitAnswer(ctx context.Context, payload json.RawMessage) Envelope {
	var p SubmitAnswerPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return errorEnvelope(CodeParseError, "invalid submitAnswer payload")
	}
	if p.SessionID == "" || p.PlayerID == "" || p.Answer == nil {
		return errorEnvelope(CodeValidationError, "submitAnswer requires sessionId, playerId and answer")
	}

	result, err := r.engine.SubmitAnswer(ctx, p.SessionID, p.PlayerID, *p.Answer)
	if err != nil {
		return r.errorFor(err)
	}

	if result.GameCompleted {
		r.finishGame(ctx, p.SessionID)
	}

	return newEnvelope(TypeAnswerResult, AnswerResultPayload{
		Correct:  result.Correct,
		Score:    result.Score,
		NextTurn: result.NextTurn,
	})
}

func (r *Router) handleSyncGameState(ctx context.Context, payload json.RawMessage) Envelope {
	var p SyncGameStatePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return errorEnvelope(CodeParseError, "invalid syncGameState payload")
	}
	if p.SessionID == "" {
		return errorEnvelope(CodeValidationError, "syncGameState requires sessionId")
	}

	state, err := r.engine.State(ctx, p.SessionID)
	if err != nil {
		return r.errorFor(err)
	}
	return newEnvelope(TypeQuestionStart, state.Question)
}

// finishGame runs the room-wide completion effects: disarm the round timer,
// announce gameOver, and hand the result to the event bus for the
// leaderboard pipeline.
func (r *Router) finishGame(ctx context.Context, sessionID string) {
	r.scheduler.Cancel(sessionID)

	result, session, err := r.engine.Result(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to compute game result")
		return
	}

	if err := r.broadcaster.BroadcastToRoom(ctx, session.RoomID, newEnvelope(TypeGameOver, GameOverPayload{
		Success:    result.Success,
		TotalScore: result.TotalScore,
		TimeBonus:  result.TimeBonus,
	})); err != nil {
		log.Error().Err(err).Str("room_id", session.RoomID).Msg("failed to broadcast game over")
	}

	r.publishCompleted(ctx, session, result)
}

// HandleTimeout is invoked by the round scheduler when a session's clock
// runs out. The transition is skipped when the game already completed; a
// session never goes out both ways.
func (r *Router) HandleTimeout(ctx context.Context, sessionID string) {
	expired, err := r.engine.Expire(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to expire session")
		return
	}
	if !expired {
		return
	}

	result, session, err := r.engine.Result(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("failed to compute timeout result")
		return
	}

	if err := r.broadcaster.BroadcastToRoom(ctx, session.RoomID, newEnvelope(TypeGameOver, GameOverPayload{
		Success:    false,
		TotalScore: result.TotalScore,
		TimeBonus:  0,
	})); err != nil {
		log.Error().Err(err).Str("room_id", session.RoomID).Msg("failed to broadcast timeout")
	}

	payload, _ := json.Marshal(events.GameTimedOutPayload{
		SessionID:  sessionID,
		RoomID:     session.RoomID,
		TimedOutAt: r.clock.Now(),
	})
	r.publish(ctx, events.GameEvent{
		ID:        uuid.New().String(),
		RoomID:    session.RoomID,
		Type:      events.EventTypeGameTimedOut,
		Timestamp: r.clock.Now(),
		Data:      payload,
	})
}

func (r *Router) publishCompleted(ctx context.Context, session *game.GameSession, result *game.GameResult) {
	payload, _ := json.Marshal(events.GameCompletedPayload{
		SessionID:   session.SessionID,
		RoomID:      session.RoomID,
		TeamName:    session.TeamName,
		TotalScore:  result.TotalScore,
		TimeBonus:   result.TimeBonus,
		CompletedAt: r.clock.Now(),
	})
	r.publish(ctx, events.GameEvent{
		ID:        uuid.New().String(),
		RoomID:    session.RoomID,
		Type:      events.EventTypeGameCompleted,
		Timestamp: r.clock.Now(),
		Data:      payload,
	})
}

// publish is best-effort: the leaderboard pipeline is eventually consistent
// and must not fail the gameplay path.
func (r *Router) publish(ctx context.Context, event events.GameEvent) {
	if err := r.publisher.Publish(ctx, event); err != nil {
		log.Error().
			Err(err).
			Str("event_type", string(event.Type)).
			Str("room_id", event.RoomID).
			Msg("failed to publish game event")
	}
}

// errorFor maps typed engine failures onto outbound error envelopes.
// Anything unrecognized becomes a generic internal error.
func (r *Router) errorFor(err error) Envelope {
	switch {
	case errors.Is(err, game.ErrSessionNotFound):
		return errorEnvelope(CodeSessionNotFound, err.Error())
	case errors.Is(err, question.ErrNotFound):
		return errorEnvelope(CodeQuestionNotFound, err.Error())
	case errors.Is(err, game.ErrVersionConflict):
		return errorEnvelope(CodeConflict, "answer raced with another submission, please retry")
	default:
		log.Error().Err(err).Msg("unexpected failure handling message")
		return errorEnvelope(CodeInternalError, "internal server error")
	}
}
