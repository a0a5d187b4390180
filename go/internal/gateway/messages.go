package gateway

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/fivebomber/backend/go/internal/ranking"
)

// Inbound message types. The set is closed: anything else is answered with
// a structured unknown-type error instead of being silently dropped.
const (
	TypeSubmitAnswer  = "submitAnswer"
	TypeSyncGameState = "syncGameState"
)

// Outbound message types.
const (
	TypeQuestionStart = "questionStart"
	TypeAnswerResult  = "answerResult"
	TypeRankingUpdate = "rankingUpdate"
	TypeGameOver      = "gameOver"
	TypeError         = "error"
)

// Error codes attached to outbound error envelopes.
const (
	CodeParseError       = "PARSE_ERROR"
	CodeValidationError  = "VALIDATION_ERROR"
	CodeUnknownType      = "UNKNOWN_TYPE"
	CodeSessionNotFound  = "SESSION_NOT_FOUND"
	CodeQuestionNotFound = "QUESTION_NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeInternalError    = "INTERNAL_ERROR"
)

// Envelope is the wire frame for every message in either direction.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SubmitAnswerPayload is the inbound submitAnswer payload. Answer is a
// pointer so an absent key can be told apart from an explicit empty string:
// the former is a validation error, the latter a (wrong) attempt.
type SubmitAnswerPayload struct {
	SessionID string  `json:"sessionId"`
	PlayerID  string  `json:"playerId"`
	Answer    *string `json:"answer"`
}

// SyncGameStatePayload is the inbound syncGameState payload.
type SyncGameStatePayload struct {
	SessionID string `json:"sessionId"`
}

// AnswerResultPayload is the direct reply to a submitted answer.
type AnswerResultPayload struct {
	Correct  bool `json:"correct"`
	Score    int  `json:"score,omitempty"`
	NextTurn int  `json:"nextTurn"`
}

// RankingUpdatePayload carries the current leaderboard to a room.
type RankingUpdatePayload struct {
	Rankings []ranking.Entry `json:"rankings"`
}

// GameOverPayload announces the end of a round to a room.
type GameOverPayload struct {
	Success    bool `json:"success"`
	TotalScore int  `json:"totalScore"`
	TimeBonus  int  `json:"timeBonus"`
}

// ErrorPayload is the structured failure envelope. Raw errors never cross
// the protocol boundary.
type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func newEnvelope(msgType string, payload any) Envelope {
	data, err := json.Marshal(payload)
	if err != nil {
		// Payload types are our own structs; this only fires on a bug.
		log.Error().Err(err).Str("type", msgType).Msg("failed to marshal outbound payload")
		return errorEnvelope(CodeInternalError, "internal server error")
	}
	return Envelope{Type: msgType, Payload: data}
}

func errorEnvelope(code, message string) Envelope {
	data, _ := json.Marshal(ErrorPayload{Message: message, Code: code})
	return Envelope{Type: TypeError, Payload: data}
}
