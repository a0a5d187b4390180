package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/fivebomber/backend/go/internal/answer"
	"github.com/fivebomber/backend/go/internal/question"
)

// QuestionRepository defines what the engine needs from question storage.
type QuestionRepository interface {
	GetQuestionByID(ctx context.Context, id string) (*question.Question, error)
}

// App owns the per-round game state machine: round start, answer
// submission, turn advance and completion or timeout.
type App struct {
	sessions  SessionRepository
	questions QuestionRepository
	clock     clockwork.Clock
}

func NewApp(sessions SessionRepository, questions QuestionRepository, clock clockwork.Clock) *App {
	return &App{
		sessions:  sessions,
		questions: questions,
		clock:     clock,
	}
}

// Start creates a fresh playing session for roomID against questionID and
// returns it together with the player-safe projection of the question.
// Canonical answers and acceptable variations never leave the engine.
func (a *App) Start(ctx context.Context, roomID, questionID, teamName string) (*StartGameResponse, error) {
	q, err := a.questions.GetQuestionByID(ctx, questionID)
	if err != nil {
		return nil, err
	}

	session := &GameSession{
		SessionID:   uuid.New().String(),
		RoomID:      roomID,
		QuestionID:  questionID,
		TeamName:    teamName,
		StartedAt:   a.clock.Now().UnixMilli(),
		CurrentTurn: 0,
		Answers:     []AnswerRecord{},
		Status:      StatusPlaying,
		Version:     1,
	}

	if err := a.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to start game: %w", err)
	}

	log.Info().
		Str("session_id", session.SessionID).
		Str("room_id", roomID).
		Str("question_id", questionID).
		Msg("game started")

	return &StartGameResponse{
		Session:  *session,
		Question: projectQuestion(q),
	}, nil
}

// SubmitAnswer records one answer attempt. The attempt is appended to the
// session log regardless of correctness; a correct answer advances the turn
// and awards the fixed per-answer score, and the fifth cumulative correct
// answer completes the game. The write is guarded by a compare-and-set on
// the session version, so a concurrent submit for the same session loses
// with ErrVersionConflict rather than clobbering this one.
func (a *App) SubmitAnswer(ctx context.Context, sessionID, playerID, rawAnswer string) (*AnswerResult, error) {
	session, err := a.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	q, err := a.questions.GetQuestionByID(ctx, session.QuestionID)
	if err != nil {
		return nil, err
	}

	matched := answer.Match(rawAnswer, q.Answers, q.AcceptableVariations)

	expectedVersion := session.Version
	session.Answers = append(session.Answers, AnswerRecord{
		PlayerID:  playerID,
		Answer:    rawAnswer,
		IsCorrect: matched.IsCorrect,
		Timestamp: a.clock.Now().UnixMilli(),
	})

	score := 0
	completed := false
	if matched.IsCorrect {
		score = ScorePerAnswer
		session.CurrentTurn++
		if session.CorrectCount() >= RequiredAnswers {
			session.Status = StatusCompleted
			completed = true
		}
	}

	if err := a.sessions.UpdateSession(ctx, session, expectedVersion); err != nil {
		return nil, err
	}

	log.Debug().
		Str("session_id", sessionID).
		Str("player_id", playerID).
		Bool("correct", matched.IsCorrect).
		Str("matched", matched.MatchedCanonical).
		Int("next_turn", session.CurrentTurn).
		Bool("completed", completed).
		Msg("answer submitted")

	return &AnswerResult{
		Correct:       matched.IsCorrect,
		Score:         score,
		NextTurn:      session.CurrentTurn,
		GameCompleted: completed,
	}, nil
}

// State returns the current session together with the player-safe question
// projection, for clients resynchronizing after a reconnect.
func (a *App) State(ctx context.Context, sessionID string) (*StartGameResponse, error) {
	session, err := a.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	q, err := a.questions.GetQuestionByID(ctx, session.QuestionID)
	if err != nil {
		return nil, err
	}
	return &StartGameResponse{
		Session:  *session,
		Question: projectQuestion(q),
	}, nil
}

// Session returns the raw session state.
func (a *App) Session(ctx context.Context, sessionID string) (*GameSession, error) {
	return a.sessions.GetSession(ctx, sessionID)
}

// expireAttempts bounds the compare-and-set retry loop in Expire.
const expireAttempts = 3

// Expire applies the external round-clock signal. Only a session still in
// play moves to timeout; a session that already completed is never
// downgraded. Returns whether the transition happened.
//
// Unlike SubmitAnswer, a lost version race here is retried internally: the
// round clock fires once and no client resubmits a timeout, so the write
// re-reads and tries again until it lands or the session left play.
func (a *App) Expire(ctx context.Context, sessionID string) (bool, error) {
	var lastErr error
	for attempt := 0; attempt < expireAttempts; attempt++ {
		session, err := a.sessions.GetSession(ctx, sessionID)
		if err != nil {
			return false, err
		}
		if session.Status != StatusPlaying {
			return false, nil
		}

		expectedVersion := session.Version
		session.Status = StatusTimeout
		err = a.sessions.UpdateSession(ctx, session, expectedVersion)
		if err == nil {
			log.Info().Str("session_id", sessionID).Msg("session timed out")
			return true, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return false, err
		}
		lastErr = err
		log.Debug().
			Str("session_id", sessionID).
			Int("attempt", attempt+1).
			Msg("timeout write lost version race, retrying")
	}
	return false, lastErr
}

// Result computes the final outcome for a session. A completed session
// earns the per-answer score plus a bonus for the round time left on the
// clock; a timed-out session keeps its answer score with no bonus.
func (a *App) Result(ctx context.Context, sessionID string) (*GameResult, *GameSession, error) {
	session, err := a.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	correct := session.CorrectCount()
	bonus := 0
	success := session.Status == StatusCompleted
	if success {
		bonus = a.timeBonus(session)
	}

	return &GameResult{
		Success:        success,
		TotalScore:     correct*ScorePerAnswer + bonus,
		CorrectAnswers: correct,
		TimeBonus:      bonus,
	}, session, nil
}

func (a *App) timeBonus(session *GameSession) int {
	elapsed := a.clock.Now().UnixMilli() - session.StartedAt
	remaining := int(RoundTimeLimit.Seconds()) - int(elapsed/1000)
	if remaining < 0 {
		remaining = 0
	}
	return remaining * ScorePerSecond
}

func projectQuestion(q *question.Question) QuestionPayload {
	return QuestionPayload{
		QuestionID:   q.ID,
		QuestionText: q.Text,
		Category:     q.Category,
		Difficulty:   q.Difficulty,
	}
}
