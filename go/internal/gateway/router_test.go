package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivebomber/backend/go/internal/broadcast"
	"github.com/fivebomber/backend/go/internal/connection"
	"github.com/fivebomber/backend/go/internal/events"
	"github.com/fivebomber/backend/go/internal/game"
	"github.com/fivebomber/backend/go/internal/question"
)

type fakeQuestionRepo struct {
	questions map[string]*question.Question
}

func (f *fakeQuestionRepo) GetQuestionByID(ctx context.Context, id string) (*question.Question, error) {
	q, ok := f.questions[id]
	if !ok {
		return nil, fmt.Errorf("question %s: %w", id, question.ErrNotFound)
	}
	return q, nil
}

type recordingSender struct {
	mu     sync.Mutex
	frames map[string][][]byte
}

func newRecordingSender() *recordingSender {
	return &recordingSender{frames: make(map[string][][]byte)}
}

func (s *recordingSender) Send(ctx context.Context, connectionID string, data []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames[connectionID] = append(s.frames[connectionID], data)
	return true, nil
}

func (s *recordingSender) framesFor(connectionID string) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames[connectionID]
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.GameEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.GameEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) published() []events.GameEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.GameEvent(nil), p.events...)
}

type routerFixture struct {
	router    *Router
	engine    *game.App
	scheduler *game.TimeoutScheduler
	sender    *recordingSender
	publisher *recordingPublisher
	store     *connection.MemoryStore
	clock     *clockwork.FakeClock
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	clock := clockwork.NewFakeClock()
	questions := &fakeQuestionRepo{questions: map[string]*question.Question{
		"q1": {
			ID:      "q1",
			Text:    "日本の都市を5つ挙げてください",
			Answers: []string{"東京", "大阪", "京都", "名古屋", "福岡"},
			AcceptableVariations: map[string][]string{
				"東京": {"とうきょう", "tokyo"},
			},
		},
	}}

	engine := game.NewApp(game.NewMemorySessionRepository(), questions, clock)
	store := connection.NewMemoryStore(clock)
	sender := newRecordingSender()
	broadcaster := broadcast.New(store, sender)
	scheduler := game.NewTimeoutScheduler(clock, game.RoundTimeLimit)
	publisher := &recordingPublisher{}

	router := NewRouter(engine, broadcaster, scheduler, publisher, clock)
	scheduler.SetExpireFunc(func(sessionID string) {
		router.HandleTimeout(context.Background(), sessionID)
	})
	t.Cleanup(scheduler.Shutdown)

	return &routerFixture{
		router:    router,
		engine:    engine,
		scheduler: scheduler,
		sender:    sender,
		publisher: publisher,
		store:     store,
		clock:     clock,
	}
}

func (f *routerFixture) startGame(t *testing.T, roomID string) *game.StartGameResponse {
	t.Helper()
	resp, err := f.engine.Start(context.Background(), roomID, "q1", "team-alpha")
	require.NoError(t, err)
	return resp
}

func (f *routerFixture) connect(t *testing.T, connID, roomID string) {
	t.Helper()
	require.NoError(t, f.store.Put(context.Background(), connection.Connection{
		ConnectionID: connID,
		PlayerID:     "player-" + connID,
		RoomID:       roomID,
	}))
}

func submitFrame(sessionID, playerID, answer string) []byte {
	payload, _ := json.Marshal(SubmitAnswerPayload{SessionID: sessionID, PlayerID: playerID, Answer: &answer})
	frame, _ := json.Marshal(Envelope{Type: TypeSubmitAnswer, Payload: payload})
	return frame
}

func decodeError(t *testing.T, env Envelope) ErrorPayload {
	t.Helper()
	require.Equal(t, TypeError, env.Type)
	var p ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	return p
}

func TestRouterRejectsMalformedJSON(t *testing.T) {
	f := newRouterFixture(t)

	reply := f.router.HandleMessage(context.Background(), "c1", []byte("{not json"))

	p := decodeError(t, reply)
	assert.Equal(t, CodeParseError, p.Code)
}

func TestRouterRejectsUnknownType(t *testing.T) {
	f := newRouterFixture(t)

	reply := f.router.HandleMessage(context.Background(), "c1", []byte(`{"type":"startDance","payload":{}}`))

	p := decodeError(t, reply)
	assert.Equal(t, CodeUnknownType, p.Code)
	assert.Contains(t, p.Message, "startDance")
}

func TestRouterRejectsSubmitWithoutIDs(t *testing.T) {
	f := newRouterFixture(t)

	reply := f.router.HandleMessage(context.Background(), "c1", submitFrame("", "", "東京"))

	p := decodeError(t, reply)
	assert.Equal(t, CodeValidationError, p.Code)
}

func TestRouterRejectsSubmitWithoutAnswerKey(t *testing.T) {
	f := newRouterFixture(t)
	resp := f.startGame(t, "room-1")

	frame := fmt.Sprintf(`{"type":"submitAnswer","payload":{"sessionId":%q,"playerId":"p1"}}`, resp.Session.SessionID)
	reply := f.router.HandleMessage(context.Background(), "c1", []byte(frame))

	p := decodeError(t, reply)
	assert.Equal(t, CodeValidationError, p.Code)

	// The incomplete frame never reaches the attempt log.
	session, err := f.engine.Session(context.Background(), resp.Session.SessionID)
	require.NoError(t, err)
	assert.Empty(t, session.Answers)
}

func TestRouterSubmitAnswerCorrect(t *testing.T) {
	f := newRouterFixture(t)
	resp := f.startGame(t, "room-1")

	reply := f.router.HandleMessage(context.Background(), "c1", submitFrame(resp.Session.SessionID, "p1", "とうきょう"))

	require.Equal(t, TypeAnswerResult, reply.Type)
	var result AnswerResultPayload
	require.NoError(t, json.Unmarshal(reply.Payload, &result))
	assert.True(t, result.Correct)
	assert.Equal(t, game.ScorePerAnswer, result.Score)
	assert.Equal(t, 1, result.NextTurn)
}

func TestRouterSubmitAnswerIncorrect(t *testing.T) {
	f := newRouterFixture(t)
	resp := f.startGame(t, "room-1")

	reply := f.router.HandleMessage(context.Background(), "c1", submitFrame(resp.Session.SessionID, "p1", "パリ"))

	require.Equal(t, TypeAnswerResult, reply.Type)
	var result AnswerResultPayload
	require.NoError(t, json.Unmarshal(reply.Payload, &result))
	assert.False(t, result.Correct)
	assert.Zero(t, result.Score)
	assert.Zero(t, result.NextTurn)
}

func TestRouterSubmitUnknownSession(t *testing.T) {
	f := newRouterFixture(t)

	reply := f.router.HandleMessage(context.Background(), "c1", submitFrame("nope", "p1", "東京"))

	p := decodeError(t, reply)
	assert.Equal(t, CodeSessionNotFound, p.Code)
}

func TestRouterSyncGameState(t *testing.T) {
	f := newRouterFixture(t)
	resp := f.startGame(t, "room-1")

	payload, _ := json.Marshal(SyncGameStatePayload{SessionID: resp.Session.SessionID})
	frame, _ := json.Marshal(Envelope{Type: TypeSyncGameState, Payload: payload})
	reply := f.router.HandleMessage(context.Background(), "c1", frame)

	require.Equal(t, TypeQuestionStart, reply.Type)
	var q game.QuestionPayload
	require.NoError(t, json.Unmarshal(reply.Payload, &q))
	assert.Equal(t, "q1", q.QuestionID)
	assert.NotContains(t, string(reply.Payload), "東京")
}

func TestRouterCompletionBroadcastsGameOver(t *testing.T) {
	f := newRouterFixture(t)
	resp := f.startGame(t, "room-1")
	f.connect(t, "c1", "room-1")
	f.connect(t, "c2", "room-1")

	answers := []string{"東京", "大阪", "京都", "名古屋", "福岡"}
	var last Envelope
	for _, a := range answers {
		last = f.router.HandleMessage(context.Background(), "c1", submitFrame(resp.Session.SessionID, "p1", a))
		require.Equal(t, TypeAnswerResult, last.Type)
	}

	// Both room members got the gameOver frame.
	for _, connID := range []string{"c1", "c2"} {
		frames := f.sender.framesFor(connID)
		require.Len(t, frames, 1, "connection %s", connID)

		var env Envelope
		require.NoError(t, json.Unmarshal(frames[0], &env))
		require.Equal(t, TypeGameOver, env.Type)

		var over GameOverPayload
		require.NoError(t, json.Unmarshal(env.Payload, &over))
		assert.True(t, over.Success)
		assert.Equal(t, 5*game.ScorePerAnswer+over.TimeBonus, over.TotalScore)
	}

	published := f.publisher.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventTypeGameCompleted, published[0].Type)
	assert.Equal(t, "room-1", published[0].RoomID)

	var completed events.GameCompletedPayload
	require.NoError(t, json.Unmarshal(published[0].Data, &completed))
	assert.Equal(t, resp.Session.SessionID, completed.SessionID)
	assert.Equal(t, "team-alpha", completed.TeamName)
}

func TestRouterTimeoutBroadcastsFailure(t *testing.T) {
	f := newRouterFixture(t)
	resp := f.startGame(t, "room-1")
	f.connect(t, "c1", "room-1")

	f.router.HandleMessage(context.Background(), "c1", submitFrame(resp.Session.SessionID, "p1", "東京"))

	f.router.HandleTimeout(context.Background(), resp.Session.SessionID)

	// answerResult goes back directly, so the only broadcast frame is gameOver.
	frames := f.sender.framesFor("c1")
	require.Len(t, frames, 1)

	var env Envelope
	require.NoError(t, json.Unmarshal(frames[0], &env))
	require.Equal(t, TypeGameOver, env.Type)

	var over GameOverPayload
	require.NoError(t, json.Unmarshal(env.Payload, &over))
	assert.False(t, over.Success)
	assert.Equal(t, game.ScorePerAnswer, over.TotalScore)
	assert.Zero(t, over.TimeBonus)

	published := f.publisher.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventTypeGameTimedOut, published[0].Type)
}

func TestRouterTimeoutAfterCompletionIsNoop(t *testing.T) {
	f := newRouterFixture(t)
	resp := f.startGame(t, "room-1")
	f.connect(t, "c1", "room-1")

	for _, a := range []string{"東京", "大阪", "京都", "名古屋", "福岡"} {
		f.router.HandleMessage(context.Background(), "c1", submitFrame(resp.Session.SessionID, "p1", a))
	}
	require.Len(t, f.sender.framesFor("c1"), 1)

	f.router.HandleTimeout(context.Background(), resp.Session.SessionID)

	// Completed sessions never emit a second gameOver.
	assert.Len(t, f.sender.framesFor("c1"), 1)
	assert.Len(t, f.publisher.published(), 1)
}
