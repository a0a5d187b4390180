package game

import (
	"context"
	"fmt"
	"sync"
)

// MemorySessionRepository is an in-process SessionRepository with the same
// compare-and-set contract as the Redis implementation. Used by tests and
// single-node deployments.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*GameSession
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string]*GameSession)}
}

func (r *MemorySessionRepository) CreateSession(ctx context.Context, session *GameSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.SessionID] = cloneSession(session)
	return nil
}

func (r *MemorySessionRepository) GetSession(ctx context.Context, sessionID string) (*GameSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return cloneSession(session), nil
}

func (r *MemorySessionRepository) UpdateSession(ctx context.Context, session *GameSession, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.sessions[session.SessionID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, session.SessionID)
	}
	if stored.Version != expectedVersion {
		return fmt.Errorf("%w: expected version %d, found %d",
			ErrVersionConflict, expectedVersion, stored.Version)
	}

	session.Version = expectedVersion + 1
	r.sessions[session.SessionID] = cloneSession(session)
	return nil
}

// cloneSession copies the session and its answer log so callers never alias
// stored state.
func cloneSession(session *GameSession) *GameSession {
	clone := *session
	clone.Answers = make([]AnswerRecord, len(session.Answers))
	copy(clone.Answers, session.Answers)
	return &clone
}
