package game

import "context"

// SessionRepository defines what the engine needs from session storage.
// Writes never retry internally; a lost compare-and-set surfaces as
// ErrVersionConflict and the decision to retry belongs to the caller.
type SessionRepository interface {
	// CreateSession persists a brand-new session.
	CreateSession(ctx context.Context, session *GameSession) error
	// GetSession returns the session for the id, or ErrSessionNotFound.
	GetSession(ctx context.Context, sessionID string) (*GameSession, error)
	// UpdateSession writes session if and only if the stored version still
	// equals expectedVersion, bumping session.Version on success. A stale
	// expectation yields ErrVersionConflict.
	UpdateSession(ctx context.Context, session *GameSession, expectedVersion int64) error
}
