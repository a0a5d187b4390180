package game

import "errors"

var (
	// ErrSessionNotFound is returned when no session exists for the id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrVersionConflict is returned when a compare-and-set write loses to
	// a concurrent update of the same session.
	ErrVersionConflict = errors.New("session version conflict")
)
