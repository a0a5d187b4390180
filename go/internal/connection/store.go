package connection

import (
	"context"
	"errors"
	"time"
)

// TTL is the lease duration stamped on every Put. Expiry is a storage-layer
// background concern: reclamation is eventual, not instantaneous, and
// callers must tolerate occasionally reading an already-expired entry.
const TTL = time.Hour

// ErrNotFound is returned by Get when no record exists for the id.
var ErrNotFound = errors.New("connection not found")

// Store is the bookkeeping layer for live connection records.
type Store interface {
	// Put upserts a connection by id, stamping a fresh expiry. Idempotent.
	Put(ctx context.Context, conn Connection) error
	// Get returns the connection for the id, or ErrNotFound.
	Get(ctx context.Context, connectionID string) (*Connection, error)
	// Remove deletes the connection. Removing an absent id is not an error.
	Remove(ctx context.Context, connectionID string) error
	// ListByRoom returns every connection registered for the room, unordered.
	ListByRoom(ctx context.Context, roomID string) ([]Connection, error)
}
