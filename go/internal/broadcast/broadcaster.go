package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/fivebomber/backend/go/internal/connection"
)

// Sender is the transport primitive for delivering one payload to one
// connection. The bool result separates a delivered payload (true, nil)
// from the expected recipient-gone outcome (false, nil); a non-nil error
// means the channel itself is broken.
type Sender interface {
	Send(ctx context.Context, connectionID string, data []byte) (bool, error)
}

// Broadcaster fans a message out to every live connection in a room and
// reclaims connections whose transport session no longer exists.
type Broadcaster struct {
	store  connection.Store
	sender Sender
}

func New(store connection.Store, sender Sender) *Broadcaster {
	return &Broadcaster{store: store, sender: sender}
}

// BroadcastToRoom delivers message to all connections registered for the
// room. An empty room is a no-op. A recipient-gone outcome removes that
// connection from the store and never aborts delivery to the rest; any
// other send error aborts the broadcast and propagates.
func (b *Broadcaster) BroadcastToRoom(ctx context.Context, roomID string, message any) error {
	conns, err := b.store.ListByRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to list room connections: %w", err)
	}
	if len(conns) == 0 {
		log.Debug().Str("room_id", roomID).Msg("no connections in room, skipping broadcast")
		return nil
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast message: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, conn := range conns {
		g.Go(func() error {
			delivered, err := b.sender.Send(gctx, conn.ConnectionID, data)
			if err != nil {
				return fmt.Errorf("failed to send to connection %s: %w", conn.ConnectionID, err)
			}
			if !delivered {
				log.Warn().
					Str("connection_id", conn.ConnectionID).
					Str("room_id", roomID).
					Msg("recipient gone, removing stale connection")
				if err := b.store.Remove(gctx, conn.ConnectionID); err != nil {
					return fmt.Errorf("failed to remove stale connection %s: %w", conn.ConnectionID, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	log.Debug().
		Str("room_id", roomID).
		Int("connections", len(conns)).
		Msg("broadcast completed")
	return nil
}
