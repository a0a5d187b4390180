package connection_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivebomber/backend/go/internal/connection"
)

func newConn(id, playerID, roomID string, at time.Time) connection.Connection {
	return connection.Connection{
		ConnectionID: id,
		PlayerID:     playerID,
		RoomID:       roomID,
		ConnectedAt:  at,
	}
}

func TestMemoryStoreCRUD(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := connection.NewMemoryStore(clock)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, newConn("c1", "p1", "room-a", clock.Now())))
	require.NoError(t, store.Put(ctx, newConn("c2", "p2", "room-a", clock.Now())))
	require.NoError(t, store.Put(ctx, newConn("c3", "p3", "room-b", clock.Now())))

	got, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.PlayerID)
	assert.Equal(t, "room-a", got.RoomID)
	assert.Equal(t, clock.Now().Add(connection.TTL), got.ExpiresAt)

	conns, err := store.ListByRoom(ctx, "room-a")
	require.NoError(t, err)
	assert.Len(t, conns, 2)

	conns, err = store.ListByRoom(ctx, "room-b")
	require.NoError(t, err)
	assert.Len(t, conns, 1)

	require.NoError(t, store.Remove(ctx, "c2"))
	conns, err = store.ListByRoom(ctx, "room-a")
	require.NoError(t, err)
	assert.Len(t, conns, 1)

	_, err = store.Get(ctx, "c2")
	assert.ErrorIs(t, err, connection.ErrNotFound)

	// Removing an absent id is not an error.
	assert.NoError(t, store.Remove(ctx, "c2"))
	assert.NoError(t, store.Remove(ctx, "never-existed"))
}

func TestMemoryStorePutIsUpsert(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := connection.NewMemoryStore(clock)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, newConn("c1", "p1", "room-a", clock.Now())))
	first, err := store.Get(ctx, "c1")
	require.NoError(t, err)

	// A second Put for the same id refreshes the lease.
	clock.Advance(30 * time.Minute)
	require.NoError(t, store.Put(ctx, newConn("c1", "p1", "room-a", clock.Now())))

	second, err := store.Get(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, second.ExpiresAt.After(first.ExpiresAt))

	conns, err := store.ListByRoom(ctx, "room-a")
	require.NoError(t, err)
	assert.Len(t, conns, 1)
}

func TestMemoryStoreLazyExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := connection.NewMemoryStore(clock)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, newConn("c1", "p1", "room-a", clock.Now())))

	clock.Advance(connection.TTL + time.Second)

	_, err := store.Get(ctx, "c1")
	assert.ErrorIs(t, err, connection.ErrNotFound)

	conns, err := store.ListByRoom(ctx, "room-a")
	require.NoError(t, err)
	assert.Empty(t, conns)
}

func TestMemoryStoreReaper(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := connection.NewMemoryStore(clock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, store.Put(ctx, newConn("c1", "p1", "room-a", clock.Now())))

	store.StartReaper(ctx, time.Minute)
	// Wait for the reaper to arm its ticker before moving the clock.
	clock.BlockUntil(1)

	clock.Advance(connection.TTL + time.Minute)

	// The sweep runs on the reaper goroutine; poll through the public API
	// until it lands.
	assert.Eventually(t, func() bool {
		conns, err := store.ListByRoom(ctx, "room-a")
		return err == nil && len(conns) == 0
	}, time.Second, 5*time.Millisecond)
}
