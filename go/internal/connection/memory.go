package connection

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// MemoryStore keeps connection records in process memory. Expiry is modeled
// as a lease: every record carries an ExpiresAt stamp, reads evict lazily,
// and an optional background reaper sweeps whatever reads never touch.
type MemoryStore struct {
	mu     sync.RWMutex
	conns  map[string]Connection
	byRoom map[string]map[string]struct{}
	clock  clockwork.Clock
}

func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	return &MemoryStore{
		conns:  make(map[string]Connection),
		byRoom: make(map[string]map[string]struct{}),
		clock:  clock,
	}
}

func (s *MemoryStore) Put(ctx context.Context, conn Connection) error {
	conn.ExpiresAt = s.clock.Now().Add(TTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.conns[conn.ConnectionID]; ok && prev.RoomID != conn.RoomID {
		s.dropFromRoomLocked(prev.RoomID, conn.ConnectionID)
	}
	s.conns[conn.ConnectionID] = conn
	if s.byRoom[conn.RoomID] == nil {
		s.byRoom[conn.RoomID] = make(map[string]struct{})
	}
	s.byRoom[conn.RoomID][conn.ConnectionID] = struct{}{}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, connectionID string) (*Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.conns[connectionID]
	if !ok {
		return nil, ErrNotFound
	}
	if s.clock.Now().After(conn.ExpiresAt) {
		s.removeLocked(connectionID)
		return nil, ErrNotFound
	}
	return &conn, nil
}

func (s *MemoryStore) Remove(ctx context.Context, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(connectionID)
	return nil
}

func (s *MemoryStore) ListByRoom(ctx context.Context, roomID string) ([]Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.byRoom[roomID]
	if len(ids) == 0 {
		return nil, nil
	}

	now := s.clock.Now()
	conns := make([]Connection, 0, len(ids))
	for id := range ids {
		conn, ok := s.conns[id]
		if !ok || now.After(conn.ExpiresAt) {
			s.removeLocked(id)
			continue
		}
		conns = append(conns, conn)
	}
	return conns, nil
}

// StartReaper sweeps expired leases every interval until ctx is cancelled.
func (s *MemoryStore) StartReaper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := s.clock.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				s.reap()
			}
		}
	}()
}

func (s *MemoryStore) reap() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	reaped := 0
	for id, conn := range s.conns {
		if now.After(conn.ExpiresAt) {
			s.removeLocked(id)
			reaped++
		}
	}
	if reaped > 0 {
		log.Debug().Int("reaped", reaped).Msg("reaped expired connections")
	}
}

func (s *MemoryStore) removeLocked(connectionID string) {
	conn, ok := s.conns[connectionID]
	if !ok {
		return
	}
	delete(s.conns, connectionID)
	s.dropFromRoomLocked(conn.RoomID, connectionID)
}

func (s *MemoryStore) dropFromRoomLocked(roomID, connectionID string) {
	if ids, ok := s.byRoom[roomID]; ok {
		delete(ids, connectionID)
		if len(ids) == 0 {
			delete(s.byRoom, roomID)
		}
	}
}
