package connection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// RedisStore persists connection records in Redis. The record itself lives
// under a per-connection key with a native TTL; a room-keyed SET acts as the
// secondary index. Index members whose record key has already expired are
// dropped lazily during ListByRoom, so the index is eventually consistent
// with the leases.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func connKey(connectionID string) string {
	return "conn:" + connectionID
}

func roomConnsKey(roomID string) string {
	return "room:" + roomID + ":conns"
}

func (s *RedisStore) Put(ctx context.Context, conn Connection) error {
	conn.ExpiresAt = time.Now().Add(TTL)

	data, err := json.Marshal(conn)
	if err != nil {
		return fmt.Errorf("failed to marshal connection: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, connKey(conn.ConnectionID), data, TTL)
	pipe.SAdd(ctx, roomConnsKey(conn.RoomID), conn.ConnectionID)
	pipe.Expire(ctx, roomConnsKey(conn.RoomID), TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save connection: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, connectionID string) (*Connection, error) {
	data, err := s.client.Get(ctx, connKey(connectionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load connection: %w", err)
	}

	var conn Connection
	if err := json.Unmarshal([]byte(data), &conn); err != nil {
		return nil, fmt.Errorf("failed to parse stored connection: %w", err)
	}
	return &conn, nil
}

func (s *RedisStore) Remove(ctx context.Context, connectionID string) error {
	conn, err := s.Get(ctx, connectionID)
	if errors.Is(err, ErrNotFound) {
		// The record may be gone while the index member lingers; the index
		// cleans itself up on the next ListByRoom.
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, connKey(connectionID))
	pipe.SRem(ctx, roomConnsKey(conn.RoomID), connectionID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove connection: %w", err)
	}
	return nil
}

func (s *RedisStore) ListByRoom(ctx context.Context, roomID string) ([]Connection, error) {
	ids, err := s.client.SMembers(ctx, roomConnsKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list room connections: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = connKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load room connections: %w", err)
	}

	conns := make([]Connection, 0, len(ids))
	var stale []interface{}
	for i, value := range values {
		if value == nil {
			stale = append(stale, ids[i])
			continue
		}
		var conn Connection
		if err := json.Unmarshal([]byte(value.(string)), &conn); err != nil {
			return nil, fmt.Errorf("failed to parse stored connection: %w", err)
		}
		conns = append(conns, conn)
	}

	if len(stale) > 0 {
		if err := s.client.SRem(ctx, roomConnsKey(roomID), stale...).Err(); err != nil {
			log.Warn().Err(err).Str("room_id", roomID).Msg("failed to prune stale index members")
		}
	}
	return conns, nil
}
