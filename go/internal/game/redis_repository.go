package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sessions linger after the round ends so late state syncs still resolve,
// then expire with the room.
const sessionTTL = 24 * time.Hour

// RedisSessionRepository stores sessions as JSON values in Redis.
// UpdateSession is an optimistic WATCH transaction keyed on the session
// version: of two near-simultaneous submits, the loser gets
// ErrVersionConflict instead of silently clobbering the winner's answer log.
type RedisSessionRepository struct {
	client *redis.Client
}

func NewRedisSessionRepository(client *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client}
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}

func (r *RedisSessionRepository) CreateSession(ctx context.Context, session *GameSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(session.SessionID), data, sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisSessionRepository) GetSession(ctx context.Context, sessionID string) (*GameSession, error) {
	data, err := r.client.Get(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session GameSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to parse stored session: %w", err)
	}
	return &session, nil
}

func (r *RedisSessionRepository) UpdateSession(ctx context.Context, session *GameSession, expectedVersion int64) error {
	key := sessionKey(session.SessionID)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%w: %s", ErrSessionNotFound, session.SessionID)
		}
		if err != nil {
			return err
		}

		var stored GameSession
		if err := json.Unmarshal([]byte(data), &stored); err != nil {
			return fmt.Errorf("failed to parse stored session: %w", err)
		}
		if stored.Version != expectedVersion {
			return fmt.Errorf("%w: expected version %d, found %d",
				ErrVersionConflict, expectedVersion, stored.Version)
		}

		session.Version = expectedVersion + 1
		payload, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, sessionTTL)
			return nil
		})
		return err
	}

	err := r.client.Watch(ctx, txf, key)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		// The watched key changed between read and write.
		return fmt.Errorf("%w: concurrent write to session %s", ErrVersionConflict, session.SessionID)
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrVersionConflict):
		return err
	default:
		return fmt.Errorf("failed to update session: %w", err)
	}
}
