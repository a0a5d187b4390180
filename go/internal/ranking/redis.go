package ranking

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	scoresKey = "ranking:scores"
	teamsKey  = "ranking:teams"
)

// RedisLeaderboard keeps the leaderboard in a Redis ZSET keyed by room,
// with team names in a companion hash.
type RedisLeaderboard struct {
	client *redis.Client
}

func NewRedisLeaderboard(client *redis.Client) *RedisLeaderboard {
	return &RedisLeaderboard{client: client}
}

func (l *RedisLeaderboard) RecordScore(ctx context.Context, roomID, teamName string, score int) error {
	pipe := l.client.TxPipeline()
	// GT keeps the best score when a room plays multiple rounds.
	pipe.ZAddGT(ctx, scoresKey, redis.Z{Score: float64(score), Member: roomID})
	if teamName != "" {
		pipe.HSet(ctx, teamsKey, roomID, teamName)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record score: %w", err)
	}
	return nil
}

func (l *RedisLeaderboard) Top(ctx context.Context, limit int) ([]Entry, error) {
	results, err := l.client.ZRevRangeWithScores(ctx, scoresKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	roomIDs := make([]string, len(results))
	for i, z := range results {
		roomIDs[i] = z.Member.(string)
	}
	names, err := l.client.HMGet(ctx, teamsKey, roomIDs...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read team names: %w", err)
	}

	entries := make([]Entry, len(results))
	for i, z := range results {
		teamName := roomIDs[i]
		if name, ok := names[i].(string); ok && name != "" {
			teamName = name
		}
		entries[i] = Entry{
			RoomID:   roomIDs[i],
			TeamName: teamName,
			Score:    int(z.Score),
			Rank:     i + 1,
		}
	}
	return entries, nil
}
