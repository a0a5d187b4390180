package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/fivebomber/backend/go/internal/connection"
	"github.com/fivebomber/backend/go/internal/game"
	"github.com/fivebomber/backend/go/internal/gateway"
	"github.com/fivebomber/backend/go/internal/question"
	"github.com/fivebomber/backend/go/internal/ranking"
)

// Services holds the wired application graph.
type Services struct {
	Gateway *gateway.Service

	redis *redis.Client
}

// setupServices wires the dependency chain. With Redis enabled all state
// lives there; otherwise everything is in-process, which is enough for a
// single-node deployment and for local development.
func setupServices(ctx context.Context, config *Config, clock clockwork.Clock) (*Services, error) {
	var (
		redisClient *redis.Client
		store       connection.Store
		sessions    game.SessionRepository
		leaderboard ranking.Leaderboard
	)

	if config.Redis.Enabled {
		client, err := setupRedis(ctx, config)
		if err != nil {
			return nil, err
		}
		redisClient = client
		store = connection.NewRedisStore(client)
		sessions = game.NewRedisSessionRepository(client)
		leaderboard = ranking.NewRedisLeaderboard(client)
	} else {
		log.Info().Msg("redis disabled, using in-memory state")
		memStore := connection.NewMemoryStore(clock)
		memStore.StartReaper(ctx, time.Minute)
		store = memStore
		sessions = game.NewMemorySessionRepository()
		leaderboard = ranking.NewMemoryLeaderboard()
	}

	questions := question.NewFileRepository(config.Questions.Dir)
	engine := game.NewApp(sessions, questions, clock)

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.JetStreamConfig.URL = config.NATS.URL
	gatewayConfig.EventsEnabled = config.NATS.Enabled

	gatewayService, err := gateway.NewService(gatewayConfig, engine, store, leaderboard, clock)
	if err != nil {
		if redisClient != nil {
			redisClient.Close()
		}
		return nil, fmt.Errorf("failed to create gateway service: %w", err)
	}

	return &Services{
		Gateway: gatewayService,
		redis:   redisClient,
	}, nil
}

// Close releases held connections.
func (s *Services) Close() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close redis client")
		}
	}
}
