package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/fivebomber/backend/go/internal/broadcast"
	"github.com/fivebomber/backend/go/internal/connection"
	"github.com/fivebomber/backend/go/internal/events"
	"github.com/fivebomber/backend/go/internal/game"
	"github.com/fivebomber/backend/go/internal/ranking"
)

// Service composes the game gateway: WebSocket connections, message
// routing, round timers and the leaderboard event pipeline.
type Service struct {
	connectionManager *ConnectionManager
	broadcaster       *broadcast.Broadcaster
	router            *Router
	scheduler         *game.TimeoutScheduler
	wsHandler         *WebSocketHandler
	gameHandler       *GameHandler
	eventConsumer     *EventConsumer
	publisher         events.Publisher
}

// Config holds configuration for the gateway service.
type Config struct {
	ConnectionConfig ConnectionConfig
	JetStreamConfig  JetStreamConsumerConfig
	// EventsEnabled gates the NATS pipeline. When false the service runs
	// without a broker: no events published, no rankingUpdate pushes.
	EventsEnabled bool
}

// DefaultConfig returns default configuration for the gateway.
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		JetStreamConfig:  DefaultJetStreamConsumerConfig(),
		EventsEnabled:    true,
	}
}

// NewService wires the gateway together. The wiring is circular on
// purpose: the router broadcasts through the manager, and the manager
// dispatches inbound frames to the router.
func NewService(
	config Config,
	engine *game.App,
	store connection.Store,
	leaderboard ranking.Leaderboard,
	clock clockwork.Clock,
) (*Service, error) {
	connectionManager := NewConnectionManager(config.ConnectionConfig, store, clock)
	broadcaster := broadcast.New(store, connectionManager)
	scheduler := game.NewTimeoutScheduler(clock, game.RoundTimeLimit)

	var publisher events.Publisher
	var eventConsumer *EventConsumer
	if config.EventsEnabled {
		p, err := events.NewJetStreamPublisher(config.JetStreamConfig.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create event publisher: %w", err)
		}
		publisher = p

		ec, err := NewEventConsumer(broadcaster, leaderboard, config.JetStreamConfig)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to create event consumer: %w", err)
		}
		eventConsumer = ec
	} else {
		publisher = events.NewNopPublisher()
	}

	router := NewRouter(engine, broadcaster, scheduler, publisher, clock)
	scheduler.SetExpireFunc(func(sessionID string) {
		router.HandleTimeout(context.Background(), sessionID)
	})
	connectionManager.SetRouter(router)

	return &Service{
		connectionManager: connectionManager,
		broadcaster:       broadcaster,
		router:            router,
		scheduler:         scheduler,
		wsHandler:         NewWebSocketHandler(connectionManager),
		gameHandler:       NewGameHandler(engine, scheduler, broadcaster),
		eventConsumer:     eventConsumer,
		publisher:         publisher,
	}, nil
}

// Start runs the gateway until the context is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting game gateway service")

	if s.eventConsumer != nil {
		go func() {
			if err := s.eventConsumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("event consumer failed")
			}
		}()
	}

	<-ctx.Done()

	log.Info().Msg("game gateway service shutting down")
	return s.Stop()
}

// Stop gracefully shuts down the gateway service.
func (s *Service) Stop() error {
	s.scheduler.Shutdown()

	if s.eventConsumer != nil {
		if err := s.eventConsumer.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop event consumer")
		}
	}
	if p, ok := s.publisher.(*events.JetStreamPublisher); ok {
		p.Close()
	}

	log.Info().Msg("game gateway service stopped")
	return nil
}

// RegisterRoutes registers the gateway's HTTP and WebSocket routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.gameHandler.RegisterRoutes(mux)
	log.Info().Msg("game gateway routes registered")
}

// Stats returns statistics about the gateway service.
func (s *Service) Stats() map[string]interface{} {
	stats := s.connectionManager.Stats()
	stats["service"] = "game_gateway"
	stats["status"] = "running"
	return stats
}
