package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/fivebomber/backend/go/internal/connection"
)

// MessageRouter handles inbound frames and produces the direct reply.
type MessageRouter interface {
	HandleMessage(ctx context.Context, connectionID string, raw []byte) Envelope
}

// ConnectionManager owns the live WebSocket connections, organized into
// per-room pools. Every registered socket is mirrored into the connection
// store so that broadcast targeting survives restarts of other components.
type ConnectionManager struct {
	roomConns map[string]map[*Conn]bool
	connsByID map[string]*Conn
	mu        sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	store    connection.Store
	clock    clockwork.Clock
	router   MessageRouter
}

// Conn is one live WebSocket session. sendMu orders enqueues against the
// teardown close of the send channel.
type Conn struct {
	ID       string
	PlayerID string
	RoomID   string
	ws       *websocket.Conn
	send     chan []byte
	manager  *ConnectionManager

	sendMu sync.Mutex
	closed bool

	ConnectedAt time.Time
	LastPing    time.Time
}

// enqueue queues a frame without blocking. Returns false when the
// connection is torn down or its buffer is full.
func (c *Conn) enqueue(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// ConnectionConfig holds the socket-level tuning knobs.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns the default WebSocket configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a WebSocket connection manager backed by the
// given connection store.
func NewConnectionManager(config ConnectionConfig, store connection.Store, clock clockwork.Clock) *ConnectionManager {
	return &ConnectionManager{
		roomConns: make(map[string]map[*Conn]bool),
		connsByID: make(map[string]*Conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
		store:  store,
		clock:  clock,
	}
}

// SetRouter wires the inbound message router. Must be called before the
// first upgrade; kept separate from the constructor because the router
// itself needs the manager as its broadcast sender.
func (cm *ConnectionManager) SetRouter(router MessageRouter) {
	cm.router = router
}

// UpgradeConnection upgrades an HTTP request to a WebSocket session and
// registers it under the player's room.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, playerID, roomID string) error {
	ws, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	now := cm.clock.Now()
	conn := &Conn{
		ID:          uuid.New().String(),
		PlayerID:    playerID,
		RoomID:      roomID,
		ws:          ws,
		send:        make(chan []byte, 256),
		manager:     cm,
		ConnectedAt: now,
		LastPing:    now,
	}

	if err := cm.registerConnection(r.Context(), conn); err != nil {
		ws.Close()
		return err
	}

	go conn.writePump()
	go conn.readPump()

	log.Info().
		Str("connection_id", conn.ID).
		Str("player_id", playerID).
		Str("room_id", roomID).
		Msg("WebSocket connection established")

	return nil
}

func (cm *ConnectionManager) registerConnection(ctx context.Context, conn *Conn) error {
	// Persist first: a socket that exists but is unknown to the store would
	// be invisible to broadcasts.
	record := connection.Connection{
		ConnectionID: conn.ID,
		PlayerID:     conn.PlayerID,
		RoomID:       conn.RoomID,
		ConnectedAt:  conn.ConnectedAt,
	}
	if err := cm.store.Put(ctx, record); err != nil {
		return fmt.Errorf("failed to persist connection: %w", err)
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.roomConns[conn.RoomID] == nil {
		cm.roomConns[conn.RoomID] = make(map[*Conn]bool)
	}
	cm.roomConns[conn.RoomID][conn] = true
	cm.connsByID[conn.ID] = conn

	log.Debug().
		Str("connection_id", conn.ID).
		Str("room_id", conn.RoomID).
		Int("room_connections", len(cm.roomConns[conn.RoomID])).
		Msg("connection registered")
	return nil
}

func (cm *ConnectionManager) unregisterConnection(conn *Conn) {
	cm.mu.Lock()
	if pool, exists := cm.roomConns[conn.RoomID]; exists {
		if _, exists := pool[conn]; exists {
			delete(pool, conn)
			delete(cm.connsByID, conn.ID)

			conn.sendMu.Lock()
			conn.closed = true
			close(conn.send)
			conn.sendMu.Unlock()

			if len(pool) == 0 {
				delete(cm.roomConns, conn.RoomID)
			}

			log.Info().
				Str("connection_id", conn.ID).
				Str("player_id", conn.PlayerID).
				Str("room_id", conn.RoomID).
				Msg("connection unregistered")
		}
	}
	cm.mu.Unlock()

	if err := cm.store.Remove(context.Background(), conn.ID); err != nil {
		log.Error().Err(err).Str("connection_id", conn.ID).Msg("failed to remove connection record")
	}
}

// Send delivers one pre-encoded frame to the connection id. The return
// values follow the broadcast sender contract: (true, nil) means queued for
// delivery, (false, nil) means the recipient is gone and its record can be
// reclaimed, and a non-nil error means the transport itself is broken.
func (cm *ConnectionManager) Send(ctx context.Context, connectionID string, data []byte) (bool, error) {
	cm.mu.RLock()
	conn, exists := cm.connsByID[connectionID]
	cm.mu.RUnlock()
	if !exists {
		return false, nil
	}

	if !conn.enqueue(data) {
		// A full send buffer means the client stopped draining. Drop the
		// connection rather than block the whole room's broadcast.
		log.Warn().
			Str("connection_id", conn.ID).
			Str("player_id", conn.PlayerID).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.ws.Close()
		return false, nil
	}
	return true, nil
}

// Stats returns counts of active connections for the stats endpoint.
func (cm *ConnectionManager) Stats() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	roomCounts := make(map[string]int)
	for roomID, pool := range cm.roomConns {
		roomCounts[roomID] = len(pool)
	}

	return map[string]interface{}{
		"total_connections": len(cm.connsByID),
		"active_rooms":      len(cm.roomConns),
		"room_connections":  roomCounts,
	}
}

// writePump drains the send channel onto the socket and keeps the
// connection alive with periodic pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
		c.manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump reads inbound frames and dispatches them sequentially through
// the router. Sequential dispatch keeps per-connection message ordering.
func (c *Conn) readPump() {
	defer func() {
		c.manager.unregisterConnection(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(c.manager.config.MaxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.ws.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	}
}

func (c *Conn) handleClientMessage(message []byte) {
	if c.manager.router == nil {
		log.Warn().Str("connection_id", c.ID).Msg("no router wired, dropping client message")
		return
	}

	reply := c.manager.router.HandleMessage(context.Background(), c.ID, message)
	data, err := json.Marshal(reply)
	if err != nil {
		log.Error().Err(err).Str("connection_id", c.ID).Msg("failed to marshal reply")
		return
	}

	if !c.enqueue(data) {
		log.Warn().Str("connection_id", c.ID).Msg("send buffer full, dropping reply")
	}
}
