package connection

import "time"

// Connection is the ephemeral record for one live transport session. It is
// created when the socket opens and removed on confirmed-gone delivery or
// TTL reaping.
type Connection struct {
	ConnectionID string    `json:"connectionId"`
	PlayerID     string    `json:"playerId"`
	RoomID       string    `json:"roomId"`
	ConnectedAt  time.Time `json:"connectedAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}
