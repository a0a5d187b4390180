package events

import (
	"encoding/json"
	"time"
)

// Stream and subject layout for the game event bus.
const (
	StreamName       = "GAME_EVENTS"
	SubjectWildcard  = "game.events.>"
	SubjectCompleted = "game.events.completed"
	SubjectTimedOut  = "game.events.timedout"
)

// EventType identifies a game lifecycle event.
type EventType string

const (
	EventTypeGameCompleted EventType = "GameCompleted"
	EventTypeGameTimedOut  EventType = "GameTimedOut"
)

// GameEvent is the envelope published for every game lifecycle event.
type GameEvent struct {
	ID        string          `json:"id"`
	RoomID    string          `json:"roomId"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// GameCompletedPayload is attached to EventTypeGameCompleted.
type GameCompletedPayload struct {
	SessionID   string    `json:"sessionId"`
	RoomID      string    `json:"roomId"`
	TeamName    string    `json:"teamName,omitempty"`
	TotalScore  int       `json:"totalScore"`
	TimeBonus   int       `json:"timeBonus"`
	CompletedAt time.Time `json:"completedAt"`
}

// GameTimedOutPayload is attached to EventTypeGameTimedOut.
type GameTimedOutPayload struct {
	SessionID  string    `json:"sessionId"`
	RoomID     string    `json:"roomId"`
	TimedOutAt time.Time `json:"timedOutAt"`
}

// SubjectFor maps an event type to its publish subject.
func SubjectFor(eventType EventType) string {
	switch eventType {
	case EventTypeGameTimedOut:
		return SubjectTimedOut
	default:
		return SubjectCompleted
	}
}
