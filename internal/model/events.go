package model

import (
	"encoding/json"
	"time"
)

// EventType identifies the type of broadcast event
type EventType string

const (
	// EventMove is broadcast after every accepted move
	EventMove EventType = "move"
)

// MoveEvent carries the board state of an accepted move to every observer
type MoveEvent struct {
	SessionID SessionID       `json:"session_id"`
	Board     json.RawMessage `json:"board,omitempty"`
	NextMove  PlayerID        `json:"next_move"`
	Timestamp time.Time       `json:"timestamp"`
}

// MoveEventFromResult builds the broadcast payload for an accepted move
func MoveEventFromResult(r *UpdateResult) MoveEvent {
	return MoveEvent{
		SessionID: r.SessionID,
		Board:     r.Board,
		NextMove:  r.NextMove,
		Timestamp: r.Timestamp,
	}
}
