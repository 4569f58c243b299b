package model

import (
	"encoding/json"
	"time"
)

// SessionID uniquely identifies a game session
type SessionID string

// StatusConcluded is the only status value the server interprets: the session no
// longer accepts moves and its participants are released.
const StatusConcluded = "concluded"

// Session is one ongoing or historical two-player match
type Session struct {
	ID        SessionID `json:"id"`
	Initiator PlayerID  `json:"initiator"`
	Opponent  PlayerID  `json:"opponent"`
	NextMove  PlayerID  `json:"next_move"`

	// Board is the opaque board state supplied by the clients
	Board json.RawMessage `json:"board,omitempty"`

	// Status is a client-defined marker; empty means in progress
	Status string `json:"status,omitempty"`

	// Timestamp strictly increases on every accepted mutation
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"created_at"`
}

// IsConcluded returns true once the session stops accepting moves
func (s *Session) IsConcluded() bool {
	return s.Status == StatusConcluded
}

// HasParticipant returns true if the player is the initiator or the opponent
func (s *Session) HasParticipant(playerID PlayerID) bool {
	return playerID != "" && (s.Initiator == playerID || s.Opponent == playerID)
}

// Participants returns both players, initiator first
func (s *Session) Participants() []PlayerID {
	return []PlayerID{s.Initiator, s.Opponent}
}

// MoveUpdate is the fixed set of fields a move may change. Identity fields
// (id, initiator, opponent) and the timestamp are never client-writable.
type MoveUpdate struct {
	Board    json.RawMessage `json:"board,omitempty"`
	NextMove PlayerID        `json:"next_move"`
	Status   string          `json:"status,omitempty"`
}

// Concludes reports whether the update carries the concluded marker
func (u MoveUpdate) Concludes() bool {
	return u.Status == StatusConcluded
}

// Apply merges the update into the session. Fields left empty in the update
// keep their stored value.
func (u MoveUpdate) Apply(s *Session, timestamp time.Time) {
	if len(u.Board) > 0 {
		s.Board = u.Board
	}
	s.NextMove = u.NextMove
	if u.Status != "" {
		s.Status = u.Status
	}
	s.Timestamp = timestamp
}

// UpdateResult confirms the fields stored by an accepted move
type UpdateResult struct {
	SessionID SessionID       `json:"session_id"`
	Board     json.RawMessage `json:"board,omitempty"`
	NextMove  PlayerID        `json:"next_move"`
	Status    string          `json:"status,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NextTimestamp returns now, or one millisecond past prev when the clock has not
// moved forward, so that session timestamps strictly increase.
func NextTimestamp(prev, now time.Time) time.Time {
	now = now.Truncate(time.Millisecond)
	if !now.After(prev) {
		return prev.Truncate(time.Millisecond).Add(time.Millisecond)
	}
	return now
}
