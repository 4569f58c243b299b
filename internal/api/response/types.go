package response

import (
	"encoding/json"
	"time"

	"github.com/TanvirAnzum/tic-tac-toe-server/internal/model"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/services/identity"
)

// Player represents a player in API responses. Credentials never leave the server.
type Player struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name"`
	BusySession string    `json:"busy_session,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:          string(p.ID),
		Username:    p.Username,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		BusySession: string(p.BusySession),
		CreatedAt:   p.CreatedAt,
	}
}

// PublicPlayerFromModel is PlayerFromModel without the email address, for
// lookups of other players
func PublicPlayerFromModel(p *model.Player) Player {
	resp := PlayerFromModel(p)
	resp.Email = ""
	return resp
}

// AuthResponse is the response for login and refresh
type AuthResponse struct {
	Player       Player    `json:"player"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthResponseFromCredentials creates an AuthResponse from issued credentials
func AuthResponseFromCredentials(c *identity.Credentials) AuthResponse {
	return AuthResponse{
		Player:       PlayerFromModel(c.Player),
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		ExpiresAt:    c.ExpiresAt,
	}
}

// Session represents a session in API responses
type Session struct {
	ID        string          `json:"id"`
	Initiator string          `json:"initiator"`
	Opponent  string          `json:"opponent"`
	NextMove  string          `json:"next_move"`
	Board     json.RawMessage `json:"board,omitempty"`
	Status    string          `json:"status,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	CreatedAt time.Time       `json:"created_at"`
}

// SessionFromModel converts a model.Session
func SessionFromModel(s *model.Session) Session {
	return Session{
		ID:        string(s.ID),
		Initiator: string(s.Initiator),
		Opponent:  string(s.Opponent),
		NextMove:  string(s.NextMove),
		Board:     s.Board,
		Status:    s.Status,
		Timestamp: s.Timestamp,
		CreatedAt: s.CreatedAt,
	}
}

// SessionList wraps a list of sessions, most recent first
type SessionList struct {
	Sessions []Session `json:"sessions"`
}

// SessionListFromModel converts a slice of sessions
func SessionListFromModel(sessions []*model.Session) SessionList {
	list := SessionList{Sessions: make([]Session, len(sessions))}
	for i, s := range sessions {
		list.Sessions[i] = SessionFromModel(s)
	}
	return list
}

// MoveResponse confirms an accepted move
type MoveResponse struct {
	SessionID string          `json:"session_id"`
	Board     json.RawMessage `json:"board,omitempty"`
	NextMove  string          `json:"next_move"`
	Status    string          `json:"status,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// MoveResponseFromModel converts a model.UpdateResult
func MoveResponseFromModel(r *model.UpdateResult) MoveResponse {
	return MoveResponse{
		SessionID: string(r.SessionID),
		Board:     r.Board,
		NextMove:  string(r.NextMove),
		Status:    r.Status,
		Timestamp: r.Timestamp,
	}
}
