package model

import "time"

// PlayerID uniquely identifies a player across the system
type PlayerID string

// Player is a registered account together with its game-facing state
type Player struct {
	ID          PlayerID  `json:"id"`
	Username    string    `json:"username"` // login username (immutable)
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`

	// CredentialHash is the bcrypt hash of the password
	CredentialHash string `json:"credential_hash"`

	// RefreshToken is the current refresh credential, empty after logout
	RefreshToken string `json:"refresh_token,omitempty"`

	// BusySession names the one unfinished session this player is bound to.
	// Empty when the player is free to start a new session.
	BusySession SessionID `json:"busy_session,omitempty"`
}

// IsBusy reports whether the player is bound to an unfinished session
func (p *Player) IsBusy() bool {
	return p.BusySession != ""
}
