package request

import "encoding/json"

// RegisterRequest is the request body for registering a player
type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest is the request body for exchanging a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// UpdateProfileRequest is the request body for PATCH /players/me
type UpdateProfileRequest struct {
	DisplayName string `json:"display_name"`
}

// CreateSessionRequest is the request body for starting a session.
// Opponent is a player id or a username; an id match wins.
type CreateSessionRequest struct {
	Opponent string          `json:"opponent"`
	Board    json.RawMessage `json:"board,omitempty"`
}

// MoveRequest is the request body for submitting a move. Any other field in the
// body is ignored.
type MoveRequest struct {
	Board    json.RawMessage `json:"board,omitempty"`
	NextMove string          `json:"next_move"`
	Status   string          `json:"status,omitempty"`
}
