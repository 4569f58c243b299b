package model

import (
	"errors"
	"fmt"
)

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound     = errors.New("player not found")
	ErrUsernameExists     = errors.New("username or email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidInput       = errors.New("missing or invalid field")

	// Session lifecycle errors
	ErrSelfPlayNotAllowed = errors.New("a player cannot start a session against themselves")
	ErrPlayerBusy         = errors.New("player has a session to finish")
	ErrSessionNotFound    = errors.New("session not found")
	ErrNotParticipant     = errors.New("player is not a participant of this session")

	// Turn errors
	ErrWrongTurn        = errors.New("not this player's turn")
	ErrSessionConcluded = errors.New("session is concluded")
	ErrInvalidUpdate    = errors.New("invalid move update")

	// Persistence errors
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Stable codes attached to wrapped errors and returned by the HTTP API
const (
	CodePlayerNotFound     = "PLAYER_NOT_FOUND"
	CodeUsernameExists     = "USERNAME_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeSelfPlayNotAllowed = "SELF_PLAY_NOT_ALLOWED"
	CodePlayerBusy         = "PLAYER_BUSY"
	CodeSessionNotFound    = "SESSION_NOT_FOUND"
	CodeNotParticipant     = "NOT_PARTICIPANT"
	CodeWrongTurn          = "WRONG_TURN"
	CodeSessionConcluded   = "SESSION_CONCLUDED"
	CodeInvalidUpdate      = "INVALID_UPDATE"
	CodeStoreUnavailable   = "STORE_UNAVAILABLE"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrPlayerNotFound, CodePlayerNotFound},
	{ErrUsernameExists, CodeUsernameExists},
	{ErrInvalidCredentials, CodeInvalidCredentials},
	{ErrInvalidToken, CodeInvalidToken},
	{ErrInvalidInput, CodeInvalidInput},
	{ErrSelfPlayNotAllowed, CodeSelfPlayNotAllowed},
	{ErrPlayerBusy, CodePlayerBusy},
	{ErrSessionNotFound, CodeSessionNotFound},
	{ErrNotParticipant, CodeNotParticipant},
	{ErrWrongTurn, CodeWrongTurn},
	{ErrSessionConcluded, CodeSessionConcluded},
	{ErrInvalidUpdate, CodeInvalidUpdate},
	{ErrStoreUnavailable, CodeStoreUnavailable},
}

// ErrorCode returns the code of the first known error kind in err's chain,
// or "" if err carries none
func ErrorCode(err error) string {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return ""
}

// StoreUnavailable marks err as a persistence failure unless it already
// carries a known kind
func StoreUnavailable(err error) error {
	if err == nil || ErrorCode(err) != "" {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
