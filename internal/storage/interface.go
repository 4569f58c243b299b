package storage

import (
	"cmp"
	"context"
	"slices"

	"github.com/TanvirAnzum/tic-tac-toe-server/internal/model"
)

// MutateFunc changes a freshly loaded session inside an atomic read-modify-write.
// Returning an error aborts the write and the error is returned to the caller.
type MutateFunc func(session *model.Session) error

// PlayerStore holds player records and the per-player busy lock
type PlayerStore interface {
	// CreatePlayer stores a new player; fails with model.ErrUsernameExists if the
	// username or email is already taken
	CreatePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	GetPlayerByUsername(ctx context.Context, username string) (*model.Player, error)
	GetPlayerByEmail(ctx context.Context, email string) (*model.Player, error)
	GetPlayerByRefreshToken(ctx context.Context, token string) (*model.Player, error)
	ListPlayers(ctx context.Context) ([]*model.Player, error)
	SetRefreshToken(ctx context.Context, id model.PlayerID, token string) error
	UpdateDisplayName(ctx context.Context, id model.PlayerID, displayName string) error

	// AcquireBusy sets the busy reference only if it is currently empty.
	// Returns false when another session already holds it.
	AcquireBusy(ctx context.Context, id model.PlayerID, sessionID model.SessionID) (bool, error)
	// ReleaseBusy clears the busy reference only if it still names sessionID
	ReleaseBusy(ctx context.Context, id model.PlayerID, sessionID model.SessionID) (bool, error)
	// SetBusy overwrites the busy reference unconditionally; empty clears it
	SetBusy(ctx context.Context, id model.PlayerID, sessionID model.SessionID) error
}

// SessionStore holds session documents
type SessionStore interface {
	InsertSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id model.SessionID) (*model.Session, error)
	// MutateSession atomically loads, mutates and stores a session
	MutateSession(ctx context.Context, id model.SessionID, fn MutateFunc) (*model.Session, error)
	// ListSessionsByPlayer returns sessions the player participates in, most recent first
	ListSessionsByPlayer(ctx context.Context, playerID model.PlayerID) ([]*model.Session, error)
}

// Storage defines the interface for data persistence
type Storage interface {
	PlayerStore
	SessionStore
}

// SortByRecency orders sessions by timestamp descending, breaking ties by id descending
func SortByRecency(sessions []*model.Session) {
	slices.SortStableFunc(sessions, func(a, b *model.Session) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}
