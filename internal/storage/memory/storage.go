package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/TanvirAnzum/tic-tac-toe-server/internal/model"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Records are copied on the way in and out so callers never share state with the store.
type Storage struct {
	mu sync.RWMutex

	players       map[model.PlayerID]*model.Player
	usernameIndex map[string]model.PlayerID
	emailIndex    map[string]model.PlayerID
	refreshIndex  map[string]model.PlayerID

	sessions       map[model.SessionID]*model.Session
	playerSessions map[model.PlayerID][]model.SessionID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:        make(map[model.PlayerID]*model.Player),
		usernameIndex:  make(map[string]model.PlayerID),
		emailIndex:     make(map[string]model.PlayerID),
		refreshIndex:   make(map[string]model.PlayerID),
		sessions:       make(map[model.SessionID]*model.Session),
		playerSessions: make(map[model.PlayerID][]model.SessionID),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usernameIndex[player.Username]; ok {
		return model.ErrUsernameExists
	}
	if player.Email != "" {
		if _, ok := s.emailIndex[player.Email]; ok {
			return model.ErrUsernameExists
		}
		s.emailIndex[player.Email] = player.ID
	}

	s.usernameIndex[player.Username] = player.ID
	if player.RefreshToken != "" {
		s.refreshIndex[player.RefreshToken] = player.ID
	}
	p := *player
	s.players[player.ID] = &p
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getPlayerLocked(id)
}

func (s *Storage) GetPlayerByUsername(ctx context.Context, username string) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getPlayerLocked(s.usernameIndex[username])
}

func (s *Storage) GetPlayerByEmail(ctx context.Context, email string) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getPlayerLocked(s.emailIndex[email])
}

func (s *Storage) GetPlayerByRefreshToken(ctx context.Context, token string) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if token == "" {
		return nil, model.ErrPlayerNotFound
	}
	return s.getPlayerLocked(s.refreshIndex[token])
}

func (s *Storage) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	players := make([]*model.Player, 0, len(s.players))
	for _, p := range s.players {
		cp := *p
		players = append(players, &cp)
	}
	slices.SortFunc(players, func(a, b *model.Player) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return players, nil
}

func (s *Storage) SetRefreshToken(ctx context.Context, id model.PlayerID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.players[id]
	if !ok {
		return model.ErrPlayerNotFound
	}
	if player.RefreshToken != "" {
		delete(s.refreshIndex, player.RefreshToken)
	}
	player.RefreshToken = token
	if token != "" {
		s.refreshIndex[token] = id
	}
	return nil
}

func (s *Storage) UpdateDisplayName(ctx context.Context, id model.PlayerID, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.players[id]
	if !ok {
		return model.ErrPlayerNotFound
	}
	player.DisplayName = displayName
	return nil
}

// Busy lock operations

func (s *Storage) AcquireBusy(ctx context.Context, id model.PlayerID, sessionID model.SessionID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.players[id]
	if !ok {
		return false, model.ErrPlayerNotFound
	}
	if player.BusySession != "" {
		return false, nil
	}
	player.BusySession = sessionID
	return true, nil
}

func (s *Storage) ReleaseBusy(ctx context.Context, id model.PlayerID, sessionID model.SessionID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.players[id]
	if !ok {
		return false, model.ErrPlayerNotFound
	}
	if player.BusySession != sessionID {
		return false, nil
	}
	player.BusySession = ""
	return true, nil
}

func (s *Storage) SetBusy(ctx context.Context, id model.PlayerID, sessionID model.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.players[id]
	if !ok {
		return model.ErrPlayerNotFound
	}
	player.BusySession = sessionID
	return nil
}

// Session operations

func (s *Storage) InsertSession(ctx context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = cloneSession(session)
	for _, p := range session.Participants() {
		s.playerSessions[p] = append(s.playerSessions[p], session.ID)
	}
	return nil
}

func (s *Storage) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return cloneSession(session), nil
}

func (s *Storage) MutateSession(ctx context.Context, id model.SessionID, fn storage.MutateFunc) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.sessions[id]
	if !ok {
		return nil, model.ErrSessionNotFound
	}

	working := cloneSession(stored)
	if err := fn(working); err != nil {
		return nil, err
	}

	s.sessions[id] = working
	return cloneSession(working), nil
}

func (s *Storage) ListSessionsByPlayer(ctx context.Context, playerID model.PlayerID) ([]*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.playerSessions[playerID]
	sessions := make([]*model.Session, 0, len(ids))
	for _, id := range ids {
		if session, ok := s.sessions[id]; ok {
			sessions = append(sessions, cloneSession(session))
		}
	}
	storage.SortByRecency(sessions)
	return sessions, nil
}

func (s *Storage) getPlayerLocked(id model.PlayerID) (*model.Player, error) {
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	p := *player
	return &p, nil
}

func cloneSession(session *model.Session) *model.Session {
	s := *session
	s.Board = slices.Clone(session.Board)
	return &s
}
