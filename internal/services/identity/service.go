// Package identity registers players, issues access and refresh credentials, and
// fronts the player store for the session lifecycle.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"

	"github.com/TanvirAnzum/tic-tac-toe-server/internal/dependencies/clock"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/dependencies/ids"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/model"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/storage"
)

// AccessToken is an issued, expiring bearer token
type AccessToken struct {
	Token     string
	PlayerID  model.PlayerID
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Credentials is what a successful login or refresh hands back to the client
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Player       *model.Player
}

// Config holds configuration for the identity service
type Config struct {
	AccessTokenTTL time.Duration
	BcryptCost     int
}

// DefaultConfig returns default identity configuration
func DefaultConfig() Config {
	return Config{
		AccessTokenTTL: 24 * time.Hour,
		BcryptCost:     bcrypt.DefaultCost,
	}
}

// Service handles registration, login and token validation. Access tokens live
// in memory; refresh tokens are stored on the player record.
type Service struct {
	storage storage.PlayerStore
	clock   clock.Clock
	ids     ids.Generator
	logger  *slog.Logger

	mu     sync.RWMutex
	tokens map[string]*AccessToken

	accessTokenTTL time.Duration
	bcryptCost     int
}

// New creates a new identity Service
func New(storage storage.PlayerStore, clock clock.Clock, ids ids.Generator, logger *slog.Logger, cfg Config) *Service {
	defaults := DefaultConfig()
	if cfg.AccessTokenTTL == 0 {
		cfg.AccessTokenTTL = defaults.AccessTokenTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = defaults.BcryptCost
	}
	return &Service{
		storage:        storage,
		clock:          clock,
		ids:            ids,
		logger:         logger.With(slog.String("component", "identity")),
		tokens:         make(map[string]*AccessToken),
		accessTokenTTL: cfg.AccessTokenTTL,
		bcryptCost:     cfg.BcryptCost,
	}
}

// Register creates a player account. Username and email must both be unused.
func (s *Service) Register(ctx context.Context, username, email, password, displayName string) (*model.Player, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	displayName = strings.TrimSpace(displayName)
	if username == "" || email == "" || password == "" || displayName == "" {
		return nil, wrap(model.ErrInvalidInput, "username", username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, oops.In("identity").Code("HASH_FAILED").Wrap(err)
	}

	player := &model.Player{
		ID:             model.PlayerID(s.ids.PlayerID()),
		Username:       username,
		Email:          email,
		DisplayName:    displayName,
		CreatedAt:      s.clock.Now(),
		CredentialHash: string(hash),
	}

	if err := s.storage.CreatePlayer(ctx, player); err != nil {
		return nil, wrap(model.StoreUnavailable(err), "username", username)
	}

	s.logger.Info("player registered",
		slog.String("player_id", string(player.ID)),
		slog.String("username", username),
	)
	return player, nil
}

// Login checks a username and password and issues fresh credentials. The new
// refresh token replaces any previous one.
func (s *Service) Login(ctx context.Context, username, password string) (*Credentials, error) {
	if username == "" || password == "" {
		return nil, wrap(model.ErrInvalidInput, "username", username)
	}

	player, err := s.storage.GetPlayerByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrPlayerNotFound) {
			return nil, wrap(model.ErrInvalidCredentials, "username", username)
		}
		return nil, wrap(model.StoreUnavailable(err), "username", username)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(player.CredentialHash), []byte(password)); err != nil {
		return nil, wrap(model.ErrInvalidCredentials, "username", username)
	}

	refresh := s.ids.Token()
	if err := s.storage.SetRefreshToken(ctx, player.ID, refresh); err != nil {
		return nil, wrap(model.StoreUnavailable(err), "player_id", player.ID)
	}
	player.RefreshToken = refresh

	access := s.issue(player.ID)
	s.logger.Info("player logged in", slog.String("player_id", string(player.ID)))

	return &Credentials{
		AccessToken:  access.Token,
		RefreshToken: refresh,
		ExpiresAt:    access.ExpiresAt,
		Player:       player,
	}, nil
}

// Refresh exchanges a refresh token for a new access token
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Credentials, error) {
	player, err := s.storage.GetPlayerByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, model.ErrPlayerNotFound) {
			return nil, wrap(model.ErrInvalidToken)
		}
		return nil, wrap(model.StoreUnavailable(err))
	}

	access := s.issue(player.ID)
	return &Credentials{
		AccessToken:  access.Token,
		RefreshToken: refreshToken,
		ExpiresAt:    access.ExpiresAt,
		Player:       player,
	}, nil
}

// Logout revokes the access token and clears the player's refresh token
func (s *Service) Logout(ctx context.Context, accessToken string) error {
	token, err := s.Validate(accessToken)
	if err != nil {
		return err
	}

	s.Revoke(accessToken)
	if err := s.storage.SetRefreshToken(ctx, token.PlayerID, ""); err != nil {
		return wrap(model.StoreUnavailable(err), "player_id", token.PlayerID)
	}

	s.logger.Info("player logged out", slog.String("player_id", string(token.PlayerID)))
	return nil
}

// Validate checks that an access token exists and has not expired
func (s *Service) Validate(accessToken string) (*AccessToken, error) {
	s.mu.RLock()
	token, ok := s.tokens[accessToken]
	s.mu.RUnlock()

	if !ok {
		return nil, wrap(model.ErrInvalidToken)
	}

	if s.clock.Now().After(token.ExpiresAt) {
		s.Revoke(accessToken)
		return nil, wrap(model.ErrInvalidToken, "player_id", token.PlayerID)
	}

	return token, nil
}

// Revoke removes an access token
func (s *Service) Revoke(accessToken string) {
	s.mu.Lock()
	delete(s.tokens, accessToken)
	s.mu.Unlock()
}

// CleanExpiredTokens removes expired access tokens (call periodically)
func (s *Service) CleanExpiredTokens() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, token := range s.tokens {
		if now.After(token.ExpiresAt) {
			delete(s.tokens, key)
			removed++
		}
	}
	return removed
}

// UpdateProfile changes the player's display name, the only client-editable field
func (s *Service) UpdateProfile(ctx context.Context, id model.PlayerID, displayName string) (*model.Player, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, wrap(model.ErrInvalidInput, "player_id", id)
	}
	if err := s.storage.UpdateDisplayName(ctx, id, displayName); err != nil {
		return nil, wrap(model.StoreUnavailable(err), "player_id", id)
	}
	return s.FindPlayer(ctx, id)
}

// FindByEmail looks a player up by email
func (s *Service) FindByEmail(ctx context.Context, email string) (*model.Player, error) {
	player, err := s.storage.GetPlayerByEmail(ctx, email)
	if err != nil {
		return nil, wrap(model.StoreUnavailable(err), "email", email)
	}
	return player, nil
}

// Resolve finds a player by id, falling back to username. Ids win: a username
// that happens to equal another player's id cannot shadow that player.
func (s *Service) Resolve(ctx context.Context, ref string) (*model.Player, error) {
	player, err := s.storage.GetPlayer(ctx, model.PlayerID(ref))
	if err == nil {
		return player, nil
	}
	if !errors.Is(err, model.ErrPlayerNotFound) {
		return nil, wrap(model.StoreUnavailable(err), "player_id", model.PlayerID(ref))
	}

	player, err = s.storage.GetPlayerByUsername(ctx, ref)
	if err != nil {
		return nil, wrap(model.StoreUnavailable(err), "player_id", model.PlayerID(ref))
	}
	return player, nil
}

// Gateway used by the session lifecycle

// FindPlayer returns a player by id
func (s *Service) FindPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	player, err := s.storage.GetPlayer(ctx, id)
	if err != nil {
		return nil, wrap(model.StoreUnavailable(err), "player_id", id)
	}
	return player, nil
}

// ListPlayers returns every registered player
func (s *Service) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	return s.storage.ListPlayers(ctx)
}

// AcquireBusy binds the player to sessionID if they are free
func (s *Service) AcquireBusy(ctx context.Context, id model.PlayerID, sessionID model.SessionID) (bool, error) {
	return s.storage.AcquireBusy(ctx, id, sessionID)
}

// ReleaseBusy frees the player if they are still bound to sessionID
func (s *Service) ReleaseBusy(ctx context.Context, id model.PlayerID, sessionID model.SessionID) (bool, error) {
	return s.storage.ReleaseBusy(ctx, id, sessionID)
}

// SetBusy overwrites the player's busy reference
func (s *Service) SetBusy(ctx context.Context, id model.PlayerID, sessionID model.SessionID) error {
	return s.storage.SetBusy(ctx, id, sessionID)
}

// issue creates and remembers a new access token for a player
func (s *Service) issue(playerID model.PlayerID) *AccessToken {
	now := s.clock.Now()
	token := &AccessToken{
		Token:     "at_" + s.ids.Token(),
		PlayerID:  playerID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.accessTokenTTL),
	}

	s.mu.Lock()
	s.tokens[token.Token] = token
	s.mu.Unlock()

	return token
}

func wrap(err error, kv ...any) error {
	return oops.In("identity").Code(model.ErrorCode(err)).With(kv...).Wrap(err)
}
