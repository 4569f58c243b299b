package redis

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/TanvirAnzum/tic-tac-toe-server/internal/model"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/storage"
)

// releaseBusyScript deletes the busy key only when it still names the given session
var releaseBusyScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Storage is a Redis-backed implementation of the storage interface.
// Busy references live in their own keys so they can be compare-and-set
// independently of the player document.
type Storage struct {
	client *redis.Client
	cfg    Config
	keys   keys
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultConfig().KeyPrefix
	}
	if cfg.MaxTxRetries <= 0 {
		cfg.MaxTxRetries = DefaultConfig().MaxTxRetries
	}
	return &Storage{
		client: client,
		cfg:    cfg,
		keys:   keys{prefix: cfg.KeyPrefix},
	}
}

// Client exposes the underlying client so the notifier can share the connection pool
func (s *Storage) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) CreatePlayer(ctx context.Context, player *model.Player) error {
	// Index keys claimed so far; released again if the player is not stored
	claimed := []string{s.keys.username(player.Username)}
	ok, err := s.client.SetNX(ctx, claimed[0], string(player.ID), 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrUsernameExists
	}

	if player.Email != "" {
		emailKey := s.keys.email(player.Email)
		ok, err := s.client.SetNX(ctx, emailKey, string(player.ID), 0).Result()
		if err != nil || !ok {
			s.rollbackPlayer(ctx, claimed...)
			if err != nil {
				return err
			}
			return model.ErrUsernameExists
		}
		claimed = append(claimed, emailKey)
	}

	data, err := marshalPlayer(player)
	if err != nil {
		s.rollbackPlayer(ctx, claimed...)
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keys.player(player.ID), data, 0)
	pipe.SAdd(ctx, s.keys.players(), string(player.ID))
	if player.RefreshToken != "" {
		pipe.Set(ctx, s.keys.refresh(player.RefreshToken), string(player.ID), 0)
	}
	if player.BusySession != "" {
		pipe.Set(ctx, s.keys.busy(player.ID), string(player.BusySession), 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		// MULTI does not roll back commands that succeeded
		claimed = append(claimed, s.keys.player(player.ID), s.keys.busy(player.ID))
		if player.RefreshToken != "" {
			claimed = append(claimed, s.keys.refresh(player.RefreshToken))
		}
		s.rollbackPlayer(ctx, claimed...)
		return err
	}
	return nil
}

// rollbackPlayer deletes the keys written by a failed CreatePlayer so the
// username and email can be claimed again
func (s *Storage) rollbackPlayer(ctx context.Context, stale ...string) {
	_ = s.client.Del(context.WithoutCancel(ctx), stale...).Err()
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	pipe := s.client.Pipeline()
	dataCmd := pipe.Get(ctx, s.keys.player(id))
	busyCmd := pipe.Get(ctx, s.keys.busy(id))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	data, err := dataCmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var player model.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, err
	}

	busy, err := busyCmd.Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	player.BusySession = model.SessionID(busy)
	return &player, nil
}

func (s *Storage) GetPlayerByUsername(ctx context.Context, username string) (*model.Player, error) {
	return s.getPlayerByIndex(ctx, s.keys.username(username))
}

func (s *Storage) GetPlayerByEmail(ctx context.Context, email string) (*model.Player, error) {
	return s.getPlayerByIndex(ctx, s.keys.email(email))
}

func (s *Storage) GetPlayerByRefreshToken(ctx context.Context, token string) (*model.Player, error) {
	if token == "" {
		return nil, model.ErrPlayerNotFound
	}
	return s.getPlayerByIndex(ctx, s.keys.refresh(token))
}

func (s *Storage) ListPlayers(ctx context.Context) ([]*model.Player, error) {
	ids, err := s.client.SMembers(ctx, s.keys.players()).Result()
	if err != nil {
		return nil, err
	}

	players := make([]*model.Player, 0, len(ids))
	for _, id := range ids {
		player, err := s.GetPlayer(ctx, model.PlayerID(id))
		if err != nil {
			if errors.Is(err, model.ErrPlayerNotFound) {
				continue
			}
			return nil, err
		}
		players = append(players, player)
	}

	slices.SortFunc(players, func(a, b *model.Player) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return players, nil
}

func (s *Storage) SetRefreshToken(ctx context.Context, id model.PlayerID, token string) error {
	return s.mutatePlayer(ctx, id, func(player *model.Player, pipe redis.Pipeliner) {
		if player.RefreshToken != "" {
			pipe.Del(ctx, s.keys.refresh(player.RefreshToken))
		}
		if token != "" {
			pipe.Set(ctx, s.keys.refresh(token), string(id), 0)
		}
		player.RefreshToken = token
	})
}

func (s *Storage) UpdateDisplayName(ctx context.Context, id model.PlayerID, displayName string) error {
	return s.mutatePlayer(ctx, id, func(player *model.Player, _ redis.Pipeliner) {
		player.DisplayName = displayName
	})
}

// Busy lock operations

func (s *Storage) AcquireBusy(ctx context.Context, id model.PlayerID, sessionID model.SessionID) (bool, error) {
	if err := s.requirePlayer(ctx, id); err != nil {
		return false, err
	}
	return s.client.SetNX(ctx, s.keys.busy(id), string(sessionID), 0).Result()
}

func (s *Storage) ReleaseBusy(ctx context.Context, id model.PlayerID, sessionID model.SessionID) (bool, error) {
	if err := s.requirePlayer(ctx, id); err != nil {
		return false, err
	}
	n, err := releaseBusyScript.Run(ctx, s.client, []string{s.keys.busy(id)}, string(sessionID)).Int()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Storage) SetBusy(ctx context.Context, id model.PlayerID, sessionID model.SessionID) error {
	if err := s.requirePlayer(ctx, id); err != nil {
		return err
	}
	if sessionID == "" {
		return s.client.Del(ctx, s.keys.busy(id)).Err()
	}
	return s.client.Set(ctx, s.keys.busy(id), string(sessionID), 0).Err()
}

// Session operations

func (s *Storage) InsertSession(ctx context.Context, session *model.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keys.session(session.ID), data, 0)
	s.indexSession(ctx, pipe, session)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetSession(ctx context.Context, id model.SessionID) (*model.Session, error) {
	data, err := s.client.Get(ctx, s.keys.session(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrSessionNotFound
		}
		return nil, err
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// MutateSession runs fn inside WATCH/MULTI on the session key. If another writer
// commits first the transaction is retried against the fresh document, so fn
// always decides on the state it is about to overwrite.
func (s *Storage) MutateSession(ctx context.Context, id model.SessionID, fn storage.MutateFunc) (*model.Session, error) {
	key := s.keys.session(id)

	for attempt := 0; attempt < s.cfg.MaxTxRetries; attempt++ {
		var result *model.Session

		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return model.ErrSessionNotFound
				}
				return err
			}

			var session model.Session
			if err := json.Unmarshal(data, &session); err != nil {
				return err
			}

			if err := fn(&session); err != nil {
				return err
			}

			updated, err := json.Marshal(&session)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, 0)
				s.indexSession(ctx, pipe, &session)
				return nil
			})
			result = &session
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	return nil, fmt.Errorf("session %s: %d conflicting writers: %w", id, s.cfg.MaxTxRetries, redis.TxFailedErr)
}

func (s *Storage) ListSessionsByPlayer(ctx context.Context, playerID model.PlayerID) ([]*model.Session, error) {
	ids, err := s.client.ZRevRange(ctx, s.keys.playerSessions(playerID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return []*model.Session{}, nil
	}

	sessionKeys := make([]string, len(ids))
	for i, id := range ids {
		sessionKeys[i] = s.keys.session(model.SessionID(id))
	}

	values, err := s.client.MGet(ctx, sessionKeys...).Result()
	if err != nil {
		return nil, err
	}

	sessions := make([]*model.Session, 0, len(values))
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue
		}
		var session model.Session
		if err := json.Unmarshal([]byte(str), &session); err != nil {
			return nil, err
		}
		sessions = append(sessions, &session)
	}

	storage.SortByRecency(sessions)
	return sessions, nil
}

// indexSession scores the session in both participants' recency sets
func (s *Storage) indexSession(ctx context.Context, pipe redis.Pipeliner, session *model.Session) {
	score := float64(session.Timestamp.UnixMilli())
	for _, p := range session.Participants() {
		pipe.ZAdd(ctx, s.keys.playerSessions(p), redis.Z{Score: score, Member: string(session.ID)})
	}
}

func (s *Storage) getPlayerByIndex(ctx context.Context, indexKey string) (*model.Player, error) {
	id, err := s.client.Get(ctx, indexKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}
	return s.GetPlayer(ctx, model.PlayerID(id))
}

func (s *Storage) requirePlayer(ctx context.Context, id model.PlayerID) error {
	n, err := s.client.Exists(ctx, s.keys.player(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrPlayerNotFound
	}
	return nil
}

// mutatePlayer applies fn to the stored player document under WATCH. fn may queue
// extra index writes on pipe; they commit together with the document.
func (s *Storage) mutatePlayer(ctx context.Context, id model.PlayerID, fn func(*model.Player, redis.Pipeliner)) error {
	key := s.keys.player(id)

	for attempt := 0; attempt < s.cfg.MaxTxRetries; attempt++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					return model.ErrPlayerNotFound
				}
				return err
			}

			var player model.Player
			if err := json.Unmarshal(data, &player); err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				fn(&player, pipe)
				updated, err := marshalPlayer(&player)
				if err != nil {
					return err
				}
				pipe.Set(ctx, key, updated, 0)
				return nil
			})
			return err
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}

	return fmt.Errorf("player %s: %d conflicting writers: %w", id, s.cfg.MaxTxRetries, redis.TxFailedErr)
}

// marshalPlayer encodes the player document without the busy reference, which is
// owned by its own key
func marshalPlayer(player *model.Player) ([]byte, error) {
	doc := *player
	doc.BusySession = ""
	return json.Marshal(&doc)
}
