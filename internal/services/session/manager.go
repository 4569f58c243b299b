// Package session owns the session lifecycle: pairing two players, applying
// moves in turn order, concluding sessions and repairing busy references.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/TanvirAnzum/tic-tac-toe-server/internal/dependencies/clock"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/dependencies/ids"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/errutil"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/model"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/notifier"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/observability"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/services/turn"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/storage"
)

// Players is the identity side the manager depends on
type Players interface {
	FindPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	ListPlayers(ctx context.Context) ([]*model.Player, error)
	AcquireBusy(ctx context.Context, id model.PlayerID, sessionID model.SessionID) (bool, error)
	ReleaseBusy(ctx context.Context, id model.PlayerID, sessionID model.SessionID) (bool, error)
	SetBusy(ctx context.Context, id model.PlayerID, sessionID model.SessionID) error
}

// errAlreadyConcluded aborts a finish write on a session that is already concluded
var errAlreadyConcluded = errors.New("session already concluded")

// Manager runs the session lifecycle. It holds no locks of its own: busy
// references are taken with compare-and-set and moves are validated inside the
// store's atomic read-modify-write.
type Manager struct {
	sessions  storage.SessionStore
	players   Players
	publisher notifier.Publisher
	stamps    *stamper
	ids       ids.Generator
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewManager creates a new session Manager
func NewManager(
	sessions storage.SessionStore,
	players Players,
	publisher notifier.Publisher,
	clock clock.Clock,
	ids ids.Generator,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		sessions:  sessions,
		players:   players,
		publisher: publisher,
		stamps:    &stamper{clock: clock},
		ids:       ids,
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "session")),
	}
}

// Create pairs initiator and opponent in a new session. The initiator moves first.
func (m *Manager) Create(ctx context.Context, initiator, opponent model.PlayerID, board json.RawMessage) (*model.Session, error) {
	session, err := m.create(ctx, initiator, opponent, board)
	if err != nil {
		m.metrics.SessionsCreated.WithLabelValues(model.ErrorCode(err)).Inc()
		return nil, err
	}
	m.metrics.SessionsCreated.WithLabelValues("ok").Inc()
	return session, nil
}

func (m *Manager) create(ctx context.Context, initiator, opponent model.PlayerID, board json.RawMessage) (*model.Session, error) {
	initiatorPlayer, err := m.players.FindPlayer(ctx, initiator)
	if err != nil {
		return nil, wrap(model.StoreUnavailable(err), "player_id", initiator)
	}
	opponentPlayer, err := m.players.FindPlayer(ctx, opponent)
	if err != nil {
		return nil, wrap(model.StoreUnavailable(err), "player_id", opponent)
	}

	if initiator == opponent {
		return nil, wrap(model.ErrSelfPlayNotAllowed, "player_id", initiator)
	}

	for _, p := range []*model.Player{initiatorPlayer, opponentPlayer} {
		if p.IsBusy() {
			return nil, wrap(model.ErrPlayerBusy, "player_id", p.ID, "busy_session", p.BusySession)
		}
	}

	now := m.stamps.next(time.Time{})
	id := model.SessionID(m.ids.SessionID(now))

	// Busy references are claimed before the session becomes visible, so a
	// player can never appear in two in-progress sessions.
	ok, err := m.players.AcquireBusy(ctx, initiator, id)
	if err != nil {
		return nil, wrap(model.StoreUnavailable(err), "player_id", initiator, "session_id", id)
	}
	if !ok {
		return nil, wrap(model.ErrPlayerBusy, "player_id", initiator, "session_id", id)
	}

	ok, err = m.players.AcquireBusy(ctx, opponent, id)
	if err != nil || !ok {
		m.release(ctx, id, initiator)
		if err != nil {
			return nil, wrap(model.StoreUnavailable(err), "player_id", opponent, "session_id", id)
		}
		return nil, wrap(model.ErrPlayerBusy, "player_id", opponent, "session_id", id)
	}

	session := &model.Session{
		ID:        id,
		Initiator: initiator,
		Opponent:  opponent,
		NextMove:  initiator,
		Board:     board,
		Timestamp: now,
		CreatedAt: now,
	}

	if err := m.sessions.InsertSession(ctx, session); err != nil {
		m.release(ctx, id, initiator, opponent)
		return nil, wrap(model.StoreUnavailable(err), "session_id", id)
	}

	m.logger.Info("session created",
		slog.String("session_id", string(id)),
		slog.String("initiator", string(initiator)),
		slog.String("opponent", string(opponent)),
	)

	return session, nil
}

// ApplyMove validates and stores a move by mover. The turn check runs against the
// copy of the session the write replaces, so two concurrent moves cannot both be
// accepted. After the write commits the new board is published to observers; a
// publish failure does not fail the move.
func (m *Manager) ApplyMove(ctx context.Context, id model.SessionID, mover model.PlayerID, update model.MoveUpdate) (*model.UpdateResult, error) {
	updated, err := m.sessions.MutateSession(ctx, id, func(s *model.Session) error {
		if err := turn.Validate(s, mover, update); err != nil {
			return err
		}
		update.Apply(s, m.stamps.next(s.Timestamp))
		return nil
	})
	if err != nil {
		err = wrap(model.StoreUnavailable(err), "session_id", id, "player_id", mover)
		if errors.Is(err, model.ErrStoreUnavailable) {
			m.metrics.MovesTotal.WithLabelValues(observability.MoveFailed).Inc()
			errutil.LogError(m.logger, "move not stored", err)
		} else {
			m.metrics.MovesTotal.WithLabelValues(observability.MoveRejected).Inc()
		}
		return nil, err
	}
	m.metrics.MovesTotal.WithLabelValues(observability.MoveAccepted).Inc()

	result := &model.UpdateResult{
		SessionID: updated.ID,
		Board:     updated.Board,
		NextMove:  updated.NextMove,
		Status:    updated.Status,
		Timestamp: updated.Timestamp,
	}

	m.logger.Info("move applied",
		slog.String("session_id", string(id)),
		slog.String("player_id", string(mover)),
		slog.String("next_move", string(result.NextMove)),
	)

	if update.Concludes() {
		m.release(ctx, updated.ID, updated.Participants()...)
		m.metrics.SessionsFinished.Inc()
	}

	m.publish(ctx, result)
	return result, nil
}

// Get returns a session by id
func (m *Manager) Get(ctx context.Context, id model.SessionID) (*model.Session, error) {
	session, err := m.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, wrap(model.StoreUnavailable(err), "session_id", id)
	}
	return session, nil
}

// List returns every session player participates in, most recent first
func (m *Manager) List(ctx context.Context, player model.PlayerID) ([]*model.Session, error) {
	sessions, err := m.sessions.ListSessionsByPlayer(ctx, player)
	if err != nil {
		return nil, wrap(model.StoreUnavailable(err), "player_id", player)
	}
	return sessions, nil
}

// Finish concludes a session on behalf of one of its participants and frees both
// players. Finishing an already concluded session returns it unchanged.
func (m *Manager) Finish(ctx context.Context, id model.SessionID, player model.PlayerID) (*model.Session, error) {
	updated, err := m.sessions.MutateSession(ctx, id, func(s *model.Session) error {
		if !s.HasParticipant(player) {
			return model.ErrNotParticipant
		}
		if s.IsConcluded() {
			return errAlreadyConcluded
		}
		s.Status = model.StatusConcluded
		s.Timestamp = m.stamps.next(s.Timestamp)
		return nil
	})

	switch {
	case errors.Is(err, errAlreadyConcluded):
		updated, err = m.sessions.GetSession(ctx, id)
		if err != nil {
			return nil, wrap(model.StoreUnavailable(err), "session_id", id)
		}
	case err != nil:
		return nil, wrap(model.StoreUnavailable(err), "session_id", id, "player_id", player)
	default:
		m.metrics.SessionsFinished.Inc()
		m.logger.Info("session finished",
			slog.String("session_id", string(id)),
			slog.String("player_id", string(player)),
		)
	}

	// Release again on repeat calls; it only clears references still naming this session
	m.release(ctx, updated.ID, updated.Participants()...)
	return updated, nil
}

// Repair records one busy reference overwritten by Reconcile
type Repair struct {
	PlayerID model.PlayerID  `json:"player_id"`
	Previous model.SessionID `json:"previous"`
	Current  model.SessionID `json:"current"`
}

// ReconcileReport summarises a Reconcile run
type ReconcileReport struct {
	Checked  int      `json:"checked"`
	Repaired []Repair `json:"repaired"`
}

// Reconcile recomputes every player's busy reference from the session store: the
// most recent session they are in that is not concluded, or none. Mismatches are
// overwritten.
func (m *Manager) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	players, err := m.players.ListPlayers(ctx)
	if err != nil {
		return nil, wrap(model.StoreUnavailable(err))
	}

	report := &ReconcileReport{Repaired: []Repair{}}
	for _, p := range players {
		sessions, err := m.sessions.ListSessionsByPlayer(ctx, p.ID)
		if err != nil {
			return report, wrap(model.StoreUnavailable(err), "player_id", p.ID)
		}

		var want model.SessionID
		for _, s := range sessions {
			if !s.IsConcluded() {
				want = s.ID
				break
			}
		}

		report.Checked++
		if p.BusySession == want {
			continue
		}

		if err := m.players.SetBusy(ctx, p.ID, want); err != nil {
			return report, wrap(model.StoreUnavailable(err), "player_id", p.ID)
		}
		m.metrics.BusyRepaired.Inc()
		m.logger.Warn("busy reference repaired",
			slog.String("player_id", string(p.ID)),
			slog.String("previous", string(p.BusySession)),
			slog.String("current", string(want)),
		)
		report.Repaired = append(report.Repaired, Repair{PlayerID: p.ID, Previous: p.BusySession, Current: want})
	}

	m.logger.Info("reconcile complete",
		slog.Int("checked", report.Checked),
		slog.Int("repaired", len(report.Repaired)),
	)
	return report, nil
}

// release clears the busy references of players that still name sessionID.
// Failures are logged and left for Reconcile.
func (m *Manager) release(ctx context.Context, sessionID model.SessionID, players ...model.PlayerID) {
	ctx = context.WithoutCancel(ctx)
	for _, p := range players {
		if _, err := m.players.ReleaseBusy(ctx, p, sessionID); err != nil {
			errutil.LogError(m.logger, "busy release failed",
				wrap(model.StoreUnavailable(err), "player_id", p, "session_id", sessionID))
		}
	}
}

func (m *Manager) publish(ctx context.Context, result *model.UpdateResult) {
	if err := m.publisher.Publish(context.WithoutCancel(ctx), model.MoveEventFromResult(result)); err != nil {
		m.logger.Warn("move notification failed",
			slog.String("session_id", string(result.SessionID)),
			slog.String("error", err.Error()),
		)
	}
}

// wrap attaches the error kind's code and the given context to err
func wrap(err error, kv ...any) error {
	return oops.In("session").Code(model.ErrorCode(err)).With(kv...).Wrap(err)
}
