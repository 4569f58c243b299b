// Package turn decides whether a move may be applied to a session.
package turn

import (
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/model"
)

// Validate accepts or rejects a move by mover against the current session.
// It checks, in order: the session still accepts moves, it is mover's turn, and
// the update hands the turn to one of the two participants. Board contents are
// opaque and never inspected.
func Validate(session *model.Session, mover model.PlayerID, update model.MoveUpdate) error {
	if session.IsConcluded() {
		return model.ErrSessionConcluded
	}
	if session.NextMove != mover {
		return model.ErrWrongTurn
	}
	if !session.HasParticipant(update.NextMove) {
		return model.ErrInvalidUpdate
	}
	return nil
}
