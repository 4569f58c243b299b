package session

import (
	"sync"
	"time"

	"github.com/TanvirAnzum/tic-tac-toe-server/internal/dependencies/clock"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/model"
)

// stamper issues session timestamps that strictly increase across every write
// made through one Manager, so a new session always sorts after any session
// touched before it, even within the same millisecond.
type stamper struct {
	clock clock.Clock

	mu   sync.Mutex
	last time.Time
}

// next returns a timestamp after both prev and every timestamp issued so far
func (s *stamper) next(prev time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	floor := prev
	if s.last.After(floor) {
		floor = s.last
	}
	s.last = model.NextTimestamp(floor, s.clock.Now())
	return s.last
}
