package mocks

import (
	"fmt"
	"sync"
	"time"

	"github.com/TanvirAnzum/tic-tac-toe-server/internal/dependencies/ids"
)

// MockIDs is a mock implementation of ids.Generator for testing.
// Queued values are returned first; afterwards predictable counters are used.
type MockIDs struct {
	mu sync.Mutex

	sessionIDs []string
	playerIDs  []string
	tokens     []string

	sessionCount int
	playerCount  int
	tokenCount   int
}

// Ensure MockIDs implements Generator
var _ ids.Generator = (*MockIDs)(nil)

// NewMockIDs creates a new MockIDs
func NewMockIDs() *MockIDs {
	return &MockIDs{}
}

// SessionID returns the next queued session id or "session-N"
func (m *MockIDs) SessionID(time.Time) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionCount++
	return next(&m.sessionIDs, fmt.Sprintf("session-%d", m.sessionCount))
}

// PlayerID returns the next queued player id or "player-N"
func (m *MockIDs) PlayerID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playerCount++
	return next(&m.playerIDs, fmt.Sprintf("player-%d", m.playerCount))
}

// Token returns the next queued token or "token-N"
func (m *MockIDs) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenCount++
	return next(&m.tokens, fmt.Sprintf("token-%d", m.tokenCount))
}

// QueueSessionID adds values to the session id queue
func (m *MockIDs) QueueSessionID(values ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionIDs = append(m.sessionIDs, values...)
}

// QueuePlayerID adds values to the player id queue
func (m *MockIDs) QueuePlayerID(values ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playerIDs = append(m.playerIDs, values...)
}

// QueueToken adds values to the token queue
func (m *MockIDs) QueueToken(values ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = append(m.tokens, values...)
}

func next(queue *[]string, fallback string) string {
	if len(*queue) == 0 {
		return fallback
	}
	v := (*queue)[0]
	*queue = (*queue)[1:]
	return v
}
