package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Generator produces identifiers and opaque credentials; it can be mocked for testing
type Generator interface {
	// SessionID returns a new lexically sortable session identifier
	SessionID(now time.Time) string

	// PlayerID returns a new player identifier
	PlayerID() string

	// Token returns a new opaque credential handle
	Token() string
}

// RandomGenerator implements Generator with ULIDs and random UUIDs
type RandomGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// New creates a new RandomGenerator
func New() *RandomGenerator {
	return &RandomGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// SessionID returns a monotonic ULID for the given time
func (g *RandomGenerator) SessionID(now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), g.entropy).String()
}

// PlayerID returns a prefixed random UUID
func (g *RandomGenerator) PlayerID() string {
	return "p_" + uuid.NewString()
}

// Token returns a random UUID
func (g *RandomGenerator) Token() string {
	return uuid.NewString()
}
