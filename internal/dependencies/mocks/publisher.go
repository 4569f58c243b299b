package mocks

import (
	"context"
	"sync"

	"github.com/TanvirAnzum/tic-tac-toe-server/internal/model"
)

// MockPublisher records every publish attempt. FailWith makes later attempts
// return an error; the attempt is still recorded.
type MockPublisher struct {
	mu     sync.Mutex
	events []model.MoveEvent
	err    error
}

// NewMockPublisher creates a new MockPublisher
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// Publish records the event
func (p *MockPublisher) Publish(_ context.Context, event model.MoveEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

// Events returns a copy of the recorded attempts
func (p *MockPublisher) Events() []model.MoveEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.MoveEvent, len(p.events))
	copy(out, p.events)
	return out
}

// FailWith sets the error returned by subsequent publishes
func (p *MockPublisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}
