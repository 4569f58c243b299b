package factory

import (
	"time"

	"github.com/TanvirAnzum/tic-tac-toe-server/internal/dependencies/mocks"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/notifier"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/observability"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/services/identity"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/storage"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/storage/memory"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock     *mocks.MockClock
	MockIDs       *mocks.MockIDs
	MockPublisher *mocks.MockPublisher
}

// NewTestApp creates an App over memory storage with mocked clock, ids and
// publisher. The hub is created but not running.
func NewTestApp() *TestApp {
	return NewTestAppWithStorage(memory.New())
}

// NewTestAppWithStorage is NewTestApp over the given store
func NewTestAppWithStorage(store storage.Storage) *TestApp {
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockIDs := mocks.NewMockIDs()
	mockPublisher := mocks.NewMockPublisher()
	metrics := observability.Discard()
	logger := testutil.NopLogger()

	app := newWithDependencies(store, mockClock, mockIDs, identity.Config{
		AccessTokenTTL: time.Hour,
		BcryptCost:     testutil.BcryptCost,
	}, logger, metrics, notifier.NewHub(logger, metrics), mockPublisher)

	return &TestApp{
		App:           app,
		MockClock:     mockClock,
		MockIDs:       mockIDs,
		MockPublisher: mockPublisher,
	}
}
