package notifier

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/TanvirAnzum/tic-tac-toe-server/internal/model"
	"github.com/TanvirAnzum/tic-tac-toe-server/internal/observability"
)

func newTestHub(t *testing.T) (*Hub, *observability.Metrics) {
	t.Helper()
	metrics := observability.Discard()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), metrics)
	go hub.Run()
	return hub, metrics
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-c.Messages():
		require.True(t, ok, "client channel closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestHubBroadcastReachesEveryClient(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub, metrics := newTestHub(t)
	defer hub.Close()

	a := NewClient(TransportSSE)
	b := NewClient(TransportWebSocket)
	require.True(t, hub.Register(a))
	require.True(t, hub.Register(b))
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Observers.WithLabelValues(TransportSSE)))

	require.True(t, hub.Broadcast(Message{Event: model.EventMove, Data: []byte(`{"session_id":"s1"}`)}))

	for _, c := range []*Client{a, b} {
		msg := receive(t, c)
		assert.Equal(t, model.EventMove, msg.Event)
		assert.JSONEq(t, `{"session_id":"s1"}`, string(msg.Data))
	}
}

func TestHubNoReplayForLateJoiners(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub, _ := newTestHub(t)
	defer hub.Close()

	early := NewClient(TransportSSE)
	require.True(t, hub.Register(early))
	require.True(t, hub.Broadcast(Message{Event: model.EventMove, Data: []byte(`1`)}))
	receive(t, early)

	late := NewClient(TransportSSE)
	require.True(t, hub.Register(late))
	require.True(t, hub.Broadcast(Message{Event: model.EventMove, Data: []byte(`2`)}))

	assert.Equal(t, "2", string(receive(t, late).Data))
	assert.Equal(t, "2", string(receive(t, early).Data))
}

func TestHubSkipsQueuedMessagesForLateJoiners(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Run picks between pending registrations and queued broadcasts at random,
	// so repeat to cover both orders
	for i := 0; i < 20; i++ {
		hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), observability.Discard())

		// Queued before the hub loop runs, so still pending when the client registers
		require.True(t, hub.Broadcast(Message{Event: model.EventMove, Data: []byte(`1`)}))

		late := NewClient(TransportSSE)
		registered := make(chan bool, 1)
		go func() { registered <- hub.Register(late) }()
		go hub.Run()
		require.True(t, <-registered)

		require.True(t, hub.Broadcast(Message{Event: model.EventMove, Data: []byte(`2`)}))
		assert.Equal(t, "2", string(receive(t, late).Data))

		hub.Close()
	}
}

func TestHubUnregisterClosesClient(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub, metrics := newTestHub(t)
	defer hub.Close()

	c := NewClient(TransportSSE)
	require.True(t, hub.Register(c))
	hub.Unregister(c)

	_, ok := <-c.Messages()
	assert.False(t, ok)
	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.Observers.WithLabelValues(TransportSSE)))

	// Unregistering twice is harmless
	hub.Unregister(c)
}

func TestHubCloseDisconnectsClientsAndRejectsNewOnes(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub, _ := newTestHub(t)
	c := NewClient(TransportWebSocket)
	require.True(t, hub.Register(c))

	hub.Close()
	hub.Close()

	_, ok := <-c.Messages()
	assert.False(t, ok)
	assert.False(t, hub.Register(NewClient(TransportSSE)))
	assert.False(t, hub.Broadcast(Message{Event: model.EventMove}))
	hub.Unregister(c)
}

func TestHubDropsForFullClient(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub, _ := newTestHub(t)
	defer hub.Close()

	slow := NewClient(TransportSSE)
	fast := NewClient(TransportSSE)
	require.True(t, hub.Register(slow))
	require.True(t, hub.Register(fast))

	// Fill the slow client's buffer without reading
	for i := 0; i < sendBufferSize; i++ {
		slow.send <- Message{Event: model.EventMove}
	}

	require.True(t, hub.Broadcast(Message{Event: model.EventMove, Data: []byte(`"x"`)}))
	assert.Equal(t, `"x"`, string(receive(t, fast).Data))
	assert.Len(t, slow.send, sendBufferSize)
}
