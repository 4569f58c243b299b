package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextTimestamp(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		prev time.Time
		now  time.Time
		want time.Time
	}{
		{"clock moved forward", base, base.Add(time.Second), base.Add(time.Second)},
		{"clock stood still", base, base, base.Add(time.Millisecond)},
		{"clock went backwards", base, base.Add(-time.Minute), base.Add(time.Millisecond)},
		{"sub-millisecond truncated", base, base.Add(1500 * time.Microsecond), base.Add(time.Millisecond)},
		{"zero prev", time.Time{}, base, base},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextTimestamp(tt.prev, tt.now)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
			assert.True(t, got.After(tt.prev))
		})
	}
}

func TestMoveUpdateApply(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := &Session{
		ID:        "s1",
		Initiator: "alice",
		Opponent:  "bob",
		NextMove:  "alice",
		Board:     json.RawMessage(`["","",""]`),
	}

	MoveUpdate{Board: json.RawMessage(`["X","",""]`), NextMove: "bob"}.Apply(s, ts)
	assert.JSONEq(t, `["X","",""]`, string(s.Board))
	assert.Equal(t, PlayerID("bob"), s.NextMove)
	assert.Empty(t, s.Status)
	assert.Equal(t, ts, s.Timestamp)

	// Empty fields keep the stored value
	MoveUpdate{NextMove: "alice", Status: StatusConcluded}.Apply(s, ts.Add(time.Second))
	assert.JSONEq(t, `["X","",""]`, string(s.Board))
	assert.True(t, s.IsConcluded())

	assert.Equal(t, SessionID("s1"), s.ID)
	assert.Equal(t, PlayerID("alice"), s.Initiator)
	assert.Equal(t, PlayerID("bob"), s.Opponent)
}

func TestSessionParticipants(t *testing.T) {
	s := &Session{Initiator: "alice", Opponent: "bob"}

	assert.True(t, s.HasParticipant("alice"))
	assert.True(t, s.HasParticipant("bob"))
	assert.False(t, s.HasParticipant("carol"))
	assert.False(t, s.HasParticipant(""))
	assert.Equal(t, []PlayerID{"alice", "bob"}, s.Participants())
}

func TestMoveEventFromResult(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	event := MoveEventFromResult(&UpdateResult{
		SessionID: "s1",
		Board:     json.RawMessage(`[1]`),
		NextMove:  "bob",
		Status:    StatusConcluded,
		Timestamp: ts,
	})

	assert.Equal(t, MoveEvent{SessionID: "s1", Board: json.RawMessage(`[1]`), NextMove: "bob", Timestamp: ts}, event)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, CodeWrongTurn, ErrorCode(ErrWrongTurn))
	assert.Equal(t, CodePlayerBusy, ErrorCode(fmt.Errorf("create: %w", ErrPlayerBusy)))
	assert.Empty(t, ErrorCode(errors.New("boom")))
	assert.Empty(t, ErrorCode(nil))
}

func TestStoreUnavailable(t *testing.T) {
	assert.NoError(t, StoreUnavailable(nil))

	cause := errors.New("connection refused")
	err := StoreUnavailable(cause)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeStoreUnavailable, ErrorCode(err))

	// Known kinds pass through untouched
	assert.Equal(t, ErrSessionNotFound, StoreUnavailable(ErrSessionNotFound))
}
