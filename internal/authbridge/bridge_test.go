package authbridge

import (
	"context"
	"testing"
	"time"

	"github.com/globed-io/central/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_NotConnectedReturnsImmediately(t *testing.T) {
	b := New("ws://localhost:1/oracle", "token")

	_, err := b.Validate(context.Background(), 42, "tok")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConnected_InitiallyFalse(t *testing.T) {
	b := New("ws://localhost:1/oracle", "token")
	assert.False(t, b.Connected())
}

func TestDeliverOne_MismatchIsFatal(t *testing.T) {
	b := New("ws://localhost:1/oracle", "token")
	waiter := make(chan Outcome, 1)
	b.fifo = append(b.fifo, pendingEntry{accountID: 1, result: waiter})

	err := b.deliverOne(wire.ValidateResult{AccountID: 2, Valid: true})
	assert.Error(t, err)
}

func TestDeliverOne_MatchDeliversOutcome(t *testing.T) {
	b := New("ws://localhost:1/oracle", "token")
	waiter := make(chan Outcome, 1)
	b.fifo = append(b.fifo, pendingEntry{accountID: 1, result: waiter})

	err := b.deliverOne(wire.ValidateResult{AccountID: 1, Valid: true, UserID: 9, Username: "alice"})
	require.NoError(t, err)

	out := <-waiter
	assert.True(t, out.Valid)
	assert.Equal(t, int32(9), out.UserID)
	assert.Equal(t, "alice", out.Username)
}

func TestFailPending_UnblocksAllWaiters(t *testing.T) {
	b := New("ws://localhost:1/oracle", "token")
	w1 := make(chan Outcome, 1)
	w2 := make(chan Outcome, 1)
	b.fifo = append(b.fifo, pendingEntry{accountID: 1, result: w1}, pendingEntry{accountID: 2, result: w2})

	b.failPending()

	select {
	case out := <-w1:
		assert.False(t, out.Valid)
	case <-time.After(time.Second):
		t.Fatal("w1 was never unblocked")
	}
	select {
	case out := <-w2:
		assert.False(t, out.Valid)
	case <-time.After(time.Second):
		t.Fatal("w2 was never unblocked")
	}
}

func TestCheckAuthAck_RejectsFatalError(t *testing.T) {
	assert.Error(t, checkAuthAck([]byte{3}))
	assert.Error(t, checkAuthAck([]byte{4}))
	assert.NoError(t, checkAuthAck([]byte{2}))
}
