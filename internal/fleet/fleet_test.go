package fleet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_AssignsDenseIDs(t *testing.T) {
	m := NewManager()
	s0, err := m.Register("gs1", "Server 1", "us", "1.1.1.1:1000")
	require.NoError(t, err)
	assert.Equal(t, uint8(0), s0.ID)

	s1, err := m.Register("gs2", "Server 2", "eu", "2.2.2.2:1000")
	require.NoError(t, err)
	assert.Equal(t, uint8(1), s1.ID)

	assert.Len(t, m.Snapshot(), 2)
}

func TestRegister_ReusesFreedID(t *testing.T) {
	m := NewManager()
	s0, _ := m.Register("gs1", "Server 1", "us", "addr1")
	m.Deregister(s0.ID)

	s1, err := m.Register("gs2", "Server 2", "us", "addr2")
	require.NoError(t, err)
	assert.Equal(t, uint8(0), s1.ID)
}

func TestRegister_FullFleetRejected(t *testing.T) {
	m := NewManager()
	for i := 0; i < MaxServers; i++ {
		_, err := m.Register("gs", "Server", "us", "addr")
		require.NoError(t, err)
	}
	_, err := m.Register("overflow", "Overflow", "us", "addr")
	assert.ErrorIs(t, err, ErrFleetFull)
}

func TestIsActive(t *testing.T) {
	m := NewManager()
	s0, _ := m.Register("gs1", "Server 1", "us", "addr1")
	assert.True(t, m.IsActive(s0.ID))
	assert.False(t, m.IsActive(99))
}

func TestAwaitRoomCreated_ResolvedSuccessfully(t *testing.T) {
	m := NewManager()
	done := make(chan error, 1)
	go func() {
		done <- m.AwaitRoomCreated(42, time.Second)
	}()

	// give the waiter a moment to register
	time.Sleep(10 * time.Millisecond)
	m.ResolveRoomCreated(42, nil)

	err := <-done
	assert.NoError(t, err)
}

func TestAwaitRoomCreated_Timeout(t *testing.T) {
	m := NewManager()
	err := m.AwaitRoomCreated(7, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrRoomCreateTimeout)
}

func TestResolveRoomCreated_NoWaiterIsNoop(t *testing.T) {
	m := NewManager()
	assert.NotPanics(t, func() { m.ResolveRoomCreated(123, nil) })
}

func TestDeregister_RemovesFromSnapshot(t *testing.T) {
	m := NewManager()
	s0, _ := m.Register("gs1", "Server 1", "us", "addr1")
	m.Deregister(s0.ID)
	assert.Len(t, m.Snapshot(), 0)
}
