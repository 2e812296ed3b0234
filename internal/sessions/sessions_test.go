package sessions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounter_JoinLeave(t *testing.T) {
	c := NewCounter()
	id := ID{ServerID: 1, LevelID: 100, Uniq: 1}

	assert.Equal(t, 1, c.Join(id))
	assert.Equal(t, 2, c.Join(id))
	assert.Equal(t, 1, c.Leave(id))
	assert.Equal(t, 0, c.Leave(id))
	assert.Equal(t, 0, c.Count(id))
}

func TestCounter_EntryRemovedAtZero(t *testing.T) {
	c := NewCounter()
	id := ID{ServerID: 1, LevelID: 100, Uniq: 1}

	c.Join(id)
	assert.Equal(t, 1, c.Len())

	c.Leave(id)
	assert.Equal(t, 0, c.Len())
}

func TestCounter_LeaveWithoutJoinIsNoop(t *testing.T) {
	c := NewCounter()
	id := ID{ServerID: 1, LevelID: 100, Uniq: 1}
	assert.Equal(t, 0, c.Leave(id))
}

func TestCounter_DistinctIDsDoNotInterfere(t *testing.T) {
	c := NewCounter()
	a := ID{ServerID: 1, LevelID: 100, Uniq: 1}
	b := ID{ServerID: 1, LevelID: 100, Uniq: 2}

	c.Join(a)
	c.Join(a)
	c.Join(b)

	assert.Equal(t, 2, c.Count(a))
	assert.Equal(t, 1, c.Count(b))
}

func TestPackUnpack_RoundTrip(t *testing.T) {
	id := ID{ServerID: 3, LevelID: 100_000, Uniq: 0xABCDEF}
	assert.Equal(t, id, Unpack(Pack(id)))
}

func TestPack_Zero(t *testing.T) {
	assert.Equal(t, uint64(0), Pack(ID{}))
}

func TestValidate_RoomMismatch(t *testing.T) {
	id := ID{ServerID: 1}
	err := Validate(id, 100000, 200000, func(uint8) bool { return true })
	assert.ErrorIs(t, err, ErrRoomMismatch)
}

func TestValidate_InactiveServer(t *testing.T) {
	id := ID{ServerID: 9}
	err := Validate(id, 100000, 100000, func(uint8) bool { return false })
	assert.ErrorIs(t, err, ErrServerMismatch)
}

func TestValidate_OK(t *testing.T) {
	id := ID{ServerID: 1}
	err := Validate(id, 100000, 100000, func(uint8) bool { return true })
	assert.NoError(t, err)
}
