package rooms

import (
	"errors"
	"math/rand"
	"sync"
)

// room ids are drawn from this half-open range, never colliding with an id
// already in use.
const (
	minRoomID uint32 = 100000
	maxRoomID uint32 = 1000000
)

var ErrRoomNotFound = errors.New("rooms: room not found")

// Manager owns the set of live rooms, including the global room that every
// client force-joins after login.
type Manager struct {
	mu    sync.RWMutex
	rooms map[uint32]*Room
	rng   *rand.Rand
}

// NewManager constructs a Manager with the global room already created.
func NewManager() *Manager {
	m := &Manager{
		rooms: make(map[uint32]*Room),
		rng:   rand.New(rand.NewSource(1)),
	}
	global, _ := New(GlobalRoomID, "global", 0, 0)
	m.rooms[GlobalRoomID] = global
	return m
}

// Global returns the global room.
func (m *Manager) Global() *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[GlobalRoomID]
}

// Get returns the room with the given id, if it exists.
func (m *Manager) Get(id uint32) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// Create allocates a non-colliding room id in [minRoomID, maxRoomID) and
// registers a new room under it.
func (m *Manager) Create(name string, passcode uint32, serverID uint8) (*Room, error) {
	if len(name) > MaxRoomNameLen {
		return nil, ErrNameTooLong
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextFreeIDLocked()
	room, err := New(id, name, passcode, serverID)
	if err != nil {
		return nil, err
	}
	m.rooms[id] = room
	return room, nil
}

func (m *Manager) nextFreeIDLocked() uint32 {
	span := maxRoomID - minRoomID
	for {
		candidate := minRoomID + uint32(m.rng.Int63n(int64(span)))
		if _, taken := m.rooms[candidate]; !taken {
			return candidate
		}
	}
}

// Close removes a non-global room. Callers are expected to have already
// evicted its players (e.g. moved them to the global room).
func (m *Manager) Close(id uint32) error {
	if id == GlobalRoomID {
		return errors.New("rooms: the global room cannot be closed")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rooms[id]; !ok {
		return ErrRoomNotFound
	}
	delete(m.rooms, id)
	return nil
}

// Count returns the number of live rooms, including the global room.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// All returns a snapshot of every live room. Used by the scheduled invite
// token sweeper and by room-state sampling.
func (m *Manager) All() []*Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	return out
}
