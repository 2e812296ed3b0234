package registry

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	name string
}

func TestInsert_NoPreviousOnFirstLogin(t *testing.T) {
	r := New[fakeClient]()
	c := &fakeClient{name: "alice"}

	_, had := r.Insert(1, "Alice", c)
	assert.False(t, had)
}

func TestInsert_ReturnsPreviousOnDuplicateLogin(t *testing.T) {
	r := New[fakeClient]()
	first := &fakeClient{name: "alice-conn-a"}
	second := &fakeClient{name: "alice-conn-b"}

	_, had := r.Insert(1, "alice", first)
	require.False(t, had)

	prev, had := r.Insert(1, "alice", second)
	require.True(t, had)
	assert.Same(t, first, prev)

	got, ok := r.GetByAccount(1)
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestGetByUsername_CaseInsensitive(t *testing.T) {
	r := New[fakeClient]()
	c := &fakeClient{name: "bob"}
	r.Insert(2, "BoB", c)

	got, ok := r.GetByUsername("bob")
	require.True(t, ok)
	assert.Same(t, c, got)
}

func TestRemove_OnlyRemovesIfStillCurrent(t *testing.T) {
	r := New[fakeClient]()
	first := &fakeClient{name: "a"}
	second := &fakeClient{name: "b"}

	r.Insert(1, "alice", first)
	r.Insert(1, "alice", second) // displaces first

	// first's own cleanup runs after it already lost the registry slot;
	// it must not evict second.
	removed := r.Remove(1, "alice", first)
	assert.False(t, removed)

	got, ok := r.GetByAccount(1)
	require.True(t, ok)
	assert.Same(t, second, got)

	removed = r.Remove(1, "alice", second)
	assert.True(t, removed)

	_, ok = r.GetByAccount(1)
	assert.False(t, ok)
}

func TestVacuum_CollectsDeadEntries(t *testing.T) {
	r := New[fakeClient]()

	func() {
		c := &fakeClient{name: "ephemeral"}
		r.Insert(5, "ephemeral", c)
	}()

	// Drop the only strong reference and force a collection so the weak
	// pointer resolves to nil.
	runtime.GC()
	runtime.GC()

	r.Vacuum()

	_, ok := r.GetByAccount(5)
	assert.False(t, ok)
}

func TestVacuum_KeepsLiveEntries(t *testing.T) {
	r := New[fakeClient]()
	c := &fakeClient{name: "alive"}
	r.Insert(6, "alive", c)

	runtime.GC()
	r.Vacuum()

	got, ok := r.GetByAccount(6)
	assert.True(t, ok)
	assert.Same(t, c, got)
}
