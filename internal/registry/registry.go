// Package registry implements the concurrent client registry keyed by both
// account id and lowercased username, used to detect and displace duplicate
// logins.
//
// Entries are held as weak pointers (the standard library's weak package):
// the registry never keeps a client state alive by itself. A client whose
// owning connection task exits becomes collectible, and its registry
// entries resolve to nil until the next Vacuum sweeps them out. This
// mirrors the original design's "registries hold weak references, slab
// slots hold strong ones" split without needing a hand-rolled reference
// count.
package registry

import (
	"strings"
	"sync"
	"weak"
)

// Registry maps account ids and lowercased usernames to weakly-held client
// handles. T is the connection's client-state type.
type Registry[T any] struct {
	mu         sync.RWMutex
	byAccount  map[int32]weak.Pointer[T]
	byUsername map[string]weak.Pointer[T]
}

// New constructs an empty Registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{
		byAccount:  make(map[int32]weak.Pointer[T]),
		byUsername: make(map[string]weak.Pointer[T]),
	}
}

// Insert registers client under accountID and the lowercased username,
// returning the previously registered live client (if any) so the caller
// can displace it with a "duplicate login" disconnect.
func (r *Registry[T]) Insert(accountID int32, username string, client *T) (previous *T, hadPrevious bool) {
	key := strings.ToLower(username)

	r.mu.Lock()
	defer r.mu.Unlock()

	if ref, ok := r.byAccount[accountID]; ok {
		if old := ref.Value(); old != nil {
			previous, hadPrevious = old, true
		}
	}

	ptr := weak.Make(client)
	r.byAccount[accountID] = ptr
	r.byUsername[key] = ptr
	return previous, hadPrevious
}

// Remove deletes the entries for accountID/username, but only if they
// still point at client — a stale removal from an already-displaced
// connection must not evict the client that displaced it.
func (r *Registry[T]) Remove(accountID int32, username string, client *T) bool {
	key := strings.ToLower(username)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := false
	if ref, ok := r.byAccount[accountID]; ok && ref.Value() == client {
		delete(r.byAccount, accountID)
		removed = true
	}
	if ref, ok := r.byUsername[key]; ok && ref.Value() == client {
		delete(r.byUsername, key)
		removed = true
	}
	return removed
}

// GetByAccount resolves the live client registered for accountID, if any.
func (r *Registry[T]) GetByAccount(accountID int32) (*T, bool) {
	r.mu.RLock()
	ref, ok := r.byAccount[accountID]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	client := ref.Value()
	return client, client != nil
}

// GetByUsername resolves the live client registered for username
// (case-insensitive), if any.
func (r *Registry[T]) GetByUsername(username string) (*T, bool) {
	key := strings.ToLower(username)
	r.mu.RLock()
	ref, ok := r.byUsername[key]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	client := ref.Value()
	return client, client != nil
}

// Len returns the number of account-keyed entries, live or not yet
// vacuumed.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byAccount)
}

// Vacuum removes entries whose weak pointer has already resolved to nil,
// i.e. whose client state has been collected. Meant to run on a periodic
// timer; also safe to call inline after a known disconnect.
func (r *Registry[T]) Vacuum() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, ref := range r.byAccount {
		if ref.Value() == nil {
			delete(r.byAccount, id)
			removed++
		}
	}
	for name, ref := range r.byUsername {
		if ref.Value() == nil {
			delete(r.byUsername, name)
		}
	}
	return removed
}
