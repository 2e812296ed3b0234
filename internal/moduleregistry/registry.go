// Package moduleregistry is a type-indexed, freeze-after-init container for
// the server's singletons (roles table, repository, analytics sink, credits,
// word filter, auth bridge, room manager, client registry, session counter,
// fleet manager, token validator).
// Lookups after Freeze are lock-free; a missing type at lookup time is
// treated as a programming error, not a runtime failure.
package moduleregistry

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

// Registry holds one value per registered type, registered during startup and
// frozen before the server begins serving connections.
type Registry struct {
	mu     sync.Mutex
	values map[reflect.Type]any
	frozen atomic.Bool
}

// New returns an empty, unfrozen Registry.
func New() *Registry {
	return &Registry{values: make(map[reflect.Type]any)}
}

// Register adds v to the registry, keyed by the type parameter T (an
// interface T keys on the interface, not on v's dynamic type). Registering
// the same type twice, or registering after Freeze, panics: both are
// programming errors in startup wiring, never a condition to recover from.
func Register[T any](r *Registry, v T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen.Load() {
		panic(fmt.Sprintf("moduleregistry: Register(%T) called after Freeze", v))
	}

	t := reflect.TypeOf(&v).Elem()
	if _, exists := r.values[t]; exists {
		panic(fmt.Sprintf("moduleregistry: %s already registered", t))
	}
	r.values[t] = v
}

// Freeze makes the registry immutable. Get becomes lock-free after this
// call returns.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen.Store(true)
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

// Get returns the registered value of type T. It panics if T was never
// registered: callers ask for modules they know must exist by the time the
// server is running, so a miss here means a startup wiring bug.
func Get[T any](r *Registry) T {
	var zero T
	t := reflect.TypeOf(&zero).Elem()

	if !r.frozen.Load() {
		r.mu.Lock()
		defer r.mu.Unlock()
	}

	v, ok := r.values[t]
	if !ok {
		panic(fmt.Sprintf("moduleregistry: no module of type %s registered", t))
	}
	return v.(T)
}
