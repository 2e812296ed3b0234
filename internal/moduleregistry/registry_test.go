package moduleregistry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type widget struct{ name string }

type greeter interface{ Greet() string }

type englishGreeter struct{}

func (englishGreeter) Greet() string { return "hello" }

func TestRegisterAndGet_ConcreteType(t *testing.T) {
	r := New()
	Register(r, &widget{name: "gizmo"})

	got := Get[*widget](r)
	assert.Equal(t, "gizmo", got.name)
}

func TestRegisterAndGet_InterfaceType(t *testing.T) {
	r := New()
	Register[greeter](r, englishGreeter{})

	got := Get[greeter](r)
	assert.Equal(t, "hello", got.Greet())
}

func TestRegister_DuplicateTypePanics(t *testing.T) {
	r := New()
	Register(r, &widget{name: "a"})

	assert.Panics(t, func() {
		Register(r, &widget{name: "b"})
	})
}

func TestRegister_AfterFreezePanics(t *testing.T) {
	r := New()
	r.Freeze()

	assert.Panics(t, func() {
		Register(r, &widget{name: "a"})
	})
}

func TestGet_MissingTypePanics(t *testing.T) {
	r := New()
	assert.Panics(t, func() {
		Get[*widget](r)
	})
}

func TestGet_MissingTypePanicsAfterFreeze(t *testing.T) {
	r := New()
	r.Freeze()

	assert.Panics(t, func() {
		Get[*widget](r)
	})
}

func TestFrozen_ReflectsState(t *testing.T) {
	r := New()
	assert.False(t, r.Frozen())
	r.Freeze()
	assert.True(t, r.Frozen())
}
