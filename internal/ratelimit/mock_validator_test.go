package ratelimit

import (
	"fmt"

	"github.com/globed-io/central/internal/authtoken"
)

// MockValidator is a mock TokenValidator for testing.
type MockValidator struct {
	ValidateTokenFunc func(tokenString string) (*authtoken.Claims, error)
}

func (m *MockValidator) ValidateToken(tokenString string) (*authtoken.Claims, error) {
	if m.ValidateTokenFunc != nil {
		return m.ValidateTokenFunc(tokenString)
	}
	return nil, fmt.Errorf("invalid token")
}
