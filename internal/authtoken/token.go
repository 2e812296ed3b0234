// Package authtoken issues and validates self-signed user tokens handed out
// after a successful login (oracle or plain password), so a client can
// reconnect without re-running the full login handshake.
package authtoken

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims embeds the registered claims plus the identity fields this server
// needs on every reconnect: account id, username, and the role string as
// stored on the user record (see internal/roles).
type Claims struct {
	AccountID int32  `json:"aid"`
	UserID    int32  `json:"uid"`
	Username  string `json:"username"`
	RoleStr   string `json:"role_str"`
	jwt.RegisteredClaims
}

// Validator validates and issues HMAC-signed user tokens. Unlike the
// teacher's Auth0-backed validator, there is no remote JWKS issuer here: this
// server is both the issuer and the verifier.
type Validator struct {
	secret []byte
	ttl    time.Duration
}

// NewValidator builds a Validator from a configured HMAC secret. ttl is the
// lifetime assigned to freshly issued tokens (zero means no expiry is set).
func NewValidator(secret string, ttl time.Duration) *Validator {
	return &Validator{secret: []byte(secret), ttl: ttl}
}

// Issue signs a new token embedding the given identity.
func (v *Validator) Issue(accountID, userID int32, username, roleStr string) (string, error) {
	now := time.Now()
	claims := &Claims{
		AccountID: accountID,
		UserID:    userID,
		Username:  username,
		RoleStr:   roleStr,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  strconv.Itoa(int(accountID)),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if v.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(v.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("signing user token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a previously issued token.
func (v *Validator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing user token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("user token is invalid")
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("failed to cast claims")
	}
	return claims, nil
}
