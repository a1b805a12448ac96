// Package token issues and verifies the signed access tokens, and tracks
// tokens revoked by logout until they expire on their own.
package token

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/vehtrack/vehtrack/internal/errs"
	"github.com/vehtrack/vehtrack/internal/model"
)

// Claims carries the authenticated identity inside the JWT.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Manager signs and verifies HS256 access tokens.
type Manager struct {
	signKey   []byte
	accessTTL time.Duration
}

// NewManager constructs a Manager with the given signing key and token TTL.
func NewManager(signKey []byte, accessTTL time.Duration) *Manager {
	return &Manager{signKey: signKey, accessTTL: accessTTL}
}

// Issue creates a signed access token for the account. The token id (jti) is
// a fresh uuid so a single token can be revoked on logout.
func (m *Manager) Issue(email string, role model.Role) (signed string, jti string, exp time.Time, err error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", "", time.Time{}, err
	}
	now := time.Now()
	exp = now.Add(m.accessTTL)
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ID:        id.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err = tok.SignedString(m.signKey)
	return signed, id.String(), exp, err
}

// Verify parses and validates a signed token. Any parse, signature or expiry
// failure maps to errs.ErrUnauthorized; the caller never learns which.
func (m *Manager) Verify(signed string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(signed, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errs.ErrUnauthorized
		}
		return m.signKey, nil
	})
	if err != nil || !tok.Valid {
		return nil, errs.ErrUnauthorized
	}
	if _, err := model.ParseRole(claims.Role); err != nil {
		return nil, errs.ErrUnauthorized
	}
	return claims, nil
}
