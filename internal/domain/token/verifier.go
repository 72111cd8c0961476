package token

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers any verification failure: bad signature,
// wrong algorithm, expired or malformed token. The policy contract
// treats all of these identically, as deny-everything.
var ErrInvalidToken = errors.New("invalid bridged token")

// Verifier checks bridged tokens against the downstream secret. The
// production evaluator lives inside the data service; this
// implementation exists for the token-forwarded mode, the contract
// tests and local fakes, and must stay behaviorally aligned with it.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("verification secret is empty")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify parses and validates a raw token, returning its claims.
// Expired tokens and signature mismatches fail with ErrInvalidToken.
func (v *Verifier) Verify(raw Bridged) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(string(raw), func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	}, jwt.WithExpirationRequired(), jwt.WithIssuedAt())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	return mapClaims, nil
}

// Subject extracts the claim stored under key, or "" if absent.
func Subject(mapClaims jwt.MapClaims, key string) string {
	if value, ok := mapClaims[key].(string); ok {
		return value
	}
	return ""
}
