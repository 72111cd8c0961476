package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/astro-web3/claims-bridge/internal/domain/claims"
)

// DefaultIssuer is the iss claim stamped on bridged tokens.
const DefaultIssuer = "claims-bridge"

// Bridged is a token re-signed with the downstream secret. It is a
// distinct type from claims.SessionToken: the upstream session
// credential must never be sent to the data service and vice versa.
type Bridged string

// SigningError wraps a failure of the signing primitive. It is fatal
// for the request that triggered it; the orchestrator must not proceed
// to the data service without a token.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("sign bridged token: %v", e.Err)
}

func (e *SigningError) Unwrap() error {
	return e.Err
}

// Minter signs claim payloads into time-bounded HS256 tokens. The
// secret belongs to the downstream trust boundary and is disjoint from
// the identity provider's key material.
type Minter struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func NewMinter(secret string, ttl time.Duration, issuer string) (*Minter, error) {
	if secret == "" {
		return nil, errors.New("signing secret is empty")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %v", ttl)
	}
	if issuer == "" {
		issuer = DefaultIssuer
	}

	return &Minter{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: issuer,
		now:    time.Now,
	}, nil
}

// TTL returns the configured token lifetime.
func (m *Minter) TTL() time.Duration {
	return m.ttl
}

// Mint signs the payload into a bridged token valid for the configured
// TTL and returns it along with its expiry instant.
func (m *Minter) Mint(payload claims.Payload) (Bridged, time.Time, error) {
	if len(payload) == 0 {
		return "", time.Time{}, &SigningError{Err: errors.New("empty claim payload")}
	}

	now := m.now()
	exp := now.Add(m.ttl)

	mapClaims := jwt.MapClaims{
		"iss": m.issuer,
		"iat": now.Unix(),
		"exp": exp.Unix(),
		"jti": uuid.NewString(),
	}
	for k, v := range payload {
		mapClaims[k] = v
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims)
	signed, err := tok.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, &SigningError{Err: err}
	}

	return Bridged(signed), exp, nil
}
