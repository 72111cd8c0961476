package claims

import (
	"errors"
	"time"
)

// DefaultKey is the canonical claim name the downstream policy
// definitions match on. It can be overridden per deployment, but both
// sides must agree on the same key.
const DefaultKey = "sub"

// ErrNoSession indicates that no authenticated session exists for the
// current request. Callers must treat it as "unauthenticated", not as
// an internal error.
var ErrNoSession = errors.New("no authenticated session")

// SessionToken is the opaque credential issued by the identity
// provider. It is a distinct type from token.Bridged so the upstream
// and downstream credentials can never be interchanged.
type SessionToken string

// Session is the verified view of an upstream session, as returned by
// the identity provider for the current request. The gateway never
// persists it.
type Session struct {
	Subject   string
	Email     string
	Name      string
	ExpiresAt time.Time
}

// Payload is the minimal set of claims propagated downstream.
type Payload map[string]string

// Subject returns the value stored under the given claim key.
func (p Payload) Subject(key string) string {
	return p[key]
}

// Extractor derives a Payload from a Session. It is stateless; the
// same session always yields the same payload.
type Extractor struct {
	claimKey string
}

func NewExtractor(claimKey string) *Extractor {
	if claimKey == "" {
		claimKey = DefaultKey
	}
	return &Extractor{claimKey: claimKey}
}

// Key returns the configured claim key.
func (e *Extractor) Key() string {
	return e.claimKey
}

// Extract builds the claim payload for a session. The payload carries
// exactly one claim, the subject identifier, under the configured key.
// Profile fields, provider-internal data and the session token itself
// are never copied into it.
func (e *Extractor) Extract(session *Session) (Payload, error) {
	if session == nil || session.Subject == "" {
		return nil, ErrNoSession
	}

	return Payload{e.claimKey: session.Subject}, nil
}
