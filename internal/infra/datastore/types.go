package datastore

import (
	"errors"
	"fmt"
	"time"
)

// Item is a row in the policy-governed items table. The Owner column
// is what the downstream row policies compare against the token's
// subject claim; the gateway never evaluates it locally.
type Item struct {
	ID        string    `json:"id,omitempty"`
	Content   string    `json:"content"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// ErrUnavailable marks transport-level failures: timeouts, connection
// errors, 5xx responses. These are never authorization decisions.
var ErrUnavailable = errors.New("data service unavailable")

// DeniedError is the data service's policy rejection, passed through
// verbatim. It is an expected outcome, distinct from ErrUnavailable,
// and is never retried.
type DeniedError struct {
	StatusCode int
	Reason     string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("denied by policy (status %d): %s", e.StatusCode, e.Reason)
}
