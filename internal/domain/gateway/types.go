package gateway

import (
	"context"
	"time"

	"github.com/astro-web3/claims-bridge/internal/domain/claims"
	"github.com/astro-web3/claims-bridge/internal/domain/token"
	"github.com/astro-web3/claims-bridge/internal/infra/datastore"
)

// Status is the terminal state of one orchestrated request.
type Status int

const (
	StatusUnauthenticated Status = iota
	StatusSucceeded
	StatusDenied
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusSucceeded:
		return "succeeded"
	case StatusDenied:
		return "denied"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is what an operation returns to the transport layer. Reason
// carries the data service's denial text verbatim; Err is the
// underlying failure for Failed outcomes.
type Result struct {
	Status Status
	Items  []datastore.Item
	Item   *datastore.Item
	Grant  *TokenGrant
	Reason string
	Err    error
}

// TokenGrant is a minted token handed to the browser in
// token-forwarded mode. Same TTL and claim set as server-side tokens.
type TokenGrant struct {
	Token     token.Bridged
	ExpiresAt time.Time
}

// RowClient is the subset of data-service operations the orchestrator
// issues through a token-bound client.
type RowClient interface {
	ListItems(ctx context.Context) ([]datastore.Item, error)
	InsertItem(ctx context.Context, content, owner string) (*datastore.Item, error)
	DeleteItem(ctx context.Context, id string) error
}

// ClientFactory builds a request-scoped client bound to a bridged
// token.
type ClientFactory interface {
	Client(tok token.Bridged) RowClient
}

// Minter signs claim payloads into bridged tokens.
type Minter interface {
	Mint(payload claims.Payload) (token.Bridged, time.Time, error)
	TTL() time.Duration
}
