package gateway

import (
	"context"
	"errors"

	"log/slog"

	"github.com/astro-web3/claims-bridge/internal/domain/claims"
	"github.com/astro-web3/claims-bridge/internal/domain/token"
	"github.com/astro-web3/claims-bridge/internal/infra/datastore"
	"github.com/astro-web3/claims-bridge/pkg/logger"
)

// Service orchestrates one data-bearing request: extract claims from
// the session, mint a bridged token, bind a client to it, execute the
// operation, classify the outcome. Each step requires the previous
// one; a request with no session never reaches the minter, and a
// failed mint never reaches the data service.
type Service interface {
	ListItems(ctx context.Context, session *claims.Session) *Result
	CreateItem(ctx context.Context, session *claims.Session, content string) *Result
	DeleteItem(ctx context.Context, session *claims.Session, id string) *Result
	IssueToken(ctx context.Context, session *claims.Session) *Result
}

type service struct {
	extractor *claims.Extractor
	minter    Minter
	clients   ClientFactory
}

func NewService(extractor *claims.Extractor, minter Minter, clients ClientFactory) Service {
	return &service{
		extractor: extractor,
		minter:    minter,
		clients:   clients,
	}
}

func (s *service) ListItems(ctx context.Context, session *claims.Session) *Result {
	bridged, _, fail := s.prepare(ctx, session)
	if fail != nil {
		return fail
	}

	items, err := s.clients.Client(bridged).ListItems(ctx)
	if err != nil {
		return classify(err)
	}

	return &Result{Status: StatusSucceeded, Items: items}
}

func (s *service) CreateItem(ctx context.Context, session *claims.Session, content string) *Result {
	bridged, subject, fail := s.prepare(ctx, session)
	if fail != nil {
		return fail
	}

	// The owner column gets the same subject the token carries, so the
	// downstream insert policy can hold.
	item, err := s.clients.Client(bridged).InsertItem(ctx, content, subject)
	if err != nil {
		return classify(err)
	}

	return &Result{Status: StatusSucceeded, Item: item}
}

func (s *service) DeleteItem(ctx context.Context, session *claims.Session, id string) *Result {
	bridged, _, fail := s.prepare(ctx, session)
	if fail != nil {
		return fail
	}

	if err := s.clients.Client(bridged).DeleteItem(ctx, id); err != nil {
		return classify(err)
	}

	return &Result{Status: StatusSucceeded}
}

// IssueToken mints a token for the browser to use directly
// (token-forwarded mode). The grant carries the same short TTL and
// minimal claim set as every server-minted token.
func (s *service) IssueToken(ctx context.Context, session *claims.Session) *Result {
	payload, err := s.extractor.Extract(session)
	if err != nil {
		return &Result{Status: StatusUnauthenticated, Err: err}
	}

	bridged, exp, err := s.minter.Mint(payload)
	if err != nil {
		logger.ErrorContext(ctx, "token minting failed", slog.String("error", err.Error()))
		return &Result{Status: StatusFailed, Err: err}
	}

	return &Result{
		Status: StatusSucceeded,
		Grant:  &TokenGrant{Token: bridged, ExpiresAt: exp},
	}
}

// prepare runs extraction and minting. On failure the returned Result
// is terminal: Unauthenticated when no session exists, Failed when
// signing broke. There is no unauthenticated fallback after a mint
// failure; proceeding without a token would attempt the operation
// under a different trust context.
func (s *service) prepare(ctx context.Context, session *claims.Session) (token.Bridged, string, *Result) {
	payload, err := s.extractor.Extract(session)
	if err != nil {
		return "", "", &Result{Status: StatusUnauthenticated, Err: err}
	}

	subject := payload.Subject(s.extractor.Key())

	bridged, _, err := s.minter.Mint(payload)
	if err != nil {
		logger.ErrorContext(ctx, "token minting failed", slog.String("error", err.Error()))
		return "", "", &Result{Status: StatusFailed, Err: err}
	}

	return bridged, subject, nil
}

// classify maps a data-service error onto the outcome model. A policy
// denial surfaces as Denied with the downstream reason untouched;
// everything else, timeouts included, is Failed.
func classify(err error) *Result {
	var denied *datastore.DeniedError
	if errors.As(err, &denied) {
		return &Result{Status: StatusDenied, Reason: denied.Reason, Err: err}
	}
	return &Result{Status: StatusFailed, Err: err}
}
