package gateway_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/astro-web3/claims-bridge/internal/domain/claims"
	"github.com/astro-web3/claims-bridge/internal/domain/gateway"
	"github.com/astro-web3/claims-bridge/internal/domain/token"
	"github.com/astro-web3/claims-bridge/internal/infra/datastore"
)

type mockMinter struct {
	calls int
	fail  bool
}

func (m *mockMinter) Mint(payload claims.Payload) (token.Bridged, time.Time, error) {
	m.calls++
	if m.fail {
		return "", time.Time{}, &token.SigningError{Err: errors.New("boom")}
	}
	return token.Bridged("minted-for-" + payload.Subject("sub")), time.Now().Add(time.Minute), nil
}

func (m *mockMinter) TTL() time.Duration {
	return time.Minute
}

type mockRowClient struct {
	token     token.Bridged
	listErr   error
	insertErr error
	deleteErr error

	insertedContent string
	insertedOwner   string
}

func (m *mockRowClient) ListItems(_ context.Context) ([]datastore.Item, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return []datastore.Item{{ID: "1", Content: "a", Owner: "user-1"}}, nil
}

func (m *mockRowClient) InsertItem(_ context.Context, content, owner string) (*datastore.Item, error) {
	m.insertedContent = content
	m.insertedOwner = owner
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	return &datastore.Item{ID: "2", Content: content, Owner: owner}, nil
}

func (m *mockRowClient) DeleteItem(_ context.Context, _ string) error {
	return m.deleteErr
}

type mockFactory struct {
	calls  int
	client *mockRowClient
}

func (m *mockFactory) Client(tok token.Bridged) gateway.RowClient {
	m.calls++
	m.client.token = tok
	return m.client
}

func newTestService(minter *mockMinter, factory *mockFactory) gateway.Service {
	return gateway.NewService(claims.NewExtractor("sub"), minter, factory)
}

func TestService_ListItems_Succeeds(t *testing.T) {
	minter := &mockMinter{}
	factory := &mockFactory{client: &mockRowClient{}}
	svc := newTestService(minter, factory)

	result := svc.ListItems(context.Background(), &claims.Session{Subject: "user-1"})

	if result.Status != gateway.StatusSucceeded {
		t.Fatalf("expected succeeded, got %s (%v)", result.Status, result.Err)
	}
	if len(result.Items) != 1 {
		t.Errorf("expected one item, got %d", len(result.Items))
	}
	if factory.client.token != "minted-for-user-1" {
		t.Errorf("expected client bound to minted token, got %q", factory.client.token)
	}
}

func TestService_NoSession_FailsBeforeMint(t *testing.T) {
	minter := &mockMinter{}
	factory := &mockFactory{client: &mockRowClient{}}
	svc := newTestService(minter, factory)

	for name, session := range map[string]*claims.Session{
		"nil session":   nil,
		"empty subject": {},
	} {
		result := svc.ListItems(context.Background(), session)

		if result.Status != gateway.StatusUnauthenticated {
			t.Errorf("%s: expected unauthenticated, got %s", name, result.Status)
		}
		if !errors.Is(result.Err, claims.ErrNoSession) {
			t.Errorf("%s: expected ErrNoSession, got %v", name, result.Err)
		}
	}

	if minter.calls != 0 {
		t.Errorf("minter must never run without a session, ran %d times", minter.calls)
	}
	if factory.calls != 0 {
		t.Errorf("no client may be built without a session, built %d", factory.calls)
	}
}

func TestService_MintFailure_NeverReachesDataService(t *testing.T) {
	minter := &mockMinter{fail: true}
	factory := &mockFactory{client: &mockRowClient{}}
	svc := newTestService(minter, factory)

	result := svc.ListItems(context.Background(), &claims.Session{Subject: "user-1"})

	if result.Status != gateway.StatusFailed {
		t.Fatalf("expected failed, got %s", result.Status)
	}
	var signingErr *token.SigningError
	if !errors.As(result.Err, &signingErr) {
		t.Errorf("expected SigningError, got %v", result.Err)
	}
	if factory.calls != 0 {
		t.Errorf("a failed mint must not fall back to any client, built %d", factory.calls)
	}
}

func TestService_CreateItem_StampsOwnerWithTokenSubject(t *testing.T) {
	minter := &mockMinter{}
	factory := &mockFactory{client: &mockRowClient{}}
	svc := newTestService(minter, factory)

	result := svc.CreateItem(context.Background(), &claims.Session{Subject: "user-7"}, "hello")

	if result.Status != gateway.StatusSucceeded {
		t.Fatalf("expected succeeded, got %s (%v)", result.Status, result.Err)
	}
	if factory.client.insertedOwner != "user-7" {
		t.Errorf("expected owner stamped with token subject, got %q", factory.client.insertedOwner)
	}
	if factory.client.insertedContent != "hello" {
		t.Errorf("expected content passed through, got %q", factory.client.insertedContent)
	}
}

func TestService_DeniedPassesReasonVerbatim(t *testing.T) {
	minter := &mockMinter{}
	factory := &mockFactory{client: &mockRowClient{
		listErr: &datastore.DeniedError{StatusCode: 403, Reason: "no policy permits select"},
	}}
	svc := newTestService(minter, factory)

	result := svc.ListItems(context.Background(), &claims.Session{Subject: "user-1"})

	if result.Status != gateway.StatusDenied {
		t.Fatalf("expected denied, got %s", result.Status)
	}
	if result.Reason != "no policy permits select" {
		t.Errorf("expected downstream reason verbatim, got %q", result.Reason)
	}
}

func TestService_TransportFailureIsFailedNotDenied(t *testing.T) {
	minter := &mockMinter{}
	factory := &mockFactory{client: &mockRowClient{
		listErr: datastore.ErrUnavailable,
	}}
	svc := newTestService(minter, factory)

	result := svc.ListItems(context.Background(), &claims.Session{Subject: "user-1"})

	if result.Status != gateway.StatusFailed {
		t.Errorf("expected failed for transport error, got %s", result.Status)
	}
}

func TestService_DeleteDenialPassesThrough(t *testing.T) {
	minter := &mockMinter{}
	factory := &mockFactory{client: &mockRowClient{
		deleteErr: &datastore.DeniedError{StatusCode: 403, Reason: "no policy permits delete"},
	}}
	svc := newTestService(minter, factory)

	result := svc.DeleteItem(context.Background(), &claims.Session{Subject: "user-1"}, "1")

	if result.Status != gateway.StatusDenied {
		t.Errorf("expected delete denial passed through, got %s", result.Status)
	}
}

func TestService_IssueToken(t *testing.T) {
	minter := &mockMinter{}
	factory := &mockFactory{client: &mockRowClient{}}
	svc := newTestService(minter, factory)

	result := svc.IssueToken(context.Background(), &claims.Session{Subject: "user-1"})

	if result.Status != gateway.StatusSucceeded || result.Grant == nil {
		t.Fatalf("expected a grant, got %s (%v)", result.Status, result.Err)
	}
	if result.Grant.Token != "minted-for-user-1" {
		t.Errorf("unexpected token %q", result.Grant.Token)
	}
	if time.Until(result.Grant.ExpiresAt) > time.Minute {
		t.Errorf("grant expiry exceeds the configured ttl: %v", result.Grant.ExpiresAt)
	}

	result = svc.IssueToken(context.Background(), nil)
	if result.Status != gateway.StatusUnauthenticated {
		t.Errorf("expected unauthenticated for missing session, got %s", result.Status)
	}
}
