package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/go-resty/resty/v2"

	"github.com/astro-web3/claims-bridge/internal/domain/claims"
	"github.com/astro-web3/claims-bridge/pkg/httpx"
	"github.com/astro-web3/claims-bridge/pkg/logger"
)

// UserInfo is the provider's userinfo response for a session token.
type UserInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Introspector resolves an opaque session token into a verified
// Session, or reports that no authenticated session exists. Read-only:
// the gateway never mutates provider state.
type Introspector interface {
	Introspect(ctx context.Context, tok claims.SessionToken) (*claims.Session, error)
}

type client struct {
	issuer string
	http   *resty.Client
}

func NewClient(issuer, clientID, clientSecret string, timeout time.Duration) Introspector {
	issuer = strings.TrimSuffix(issuer, "/")
	return &client{
		issuer: issuer,
		http: httpx.New(timeout,
			httpx.WithBasicAuth(clientID, clientSecret),
		),
	}
}

func (c *client) Introspect(ctx context.Context, tok claims.SessionToken) (*claims.Session, error) {
	if tok == "" {
		return nil, claims.ErrNoSession
	}

	var info UserInfo
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(string(tok)).
		SetResult(&info).
		Get(c.issuer + "/userinfo")
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}

	if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden {
		logger.DebugContext(ctx, "provider rejected session token",
			slog.Int("status", resp.StatusCode()))
		return nil, claims.ErrNoSession
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, fmt.Errorf("userinfo failed with status %d: %s",
			resp.StatusCode(), string(resp.Body()))
	}

	if info.Sub == "" {
		return nil, claims.ErrNoSession
	}

	return &claims.Session{
		Subject: info.Sub,
		Email:   info.Email,
		Name:    info.Name,
	}, nil
}
