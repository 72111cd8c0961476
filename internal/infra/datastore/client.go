package datastore

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-resty/resty/v2"

	"github.com/astro-web3/claims-bridge/internal/domain/token"
	"github.com/astro-web3/claims-bridge/pkg/httpx"
)

const (
	itemsPath            = "/rest/v1/items"
	retryInitialInterval = 250 * time.Millisecond
)

// Factory builds request-scoped data-service clients. The base
// settings are immutable; the bearer token is bound per client.
type Factory struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	maxRetries uint
}

func NewFactory(baseURL, apiKey string, timeout time.Duration, maxRetries uint) *Factory {
	return &Factory{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		timeout:    timeout,
		maxRetries: maxRetries,
	}
}

// Client returns a client bound to the given bridged token. An empty
// token yields an unauthenticated client, which the default downstream
// ruleset denies everything to. Clients are scoped to one subject and
// one request; they must not be shared across subjects.
func (f *Factory) Client(tok token.Bridged) *Client {
	opts := []httpx.Option{httpx.WithBaseURL(f.baseURL)}
	if f.apiKey != "" {
		opts = append(opts, httpx.WithHeader("apikey", f.apiKey))
	}
	if tok != "" {
		opts = append(opts, httpx.WithBearerToken(string(tok)))
	}

	return &Client{
		http:       httpx.New(f.timeout, opts...),
		maxRetries: f.maxRetries,
	}
}

// Client issues row operations against the policy-enforcing data
// service. Every request carries the bound bearer token; authorization
// happens entirely downstream.
type Client struct {
	http       *resty.Client
	maxRetries uint
}

// ListItems returns the rows the downstream select policy makes
// visible to the token's subject.
func (c *Client) ListItems(ctx context.Context) ([]Item, error) {
	var items []Item
	_, err := c.do(ctx, func() (*resty.Response, error) {
		items = items[:0]
		return c.http.R().
			SetContext(ctx).
			SetQueryParam("select", "*").
			SetQueryParam("order", "created_at.asc").
			SetResult(&items).
			Get(itemsPath)
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// InsertItem creates a row with the given owner value. The insert
// policy downstream requires owner to match the token's subject.
func (c *Client) InsertItem(ctx context.Context, content, owner string) (*Item, error) {
	var created []Item
	_, err := c.do(ctx, func() (*resty.Response, error) {
		created = created[:0]
		return c.http.R().
			SetContext(ctx).
			SetHeader("Prefer", "return=representation").
			SetBody(Item{Content: content, Owner: owner}).
			SetResult(&created).
			Post(itemsPath)
	})
	if err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("%w: insert returned no representation", ErrUnavailable)
	}
	return &created[0], nil
}

// DeleteItem issues a delete for one row. The default downstream
// ruleset defines no delete policy, so the service denies it; the
// denial is passed through, not pre-empted here.
func (c *Client) DeleteItem(ctx context.Context, id string) error {
	_, err := c.do(ctx, func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetQueryParam("id", "eq."+id).
			Delete(itemsPath)
	})
	return err
}

// do executes one request with bounded retries. Policy rejections and
// client-side errors are permanent; transport failures and 5xx
// responses are retried with exponential backoff, reusing the same
// still-valid token. Context cancellation aborts the retry loop.
func (c *Client) do(ctx context.Context, send func() (*resty.Response, error)) (*resty.Response, error) {
	operation := func() (*resty.Response, error) {
		resp, err := send()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}

		code := resp.StatusCode()
		switch {
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return nil, backoff.Permanent(&DeniedError{
				StatusCode: code,
				Reason:     strings.TrimSpace(string(resp.Body())),
			})
		case code >= http.StatusInternalServerError:
			return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, code, resp.Body())
		case code >= http.StatusBadRequest:
			return nil, backoff.Permanent(
				fmt.Errorf("%w: status %d: %s", ErrUnavailable, code, resp.Body()))
		}

		return resp, nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialInterval

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(c.maxRetries+1),
	)
}
