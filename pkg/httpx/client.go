package httpx

import (
	"time"

	"github.com/go-resty/resty/v2"
)

const DefaultTimeout = 10 * time.Second

// Option configures a client at construction time.
type Option func(*resty.Client)

// WithBearerToken binds a bearer credential to every request the
// client issues. Clients carrying a token are scoped to one subject
// and must not be shared across requests.
func WithBearerToken(token string) Option {
	return func(c *resty.Client) {
		c.SetAuthToken(token)
	}
}

func WithBasicAuth(user, pass string) Option {
	return func(c *resty.Client) {
		if user != "" {
			c.SetBasicAuth(user, pass)
		}
	}
}

func WithHeader(key, value string) Option {
	return func(c *resty.Client) {
		c.SetHeader(key, value)
	}
}

func WithBaseURL(url string) Option {
	return func(c *resty.Client) {
		c.SetBaseURL(url)
	}
}

// New builds a resty client with the given request timeout. There is
// deliberately no shared process-global client: credentials are bound
// per client instance, so instances are cheap and single-purpose.
func New(timeout time.Duration, opts ...Option) *resty.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	c.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		injectTracingHeaders(req.Context(), req)
		return nil
	})

	for _, opt := range opts {
		opt(c)
	}

	return c
}
