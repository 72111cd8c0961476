package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"log/slog"

	"github.com/astro-web3/claims-bridge/internal/domain/claims"
	"github.com/astro-web3/claims-bridge/internal/infra/cache"
	"github.com/astro-web3/claims-bridge/pkg/logger"
)

// cachingIntrospector wraps an Introspector with a TTL-bounded cache
// of introspection results, keyed by a hash of the opaque session
// token. Cache failures degrade to a live provider call; they never
// decide authorization.
type cachingIntrospector struct {
	inner Introspector
	store cache.SessionCache
	ttl   time.Duration
}

func NewCachingIntrospector(inner Introspector, store cache.SessionCache, ttl time.Duration) Introspector {
	if store == nil || ttl <= 0 {
		return inner
	}
	return &cachingIntrospector{inner: inner, store: store, ttl: ttl}
}

func (c *cachingIntrospector) Introspect(ctx context.Context, tok claims.SessionToken) (*claims.Session, error) {
	if tok == "" {
		return nil, claims.ErrNoSession
	}

	key := hashSessionToken(tok)

	cached, err := c.store.Get(ctx, key)
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		logger.WarnContext(ctx, "session cache read failed, introspecting live",
			slog.String("error", err.Error()))
	}
	if err == nil && cached != nil {
		return &claims.Session{
			Subject: cached.Subject,
			Email:   cached.Email,
			Name:    cached.Name,
		}, nil
	}

	session, err := c.inner.Introspect(ctx, tok)
	if err != nil {
		return nil, err
	}

	entry := &cache.CachedSession{
		Subject: session.Subject,
		Email:   session.Email,
		Name:    session.Name,
	}
	if setErr := c.store.Set(ctx, key, entry, c.ttl); setErr != nil {
		logger.WarnContext(ctx, "session cache write failed",
			slog.String("error", setErr.Error()))
	}

	return session, nil
}

func hashSessionToken(tok claims.SessionToken) string {
	sum := sha256.Sum256([]byte(tok))
	return hex.EncodeToString(sum[:])
}
