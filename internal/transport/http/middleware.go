package http

import (
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/astro-web3/claims-bridge/internal/domain/claims"
	"github.com/astro-web3/claims-bridge/internal/infra/provider"
	"github.com/astro-web3/claims-bridge/pkg/logger"
)

const (
	sessionContextKey = "bridge.session"
	sessionCookieName = "app_session"
)

func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		if status >= 500 {
			logger.ErrorContext(c.Request.Context(), "request failed",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", status),
				slog.Duration("duration", duration),
			)
		} else {
			logger.InfoContext(c.Request.Context(), "request completed",
				slog.String("method", method),
				slog.String("path", path),
				slog.Int("status", status),
				slog.Duration("duration", duration),
			)
		}
	}
}

// sessionMiddleware resolves the upstream session, if any, and stores
// it on the request context. It never rejects a request itself; the
// handlers decide what an absent session means per route.
func sessionMiddleware(introspector provider.Introspector) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := sessionTokenFrom(c)
		if tok == "" {
			c.Next()
			return
		}

		session, err := introspector.Introspect(c.Request.Context(), tok)
		if err != nil {
			if !errors.Is(err, claims.ErrNoSession) {
				logger.WarnContext(c.Request.Context(), "session introspection failed",
					slog.String("error", err.Error()))
			}
			c.Next()
			return
		}

		c.Set(sessionContextKey, session)
		c.Next()
	}
}

// sessionTokenFrom reads the opaque session credential from the
// session cookie, falling back to a bearer Authorization header.
func sessionTokenFrom(c *gin.Context) claims.SessionToken {
	if cookie, err := c.Cookie(sessionCookieName); err == nil && cookie != "" {
		return claims.SessionToken(cookie)
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		authHeader = c.GetHeader("authorization")
	}
	raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return claims.SessionToken(raw)
}

// sessionFrom returns the resolved session for the request, or nil.
func sessionFrom(c *gin.Context) *claims.Session {
	value, ok := c.Get(sessionContextKey)
	if !ok {
		return nil
	}
	session, ok := value.(*claims.Session)
	if !ok {
		return nil
	}
	return session
}
