package http

import (
	"errors"
	"net/http"

	"log/slog"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	gatewayapp "github.com/astro-web3/claims-bridge/internal/app/gateway"
	"github.com/astro-web3/claims-bridge/internal/config"
	"github.com/astro-web3/claims-bridge/internal/domain/gateway"
	"github.com/astro-web3/claims-bridge/internal/domain/token"
	"github.com/astro-web3/claims-bridge/pkg/logger"
	"github.com/astro-web3/claims-bridge/pkg/tracer"
)

type Handler struct {
	appService gatewayapp.Service
	cfg        *config.Config
	signInURL  string
}

func NewHandler(appService gatewayapp.Service, cfg *config.Config) *Handler {
	return &Handler{
		appService: appService,
		cfg:        cfg,
		signInURL:  cfg.Provider.IssuerURL + "/authorize",
	}
}

func (h *Handler) ListItems(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "transport.http.ListItems")
	defer span.End()

	result := h.appService.ListItems(ctx, sessionFrom(c))
	if h.abortOnFailure(c, result) {
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": result.Items})
}

type createItemRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *Handler) CreateItem(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "transport.http.CreateItem")
	defer span.End()

	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	result := h.appService.CreateItem(ctx, sessionFrom(c), req.Content)
	if h.abortOnFailure(c, result) {
		return
	}

	c.JSON(http.StatusCreated, gin.H{"item": result.Item})
}

func (h *Handler) DeleteItem(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "transport.http.DeleteItem")
	defer span.End()

	result := h.appService.DeleteItem(ctx, sessionFrom(c), c.Param("id"))
	if h.abortOnFailure(c, result) {
		return
	}

	c.Status(http.StatusNoContent)
}

// SessionToken hands the minted token to the browser. Registered only
// in token-forwarded mode; the guard covers misconfigured routing.
func (h *Handler) SessionToken(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "transport.http.SessionToken")
	defer span.End()

	if !h.cfg.TokenForwarded() {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	result := h.appService.IssueToken(ctx, sessionFrom(c))
	if h.abortOnFailure(c, result) {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      string(result.Grant.Token),
		"expires_at": result.Grant.ExpiresAt.UTC(),
	})
}

// abortOnFailure writes the response for every non-success outcome.
// Policy denials keep the downstream reason; signing failures stay
// 5xx, never downgraded.
func (h *Handler) abortOnFailure(c *gin.Context, result *gateway.Result) bool {
	span := trace.SpanFromContext(c.Request.Context())
	span.SetAttributes(attribute.String("gateway.status", result.Status.String()))

	switch result.Status {
	case gateway.StatusSucceeded:
		return false
	case gateway.StatusUnauthenticated:
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "authentication required",
			"sign_in": h.signInURL,
		})
	case gateway.StatusDenied:
		logger.WarnContext(c.Request.Context(), "operation denied",
			slog.String("reason", result.Reason))
		c.JSON(http.StatusForbidden, gin.H{"error": result.Reason})
	default:
		span.RecordError(result.Err)
		logger.ErrorContext(c.Request.Context(), "operation failed",
			slog.String("error", result.Err.Error()))

		var signingErr *token.SigningError
		if errors.As(result.Err, &signingErr) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		} else {
			c.JSON(http.StatusBadGateway, gin.H{"error": "data service unavailable"})
		}
	}

	return true
}
