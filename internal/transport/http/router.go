package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/astro-web3/claims-bridge/internal/config"
	"github.com/astro-web3/claims-bridge/internal/infra/provider"
)

func NewRouter(handler *Handler, cfg *config.Config, introspector provider.Introspector) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	if cfg.Observability.TraceEnabled {
		router.Use(otelgin.Middleware(serviceName))
	}
	router.Use(loggingMiddleware())
	router.Use(sessionMiddleware(introspector))

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	api := router.Group("/api")
	api.GET("/items", handler.ListItems)
	api.POST("/items", handler.CreateItem)
	api.DELETE("/items/:id", handler.DeleteItem)

	if cfg.TokenForwarded() {
		api.GET("/session/token", handler.SessionToken)
	}

	return router
}
