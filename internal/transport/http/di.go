package http

import (
	"context"
	"fmt"
	"net/http"

	gatewayapp "github.com/astro-web3/claims-bridge/internal/app/gateway"
	"github.com/astro-web3/claims-bridge/internal/config"
	"github.com/astro-web3/claims-bridge/internal/domain/claims"
	gatewaydomain "github.com/astro-web3/claims-bridge/internal/domain/gateway"
	"github.com/astro-web3/claims-bridge/internal/domain/token"
	"github.com/astro-web3/claims-bridge/internal/infra/cache"
	"github.com/astro-web3/claims-bridge/internal/infra/datastore"
	"github.com/astro-web3/claims-bridge/internal/infra/provider"
	"github.com/astro-web3/claims-bridge/pkg/logger"
	"github.com/astro-web3/claims-bridge/pkg/otel"
	"github.com/astro-web3/claims-bridge/pkg/tracer"
)

type Server struct {
	httpServer *http.Server
}

const (
	idleTimeoutMultiplier = 2
	serviceName           = "claims-bridge"
)

// clientFactory adapts the concrete datastore factory to the domain's
// ClientFactory port.
type clientFactory struct {
	factory *datastore.Factory
}

func (f clientFactory) Client(tok token.Bridged) gatewaydomain.RowClient {
	return f.factory.Client(tok)
}

func NewServer(cfg *config.Config) (*Server, error) {
	logger.InitLogger(cfg.Observability.LogLevel, cfg.Observability.Format, cfg.Observability.LogSource)

	otelCfg := otel.Config{
		ServiceName:        serviceName,
		EndpointURL:        cfg.Observability.TracingEndpointURL,
		Enabled:            cfg.Observability.TraceEnabled,
		SampleRatio:        1.0,
		Insecure:           true,
		ResourceAttributes: make(map[string]string),
	}
	if err := tracer.InitTracer(serviceName, otelCfg); err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	introspector := provider.NewClient(
		cfg.Provider.IssuerURL,
		cfg.Provider.ClientID,
		cfg.Provider.ClientSecret,
		cfg.Provider.Timeout,
	)

	if cfg.Redis.URL != "" {
		redisClient, err := cache.NewRedisClient(cfg.Redis.URL, cfg.Redis.PoolSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis client: %w", err)
		}
		introspector = provider.NewCachingIntrospector(
			introspector,
			cache.NewSessionCache(redisClient),
			cfg.Redis.SessionTTL,
		)
	}

	minter, err := token.NewMinter(cfg.Bridge.Secret, cfg.Bridge.TTL, cfg.Bridge.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create token minter: %w", err)
	}

	factory := datastore.NewFactory(
		cfg.Datastore.URL,
		cfg.Datastore.APIKey,
		cfg.Datastore.Timeout,
		cfg.Datastore.MaxRetries,
	)

	extractor := claims.NewExtractor(cfg.Bridge.ClaimKey)
	domainService := gatewaydomain.NewService(extractor, minter, clientFactory{factory: factory})
	appService := gatewayapp.NewService(domainService)

	handler := NewHandler(appService, cfg)
	router := NewRouter(handler, cfg, introspector)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout * idleTimeoutMultiplier,
	}

	return &Server{
		httpServer: httpServer,
	}, nil
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
