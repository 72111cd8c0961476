package gateway

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/astro-web3/claims-bridge/internal/domain/claims"
	"github.com/astro-web3/claims-bridge/internal/domain/gateway"
	"github.com/astro-web3/claims-bridge/pkg/tracer"
)

// Service is the application-layer surface the transport calls. It
// adds tracing around the domain orchestrator; token values never end
// up in span attributes.
type Service interface {
	ListItems(ctx context.Context, session *claims.Session) *gateway.Result
	CreateItem(ctx context.Context, session *claims.Session, content string) *gateway.Result
	DeleteItem(ctx context.Context, session *claims.Session, id string) *gateway.Result
	IssueToken(ctx context.Context, session *claims.Session) *gateway.Result
}

type service struct {
	domainService gateway.Service
}

func NewService(domainService gateway.Service) Service {
	return &service{
		domainService: domainService,
	}
}

func (s *service) ListItems(ctx context.Context, session *claims.Session) *gateway.Result {
	ctx, span := tracer.Start(ctx, "app.gateway.ListItems")
	defer span.End()

	result := s.domainService.ListItems(ctx, session)
	annotate(span, result)
	return result
}

func (s *service) CreateItem(ctx context.Context, session *claims.Session, content string) *gateway.Result {
	ctx, span := tracer.Start(ctx, "app.gateway.CreateItem")
	defer span.End()

	result := s.domainService.CreateItem(ctx, session, content)
	annotate(span, result)
	return result
}

func (s *service) DeleteItem(ctx context.Context, session *claims.Session, id string) *gateway.Result {
	ctx, span := tracer.Start(ctx, "app.gateway.DeleteItem")
	defer span.End()

	result := s.domainService.DeleteItem(ctx, session, id)
	annotate(span, result)
	return result
}

func (s *service) IssueToken(ctx context.Context, session *claims.Session) *gateway.Result {
	ctx, span := tracer.Start(ctx, "app.gateway.IssueToken")
	defer span.End()

	result := s.domainService.IssueToken(ctx, session)
	annotate(span, result)
	return result
}

func annotate(span trace.Span, result *gateway.Result) {
	span.SetAttributes(attribute.String("gateway.status", result.Status.String()))
	if result.Status == gateway.StatusDenied {
		span.SetAttributes(attribute.String("gateway.denial_reason", result.Reason))
	}
	if result.Err != nil {
		span.RecordError(result.Err)
	}
}
