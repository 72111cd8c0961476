package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/astro-web3/claims-bridge/internal/config"
	"github.com/astro-web3/claims-bridge/internal/domain/claims"
	"github.com/astro-web3/claims-bridge/internal/domain/gateway"
	"github.com/astro-web3/claims-bridge/internal/domain/token"
	"github.com/astro-web3/claims-bridge/internal/infra/datastore"
	httptransport "github.com/astro-web3/claims-bridge/internal/transport/http"
)

type mockAppService struct {
	listFunc   func(ctx context.Context, session *claims.Session) *gateway.Result
	createFunc func(ctx context.Context, session *claims.Session, content string) *gateway.Result
	deleteFunc func(ctx context.Context, session *claims.Session, id string) *gateway.Result
	tokenFunc  func(ctx context.Context, session *claims.Session) *gateway.Result
}

func succeedOrUnauthenticated(session *claims.Session) *gateway.Result {
	if session == nil {
		return &gateway.Result{Status: gateway.StatusUnauthenticated, Err: claims.ErrNoSession}
	}
	return &gateway.Result{Status: gateway.StatusSucceeded}
}

func (m *mockAppService) ListItems(ctx context.Context, session *claims.Session) *gateway.Result {
	if m.listFunc != nil {
		return m.listFunc(ctx, session)
	}
	return succeedOrUnauthenticated(session)
}

func (m *mockAppService) CreateItem(ctx context.Context, session *claims.Session, content string) *gateway.Result {
	if m.createFunc != nil {
		return m.createFunc(ctx, session, content)
	}
	return succeedOrUnauthenticated(session)
}

func (m *mockAppService) DeleteItem(ctx context.Context, session *claims.Session, id string) *gateway.Result {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, session, id)
	}
	return succeedOrUnauthenticated(session)
}

func (m *mockAppService) IssueToken(ctx context.Context, session *claims.Session) *gateway.Result {
	if m.tokenFunc != nil {
		return m.tokenFunc(ctx, session)
	}
	if session == nil {
		return &gateway.Result{Status: gateway.StatusUnauthenticated, Err: claims.ErrNoSession}
	}
	return &gateway.Result{
		Status: gateway.StatusSucceeded,
		Grant: &gateway.TokenGrant{
			Token:     "bridged-token",
			ExpiresAt: time.Now().Add(time.Minute),
		},
	}
}

type mockIntrospector struct{}

func (mockIntrospector) Introspect(_ context.Context, tok claims.SessionToken) (*claims.Session, error) {
	if tok == "opaque-valid" {
		return &claims.Session{Subject: "user-123"}, nil
	}
	return nil, claims.ErrNoSession
}

func createTestConfig(mode string) *config.Config {
	cfg := &config.Config{}
	cfg.Server.Mode = "release"
	cfg.Provider.IssuerURL = "https://issuer.example.com"
	cfg.Bridge.Secret = "downstream-secret"
	cfg.Bridge.TTL = time.Minute
	cfg.Bridge.Mode = mode
	cfg.Datastore.URL = "https://data.example.com"
	return cfg
}

func newTestRouter(appService *mockAppService, mode string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := createTestConfig(mode)
	handler := httptransport.NewHandler(appService, cfg)
	return httptransport.NewRouter(handler, cfg, mockIntrospector{})
}

func TestHandler_ListItems_NoSession(t *testing.T) {
	router := newTestRouter(&mockAppService{}, config.ModeServerOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
	if !strings.Contains(w.Body.String(), "sign_in") {
		t.Errorf("expected sign-in hint in body, got %s", w.Body.String())
	}
}

func TestHandler_ListItems_ValidSession(t *testing.T) {
	appService := &mockAppService{
		listFunc: func(_ context.Context, session *claims.Session) *gateway.Result {
			if session == nil || session.Subject != "user-123" {
				t.Errorf("expected resolved session, got %+v", session)
			}
			return &gateway.Result{
				Status: gateway.StatusSucceeded,
				Items:  []datastore.Item{{ID: "1", Content: "a", Owner: "user-123"}},
			}
		},
	}
	router := newTestRouter(appService, config.ModeServerOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.Header.Set("Authorization", "Bearer opaque-valid")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"content":"a"`) {
		t.Errorf("expected item in body, got %s", w.Body.String())
	}
}

func TestHandler_SessionCookieAccepted(t *testing.T) {
	router := newTestRouter(&mockAppService{}, config.ModeServerOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.AddCookie(&http.Cookie{Name: "app_session", Value: "opaque-valid"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestHandler_Denied(t *testing.T) {
	appService := &mockAppService{
		listFunc: func(_ context.Context, _ *claims.Session) *gateway.Result {
			return &gateway.Result{
				Status: gateway.StatusDenied,
				Reason: "no policy permits select",
			}
		},
	}
	router := newTestRouter(appService, config.ModeServerOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.Header.Set("Authorization", "Bearer opaque-valid")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("expected status %d, got %d", http.StatusForbidden, w.Code)
	}
	if !strings.Contains(w.Body.String(), "no policy permits select") {
		t.Errorf("expected downstream reason verbatim, got %s", w.Body.String())
	}
}

func TestHandler_Failed(t *testing.T) {
	appService := &mockAppService{
		listFunc: func(_ context.Context, _ *claims.Session) *gateway.Result {
			return &gateway.Result{
				Status: gateway.StatusFailed,
				Err:    datastore.ErrUnavailable,
			}
		},
	}
	router := newTestRouter(appService, config.ModeServerOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.Header.Set("Authorization", "Bearer opaque-valid")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected status %d, got %d", http.StatusBadGateway, w.Code)
	}
}

func TestHandler_SigningFailureIsServerError(t *testing.T) {
	appService := &mockAppService{
		listFunc: func(_ context.Context, _ *claims.Session) *gateway.Result {
			return &gateway.Result{
				Status: gateway.StatusFailed,
				Err:    &token.SigningError{Err: errors.New("bad key")},
			}
		},
	}
	router := newTestRouter(appService, config.ModeServerOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
	req.Header.Set("Authorization", "Bearer opaque-valid")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
}

func TestHandler_CreateItem(t *testing.T) {
	appService := &mockAppService{
		createFunc: func(_ context.Context, _ *claims.Session, content string) *gateway.Result {
			return &gateway.Result{
				Status: gateway.StatusSucceeded,
				Item:   &datastore.Item{ID: "1", Content: content, Owner: "user-123"},
			}
		},
	}
	router := newTestRouter(appService, config.ModeServerOnly)

	req := httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(`{"content":"hello"}`))
	req.Header.Set("Authorization", "Bearer opaque-valid")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
}

func TestHandler_CreateItem_MissingContent(t *testing.T) {
	router := newTestRouter(&mockAppService{}, config.ModeServerOnly)

	req := httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer opaque-valid")
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestHandler_SessionToken_ForwardedMode(t *testing.T) {
	router := newTestRouter(&mockAppService{}, config.ModeTokenForwarded)

	req := httptest.NewRequest(http.MethodGet, "/api/session/token", nil)
	req.Header.Set("Authorization", "Bearer opaque-valid")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "bridged-token") {
		t.Errorf("expected token in body, got %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "expires_at") {
		t.Errorf("expected expiry in body, got %s", w.Body.String())
	}
}

func TestHandler_SessionToken_HiddenInServerOnlyMode(t *testing.T) {
	router := newTestRouter(&mockAppService{}, config.ModeServerOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/session/token", nil)
	req.Header.Set("Authorization", "Bearer opaque-valid")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestHandler_SessionToken_RequiresSession(t *testing.T) {
	router := newTestRouter(&mockAppService{}, config.ModeTokenForwarded)

	req := httptest.NewRequest(http.MethodGet, "/api/session/token", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}
