package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/miguelsantiago/turista-backend/internal/audit"
	"github.com/miguelsantiago/turista-backend/internal/notifications"
	"github.com/miguelsantiago/turista-backend/internal/orders"
	pkgAuth "github.com/miguelsantiago/turista-backend/pkg/auth"
	"github.com/miguelsantiago/turista-backend/pkg/config"
	"github.com/miguelsantiago/turista-backend/pkg/db/models"
	"github.com/miguelsantiago/turista-backend/pkg/enums"
	"github.com/miguelsantiago/turista-backend/pkg/pagination"
)

type routerOrdersStub struct {
	order *models.Order
}

func (s *routerOrdersStub) GetOrder(ctx context.Context, orderID uuid.UUID, actor orders.Actor) (*models.Order, error) {
	return s.order, nil
}

func (s *routerOrdersStub) RequestStatusChange(ctx context.Context, req orders.TransitionRequest) (*models.Order, error) {
	return s.order, nil
}

func (s *routerOrdersStub) RequestCancellation(ctx context.Context, req orders.CancellationRequest) (*models.Order, orders.RefundOutcome, error) {
	return s.order, orders.RefundOutcome{}, nil
}

func (s *routerOrdersStub) MarkReady(ctx context.Context, orderID uuid.UUID, actor orders.Actor) (*models.Order, error) {
	return s.order, nil
}

func (s *routerOrdersStub) MarkPickedUp(ctx context.Context, orderID uuid.UUID, actor orders.Actor) (*models.Order, error) {
	return s.order, nil
}

func (s *routerOrdersStub) VerifyArrival(ctx context.Context, req orders.ArrivalRequest) (*models.Order, error) {
	return s.order, nil
}

type routerAuditStub struct{}

func (routerAuditStub) Append(ctx context.Context, entry audit.Entry) (*models.AuditEntry, error) {
	return nil, nil
}

func (routerAuditStub) ListByOrder(ctx context.Context, orderID uuid.UUID, params pagination.Params) (*audit.TrailPage, error) {
	return &audit.TrailPage{}, nil
}

type routerNotificationsStub struct{}

func (routerNotificationsStub) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{}, nil
}

func (routerNotificationsStub) MarkRead(ctx context.Context, recipientID, notificationID uuid.UUID) error {
	return nil
}

func (routerNotificationsStub) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	return 0, nil
}

func testRouter(t *testing.T) (http.Handler, config.JWTConfig) {
	t.Helper()
	jwtCfg := config.JWTConfig{
		Secret:            "router-test-secret",
		Issuer:            "turista-test",
		ExpirationMinutes: 5,
	}
	cfg := &config.Config{
		App: config.AppConfig{Env: "dev", Port: "8080"},
		JWT: jwtCfg,
	}
	order := &models.Order{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Status:   enums.OrderStatusPending,
		Currency: "PHP",
	}
	router := NewRouter(Deps{
		Config:        cfg,
		Logger:        nil,
		Orders:        &routerOrdersStub{order: order},
		Audit:         routerAuditStub{},
		Notifications: routerNotificationsStub{},
	})
	return router, jwtCfg
}

func bearerToken(t *testing.T, cfg config.JWTConfig, role enums.ActorRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "dev", rec.Header().Get("X-Turista-Env"))
}

func TestMetricsEndpointIsMounted(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestOrderRoutesRequireAuth(t *testing.T) {
	router, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOrderDetailWithValidToken(t *testing.T) {
	router, jwtCfg := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", bearerToken(t, jwtCfg, enums.ActorRoleTourist))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRouteBlocksTourists(t *testing.T) {
	router, jwtCfg := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/orders/"+uuid.NewString()+"/status", nil)
	req.Header.Set("Authorization", bearerToken(t, jwtCfg, enums.ActorRoleTourist))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminRouteAllowsTourismOfficer(t *testing.T) {
	router, jwtCfg := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/orders/"+uuid.NewString()+"/status", nil)
	req.Header.Set("Authorization", bearerToken(t, jwtCfg, enums.ActorRoleTourismOfficer))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// Passes the role guard; the empty body fails validation downstream.
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
