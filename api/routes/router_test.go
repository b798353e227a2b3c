package routes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bakery-backend/api/controllers"
	"github.com/angelmondragon/bakery-backend/internal/orders"
	product "github.com/angelmondragon/bakery-backend/internal/products"
	pkgAuth "github.com/angelmondragon/bakery-backend/pkg/auth"
	"github.com/angelmondragon/bakery-backend/pkg/config"
	"github.com/angelmondragon/bakery-backend/pkg/enums"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
	"github.com/angelmondragon/bakery-backend/pkg/metrics"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionManager struct{}

func (stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubProductService struct {
	product.Service
}

func (stubProductService) ListProducts(ctx context.Context, filters product.ListFilters) ([]product.ProductDTO, error) {
	return []product.ProductDTO{{Name: "Sourdough"}}, nil
}

type stubOrderService struct {
	orders.Service
	listed bool
}

func (s *stubOrderService) ListAll(ctx context.Context, actor orders.Actor, filters orders.ListFilters) ([]orders.OrderDTO, error) {
	s.listed = true
	return []orders.OrderDTO{}, nil
}

func (s *stubOrderService) ListMine(ctx context.Context, userID uuid.UUID) ([]orders.OrderDTO, error) {
	return []orders.OrderDTO{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{Env: "test", ClientURL: "http://localhost:3000"},
		JWT:     config.JWTConfig{Secret: "router-secret", Issuer: "bakery", ExpirationMinutes: 10},
		Uploads: config.UploadsConfig{MaxUploadMB: 1},
		Square:  config.SquareConfig{Currency: "USD"},
	}
}

func newTestRouter(t *testing.T, ordersSvc orders.Service) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig()
	reg := prometheus.NewRegistry()
	metrics.NewCheckoutMetrics(reg)
	router := NewRouter(
		cfg,
		logger.Nop(),
		map[string]controllers.Pinger{"db": stubPinger{}},
		nil,
		stubSessionManager{},
		nil,
		stubProductService{},
		nil,
		ordersSvc,
		nil,
		metrics.Handler(reg),
	)
	return router, cfg
}

func bearer(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
		JTI:    uuid.NewString(),
	})
	require.NoError(t, err)
	return fmt.Sprintf("Bearer %s", token)
}

func TestRouterPublicRoutes(t *testing.T) {
	router, _ := newTestRouter(t, &stubOrderService{})

	for _, path := range []string{"/api/health", "/health/live", "/health/ready", "/metrics", "/api/products"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equalf(t, http.StatusOK, resp.Code, "path %s", path)
	}
}

func TestRouterRequiresAuthForOrders(t *testing.T) {
	router, _ := newTestRouter(t, &stubOrderService{})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/orders/myorders", nil))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.JSONEq(t, `{"message":"not authorized","code":"UNAUTHORIZED"}`, resp.Body.String())
}

func TestRouterAdminOrderList(t *testing.T) {
	svc := &stubOrderService{}
	router, cfg := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusForbidden, resp.Code)
	require.False(t, svc.listed)

	req = httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.True(t, svc.listed)
}

func TestRouterCustomerReachesOwnOrders(t *testing.T) {
	router, cfg := newTestRouter(t, &stubOrderService{})
	req := httptest.NewRequest(http.MethodGet, "/api/orders/myorders", nil)
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
}

func TestRouterProductWritesRequireAdmin(t *testing.T) {
	router, cfg := newTestRouter(t, &stubOrderService{})
	req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(`{}`))
	req.Header.Set("Authorization", bearer(t, cfg, enums.UserRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusForbidden, resp.Code)
}

func TestRouterCORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t, &stubOrderService{})
	req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, "http://localhost:3000", resp.Header().Get("Access-Control-Allow-Origin"))
}
