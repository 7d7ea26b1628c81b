package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethoparts/marketplace-backend/api/controllers"
	"github.com/ethoparts/marketplace-backend/internal/paymentmethods"
	"github.com/ethoparts/marketplace-backend/internal/settings"
	pkgauth "github.com/ethoparts/marketplace-backend/pkg/auth"
	"github.com/ethoparts/marketplace-backend/pkg/config"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
	"github.com/ethoparts/marketplace-backend/pkg/metrics"
)

type activeSessions struct{}

func (activeSessions) Active(context.Context, string) (bool, error) { return true, nil }

type stubSettings struct{ settings.Service }

func (stubSettings) CommissionPaymentInfo(context.Context) (*settings.CommissionPaymentInfo, error) {
	return &settings.CommissionPaymentInfo{Configured: false}, nil
}

type stubPaymentMethods struct{ paymentmethods.Service }

func (stubPaymentMethods) List(context.Context, bool) ([]paymentmethods.PaymentMethodDTO, error) {
	return []paymentmethods.PaymentMethodDTO{}, nil
}

func (stubPaymentMethods) ListForSeller(context.Context, uuid.UUID) ([]paymentmethods.SellerPaymentMethodDTO, error) {
	return []paymentmethods.SellerPaymentMethodDTO{}, nil
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func testRouter(t *testing.T) (http.Handler, *pkgauth.Issuer) {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "ethoparts-test", ExpirationMinutes: 5},
		PublicRateLimit: config.PublicRateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             5,
			VisitorTTL:        time.Minute,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
	}
	issuer, err := pkgauth.NewIssuer(cfg.JWT)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	return NewRouter(Dependencies{
		Config:         cfg,
		Gatherer:       reg,
		Metrics:        metrics.NewHTTPMetrics(reg),
		Pingers:        map[string]controllers.Pinger{"db": okPinger{}},
		Tokens:         issuer,
		Sessions:       activeSessions{},
		PaymentMethods: stubPaymentMethods{},
		Settings:       stubSettings{},
	}), issuer
}

func bearer(t *testing.T, issuer *pkgauth.Issuer, role enums.UserRole) string {
	t.Helper()
	token, err := issuer.Mint(uuid.New(), role, "")
	require.NoError(t, err)
	return "Bearer " + token.Value
}

func TestRouterAccessMatrix(t *testing.T) {
	router, issuer := testRouter(t)

	cases := []struct {
		name   string
		method string
		path   string
		role   enums.UserRole
		body   string
		status int
	}{
		{"liveness", http.MethodGet, "/health/live", "", "", http.StatusOK},
		{"readiness", http.MethodGet, "/health/ready", "", "", http.StatusOK},
		{"orders need auth", http.MethodGet, "/api/orders", "", "", http.StatusUnauthorized},
		{"sellers cannot place orders", http.MethodPost, "/api/orders", enums.RoleSeller, `{}`, http.StatusForbidden},
		{"placement needs idempotency key", http.MethodPost, "/api/orders", enums.RoleBuyer, `{}`, http.StatusBadRequest},
		{"buyers cannot confirm receipts", http.MethodPost, "/api/payments/" + uuid.NewString() + "/confirm", enums.RoleBuyer, "", http.StatusForbidden},
		{"sellers cannot review commission payments", http.MethodPost, "/api/commissions/payments/" + uuid.NewString() + "/confirm", enums.RoleSeller, "", http.StatusForbidden},
		{"admin stats are admin only", http.MethodGet, "/api/admin/stats", enums.RoleSeller, "", http.StatusForbidden},
		{"payment methods are public", http.MethodGet, "/api/payment-methods", "", "", http.StatusOK},
		{"admin payment method listing", http.MethodGet, "/api/payment-methods/admin", enums.RoleAdmin, "", http.StatusOK},
		{"admin payment method listing rejects sellers", http.MethodGet, "/api/payment-methods/admin", enums.RoleSeller, "", http.StatusForbidden},
		{"seller methods are public", http.MethodGet, "/api/seller/" + uuid.NewString() + "/payment-methods", "", "", http.StatusOK},
		{"seller methods plural path", http.MethodGet, "/api/sellers/" + uuid.NewString() + "/payment-methods", "", "", http.StatusOK},
		{"own seller methods need auth", http.MethodGet, "/api/seller/payment-methods", "", "", http.StatusUnauthorized},
		{"buyers have no seller bindings", http.MethodGet, "/api/seller/payment-methods", enums.RoleBuyer, "", http.StatusForbidden},
		{"reviews need auth", http.MethodPost, "/api/products/" + uuid.NewString() + "/reviews", "", `{"rating":5}`, http.StatusUnauthorized},
		{"payment method writes are admin only", http.MethodPost, "/api/payment-methods", enums.RoleSeller, `{}`, http.StatusForbidden},
		{"commission info", http.MethodGet, "/api/commission-payment-info", "", "", http.StatusOK},
		{"commission info legacy path", http.MethodGet, "/api/admin/commission-payment-info", "", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", "", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			if tc.role != "" {
				req.Header.Set("Authorization", bearer(t, issuer, tc.role))
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			assert.Equal(t, tc.status, resp.Code, resp.Body.String())
		})
	}
}

func TestRouterEchoesRequestID(t *testing.T) {
	router, _ := testRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set("X-Request-Id", "req-123")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, "req-123", resp.Header().Get("X-Request-Id"))
}
