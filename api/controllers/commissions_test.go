package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethoparts/marketplace-backend/internal/access"
	"github.com/ethoparts/marketplace-backend/internal/commissions"
	"github.com/ethoparts/marketplace-backend/pkg/config"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
)

type stubCommissions struct {
	commissions.Service
	rejectFn func(context.Context, access.Actor, uuid.UUID, commissions.RejectPaymentInput) (*commissions.PaymentReviewResult, error)
}

func (s stubCommissions) RejectCommissionPayment(ctx context.Context, a access.Actor, id uuid.UUID, in commissions.RejectPaymentInput) (*commissions.PaymentReviewResult, error) {
	return s.rejectFn(ctx, a, id, in)
}

func TestRejectCommissionPaymentBodyIsOptional(t *testing.T) {
	paymentID := uuid.New()
	var notes []string
	svc := stubCommissions{rejectFn: func(_ context.Context, _ access.Actor, id uuid.UUID, in commissions.RejectPaymentInput) (*commissions.PaymentReviewResult, error) {
		require.Equal(t, paymentID, id)
		notes = append(notes, in.Note)
		return &commissions.PaymentReviewResult{CommissionStatus: enums.CommissionStatusPending}, nil
	}}
	handler := RejectCommissionPayment(svc, nil)

	req, _ := withActor(httptest.NewRequest(http.MethodPost, "/x", nil), enums.RoleAdmin)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, withURLParam(req, "id", paymentID.String()))
	require.Equal(t, http.StatusOK, resp.Code)

	req, _ = withActor(httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"note":"wrong amount"}`)), enums.RoleAdmin)
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, withURLParam(req, "id", paymentID.String()))
	require.Equal(t, http.StatusOK, resp.Code)

	assert.Equal(t, []string{"", "wrong amount"}, notes)
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	resp := httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{
		"db":    pingFunc(func(context.Context) error { return nil }),
		"redis": nil,
	}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "test", resp.Header().Get("X-Ethoparts-Env"))

	resp = httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{
		"redis": pingFunc(func(context.Context) error { return errors.New("dial tcp: refused") }),
	}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Contains(t, resp.Body.String(), `"dependency":"redis"`)
}
