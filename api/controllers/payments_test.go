package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethoparts/marketplace-backend/internal/access"
	"github.com/ethoparts/marketplace-backend/internal/payments"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
)

type stubPayments struct {
	payments.Service
	calls []string
}

func (s *stubPayments) ConfirmReceipt(_ context.Context, _ access.Actor, _ uuid.UUID) (*payments.ReviewResult, error) {
	s.calls = append(s.calls, "confirm")
	return &payments.ReviewResult{PaymentStatus: enums.PaymentStatusCompleted}, nil
}

func (s *stubPayments) RejectReceipt(_ context.Context, _ access.Actor, _ uuid.UUID) (*payments.ReviewResult, error) {
	s.calls = append(s.calls, "reject")
	return &payments.ReviewResult{PaymentStatus: enums.PaymentStatusFailed}, nil
}

func TestReceiptReviewHandlersBuildWithoutService(t *testing.T) {
	require.NotPanics(t, func() {
		ConfirmReceipt(nil, nil)
		RejectReceipt(nil, nil)
	})
}

func TestReceiptReviewHandlersDispatch(t *testing.T) {
	svc := &stubPayments{}
	for _, handler := range []http.HandlerFunc{ConfirmReceipt(svc, nil), RejectReceipt(svc, nil)} {
		req, _ := withActor(httptest.NewRequest(http.MethodPost, "/x", nil), enums.RoleSeller)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, withURLParam(req, "id", uuid.NewString()))
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	}
	assert.Equal(t, []string{"confirm", "reject"}, svc.calls)
}
