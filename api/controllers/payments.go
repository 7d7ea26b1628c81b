package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/ethoparts/marketplace-backend/api/responses"
	"github.com/ethoparts/marketplace-backend/api/validators"
	"github.com/ethoparts/marketplace-backend/internal/access"
	"github.com/ethoparts/marketplace-backend/internal/payments"
	"github.com/ethoparts/marketplace-backend/pkg/logger"
)

func SubmitReceipt(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input payments.SubmitReceiptInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		receipt, err := svc.SubmitReceipt(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, receipt)
	}
}

func ListPendingReceipts(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListPendingReceipts(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func ConfirmReceipt(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return reviewReceipt(func(ctx context.Context, actor access.Actor, id uuid.UUID) (*payments.ReviewResult, error) {
		return svc.ConfirmReceipt(ctx, actor, id)
	}, logg)
}

func RejectReceipt(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return reviewReceipt(func(ctx context.Context, actor access.Actor, id uuid.UUID) (*payments.ReviewResult, error) {
		return svc.RejectReceipt(ctx, actor, id)
	}, logg)
}

type receiptReview func(ctx context.Context, actor access.Actor, receiptID uuid.UUID) (*payments.ReviewResult, error)

func reviewReceipt(review receiptReview, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := requireActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := review(r.Context(), actor, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
