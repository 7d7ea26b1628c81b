package commissions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ethoparts/marketplace-backend/internal/access"
	"github.com/ethoparts/marketplace-backend/pkg/db"
	"github.com/ethoparts/marketplace-backend/pkg/db/models"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
	pkgerrors "github.com/ethoparts/marketplace-backend/pkg/errors"
	"github.com/ethoparts/marketplace-backend/pkg/logger"
	"github.com/ethoparts/marketplace-backend/pkg/metrics"
	"github.com/ethoparts/marketplace-backend/pkg/outbox"
	"github.com/ethoparts/marketplace-backend/pkg/outbox/payloads"
	"github.com/ethoparts/marketplace-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service settles what sellers owe the platform.
type Service interface {
	ListCommissions(ctx context.Context, actor access.Actor, params pagination.Params) (pagination.Page[CommissionDTO], error)
	ComputeCommissionStats(ctx context.Context, actor access.Actor) (*Stats, error)
	SubmitCommissionPayment(ctx context.Context, actor access.Actor, commissionID uuid.UUID, input SubmitPaymentInput) (*CommissionPaymentDTO, error)
	ListPendingCommissionPayments(ctx context.Context, actor access.Actor, params pagination.Params) (pagination.Page[PendingPaymentDTO], error)
	ConfirmCommissionPayment(ctx context.Context, actor access.Actor, paymentID uuid.UUID) (*PaymentReviewResult, error)
	RejectCommissionPayment(ctx context.Context, actor access.Actor, paymentID uuid.UUID, input RejectPaymentInput) (*PaymentReviewResult, error)
	SweepOverdue(ctx context.Context, now time.Time) ([]models.Commission, error)
}

type ServiceParams struct {
	Repository Repository
	Tx         txRunner
	Outbox     outboxPublisher
	Logger     *logger.Logger
	Metrics    *metrics.MarketplaceMetrics
	Now        func() time.Time
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	logg    *logger.Logger
	metrics *metrics.MarketplaceMetrics
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("commissions repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:    params.Repository,
		tx:      params.Tx,
		outbox:  params.Outbox,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

func (s *service) ListCommissions(ctx context.Context, actor access.Actor, params pagination.Params) (pagination.Page[CommissionDTO], error) {
	if err := access.Authorize(actor, access.CapCommissionList, access.Resource{}); err != nil {
		return pagination.Page[CommissionDTO]{}, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[CommissionDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, sellerScope(actor), cursor, params.Limit)
	if err != nil {
		return pagination.Page[CommissionDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list commissions")
	}
	now := s.now()
	page := pagination.Trim(rows, params.Limit, func(c models.Commission) pagination.Cursor {
		return pagination.Cursor{CreatedAt: c.CreatedAt, ID: c.ID}
	})
	return pagination.Map(page, func(c models.Commission) CommissionDTO { return ToDTO(c, now) }), nil
}

func (s *service) ComputeCommissionStats(ctx context.Context, actor access.Actor) (*Stats, error) {
	if err := access.Authorize(actor, access.CapCommissionStats, access.Resource{}); err != nil {
		return nil, err
	}
	totals, err := s.repo.Totals(ctx, sellerScope(actor))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "compute commission stats")
	}
	paid := totals.Paid.Round(2)
	outstanding := totals.Outstanding.Round(2)
	stats := &Stats{TotalCommissions: totals.Count}
	if actor.IsAdmin() {
		stats.TotalEarned = &paid
		stats.PendingAmount = &outstanding
	} else {
		stats.PaidAmount = &paid
		stats.TotalOwed = &outstanding
	}
	return stats, nil
}

func (s *service) SubmitCommissionPayment(ctx context.Context, actor access.Actor, commissionID uuid.UUID, input SubmitPaymentInput) (*CommissionPaymentDTO, error) {
	ref := strings.TrimSpace(input.TransactionRef)
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference required")
	}

	var payment models.CommissionPayment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		commission, err := repo.FindByIDForUpdate(ctx, commissionID)
		if err != nil {
			return notFoundOr(err, "commission not found", "load commission")
		}
		if err := access.Authorize(actor, access.CapCommissionPay, access.Owned(commission.SellerID)); err != nil {
			return err
		}
		if commission.Status == enums.CommissionStatusPaid {
			return pkgerrors.WithReason(pkgerrors.CodeConflict, pkgerrors.ReasonCommissionPaid,
				"commission already paid", map[string]any{"commission_id": commission.ID})
		}
		pending, err := repo.HasPendingPayment(ctx, commission.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check pending payments")
		}
		if pending {
			return pkgerrors.WithReason(pkgerrors.CodeConflict, pkgerrors.ReasonPaymentPending,
				"a payment for this commission is already awaiting review", map[string]any{"commission_id": commission.ID})
		}

		now := s.now().UTC()
		payment = models.CommissionPayment{
			CommissionID:   commission.ID,
			SellerID:       commission.SellerID,
			Amount:         commission.CommissionAmount,
			TransactionRef: ref,
			ReceiptImage:   input.ReceiptImage,
			Status:         enums.CommissionPaymentStatusPendingReview,
			CreatedAt:      now,
		}
		if err := repo.CreatePayment(ctx, &payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create commission payment")
		}
		if err := repo.UpdateFields(ctx, commission.ID, map[string]any{
			"status": enums.CommissionStatusPendingVerification,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update commission")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCommissionPaymentSubmitted,
			AggregateType: enums.AggregateCommissionPayment,
			AggregateID:   payment.ID,
			Actor:         actorRef(actor),
			OccurredAt:    now,
			Data: payloads.CommissionPaymentSubmittedEvent{
				PaymentID:       payment.ID,
				CommissionID:    commission.ID,
				SellerID:        commission.SellerID,
				Amount:          payment.Amount,
				ReferenceNumber: ref,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logInfo(ctx, "commission.payment_submitted", map[string]any{
		"commission_id": commissionID,
		"payment_id":    payment.ID,
		"amount":        payment.Amount.StringFixed(2),
	})
	dto := toPaymentDTO(payment)
	return &dto, nil
}

func (s *service) ListPendingCommissionPayments(ctx context.Context, actor access.Actor, params pagination.Params) (pagination.Page[PendingPaymentDTO], error) {
	if err := access.Authorize(actor, access.CapCommissionPaymentListPending, access.Resource{}); err != nil {
		return pagination.Page[PendingPaymentDTO]{}, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[PendingPaymentDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListPendingPayments(ctx, cursor, params.Limit)
	if err != nil {
		return pagination.Page[PendingPaymentDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending commission payments")
	}
	page := pagination.Trim(rows, params.Limit, func(r PendingPaymentRow) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	return pagination.Map(page, toPendingPaymentDTO), nil
}

func (s *service) ConfirmCommissionPayment(ctx context.Context, actor access.Actor, paymentID uuid.UUID) (*PaymentReviewResult, error) {
	return s.review(ctx, actor, paymentID, enums.CommissionPaymentStatusConfirmed, "")
}

// RejectCommissionPayment hands the commission back to the seller as pending.
// Reads re-derive overdue from the due date.
func (s *service) RejectCommissionPayment(ctx context.Context, actor access.Actor, paymentID uuid.UUID, input RejectPaymentInput) (*PaymentReviewResult, error) {
	return s.review(ctx, actor, paymentID, enums.CommissionPaymentStatusRejected, strings.TrimSpace(input.Note))
}

func (s *service) review(ctx context.Context, actor access.Actor, paymentID uuid.UUID, target enums.CommissionPaymentStatus, note string) (*PaymentReviewResult, error) {
	if err := access.Authorize(actor, access.CapCommissionPaymentReview, access.Resource{}); err != nil {
		return nil, err
	}

	var result PaymentReviewResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindPaymentByIDForUpdate(ctx, paymentID)
		if err != nil {
			return notFoundOr(err, "commission payment not found", "load commission payment")
		}
		commission, err := repo.FindByIDForUpdate(ctx, payment.CommissionID)
		if err != nil {
			return notFoundOr(err, "commission not found", "load commission")
		}

		switch payment.Status {
		case target:
			result = PaymentReviewResult{
				Payment:          toPaymentDTO(*payment),
				CommissionStatus: commission.Status,
				AlreadyReviewed:  true,
			}
			return nil
		case enums.CommissionPaymentStatusConfirmed, enums.CommissionPaymentStatusRejected:
			return pkgerrors.WithReason(pkgerrors.CodeConflict, pkgerrors.ReasonAlreadyReviewed,
				"commission payment already "+string(payment.Status), map[string]any{"payment_id": payment.ID})
		}

		now := s.now().UTC()
		paymentUpdates := map[string]any{
			"status":      target,
			"reviewed_by": actor.UserID,
			"reviewed_at": now,
		}
		commissionUpdates := map[string]any{}
		eventType := enums.EventCommissionPaid
		if target == enums.CommissionPaymentStatusConfirmed {
			commissionUpdates["status"] = enums.CommissionStatusPaid
			commissionUpdates["paid_at"] = now
		} else {
			eventType = enums.EventCommissionPaymentRejected
			if note != "" {
				paymentUpdates["note"] = note
			}
			commissionUpdates["status"] = enums.CommissionStatusPending
		}
		if err := repo.UpdatePaymentFields(ctx, payment.ID, paymentUpdates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update commission payment")
		}
		if err := repo.UpdateFields(ctx, commission.ID, commissionUpdates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update commission")
		}

		payment.Status = target
		payment.ReviewedBy = &actor.UserID
		payment.ReviewedAt = &now
		if note != "" {
			payment.Note = &note
		}
		result = PaymentReviewResult{
			Payment:          toPaymentDTO(*payment),
			CommissionStatus: commissionUpdates["status"].(enums.CommissionStatus),
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateCommissionPayment,
			AggregateID:   payment.ID,
			Actor:         actorRef(actor),
			OccurredAt:    now,
			Data: payloads.CommissionPaymentReviewedEvent{
				PaymentID:    payment.ID,
				CommissionID: commission.ID,
				SellerID:     commission.SellerID,
				ReviewedBy:   actor.UserID,
				Status:       target,
				Note:         note,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyReviewed {
		s.metrics.CommissionPaymentReviewed(string(target))
		s.logInfo(ctx, "commission.payment_reviewed", map[string]any{
			"payment_id": paymentID,
			"status":     target,
		})
	}
	return &result, nil
}

// SweepOverdue persists overdue on pending commissions past due at now and
// queues one commission_overdue event per commission, ever.
func (s *service) SweepOverdue(ctx context.Context, now time.Time) ([]models.Commission, error) {
	var flipped []models.Commission
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := s.repo.WithTx(tx).MarkOverdue(ctx, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark commissions overdue")
		}
		for _, c := range rows {
			if err := s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventCommissionOverdue,
				AggregateType: enums.AggregateCommission,
				AggregateID:   c.ID,
				OccurredAt:    now.UTC(),
				Data: payloads.CommissionOverdueEvent{
					CommissionID:     c.ID,
					SellerID:         c.SellerID,
					CommissionAmount: c.CommissionAmount,
					DueDate:          c.DueDate,
				},
			}); err != nil {
				return err
			}
		}
		flipped = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(flipped) > 0 {
		s.logInfo(ctx, "commission.overdue_sweep", map[string]any{"count": len(flipped)})
	}
	return flipped, nil
}

func (s *service) logInfo(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}

// sellerScope narrows reads to the seller's own rows; admins see everything.
func sellerScope(actor access.Actor) *uuid.UUID {
	if actor.IsAdmin() {
		return nil
	}
	id := actor.UserID
	return &id
}

func notFoundOr(err error, notFound, op string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func actorRef(actor access.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
}
