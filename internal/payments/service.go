package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ethoparts/marketplace-backend/internal/access"
	"github.com/ethoparts/marketplace-backend/internal/commissions"
	"github.com/ethoparts/marketplace-backend/internal/orders"
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
}

// Service verifies the off-platform transfers buyers make and, on
// confirmation, raises the commissions sellers owe.
type Service interface {
	SubmitReceipt(ctx context.Context, actor access.Actor, input SubmitReceiptInput) (*ReceiptDTO, error)
	ListPendingReceipts(ctx context.Context, actor access.Actor, params pagination.Params) (pagination.Page[PendingReceiptDTO], error)
	ConfirmReceipt(ctx context.Context, actor access.Actor, receiptID uuid.UUID) (*ReviewResult, error)
	RejectReceipt(ctx context.Context, actor access.Actor, receiptID uuid.UUID) (*ReviewResult, error)
}

type ServiceParams struct {
	Repository  Repository
	Orders      orders.Repository
	Commissions commissions.Repository
	Tx          txRunner
	Outbox      outboxPublisher
	Policy      commissions.Policy
	Logger      *logger.Logger
	Metrics     *metrics.MarketplaceMetrics
	Now         func() time.Time
}

type service struct {
	repo        Repository
	orders      orders.Repository
	commissions commissions.Repository
	tx          txRunner
	outbox      outboxPublisher
	policy      commissions.Policy
	logg        *logger.Logger
	metrics     *metrics.MarketplaceMetrics
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Commissions == nil {
		return nil, fmt.Errorf("commissions repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if err := params.Policy.Validate(); err != nil {
		return nil, err
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:        params.Repository,
		orders:      params.Orders,
		commissions: params.Commissions,
		tx:          params.Tx,
		outbox:      params.Outbox,
		policy:      params.Policy,
		logg:        params.Logger,
		metrics:     params.Metrics,
		now:         now,
	}, nil
}

func (s *service) SubmitReceipt(ctx context.Context, actor access.Actor, input SubmitReceiptInput) (*ReceiptDTO, error) {
	ref := strings.TrimSpace(input.TransactionRef)
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction reference required")
	}

	var receipt models.PaymentReceipt
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orders.WithTx(tx)
		repo := s.repo.WithTx(tx)

		order, err := orderRepo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			return notFoundOr(err, "order not found", "load order")
		}
		if err := access.Authorize(actor, access.CapReceiptSubmit, access.OrderResource(order.BuyerID, order.SellerIDs())); err != nil {
			return err
		}
		pending, err := repo.HasPendingForOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check pending receipts")
		}
		if pending {
			return pkgerrors.WithReason(pkgerrors.CodeConflict, pkgerrors.ReasonReceiptPending,
				"a receipt for this order is already awaiting review", map[string]any{"order_id": order.ID})
		}
		if order.PaymentStatus == enums.PaymentStatusCompleted {
			return pkgerrors.WithReason(pkgerrors.CodeConflict, pkgerrors.ReasonAlreadyPaid,
				"order is already paid", map[string]any{"order_id": order.ID})
		}

		now := s.now().UTC()
		receipt = models.PaymentReceipt{
			OrderID:        order.ID,
			UserID:         actor.UserID,
			TransactionRef: ref,
			ReceiptImage:   input.ReceiptImage,
			Status:         enums.ReceiptStatusPendingReview,
			CreatedAt:      now,
		}
		if err := repo.Create(ctx, &receipt); err != nil {
			if db.IsUniqueViolation(err, "payment_receipts_one_pending_per_order") {
				return pkgerrors.WithReason(pkgerrors.CodeConflict, pkgerrors.ReasonReceiptPending,
					"a receipt for this order is already awaiting review", map[string]any{"order_id": order.ID})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create receipt")
		}
		updates := map[string]any{
			"payment_status": enums.PaymentStatusPendingVerification,
			"updated_at":     now,
		}
		if input.ReceiptImage != nil {
			updates["receipt_image"] = *input.ReceiptImage
		}
		if err := orderRepo.UpdateFields(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order payment status")
		}
		tracking := orders.ReceiptUploadedEntry(order.ID, ref, now)
		if err := orderRepo.AppendTracking(ctx, &tracking); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReceiptSubmitted,
			AggregateType: enums.AggregatePaymentReceipt,
			AggregateID:   receipt.ID,
			Actor:         actorRef(actor),
			OccurredAt:    now,
			Data: payloads.ReceiptSubmittedEvent{
				ReceiptID:       receipt.ID,
				OrderID:         order.ID,
				BuyerID:         order.BuyerID,
				ReferenceNumber: ref,
				Amount:          order.TotalAmount,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logInfo(ctx, input.OrderID, "payment.receipt_submitted", map[string]any{
		"receipt_id": receipt.ID,
	})
	dto := toReceiptDTO(receipt)
	return &dto, nil
}

func (s *service) ListPendingReceipts(ctx context.Context, actor access.Actor, params pagination.Params) (pagination.Page[PendingReceiptDTO], error) {
	if err := access.Authorize(actor, access.CapReceiptListPending, access.Resource{}); err != nil {
		return pagination.Page[PendingReceiptDTO]{}, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[PendingReceiptDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	var sellerID *uuid.UUID
	if !actor.IsAdmin() {
		id := actor.UserID
		sellerID = &id
	}
	rows, err := s.repo.ListPending(ctx, sellerID, cursor, params.Limit)
	if err != nil {
		return pagination.Page[PendingReceiptDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending receipts")
	}
	page := pagination.Trim(rows, params.Limit, func(r PendingReceiptRow) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	return pagination.Map(page, toPendingDTO), nil
}

// ConfirmReceipt settles the order and raises one commission per seller.
// Confirming an already confirmed receipt changes nothing.
func (s *service) ConfirmReceipt(ctx context.Context, actor access.Actor, receiptID uuid.UUID) (*ReviewResult, error) {
	var (
		result  ReviewResult
		created int
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		receipt, order, err := s.loadForReview(ctx, tx, actor, receiptID)
		if err != nil {
			return err
		}
		commissionRepo := s.commissions.WithTx(tx)

		switch receipt.Status {
		case enums.ReceiptStatusRejected:
			return pkgerrors.WithReason(pkgerrors.CodeConflict, pkgerrors.ReasonAlreadyReviewed,
				"receipt was already rejected", map[string]any{"receipt_id": receipt.ID})
		case enums.ReceiptStatusConfirmed:
			existing, err := commissionRepo.ListByOrder(ctx, order.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commissions")
			}
			result = s.reviewResult(*receipt, order.PaymentStatus, order.OrderStatus, existing)
			result.AlreadyConfirmed = true
			return nil
		}

		now := s.now().UTC()
		if err := s.markReviewed(ctx, tx, receipt, actor, enums.ReceiptStatusConfirmed, now); err != nil {
			return err
		}
		orderRepo := s.orders.WithTx(tx)
		if err := orderRepo.UpdateFields(ctx, order.ID, map[string]any{
			"payment_status": enums.PaymentStatusCompleted,
			"order_status":   enums.OrderStatusConfirmed,
			"updated_at":     now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		tracking := orders.PaymentConfirmedEntry(order.ID, now)
		if err := orderRepo.AppendTracking(ctx, &tracking); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking")
		}

		inserted, err := commissionRepo.InsertIgnoringDuplicates(ctx, s.policyFor(*order).Build(*order, now))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create commissions")
		}
		created = len(inserted)

		if err := s.emitReviewed(ctx, tx, actor, receipt, enums.EventPaymentConfirmed, now); err != nil {
			return err
		}
		for _, c := range inserted {
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventCommissionCreated,
				AggregateType: enums.AggregateCommission,
				AggregateID:   c.ID,
				Actor:         actorRef(actor),
				OccurredAt:    now,
				Data: payloads.CommissionCreatedEvent{
					CommissionID:     c.ID,
					OrderID:          c.OrderID,
					SellerID:         c.SellerID,
					SaleAmount:       c.SaleAmount,
					CommissionRate:   c.CommissionRate,
					CommissionAmount: c.CommissionAmount,
					DueDate:          c.DueDate,
				},
			}); err != nil {
				return err
			}
		}

		all, err := commissionRepo.ListByOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commissions")
		}
		result = s.reviewResult(*receipt, enums.PaymentStatusCompleted, enums.OrderStatusConfirmed, all)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyConfirmed {
		s.metrics.ReceiptReviewed("confirmed")
		s.metrics.CommissionsCreated(created)
		s.logInfo(ctx, result.Receipt.OrderID, "payment.confirmed", map[string]any{
			"receipt_id":          receiptID,
			"commissions_created": created,
		})
	}
	return &result, nil
}

// RejectReceipt fails the payment. Stock is not restored and the order is
// not cancelled; the buyer may upload another receipt.
func (s *service) RejectReceipt(ctx context.Context, actor access.Actor, receiptID uuid.UUID) (*ReviewResult, error) {
	var result ReviewResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		receipt, order, err := s.loadForReview(ctx, tx, actor, receiptID)
		if err != nil {
			return err
		}

		switch receipt.Status {
		case enums.ReceiptStatusConfirmed:
			return pkgerrors.WithReason(pkgerrors.CodeConflict, pkgerrors.ReasonAlreadyReviewed,
				"receipt was already confirmed", map[string]any{"receipt_id": receipt.ID})
		case enums.ReceiptStatusRejected:
			result = s.reviewResult(*receipt, order.PaymentStatus, order.OrderStatus, nil)
			result.AlreadyRejected = true
			return nil
		}

		now := s.now().UTC()
		if err := s.markReviewed(ctx, tx, receipt, actor, enums.ReceiptStatusRejected, now); err != nil {
			return err
		}
		orderRepo := s.orders.WithTx(tx)
		if err := orderRepo.UpdateFields(ctx, order.ID, map[string]any{
			"payment_status": enums.PaymentStatusFailed,
			"updated_at":     now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		tracking := orders.PaymentRejectedEntry(order.ID, now)
		if err := orderRepo.AppendTracking(ctx, &tracking); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking")
		}
		if err := s.emitReviewed(ctx, tx, actor, receipt, enums.EventPaymentRejected, now); err != nil {
			return err
		}
		result = s.reviewResult(*receipt, enums.PaymentStatusFailed, order.OrderStatus, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyRejected {
		s.metrics.ReceiptReviewed("rejected")
		s.logInfo(ctx, result.Receipt.OrderID, "payment.rejected", map[string]any{"receipt_id": receiptID})
	}
	return &result, nil
}

// loadForReview locks the receipt and its order and checks the reviewer may
// act on the order.
func (s *service) loadForReview(ctx context.Context, tx *gorm.DB, actor access.Actor, receiptID uuid.UUID) (*models.PaymentReceipt, *models.Order, error) {
	receipt, err := s.repo.WithTx(tx).FindByIDForUpdate(ctx, receiptID)
	if err != nil {
		return nil, nil, notFoundOr(err, "receipt not found", "load receipt")
	}
	order, err := s.orders.WithTx(tx).FindByIDForUpdate(ctx, receipt.OrderID)
	if err != nil {
		return nil, nil, notFoundOr(err, "order not found", "load order")
	}
	if err := access.Authorize(actor, access.CapReceiptReview, access.OrderResource(order.BuyerID, order.SellerIDs())); err != nil {
		return nil, nil, err
	}
	return receipt, order, nil
}

func (s *service) markReviewed(ctx context.Context, tx *gorm.DB, receipt *models.PaymentReceipt, actor access.Actor, status enums.ReceiptStatus, at time.Time) error {
	if err := s.repo.WithTx(tx).UpdateFields(ctx, receipt.ID, map[string]any{
		"status":      status,
		"reviewed_by": actor.UserID,
		"reviewed_at": at,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update receipt")
	}
	receipt.Status = status
	receipt.ReviewedBy = &actor.UserID
	receipt.ReviewedAt = &at
	return nil
}

func (s *service) emitReviewed(ctx context.Context, tx *gorm.DB, actor access.Actor, receipt *models.PaymentReceipt, eventType enums.OutboxEventType, at time.Time) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePaymentReceipt,
		AggregateID:   receipt.ID,
		Actor:         actorRef(actor),
		OccurredAt:    at,
		Data: payloads.PaymentReviewedEvent{
			ReceiptID:  receipt.ID,
			OrderID:    receipt.OrderID,
			ReviewedBy: actor.UserID,
			Status:     receipt.Status,
		},
	})
}

// policyFor applies the rate snapshotted on the order at placement.
func (s *service) policyFor(order models.Order) commissions.Policy {
	p := s.policy
	p.Rate = order.CommissionRate
	return p
}

func (s *service) reviewResult(receipt models.PaymentReceipt, payment enums.PaymentStatus, status enums.OrderStatus, rows []models.Commission) ReviewResult {
	now := s.now()
	dtos := make([]commissions.CommissionDTO, 0, len(rows))
	for _, c := range rows {
		dtos = append(dtos, commissions.ToDTO(c, now))
	}
	return ReviewResult{
		Receipt:       toReceiptDTO(receipt),
		PaymentStatus: payment,
		OrderStatus:   status,
		Commissions:   dtos,
	}
}

func (s *service) logInfo(ctx context.Context, orderID uuid.UUID, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithOrderID(ctx, orderID.String())
	s.logg.Info(s.logg.WithFields(logCtx, fields), msg)
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
