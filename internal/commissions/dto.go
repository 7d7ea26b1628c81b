package commissions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ethoparts/marketplace-backend/pkg/db/models"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
)

type SubmitPaymentInput struct {
	TransactionRef string  `json:"transaction_ref" validate:"required"`
	ReceiptImage   *string `json:"receipt_image,omitempty"`
}

type RejectPaymentInput struct {
	Note string `json:"note"`
}

// CommissionDTO reports the effective status next to the persisted one.
type CommissionDTO struct {
	ID               uuid.UUID              `json:"id"`
	OrderID          uuid.UUID              `json:"order_id"`
	OrderNumber      string                 `json:"order_number"`
	SellerID         uuid.UUID              `json:"seller_id"`
	SaleAmount       decimal.Decimal        `json:"sale_amount"`
	CommissionRate   decimal.Decimal        `json:"commission_rate"`
	CommissionAmount decimal.Decimal        `json:"commission_amount"`
	Status           enums.CommissionStatus `json:"status"`
	StoredStatus     enums.CommissionStatus `json:"stored_status"`
	DueDate          time.Time              `json:"due_date"`
	PaidAt           *time.Time             `json:"paid_at,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}

func ToDTO(c models.Commission, now time.Time) CommissionDTO {
	return CommissionDTO{
		ID:               c.ID,
		OrderID:          c.OrderID,
		OrderNumber:      c.OrderNumber,
		SellerID:         c.SellerID,
		SaleAmount:       c.SaleAmount,
		CommissionRate:   c.CommissionRate,
		CommissionAmount: c.CommissionAmount,
		Status:           EffectiveStatus(c, now),
		StoredStatus:     c.Status,
		DueDate:          c.DueDate,
		PaidAt:           c.PaidAt,
		CreatedAt:        c.CreatedAt,
	}
}

// Stats is shaped by viewer: admins get the platform view, sellers their own.
type Stats struct {
	TotalEarned      *decimal.Decimal `json:"total_earned,omitempty"`
	PendingAmount    *decimal.Decimal `json:"pending_amount,omitempty"`
	PaidAmount       *decimal.Decimal `json:"paid_amount,omitempty"`
	TotalOwed        *decimal.Decimal `json:"total_owed,omitempty"`
	TotalCommissions int64            `json:"total_commissions"`
}

type CommissionPaymentDTO struct {
	ID             uuid.UUID                     `json:"id"`
	CommissionID   uuid.UUID                     `json:"commission_id"`
	SellerID       uuid.UUID                     `json:"seller_id"`
	Amount         decimal.Decimal               `json:"amount"`
	TransactionRef string                        `json:"transaction_ref"`
	ReceiptImage   *string                       `json:"receipt_image,omitempty"`
	Status         enums.CommissionPaymentStatus `json:"status"`
	Note           *string                       `json:"note,omitempty"`
	ReviewedBy     *uuid.UUID                    `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time                    `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time                     `json:"created_at"`
}

func toPaymentDTO(p models.CommissionPayment) CommissionPaymentDTO {
	return CommissionPaymentDTO{
		ID:             p.ID,
		CommissionID:   p.CommissionID,
		SellerID:       p.SellerID,
		Amount:         p.Amount,
		TransactionRef: p.TransactionRef,
		ReceiptImage:   p.ReceiptImage,
		Status:         p.Status,
		Note:           p.Note,
		ReviewedBy:     p.ReviewedBy,
		ReviewedAt:     p.ReviewedAt,
		CreatedAt:      p.CreatedAt,
	}
}

type PendingPaymentDTO struct {
	CommissionPaymentDTO
	OrderNumber      string          `json:"order_number"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	SellerName       string          `json:"seller_name"`
}

func toPendingPaymentDTO(row PendingPaymentRow) PendingPaymentDTO {
	return PendingPaymentDTO{
		CommissionPaymentDTO: CommissionPaymentDTO{
			ID:             row.ID,
			CommissionID:   row.CommissionID,
			SellerID:       row.SellerID,
			Amount:         row.Amount,
			TransactionRef: row.TransactionRef,
			ReceiptImage:   row.ReceiptImage,
			Status:         row.Status,
			CreatedAt:      row.CreatedAt,
		},
		OrderNumber:      row.OrderNumber,
		CommissionAmount: row.CommissionAmount,
		SellerName:       row.SellerName,
	}
}

// PaymentReviewResult is returned by confirm and reject. AlreadyReviewed is
// set when the call found the payment in the requested state and changed
// nothing.
type PaymentReviewResult struct {
	Payment          CommissionPaymentDTO   `json:"payment"`
	CommissionStatus enums.CommissionStatus `json:"commission_status"`
	AlreadyReviewed  bool                   `json:"already_reviewed"`
}
