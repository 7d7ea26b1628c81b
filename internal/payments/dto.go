package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ethoparts/marketplace-backend/internal/commissions"
	"github.com/ethoparts/marketplace-backend/pkg/db/models"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
)

type SubmitReceiptInput struct {
	OrderID        uuid.UUID `json:"order_id" validate:"required"`
	TransactionRef string    `json:"transaction_ref" validate:"required"`
	ReceiptImage   *string   `json:"receipt_image,omitempty"`
}

type ReceiptDTO struct {
	ID             uuid.UUID           `json:"id"`
	OrderID        uuid.UUID           `json:"order_id"`
	UserID         uuid.UUID           `json:"user_id"`
	TransactionRef string              `json:"transaction_ref"`
	ReceiptImage   *string             `json:"receipt_image,omitempty"`
	Status         enums.ReceiptStatus `json:"status"`
	ReviewedBy     *uuid.UUID          `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time          `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

func toReceiptDTO(r models.PaymentReceipt) ReceiptDTO {
	return ReceiptDTO{
		ID:             r.ID,
		OrderID:        r.OrderID,
		UserID:         r.UserID,
		TransactionRef: r.TransactionRef,
		ReceiptImage:   r.ReceiptImage,
		Status:         r.Status,
		ReviewedBy:     r.ReviewedBy,
		ReviewedAt:     r.ReviewedAt,
		CreatedAt:      r.CreatedAt,
	}
}

type PendingReceiptDTO struct {
	ReceiptDTO
	OrderNumber       string          `json:"order_number"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	PaymentMethodName string          `json:"payment_method_name"`
}

func toPendingDTO(row PendingReceiptRow) PendingReceiptDTO {
	return PendingReceiptDTO{
		ReceiptDTO: ReceiptDTO{
			ID:             row.ID,
			OrderID:        row.OrderID,
			UserID:         row.UserID,
			TransactionRef: row.TransactionRef,
			ReceiptImage:   row.ReceiptImage,
			Status:         row.Status,
			CreatedAt:      row.CreatedAt,
		},
		OrderNumber:       row.OrderNumber,
		TotalAmount:       row.TotalAmount,
		PaymentMethodName: row.PaymentMethodName,
	}
}

// ReviewResult describes the state after a confirm or reject. The Already
// flags mark calls that found the receipt in the requested state.
type ReviewResult struct {
	Receipt          ReceiptDTO                  `json:"receipt"`
	PaymentStatus    enums.PaymentStatus         `json:"payment_status"`
	OrderStatus      enums.OrderStatus           `json:"order_status"`
	Commissions      []commissions.CommissionDTO `json:"commissions"`
	AlreadyConfirmed bool                        `json:"already_confirmed,omitempty"`
	AlreadyRejected  bool                        `json:"already_rejected,omitempty"`
}
