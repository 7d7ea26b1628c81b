package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ethoparts/marketplace-backend/pkg/enums"
)

// OrderPlacedEvent is emitted once a buyer's order and its items are persisted.
type OrderPlacedEvent struct {
	OrderID         uuid.UUID       `json:"order_id"`
	OrderNumber     string          `json:"order_number"`
	BuyerID         uuid.UUID       `json:"buyer_id"`
	SellerIDs       []uuid.UUID     `json:"seller_ids"`
	PaymentMethodID uuid.UUID       `json:"payment_method_id"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ItemCount       int             `json:"item_count"`
}

// OrderStatusChangedEvent records a fulfilment transition.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	Status         enums.OrderStatus `json:"status"`
	ChangedBy      uuid.UUID         `json:"changed_by"`
	Note           string            `json:"note,omitempty"`
}

// ReceiptSubmittedEvent is emitted when a buyer uploads proof of payment.
type ReceiptSubmittedEvent struct {
	ReceiptID       uuid.UUID       `json:"receipt_id"`
	OrderID         uuid.UUID       `json:"order_id"`
	BuyerID         uuid.UUID       `json:"buyer_id"`
	ReferenceNumber string          `json:"reference_number"`
	Amount          decimal.Decimal `json:"amount"`
}

// PaymentReviewedEvent covers both confirmation and rejection of a receipt.
type PaymentReviewedEvent struct {
	ReceiptID  uuid.UUID           `json:"receipt_id"`
	OrderID    uuid.UUID           `json:"order_id"`
	ReviewedBy uuid.UUID           `json:"reviewed_by"`
	Status     enums.ReceiptStatus `json:"status"`
	AdminNotes string              `json:"admin_notes,omitempty"`
}

// CommissionCreatedEvent is emitted per seller when an order is paid.
type CommissionCreatedEvent struct {
	CommissionID     uuid.UUID       `json:"commission_id"`
	OrderID          uuid.UUID       `json:"order_id"`
	SellerID         uuid.UUID       `json:"seller_id"`
	SaleAmount       decimal.Decimal `json:"sale_amount"`
	CommissionRate   decimal.Decimal `json:"commission_rate"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	DueDate          time.Time       `json:"due_date"`
}

// CommissionPaymentSubmittedEvent is emitted when a seller pays a commission.
type CommissionPaymentSubmittedEvent struct {
	PaymentID       uuid.UUID       `json:"payment_id"`
	CommissionID    uuid.UUID       `json:"commission_id"`
	SellerID        uuid.UUID       `json:"seller_id"`
	Amount          decimal.Decimal `json:"amount"`
	ReferenceNumber string          `json:"reference_number"`
}

// CommissionPaymentReviewedEvent covers confirmation and rejection of a commission payment.
type CommissionPaymentReviewedEvent struct {
	PaymentID    uuid.UUID                     `json:"payment_id"`
	CommissionID uuid.UUID                     `json:"commission_id"`
	SellerID     uuid.UUID                     `json:"seller_id"`
	ReviewedBy   uuid.UUID                     `json:"reviewed_by"`
	Status       enums.CommissionPaymentStatus `json:"status"`
	Note         string                        `json:"note,omitempty"`
}

// CommissionOverdueEvent is emitted when the sweep flips a commission to overdue.
type CommissionOverdueEvent struct {
	CommissionID     uuid.UUID       `json:"commission_id"`
	SellerID         uuid.UUID       `json:"seller_id"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	DueDate          time.Time       `json:"due_date"`
}
