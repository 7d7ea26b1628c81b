package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ethoparts/marketplace-backend/pkg/db/models"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
)

// LineInput is one requested cart line.
type LineInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

// PlaceOrderInput carries the buyer's checkout request.
type PlaceOrderInput struct {
	Items           []LineInput `json:"items" validate:"required,min=1,dive"`
	ShippingAddress string      `json:"shipping_address" validate:"required"`
	ShippingCity    string      `json:"shipping_city" validate:"required"`
	ShippingPhone   string      `json:"shipping_phone" validate:"required"`
	PaymentMethodID uuid.UUID   `json:"payment_method_id" validate:"required"`
	Notes           *string     `json:"notes,omitempty"`
}

// UpdateStatusInput moves the fulfilment axis of an order.
type UpdateStatusInput struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note,omitempty"`
}

type OrderItemDTO struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	SellerID    uuid.UUID       `json:"seller_id"`
}

type TrackingEntryDTO struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note"`
}

// OrderDTO is the full order as returned to buyers, sellers and admins.
type OrderDTO struct {
	ID                  uuid.UUID           `json:"id"`
	OrderNumber         string              `json:"order_number"`
	BuyerID             uuid.UUID           `json:"buyer_id"`
	Items               []OrderItemDTO      `json:"items"`
	TotalAmount         decimal.Decimal     `json:"total_amount"`
	CommissionRate      decimal.Decimal     `json:"commission_rate"`
	CommissionAmount    decimal.Decimal     `json:"commission_amount"`
	ShippingAddress     string              `json:"shipping_address"`
	ShippingCity        string              `json:"shipping_city"`
	ShippingPhone       string              `json:"shipping_phone"`
	PaymentMethodID     uuid.UUID           `json:"payment_method_id"`
	PaymentMethodName   string              `json:"payment_method_name"`
	SellerAccountName   string              `json:"seller_account_name"`
	SellerAccountNumber string              `json:"seller_account_number"`
	Notes               *string             `json:"notes,omitempty"`
	ReceiptImage        *string             `json:"receipt_image,omitempty"`
	PaymentStatus       enums.PaymentStatus `json:"payment_status"`
	OrderStatus         enums.OrderStatus   `json:"order_status"`
	TrackingInfo        []TrackingEntryDTO  `json:"tracking_info"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// TrackingView is the public projection served by order-number lookup.
type TrackingView struct {
	OrderNumber   string              `json:"order_number"`
	OrderStatus   enums.OrderStatus   `json:"order_status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	TrackingInfo  []TrackingEntryDTO  `json:"tracking_info"`
	CreatedAt     time.Time           `json:"created_at"`
}

func trackingDTOs(entries []models.OrderTrackingEntry) []TrackingEntryDTO {
	out := make([]TrackingEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, TrackingEntryDTO{Status: e.Status, Timestamp: e.CreatedAt, Note: e.Note})
	}
	return out
}

// ToDTO converts a loaded order with its items and tracking.
func ToDTO(o models.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemDTO{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
			SellerID:    it.SellerID,
		})
	}
	return OrderDTO{
		ID:                  o.ID,
		OrderNumber:         o.OrderNumber,
		BuyerID:             o.BuyerID,
		Items:               items,
		TotalAmount:         o.TotalAmount,
		CommissionRate:      o.CommissionRate,
		CommissionAmount:    o.CommissionAmount,
		ShippingAddress:     o.ShippingAddress,
		ShippingCity:        o.ShippingCity,
		ShippingPhone:       o.ShippingPhone,
		PaymentMethodID:     o.PaymentMethodID,
		PaymentMethodName:   o.PaymentMethodName,
		SellerAccountName:   o.SellerAccountName,
		SellerAccountNumber: o.SellerAccountNumber,
		Notes:               o.Notes,
		ReceiptImage:        o.ReceiptImage,
		PaymentStatus:       o.PaymentStatus,
		OrderStatus:         o.OrderStatus,
		TrackingInfo:        trackingDTOs(o.Tracking),
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
}

func toTrackingView(o models.Order) TrackingView {
	return TrackingView{
		OrderNumber:   o.OrderNumber,
		OrderStatus:   o.OrderStatus,
		PaymentStatus: o.PaymentStatus,
		TrackingInfo:  trackingDTOs(o.Tracking),
		CreatedAt:     o.CreatedAt,
	}
}
