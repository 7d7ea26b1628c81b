package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ethoparts/marketplace-backend/pkg/enums"
)

// Order is immutable in its money fields once created. Only the two status
// axes, the receipt reference and the tracking log move afterwards.
type Order struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber         string              `gorm:"column:order_number;not null;index"`
	BuyerID             uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index"`
	TotalAmount         decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	CommissionRate      decimal.Decimal     `gorm:"column:commission_rate;type:numeric(5,4);not null"`
	CommissionAmount    decimal.Decimal     `gorm:"column:commission_amount;type:numeric(12,2);not null"`
	ShippingAddress     string              `gorm:"column:shipping_address;not null"`
	ShippingCity        string              `gorm:"column:shipping_city;not null"`
	ShippingPhone       string              `gorm:"column:shipping_phone;not null"`
	PaymentMethodID     uuid.UUID           `gorm:"column:payment_method_id;type:uuid;not null"`
	PaymentMethodName   string              `gorm:"column:payment_method_name;not null"`
	SellerAccountName   string              `gorm:"column:seller_account_name;not null"`
	SellerAccountNumber string              `gorm:"column:seller_account_number;not null"`
	Notes               *string             `gorm:"column:notes"`
	ReceiptImage        *string             `gorm:"column:receipt_image"`
	PaymentStatus       enums.PaymentStatus `gorm:"column:payment_status;type:text;not null"`
	OrderStatus         enums.OrderStatus   `gorm:"column:order_status;type:text;not null"`
	CreatedAt           time.Time           `gorm:"column:created_at"`
	UpdatedAt           time.Time           `gorm:"column:updated_at"`

	Items    []OrderItem          `gorm:"foreignKey:OrderID"`
	Tracking []OrderTrackingEntry `gorm:"foreignKey:OrderID"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// SellerIDs returns the distinct sellers of the order in line order.
func (o Order) SellerIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(o.Items))
	ids := make([]uuid.UUID, 0, len(o.Items))
	for _, item := range o.Items {
		if _, ok := seen[item.SellerID]; ok {
			continue
		}
		seen[item.SellerID] = struct{}{}
		ids = append(ids, item.SellerID)
	}
	return ids
}

// HasSeller reports whether any line belongs to sellerID.
func (o Order) HasSeller(sellerID uuid.UUID) bool {
	for _, item := range o.Items {
		if item.SellerID == sellerID {
			return true
		}
	}
	return false
}

// OrderItem snapshots product data at purchase time.
type OrderItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	ProductName string          `gorm:"column:product_name;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal   decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	SellerID    uuid.UUID       `gorm:"column:seller_id;type:uuid;not null;index"`
	Position    int             `gorm:"column:position;not null"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// OrderTrackingEntry is one row of the append-only order history.
type OrderTrackingEntry struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	Status    string    `gorm:"column:status;not null"`
	Note      string    `gorm:"column:note;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (OrderTrackingEntry) TableName() string {
	return "order_tracking_entries"
}

func (e *OrderTrackingEntry) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
