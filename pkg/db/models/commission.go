package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ethoparts/marketplace-backend/pkg/enums"
)

// Commission is what one seller owes the platform for one order.
// (order_id, seller_id) is unique.
type Commission struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID              `gorm:"column:order_id;type:uuid;not null;uniqueIndex:commissions_order_seller_key"`
	OrderNumber      string                 `gorm:"column:order_number;not null"`
	SellerID         uuid.UUID              `gorm:"column:seller_id;type:uuid;not null;uniqueIndex:commissions_order_seller_key"`
	SaleAmount       decimal.Decimal        `gorm:"column:sale_amount;type:numeric(12,2);not null"`
	CommissionAmount decimal.Decimal        `gorm:"column:commission_amount;type:numeric(12,2);not null"`
	CommissionRate   decimal.Decimal        `gorm:"column:commission_rate;type:numeric(5,4);not null"`
	Status           enums.CommissionStatus `gorm:"column:status;type:text;not null"`
	DueDate          time.Time              `gorm:"column:due_date;not null"`
	PaidAt           *time.Time             `gorm:"column:paid_at"`
	CreatedAt        time.Time              `gorm:"column:created_at"`
}

func (c *Commission) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// CommissionPayment is a seller's remittance against a commission.
type CommissionPayment struct {
	ID             uuid.UUID                     `gorm:"column:id;type:uuid;primaryKey"`
	CommissionID   uuid.UUID                     `gorm:"column:commission_id;type:uuid;not null;index"`
	SellerID       uuid.UUID                     `gorm:"column:seller_id;type:uuid;not null"`
	Amount         decimal.Decimal               `gorm:"column:amount;type:numeric(12,2);not null"`
	TransactionRef string                        `gorm:"column:transaction_ref;not null"`
	ReceiptImage   *string                       `gorm:"column:receipt_image"`
	Status         enums.CommissionPaymentStatus `gorm:"column:status;type:text;not null"`
	Note           *string                       `gorm:"column:note"`
	ReviewedBy     *uuid.UUID                    `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt     *time.Time                    `gorm:"column:reviewed_at"`
	CreatedAt      time.Time                     `gorm:"column:created_at"`
}

func (p *CommissionPayment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
