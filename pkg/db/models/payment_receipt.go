package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ethoparts/marketplace-backend/pkg/enums"
)

// PaymentReceipt is a buyer's proof of an off-platform transfer.
type PaymentReceipt struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	UserID         uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	TransactionRef string              `gorm:"column:transaction_ref;not null"`
	ReceiptImage   *string             `gorm:"column:receipt_image"`
	Status         enums.ReceiptStatus `gorm:"column:status;type:text;not null"`
	ReviewedBy     *uuid.UUID          `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt     *time.Time          `gorm:"column:reviewed_at"`
	CreatedAt      time.Time           `gorm:"column:created_at"`
}

func (r *PaymentReceipt) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
