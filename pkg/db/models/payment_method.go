package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ethoparts/marketplace-backend/pkg/enums"
)

// PaymentMethod is a platform-approved payment channel.
type PaymentMethod struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	Name          string                  `gorm:"column:name;not null"`
	Type          enums.PaymentMethodType `gorm:"column:type;type:text;not null"`
	AccountName   *string                 `gorm:"column:account_name"`
	AccountNumber *string                 `gorm:"column:account_number"`
	Instructions  *string                 `gorm:"column:instructions"`
	LogoURL       *string                 `gorm:"column:logo_url"`
	Enabled       bool                    `gorm:"column:enabled;not null"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PaymentMethod) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// SellerPaymentMethod binds a seller's receiving account to a platform channel.
type SellerPaymentMethod struct {
	ID              uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	SellerID        uuid.UUID      `gorm:"column:seller_id;type:uuid;not null;index"`
	PaymentMethodID uuid.UUID      `gorm:"column:payment_method_id;type:uuid;not null"`
	AccountName     string         `gorm:"column:account_name;not null"`
	AccountNumber   string         `gorm:"column:account_number;not null"`
	Enabled         bool           `gorm:"column:enabled;not null"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	PaymentMethod   *PaymentMethod `gorm:"foreignKey:PaymentMethodID"`
}

func (s *SellerPaymentMethod) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
