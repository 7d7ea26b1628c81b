package paymentmethods

import (
	"time"

	"github.com/google/uuid"

	"github.com/ethoparts/marketplace-backend/pkg/db/models"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
)

type CreateInput struct {
	Name          string  `json:"name" validate:"required"`
	Type          string  `json:"type" validate:"required,oneof=ewallet bank mobile_money"`
	AccountName   *string `json:"account_name,omitempty"`
	AccountNumber *string `json:"account_number,omitempty"`
	Instructions  *string `json:"instructions,omitempty"`
	LogoURL       *string `json:"logo_url,omitempty"`
	Enabled       *bool   `json:"enabled,omitempty"`
}

// UpdateInput is a partial update; nil fields are left alone.
type UpdateInput struct {
	Name          *string `json:"name,omitempty"`
	Type          *string `json:"type,omitempty"`
	AccountName   *string `json:"account_name,omitempty"`
	AccountNumber *string `json:"account_number,omitempty"`
	Instructions  *string `json:"instructions,omitempty"`
	LogoURL       *string `json:"logo_url,omitempty"`
	Enabled       *bool   `json:"enabled,omitempty"`
}

type BindInput struct {
	PaymentMethodID uuid.UUID `json:"payment_method_id" validate:"required"`
	AccountName     string    `json:"account_name" validate:"required"`
	AccountNumber   string    `json:"account_number" validate:"required"`
}

type PaymentMethodDTO struct {
	ID            uuid.UUID               `json:"id"`
	Name          string                  `json:"name"`
	Type          enums.PaymentMethodType `json:"type"`
	AccountName   *string                 `json:"account_name,omitempty"`
	AccountNumber *string                 `json:"account_number,omitempty"`
	Instructions  *string                 `json:"instructions,omitempty"`
	LogoURL       *string                 `json:"logo_url,omitempty"`
	Enabled       bool                    `json:"enabled"`
	CreatedAt     time.Time               `json:"created_at"`
}

func toDTO(m models.PaymentMethod) PaymentMethodDTO {
	return PaymentMethodDTO{
		ID:            m.ID,
		Name:          m.Name,
		Type:          m.Type,
		AccountName:   m.AccountName,
		AccountNumber: m.AccountNumber,
		Instructions:  m.Instructions,
		LogoURL:       m.LogoURL,
		Enabled:       m.Enabled,
		CreatedAt:     m.CreatedAt,
	}
}

type SellerPaymentMethodDTO struct {
	ID                uuid.UUID               `json:"id"`
	SellerID          uuid.UUID               `json:"seller_id"`
	PaymentMethodID   uuid.UUID               `json:"payment_method_id"`
	PaymentMethodName string                  `json:"payment_method_name"`
	PaymentMethodType enums.PaymentMethodType `json:"payment_method_type"`
	LogoURL           *string                 `json:"logo_url,omitempty"`
	AccountName       string                  `json:"account_name"`
	AccountNumber     string                  `json:"account_number"`
	Enabled           bool                    `json:"enabled"`
	CreatedAt         time.Time               `json:"created_at"`
}

func toBindingDTO(b models.SellerPaymentMethod) SellerPaymentMethodDTO {
	dto := SellerPaymentMethodDTO{
		ID:              b.ID,
		SellerID:        b.SellerID,
		PaymentMethodID: b.PaymentMethodID,
		AccountName:     b.AccountName,
		AccountNumber:   b.AccountNumber,
		Enabled:         b.Enabled,
		CreatedAt:       b.CreatedAt,
	}
	if b.PaymentMethod != nil {
		dto.PaymentMethodName = b.PaymentMethod.Name
		dto.PaymentMethodType = b.PaymentMethod.Type
		dto.LogoURL = b.PaymentMethod.LogoURL
	}
	return dto
}
