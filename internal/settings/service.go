// Package settings stores admin configuration that is not tied to one
// record, currently where sellers send their commission payments.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ethoparts/marketplace-backend/internal/access"
	"github.com/ethoparts/marketplace-backend/pkg/db"
	"github.com/ethoparts/marketplace-backend/pkg/db/models"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
	pkgerrors "github.com/ethoparts/marketplace-backend/pkg/errors"
	"github.com/ethoparts/marketplace-backend/pkg/types"
)

const commissionPaymentMethodKey = "commission_payment_method"

// CommissionPaymentMethod is the stored admin choice.
type CommissionPaymentMethod struct {
	PaymentMethodID *uuid.UUID `json:"payment_method_id"`
	AccountName     string     `json:"account_name,omitempty"`
	AccountNumber   string     `json:"account_number,omitempty"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

type SetCommissionPaymentMethodInput struct {
	PaymentMethodID uuid.UUID `json:"payment_method_id" validate:"required"`
	AccountName     string    `json:"account_name" validate:"required"`
	AccountNumber   string    `json:"account_number" validate:"required"`
}

// CommissionPaymentInfo is what sellers see when settling commissions.
type CommissionPaymentInfo struct {
	Configured    bool                    `json:"configured"`
	MethodName    string                  `json:"method_name,omitempty"`
	MethodType    enums.PaymentMethodType `json:"method_type,omitempty"`
	LogoURL       *string                 `json:"logo_url,omitempty"`
	AccountName   string                  `json:"account_name,omitempty"`
	AccountNumber string                  `json:"account_number,omitempty"`
	Instructions  *string                 `json:"instructions,omitempty"`
}

type Service interface {
	CommissionPaymentMethod(ctx context.Context, actor access.Actor) (*CommissionPaymentMethod, error)
	SetCommissionPaymentMethod(ctx context.Context, actor access.Actor, input SetCommissionPaymentMethodInput) (*CommissionPaymentMethod, error)
	CommissionPaymentInfo(ctx context.Context) (*CommissionPaymentInfo, error)
}

type methodFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error)
}

type ServiceParams struct {
	Repository *Repository
	Methods    methodFinder
	Now        func() time.Time
}

type service struct {
	repo    *Repository
	methods methodFinder
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	if params.Methods == nil {
		return nil, fmt.Errorf("payment method lookup required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{repo: params.Repository, methods: params.Methods, now: now}, nil
}

func (s *service) CommissionPaymentMethod(ctx context.Context, actor access.Actor) (*CommissionPaymentMethod, error) {
	if err := access.Authorize(actor, access.CapSettingsManage, access.Resource{}); err != nil {
		return nil, err
	}
	stored, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return &CommissionPaymentMethod{}, nil
	}
	return stored, nil
}

func (s *service) SetCommissionPaymentMethod(ctx context.Context, actor access.Actor, input SetCommissionPaymentMethodInput) (*CommissionPaymentMethod, error) {
	if err := access.Authorize(actor, access.CapSettingsManage, access.Resource{}); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.AccountName)
	number := strings.TrimSpace(input.AccountNumber)
	if input.PaymentMethodID == uuid.Nil || name == "" || number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment_method_id, account_name and account_number are required")
	}
	if _, err := s.methods.FindByID(ctx, input.PaymentMethodID); err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment method")
	}

	now := s.now().UTC()
	value := CommissionPaymentMethod{
		PaymentMethodID: &input.PaymentMethodID,
		AccountName:     name,
		AccountNumber:   number,
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode setting")
	}
	if err := s.repo.Put(ctx, &models.PlatformSetting{
		Key:       commissionPaymentMethodKey,
		Value:     types.JSONDocument(raw),
		UpdatedAt: now,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store setting")
	}
	value.UpdatedAt = &now
	return &value, nil
}

// CommissionPaymentInfo is public. A setting that points at a deleted method
// reads as unconfigured.
func (s *service) CommissionPaymentInfo(ctx context.Context) (*CommissionPaymentInfo, error) {
	stored, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if stored == nil || stored.PaymentMethodID == nil {
		return &CommissionPaymentInfo{}, nil
	}
	method, err := s.methods.FindByID(ctx, *stored.PaymentMethodID)
	if err != nil {
		if db.IsNotFound(err) {
			return &CommissionPaymentInfo{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment method")
	}
	return &CommissionPaymentInfo{
		Configured:    true,
		MethodName:    method.Name,
		MethodType:    method.Type,
		LogoURL:       method.LogoURL,
		AccountName:   stored.AccountName,
		AccountNumber: stored.AccountNumber,
		Instructions:  method.Instructions,
	}, nil
}

func (s *service) load(ctx context.Context) (*CommissionPaymentMethod, error) {
	row, err := s.repo.Get(ctx, commissionPaymentMethodKey)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load setting")
	}
	var value CommissionPaymentMethod
	if err := json.Unmarshal(row.Value, &value); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode setting")
	}
	updated := row.UpdatedAt.UTC()
	value.UpdatedAt = &updated
	return &value, nil
}
