package paymentmethods

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ethoparts/marketplace-backend/internal/access"
	"github.com/ethoparts/marketplace-backend/pkg/db"
	"github.com/ethoparts/marketplace-backend/pkg/db/models"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
	pkgerrors "github.com/ethoparts/marketplace-backend/pkg/errors"
)

// Service manages the payment channels buyers can pay through: the
// platform catalogue of methods and each seller's receiving accounts.
type Service interface {
	List(ctx context.Context, enabledOnly bool) ([]PaymentMethodDTO, error)
	Create(ctx context.Context, actor access.Actor, input CreateInput) (*PaymentMethodDTO, error)
	Update(ctx context.Context, actor access.Actor, id uuid.UUID, input UpdateInput) (*PaymentMethodDTO, error)
	Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error
	Toggle(ctx context.Context, actor access.Actor, id uuid.UUID) (*PaymentMethodDTO, error)

	ListOwn(ctx context.Context, actor access.Actor) ([]SellerPaymentMethodDTO, error)
	Bind(ctx context.Context, actor access.Actor, input BindInput) (*SellerPaymentMethodDTO, error)
	Unbind(ctx context.Context, actor access.Actor, id uuid.UUID) error
	ListForSeller(ctx context.Context, sellerID uuid.UUID) ([]SellerPaymentMethodDTO, error)
}

type service struct {
	repo *Repository
	now  func() time.Time
}

func NewService(repo *Repository, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payment methods repository required")
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{repo: repo, now: now}, nil
}

func (s *service) List(ctx context.Context, enabledOnly bool) ([]PaymentMethodDTO, error) {
	rows, err := s.repo.List(ctx, enabledOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment methods")
	}
	out := make([]PaymentMethodDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row))
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, actor access.Actor, input CreateInput) (*PaymentMethodDTO, error) {
	if err := access.Authorize(actor, access.CapPaymentMethodManage, access.Resource{}); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	kind, err := enums.ParsePaymentMethodType(strings.TrimSpace(input.Type))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method type")
	}
	enabled := true
	if input.Enabled != nil {
		enabled = *input.Enabled
	}
	now := s.now().UTC()
	method := models.PaymentMethod{
		Name:          name,
		Type:          kind,
		AccountName:   input.AccountName,
		AccountNumber: input.AccountNumber,
		Instructions:  input.Instructions,
		LogoURL:       input.LogoURL,
		Enabled:       enabled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, &method); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment method")
	}
	dto := toDTO(method)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, actor access.Actor, id uuid.UUID, input UpdateInput) (*PaymentMethodDTO, error) {
	if err := access.Authorize(actor, access.CapPaymentMethodManage, access.Resource{}); err != nil {
		return nil, err
	}
	updates := map[string]any{"updated_at": s.now().UTC()}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank")
		}
		updates["name"] = name
	}
	if input.Type != nil {
		kind, err := enums.ParsePaymentMethodType(strings.TrimSpace(*input.Type))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method type")
		}
		updates["type"] = kind
	}
	for column, value := range map[string]*string{
		"account_name":   input.AccountName,
		"account_number": input.AccountNumber,
		"instructions":   input.Instructions,
		"logo_url":       input.LogoURL,
	} {
		if value != nil {
			updates[column] = *value
		}
	}
	if input.Enabled != nil {
		updates["enabled"] = *input.Enabled
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, notFoundOr(err, "payment method not found", "update payment method")
	}
	return s.get(ctx, id)
}

// Delete refuses while any seller account still points at the method;
// disable it instead.
func (s *service) Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	if err := access.Authorize(actor, access.CapPaymentMethodManage, access.Resource{}); err != nil {
		return err
	}
	n, err := s.repo.CountBindings(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count seller bindings")
	}
	if n > 0 {
		return pkgerrors.WithReason(pkgerrors.CodeConflict, pkgerrors.ReasonMethodInUse,
			"payment method is used by sellers", map[string]any{"payment_method_id": id, "bindings": n})
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOr(err, "payment method not found", "delete payment method")
	}
	return nil
}

func (s *service) Toggle(ctx context.Context, actor access.Actor, id uuid.UUID) (*PaymentMethodDTO, error) {
	if err := access.Authorize(actor, access.CapPaymentMethodManage, access.Resource{}); err != nil {
		return nil, err
	}
	current, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, id, map[string]any{
		"enabled":    !current.Enabled,
		"updated_at": s.now().UTC(),
	}); err != nil {
		return nil, notFoundOr(err, "payment method not found", "toggle payment method")
	}
	current.Enabled = !current.Enabled
	return current, nil
}

func (s *service) ListOwn(ctx context.Context, actor access.Actor) ([]SellerPaymentMethodDTO, error) {
	if err := access.Authorize(actor, access.CapSellerPaymentMethodManage, access.Owned(actor.UserID)); err != nil {
		return nil, err
	}
	return s.bindings(ctx, actor.UserID, false)
}

func (s *service) Bind(ctx context.Context, actor access.Actor, input BindInput) (*SellerPaymentMethodDTO, error) {
	if err := access.Authorize(actor, access.CapSellerPaymentMethodManage, access.Owned(actor.UserID)); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.AccountName)
	number := strings.TrimSpace(input.AccountNumber)
	if input.PaymentMethodID == uuid.Nil || name == "" || number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment_method_id, account_name and account_number are required")
	}
	method, err := s.repo.FindByID(ctx, input.PaymentMethodID)
	if err != nil {
		return nil, notFoundOr(err, "payment method not found", "load payment method")
	}
	if !method.Enabled {
		return nil, pkgerrors.WithReason(pkgerrors.CodeValidation, pkgerrors.ReasonMethodDisabled,
			"payment method is disabled", map[string]any{"payment_method_id": method.ID})
	}

	binding := models.SellerPaymentMethod{
		SellerID:        actor.UserID,
		PaymentMethodID: method.ID,
		AccountName:     name,
		AccountNumber:   number,
		Enabled:         true,
		CreatedAt:       s.now().UTC(),
	}
	if err := s.repo.CreateBinding(ctx, &binding); err != nil {
		if db.IsUniqueViolation(err, "seller_payment_methods_seller_method_key") {
			return nil, pkgerrors.WithReason(pkgerrors.CodeConflict, pkgerrors.ReasonDuplicateSellerMethod,
				"payment method already added", map[string]any{"payment_method_id": method.ID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create seller payment method")
	}
	binding.PaymentMethod = method
	dto := toBindingDTO(binding)
	return &dto, nil
}

func (s *service) Unbind(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	binding, err := s.repo.FindBinding(ctx, id)
	if err != nil {
		return notFoundOr(err, "seller payment method not found", "load seller payment method")
	}
	if binding.SellerID != actor.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to remove this payment method")
	}
	if err := s.repo.DeleteBinding(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete seller payment method")
	}
	return nil
}

// ListForSeller is the public view buyers use at checkout.
func (s *service) ListForSeller(ctx context.Context, sellerID uuid.UUID) ([]SellerPaymentMethodDTO, error) {
	return s.bindings(ctx, sellerID, true)
}

func (s *service) bindings(ctx context.Context, sellerID uuid.UUID, enabledOnly bool) ([]SellerPaymentMethodDTO, error) {
	rows, err := s.repo.ListBindings(ctx, sellerID, enabledOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list seller payment methods")
	}
	out := make([]SellerPaymentMethodDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toBindingDTO(row))
	}
	return out, nil
}

func (s *service) get(ctx context.Context, id uuid.UUID) (*PaymentMethodDTO, error) {
	method, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "payment method not found", "load payment method")
	}
	dto := toDTO(*method)
	return &dto, nil
}

func notFoundOr(err error, notFound, op string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
