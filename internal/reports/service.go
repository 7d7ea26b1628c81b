// Package reports aggregates the numbers shown on the admin and seller
// dashboards.
package reports

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ethoparts/marketplace-backend/internal/access"
	"github.com/ethoparts/marketplace-backend/internal/commissions"
	pkgerrors "github.com/ethoparts/marketplace-backend/pkg/errors"
)

type AdminStats struct {
	TotalUsers              int64           `json:"total_users"`
	TotalProducts           int64           `json:"total_products"`
	TotalOrders             int64           `json:"total_orders"`
	PendingPayments         int64           `json:"pending_payments"`
	PendingCommissions      int64           `json:"pending_commissions"`
	TotalSales              decimal.Decimal `json:"total_sales"`
	TotalCommissionEarned   decimal.Decimal `json:"total_commission_earned"`
	PendingCommissionAmount decimal.Decimal `json:"pending_commission_amount"`
}

type SellerStats struct {
	TotalProducts     int64           `json:"total_products"`
	TotalOrders       int64           `json:"total_orders"`
	TotalSales        decimal.Decimal `json:"total_sales"`
	PendingCommission decimal.Decimal `json:"pending_commission"`
	PaidCommission    decimal.Decimal `json:"paid_commission"`
}

type Service interface {
	Admin(ctx context.Context, actor access.Actor) (*AdminStats, error)
	Seller(ctx context.Context, actor access.Actor) (*SellerStats, error)
}

type ServiceParams struct {
	Repository  *Repository
	Commissions commissions.Repository
}

type service struct {
	repo        *Repository
	commissions commissions.Repository
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	if params.Commissions == nil {
		return nil, fmt.Errorf("commissions repository required")
	}
	return &service{repo: params.Repository, commissions: params.Commissions}, nil
}

func (s *service) Admin(ctx context.Context, actor access.Actor) (*AdminStats, error) {
	if err := access.Authorize(actor, access.CapAdminView, access.Resource{}); err != nil {
		return nil, err
	}
	counts, err := s.repo.PlatformCounts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count platform rows")
	}
	totals, err := s.commissions.Totals(ctx, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum commissions")
	}
	return &AdminStats{
		TotalUsers:              counts.Users,
		TotalProducts:           counts.Products,
		TotalOrders:             counts.Orders,
		PendingPayments:         counts.PendingReceipts,
		PendingCommissions:      counts.PendingCommissions,
		TotalSales:              counts.CompletedSales.Round(2),
		TotalCommissionEarned:   totals.Paid.Round(2),
		PendingCommissionAmount: totals.Outstanding.Round(2),
	}, nil
}

// Seller reports on the calling account. Admins get their own (usually
// empty) figures; there is no seller selector.
func (s *service) Seller(ctx context.Context, actor access.Actor) (*SellerStats, error) {
	if err := access.Authorize(actor, access.CapCommissionStats, access.Resource{}); err != nil {
		return nil, err
	}
	sellerID := actor.UserID
	products, err := s.repo.SellerProductCount(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count seller products")
	}
	sales, err := s.repo.SellerSales(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum seller sales")
	}
	totals, err := s.commissions.Totals(ctx, uuidPtr(sellerID))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum seller commissions")
	}
	return &SellerStats{
		TotalProducts:     products,
		TotalOrders:       sales.Orders,
		TotalSales:        sales.Sales.Round(2),
		PendingCommission: totals.Outstanding.Round(2),
		PaidCommission:    totals.Paid.Round(2),
	}, nil
}

func uuidPtr(id uuid.UUID) *uuid.UUID { return &id }
