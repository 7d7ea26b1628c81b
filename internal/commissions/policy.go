package commissions

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ethoparts/marketplace-backend/pkg/config"
	"github.com/ethoparts/marketplace-backend/pkg/db/models"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
)

var (
	DefaultRate     = decimal.RequireFromString("0.10")
	DefaultDueAfter = 48 * time.Hour
)

// Policy holds the platform commission terms. It performs no I/O.
type Policy struct {
	Rate     decimal.Decimal
	DueAfter time.Duration
}

// DefaultPolicy is 10% due 48 hours after payment confirmation.
func DefaultPolicy() Policy {
	return Policy{Rate: DefaultRate, DueAfter: DefaultDueAfter}
}

// PolicyFromConfig builds the policy from ETHOPARTS_COMMISSION_* settings.
func PolicyFromConfig(cfg config.CommissionConfig) (Policy, error) {
	p := Policy{Rate: cfg.RateDecimal(), DueAfter: cfg.DueAfter()}
	return p, p.Validate()
}

func (p Policy) Validate() error {
	if p.Rate.IsNegative() || p.Rate.GreaterThan(decimal.NewFromInt(1)) {
		return errors.New("commission rate must be between 0 and 1")
	}
	if p.DueAfter <= 0 {
		return errors.New("commission due window must be positive")
	}
	return nil
}

// Amount is sale × rate rounded half away from zero to cents.
func (p Policy) Amount(sale decimal.Decimal) decimal.Decimal {
	return sale.Mul(p.Rate).Round(2)
}

func (p Policy) DueDate(confirmedAt time.Time) time.Time {
	return confirmedAt.UTC().Add(p.DueAfter)
}

// EffectiveStatus derives the status a reader should see at now. Stored
// pending or overdue rows past their due date read as overdue; nothing reads
// back as pending once overdue.
func EffectiveStatus(c models.Commission, now time.Time) enums.CommissionStatus {
	switch c.Status {
	case enums.CommissionStatusPending, enums.CommissionStatusOverdue:
		if now.After(c.DueDate) {
			return enums.CommissionStatusOverdue
		}
	}
	return c.Status
}

// SellerShare is one seller's portion of an order.
type SellerShare struct {
	SellerID uuid.UUID
	Sale     decimal.Decimal
}

// Split sums line totals per seller, keeping sellers in first-appearance order.
func Split(items []models.OrderItem) []SellerShare {
	index := make(map[uuid.UUID]int, len(items))
	shares := make([]SellerShare, 0, len(items))
	for _, item := range items {
		i, ok := index[item.SellerID]
		if !ok {
			index[item.SellerID] = len(shares)
			shares = append(shares, SellerShare{SellerID: item.SellerID, Sale: item.LineTotal})
			continue
		}
		shares[i].Sale = shares[i].Sale.Add(item.LineTotal)
	}
	return shares
}

// Build produces the pending commission rows for a freshly confirmed order.
func (p Policy) Build(order models.Order, confirmedAt time.Time) []models.Commission {
	due := p.DueDate(confirmedAt)
	shares := Split(order.Items)
	rows := make([]models.Commission, 0, len(shares))
	for _, share := range shares {
		rows = append(rows, models.Commission{
			ID:               uuid.New(),
			OrderID:          order.ID,
			OrderNumber:      order.OrderNumber,
			SellerID:         share.SellerID,
			SaleAmount:       share.Sale,
			CommissionAmount: p.Amount(share.Sale),
			CommissionRate:   p.Rate,
			Status:           enums.CommissionStatusPending,
			DueDate:          due,
			CreatedAt:        confirmedAt.UTC(),
		})
	}
	return rows
}
