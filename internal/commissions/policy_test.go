package commissions

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethoparts/marketplace-backend/pkg/config"
	"github.com/ethoparts/marketplace-backend/pkg/db/models"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPolicyAmountRounding(t *testing.T) {
	p := DefaultPolicy()
	cases := map[string]string{
		"200":     "20",
		"0":       "0",
		"1250.55": "125.06",
		"0.05":    "0.01",
		"0.04":    "0",
		"99.99":   "10",
	}
	for sale, want := range cases {
		got := p.Amount(dec(sale))
		assert.True(t, got.Equal(dec(want)), "sale %s: got %s want %s", sale, got, want)
	}
}

func TestPolicyDueDate(t *testing.T) {
	confirmed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, confirmed.Add(48*time.Hour), DefaultPolicy().DueDate(confirmed))
}

func TestPolicyFromConfig(t *testing.T) {
	p, err := PolicyFromConfig(config.CommissionConfig{Rate: "0.15", DueHours: 24})
	require.NoError(t, err)
	assert.True(t, p.Rate.Equal(dec("0.15")))
	assert.Equal(t, 24*time.Hour, p.DueAfter)

	_, err = PolicyFromConfig(config.CommissionConfig{Rate: "1.5", DueHours: 24})
	assert.Error(t, err)
	_, err = PolicyFromConfig(config.CommissionConfig{Rate: "0.1", DueHours: 0})
	assert.Error(t, err)
}

func TestEffectiveStatus(t *testing.T) {
	due := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)
	before := due.Add(-time.Minute)
	after := due.Add(time.Minute)

	row := func(status enums.CommissionStatus) models.Commission {
		return models.Commission{Status: status, DueDate: due}
	}

	assert.Equal(t, enums.CommissionStatusPending, EffectiveStatus(row(enums.CommissionStatusPending), before))
	assert.Equal(t, enums.CommissionStatusPending, EffectiveStatus(row(enums.CommissionStatusPending), due))
	assert.Equal(t, enums.CommissionStatusOverdue, EffectiveStatus(row(enums.CommissionStatusPending), after))
	assert.Equal(t, enums.CommissionStatusOverdue, EffectiveStatus(row(enums.CommissionStatusOverdue), after))
	assert.Equal(t, enums.CommissionStatusPaid, EffectiveStatus(row(enums.CommissionStatusPaid), after))
	assert.Equal(t, enums.CommissionStatusPendingVerification, EffectiveStatus(row(enums.CommissionStatusPendingVerification), after))
}

func TestEffectiveStatusIsPure(t *testing.T) {
	c := models.Commission{Status: enums.CommissionStatusPending, DueDate: time.Now().Add(-time.Hour)}
	_ = EffectiveStatus(c, time.Now())
	assert.Equal(t, enums.CommissionStatusPending, c.Status)
}

func TestSplitKeepsFirstAppearanceOrder(t *testing.T) {
	s1, s2 := uuid.New(), uuid.New()
	shares := Split([]models.OrderItem{
		{SellerID: s2, LineTotal: dec("50")},
		{SellerID: s1, LineTotal: dec("20.25")},
		{SellerID: s2, LineTotal: dec("10.10")},
	})
	require.Len(t, shares, 2)
	assert.Equal(t, s2, shares[0].SellerID)
	assert.True(t, shares[0].Sale.Equal(dec("60.10")))
	assert.Equal(t, s1, shares[1].SellerID)
	assert.True(t, shares[1].Sale.Equal(dec("20.25")))
}

func TestBuildCommissions(t *testing.T) {
	seller := uuid.New()
	confirmed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	order := models.Order{
		ID:          uuid.New(),
		OrderNumber: "EP-20260301-ABCDEF",
		Items: []models.OrderItem{
			{SellerID: seller, Quantity: 2, UnitPrice: dec("100"), LineTotal: dec("200")},
		},
	}

	rows := DefaultPolicy().Build(order, confirmed)
	require.Len(t, rows, 1)
	assert.Equal(t, order.ID, rows[0].OrderID)
	assert.Equal(t, order.OrderNumber, rows[0].OrderNumber)
	assert.True(t, rows[0].SaleAmount.Equal(dec("200")))
	assert.True(t, rows[0].CommissionAmount.Equal(dec("20.00")))
	assert.Equal(t, enums.CommissionStatusPending, rows[0].Status)
	assert.Equal(t, confirmed.Add(48*time.Hour), rows[0].DueDate)
}
