package metrics

import "github.com/prometheus/client_golang/prometheus"

// MarketplaceMetrics counts order lifecycle transitions.
type MarketplaceMetrics struct {
	ordersPlaced       prometheus.Counter
	receiptsReviewed   *prometheus.CounterVec
	commissionsCreated prometheus.Counter
	commissionsSettled *prometheus.CounterVec
}

func NewMarketplaceMetrics(reg prometheus.Registerer) *MarketplaceMetrics {
	if reg == nil {
		return &MarketplaceMetrics{}
	}
	m := &MarketplaceMetrics{
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ethoparts_orders_placed_total",
			Help: "Orders successfully placed.",
		}),
		receiptsReviewed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ethoparts_payment_receipts_reviewed_total",
			Help: "Payment receipts reviewed by outcome.",
		}, []string{"outcome"}),
		commissionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ethoparts_commissions_created_total",
			Help: "Commission obligations created on payment confirmation.",
		}),
		commissionsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ethoparts_commission_payments_reviewed_total",
			Help: "Commission payments reviewed by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.ordersPlaced, m.receiptsReviewed, m.commissionsCreated, m.commissionsSettled)
	return m
}

func (m *MarketplaceMetrics) OrderPlaced() {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.Inc()
}

func (m *MarketplaceMetrics) ReceiptReviewed(outcome string) {
	if m == nil || m.receiptsReviewed == nil {
		return
	}
	m.receiptsReviewed.WithLabelValues(outcome).Inc()
}

func (m *MarketplaceMetrics) CommissionsCreated(n int) {
	if m == nil || m.commissionsCreated == nil || n <= 0 {
		return
	}
	m.commissionsCreated.Add(float64(n))
}

func (m *MarketplaceMetrics) CommissionPaymentReviewed(outcome string) {
	if m == nil || m.commissionsSettled == nil {
		return
	}
	m.commissionsSettled.WithLabelValues(outcome).Inc()
}
