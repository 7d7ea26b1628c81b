package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMarketplaceMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMarketplaceMetrics(reg)

	m.OrderPlaced()
	m.OrderPlaced()
	m.ReceiptReviewed("confirmed")
	m.CommissionsCreated(3)
	m.CommissionsCreated(0)
	m.CommissionPaymentReviewed("rejected")

	if got := testutil.ToFloat64(m.ordersPlaced); got != 2 {
		t.Fatalf("expected 2 orders, got %f", got)
	}
	if got := testutil.ToFloat64(m.receiptsReviewed.WithLabelValues("confirmed")); got != 1 {
		t.Fatalf("expected 1 confirmed receipt, got %f", got)
	}
	if got := testutil.ToFloat64(m.commissionsCreated); got != 3 {
		t.Fatalf("expected 3 commissions, got %f", got)
	}
	if got := testutil.ToFloat64(m.commissionsSettled.WithLabelValues("rejected")); got != 1 {
		t.Fatalf("expected 1 rejected payment, got %f", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *MarketplaceMetrics
	m.OrderPlaced()
	m.ReceiptReviewed("confirmed")

	NewMarketplaceMetrics(nil).CommissionsCreated(1)
	NewHTTPMetrics(nil).Observe("/api/orders", http.MethodGet, 200, time.Millisecond)
}

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := NewHTTPMetrics(reg)

	h.Observe("/api/orders/{id}", http.MethodGet, 200, 10*time.Millisecond)
	h.Observe("", http.MethodGet, 404, time.Millisecond)

	if got := testutil.ToFloat64(h.requests.WithLabelValues("/api/orders/{id}", "GET", "200")); got != 1 {
		t.Fatalf("expected one request, got %f", got)
	}
	if got := testutil.ToFloat64(h.requests.WithLabelValues("unmatched", "GET", "404")); got != 1 {
		t.Fatalf("expected unmatched bucket, got %f", got)
	}
}
