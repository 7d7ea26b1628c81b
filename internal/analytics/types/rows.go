package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// MarketplaceEventRow mirrors the marketplace_events BigQuery schema. Money
// is stored in cents; ids the event does not carry stay NULL.
type MarketplaceEventRow struct {
	EventID       string             `bigquery:"event_id"`
	EventType     string             `bigquery:"event_type"`
	AggregateType string             `bigquery:"aggregate_type"`
	AggregateID   string             `bigquery:"aggregate_id"`
	OccurredAt    time.Time          `bigquery:"occurred_at"`
	OrderID       *string            `bigquery:"order_id"`
	BuyerID       *string            `bigquery:"buyer_id"`
	SellerID      *string            `bigquery:"seller_id"`
	CommissionID  *string            `bigquery:"commission_id"`
	Status        *string            `bigquery:"status"`
	AmountCents   *int64             `bigquery:"amount_cents"`
	Payload       cbigquery.NullJSON `bigquery:"payload"`
}
