package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ethoparts/marketplace-backend/internal/analytics/types"
	"github.com/ethoparts/marketplace-backend/internal/analytics/writer"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
	"github.com/ethoparts/marketplace-backend/pkg/logger"
	"github.com/ethoparts/marketplace-backend/pkg/outbox/payloads"
	"github.com/ethoparts/marketplace-backend/pkg/outbox/registry"
)

const payloadVersion = 1

// Writer delivers rows produced from decoded events.
type Writer interface {
	InsertMarketplace(ctx context.Context, row types.MarketplaceEventRow) error
}

// Router decodes each envelope with the registered payload schema and writes
// one marketplace_events row for it.
type Router struct {
	decoders *registry.DecoderRegistry
	writer   Writer
	logg     *logger.Logger
}

func NewRouter(w Writer, logg *logger.Logger) (*Router, error) {
	if w == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventOrderPlaced, payloadVersion, registry.JSON[payloads.OrderPlacedEvent])
	decoders.Register(enums.EventOrderStatusChanged, payloadVersion, registry.JSON[payloads.OrderStatusChangedEvent])
	decoders.Register(enums.EventReceiptSubmitted, payloadVersion, registry.JSON[payloads.ReceiptSubmittedEvent])
	decoders.Register(enums.EventPaymentConfirmed, payloadVersion, registry.JSON[payloads.PaymentReviewedEvent])
	decoders.Register(enums.EventPaymentRejected, payloadVersion, registry.JSON[payloads.PaymentReviewedEvent])
	decoders.Register(enums.EventCommissionCreated, payloadVersion, registry.JSON[payloads.CommissionCreatedEvent])
	decoders.Register(enums.EventCommissionOverdue, payloadVersion, registry.JSON[payloads.CommissionOverdueEvent])
	decoders.Register(enums.EventCommissionPaymentSubmitted, payloadVersion, registry.JSON[payloads.CommissionPaymentSubmittedEvent])
	decoders.Register(enums.EventCommissionPaid, payloadVersion, registry.JSON[payloads.CommissionPaymentReviewedEvent])
	decoders.Register(enums.EventCommissionPaymentRejected, payloadVersion, registry.JSON[payloads.CommissionPaymentReviewedEvent])

	return &Router{decoders: decoders, writer: w, logg: logg}, nil
}

// Handle writes the row for envelope. Events without a decoder, or whose
// payload does not decode, are logged and dropped: redelivery cannot fix them.
func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	version := envelope.Version
	if version == 0 {
		version = payloadVersion
	}
	decoded, err := r.decoders.Decode(envelope.EventType, version, envelope.Payload)
	if err != nil {
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "analytics event skipped")
		return nil
	}

	row, err := project(envelope, decoded)
	if err != nil {
		return err
	}
	return r.writer.InsertMarketplace(ctx, row)
}

func project(envelope types.Envelope, decoded any) (types.MarketplaceEventRow, error) {
	payload, err := writer.EncodeJSON(envelope.Payload)
	if err != nil {
		return types.MarketplaceEventRow{}, fmt.Errorf("encode payload: %w", err)
	}
	row := types.MarketplaceEventRow{
		EventID:       envelope.EventID,
		EventType:     string(envelope.EventType),
		AggregateType: string(envelope.AggregateType),
		AggregateID:   envelope.AggregateID,
		OccurredAt:    envelope.OccurredAt.UTC(),
		Payload:       payload,
	}

	switch event := decoded.(type) {
	case *payloads.OrderPlacedEvent:
		row.OrderID = idString(event.OrderID)
		row.BuyerID = idString(event.BuyerID)
		row.AmountCents = cents(event.TotalAmount)
	case *payloads.OrderStatusChangedEvent:
		row.OrderID = idString(event.OrderID)
		row.Status = text(string(event.Status))
	case *payloads.ReceiptSubmittedEvent:
		row.OrderID = idString(event.OrderID)
		row.BuyerID = idString(event.BuyerID)
		row.AmountCents = cents(event.Amount)
	case *payloads.PaymentReviewedEvent:
		row.OrderID = idString(event.OrderID)
		row.Status = text(string(event.Status))
	case *payloads.CommissionCreatedEvent:
		row.OrderID = idString(event.OrderID)
		row.SellerID = idString(event.SellerID)
		row.CommissionID = idString(event.CommissionID)
		row.AmountCents = cents(event.CommissionAmount)
	case *payloads.CommissionOverdueEvent:
		row.SellerID = idString(event.SellerID)
		row.CommissionID = idString(event.CommissionID)
		row.AmountCents = cents(event.CommissionAmount)
	case *payloads.CommissionPaymentSubmittedEvent:
		row.SellerID = idString(event.SellerID)
		row.CommissionID = idString(event.CommissionID)
		row.AmountCents = cents(event.Amount)
	case *payloads.CommissionPaymentReviewedEvent:
		row.SellerID = idString(event.SellerID)
		row.CommissionID = idString(event.CommissionID)
		row.Status = text(string(event.Status))
	}
	return row, nil
}

func idString(id uuid.UUID) *string {
	if id == uuid.Nil {
		return nil
	}
	s := id.String()
	return &s
}

func text(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func cents(amount decimal.Decimal) *int64 {
	v := amount.Shift(2).Round(0).IntPart()
	return &v
}
