package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateOrder             OutboxAggregateType = "order"
	AggregatePaymentReceipt    OutboxAggregateType = "payment_receipt"
	AggregateCommission        OutboxAggregateType = "commission"
	AggregateCommissionPayment OutboxAggregateType = "commission_payment"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePaymentReceipt,
	AggregateCommission,
	AggregateCommissionPayment,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventOrderPlaced                OutboxEventType = "order_placed"
	EventOrderStatusChanged         OutboxEventType = "order_status_changed"
	EventReceiptSubmitted           OutboxEventType = "payment_receipt_submitted"
	EventPaymentConfirmed           OutboxEventType = "payment_confirmed"
	EventPaymentRejected            OutboxEventType = "payment_rejected"
	EventCommissionCreated          OutboxEventType = "commission_created"
	EventCommissionPaymentSubmitted OutboxEventType = "commission_payment_submitted"
	EventCommissionPaid             OutboxEventType = "commission_paid"
	EventCommissionPaymentRejected  OutboxEventType = "commission_payment_rejected"
	EventCommissionOverdue          OutboxEventType = "commission_overdue"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderPlaced,
	EventOrderStatusChanged,
	EventReceiptSubmitted,
	EventPaymentConfirmed,
	EventPaymentRejected,
	EventCommissionCreated,
	EventCommissionPaymentSubmitted,
	EventCommissionPaid,
	EventCommissionPaymentRejected,
	EventCommissionOverdue,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxDLQErrorReason explains why a row was moved to outbox_dlq.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
