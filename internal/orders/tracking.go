package orders

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ethoparts/marketplace-backend/pkg/db/models"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
)

// Tracking labels shared by every module that writes order history.
const (
	TrackingOrderPlaced      = "Order Placed"
	TrackingReceiptUploaded  = "Receipt Uploaded"
	TrackingPaymentConfirmed = "Payment Confirmed"
	TrackingPaymentRejected  = "Payment Rejected"

	noteOrderPlaced      = "Order has been placed. Awaiting payment."
	notePaymentConfirmed = "Payment has been verified and confirmed"
	notePaymentRejected  = "Payment verification failed. Please upload a valid receipt."
)

func entry(orderID uuid.UUID, status, note string, at time.Time) models.OrderTrackingEntry {
	return models.OrderTrackingEntry{
		OrderID:   orderID,
		Status:    status,
		Note:      note,
		CreatedAt: at.UTC(),
	}
}

func PlacedEntry(orderID uuid.UUID, at time.Time) models.OrderTrackingEntry {
	return entry(orderID, TrackingOrderPlaced, noteOrderPlaced, at)
}

func ReceiptUploadedEntry(orderID uuid.UUID, reference string, at time.Time) models.OrderTrackingEntry {
	return entry(orderID, TrackingReceiptUploaded, "Payment receipt uploaded. Reference: "+reference, at)
}

func PaymentConfirmedEntry(orderID uuid.UUID, at time.Time) models.OrderTrackingEntry {
	return entry(orderID, TrackingPaymentConfirmed, notePaymentConfirmed, at)
}

func PaymentRejectedEntry(orderID uuid.UUID, at time.Time) models.OrderTrackingEntry {
	return entry(orderID, TrackingPaymentRejected, notePaymentRejected, at)
}

// StatusEntry records a fulfilment transition; a blank note gets the default text.
func StatusEntry(orderID uuid.UUID, status enums.OrderStatus, note string, at time.Time) models.OrderTrackingEntry {
	if note == "" {
		note = fmt.Sprintf("Status updated to %s", status)
	}
	return entry(orderID, string(status), note, at)
}
