package enums

import "fmt"

// ReceiptStatus tracks review of a buyer payment receipt.
type ReceiptStatus string

const (
	ReceiptStatusPendingReview ReceiptStatus = "pending_review"
	ReceiptStatusConfirmed     ReceiptStatus = "confirmed"
	ReceiptStatusRejected      ReceiptStatus = "rejected"
)

var validReceiptStatuses = []ReceiptStatus{
	ReceiptStatusPendingReview,
	ReceiptStatusConfirmed,
	ReceiptStatusRejected,
}

// String implements fmt.Stringer.
func (r ReceiptStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReceiptStatus.
func (r ReceiptStatus) IsValid() bool {
	for _, candidate := range validReceiptStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReceiptStatus converts raw input into a ReceiptStatus.
func ParseReceiptStatus(value string) (ReceiptStatus, error) {
	for _, candidate := range validReceiptStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid receipt status %q", value)
}
