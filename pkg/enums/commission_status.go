package enums

import "fmt"

type CommissionStatus string

const (
	CommissionStatusPending             CommissionStatus = "pending"
	CommissionStatusPendingVerification CommissionStatus = "pending_verification"
	CommissionStatusPaid                CommissionStatus = "paid"
	CommissionStatusOverdue             CommissionStatus = "overdue"
)

var validCommissionStatuses = []CommissionStatus{
	CommissionStatusPending,
	CommissionStatusPendingVerification,
	CommissionStatusPaid,
	CommissionStatusOverdue,
}

// String implements fmt.Stringer.
func (c CommissionStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CommissionStatus.
func (c CommissionStatus) IsValid() bool {
	for _, candidate := range validCommissionStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCommissionStatus converts raw input into a CommissionStatus.
func ParseCommissionStatus(value string) (CommissionStatus, error) {
	for _, candidate := range validCommissionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission status %q", value)
}

// IsOutstanding reports whether the commission still counts toward the seller's debt.
func (c CommissionStatus) IsOutstanding() bool {
	return c == CommissionStatusPending || c == CommissionStatusOverdue || c == CommissionStatusPendingVerification
}

// OutstandingCommissionStatuses lists the stored statuses summed as unpaid.
func OutstandingCommissionStatuses() []CommissionStatus {
	return []CommissionStatus{CommissionStatusPending, CommissionStatusOverdue, CommissionStatusPendingVerification}
}
