package enums

import "fmt"

// CommissionPaymentStatus tracks admin review of a seller's commission remittance.
type CommissionPaymentStatus string

const (
	CommissionPaymentStatusPendingReview CommissionPaymentStatus = "pending_review"
	CommissionPaymentStatusConfirmed     CommissionPaymentStatus = "confirmed"
	CommissionPaymentStatusRejected      CommissionPaymentStatus = "rejected"
)

var validCommissionPaymentStatuses = []CommissionPaymentStatus{
	CommissionPaymentStatusPendingReview,
	CommissionPaymentStatusConfirmed,
	CommissionPaymentStatusRejected,
}

// String implements fmt.Stringer.
func (c CommissionPaymentStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CommissionPaymentStatus.
func (c CommissionPaymentStatus) IsValid() bool {
	for _, candidate := range validCommissionPaymentStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCommissionPaymentStatus converts raw input into a CommissionPaymentStatus.
func ParseCommissionPaymentStatus(value string) (CommissionPaymentStatus, error) {
	for _, candidate := range validCommissionPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commission payment status %q", value)
}
