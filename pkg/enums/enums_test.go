package enums

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("shipped")
	require.NoError(t, err)
	require.Equal(t, OrderStatusShipped, status)

	_, err = ParseOrderStatus("lost")
	require.Error(t, err)
}

func TestPaymentAndOrderStatusAreIndependentSets(t *testing.T) {
	require.True(t, PaymentStatus("pending").IsValid())
	require.True(t, OrderStatus("pending").IsValid())
	require.False(t, PaymentStatus("shipped").IsValid())
	require.False(t, OrderStatus("completed").IsValid())
}

func TestCommissionStatusOutstanding(t *testing.T) {
	require.True(t, CommissionStatusPending.IsOutstanding())
	require.True(t, CommissionStatusOverdue.IsOutstanding())
	require.True(t, CommissionStatusPendingVerification.IsOutstanding())
	require.False(t, CommissionStatusPaid.IsOutstanding())
	require.Len(t, OutstandingCommissionStatuses(), 3)
}

func TestUserRoleSelfRegistrable(t *testing.T) {
	require.True(t, RoleBuyer.SelfRegistrable())
	require.True(t, RoleSeller.SelfRegistrable())
	require.False(t, RoleAdmin.SelfRegistrable())

	_, err := ParseUserRole("superuser")
	require.Error(t, err)
}

func TestOutboxEventTypes(t *testing.T) {
	eventType, err := ParseOutboxEventType("commission_created")
	require.NoError(t, err)
	require.Equal(t, EventCommissionCreated, eventType)
	require.False(t, OutboxEventType("order_created").IsValid())
	require.True(t, AggregateCommissionPayment.IsValid())
	require.True(t, OutboxDLQReasonMaxAttempts.IsValid())
}
