package settings

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethoparts/marketplace-backend/internal/access"
	"github.com/ethoparts/marketplace-backend/internal/paymentmethods"
	"github.com/ethoparts/marketplace-backend/pkg/db/dbtest"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
	pkgerrors "github.com/ethoparts/marketplace-backend/pkg/errors"
)

func TestCommissionPaymentMethodSetting(t *testing.T) {
	conn := dbtest.New(t).DB()
	fx := dbtest.NewFixtures(t, conn)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	svc, err := NewService(ServiceParams{
		Repository: NewRepository(conn),
		Methods:    paymentmethods.NewRepository(conn),
		Now:        func() time.Time { return now },
	})
	require.NoError(t, err)

	admin := access.Actor{UserID: fx.User(enums.RoleAdmin).ID, Role: enums.RoleAdmin}
	seller := access.Actor{UserID: fx.User(enums.RoleSeller).ID, Role: enums.RoleSeller}
	telebirr := fx.PaymentMethod("Telebirr", true)
	cbe := fx.PaymentMethod("CBE Birr", true)

	info, err := svc.CommissionPaymentInfo(ctx)
	require.NoError(t, err)
	assert.False(t, info.Configured)

	current, err := svc.CommissionPaymentMethod(ctx, admin)
	require.NoError(t, err)
	assert.Nil(t, current.PaymentMethodID)

	_, err = svc.CommissionPaymentMethod(ctx, seller)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	_, err = svc.SetCommissionPaymentMethod(ctx, seller, SetCommissionPaymentMethodInput{
		PaymentMethodID: telebirr.ID, AccountName: "Etho Parts", AccountNumber: "0911",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	_, err = svc.SetCommissionPaymentMethod(ctx, admin, SetCommissionPaymentMethodInput{
		PaymentMethodID: uuid.New(), AccountName: "Etho Parts", AccountNumber: "0911",
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.SetCommissionPaymentMethod(ctx, admin, SetCommissionPaymentMethodInput{
		PaymentMethodID: telebirr.ID, AccountName: "Etho Parts", AccountNumber: "0911",
	})
	require.NoError(t, err)
	saved, err := svc.SetCommissionPaymentMethod(ctx, admin, SetCommissionPaymentMethodInput{
		PaymentMethodID: cbe.ID, AccountName: " Etho Parts PLC ", AccountNumber: "1000200030",
	})
	require.NoError(t, err)
	assert.Equal(t, "Etho Parts PLC", saved.AccountName)

	current, err = svc.CommissionPaymentMethod(ctx, admin)
	require.NoError(t, err)
	require.NotNil(t, current.PaymentMethodID)
	assert.Equal(t, cbe.ID, *current.PaymentMethodID)

	info, err = svc.CommissionPaymentInfo(ctx)
	require.NoError(t, err)
	assert.True(t, info.Configured)
	assert.Equal(t, "CBE Birr", info.MethodName)
	assert.Equal(t, enums.PaymentMethodTypeEWallet, info.MethodType)
	assert.Equal(t, "1000200030", info.AccountNumber)
}
