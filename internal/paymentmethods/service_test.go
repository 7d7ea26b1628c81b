package paymentmethods

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethoparts/marketplace-backend/internal/access"
	"github.com/ethoparts/marketplace-backend/pkg/db/dbtest"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
	pkgerrors "github.com/ethoparts/marketplace-backend/pkg/errors"
)

type testEnv struct {
	svc    Service
	fx     *dbtest.Fixtures
	admin  access.Actor
	seller access.Actor
	buyer  access.Actor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conn := dbtest.New(t).DB()
	fx := dbtest.NewFixtures(t, conn)
	svc, err := NewService(NewRepository(conn), nil)
	require.NoError(t, err)
	return &testEnv{
		svc:    svc,
		fx:     fx,
		admin:  access.Actor{UserID: fx.User(enums.RoleAdmin).ID, Role: enums.RoleAdmin},
		seller: access.Actor{UserID: fx.User(enums.RoleSeller).ID, Role: enums.RoleSeller},
		buyer:  access.Actor{UserID: fx.User(enums.RoleBuyer).ID, Role: enums.RoleBuyer},
	}
}

func TestPlatformMethodLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Create(ctx, env.seller, CreateInput{Name: "Telebirr", Type: "ewallet"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	_, err = env.svc.Create(ctx, env.admin, CreateInput{Name: "Telebirr", Type: "cheque"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	method, err := env.svc.Create(ctx, env.admin, CreateInput{Name: " Telebirr ", Type: "ewallet"})
	require.NoError(t, err)
	assert.Equal(t, "Telebirr", method.Name)
	assert.True(t, method.Enabled)

	disabled := false
	_, err = env.svc.Create(ctx, env.admin, CreateInput{Name: "Awash Bank", Type: "bank", Enabled: &disabled})
	require.NoError(t, err)

	all, err := env.svc.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	enabled, err := env.svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "Telebirr", enabled[0].Name)

	instructions := "Send to merchant code 1234"
	updated, err := env.svc.Update(ctx, env.admin, method.ID, UpdateInput{Instructions: &instructions})
	require.NoError(t, err)
	require.NotNil(t, updated.Instructions)
	assert.Equal(t, instructions, *updated.Instructions)
	assert.Equal(t, "Telebirr", updated.Name)

	toggled, err := env.svc.Toggle(ctx, env.admin, method.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Enabled)

	_, err = env.svc.Update(ctx, env.admin, uuid.New(), UpdateInput{Instructions: &instructions})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	require.NoError(t, env.svc.Delete(ctx, env.admin, method.ID))
	err = env.svc.Delete(ctx, env.admin, method.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDeleteRejectedWhileSellersUseMethod(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	method := env.fx.PaymentMethod("CBE Birr", true)
	env.fx.SellerMethod(env.seller.UserID, method.ID, true)

	err := env.svc.Delete(ctx, env.admin, method.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Equal(t, pkgerrors.ReasonMethodInUse, pkgerrors.ReasonOf(err))
}

func TestSellerBindings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	telebirr := env.fx.PaymentMethod("Telebirr", true)
	off := env.fx.PaymentMethod("Dormant", false)
	input := BindInput{PaymentMethodID: telebirr.ID, AccountName: "Abebe", AccountNumber: "0911"}

	_, err := env.svc.Bind(ctx, env.buyer, input)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	binding, err := env.svc.Bind(ctx, env.seller, input)
	require.NoError(t, err)
	assert.Equal(t, "Telebirr", binding.PaymentMethodName)
	assert.Equal(t, env.seller.UserID, binding.SellerID)

	_, err = env.svc.Bind(ctx, env.seller, input)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.ReasonDuplicateSellerMethod, pkgerrors.ReasonOf(err))

	_, err = env.svc.Bind(ctx, env.seller, BindInput{PaymentMethodID: off.ID, AccountName: "A", AccountNumber: "1"})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.ReasonMethodDisabled, pkgerrors.ReasonOf(err))

	env.fx.SellerMethod(env.seller.UserID, off.ID, true)
	own, err := env.svc.ListOwn(ctx, env.seller)
	require.NoError(t, err)
	assert.Len(t, own, 2)
	public, err := env.svc.ListForSeller(ctx, env.seller.UserID)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, telebirr.ID, public[0].PaymentMethodID)

	other := access.Actor{UserID: env.fx.User(enums.RoleSeller).ID, Role: enums.RoleSeller}
	err = env.svc.Unbind(ctx, other, binding.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	require.NoError(t, env.svc.Unbind(ctx, env.seller, binding.ID))
	err = env.svc.Unbind(ctx, env.seller, binding.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
