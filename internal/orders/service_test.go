package orders

import (
	"bytes"
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ethoparts/marketplace-backend/internal/access"
	"github.com/ethoparts/marketplace-backend/internal/commissions"
	"github.com/ethoparts/marketplace-backend/pkg/db/dbtest"
	"github.com/ethoparts/marketplace-backend/pkg/db/models"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
	pkgerrors "github.com/ethoparts/marketplace-backend/pkg/errors"
	"github.com/ethoparts/marketplace-backend/pkg/outbox"
	"github.com/ethoparts/marketplace-backend/pkg/pagination"
)

var orderNumberPattern = regexp.MustCompile(`^EP-\d{8}-[0-9A-F]{6}$`)

type testEnv struct {
	svc    Service
	repo   Repository
	conn   *gorm.DB
	fx     *dbtest.Fixtures
	buyer  access.Actor
	seller access.Actor
	admin  access.Actor
	method models.SellerPaymentMethod
}

func tickingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	client := dbtest.New(t)
	conn := client.DB()
	fx := dbtest.NewFixtures(t, conn)

	buyer := fx.User(enums.RoleBuyer)
	seller := fx.User(enums.RoleSeller)
	admin := fx.User(enums.RoleAdmin)
	platform := fx.PaymentMethod("Telebirr", true)
	binding := fx.SellerMethod(seller.ID, platform.ID, true)

	repo := NewRepository(conn)
	svc, err := NewService(ServiceParams{
		Repository: repo,
		Tx:         client,
		Outbox:     outbox.NewService(outbox.NewRepository(conn), nil),
		Policy:     commissions.DefaultPolicy(),
		Now:        tickingClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)

	return &testEnv{
		svc:    svc,
		repo:   repo,
		conn:   conn,
		fx:     fx,
		buyer:  access.Actor{UserID: buyer.ID, Role: enums.RoleBuyer},
		seller: access.Actor{UserID: seller.ID, Role: enums.RoleSeller},
		admin:  access.Actor{UserID: admin.ID, Role: enums.RoleAdmin},
		method: binding,
	}
}

func (e *testEnv) input(lines ...LineInput) PlaceOrderInput {
	return PlaceOrderInput{
		Items:           lines,
		ShippingAddress: "Bole Road 12",
		ShippingCity:    "Addis Ababa",
		ShippingPhone:   "+251911000000",
		PaymentMethodID: e.method.ID,
	}
}

func (e *testEnv) outboxTypes(t *testing.T) []enums.OutboxEventType {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, e.conn.Order("created_at ASC").Find(&rows).Error)
	types := make([]enums.OutboxEventType, 0, len(rows))
	for _, row := range rows {
		types = append(types, row.EventType)
	}
	return types
}

func requireReason(t *testing.T, err error, code pkgerrors.Code, reason pkgerrors.Reason) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, code), "expected %s, got %v", code, err)
	assert.Equal(t, reason, pkgerrors.ReasonOf(err))
}

func TestPlaceOrderTotalsStockAndTracking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.fx.Product(env.seller.UserID, "100.00", 10)

	order, err := env.svc.PlaceOrder(ctx, env.buyer, env.input(LineInput{ProductID: product.ID, Quantity: 2}))
	require.NoError(t, err)

	assert.Regexp(t, orderNumberPattern, order.OrderNumber)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(200)))
	assert.True(t, order.CommissionAmount.Equal(decimal.RequireFromString("20.00")))
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, enums.OrderStatusPending, order.OrderStatus)
	assert.Equal(t, "Telebirr", order.PaymentMethodName)
	assert.Equal(t, env.method.AccountNumber, order.SellerAccountNumber)
	require.Len(t, order.Items, 1)
	assert.Equal(t, product.Name, order.Items[0].ProductName)
	assert.True(t, order.Items[0].LineTotal.Equal(decimal.NewFromInt(200)))
	require.Len(t, order.TrackingInfo, 1)
	assert.Equal(t, "Order Placed", order.TrackingInfo[0].Status)
	assert.Equal(t, "Order has been placed. Awaiting payment.", order.TrackingInfo[0].Note)

	assert.Equal(t, 8, env.fx.Stock(product.ID))
	assert.Equal(t, []enums.OutboxEventType{enums.EventOrderPlaced}, env.outboxTypes(t))

	stored, err := env.svc.GetOrder(ctx, env.buyer, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalAmount.Equal(decimal.NewFromInt(200)))
	require.Len(t, stored.TrackingInfo, 1)
}

func TestPlaceOrderMergesDuplicateLines(t *testing.T) {
	env := newTestEnv(t)
	a := env.fx.Product(env.seller.UserID, "12.50", 10)
	b := env.fx.Product(env.seller.UserID, "3.00", 10)

	order, err := env.svc.PlaceOrder(context.Background(), env.buyer, env.input(
		LineInput{ProductID: a.ID, Quantity: 1},
		LineInput{ProductID: b.ID, Quantity: 1},
		LineInput{ProductID: a.ID, Quantity: 2},
	))
	require.NoError(t, err)
	require.Len(t, order.Items, 2)
	assert.Equal(t, a.ID, order.Items[0].ProductID)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("40.50")))
	assert.True(t, order.CommissionAmount.Equal(decimal.RequireFromString("4.05")))
	assert.Equal(t, 7, env.fx.Stock(a.ID))
	assert.Equal(t, 9, env.fx.Stock(b.ID))
}

func TestPlaceOrderInsufficientStockLeavesNothingBehind(t *testing.T) {
	env := newTestEnv(t)
	product := env.fx.Product(env.seller.UserID, "10.00", 1)

	_, err := env.svc.PlaceOrder(context.Background(), env.buyer, env.input(LineInput{ProductID: product.ID, Quantity: 2}))
	requireReason(t, err, pkgerrors.CodeValidation, pkgerrors.ReasonInsufficientStock)

	assert.Equal(t, 1, env.fx.Stock(product.ID))
	var count int64
	require.NoError(t, env.conn.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, env.outboxTypes(t))
}

func TestPlaceOrderLastUnitGoesToFirstBuyer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.fx.Product(env.seller.UserID, "55.00", 1)
	other := env.fx.User(enums.RoleBuyer)

	_, err := env.svc.PlaceOrder(ctx, env.buyer, env.input(LineInput{ProductID: product.ID, Quantity: 1}))
	require.NoError(t, err)

	_, err = env.svc.PlaceOrder(ctx, access.Actor{UserID: other.ID, Role: enums.RoleBuyer}, env.input(LineInput{ProductID: product.ID, Quantity: 1}))
	requireReason(t, err, pkgerrors.CodeValidation, pkgerrors.ReasonInsufficientStock)
	assert.Equal(t, 0, env.fx.Stock(product.ID))
}

func TestPlaceOrderConcurrentLastUnit(t *testing.T) {
	env := newTestEnv(t)
	product := env.fx.Product(env.seller.UserID, "55.00", 1)
	other := env.fx.User(enums.RoleBuyer)
	buyers := []access.Actor{env.buyer, {UserID: other.ID, Role: enums.RoleBuyer}}

	errs := make([]error, len(buyers))
	var wg sync.WaitGroup
	for i, buyer := range buyers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = env.svc.PlaceOrder(context.Background(), buyer, env.input(LineInput{ProductID: product.ID, Quantity: 1}))
		}()
	}
	wg.Wait()

	var placed, refused int
	for _, err := range errs {
		switch {
		case err == nil:
			placed++
		case pkgerrors.IsCode(err, pkgerrors.CodeValidation):
			requireReason(t, err, pkgerrors.CodeValidation, pkgerrors.ReasonInsufficientStock)
			refused++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, placed)
	assert.Equal(t, 1, refused)
	assert.Equal(t, 0, env.fx.Stock(product.ID))
}

// recordingRepo captures the order in which stock rows are reserved.
type recordingRepo struct {
	Repository
	reserved *[]uuid.UUID
}

func (r recordingRepo) WithTx(tx *gorm.DB) Repository {
	return recordingRepo{Repository: r.Repository.WithTx(tx), reserved: r.reserved}
}

func (r recordingRepo) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	*r.reserved = append(*r.reserved, productID)
	return r.Repository.DecrementStock(ctx, productID, qty)
}

func TestPlaceOrderReservesStockInProductIDOrder(t *testing.T) {
	env := newTestEnv(t)
	a := env.fx.Product(env.seller.UserID, "10.00", 5)
	b := env.fx.Product(env.seller.UserID, "20.00", 5)
	first, second := a.ID, b.ID
	if bytes.Compare(first[:], second[:]) > 0 {
		first, second = second, first
	}

	var reserved []uuid.UUID
	svc, err := NewService(ServiceParams{
		Repository: recordingRepo{Repository: env.repo, reserved: &reserved},
		Tx:         txFunc(func(ctx context.Context, fn func(tx *gorm.DB) error) error { return env.conn.WithContext(ctx).Transaction(fn) }),
		Outbox:     outbox.NewService(outbox.NewRepository(env.conn), nil),
		Policy:     commissions.DefaultPolicy(),
	})
	require.NoError(t, err)

	order, err := svc.PlaceOrder(context.Background(), env.buyer, env.input(
		LineInput{ProductID: second, Quantity: 1},
		LineInput{ProductID: first, Quantity: 1},
	))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first, second}, reserved)
	require.Len(t, order.Items, 2)
	assert.Equal(t, second, order.Items[0].ProductID)
	assert.Equal(t, first, order.Items[1].ProductID)
}

// losingRepo simulates a concurrent order taking the last unit of one product
// between the stock check and the conditional decrement.
type losingRepo struct {
	Repository
	lose uuid.UUID
}

func (r losingRepo) WithTx(tx *gorm.DB) Repository {
	return losingRepo{Repository: r.Repository.WithTx(tx), lose: r.lose}
}

func (r losingRepo) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	if productID == r.lose {
		return false, nil
	}
	return r.Repository.DecrementStock(ctx, productID, qty)
}

func TestPlaceOrderRollsBackEarlierDecrementsWhenRaceLost(t *testing.T) {
	env := newTestEnv(t)
	a := env.fx.Product(env.seller.UserID, "10.00", 5)
	b := env.fx.Product(env.seller.UserID, "20.00", 5)

	svc, err := NewService(ServiceParams{
		Repository: losingRepo{Repository: env.repo, lose: b.ID},
		Tx:         txFunc(func(ctx context.Context, fn func(tx *gorm.DB) error) error { return env.conn.WithContext(ctx).Transaction(fn) }),
		Outbox:     outbox.NewService(outbox.NewRepository(env.conn), nil),
		Policy:     commissions.DefaultPolicy(),
	})
	require.NoError(t, err)

	_, err = svc.PlaceOrder(context.Background(), env.buyer, env.input(
		LineInput{ProductID: a.ID, Quantity: 2},
		LineInput{ProductID: b.ID, Quantity: 1},
	))
	requireReason(t, err, pkgerrors.CodeValidation, pkgerrors.ReasonInsufficientStock)
	assert.Equal(t, 5, env.fx.Stock(a.ID))
	assert.Equal(t, 5, env.fx.Stock(b.ID))
}

type txFunc func(ctx context.Context, fn func(tx *gorm.DB) error) error

func (f txFunc) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error { return f(ctx, fn) }

func TestPlaceOrderRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.fx.Product(env.seller.UserID, "10.00", 5)
	line := LineInput{ProductID: product.ID, Quantity: 1}

	_, err := env.svc.PlaceOrder(ctx, env.buyer, env.input())
	requireReason(t, err, pkgerrors.CodeValidation, pkgerrors.ReasonEmptyCart)

	_, err = env.svc.PlaceOrder(ctx, env.buyer, env.input(LineInput{ProductID: product.ID, Quantity: 0}))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	blank := env.input(line)
	blank.ShippingCity = "  "
	_, err = env.svc.PlaceOrder(ctx, env.buyer, blank)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = env.svc.PlaceOrder(ctx, env.buyer, env.input(LineInput{ProductID: uuid.New(), Quantity: 1}))
	requireReason(t, err, pkgerrors.CodeNotFound, pkgerrors.ReasonProductNotFound)

	_, err = env.svc.PlaceOrder(ctx, env.seller, env.input(line))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	assert.Equal(t, 5, env.fx.Stock(product.ID))
}

func TestPlaceOrderPaymentMethodChecks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.fx.Product(env.seller.UserID, "10.00", 5)
	line := LineInput{ProductID: product.ID, Quantity: 1}

	otherSeller := env.fx.User(enums.RoleSeller)
	enabledPlatform := env.fx.PaymentMethod("CBE Birr", true)
	disabledPlatform := env.fx.PaymentMethod("Old Bank", false)

	cases := map[string]uuid.UUID{
		"unknown binding":          uuid.New(),
		"disabled binding":         env.fx.SellerMethod(env.seller.UserID, enabledPlatform.ID, false).ID,
		"disabled platform method": env.fx.SellerMethod(env.seller.UserID, disabledPlatform.ID, true).ID,
		"seller not in cart":       env.fx.SellerMethod(otherSeller.ID, enabledPlatform.ID, true).ID,
	}
	for name, methodID := range cases {
		t.Run(name, func(t *testing.T) {
			input := env.input(line)
			input.PaymentMethodID = methodID
			_, err := env.svc.PlaceOrder(ctx, env.buyer, input)
			requireReason(t, err, pkgerrors.CodeValidation, pkgerrors.ReasonInvalidPaymentMethod)
		})
	}
	assert.Equal(t, 5, env.fx.Stock(product.ID))
}

func TestGetOrdersForViewer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.fx.Product(env.seller.UserID, "10.00", 50)
	otherBuyerUser := env.fx.User(enums.RoleBuyer)
	otherBuyer := access.Actor{UserID: otherBuyerUser.ID, Role: enums.RoleBuyer}
	outsider := access.Actor{UserID: env.fx.User(enums.RoleSeller).ID, Role: enums.RoleSeller}

	var placed []uuid.UUID
	for i := 0; i < 3; i++ {
		o, err := env.svc.PlaceOrder(ctx, env.buyer, env.input(LineInput{ProductID: product.ID, Quantity: 1}))
		require.NoError(t, err)
		placed = append(placed, o.ID)
	}
	_, err := env.svc.PlaceOrder(ctx, otherBuyer, env.input(LineInput{ProductID: product.ID, Quantity: 1}))
	require.NoError(t, err)

	page, err := env.svc.GetOrdersForViewer(ctx, env.buyer, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	assert.Equal(t, placed[2], page.Items[0].ID, "newest first")

	page, err = env.svc.GetOrdersForViewer(ctx, env.seller, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 4)

	page, err = env.svc.GetOrdersForViewer(ctx, outsider, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	page, err = env.svc.GetOrdersForViewer(ctx, env.admin, pagination.Params{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	require.NotEmpty(t, page.NextCursor)

	next, err := env.svc.GetOrdersForViewer(ctx, env.admin, pagination.Params{Limit: 3, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Equal(t, placed[0], next.Items[0].ID)
	assert.Empty(t, next.NextCursor)

	_, err = env.svc.GetOrdersForViewer(ctx, env.admin, pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetOrderAuthorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.fx.Product(env.seller.UserID, "10.00", 5)
	order, err := env.svc.PlaceOrder(ctx, env.buyer, env.input(LineInput{ProductID: product.ID, Quantity: 1}))
	require.NoError(t, err)

	for _, actor := range []access.Actor{env.buyer, env.seller, env.admin} {
		_, err := env.svc.GetOrder(ctx, actor, order.ID)
		assert.NoError(t, err)
	}

	stranger := access.Actor{UserID: env.fx.User(enums.RoleBuyer).ID, Role: enums.RoleBuyer}
	_, err = env.svc.GetOrder(ctx, stranger, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = env.svc.GetOrder(ctx, env.admin, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateOrderStatusAppendsTracking(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.fx.Product(env.seller.UserID, "10.00", 5)
	order, err := env.svc.PlaceOrder(ctx, env.buyer, env.input(LineInput{ProductID: product.ID, Quantity: 1}))
	require.NoError(t, err)

	updated, err := env.svc.UpdateOrderStatus(ctx, env.seller, order.ID, UpdateStatusInput{Status: "shipped"})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, updated.OrderStatus)
	assert.Equal(t, enums.PaymentStatusPending, updated.PaymentStatus)
	require.Len(t, updated.TrackingInfo, 2)
	assert.Equal(t, "shipped", updated.TrackingInfo[1].Status)
	assert.Equal(t, "Status updated to shipped", updated.TrackingInfo[1].Note)

	updated, err = env.svc.UpdateOrderStatus(ctx, env.admin, order.ID, UpdateStatusInput{Status: "delivered", Note: "Handed to buyer"})
	require.NoError(t, err)
	require.Len(t, updated.TrackingInfo, 3)
	assert.Equal(t, "Handed to buyer", updated.TrackingInfo[2].Note)
	assert.Equal(t, "Order Placed", updated.TrackingInfo[0].Status, "earlier entries are untouched")

	_, err = env.svc.UpdateOrderStatus(ctx, env.buyer, order.ID, UpdateStatusInput{Status: "cancelled"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = env.svc.UpdateOrderStatus(ctx, env.seller, order.ID, UpdateStatusInput{Status: "teleported"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = env.svc.UpdateOrderStatus(ctx, env.seller, uuid.New(), UpdateStatusInput{Status: "shipped"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	assert.Equal(t, []enums.OutboxEventType{
		enums.EventOrderPlaced,
		enums.EventOrderStatusChanged,
		enums.EventOrderStatusChanged,
	}, env.outboxTypes(t))
}

func TestTrackOrderPublicView(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.fx.Product(env.seller.UserID, "10.00", 5)
	order, err := env.svc.PlaceOrder(ctx, env.buyer, env.input(LineInput{ProductID: product.ID, Quantity: 1}))
	require.NoError(t, err)

	view, err := env.svc.TrackOrder(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, view.OrderNumber)
	assert.Equal(t, enums.OrderStatusPending, view.OrderStatus)
	assert.Equal(t, enums.PaymentStatusPending, view.PaymentStatus)
	require.Len(t, view.TrackingInfo, 1)
	assert.False(t, view.CreatedAt.IsZero())

	_, err = env.svc.TrackOrder(ctx, "EP-20990101-FFFFFF")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestNewOrderNumber(t *testing.T) {
	id := uuid.MustParse("a1b2c3d4-0000-4000-8000-000000000000")
	got := NewOrderNumber(time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC), func() uuid.UUID { return id })
	assert.Equal(t, "EP-20260301-A1B2C3", got)
	assert.Regexp(t, orderNumberPattern, NewOrderNumber(time.Now(), nil))
}
