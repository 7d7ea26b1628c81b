package payments

import (
	"context"
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
	"github.com/ethoparts/marketplace-backend/internal/orders"
	"github.com/ethoparts/marketplace-backend/pkg/db/dbtest"
	"github.com/ethoparts/marketplace-backend/pkg/db/models"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
	pkgerrors "github.com/ethoparts/marketplace-backend/pkg/errors"
	"github.com/ethoparts/marketplace-backend/pkg/outbox"
	"github.com/ethoparts/marketplace-backend/pkg/pagination"
)

var start = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	svc    Service
	orders orders.Service
	conn   *gorm.DB
	fx     *dbtest.Fixtures
	buyer  access.Actor
	seller access.Actor
	other  access.Actor
	admin  access.Actor
	method models.SellerPaymentMethod
	otherM models.SellerPaymentMethod
	clock  *clock
}

type clock struct {
	mu      sync.Mutex
	current time.Time
}

// now advances one second per call so tracking rows keep insertion order.
func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(time.Second)
	return c.current
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	client := dbtest.New(t)
	conn := client.DB()
	fx := dbtest.NewFixtures(t, conn)
	clk := &clock{current: start}

	buyer := fx.User(enums.RoleBuyer)
	seller := fx.User(enums.RoleSeller)
	other := fx.User(enums.RoleSeller)
	admin := fx.User(enums.RoleAdmin)
	platform := fx.PaymentMethod("CBE Birr", true)
	binding := fx.SellerMethod(seller.ID, platform.ID, true)
	otherBinding := fx.SellerMethod(other.ID, platform.ID, true)

	emitter := outbox.NewService(outbox.NewRepository(conn), nil)
	orderRepo := orders.NewRepository(conn)
	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repository: orderRepo,
		Tx:         client,
		Outbox:     emitter,
		Policy:     commissions.DefaultPolicy(),
		Now:        clk.now,
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repository:  NewRepository(conn),
		Orders:      orderRepo,
		Commissions: commissions.NewRepository(conn),
		Tx:          client,
		Outbox:      emitter,
		Policy:      commissions.DefaultPolicy(),
		Now:         clk.now,
	})
	require.NoError(t, err)

	return &testEnv{
		svc:    svc,
		orders: orderSvc,
		conn:   conn,
		fx:     fx,
		buyer:  access.Actor{UserID: buyer.ID, Role: enums.RoleBuyer},
		seller: access.Actor{UserID: seller.ID, Role: enums.RoleSeller},
		other:  access.Actor{UserID: other.ID, Role: enums.RoleSeller},
		admin:  access.Actor{UserID: admin.ID, Role: enums.RoleAdmin},
		method: binding,
		otherM: otherBinding,
		clock:  clk,
	}
}

func (e *testEnv) placeOrder(t *testing.T, lines ...orders.LineInput) *orders.OrderDTO {
	t.Helper()
	return e.placeOrderWith(t, e.method, lines...)
}

func (e *testEnv) placeOrderWith(t *testing.T, method models.SellerPaymentMethod, lines ...orders.LineInput) *orders.OrderDTO {
	t.Helper()
	order, err := e.orders.PlaceOrder(context.Background(), e.buyer, orders.PlaceOrderInput{
		Items:           lines,
		ShippingAddress: "Piassa 4",
		ShippingCity:    "Addis Ababa",
		ShippingPhone:   "+251911000001",
		PaymentMethodID: method.ID,
	})
	require.NoError(t, err)
	return order
}

func (e *testEnv) singleSellerOrder(t *testing.T) *orders.OrderDTO {
	t.Helper()
	product := e.fx.Product(e.seller.UserID, "100.00", 10)
	return e.placeOrder(t, orders.LineInput{ProductID: product.ID, Quantity: 2})
}

func (e *testEnv) submit(t *testing.T, orderID uuid.UUID, ref string) *ReceiptDTO {
	t.Helper()
	receipt, err := e.svc.SubmitReceipt(context.Background(), e.buyer, SubmitReceiptInput{OrderID: orderID, TransactionRef: ref})
	require.NoError(t, err)
	return receipt
}

func (e *testEnv) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.conn.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, code), "expected %s, got %v", code, err)
}

func TestSubmitReceiptMovesOrderToVerification(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.singleSellerOrder(t)

	receipt := env.submit(t, order.ID, " FT2606012345 ")
	assert.Equal(t, "FT2606012345", receipt.TransactionRef)
	assert.Equal(t, enums.ReceiptStatusPendingReview, receipt.Status)

	stored, err := env.orders.GetOrder(ctx, env.buyer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPendingVerification, stored.PaymentStatus)
	require.Len(t, stored.TrackingInfo, 2)
	assert.Equal(t, "Receipt Uploaded", stored.TrackingInfo[1].Status)
	assert.Equal(t, "Payment receipt uploaded. Reference: FT2606012345", stored.TrackingInfo[1].Note)
	assert.EqualValues(t, 1, env.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventReceiptSubmitted))

	_, err = env.svc.SubmitReceipt(ctx, env.buyer, SubmitReceiptInput{OrderID: order.ID, TransactionRef: "again"})
	requireCode(t, err, pkgerrors.CodeConflict)
	assert.Equal(t, pkgerrors.ReasonReceiptPending, pkgerrors.ReasonOf(err))
}

func TestSubmitReceiptRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.singleSellerOrder(t)

	_, err := env.svc.SubmitReceipt(ctx, env.buyer, SubmitReceiptInput{OrderID: uuid.New(), TransactionRef: "x"})
	requireCode(t, err, pkgerrors.CodeNotFound)

	_, err = env.svc.SubmitReceipt(ctx, env.seller, SubmitReceiptInput{OrderID: order.ID, TransactionRef: "x"})
	requireCode(t, err, pkgerrors.CodeForbidden)

	_, err = env.svc.SubmitReceipt(ctx, env.buyer, SubmitReceiptInput{OrderID: order.ID, TransactionRef: " "})
	requireCode(t, err, pkgerrors.CodeValidation)

	receipt := env.submit(t, order.ID, "REF-1")
	_, err = env.svc.ConfirmReceipt(ctx, env.admin, receipt.ID)
	require.NoError(t, err)

	_, err = env.svc.SubmitReceipt(ctx, env.buyer, SubmitReceiptInput{OrderID: order.ID, TransactionRef: "REF-2"})
	requireCode(t, err, pkgerrors.CodeConflict)
	assert.Equal(t, pkgerrors.ReasonAlreadyPaid, pkgerrors.ReasonOf(err))
}

func TestConfirmReceiptCreatesCommission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.singleSellerOrder(t)
	receipt := env.submit(t, order.ID, "FT-1")

	result, err := env.svc.ConfirmReceipt(ctx, env.seller, receipt.ID)
	require.NoError(t, err)
	assert.False(t, result.AlreadyConfirmed)
	assert.Equal(t, enums.ReceiptStatusConfirmed, result.Receipt.Status)
	require.NotNil(t, result.Receipt.ReviewedBy)
	assert.Equal(t, env.seller.UserID, *result.Receipt.ReviewedBy)
	assert.Equal(t, enums.PaymentStatusCompleted, result.PaymentStatus)
	assert.Equal(t, enums.OrderStatusConfirmed, result.OrderStatus)

	require.Len(t, result.Commissions, 1)
	c := result.Commissions[0]
	assert.Equal(t, env.seller.UserID, c.SellerID)
	assert.True(t, c.SaleAmount.Equal(decimal.NewFromInt(200)))
	assert.True(t, c.CommissionAmount.Equal(decimal.RequireFromString("20.00")))
	assert.Equal(t, enums.CommissionStatusPending, c.Status)
	require.NotNil(t, result.Receipt.ReviewedAt)
	assert.True(t, c.DueDate.Equal(result.Receipt.ReviewedAt.Add(48*time.Hour)))

	stored, err := env.orders.GetOrder(ctx, env.buyer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusCompleted, stored.PaymentStatus)
	assert.Equal(t, enums.OrderStatusConfirmed, stored.OrderStatus)
	last := stored.TrackingInfo[len(stored.TrackingInfo)-1]
	assert.Equal(t, "Payment Confirmed", last.Status)
	assert.Equal(t, "Payment has been verified and confirmed", last.Note)

	assert.EqualValues(t, 1, env.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventPaymentConfirmed))
	assert.EqualValues(t, 1, env.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventCommissionCreated))
}

func TestConfirmReceiptTwiceChangesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.singleSellerOrder(t)
	receipt := env.submit(t, order.ID, "FT-2")

	_, err := env.svc.ConfirmReceipt(ctx, env.admin, receipt.ID)
	require.NoError(t, err)
	tracking := env.count(t, &models.OrderTrackingEntry{}, "order_id = ?", order.ID)

	again, err := env.svc.ConfirmReceipt(ctx, env.admin, receipt.ID)
	require.NoError(t, err)
	assert.True(t, again.AlreadyConfirmed)
	assert.Len(t, again.Commissions, 1)

	assert.Equal(t, tracking, env.count(t, &models.OrderTrackingEntry{}, "order_id = ?", order.ID))
	assert.EqualValues(t, 1, env.count(t, &models.Commission{}, "order_id = ?", order.ID))
	assert.EqualValues(t, 1, env.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventCommissionCreated))

	_, err = env.svc.RejectReceipt(ctx, env.admin, receipt.ID)
	requireCode(t, err, pkgerrors.CodeConflict)
}

func TestConfirmReceiptSplitsCommissionPerSeller(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.fx.Product(env.seller.UserID, "150.00", 5)
	b := env.fx.Product(env.other.UserID, "33.35", 5)
	order := env.placeOrder(t,
		orders.LineInput{ProductID: a.ID, Quantity: 1},
		orders.LineInput{ProductID: b.ID, Quantity: 1},
	)
	receipt := env.submit(t, order.ID, "FT-3")

	result, err := env.svc.ConfirmReceipt(ctx, env.admin, receipt.ID)
	require.NoError(t, err)
	require.Len(t, result.Commissions, 2)
	bySeller := map[uuid.UUID]commissions.CommissionDTO{}
	for _, c := range result.Commissions {
		bySeller[c.SellerID] = c
	}
	assert.True(t, bySeller[env.seller.UserID].CommissionAmount.Equal(decimal.RequireFromString("15.00")))
	// 33.35 * 0.10 = 3.335 rounds half away from zero
	assert.True(t, bySeller[env.other.UserID].CommissionAmount.Equal(decimal.RequireFromString("3.34")),
		bySeller[env.other.UserID].CommissionAmount.String())
	assert.EqualValues(t, 2, env.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventCommissionCreated))
}

func TestConfirmReceiptUsesZeroRateSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.singleSellerOrder(t)
	require.NoError(t, env.conn.Model(&models.Order{}).Where("id = ?", order.ID).Updates(map[string]any{
		"commission_rate":   decimal.Zero,
		"commission_amount": decimal.Zero,
	}).Error)
	receipt := env.submit(t, order.ID, "FT-0")

	result, err := env.svc.ConfirmReceipt(ctx, env.admin, receipt.ID)
	require.NoError(t, err)
	require.Len(t, result.Commissions, 1)
	assert.True(t, result.Commissions[0].CommissionAmount.IsZero(), result.Commissions[0].CommissionAmount.String())
}

func TestConfirmReceiptSkipsExistingCommission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.singleSellerOrder(t)
	receipt := env.submit(t, order.ID, "FT-4")

	var model models.Order
	require.NoError(t, env.conn.Preload("Items").Where("id = ?", order.ID).First(&model).Error)
	env.fx.Commission(model, env.seller.UserID, "20.00", enums.CommissionStatusPending, start.Add(time.Hour))

	result, err := env.svc.ConfirmReceipt(ctx, env.admin, receipt.ID)
	require.NoError(t, err)
	assert.Len(t, result.Commissions, 1)
	assert.EqualValues(t, 1, env.count(t, &models.Commission{}, "order_id = ?", order.ID))
	assert.Zero(t, env.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventCommissionCreated))
}

func TestReviewAuthorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.singleSellerOrder(t)
	receipt := env.submit(t, order.ID, "FT-5")

	_, err := env.svc.ConfirmReceipt(ctx, env.other, receipt.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)
	_, err = env.svc.RejectReceipt(ctx, env.buyer, receipt.ID)
	requireCode(t, err, pkgerrors.CodeForbidden)
	_, err = env.svc.ConfirmReceipt(ctx, env.admin, uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestRejectReceiptFailsPaymentWithoutRestock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.fx.Product(env.seller.UserID, "100.00", 10)
	order := env.placeOrder(t, orders.LineInput{ProductID: product.ID, Quantity: 2})
	receipt := env.submit(t, order.ID, "FT-6")

	result, err := env.svc.RejectReceipt(ctx, env.seller, receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ReceiptStatusRejected, result.Receipt.Status)
	assert.Equal(t, enums.PaymentStatusFailed, result.PaymentStatus)
	assert.Equal(t, enums.OrderStatusPending, result.OrderStatus)
	assert.Empty(t, result.Commissions)
	assert.Equal(t, 8, env.fx.Stock(product.ID))

	stored, err := env.orders.GetOrder(ctx, env.buyer, order.ID)
	require.NoError(t, err)
	last := stored.TrackingInfo[len(stored.TrackingInfo)-1]
	assert.Equal(t, "Payment Rejected", last.Status)
	assert.Equal(t, "Payment verification failed. Please upload a valid receipt.", last.Note)

	again, err := env.svc.RejectReceipt(ctx, env.seller, receipt.ID)
	require.NoError(t, err)
	assert.True(t, again.AlreadyRejected)
	assert.EqualValues(t, 1, env.count(t, &models.OutboxEvent{}, "event_type = ?", enums.EventPaymentRejected))

	_, err = env.svc.ConfirmReceipt(ctx, env.admin, receipt.ID)
	requireCode(t, err, pkgerrors.CodeConflict)

	// a fresh receipt can follow a rejection
	env.submit(t, order.ID, "FT-7")
}

func TestListPendingReceiptsByViewer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mine := env.singleSellerOrder(t)
	theirs := env.placeOrderWith(t, env.otherM, orders.LineInput{
		ProductID: env.fx.Product(env.other.UserID, "10.00", 3).ID,
		Quantity:  1,
	})
	env.submit(t, mine.ID, "M-1")
	env.submit(t, theirs.ID, "T-1")

	page, err := env.svc.ListPendingReceipts(ctx, env.seller, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, mine.OrderNumber, page.Items[0].OrderNumber)
	assert.True(t, page.Items[0].TotalAmount.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, "CBE Birr", page.Items[0].PaymentMethodName)

	all, err := env.svc.ListPendingReceipts(ctx, env.admin, pagination.Params{Limit: 1})
	require.NoError(t, err)
	require.Len(t, all.Items, 1)
	assert.Equal(t, "T-1", all.Items[0].TransactionRef)
	require.NotEmpty(t, all.NextCursor)

	next, err := env.svc.ListPendingReceipts(ctx, env.admin, pagination.Params{Limit: 1, Cursor: all.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Equal(t, "M-1", next.Items[0].TransactionRef)

	_, err = env.svc.ListPendingReceipts(ctx, env.buyer, pagination.Params{})
	requireCode(t, err, pkgerrors.CodeForbidden)
}
