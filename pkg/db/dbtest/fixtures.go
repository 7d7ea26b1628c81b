package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ethoparts/marketplace-backend/pkg/db/models"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
)

// Fixtures inserts the minimal rows domain tests build on.
type Fixtures struct {
	t  *testing.T
	db *gorm.DB
}

func NewFixtures(t *testing.T, db *gorm.DB) *Fixtures {
	t.Helper()
	return &Fixtures{t: t, db: db}
}

func (f *Fixtures) create(row any) {
	f.t.Helper()
	if err := f.db.Create(row).Error; err != nil {
		f.t.Fatalf("seed %T: %v", row, err)
	}
}

func (f *Fixtures) User(role enums.UserRole) models.User {
	f.t.Helper()
	id := uuid.New()
	user := models.User{
		ID:           id,
		Email:        id.String()[:8] + "@ethoparts.test",
		PasswordHash: "not-a-real-hash",
		Name:         string(role) + " " + id.String()[:4],
		Role:         role,
	}
	f.create(&user)
	return user
}

func (f *Fixtures) Product(sellerID uuid.UUID, price string, stock int) models.Product {
	f.t.Helper()
	product := models.Product{
		SellerID:  sellerID,
		Name:      "Brake pad " + uuid.NewString()[:4],
		Condition: enums.ProductConditionNew,
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
	}
	f.create(&product)
	return product
}

func (f *Fixtures) PaymentMethod(name string, enabled bool) models.PaymentMethod {
	f.t.Helper()
	method := models.PaymentMethod{
		Name:    name,
		Type:    enums.PaymentMethodTypeEWallet,
		Enabled: enabled,
	}
	f.create(&method)
	return method
}

func (f *Fixtures) SellerMethod(sellerID, paymentMethodID uuid.UUID, enabled bool) models.SellerPaymentMethod {
	f.t.Helper()
	binding := models.SellerPaymentMethod{
		SellerID:        sellerID,
		PaymentMethodID: paymentMethodID,
		AccountName:     "Abebe Kebede",
		AccountNumber:   "0911000000",
		Enabled:         enabled,
	}
	f.create(&binding)
	return binding
}

// Stock reads the current stock of a product.
func (f *Fixtures) Stock(productID uuid.UUID) int {
	f.t.Helper()
	var product models.Product
	if err := f.db.Where("id = ?", productID).First(&product).Error; err != nil {
		f.t.Fatalf("load product: %v", err)
	}
	return product.Stock
}

// Order inserts a pending order whose single line belongs to sellerID.
func (f *Fixtures) Order(buyerID, sellerID uuid.UUID, total string) models.Order {
	f.t.Helper()
	amount := decimal.RequireFromString(total)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	order := models.Order{
		OrderNumber:         "EP-20260301-" + uuid.NewString()[:6],
		BuyerID:             buyerID,
		TotalAmount:         amount,
		CommissionRate:      decimal.RequireFromString("0.10"),
		CommissionAmount:    amount.Mul(decimal.RequireFromString("0.10")).Round(2),
		ShippingAddress:     "Bole Road 12",
		ShippingCity:        "Addis Ababa",
		ShippingPhone:       "+251911000000",
		PaymentMethodID:     uuid.New(),
		PaymentMethodName:   "Telebirr",
		SellerAccountName:   "Abebe Kebede",
		SellerAccountNumber: "0911000000",
		PaymentStatus:       enums.PaymentStatusPending,
		OrderStatus:         enums.OrderStatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	f.create(&order)
	item := models.OrderItem{
		OrderID:     order.ID,
		ProductID:   uuid.New(),
		ProductName: "Brake pad",
		Quantity:    1,
		UnitPrice:   amount,
		LineTotal:   amount,
		SellerID:    sellerID,
	}
	f.create(&item)
	order.Items = []models.OrderItem{item}
	return order
}

// Commission inserts a commission for the order's seller with the given
// stored status and due date.
func (f *Fixtures) Commission(order models.Order, sellerID uuid.UUID, amount string, status enums.CommissionStatus, due time.Time) models.Commission {
	f.t.Helper()
	value := decimal.RequireFromString(amount)
	commission := models.Commission{
		OrderID:          order.ID,
		OrderNumber:      order.OrderNumber,
		SellerID:         sellerID,
		SaleAmount:       value.Mul(decimal.NewFromInt(10)),
		CommissionAmount: value,
		CommissionRate:   decimal.RequireFromString("0.10"),
		Status:           status,
		DueDate:          due.UTC(),
		CreatedAt:        due.UTC().Add(-48 * time.Hour),
	}
	f.create(&commission)
	return commission
}
