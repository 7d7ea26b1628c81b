package reports

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ethoparts/marketplace-backend/pkg/enums"
)

// PlatformCounts are the row counts on the admin dashboard.
type PlatformCounts struct {
	Users              int64           `gorm:"column:users"`
	Products           int64           `gorm:"column:products"`
	Orders             int64           `gorm:"column:orders"`
	PendingReceipts    int64           `gorm:"column:pending_receipts"`
	PendingCommissions int64           `gorm:"column:pending_commission_payments"`
	CompletedSales     decimal.Decimal `gorm:"column:completed_sales"`
}

// SellerSales covers completed orders containing a seller's items.
type SellerSales struct {
	Orders int64           `gorm:"column:orders"`
	Sales  decimal.Decimal `gorm:"column:sales"`
}

// Repository runs the read-only aggregate queries behind the dashboards.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) PlatformCounts(ctx context.Context) (PlatformCounts, error) {
	var out PlatformCounts
	err := r.db.WithContext(ctx).Raw(`
SELECT
    (SELECT COUNT(*) FROM users) AS users,
    (SELECT COUNT(*) FROM products) AS products,
    (SELECT COUNT(*) FROM orders) AS orders,
    (SELECT COUNT(*) FROM payment_receipts WHERE status = ?) AS pending_receipts,
    (SELECT COUNT(*) FROM commission_payments WHERE status = ?) AS pending_commission_payments,
    (SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE payment_status = ?) AS completed_sales`,
		enums.ReceiptStatusPendingReview,
		enums.CommissionPaymentStatusPendingReview,
		enums.PaymentStatusCompleted,
	).Scan(&out).Error
	return out, err
}

func (r *Repository) SellerProductCount(ctx context.Context, sellerID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Table("products").Where("seller_id = ?", sellerID).Count(&n).Error
	return n, err
}

func (r *Repository) SellerSales(ctx context.Context, sellerID uuid.UUID) (SellerSales, error) {
	var out SellerSales
	err := r.db.WithContext(ctx).
		Table("order_items").
		Select("COUNT(DISTINCT order_items.order_id) AS orders, COALESCE(SUM(order_items.line_total), 0) AS sales").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.seller_id = ? AND orders.payment_status = ?", sellerID, enums.PaymentStatusCompleted).
		Scan(&out).Error
	return out, err
}
