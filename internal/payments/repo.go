package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ethoparts/marketplace-backend/pkg/db/models"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
	"github.com/ethoparts/marketplace-backend/pkg/pagination"
)

// Repository persists buyer payment receipts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, receipt *models.PaymentReceipt) error
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.PaymentReceipt, error)
	HasPendingForOrder(ctx context.Context, orderID uuid.UUID) (bool, error)
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListPending(ctx context.Context, sellerID *uuid.UUID, cursor *pagination.Cursor, limit int) ([]PendingReceiptRow, error)
}

// PendingReceiptRow is a receipt awaiting review joined with its order.
type PendingReceiptRow struct {
	ID                uuid.UUID           `gorm:"column:id"`
	OrderID           uuid.UUID           `gorm:"column:order_id"`
	UserID            uuid.UUID           `gorm:"column:user_id"`
	TransactionRef    string              `gorm:"column:transaction_ref"`
	ReceiptImage      *string             `gorm:"column:receipt_image"`
	Status            enums.ReceiptStatus `gorm:"column:status"`
	CreatedAt         time.Time           `gorm:"column:created_at"`
	OrderNumber       string              `gorm:"column:order_number"`
	TotalAmount       decimal.Decimal     `gorm:"column:total_amount"`
	PaymentMethodName string              `gorm:"column:payment_method_name"`
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, receipt *models.PaymentReceipt) error {
	return r.db.WithContext(ctx).Create(receipt).Error
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.PaymentReceipt, error) {
	var receipt models.PaymentReceipt
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&receipt).Error
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (r *repository) HasPendingForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PaymentReceipt{}).
		Where("order_id = ? AND status = ?", orderID, enums.ReceiptStatusPendingReview).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.PaymentReceipt{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListPending(ctx context.Context, sellerID *uuid.UUID, cursor *pagination.Cursor, limit int) ([]PendingReceiptRow, error) {
	query := r.db.WithContext(ctx).
		Table("payment_receipts").
		Select("payment_receipts.id, payment_receipts.order_id, payment_receipts.user_id, "+
			"payment_receipts.transaction_ref, payment_receipts.receipt_image, payment_receipts.status, "+
			"payment_receipts.created_at, orders.order_number, orders.total_amount, orders.payment_method_name").
		Joins("JOIN orders ON orders.id = payment_receipts.order_id").
		Where("payment_receipts.status = ?", enums.ReceiptStatusPendingReview)
	if sellerID != nil {
		query = query.Where(
			"EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = orders.id AND oi.seller_id = ?)",
			*sellerID,
		)
	}
	var rows []PendingReceiptRow
	err := pagination.Newest(query, "payment_receipts", cursor, limit).Scan(&rows).Error
	return rows, err
}
