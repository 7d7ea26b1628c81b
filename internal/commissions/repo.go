package commissions

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

// Repository persists commissions and the payments sellers make against them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	InsertIgnoringDuplicates(ctx context.Context, rows []models.Commission) ([]models.Commission, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Commission, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Commission, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Commission, error)
	List(ctx context.Context, sellerID *uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Commission, error)
	Totals(ctx context.Context, sellerID *uuid.UUID) (Totals, error)
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error
	MarkOverdue(ctx context.Context, now time.Time) ([]models.Commission, error)

	CreatePayment(ctx context.Context, payment *models.CommissionPayment) error
	HasPendingPayment(ctx context.Context, commissionID uuid.UUID) (bool, error)
	FindPaymentByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.CommissionPayment, error)
	UpdatePaymentFields(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListPendingPayments(ctx context.Context, cursor *pagination.Cursor, limit int) ([]PendingPaymentRow, error)
}

// Totals are commission sums split by settlement state.
type Totals struct {
	Paid        decimal.Decimal `gorm:"column:paid"`
	Outstanding decimal.Decimal `gorm:"column:outstanding"`
	Count       int64           `gorm:"column:total"`
}

// PendingPaymentRow is a commission payment joined with what an admin needs
// to review it.
type PendingPaymentRow struct {
	ID               uuid.UUID                     `gorm:"column:id"`
	CommissionID     uuid.UUID                     `gorm:"column:commission_id"`
	SellerID         uuid.UUID                     `gorm:"column:seller_id"`
	Amount           decimal.Decimal               `gorm:"column:amount"`
	TransactionRef   string                        `gorm:"column:transaction_ref"`
	ReceiptImage     *string                       `gorm:"column:receipt_image"`
	Status           enums.CommissionPaymentStatus `gorm:"column:status"`
	CreatedAt        time.Time                     `gorm:"column:created_at"`
	OrderNumber      string                        `gorm:"column:order_number"`
	CommissionAmount decimal.Decimal               `gorm:"column:commission_amount"`
	SellerName       string                        `gorm:"column:seller_name"`
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

// InsertIgnoringDuplicates inserts each row unless (order_id, seller_id)
// already exists and returns only the rows actually written.
func (r *repository) InsertIgnoringDuplicates(ctx context.Context, rows []models.Commission) ([]models.Commission, error) {
	inserted := make([]models.Commission, 0, len(rows))
	for i := range rows {
		row := rows[i]
		res := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "order_id"}, {Name: "seller_id"}},
				DoNothing: true,
			}).
			Create(&row)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			inserted = append(inserted, row)
		}
	}
	return inserted, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Commission, error) {
	var row models.Commission
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Commission, error) {
	var row models.Commission
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Commission, error) {
	var rows []models.Commission
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) List(ctx context.Context, sellerID *uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Commission, error) {
	query := r.db.WithContext(ctx).Model(&models.Commission{})
	if sellerID != nil {
		query = query.Where("commissions.seller_id = ?", *sellerID)
	}
	var rows []models.Commission
	err := pagination.Newest(query, "commissions", cursor, limit).Find(&rows).Error
	return rows, err
}

func (r *repository) Totals(ctx context.Context, sellerID *uuid.UUID) (Totals, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Commission{}).
		Select(
			"COALESCE(SUM(CASE WHEN status = ? THEN commission_amount ELSE 0 END), 0) AS paid, "+
				"COALESCE(SUM(CASE WHEN status IN ? THEN commission_amount ELSE 0 END), 0) AS outstanding, "+
				"COUNT(*) AS total",
			enums.CommissionStatusPaid, enums.OutstandingCommissionStatuses(),
		)
	if sellerID != nil {
		query = query.Where("seller_id = ?", *sellerID)
	}
	var totals Totals
	err := query.Scan(&totals).Error
	return totals, err
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Commission{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkOverdue persists overdue for every pending commission past its due date
// and returns the rows it flipped.
func (r *repository) MarkOverdue(ctx context.Context, now time.Time) ([]models.Commission, error) {
	var due []models.Commission
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ? AND due_date < ?", enums.CommissionStatusPending, now.UTC()).
		Order("due_date ASC").
		Find(&due).Error
	if err != nil || len(due) == 0 {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(due))
	for _, c := range due {
		ids = append(ids, c.ID)
	}
	err = r.db.WithContext(ctx).
		Model(&models.Commission{}).
		Where("id IN ? AND status = ?", ids, enums.CommissionStatusPending).
		Update("status", enums.CommissionStatusOverdue).Error
	if err != nil {
		return nil, err
	}
	for i := range due {
		due[i].Status = enums.CommissionStatusOverdue
	}
	return due, nil
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.CommissionPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) HasPendingPayment(ctx context.Context, commissionID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CommissionPayment{}).
		Where("commission_id = ? AND status = ?", commissionID, enums.CommissionPaymentStatusPendingReview).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) FindPaymentByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.CommissionPayment, error) {
	var row models.CommissionPayment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) UpdatePaymentFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.CommissionPayment{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListPendingPayments(ctx context.Context, cursor *pagination.Cursor, limit int) ([]PendingPaymentRow, error) {
	query := r.db.WithContext(ctx).
		Table("commission_payments").
		Select("commission_payments.id, commission_payments.commission_id, commission_payments.seller_id, "+
			"commission_payments.amount, commission_payments.transaction_ref, commission_payments.receipt_image, "+
			"commission_payments.status, commission_payments.created_at, commissions.order_number, "+
			"commissions.commission_amount, COALESCE(users.business_name, users.name) AS seller_name").
		Joins("JOIN commissions ON commissions.id = commission_payments.commission_id").
		Joins("JOIN users ON users.id = commission_payments.seller_id").
		Where("commission_payments.status = ?", enums.CommissionPaymentStatusPendingReview)
	var rows []PendingPaymentRow
	err := pagination.Newest(query, "commission_payments", cursor, limit).Scan(&rows).Error
	return rows, err
}
