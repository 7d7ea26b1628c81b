package paymentmethods

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ethoparts/marketplace-backend/pkg/db/models"
)

// Repository persists platform payment channels and the seller accounts
// bound to them.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context, enabledOnly bool) ([]models.PaymentMethod, error) {
	query := r.db.WithContext(ctx).Model(&models.PaymentMethod{})
	if enabledOnly {
		query = query.Where("enabled = ?", true)
	}
	var rows []models.PaymentMethod
	err := query.Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentMethod, error) {
	var row models.PaymentMethod
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) Create(ctx context.Context, method *models.PaymentMethod) error {
	return r.db.WithContext(ctx).Create(method).Error
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.PaymentMethod{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.PaymentMethod{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) CountBindings(ctx context.Context, methodID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.SellerPaymentMethod{}).
		Where("payment_method_id = ?", methodID).
		Count(&n).Error
	return n, err
}

func (r *Repository) ListBindings(ctx context.Context, sellerID uuid.UUID, enabledOnly bool) ([]models.SellerPaymentMethod, error) {
	query := r.db.WithContext(ctx).
		Model(&models.SellerPaymentMethod{}).
		Preload("PaymentMethod").
		Where("seller_payment_methods.seller_id = ?", sellerID)
	if enabledOnly {
		query = query.
			Joins("JOIN payment_methods pm ON pm.id = seller_payment_methods.payment_method_id").
			Where("seller_payment_methods.enabled = ? AND pm.enabled = ?", true, true)
	}
	var rows []models.SellerPaymentMethod
	err := query.Order("seller_payment_methods.created_at ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) FindBinding(ctx context.Context, id uuid.UUID) (*models.SellerPaymentMethod, error) {
	var row models.SellerPaymentMethod
	if err := r.db.WithContext(ctx).Preload("PaymentMethod").First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) CreateBinding(ctx context.Context, binding *models.SellerPaymentMethod) error {
	return r.db.WithContext(ctx).Omit("PaymentMethod").Create(binding).Error
}

func (r *Repository) DeleteBinding(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.SellerPaymentMethod{}).Error
}
