package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ethoparts/marketplace-backend/pkg/db/models"
	"github.com/ethoparts/marketplace-backend/pkg/pagination"
)

// ProductFilter narrows the public product listing.
type ProductFilter struct {
	CategoryID *uuid.UUID
	SellerID   *uuid.UUID
}

// Repository persists categories and seller listings.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var rows []models.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) CreateCategory(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *Repository) CategoryExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}

func (r *Repository) ListProducts(ctx context.Context, filter ProductFilter, cursor *pagination.Cursor, limit int) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})
	if filter.CategoryID != nil {
		query = query.Where("products.category_id = ?", *filter.CategoryID)
	}
	if filter.SellerID != nil {
		query = query.Where("products.seller_id = ?", *filter.SellerID)
	}
	var rows []models.Product
	err := pagination.Newest(query, "products", cursor, limit).Find(&rows).Error
	return rows, err
}

func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var row models.Product
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *Repository) UpdateProduct(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) UserName(ctx context.Context, userID uuid.UUID) (string, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Select("name").First(&user, "id = ?", userID).Error; err != nil {
		return "", err
	}
	return user.Name, nil
}

func (r *Repository) ListReviews(ctx context.Context, productID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.ProductReview, error) {
	query := r.db.WithContext(ctx).Model(&models.ProductReview{}).
		Where("product_reviews.product_id = ?", productID)
	var rows []models.ProductReview
	err := pagination.Newest(query, "product_reviews", cursor, limit).Find(&rows).Error
	return rows, err
}

// CreateReview inserts the review and recomputes the product's avg_rating and
// review_count under the product row lock. A missing product surfaces as
// gorm.ErrRecordNotFound.
func (r *Repository) CreateReview(ctx context.Context, review *models.ProductReview) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").First(&product, "id = ?", review.ProductID).Error; err != nil {
			return err
		}
		if err := tx.Create(review).Error; err != nil {
			return err
		}

		var agg struct {
			Count int64
			Total int64
		}
		if err := tx.Model(&models.ProductReview{}).
			Select("COUNT(*) AS count, COALESCE(SUM(rating), 0) AS total").
			Where("product_id = ?", review.ProductID).
			Scan(&agg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Product{}).Where("id = ?", review.ProductID).Updates(map[string]any{
			"avg_rating":   averageRating(agg.Total, agg.Count),
			"review_count": agg.Count,
		}).Error
	})
}

// averageRating is total/count rounded to one decimal place.
func averageRating(total, count int64) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(total).Div(decimal.NewFromInt(count)).Round(1)
}
