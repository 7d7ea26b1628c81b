package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ethoparts/marketplace-backend/pkg/enums"
	"github.com/ethoparts/marketplace-backend/pkg/types"
)

type Category struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;not null;uniqueIndex:categories_name_key"`
	Description *string   `gorm:"column:description"`
	Icon        *string   `gorm:"column:icon"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// Product is a seller listing. Stock is decremented only through the
// conditional update in the orders repository.
type Product struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	SellerID       uuid.UUID              `gorm:"column:seller_id;type:uuid;not null;index"`
	CategoryID     *uuid.UUID             `gorm:"column:category_id;type:uuid"`
	Name           string                 `gorm:"column:name;not null"`
	Description    *string                `gorm:"column:description"`
	Brand          *string                `gorm:"column:brand"`
	Condition      enums.ProductCondition `gorm:"column:condition;type:text;not null"`
	Price          decimal.Decimal        `gorm:"column:price;type:numeric(12,2);not null"`
	Stock          int                    `gorm:"column:stock;not null"`
	Images         types.StringList       `gorm:"column:images;type:jsonb"`
	CompatibleCars types.StringList       `gorm:"column:compatible_cars;type:jsonb"`
	Specifications types.JSONDocument     `gorm:"column:specifications;type:jsonb"`
	AvgRating      decimal.Decimal        `gorm:"column:avg_rating;type:numeric(2,1);not null"`
	ReviewCount    int                    `gorm:"column:review_count;not null"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// ProductReview is one user's rating of a product. UserName is copied at
// write time.
type ProductReview struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:product_reviews_product_user_key,priority:1"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:product_reviews_product_user_key,priority:2"`
	UserName  string    `gorm:"column:user_name;not null"`
	Rating    int       `gorm:"column:rating;not null"`
	Comment   string    `gorm:"column:comment;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (r *ProductReview) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
