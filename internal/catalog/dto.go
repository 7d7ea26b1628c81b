package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ethoparts/marketplace-backend/pkg/db/models"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
	"github.com/ethoparts/marketplace-backend/pkg/types"
)

type CreateCategoryInput struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty"`
}

type CategoryDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Icon        *string   `json:"icon,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toCategoryDTO(c models.Category) CategoryDTO {
	return CategoryDTO{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Icon:        c.Icon,
		CreatedAt:   c.CreatedAt,
	}
}

type CreateProductInput struct {
	CategoryID     *uuid.UUID         `json:"category_id,omitempty"`
	Name           string             `json:"name" validate:"required"`
	Description    *string            `json:"description,omitempty"`
	Brand          *string            `json:"brand,omitempty"`
	Condition      string             `json:"condition,omitempty" validate:"omitempty,oneof=new used refurbished"`
	Price          decimal.Decimal    `json:"price"`
	Stock          int                `json:"stock" validate:"gte=0"`
	Images         []string           `json:"images,omitempty"`
	CompatibleCars []string           `json:"compatible_cars,omitempty"`
	Specifications types.JSONDocument `json:"specifications,omitempty"`
}

// UpdateProductInput is a partial update. CategoryID distinguishes an absent
// field from an explicit null, which clears the category.
type UpdateProductInput struct {
	CategoryID     types.Patch[uuid.UUID] `json:"category_id"`
	Name           *string                `json:"name,omitempty"`
	Description    *string                `json:"description,omitempty"`
	Brand          *string                `json:"brand,omitempty"`
	Condition      *string                `json:"condition,omitempty"`
	Price          *decimal.Decimal       `json:"price,omitempty"`
	Stock          *int                   `json:"stock,omitempty"`
	Images         *[]string              `json:"images,omitempty"`
	CompatibleCars *[]string              `json:"compatible_cars,omitempty"`
	Specifications types.JSONDocument     `json:"specifications,omitempty"`
}

type ProductDTO struct {
	ID             uuid.UUID              `json:"id"`
	SellerID       uuid.UUID              `json:"seller_id"`
	CategoryID     *uuid.UUID             `json:"category_id,omitempty"`
	Name           string                 `json:"name"`
	Description    *string                `json:"description,omitempty"`
	Brand          *string                `json:"brand,omitempty"`
	Condition      enums.ProductCondition `json:"condition"`
	Price          decimal.Decimal        `json:"price"`
	Stock          int                    `json:"stock"`
	Images         []string               `json:"images"`
	CompatibleCars []string               `json:"compatible_cars"`
	Specifications types.JSONDocument     `json:"specifications,omitempty"`
	AvgRating      decimal.Decimal        `json:"avg_rating"`
	ReviewCount    int                    `json:"review_count"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

func toProductDTO(p models.Product) ProductDTO {
	return ProductDTO{
		ID:             p.ID,
		SellerID:       p.SellerID,
		CategoryID:     p.CategoryID,
		Name:           p.Name,
		Description:    p.Description,
		Brand:          p.Brand,
		Condition:      p.Condition,
		Price:          p.Price,
		Stock:          p.Stock,
		Images:         nonNil(p.Images),
		CompatibleCars: nonNil(p.CompatibleCars),
		Specifications: p.Specifications,
		AvgRating:      p.AvgRating,
		ReviewCount:    p.ReviewCount,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

type CreateReviewInput struct {
	Rating  int    `json:"rating" validate:"gte=1,lte=5"`
	Comment string `json:"comment"`
}

type ReviewDTO struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	UserID    uuid.UUID `json:"user_id"`
	UserName  string    `json:"user_name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

func toReviewDTO(r models.ProductReview) ReviewDTO {
	return ReviewDTO{
		ID:        r.ID,
		ProductID: r.ProductID,
		UserID:    r.UserID,
		UserName:  r.UserName,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}

func nonNil(list types.StringList) []string {
	if list == nil {
		return []string{}
	}
	return list
}
