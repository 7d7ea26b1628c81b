package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ethoparts/marketplace-backend/internal/access"
	"github.com/ethoparts/marketplace-backend/pkg/db"
	"github.com/ethoparts/marketplace-backend/pkg/db/models"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
	pkgerrors "github.com/ethoparts/marketplace-backend/pkg/errors"
	"github.com/ethoparts/marketplace-backend/pkg/pagination"
	"github.com/ethoparts/marketplace-backend/pkg/types"
)

// Service exposes the category tree and seller listings.
type Service interface {
	ListCategories(ctx context.Context) ([]CategoryDTO, error)
	CreateCategory(ctx context.Context, actor access.Actor, input CreateCategoryInput) (*CategoryDTO, error)

	ListProducts(ctx context.Context, filter ProductFilter, params pagination.Params) (pagination.Page[ProductDTO], error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	CreateProduct(ctx context.Context, actor access.Actor, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, actor access.Actor, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, actor access.Actor, id uuid.UUID) error

	ListReviews(ctx context.Context, productID uuid.UUID, params pagination.Params) (pagination.Page[ReviewDTO], error)
	CreateReview(ctx context.Context, actor access.Actor, productID uuid.UUID, input CreateReviewInput) (*ReviewDTO, error)
}

type service struct {
	repo *Repository
	now  func() time.Time
}

func NewService(repo *Repository, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{repo: repo, now: now}, nil
}

func (s *service) ListCategories(ctx context.Context) ([]CategoryDTO, error) {
	rows, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	out := make([]CategoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCategoryDTO(row))
	}
	return out, nil
}

func (s *service) CreateCategory(ctx context.Context, actor access.Actor, input CreateCategoryInput) (*CategoryDTO, error) {
	if err := access.Authorize(actor, access.CapCatalogManageCategories, access.Resource{}); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	category := models.Category{
		Name:        name,
		Description: input.Description,
		Icon:        input.Icon,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.CreateCategory(ctx, &category); err != nil {
		if db.IsUniqueViolation(err, "categories_name_key") {
			return nil, pkgerrors.WithReason(pkgerrors.CodeConflict, pkgerrors.ReasonDuplicateCategory,
				"category already exists", map[string]any{"name": name})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}
	dto := toCategoryDTO(category)
	return &dto, nil
}

func (s *service) ListProducts(ctx context.Context, filter ProductFilter, params pagination.Params) (pagination.Page[ProductDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[ProductDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListProducts(ctx, filter, cursor, params.Limit)
	if err != nil {
		return pagination.Page[ProductDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	page := pagination.Trim(rows, params.Limit, func(p models.Product) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return pagination.Map(page, toProductDTO), nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}
	dto := toProductDTO(*product)
	return &dto, nil
}

func (s *service) CreateProduct(ctx context.Context, actor access.Actor, input CreateProductInput) (*ProductDTO, error) {
	if err := access.Authorize(actor, access.CapCatalogManageProducts, access.Owned(actor.UserID)); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
	}
	condition := enums.ProductConditionNew
	if raw := strings.TrimSpace(input.Condition); raw != "" {
		parsed, err := enums.ParseProductCondition(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid condition")
		}
		condition = parsed
	}
	if err := s.requireCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	product := models.Product{
		SellerID:       actor.UserID,
		CategoryID:     input.CategoryID,
		Name:           name,
		Description:    input.Description,
		Brand:          input.Brand,
		Condition:      condition,
		Price:          input.Price.Round(2),
		Stock:          input.Stock,
		Images:         types.StringList(input.Images),
		CompatibleCars: types.StringList(input.CompatibleCars),
		Specifications: input.Specifications,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.CreateProduct(ctx, &product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	dto := toProductDTO(product)
	return &dto, nil
}

func (s *service) UpdateProduct(ctx context.Context, actor access.Actor, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}
	if err := access.Authorize(actor, access.CapCatalogManageProducts, access.Owned(product.SellerID)); err != nil {
		return nil, err
	}

	updates := map[string]any{"updated_at": s.now().UTC()}
	if input.CategoryID.Set {
		if err := s.requireCategory(ctx, input.CategoryID.Value); err != nil {
			return nil, err
		}
		updates["category_id"] = input.CategoryID.Value
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Brand != nil {
		updates["brand"] = *input.Brand
	}
	if input.Condition != nil {
		condition, err := enums.ParseProductCondition(strings.TrimSpace(*input.Condition))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid condition")
		}
		updates["condition"] = condition
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
		}
		updates["price"] = input.Price.Round(2)
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock cannot be negative")
		}
		updates["stock"] = *input.Stock
	}
	if input.Images != nil {
		updates["images"] = types.StringList(*input.Images)
	}
	if input.CompatibleCars != nil {
		updates["compatible_cars"] = types.StringList(*input.CompatibleCars)
	}
	if len(input.Specifications) > 0 {
		updates["specifications"] = input.Specifications
	}

	if err := s.repo.UpdateProduct(ctx, id, updates); err != nil {
		return nil, notFoundOr(err, "product not found", "update product")
	}
	return s.GetProduct(ctx, id)
}

func (s *service) DeleteProduct(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return notFoundOr(err, "product not found", "load product")
	}
	if err := access.Authorize(actor, access.CapCatalogManageProducts, access.Owned(product.SellerID)); err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return notFoundOr(err, "product not found", "delete product")
	}
	return nil
}

func (s *service) ListReviews(ctx context.Context, productID uuid.UUID, params pagination.Params) (pagination.Page[ReviewDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[ReviewDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	if _, err := s.repo.FindProduct(ctx, productID); err != nil {
		return pagination.Page[ReviewDTO]{}, notFoundOr(err, "product not found", "load product")
	}
	rows, err := s.repo.ListReviews(ctx, productID, cursor, params.Limit)
	if err != nil {
		return pagination.Page[ReviewDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reviews")
	}
	page := pagination.Trim(rows, params.Limit, func(r models.ProductReview) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	return pagination.Map(page, toReviewDTO), nil
}

// CreateReview records the caller's single review of a product and refreshes
// the product's rating aggregate.
func (s *service) CreateReview(ctx context.Context, actor access.Actor, productID uuid.UUID, input CreateReviewInput) (*ReviewDTO, error) {
	if err := access.Authorize(actor, access.CapCatalogReview, access.Resource{}); err != nil {
		return nil, err
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5").
			WithDetails(map[string]any{"rating": input.Rating})
	}
	name, err := s.repo.UserName(ctx, actor.UserID)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "load reviewer")
	}

	review := models.ProductReview{
		ProductID: productID,
		UserID:    actor.UserID,
		UserName:  name,
		Rating:    input.Rating,
		Comment:   strings.TrimSpace(input.Comment),
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateReview(ctx, &review); err != nil {
		if db.IsUniqueViolation(err, "product_reviews_product_user_key") {
			return nil, pkgerrors.WithReason(pkgerrors.CodeConflict, pkgerrors.ReasonDuplicateReview,
				"product already reviewed", map[string]any{"product_id": productID})
		}
		return nil, notFoundOr(err, "product not found", "create review")
	}
	dto := toReviewDTO(review)
	return &dto, nil
}

func (s *service) requireCategory(ctx context.Context, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	ok, err := s.repo.CategoryExists(ctx, *id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check category")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "category does not exist").
			WithDetails(map[string]any{"category_id": *id})
	}
	return nil
}

func notFoundOr(err error, notFound, op string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}
