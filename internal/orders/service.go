package orders

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ethoparts/marketplace-backend/internal/access"
	"github.com/ethoparts/marketplace-backend/internal/commissions"
	"github.com/ethoparts/marketplace-backend/pkg/db"
	"github.com/ethoparts/marketplace-backend/pkg/db/models"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
	pkgerrors "github.com/ethoparts/marketplace-backend/pkg/errors"
	"github.com/ethoparts/marketplace-backend/pkg/logger"
	"github.com/ethoparts/marketplace-backend/pkg/metrics"
	"github.com/ethoparts/marketplace-backend/pkg/outbox"
	"github.com/ethoparts/marketplace-backend/pkg/outbox/payloads"
	"github.com/ethoparts/marketplace-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the order lifecycle: placement, viewing, fulfilment status and
// public tracking.
type Service interface {
	PlaceOrder(ctx context.Context, actor access.Actor, input PlaceOrderInput) (*OrderDTO, error)
	GetOrdersForViewer(ctx context.Context, actor access.Actor, params pagination.Params) (pagination.Page[OrderDTO], error)
	GetOrder(ctx context.Context, actor access.Actor, id uuid.UUID) (*OrderDTO, error)
	UpdateOrderStatus(ctx context.Context, actor access.Actor, id uuid.UUID, input UpdateStatusInput) (*OrderDTO, error)
	TrackOrder(ctx context.Context, orderNumber string) (*TrackingView, error)
}

type ServiceParams struct {
	Repository Repository
	Tx         txRunner
	Outbox     outboxPublisher
	Policy     commissions.Policy
	Logger     *logger.Logger
	Metrics    *metrics.MarketplaceMetrics
	Now        func() time.Time
	NewID      func() uuid.UUID
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	policy  commissions.Policy
	logg    *logger.Logger
	metrics *metrics.MarketplaceMetrics
	now     func() time.Time
	newID   func() uuid.UUID
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if err := params.Policy.Validate(); err != nil {
		return nil, err
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	newID := params.NewID
	if newID == nil {
		newID = uuid.New
	}
	return &service{
		repo:    params.Repository,
		tx:      params.Tx,
		outbox:  params.Outbox,
		policy:  params.Policy,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     now,
		newID:   newID,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, actor access.Actor, input PlaceOrderInput) (*OrderDTO, error) {
	if err := access.Authorize(actor, access.CapOrderPlace, access.Resource{}); err != nil {
		return nil, err
	}
	lines, err := validatePlaceOrder(input)
	if err != nil {
		return nil, err
	}

	var created models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		ids := make([]uuid.UUID, 0, len(lines))
		for _, line := range lines {
			ids = append(ids, line.ProductID)
		}
		products, err := repo.FindProductsByIDs(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}
		byID := make(map[uuid.UUID]models.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		now := s.now().UTC()
		orderID := s.newID()
		items := make([]models.OrderItem, 0, len(lines))
		sellers := make(map[uuid.UUID]struct{}, len(lines))
		total := decimal.Zero
		for i, line := range lines {
			product, ok := byID[line.ProductID]
			if !ok {
				return pkgerrors.WithReason(pkgerrors.CodeNotFound, pkgerrors.ReasonProductNotFound,
					"product not found", map[string]any{"product_id": line.ProductID})
			}
			if product.Stock < line.Quantity {
				return insufficientStock(product, line.Quantity)
			}
			lineTotal := product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
			total = total.Add(lineTotal)
			sellers[product.SellerID] = struct{}{}
			items = append(items, models.OrderItem{
				OrderID:     orderID,
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    line.Quantity,
				UnitPrice:   product.Price,
				LineTotal:   lineTotal,
				SellerID:    product.SellerID,
				Position:    i,
			})
		}

		method, err := s.resolvePaymentMethod(ctx, repo, input.PaymentMethodID, sellers)
		if err != nil {
			return err
		}

		for _, line := range reservationOrder(lines) {
			ok, err := repo.DecrementStock(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
			}
			if !ok {
				return insufficientStock(byID[line.ProductID], line.Quantity)
			}
		}

		created = models.Order{
			ID:                  orderID,
			OrderNumber:         NewOrderNumber(now, s.newID),
			BuyerID:             actor.UserID,
			TotalAmount:         total,
			CommissionRate:      s.policy.Rate,
			CommissionAmount:    s.policy.Amount(total),
			ShippingAddress:     strings.TrimSpace(input.ShippingAddress),
			ShippingCity:        strings.TrimSpace(input.ShippingCity),
			ShippingPhone:       strings.TrimSpace(input.ShippingPhone),
			PaymentMethodID:     method.ID,
			PaymentMethodName:   method.PaymentMethod.Name,
			SellerAccountName:   method.AccountName,
			SellerAccountNumber: method.AccountNumber,
			Notes:               input.Notes,
			PaymentStatus:       enums.PaymentStatusPending,
			OrderStatus:         enums.OrderStatusPending,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := repo.CreateOrder(ctx, &created); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		placed := PlacedEntry(created.ID, now)
		if err := repo.AppendTracking(ctx, &placed); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking")
		}
		created.Items = items
		created.Tracking = []models.OrderTrackingEntry{placed}

		sellerIDs := created.SellerIDs()
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   created.ID,
			Actor:         actorRef(actor),
			OccurredAt:    now,
			Data: payloads.OrderPlacedEvent{
				OrderID:         created.ID,
				OrderNumber:     created.OrderNumber,
				BuyerID:         created.BuyerID,
				SellerIDs:       sellerIDs,
				PaymentMethodID: created.PaymentMethodID,
				TotalAmount:     created.TotalAmount,
				ItemCount:       len(items),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderPlaced()
	s.logInfo(ctx, created.ID, "order.placed", map[string]any{
		"order_number": created.OrderNumber,
		"total_amount": created.TotalAmount.StringFixed(2),
		"buyer_id":     created.BuyerID.String(),
	})
	dto := ToDTO(created)
	return &dto, nil
}

func (s *service) resolvePaymentMethod(ctx context.Context, repo Repository, id uuid.UUID, sellers map[uuid.UUID]struct{}) (*models.SellerPaymentMethod, error) {
	invalid := pkgerrors.WithReason(pkgerrors.CodeValidation, pkgerrors.ReasonInvalidPaymentMethod,
		"payment method is not available for this order", map[string]any{"payment_method_id": id})

	method, err := repo.FindSellerPaymentMethod(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, invalid
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment method")
	}
	if !method.Enabled || method.PaymentMethod == nil || !method.PaymentMethod.Enabled {
		return nil, invalid
	}
	if _, ok := sellers[method.SellerID]; !ok {
		return nil, invalid
	}
	return method, nil
}

func (s *service) GetOrdersForViewer(ctx context.Context, actor access.Actor, params pagination.Params) (pagination.Page[OrderDTO], error) {
	if err := access.Authorize(actor, access.CapOrderList, access.Resource{}); err != nil {
		return pagination.Page[OrderDTO]{}, err
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	var filter ListFilter
	switch {
	case actor.IsAdmin():
	case actor.IsSeller():
		filter.SellerID = &actor.UserID
	default:
		filter.BuyerID = &actor.UserID
	}

	rows, err := s.repo.List(ctx, filter, cursor, params.Limit)
	if err != nil {
		return pagination.Page[OrderDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	page := pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return pagination.Map(page, ToDTO), nil
}

func (s *service) GetOrder(ctx context.Context, actor access.Actor, id uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(actor, access.CapOrderView, access.OrderResource(order.BuyerID, order.SellerIDs())); err != nil {
		return nil, err
	}
	dto := ToDTO(*order)
	return &dto, nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, actor access.Actor, id uuid.UUID, input UpdateStatusInput) (*OrderDTO, error) {
	status, err := enums.ParseOrderStatus(strings.TrimSpace(input.Status))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status")
	}

	var previous enums.OrderStatus
	var orderNumber string
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if err := access.Authorize(actor, access.CapOrderUpdateStatus, access.OrderResource(order.BuyerID, order.SellerIDs())); err != nil {
			return err
		}

		now := s.now().UTC()
		previous = order.OrderStatus
		orderNumber = order.OrderNumber
		if err := repo.UpdateFields(ctx, order.ID, map[string]any{
			"order_status": status,
			"updated_at":   now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		note := strings.TrimSpace(input.Note)
		tracking := StatusEntry(order.ID, status, note, now)
		if err := repo.AppendTracking(ctx, &tracking); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(actor),
			OccurredAt:    now,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				PreviousStatus: previous,
				Status:         status,
				ChangedBy:      actor.UserID,
				Note:           note,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.logInfo(ctx, id, "order.status_changed", map[string]any{
		"order_number":    orderNumber,
		"previous_status": previous,
		"status":          status,
	})
	return s.GetOrder(ctx, actor, id)
}

func (s *service) TrackOrder(ctx context.Context, orderNumber string) (*TrackingView, error) {
	orderNumber = strings.ToUpper(strings.TrimSpace(orderNumber))
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	order, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	view := toTrackingView(*order)
	return &view, nil
}

func (s *service) loadOrder(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) logInfo(ctx context.Context, orderID uuid.UUID, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithOrderID(ctx, orderID.String())
	s.logg.Info(s.logg.WithFields(logCtx, fields), msg)
}

// validatePlaceOrder checks the request shape and merges repeated products,
// keeping the first position of each.
// reservationOrder returns the lines sorted by product ID so concurrent
// orders lock product rows in the same order.
func reservationOrder(lines []LineInput) []LineInput {
	sorted := slices.Clone(lines)
	slices.SortFunc(sorted, func(a, b LineInput) int {
		return bytes.Compare(a.ProductID[:], b.ProductID[:])
	})
	return sorted
}

func validatePlaceOrder(input PlaceOrderInput) ([]LineInput, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.WithReason(pkgerrors.CodeValidation, pkgerrors.ReasonEmptyCart, "cart is empty", nil)
	}
	if strings.TrimSpace(input.ShippingAddress) == "" ||
		strings.TrimSpace(input.ShippingCity) == "" ||
		strings.TrimSpace(input.ShippingPhone) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address, city and phone are required")
	}
	if input.PaymentMethodID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method required")
	}

	index := make(map[uuid.UUID]int, len(input.Items))
	merged := make([]LineInput, 0, len(input.Items))
	for _, line := range input.Items {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if line.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
				WithDetails(map[string]any{"product_id": line.ProductID})
		}
		if i, ok := index[line.ProductID]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}
	return merged, nil
}

func insufficientStock(product models.Product, requested int) error {
	return pkgerrors.WithReason(pkgerrors.CodeValidation, pkgerrors.ReasonInsufficientStock,
		"insufficient stock for "+product.Name, map[string]any{
			"product_id": product.ID,
			"available":  product.Stock,
			"requested":  requested,
		})
}

func actorRef(actor access.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
}
