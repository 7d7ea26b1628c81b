package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ethoparts/marketplace-backend/api/controllers"
	"github.com/ethoparts/marketplace-backend/api/middleware"
	"github.com/ethoparts/marketplace-backend/internal/auth"
	"github.com/ethoparts/marketplace-backend/internal/catalog"
	"github.com/ethoparts/marketplace-backend/internal/commissions"
	"github.com/ethoparts/marketplace-backend/internal/orders"
	"github.com/ethoparts/marketplace-backend/internal/paymentmethods"
	"github.com/ethoparts/marketplace-backend/internal/payments"
	"github.com/ethoparts/marketplace-backend/internal/reports"
	"github.com/ethoparts/marketplace-backend/internal/settings"
	"github.com/ethoparts/marketplace-backend/internal/users"
	pkgauth "github.com/ethoparts/marketplace-backend/pkg/auth"
	"github.com/ethoparts/marketplace-backend/pkg/auth/session"
	"github.com/ethoparts/marketplace-backend/pkg/config"
	"github.com/ethoparts/marketplace-backend/pkg/enums"
	"github.com/ethoparts/marketplace-backend/pkg/logger"
	"github.com/ethoparts/marketplace-backend/pkg/metrics"
	pkgredis "github.com/ethoparts/marketplace-backend/pkg/redis"
)

// RedisStore is the slice of the Redis client the HTTP layer uses.
type RedisStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Dependencies is everything the router mounts.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	Gatherer prometheus.Gatherer
	Metrics  *metrics.HTTPMetrics
	Pingers  map[string]controllers.Pinger

	Tokens   *pkgauth.Issuer
	Sessions session.Checker
	Redis    RedisStore

	Auth           auth.Service
	Users          users.Service
	Orders         orders.Service
	Payments       payments.Service
	Commissions    commissions.Service
	PaymentMethods paymentmethods.Service
	Catalog        catalog.Service
	Reports        reports.Service
	Settings       settings.Service
}

func NewRouter(deps Dependencies) http.Handler {
	cfg, logg := deps.Config, deps.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.Metrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	loginPolicy := middleware.AuthRateLimitPolicy{
		Name:       "login",
		Window:     cfg.AuthRateLimit.LoginWindow,
		IPLimit:    cfg.AuthRateLimit.LoginIPLimit,
		EmailLimit: cfg.AuthRateLimit.LoginEmailLimit,
	}
	registerPolicy := middleware.AuthRateLimitPolicy{
		Name:       "register",
		Window:     cfg.AuthRateLimit.RegisterWindow,
		IPLimit:    cfg.AuthRateLimit.RegisterIPLimit,
		EmailLimit: cfg.AuthRateLimit.RegisterEmailLimit,
	}
	trackLimiter := middleware.NewPublicRateLimiter(
		cfg.PublicRateLimit.RequestsPerSecond,
		cfg.PublicRateLimit.Burst,
		cfg.PublicRateLimit.VisitorTTL,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	authn := middleware.Auth(deps.Tokens, deps.Sessions, logg)
	role := func(roles ...enums.UserRole) func(http.Handler) http.Handler {
		return middleware.RequireRole(logg, roles...)
	}
	sellerOrAdmin := role(enums.RoleSeller, enums.RoleAdmin)
	adminOnly := role(enums.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.Auth, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.AuthLogin(deps.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
			r.With(authn).Post("/logout", controllers.AuthLogout(deps.Auth, logg))
			r.With(authn).Get("/me", controllers.AuthMe(deps.Users, logg))
		})

		// Public reads.
		r.With(trackLimiter.Middleware(logg)).Get("/orders/track/{orderNumber}", controllers.TrackOrder(deps.Orders, logg))
		r.Get("/payment-methods", controllers.ListPaymentMethods(deps.PaymentMethods, logg))
		r.Get("/sellers/{sellerID}/payment-methods", controllers.SellerPaymentMethods(deps.PaymentMethods, logg))
		r.Get("/categories", controllers.ListCategories(deps.Catalog, logg))
		r.Get("/products", controllers.ListProducts(deps.Catalog, logg))
		r.Get("/products/{id}", controllers.GetProduct(deps.Catalog, logg))
		r.Get("/products/{id}/reviews", controllers.ListProductReviews(deps.Catalog, logg))
		r.Get("/commission-payment-info", controllers.CommissionPaymentInfo(deps.Settings, logg))
		r.Get("/admin/commission-payment-info", controllers.CommissionPaymentInfo(deps.Settings, logg))

		// /seller mixes the public per-seller listing with the caller's own
		// bindings, so auth is applied per group.
		r.Route("/seller", func(r chi.Router) {
			r.Get("/{sellerID}/payment-methods", controllers.SellerPaymentMethods(deps.PaymentMethods, logg))
			r.Group(func(r chi.Router) {
				r.Use(authn, sellerOrAdmin)
				r.Get("/payment-methods", controllers.ListOwnSellerPaymentMethods(deps.PaymentMethods, logg))
				r.Post("/payment-methods", controllers.BindSellerPaymentMethod(deps.PaymentMethods, logg))
				r.Delete("/payment-methods/{id}", controllers.UnbindSellerPaymentMethod(deps.PaymentMethods, logg))
				r.Get("/stats", controllers.SellerStats(deps.Reports, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authn)

			r.Route("/orders", func(r chi.Router) {
				r.With(role(enums.RoleBuyer), middleware.Idempotency(middleware.OrderPlacementRule, deps.Redis, logg)).
					Post("/", controllers.PlaceOrder(deps.Orders, logg))
				r.Get("/", controllers.ListOrders(deps.Orders, logg))
				r.Get("/{id}", controllers.GetOrder(deps.Orders, logg))
				r.With(sellerOrAdmin).Put("/{id}/status", controllers.UpdateOrderStatus(deps.Orders, logg))
			})

			r.Route("/payments", func(r chi.Router) {
				r.With(role(enums.RoleBuyer), middleware.Idempotency(middleware.OptionalRule, deps.Redis, logg)).
					Post("/upload-receipt", controllers.SubmitReceipt(deps.Payments, logg))
				r.With(sellerOrAdmin).Get("/pending", controllers.ListPendingReceipts(deps.Payments, logg))
				r.With(sellerOrAdmin).Post("/{id}/confirm", controllers.ConfirmReceipt(deps.Payments, logg))
				r.With(sellerOrAdmin).Post("/{id}/reject", controllers.RejectReceipt(deps.Payments, logg))
			})

			r.Route("/commissions", func(r chi.Router) {
				r.With(sellerOrAdmin).Get("/", controllers.ListCommissions(deps.Commissions, logg))
				r.With(sellerOrAdmin).Get("/stats", controllers.CommissionStats(deps.Commissions, logg))
				r.With(sellerOrAdmin, middleware.Idempotency(middleware.OptionalRule, deps.Redis, logg)).
					Post("/{id}/pay", controllers.SubmitCommissionPayment(deps.Commissions, logg))
				r.With(adminOnly).Get("/payments/pending", controllers.ListPendingCommissionPayments(deps.Commissions, logg))
				r.With(adminOnly).Post("/payments/{id}/confirm", controllers.ConfirmCommissionPayment(deps.Commissions, logg))
				r.With(adminOnly).Post("/payments/{id}/reject", controllers.RejectCommissionPayment(deps.Commissions, logg))
			})

			// GET /payment-methods is public, so the admin writes are mounted
			// one by one instead of under a sub-router.
			r.With(adminOnly).Get("/payment-methods/admin", controllers.AdminListPaymentMethods(deps.PaymentMethods, logg))
			r.With(adminOnly).Post("/payment-methods", controllers.CreatePaymentMethod(deps.PaymentMethods, logg))
			r.With(adminOnly).Put("/payment-methods/{id}", controllers.UpdatePaymentMethod(deps.PaymentMethods, logg))
			r.With(adminOnly).Delete("/payment-methods/{id}", controllers.DeletePaymentMethod(deps.PaymentMethods, logg))
			r.With(adminOnly).Post("/payment-methods/{id}/toggle", controllers.TogglePaymentMethod(deps.PaymentMethods, logg))

			r.With(adminOnly).Post("/categories", controllers.CreateCategory(deps.Catalog, logg))
			r.With(sellerOrAdmin).Post("/products", controllers.CreateProduct(deps.Catalog, logg))
			r.With(sellerOrAdmin).Put("/products/{id}", controllers.UpdateProduct(deps.Catalog, logg))
			r.With(sellerOrAdmin).Delete("/products/{id}", controllers.DeleteProduct(deps.Catalog, logg))
			r.Post("/products/{id}/reviews", controllers.CreateProductReview(deps.Catalog, logg))

			r.Route("/admin", func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/stats", controllers.AdminStats(deps.Reports, logg))
				r.Get("/users", controllers.AdminListUsers(deps.Users, logg))
				r.Get("/commission-payment-method", controllers.GetCommissionPaymentMethod(deps.Settings, logg))
				r.Post("/commission-payment-method", controllers.SetCommissionPaymentMethod(deps.Settings, logg))
			})
		})
	})

	return r
}
