package main

import (
	"fmt"
	"time"

	"github.com/ethoparts/marketplace-backend/api/routes"
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
	"github.com/ethoparts/marketplace-backend/pkg/db"
	"github.com/ethoparts/marketplace-backend/pkg/logger"
	"github.com/ethoparts/marketplace-backend/pkg/metrics"
	"github.com/ethoparts/marketplace-backend/pkg/outbox"
	"github.com/ethoparts/marketplace-backend/pkg/security"
)

// serviceDeps carries the infrastructure every domain service is built from.
type serviceDeps struct {
	cfg      *config.Config
	logg     *logger.Logger
	db       *db.Client
	tokens   *pkgauth.Issuer
	sessions *session.Manager
	metrics  *metrics.MarketplaceMetrics
}

// buildServices fills the service half of the router dependencies.
func buildServices(d serviceDeps, out *routes.Dependencies) error {
	now := func() time.Time { return time.Now().UTC() }
	conn := d.db.DB()

	policy, err := commissions.PolicyFromConfig(d.cfg.Commission)
	if err != nil {
		return fmt.Errorf("commission policy: %w", err)
	}

	outboxSvc := outbox.NewService(outbox.NewRepository(conn), d.logg)
	usersRepo := users.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	commissionsRepo := commissions.NewRepository(conn)
	methodsRepo := paymentmethods.NewRepository(conn)

	if out.Auth, err = auth.NewService(auth.ServiceParams{
		Users:    usersRepo,
		Hasher:   security.NewHasher(d.cfg.Password),
		Tokens:   d.tokens,
		Sessions: d.sessions,
		Logger:   d.logg,
		Now:      now,
	}); err != nil {
		return fmt.Errorf("auth service: %w", err)
	}

	if out.Users, err = users.NewService(usersRepo); err != nil {
		return fmt.Errorf("users service: %w", err)
	}

	if out.Orders, err = orders.NewService(orders.ServiceParams{
		Repository: ordersRepo,
		Tx:         d.db,
		Outbox:     outboxSvc,
		Policy:     policy,
		Logger:     d.logg,
		Metrics:    d.metrics,
		Now:        now,
	}); err != nil {
		return fmt.Errorf("orders service: %w", err)
	}

	if out.Payments, err = payments.NewService(payments.ServiceParams{
		Repository:  payments.NewRepository(conn),
		Orders:      ordersRepo,
		Commissions: commissionsRepo,
		Tx:          d.db,
		Outbox:      outboxSvc,
		Policy:      policy,
		Logger:      d.logg,
		Metrics:     d.metrics,
		Now:         now,
	}); err != nil {
		return fmt.Errorf("payments service: %w", err)
	}

	if out.Commissions, err = commissions.NewService(commissions.ServiceParams{
		Repository: commissionsRepo,
		Tx:         d.db,
		Outbox:     outboxSvc,
		Logger:     d.logg,
		Metrics:    d.metrics,
		Now:        now,
	}); err != nil {
		return fmt.Errorf("commissions service: %w", err)
	}

	if out.PaymentMethods, err = paymentmethods.NewService(methodsRepo, now); err != nil {
		return fmt.Errorf("payment methods service: %w", err)
	}

	if out.Catalog, err = catalog.NewService(catalog.NewRepository(conn), now); err != nil {
		return fmt.Errorf("catalog service: %w", err)
	}

	if out.Reports, err = reports.NewService(reports.ServiceParams{
		Repository:  reports.NewRepository(conn),
		Commissions: commissionsRepo,
	}); err != nil {
		return fmt.Errorf("reports service: %w", err)
	}

	if out.Settings, err = settings.NewService(settings.ServiceParams{
		Repository: settings.NewRepository(conn),
		Methods:    methodsRepo,
		Now:        now,
	}); err != nil {
		return fmt.Errorf("settings service: %w", err)
	}

	return nil
}
