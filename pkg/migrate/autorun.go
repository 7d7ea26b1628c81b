package migrate

import (
	"context"
	"fmt"

	"github.com/ethoparts/marketplace-backend/pkg/config"
	"github.com/ethoparts/marketplace-backend/pkg/db"
	"github.com/ethoparts/marketplace-backend/pkg/logger"
)

// autoRunReason explains why boot-time migrations apply, or returns "" when
// they should be left to the migrate binary.
func autoRunReason(cfg *config.Config) string {
	switch {
	case cfg.FeatureFlags.UseSQLite:
		return "sqlite"
	case cfg.App.IsDev() && cfg.FeatureFlags.AutoMigrate:
		return "dev_auto_migrate"
	default:
		return ""
	}
}

// MaybeRunDev applies the embedded migrations at boot for local SQLite runs
// and for dev environments with auto-migrate enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	reason := autoRunReason(cfg)
	if reason == "" {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	dialect := DialectFor(client.Dialect())
	ctx = logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"dialect": dialect,
		"reason":  reason,
	})
	logg.Info(ctx, "applying embedded migrations")
	if err := UpEmbedded(ctx, sqlDB, dialect); err != nil {
		return fmt.Errorf("applying embedded migrations: %w", err)
	}
	logg.Info(ctx, "embedded migrations applied")
	return nil
}
