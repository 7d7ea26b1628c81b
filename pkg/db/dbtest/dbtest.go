// Package dbtest opens throwaway SQLite databases carrying the real schema.
package dbtest

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ethoparts/marketplace-backend/pkg/db"
	"github.com/ethoparts/marketplace-backend/pkg/migrate"
)

// New returns a client over a private in-memory database with every
// migration applied. The pool is pinned to one connection because each
// SQLite memory connection is its own database.
func New(t *testing.T) *db.Client {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := migrate.UpEmbedded(context.Background(), sqlDB, migrate.DialectSQLite); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db.NewFromConn(conn)
}
