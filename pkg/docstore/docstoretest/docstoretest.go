// Package docstoretest opens throwaway sqlite-backed document stores for tests.
package docstoretest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/docstore/sqlstore"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// New returns a migrated sqlite store in the test's temp dir, closed on cleanup.
func New(t testing.TB) *sqlstore.Store {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "docs.db")), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := migrate.Up(context.Background(), sqlDB, enums.DocStoreDriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store, err := sqlstore.New(db.NewFromGorm(conn, enums.DocStoreDriverSQLite))
	if err != nil {
		t.Fatalf("sqlstore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}
