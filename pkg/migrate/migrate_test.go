package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestUpCreatesDocumentsTable(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "migrate.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	defer sqlDB.Close()

	if err := Up(context.Background(), sqlDB, enums.DocStoreDriverSQLite); err != nil {
		t.Fatalf("up: %v", err)
	}
	if !conn.Migrator().HasTable("documents") {
		t.Fatal("expected documents table after migrating up")
	}
	// idempotent
	if err := Up(context.Background(), sqlDB, enums.DocStoreDriverSQLite); err != nil {
		t.Fatalf("second up: %v", err)
	}
}

func TestDialect(t *testing.T) {
	if d, err := Dialect(enums.DocStoreDriverPostgres); err != nil || d != "postgres" {
		t.Fatalf("unexpected postgres dialect %q err=%v", d, err)
	}
	if d, err := Dialect(enums.DocStoreDriverSQLite); err != nil || d != "sqlite3" {
		t.Fatalf("unexpected sqlite dialect %q err=%v", d, err)
	}
	if _, err := Dialect(enums.DocStoreDriverMongo); err == nil {
		t.Fatal("mongo should not have a sql dialect")
	}
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Review Index")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_review_index.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if !strings.Contains(string(data), "-- +goose Up") || !strings.Contains(string(data), "-- +goose Down") {
		t.Fatalf("template missing goose markers: %s", data)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}
