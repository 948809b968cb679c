package config

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("expected App.Env to be production, got %q", cfg.App.Env)
	}
	if cfg.DocStore.Driver != "sqlite" {
		t.Fatalf("expected sqlite default driver, got %q", cfg.DocStore.Driver)
	}
	if !cfg.Store.B2BMinimumOrder.Equal(decimal.NewFromInt(15000)) {
		t.Fatalf("expected default b2b minimum 15000, got %s", cfg.Store.B2BMinimumOrder)
	}
	if cfg.WriteQueue.MaxAttempts != 5 {
		t.Fatalf("expected 5 write attempts, got %d", cfg.WriteQueue.MaxAttempts)
	}
	if cfg.Sync.PollInterval != 5*time.Second {
		t.Fatalf("expected 5s poll interval, got %v", cfg.Sync.PollInterval)
	}
	if cfg.Redis.Enabled() {
		t.Fatalf("redis should be disabled without a url")
	}
	if cfg.PubSub.Enabled(cfg.GCP) {
		t.Fatalf("pubsub should be disabled without a project")
	}
}

func TestLoad_StoreSettings(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvStoreTaxEnabled, "true")
	t.Setenv(EnvStoreTaxRate, "18")
	t.Setenv(EnvStoreFlatShipping, "5.00")
	t.Setenv(EnvStoreFeeName, "Handling")
	t.Setenv(EnvStoreFeeAmount, "2.50")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if !cfg.Store.TaxEnabled || !cfg.Store.TaxRate.Equal(decimal.NewFromInt(18)) {
		t.Fatalf("unexpected tax settings %+v", cfg.Store)
	}
	if cfg.Store.AdditionalFeeName != "Handling" || cfg.Store.AdditionalFeeAmount.String() != "2.5" {
		t.Fatalf("unexpected fee settings %+v", cfg.Store)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAppEnv); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAppEnv, err)
	}
	if err := os.Unsetenv(EnvJWTSecret); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvJWTSecret, err)
	}

	_, err := Load()
	var missing *MissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingError, got %v", err)
	}
	if len(missing.Keys) != 2 || missing.Keys[0] != EnvAppEnv || missing.Keys[1] != EnvJWTSecret {
		t.Fatalf("unexpected missing keys %v", missing.Keys)
	}
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvDocStoreDriver, "postgres")

	_, err := Load()
	var missing *MissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingError, got %v", err)
	}

	t.Setenv(EnvDBHost, "localhost")
	t.Setenv(EnvDBUser, "store")
	t.Setenv(EnvDBName, "storefront")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.DB.DSN != "postgres://store@localhost:5432/storefront?sslmode=disable" {
		t.Fatalf("unexpected legacy dsn %q", cfg.DB.DSN)
	}
}

func TestLoad_MongoRequiresURI(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvDocStoreDriver, "mongo")
	if _, err := Load(); err == nil {
		t.Fatal("expected missing mongo uri error")
	}
	t.Setenv(EnvMongoURI, "mongodb://localhost:27017")
	if _, err := Load(); err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvDocStoreDriver, "cassandra")
	if _, err := Load(); err == nil {
		t.Fatal("expected unknown driver error")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "production")
	t.Setenv(EnvPort, "8081")
	t.Setenv(EnvJWTSecret, "secret")
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	prodConfig := AppConfig{Env: "prod"}
	if !prodConfig.IsProd() {
		t.Fatalf("expected IsProd true for %q", prodConfig.Env)
	}
}
