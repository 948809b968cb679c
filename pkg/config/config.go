package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/env"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App        AppConfig
	Store      StoreConfig
	DocStore   DocStoreConfig
	DB         DBConfig
	Mongo      MongoConfig
	Redis      RedisConfig
	JWT        JWTConfig
	GCP        GCPConfig
	PubSub     PubSubConfig
	WriteQueue WriteQueueConfig
	Sync       SyncConfig
	Eventing   EventingConfig
}

// MissingError lists configuration values that must be provided before the
// service can take traffic.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Keys, ", "))
}

func (e *MissingError) MissingKeys() []string {
	return append([]string(nil), e.Keys...)
}

func Load() (*Config, error) {
	if missing := env.Missing(requiredEnvVars...); len(missing) > 0 {
		return nil, &MissingError{Keys: missing}
	}

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	driver, err := enums.ParseDocStoreDriver(c.DocStore.Driver)
	if err != nil {
		return fmt.Errorf("%s: %w", EnvDocStoreDriver, err)
	}

	switch driver {
	case enums.DocStoreDriverPostgres:
		if err := c.DB.ensureDSN(); err != nil {
			return err
		}
	case enums.DocStoreDriverMongo:
		if strings.TrimSpace(c.Mongo.URI) == "" {
			return &MissingError{Keys: []string{EnvMongoURI}}
		}
	}

	if c.Store.TaxRate.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvStoreTaxRate)
	}
	if c.Store.B2BMinimumOrder.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvStoreB2BMinimumOrder)
	}
	if c.WriteQueue.Workers <= 0 {
		return fmt.Errorf("%s must be positive", EnvWriteQueueWorkers)
	}
	if c.WriteQueue.MaxAttempts <= 0 {
		return fmt.Errorf("%s must be positive", EnvWriteQueueAttempts)
	}
	return nil
}

type AppConfig struct {
	Env                 string        `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port                string        `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	ServiceName         string        `envconfig:"STOREFRONT_SERVICE_NAME" default:"storefront-api"`
	LogLevel            string        `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack        bool          `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	CORSAllowedOrigins  []string      `envconfig:"STOREFRONT_CORS_ALLOWED_ORIGINS" default:"*"`
	ShutdownGracePeriod time.Duration `envconfig:"STOREFRONT_SHUTDOWN_GRACE_PERIOD" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// StoreConfig seeds the store settings used by the pricing engine.
type StoreConfig struct {
	Currency            string          `envconfig:"STOREFRONT_STORE_CURRENCY" default:"USD"`
	TaxEnabled          bool            `envconfig:"STOREFRONT_STORE_TAX_ENABLED" default:"false"`
	TaxRate             decimal.Decimal `envconfig:"STOREFRONT_STORE_TAX_RATE" default:"0"`
	FlatShippingRate    decimal.Decimal `envconfig:"STOREFRONT_STORE_FLAT_SHIPPING_RATE" default:"0"`
	AdditionalFeeName   string          `envconfig:"STOREFRONT_STORE_ADDITIONAL_FEE_NAME"`
	AdditionalFeeAmount decimal.Decimal `envconfig:"STOREFRONT_STORE_ADDITIONAL_FEE_AMOUNT" default:"0"`
	B2BMinimumOrder     decimal.Decimal `envconfig:"STOREFRONT_STORE_B2B_MINIMUM_ORDER" default:"15000"`
	AllowOverrides      bool            `envconfig:"STOREFRONT_STORE_SETTINGS_OVERRIDES" default:"true"`
}

type DocStoreConfig struct {
	Driver      string `envconfig:"STOREFRONT_DOCSTORE_DRIVER" default:"sqlite"`
	AutoMigrate bool   `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"true"`
}

type DBConfig struct {
	DSN        string `envconfig:"STOREFRONT_DB_DSN"`
	SQLitePath string `envconfig:"STOREFRONT_SQLITE_PATH" default:"file:storefront.db?cache=shared&_pragma=foreign_keys(1)"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type MongoConfig struct {
	URI            string        `envconfig:"STOREFRONT_MONGO_URI"`
	Database       string        `envconfig:"STOREFRONT_MONGO_DATABASE" default:"storefront"`
	ConnectTimeout time.Duration `envconfig:"STOREFRONT_MONGO_CONNECT_TIMEOUT" default:"10s"`
}

// RedisConfig is optional. Without a URL carts stay in process memory and
// idempotent replay is disabled.
type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"STOREFRONT_REDIS_KEY_PREFIX" default:"storefront"`
	CartTTL      time.Duration `envconfig:"STOREFRONT_REDIS_CART_TTL" default:"168h"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"STOREFRONT_JWT_ISSUER"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"STOREFRONT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"STOREFRONT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"STOREFRONT_PUBSUB_ORDERS_TOPIC" default:"storefront-orders"`
}

// Enabled reports whether order events should be published.
func (p PubSubConfig) Enabled(gcp GCPConfig) bool {
	return strings.TrimSpace(gcp.ProjectID) != "" && strings.TrimSpace(p.OrdersTopic) != ""
}

type WriteQueueConfig struct {
	Workers     int           `envconfig:"STOREFRONT_WRITE_QUEUE_WORKERS" default:"4"`
	Capacity    int           `envconfig:"STOREFRONT_WRITE_QUEUE_CAPACITY" default:"256"`
	MaxAttempts int           `envconfig:"STOREFRONT_WRITE_QUEUE_MAX_ATTEMPTS" default:"5"`
	BaseBackoff time.Duration `envconfig:"STOREFRONT_WRITE_QUEUE_BASE_BACKOFF" default:"500ms"`
	MaxBackoff  time.Duration `envconfig:"STOREFRONT_WRITE_QUEUE_MAX_BACKOFF" default:"30s"`
	Jitter      time.Duration `envconfig:"STOREFRONT_WRITE_QUEUE_JITTER" default:"250ms"`
}

type SyncConfig struct {
	PollInterval time.Duration `envconfig:"STOREFRONT_SYNC_POLL_INTERVAL" default:"5s"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"STOREFRONT_IDEMPOTENCY_TTL" default:"24h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, key := range legacyDBEnvVars {
		if legacyValues[key] == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return &MissingError{Keys: append([]string{EnvDBDSN}, missing...)}
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
