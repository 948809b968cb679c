package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/docsync"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/settings"
	"github.com/angelmondragon/storefront-backend/internal/writequeue"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/docstore"
	"github.com/angelmondragon/storefront-backend/pkg/docstore/mongostore"
	"github.com/angelmondragon/storefront-backend/pkg/docstore/sqlstore"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/env"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/pubsub"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const (
	defaultPort       = "8080"
	cartSweepInterval = 10 * time.Minute
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		serveConfigurationError(logg, err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: cfg.App.ServiceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openDocStore(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap document store", err)
		os.Exit(1)
	}
	health := map[string]controllers.Pinger{"docstore": store}
	closers := []func() error{func() error { return store.Close(context.Background()) }}

	registryOpts := cart.RegistryOptions{IdleTTL: cfg.Redis.CartTTL, Logger: logg}
	deps := routes.Deps{Config: cfg, Logger: logg, Documents: store}
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		closers = append(closers, redisClient.Close)
		health["redis"] = redisClient

		snapshots, err := cart.NewRedisSnapshotStore(redisClient, cfg.Redis.CartTTL)
		if err != nil {
			logg.Error(ctx, "failed to create cart snapshot store", err)
			os.Exit(1)
		}
		registryOpts.Snapshots = snapshots
		deps.Idempotency = redisClient
	} else {
		logg.Warn(ctx, "redis disabled: carts are kept in memory and idempotent replay is off")
	}

	carts := cart.NewRegistry(registryOpts)
	go carts.Run(ctx, cartSweepInterval)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	queueOpts := writequeue.OptionsFromConfig(cfg.WriteQueue)
	queueOpts.Logger = logg
	queueOpts.Metrics = metrics.NewWriteQueueMetrics(registry)
	queue := writequeue.New(queueOpts)
	queue.Start(ctx)

	notificationSvc, err := notifications.NewService(notifications.NewRepository(store), logg)
	if err != nil {
		logg.Error(ctx, "failed to create notifications service", err)
		os.Exit(1)
	}
	orderSvc, err := orders.NewService(orders.NewRepository(store), store, notificationSvc)
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}
	addressSvc, err := address.NewService(address.NewRepository(store), store)
	if err != nil {
		logg.Error(ctx, "failed to create address service", err)
		os.Exit(1)
	}
	productSvc, err := product.NewService(product.NewRepository(store))
	if err != nil {
		logg.Error(ctx, "failed to create product service", err)
		os.Exit(1)
	}

	base, err := settings.FromConfig(cfg.Store)
	if err != nil {
		logg.Error(ctx, "invalid store settings", err)
		os.Exit(1)
	}
	storeSettings := settings.Static(base)
	if cfg.Store.AllowOverrides {
		storeSettings = settings.NewProvider(base, store, logg)
	}

	writer, err := docsync.NewWriter(queue, notificationSvc, logg)
	if err != nil {
		logg.Error(ctx, "failed to create document writer", err)
		os.Exit(1)
	}

	params := checkout.ServiceParams{
		Carts:     carts,
		Settings:  storeSettings,
		Addresses: addressSvc,
		Orders:    orderSvc,
		Writer:    writer,
		Notifier:  notificationSvc,
		Logger:    logg,
	}
	if cfg.PubSub.Enabled(cfg.GCP) {
		events, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		closers = append(closers, events.Close)
		health["pubsub"] = events
		params.Events = events
	}
	checkoutSvc, err := checkout.NewService(params)
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		os.Exit(1)
	}

	deps.Health = health
	deps.Metrics = registry
	deps.Settings = storeSettings
	deps.Carts = carts
	deps.Products = productSvc
	deps.Checkout = checkoutSvc
	deps.Orders = orderSvc
	deps.Addresses = addressSvc
	deps.Notifications = notificationSvc

	addr := ":" + listenPort(cfg.App.Port)
	id := env.Get("DYNO", "local")
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
		"docstore": cfg.DocStore.Driver,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case err := <-serveErr:
		logg.Error(logCtx, "api server stopped unexpectedly", err)
		exitCode = 1
	case <-ctx.Done():
		logg.Info(logCtx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownGracePeriod)
	defer cancel()

	// Drain HTTP first so no new writes are queued, then flush the queue
	// before the stores it writes to are closed.
	shutdownErr := server.Shutdown(shutdownCtx)
	shutdownErr = multierr.Append(shutdownErr, queue.Shutdown(shutdownCtx))
	for i := len(closers) - 1; i >= 0; i-- {
		shutdownErr = multierr.Append(shutdownErr, closers[i]())
	}
	if shutdownErr != nil {
		logg.Error(logCtx, "unclean shutdown", shutdownErr)
		exitCode = 1
	}
	logg.Info(logCtx, "api server stopped")
	os.Exit(exitCode)
}

func openDocStore(ctx context.Context, cfg *config.Config, logg *logger.Logger) (docstore.Store, error) {
	driver, err := enums.ParseDocStoreDriver(cfg.DocStore.Driver)
	if err != nil {
		return nil, err
	}

	if driver == enums.DocStoreDriverMongo {
		store, err := mongostore.Connect(ctx, cfg.Mongo, logg)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
		return store, nil
	}

	client, err := db.New(ctx, driver, cfg.DB, logg)
	if err != nil {
		return nil, err
	}
	if err := migrate.MaybeRun(ctx, cfg, logg, client); err != nil {
		_ = client.Close()
		return nil, err
	}
	store, err := sqlstore.New(client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return store, nil
}

// serveConfigurationError keeps the process answering so the platform shows
// which settings are missing instead of a crash loop.
func serveConfigurationError(logg *logger.Logger, cause error) {
	addr := ":" + listenPort(env.Get(config.EnvPort, ""))
	server := &http.Server{
		Addr:              addr,
		Handler:           responses.ConfigurationError(logg, cause),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logg.Warn(context.Background(), "serving configuration error on "+addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(context.Background(), "configuration error server stopped", err)
	}
}

// listenPort prefers the platform-assigned PORT.
func listenPort(configured string) string {
	if configured == "" {
		configured = defaultPort
	}
	return env.Get("PORT", configured)
}
