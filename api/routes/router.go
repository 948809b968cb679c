package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/docsync"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/settings"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Deps is everything the HTTP surface is built from. Idempotency and Metrics
// are optional.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	Health        map[string]controllers.Pinger
	Metrics       prometheus.Gatherer
	Idempotency   pkgredis.IdempotencyStore
	Documents     docsync.Source
	Settings      *settings.Provider
	Carts         *cart.Registry
	Products      product.Service
	Checkout      checkout.Service
	Orders        orders.Service
	Addresses     address.Service
	Notifications notifications.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSAllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Health))
	})

	gatherer := d.Metrics
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	requireAuth := middleware.Auth(cfg.JWT, logg)
	idempotent := middleware.Idempotency(d.Idempotency, cfg.Eventing.IdempotencyTTL, logg)
	syncOpts := docsync.Options{PollInterval: cfg.Sync.PollInterval, Logger: logg}
	cartDeps := controllers.CartDeps{
		Carts:    d.Carts,
		Products: d.Products,
		Totals:   d.Checkout,
		Logger:   logg,
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(logg))

		r.Get("/settings", controllers.GetSettings(d.Settings))

		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))
			r.Use(idempotent)

			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.ListProducts(d.Products, logg))
				r.Get("/{productId}", controllers.GetProduct(d.Products, logg))
				r.Get("/{productId}/reviews", controllers.ListProductReviews(d.Products, logg))
				r.With(requireAuth).Post("/{productId}/reviews", controllers.AddProductReview(d.Products, logg))
			})

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.GetCart(cartDeps))
				r.Delete("/", controllers.ClearCart(cartDeps))
				r.Get("/totals", controllers.CartTotals(cartDeps))
				r.Post("/items", controllers.AddCartItem(cartDeps))
				r.Post("/items/batch", controllers.AddCartItems(cartDeps))
				r.Patch("/items/{itemKey}", controllers.UpdateCartItem(cartDeps))
				r.Delete("/items/{itemKey}", controllers.RemoveCartItem(cartDeps))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(idempotent)

			r.Post("/checkout", controllers.PlaceOrder(d.Checkout, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.ListOrders(d.Orders, logg))
				r.Get("/{orderId}", controllers.GetOrder(d.Orders, d.Checkout, logg))
				r.Get("/{orderId}/watch", controllers.WatchOrder(d.Documents, syncOpts, logg))
			})

			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", controllers.ListAddresses(d.Addresses, logg))
				r.Post("/", controllers.CreateAddress(d.Addresses, logg))
				r.Get("/watch", controllers.WatchAddresses(d.Documents, syncOpts, logg))
				r.Get("/{addressId}", controllers.GetAddress(d.Addresses, logg))
				r.Put("/{addressId}", controllers.UpdateAddress(d.Addresses, logg))
				r.Delete("/{addressId}", controllers.DeleteAddress(d.Addresses, logg))
				r.Post("/{addressId}/default", controllers.SetDefaultAddress(d.Addresses, logg))
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(d.Notifications, logg))
				r.Post("/{notificationId}/read", controllers.MarkNotificationRead(d.Notifications, logg))
			})
		})
	})

	return r
}
