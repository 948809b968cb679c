package controllers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const maxBatchItems = 100

type cartSessions interface {
	Get(ctx context.Context, sessionID string) *cart.Store
	Lookup(ctx context.Context, sessionID string) (*cart.Store, bool)
}

type productLookup interface {
	Get(ctx context.Context, id string) (*product.Product, error)
}

type totalsPreviewer interface {
	Preview(ctx context.Context, sessionID string, model enums.PricingModel) pricing.Totals
}

// CartDeps groups what the cart endpoints need.
type CartDeps struct {
	Carts    cartSessions
	Products productLookup
	Totals   totalsPreviewer
	Logger   *logger.Logger
}

type addItemRequest struct {
	ProductID string            `json:"product_id" validate:"required"`
	Variants  map[string]string `json:"variants"`
	Quantity  int               `json:"quantity" validate:"omitempty,min=1,max=999"`
}

type batchRequest struct {
	Items []addItemRequest `json:"items" validate:"required,min=1,max=100,dive"`
}

type quantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,max=999"`
}

type cartLineResponse struct {
	Key          string             `json:"key"`
	ProductID    string             `json:"product_id"`
	Name         string             `json:"name"`
	PricingModel enums.PricingModel `json:"pricing_model"`
	Variants     map[string]string  `json:"variants,omitempty"`
	Quantity     int                `json:"quantity"`
	UnitPrice    decimal.Decimal    `json:"unit_price"`
	LineTotal    decimal.Decimal    `json:"line_total"`
}

type cartResponse struct {
	SessionID string             `json:"session_id"`
	Version   uint64             `json:"version"`
	ItemCount int                `json:"item_count"`
	Items     []cartLineResponse `json:"items"`
	Totals    pricing.Totals     `json:"totals"`
}

func (d CartDeps) view(ctx context.Context, sessionID string, snap cart.Snapshot) cartResponse {
	items := make([]cartLineResponse, 0, len(snap.Items))
	for _, line := range snap.Items {
		unit := line.Product.UnitPrice()
		items = append(items, cartLineResponse{
			Key:          line.Key.String(),
			ProductID:    line.Product.ID,
			Name:         line.Product.Name,
			PricingModel: line.Product.PricingModel,
			Variants:     line.Variants,
			Quantity:     line.Quantity,
			UnitPrice:    pricing.Round(unit),
			LineTotal:    pricing.Round(unit.Mul(decimal.NewFromInt(int64(line.Quantity)))),
		})
	}
	return cartResponse{
		SessionID: sessionID,
		Version:   snap.Version,
		ItemCount: snap.ItemCount(),
		Items:     items,
		Totals:    d.Totals.Preview(ctx, sessionID, middleware.PricingModelFromContext(ctx)),
	}
}

// store returns the session cart, creating it. Only add paths use it.
func (d CartDeps) store(r *http.Request) (string, *cart.Store) {
	sessionID := middleware.SessionIDFromContext(r.Context())
	return sessionID, d.Carts.Get(r.Context(), sessionID)
}

// existing returns the session cart when one is held; store is nil otherwise.
func (d CartDeps) existing(r *http.Request) (string, *cart.Store) {
	sessionID := middleware.SessionIDFromContext(r.Context())
	store, _ := d.Carts.Lookup(r.Context(), sessionID)
	return sessionID, store
}

func (d CartDeps) respond(w http.ResponseWriter, r *http.Request, sessionID string, store *cart.Store) {
	var snap cart.Snapshot
	if store != nil {
		snap = store.Snapshot()
	}
	responses.WriteSuccess(w, d.view(r.Context(), sessionID, snap))
}

func GetCart(d CartDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, store := d.existing(r)
		d.respond(w, r, sessionID, store)
	}
}

// AddCartItem adds one unit of a product, or quantity units when given.
// Re-adding the same product and variants increments the existing line.
func AddCartItem(d CartDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}
		p, err := d.Products.Get(r.Context(), req.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}

		sessionID, store := d.store(r)
		if req.Quantity > 1 {
			store.AddBatch([]cart.BatchItem{{Product: *p, Variants: req.Variants, Quantity: req.Quantity}})
		} else {
			store.Add(*p, req.Variants)
		}
		d.respond(w, r, sessionID, store)
	}
}

// AddCartItems applies a whole batch as a single cart change. Unknown
// products fail the batch before anything is added.
func AddCartItems(d CartDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req batchRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}
		if len(req.Items) > maxBatchItems {
			responses.WriteError(r.Context(), d.Logger, w, pkgerrors.New(pkgerrors.CodeValidation, "too many items"))
			return
		}

		batch := make([]cart.BatchItem, 0, len(req.Items))
		for i, item := range req.Items {
			p, err := d.Products.Get(r.Context(), item.ProductID)
			if err != nil {
				if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
					err = typed.WithDetails(map[string]any{"index": i, "product_id": item.ProductID})
				}
				responses.WriteError(r.Context(), d.Logger, w, err)
				return
			}
			quantity := item.Quantity
			if quantity == 0 {
				quantity = 1
			}
			batch = append(batch, cart.BatchItem{Product: *p, Variants: item.Variants, Quantity: quantity})
		}

		sessionID, store := d.store(r)
		store.AddBatch(batch)
		d.respond(w, r, sessionID, store)
	}
}

// UpdateCartItem sets the quantity of a line; zero or less removes it.
func UpdateCartItem(d CartDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := itemKeyParam(r)
		if err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}
		var req quantityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}

		sessionID, store := d.existing(r)
		if store != nil {
			store.UpdateQuantity(key, *req.Quantity)
		}
		d.respond(w, r, sessionID, store)
	}
}

// RemoveCartItem is idempotent: unknown keys leave the cart as is.
func RemoveCartItem(d CartDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, err := itemKeyParam(r)
		if err != nil {
			responses.WriteError(r.Context(), d.Logger, w, err)
			return
		}
		sessionID, store := d.existing(r)
		if store != nil {
			store.Remove(key)
		}
		d.respond(w, r, sessionID, store)
	}
}

func ClearCart(d CartDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, store := d.existing(r)
		if store != nil {
			store.Clear()
		}
		d.respond(w, r, sessionID, store)
	}
}

func CartTotals(d CartDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionIDFromContext(r.Context())
		responses.WriteSuccess(w, d.Totals.Preview(r.Context(), sessionID, middleware.PricingModelFromContext(r.Context())))
	}
}

func itemKeyParam(r *http.Request) (cart.ItemKey, error) {
	raw, err := url.PathUnescape(chi.URLParam(r, "itemKey"))
	if err != nil {
		return cart.ItemKey{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item key")
	}
	key, err := cart.ParseItemKey(raw)
	if err != nil {
		return cart.ItemKey{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item key")
	}
	return key, nil
}
