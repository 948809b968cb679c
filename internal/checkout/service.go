package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/address"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/docsync"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/pricing"
	"github.com/angelmondragon/storefront-backend/internal/settings"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated = "order.created"

	jobKindOrder      = "order"
	jobKindOrderEvent = "order_event"
)

// Precondition failure reasons, returned in VALIDATION_ERROR details.
const (
	ReasonSignInRequired  = "sign_in_required"
	ReasonAddressRequired = "address_required"
	ReasonAddressNotFound = "address_not_found"
	ReasonCartEmpty       = "cart_empty"
	ReasonMinimumNotMet   = "minimum_order_not_met"
)

type cartSource interface {
	Lookup(ctx context.Context, sessionID string) (*cart.Store, bool)
}

type settingsSource interface {
	Current(ctx context.Context) settings.StoreSettings
}

type addressLoader interface {
	Get(ctx context.Context, userID, id string) (*address.Address, error)
}

type orderSaver interface {
	Save(ctx context.Context, order orders.Order) error
}

type writeSubmitter interface {
	Submit(ctx context.Context, write docsync.Write) error
	Pending(key string) bool
}

type eventPublisher interface {
	PublishOrderEvent(ctx context.Context, eventType, orderID string, payload any) (string, error)
}

type placedNotifier interface {
	Notify(ctx context.Context, userID string, n notifications.Notification) (*notifications.Notification, error)
}

// Service assembles orders from the session cart.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*Receipt, error)
	Preview(ctx context.Context, sessionID string, model enums.PricingModel) pricing.Totals
	// Pending reports whether the order write is still queued.
	Pending(userID, orderID string) bool
}

// PlaceOrderInput carries the caller's identity and choices. Attempt is
// optional; pass one to observe state transitions.
type PlaceOrderInput struct {
	UserID       string
	SessionID    string
	AddressID    string
	PricingModel enums.PricingModel
	Attempt      *Attempt
}

// Receipt is returned once the order has been handed to the write queue.
type Receipt struct {
	OrderID         string              `json:"order_id"`
	TransactionID   string              `json:"transaction_id"`
	Totals          pricing.Totals      `json:"totals"`
	State           enums.CheckoutState `json:"state"`
	ConfirmationURL string              `json:"confirmation_url"`
}

// ServiceParams groups checkout dependencies. Events and Notifier are optional.
type ServiceParams struct {
	Carts     cartSource
	Settings  settingsSource
	Addresses addressLoader
	Orders    orderSaver
	Writer    writeSubmitter
	Events    eventPublisher
	Notifier  placedNotifier
	Logger    *logger.Logger
}

type service struct {
	carts     cartSource
	settings  settingsSource
	addresses addressLoader
	orders    orderSaver
	writer    writeSubmitter
	events    eventPublisher
	notifier  placedNotifier
	logg      *logger.Logger
	now       func() time.Time
	newID     func() string
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Carts == nil {
		return nil, fmt.Errorf("cart registry required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings provider required")
	}
	if params.Addresses == nil {
		return nil, fmt.Errorf("address loader required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order saver required")
	}
	if params.Writer == nil {
		return nil, fmt.Errorf("document writer required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		carts:     params.Carts,
		settings:  params.Settings,
		addresses: params.Addresses,
		orders:    params.Orders,
		writer:    params.Writer,
		events:    params.Events,
		notifier:  params.Notifier,
		logg:      params.Logger,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}, nil
}

func (s *service) Preview(ctx context.Context, sessionID string, model enums.PricingModel) pricing.Totals {
	var snap cart.Snapshot
	if store, ok := s.carts.Lookup(ctx, sessionID); ok {
		snap = store.Snapshot()
	}
	lines := pricing.LinesFromCart(snap)
	return pricing.Compute(lines, s.settings.Current(ctx), pricing.ActiveModel(model, lines)).Display()
}

func (s *service) Pending(userID, orderID string) bool {
	return s.writer.Pending(orders.DocumentPath(userID, orderID))
}

func precondition(reason, message string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	details["reason"] = reason
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(details)
}

// PlaceOrder checks the preconditions, takes the cart contents into an order
// and queues the write. It returns before the order is persisted. Items added
// while the order is being queued stay in the cart.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*Receipt, error) {
	attempt := input.Attempt
	if attempt == nil {
		attempt = NewAttempt()
	}
	if state := attempt.State(); state != enums.CheckoutStateIdle {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already being placed").
			WithDetails(map[string]any{"state": state})
	}

	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, precondition(ReasonSignInRequired, "sign in to place an order", nil)
	}
	addressID := strings.TrimSpace(input.AddressID)
	if addressID == "" {
		return nil, precondition(ReasonAddressRequired, "select a shipping address", nil)
	}

	store, ok := s.carts.Lookup(ctx, input.SessionID)
	if !ok || store.Snapshot().IsEmpty() {
		return nil, precondition(ReasonCartEmpty, "your cart is empty", nil)
	}
	if _, err := s.price(ctx, store.Snapshot(), input.PricingModel); err != nil {
		return nil, err
	}

	addr, err := s.addresses.Get(ctx, userID, addressID)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return nil, precondition(ReasonAddressNotFound, "shipping address not found", map[string]any{"address_id": addressID})
		}
		return nil, err
	}

	if err := attempt.begin(); err != nil {
		return nil, err
	}

	// The order is built only from what Take removed, so a concurrent
	// checkout of the same cart finds it empty.
	taken := store.Take()
	if taken.IsEmpty() {
		attempt.abort()
		return nil, precondition(ReasonCartEmpty, "your cart is empty", nil)
	}
	totals, err := s.price(ctx, taken, input.PricingModel)
	if err != nil {
		store.PutBack(taken)
		attempt.abort()
		return nil, err
	}

	order := s.assemble(userID, addr, taken, totals)
	logCtx := s.logg.WithFields(s.logg.WithOrderID(s.logg.WithUserID(ctx, userID), order.ID), map[string]any{
		"session_id":     input.SessionID,
		"transaction_id": order.TransactionID,
		"grand_total":    order.GrandTotal.String(),
	})

	if err := s.writer.Submit(ctx, s.orderWrite(order)); err != nil {
		store.PutBack(taken)
		attempt.abort()
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order could not be queued")
	}

	attempt.complete()
	s.logg.Info(logCtx, "order submitted")

	return &Receipt{
		OrderID:         order.ID,
		TransactionID:   order.TransactionID,
		Totals:          totals,
		State:           attempt.State(),
		ConfirmationURL: "/api/v1/orders/" + order.ID,
	}, nil
}

// price returns display totals for snap, or the minimum-order precondition
// error when a business checkout falls short.
func (s *service) price(ctx context.Context, snap cart.Snapshot, requested enums.PricingModel) (pricing.Totals, error) {
	lines := pricing.LinesFromCart(snap)
	model := pricing.ActiveModel(requested, lines)
	totals := pricing.Compute(lines, s.settings.Current(ctx), model).Display()
	if totals.CheckoutBlocked {
		return totals, precondition(ReasonMinimumNotMet, "order is below the business minimum", map[string]any{
			"shortfall":     totals.Shortfall.StringFixed(pricing.DisplayPlaces),
			"minimum_order": totals.MinimumOrder.StringFixed(pricing.DisplayPlaces),
			"subtotal":      totals.Subtotal.StringFixed(pricing.DisplayPlaces),
		})
	}
	return totals, nil
}

func (s *service) assemble(userID string, addr *address.Address, snap cart.Snapshot, totals pricing.Totals) orders.Order {
	items := make([]orders.LineItem, 0, len(snap.Items))
	for _, line := range snap.Items {
		unit := line.Product.UnitPrice()
		items = append(items, orders.LineItem{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			Variants:  line.Variants,
			Quantity:  line.Quantity,
			UnitPrice: pricing.Round(unit),
			LineTotal: pricing.Round(unit.Mul(decimal.NewFromInt(int64(line.Quantity)))),
		})
	}

	now := s.now()
	id := s.newID()
	return orders.Order{
		ID:              id,
		TransactionID:   "txn_" + strings.ReplaceAll(s.newID(), "-", ""),
		UserID:          userID,
		Status:          enums.OrderStatusProcessing,
		Currency:        totals.Currency,
		PricingModel:    totals.PricingModel,
		Subtotal:        totals.Subtotal,
		Tax:             totals.Tax,
		Shipping:        totals.Shipping,
		Fee:             totals.Fee,
		FeeName:         totals.FeeName,
		GrandTotal:      totals.GrandTotal,
		AddressID:       addr.ID,
		ShippingAddress: addr.Address,
		Items:           items,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (s *service) orderWrite(order orders.Order) docsync.Write {
	return docsync.Write{
		UserID: order.UserID,
		Key:    orders.DocumentPath(order.UserID, order.ID),
		Kind:   jobKindOrder,
		Fields: map[string]any{"order_id": order.ID},
		Run: func(ctx context.Context) error {
			if err := s.orders.Save(ctx, order); err != nil {
				return err
			}
			s.afterSave(ctx, order)
			return nil
		},
		Failure: notifications.Notification{
			Kind:      enums.NotificationKindOrderWriteFailed,
			Title:     "Order not saved",
			Message:   fmt.Sprintf("We could not save order %s. You have not been charged; please place it again.", order.ID),
			Reference: order.ID,
		},
	}
}

func (s *service) afterSave(ctx context.Context, order orders.Order) {
	if s.notifier != nil {
		_, err := s.notifier.Notify(ctx, order.UserID, notifications.Notification{
			Kind:      enums.NotificationKindOrderPlaced,
			Title:     "Order placed",
			Message:   fmt.Sprintf("Order %s for %s %s is processing.", order.ID, order.GrandTotal.StringFixed(pricing.DisplayPlaces), order.Currency),
			Reference: order.ID,
			Link:      "/api/v1/orders/" + order.ID,
		})
		if err != nil {
			s.logg.Warn(s.logg.WithOrderID(ctx, order.ID), "order placed notification dropped")
		}
	}
	if s.events == nil {
		return
	}
	// Published from a separate job; its retries never re-run Save.
	err := s.writer.Submit(ctx, docsync.Write{
		Key:    "events/" + order.ID,
		Kind:   jobKindOrderEvent,
		Fields: map[string]any{"order_id": order.ID},
		Run: func(ctx context.Context) error {
			_, err := s.events.PublishOrderEvent(ctx, EventOrderCreated, order.ID, order)
			return err
		},
	})
	if err != nil {
		s.logg.Error(s.logg.WithOrderID(ctx, order.ID), "order event not queued", err)
	}
}
