package notifications

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/google/uuid"
)

const defaultListLimit = 50

// Service defines notification list/read operations.
type Service interface {
	Notify(ctx context.Context, userID string, n Notification) (*Notification, error)
	List(ctx context.Context, params ListParams) ([]Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	// OrderStatusChanged lets the order service report fulfillment updates.
	OrderStatusChanged(ctx context.Context, order orders.Order)
}

// ListParams narrows a notification listing.
type ListParams struct {
	UserID     string
	Limit      int
	UnreadOnly bool
}

type repository interface {
	Create(ctx context.Context, userID string, n Notification) error
	Find(ctx context.Context, userID, id string) (*Notification, error)
	List(ctx context.Context, userID string, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, userID, id string, update readUpdate) error
}

type service struct {
	repo repository
	logg *logger.Logger
	now  func() time.Time
}

// NewService wires notifications dependencies.
func NewService(repo repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) Notify(ctx context.Context, userID string, n Notification) (*Notification, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !n.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid notification kind").
			WithDetails(map[string]any{"kind": n.Kind})
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	n.Title = strings.TrimSpace(n.Title)
	n.Message = strings.TrimSpace(n.Message)

	logCtx := s.logg.WithFields(s.logg.WithUserID(ctx, userID), map[string]any{
		"notification_id":   n.ID,
		"notification_kind": string(n.Kind),
		"reference":         n.Reference,
	})
	if err := s.repo.Create(ctx, userID, n); err != nil {
		s.logg.Error(logCtx, "notification persist failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create notification")
	}
	s.logg.Info(logCtx, "user notified")
	return &n, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]Notification, error) {
	if strings.TrimSpace(params.UserID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	limit := params.Limit
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	items, err := s.repo.List(ctx, params.UserID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	if !params.UnreadOnly {
		return items, nil
	}
	unread := items[:0]
	for _, n := range items {
		if !n.Read {
			unread = append(unread, n)
		}
	}
	return unread, nil
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID string) error {
	if strings.TrimSpace(notificationID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	existing, err := s.repo.Find(ctx, userID, notificationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load notification")
	}
	if existing == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	if existing.Read {
		return nil
	}
	if err := s.repo.MarkRead(ctx, userID, notificationID, readUpdate{Read: true, ReadAt: s.now()}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	return nil
}

func (s *service) OrderStatusChanged(ctx context.Context, order orders.Order) {
	_, err := s.Notify(ctx, order.UserID, Notification{
		Kind:      enums.NotificationKindOrderStatus,
		Title:     "Order " + string(order.Status),
		Message:   fmt.Sprintf("Order %s is now %s.", order.ID, order.Status),
		Reference: order.ID,
		Link:      "/api/v1/orders/" + order.ID,
	})
	if err != nil {
		s.logg.Warn(s.logg.WithOrderID(ctx, order.ID), "order status notification dropped")
	}
}
