package orders

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/docstore"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const maxListLimit = 100

// Service defines order reads and the status lifecycle.
type Service interface {
	Get(ctx context.Context, userID, orderID string) (*Order, error)
	List(ctx context.Context, userID string, limit int) ([]Order, error)
	Save(ctx context.Context, order Order) error
	UpdateStatus(ctx context.Context, userID, orderID string, status enums.OrderStatus) (*Order, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	notifier StatusNotifier
}

// NewService builds the order service. notifier may be nil.
func NewService(repo Repository, tx txRunner, notifier StatusNotifier) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, notifier: notifier}, nil
}

func (s *service) Get(ctx context.Context, userID, orderID string) (*Order, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.Find(ctx, userID, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// List returns the user's orders, newest first.
func (s *service) List(ctx context.Context, userID string, limit int) ([]Order, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	list, err := s.repo.List(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

// Save persists an order snapshot. Called from background write jobs.
func (s *service) Save(ctx context.Context, order Order) error {
	if order.ID == "" || order.UserID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id and user id are required")
	}
	if order.Status == "" {
		order.Status = enums.OrderStatusProcessing
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}
	if err := s.repo.Save(ctx, order); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save order")
	}
	return nil
}

// UpdateStatus moves an order forward through processing → shipped → delivered.
func (s *service) UpdateStatus(ctx context.Context, userID, orderID string, status enums.OrderStatus) (*Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status").
			WithDetails(map[string]any{"status": status})
	}

	var updated *Order
	err := s.tx.RunInTx(ctx, func(ctx context.Context, tx docstore.Tx) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.Find(ctx, userID, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if !order.Status.CanTransitionTo(status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status cannot move backwards").
				WithDetails(map[string]any{"from": order.Status, "to": status})
		}
		if err := repo.UpdateStatus(ctx, userID, orderID, status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = status
		order.UpdatedAt = time.Now().UTC()
		updated = order
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.OrderStatusChanged(ctx, *updated)
	}
	return updated, nil
}
