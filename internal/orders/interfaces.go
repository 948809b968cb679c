package orders

import (
	"context"

	"github.com/angelmondragon/storefront-backend/pkg/docstore"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Repository defines persistence operations for user orders.
type Repository interface {
	WithTx(tx docstore.Tx) Repository
	Find(ctx context.Context, userID, orderID string) (*Order, error)
	List(ctx context.Context, userID string, limit int) ([]Order, error)
	Save(ctx context.Context, order Order) error
	UpdateStatus(ctx context.Context, userID, orderID string, status enums.OrderStatus) error
}

type txRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error
}

// StatusNotifier is told about status transitions.
type StatusNotifier interface {
	OrderStatusChanged(ctx context.Context, order Order)
}
