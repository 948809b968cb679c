package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/docstore"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

const (
	collectionUsers  = "users"
	collectionOrders = "orders"
)

type documents interface {
	docstore.Reader
	docstore.Writer
}

type repository struct {
	docs documents
	now  func() time.Time
}

// NewRepository returns an order repository on the document store.
func NewRepository(docs documents) Repository {
	return &repository{docs: docs, now: func() time.Time { return time.Now().UTC() }}
}

func (r *repository) WithTx(tx docstore.Tx) Repository {
	return &repository{docs: tx, now: r.now}
}

// CollectionPath is users/{uid}/orders.
func CollectionPath(userID string) string {
	return docstore.Join(collectionUsers, userID, collectionOrders)
}

// DocumentPath is users/{uid}/orders/{orderID}.
func DocumentPath(userID, orderID string) string {
	return docstore.Join(collectionUsers, userID, collectionOrders, orderID)
}

func (r *repository) Find(ctx context.Context, userID, orderID string) (*Order, error) {
	doc, err := r.docs.Get(ctx, DocumentPath(userID, orderID))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var order Order
	if err := doc.Decode(&order); err != nil {
		return nil, fmt.Errorf("decode order %s: %w", orderID, err)
	}
	return &order, nil
}

func (r *repository) List(ctx context.Context, userID string, limit int) ([]Order, error) {
	docs, err := r.docs.List(ctx, CollectionPath(userID), docstore.Query{Desc: true, Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]Order, 0, len(docs))
	for _, doc := range docs {
		var order Order
		if err := doc.Decode(&order); err != nil {
			return nil, fmt.Errorf("decode order %s: %w", doc.ID, err)
		}
		out = append(out, order)
	}
	return out, nil
}

func (r *repository) Save(ctx context.Context, order Order) error {
	return r.docs.Set(ctx, DocumentPath(order.UserID, order.ID), order, docstore.Merge())
}

func (r *repository) UpdateStatus(ctx context.Context, userID, orderID string, status enums.OrderStatus) error {
	update := statusUpdate{Status: status, UpdatedAt: r.now()}
	return r.docs.Set(ctx, DocumentPath(userID, orderID), update, docstore.Merge())
}
