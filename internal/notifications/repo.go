package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/docstore"
)

const (
	collectionUsers         = "users"
	collectionNotifications = "notifications"
)

type documents interface {
	docstore.Reader
	docstore.Writer
}

// Repository persists notifications under users/{uid}/notifications.
type Repository struct {
	docs documents
}

func NewRepository(docs documents) *Repository {
	return &Repository{docs: docs}
}

func (r *Repository) WithTx(tx docstore.Tx) *Repository {
	return &Repository{docs: tx}
}

// CollectionPath is users/{uid}/notifications.
func CollectionPath(userID string) string {
	return docstore.Join(collectionUsers, userID, collectionNotifications)
}

func documentPath(userID, id string) string {
	return docstore.Join(CollectionPath(userID), id)
}

func (r *Repository) Create(ctx context.Context, userID string, n Notification) error {
	return r.docs.Set(ctx, documentPath(userID, n.ID), n)
}

func (r *Repository) Find(ctx context.Context, userID, id string) (*Notification, error) {
	doc, err := r.docs.Get(ctx, documentPath(userID, id))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var n Notification
	if err := doc.Decode(&n); err != nil {
		return nil, fmt.Errorf("decode notification %s: %w", id, err)
	}
	return &n, nil
}

func (r *Repository) List(ctx context.Context, userID string, limit int) ([]Notification, error) {
	docs, err := r.docs.List(ctx, CollectionPath(userID), docstore.Query{Desc: true, Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]Notification, 0, len(docs))
	for _, doc := range docs {
		var n Notification
		if err := doc.Decode(&n); err != nil {
			return nil, fmt.Errorf("decode notification %s: %w", doc.ID, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *Repository) MarkRead(ctx context.Context, userID, id string, update readUpdate) error {
	return r.docs.Set(ctx, documentPath(userID, id), update, docstore.Merge())
}
