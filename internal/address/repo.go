package address

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/docstore"
)

const (
	collectionUsers     = "users"
	collectionAddresses = "addresses"
	collectionLocks     = "locks"
)

type documents interface {
	docstore.Reader
	docstore.Writer
}

// Repository persists addresses under users/{uid}/addresses.
type Repository struct {
	docs documents
}

func NewRepository(docs documents) *Repository {
	return &Repository{docs: docs}
}

func (r *Repository) WithTx(tx docstore.Tx) *Repository {
	return &Repository{docs: tx}
}

// CollectionPath is users/{uid}/addresses.
func CollectionPath(userID string) string {
	return docstore.Join(collectionUsers, userID, collectionAddresses)
}

func documentPath(userID, id string) string {
	return docstore.Join(CollectionPath(userID), id)
}

func (r *Repository) Find(ctx context.Context, userID, id string) (*Address, error) {
	doc, err := r.docs.Get(ctx, documentPath(userID, id))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var a Address
	if err := doc.Decode(&a); err != nil {
		return nil, fmt.Errorf("decode address %s: %w", id, err)
	}
	return &a, nil
}

func (r *Repository) List(ctx context.Context, userID string) ([]Address, error) {
	docs, err := r.docs.List(ctx, CollectionPath(userID), docstore.Query{})
	if err != nil {
		return nil, err
	}
	out := make([]Address, 0, len(docs))
	for _, doc := range docs {
		var a Address
		if err := doc.Decode(&a); err != nil {
			return nil, fmt.Errorf("decode address %s: %w", doc.ID, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *Repository) Save(ctx context.Context, userID string, a Address) error {
	return r.docs.Set(ctx, documentPath(userID, a.ID), a)
}

func (r *Repository) SetDefaultFlag(ctx context.Context, userID, id string, flag defaultFlag) error {
	return r.docs.Set(ctx, documentPath(userID, id), flag, docstore.Merge())
}

func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	return r.docs.Delete(ctx, documentPath(userID, id))
}

// LockPath is users/{uid}/locks/addresses. Every address transaction writes it
// first, so a second transaction for the same user waits on the row lock
// (postgres, sqlite) or aborts with a write conflict and retries (mongo).
func LockPath(userID string) string {
	return docstore.Join(collectionUsers, userID, collectionLocks, collectionAddresses)
}

func (r *Repository) Lock(ctx context.Context, userID string, at time.Time) error {
	return r.docs.Set(ctx, LockPath(userID), map[string]any{"locked_at": at}, docstore.Merge())
}
