package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/docstore"
)

type documents interface {
	docstore.Reader
	docstore.Writer
}

// Repository reads and writes catalog documents.
type Repository struct {
	docs documents
}

// NewRepository builds a repository on the provided document store.
func NewRepository(docs documents) *Repository {
	return &Repository{docs: docs}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx docstore.Tx) *Repository {
	return &Repository{docs: tx}
}

func productPath(id string) string {
	return docstore.Join(collectionProducts, id)
}

func reviewsPath(productID string) string {
	return docstore.Join(collectionProducts, productID, collectionReviews)
}

// FindByID returns nil without error when the product does not exist.
func (r *Repository) FindByID(ctx context.Context, id string) (*Product, error) {
	doc, err := r.docs.Get(ctx, productPath(id))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p Product
	if err := doc.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode product %s: %w", id, err)
	}
	if p.ID == "" {
		p.ID = doc.ID
	}
	return &p, nil
}

func (r *Repository) List(ctx context.Context) ([]Product, error) {
	docs, err := r.docs.List(ctx, collectionProducts, docstore.Query{})
	if err != nil {
		return nil, err
	}
	out := make([]Product, 0, len(docs))
	for _, doc := range docs {
		var p Product
		if err := doc.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode product %s: %w", doc.ID, err)
		}
		if p.ID == "" {
			p.ID = doc.ID
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *Repository) Save(ctx context.Context, p Product) error {
	return r.docs.Set(ctx, productPath(p.ID), p)
}

func (r *Repository) ListReviews(ctx context.Context, productID string) ([]Review, error) {
	docs, err := r.docs.List(ctx, reviewsPath(productID), docstore.Query{Desc: true})
	if err != nil {
		return nil, err
	}
	out := make([]Review, 0, len(docs))
	for _, doc := range docs {
		var rv Review
		if err := doc.Decode(&rv); err != nil {
			return nil, fmt.Errorf("decode review %s: %w", doc.ID, err)
		}
		out = append(out, rv)
	}
	return out, nil
}

func (r *Repository) SaveReview(ctx context.Context, rv Review) error {
	return r.docs.Set(ctx, docstore.Join(reviewsPath(rv.ProductID), rv.ID), rv)
}
