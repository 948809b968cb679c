package sqlstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/docstore"
	"github.com/angelmondragon/storefront-backend/pkg/docstore/docstoretest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderDoc struct {
	Status string            `json:"status"`
	Totals map[string]string `json:"totals,omitempty"`
}

func TestSetGetReplaceAndMerge(t *testing.T) {
	ctx := context.Background()
	store := docstoretest.New(t)
	path := "users/u1/orders/o1"

	require.NoError(t, store.Set(ctx, path, orderDoc{Status: "processing", Totals: map[string]string{"subtotal": "108.00"}}))

	doc, err := store.Get(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "users/u1/orders", doc.Collection)
	assert.Equal(t, "o1", doc.ID)
	assert.Equal(t, int64(1), doc.Version)

	require.NoError(t, store.Set(ctx, path, map[string]any{"totals": map[string]string{"tax": "0.00"}}, docstore.Merge()))
	doc, err = store.Get(ctx, path)
	require.NoError(t, err)
	var merged orderDoc
	require.NoError(t, doc.Decode(&merged))
	assert.Equal(t, "processing", merged.Status)
	assert.Equal(t, map[string]string{"subtotal": "108.00", "tax": "0.00"}, merged.Totals)
	assert.Equal(t, int64(2), doc.Version)

	require.NoError(t, store.Set(ctx, path, orderDoc{Status: "shipped"}))
	doc, err = store.Get(ctx, path)
	require.NoError(t, err)
	var replaced orderDoc
	require.NoError(t, doc.Decode(&replaced))
	assert.Equal(t, "shipped", replaced.Status)
	assert.Empty(t, replaced.Totals)
}

func TestGetMissingAndInvalidPaths(t *testing.T) {
	ctx := context.Background()
	store := docstoretest.New(t)

	_, err := store.Get(ctx, "users/u1/orders/missing")
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	_, err = store.Get(ctx, "users/u1/orders")
	assert.ErrorIs(t, err, docstore.ErrInvalidPath)

	_, err = store.List(ctx, "users/u1", docstore.Query{})
	assert.ErrorIs(t, err, docstore.ErrInvalidPath)
}

func TestListOrdersAndLimits(t *testing.T) {
	ctx := context.Background()
	store := docstoretest.New(t)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Set(ctx, "users/u1/addresses/"+id, map[string]string{"line1": id}))
		time.Sleep(2 * time.Millisecond)
	}
	require.NoError(t, store.Set(ctx, "users/u2/addresses/z", map[string]string{"line1": "z"}))

	docs, err := store.List(ctx, "users/u1/addresses", docstore.Query{})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "a", docs[0].ID)

	docs, err = store.List(ctx, "users/u1/addresses", docstore.Query{Desc: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "c", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)
}

func TestRunInTxRollsBackAndPublishesOnCommit(t *testing.T) {
	ctx := context.Background()
	store := docstoretest.New(t)
	changes, cancel := store.Changes().Subscribe("users/u1/")
	defer cancel()

	boom := errors.New("boom")
	err := store.RunInTx(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if err := tx.Set(ctx, "users/u1/addresses/a", map[string]bool{"isDefault": true}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Get(ctx, "users/u1/addresses/a")
	require.ErrorIs(t, err, docstore.ErrNotFound)
	assert.Len(t, changes, 0)

	require.NoError(t, store.RunInTx(ctx, func(ctx context.Context, tx docstore.Tx) error {
		if err := tx.Set(ctx, "users/u1/addresses/a", map[string]bool{"isDefault": true}); err != nil {
			return err
		}
		return tx.Set(ctx, "users/u1/addresses/b", map[string]bool{"isDefault": false})
	}))
	assert.Len(t, changes, 2)
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := docstoretest.New(t)
	changes, cancel := store.Changes().Subscribe("")
	defer cancel()

	require.NoError(t, store.Set(ctx, "products/p1", map[string]string{"name": "Mug"}))
	require.NoError(t, store.Delete(ctx, "products/p1"))
	require.NoError(t, store.Delete(ctx, "products/p1"))

	_, err := store.Get(ctx, "products/p1")
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	require.Len(t, changes, 2)
	<-changes
	deleted := <-changes
	assert.True(t, deleted.Deleted)
}

func TestSetRejectsNonObjects(t *testing.T) {
	store := docstoretest.New(t)
	err := store.Set(context.Background(), "products/p1", []string{"x"})
	assert.Error(t, err)
}
