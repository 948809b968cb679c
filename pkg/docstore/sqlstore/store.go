// Package sqlstore backs the document store with a single documents table
// through gorm, on postgres or sqlite.
package sqlstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/docstore"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type documentRow struct {
	Path       string    `gorm:"column:path;primaryKey"`
	Collection string    `gorm:"column:collection"`
	DocID      string    `gorm:"column:doc_id"`
	Data       string    `gorm:"column:data"`
	Version    int64     `gorm:"column:version"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (documentRow) TableName() string { return "documents" }

func (r documentRow) toDocument() docstore.Document {
	return docstore.Document{
		Path:       r.Path,
		Collection: r.Collection,
		ID:         r.DocID,
		Data:       json.RawMessage(r.Data),
		Version:    r.Version,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// Store implements docstore.Store on a gorm connection.
type Store struct {
	client *db.Client
	feed   *docstore.Feed
	now    func() time.Time
}

var _ docstore.Store = (*Store)(nil)

func New(client *db.Client) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &Store{
		client: client,
		feed:   docstore.NewFeed(),
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Store) Changes() *docstore.Feed { return s.feed }

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx) }

func (s *Store) Close(context.Context) error { return s.client.Close() }

func (s *Store) Get(ctx context.Context, path string) (*docstore.Document, error) {
	return s.session(s.client.DB().WithContext(ctx)).Get(ctx, path)
}

func (s *Store) List(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	return s.session(s.client.DB().WithContext(ctx)).List(ctx, collection, q)
}

func (s *Store) Set(ctx context.Context, path string, data any, opts ...docstore.SetOption) error {
	return s.RunInTx(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return tx.Set(ctx, path, data, opts...)
	})
}

func (s *Store) Delete(ctx context.Context, path string) error {
	return s.RunInTx(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return tx.Delete(ctx, path)
	})
}

// RunInTx runs fn in a database transaction. Changes are published on the feed
// only after commit.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	var sess *session
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		sess = s.session(tx)
		return fn(ctx, sess)
	})
	if err != nil {
		return err
	}
	s.feed.Publish(sess.changes...)
	return nil
}

func (s *Store) session(conn *gorm.DB) *session {
	return &session{
		db:         conn,
		lockOnRead: s.client.Driver() == enums.DocStoreDriverPostgres,
		now:        s.now,
	}
}

type session struct {
	db         *gorm.DB
	lockOnRead bool
	now        func() time.Time
	changes    []docstore.Change
}

func (t *session) Get(ctx context.Context, path string) (*docstore.Document, error) {
	if _, _, err := docstore.SplitDocPath(path); err != nil {
		return nil, err
	}
	row, err := t.load(ctx, path, false)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, docstore.ErrNotFound
	}
	doc := row.toDocument()
	return &doc, nil
}

func (t *session) List(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	if err := docstore.ValidateCollectionPath(collection); err != nil {
		return nil, err
	}

	query := t.db.WithContext(ctx).Where("collection = ?", collection)
	order := clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: q.Desc}
	query = query.Order(order).Order(clause.OrderByColumn{Column: clause.Column{Name: "path"}, Desc: q.Desc})
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var rows []documentRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	docs := make([]docstore.Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, row.toDocument())
	}
	return docs, nil
}

func (t *session) Set(ctx context.Context, path string, data any, opts ...docstore.SetOption) error {
	collection, id, err := docstore.SplitDocPath(path)
	if err != nil {
		return err
	}
	body, err := docstore.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	existing, err := t.load(ctx, path, true)
	if err != nil {
		return err
	}

	now := t.now()
	if existing == nil {
		row := documentRow{
			Path:       path,
			Collection: collection,
			DocID:      id,
			Data:       string(body),
			Version:    1,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
			if db.IsUniqueViolation(err, "") {
				return fmt.Errorf("create %s: %w", path, docstore.ErrConflict)
			}
			return fmt.Errorf("create %s: %w", path, err)
		}
		t.changes = append(t.changes, docstore.Change{Path: path, Collection: collection, Version: row.Version})
		return nil
	}

	if docstore.ResolveSetOptions(opts...) {
		body, err = docstore.MergeJSON(json.RawMessage(existing.Data), body)
		if err != nil {
			return fmt.Errorf("merge %s: %w", path, err)
		}
	}

	res := t.db.WithContext(ctx).
		Model(&documentRow{}).
		Where("path = ? AND version = ?", path, existing.Version).
		Updates(map[string]any{
			"data":       string(body),
			"version":    existing.Version + 1,
			"updated_at": now,
		})
	if res.Error != nil {
		return fmt.Errorf("update %s: %w", path, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update %s: %w", path, docstore.ErrConflict)
	}
	t.changes = append(t.changes, docstore.Change{Path: path, Collection: collection, Version: existing.Version + 1})
	return nil
}

func (t *session) Delete(ctx context.Context, path string) error {
	collection, _, err := docstore.SplitDocPath(path)
	if err != nil {
		return err
	}
	res := t.db.WithContext(ctx).Where("path = ?", path).Delete(&documentRow{})
	if res.Error != nil {
		return fmt.Errorf("delete %s: %w", path, res.Error)
	}
	if res.RowsAffected > 0 {
		t.changes = append(t.changes, docstore.Change{Path: path, Collection: collection, Deleted: true})
	}
	return nil
}

func (t *session) load(ctx context.Context, path string, forUpdate bool) (*documentRow, error) {
	query := t.db.WithContext(ctx)
	if forUpdate && t.lockOnRead {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row documentRow
	err := query.Where("path = ?", path).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return &row, nil
}
