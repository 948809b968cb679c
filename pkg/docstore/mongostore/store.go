// Package mongostore backs the document store with a MongoDB collection. Each
// document is keyed by its full path and keeps its body as a native BSON
// sub-document.
package mongostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/docstore"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	collectionName = "documents"
	maxSetAttempts = 3
)

type documentRow struct {
	Path       string    `bson:"_id"`
	Collection string    `bson:"collection"`
	DocID      string    `bson:"doc_id"`
	Data       bson.Raw  `bson:"data"`
	Version    int64     `bson:"version"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func (r documentRow) toDocument() (docstore.Document, error) {
	body, err := bodyToJSON(r.Data)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("decode %s: %w", r.Path, err)
	}
	return docstore.Document{
		Path:       r.Path,
		Collection: r.Collection,
		ID:         r.DocID,
		Data:       body,
		Version:    r.Version,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}, nil
}

// Store implements docstore.Store on a MongoDB collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	feed   *docstore.Feed
	now    func() time.Time
}

var _ docstore.Store = (*Store)(nil)

// Connect dials MongoDB, verifies the primary is reachable and ensures indexes.
func Connect(ctx context.Context, cfg config.MongoConfig, logg *logger.Logger) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	store := NewFromCollection(client.Database(cfg.Database).Collection(collectionName))
	store.client = client
	if err := store.EnsureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "database", cfg.Database), "mongo connection established")
	}
	return store, nil
}

// NewFromCollection wraps an existing collection handle.
func NewFromCollection(coll *mongo.Collection) *Store {
	return &Store{
		coll: coll,
		feed: docstore.NewFeed(),
		now:  func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// EnsureIndexes creates the collection listing index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "collection", Value: 1}, {Key: "created_at", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create documents index: %w", err)
	}
	return nil
}

func (s *Store) Changes() *docstore.Feed { return s.feed }

func (s *Store) Ping(ctx context.Context) error {
	if s.client == nil {
		return errors.New("mongo client not initialized")
	}
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *Store) Get(ctx context.Context, path string) (*docstore.Document, error) {
	return s.view().Get(ctx, path)
}

func (s *Store) List(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	return s.view().List(ctx, collection, q)
}

// Set retries on optimistic version conflicts.
func (s *Store) Set(ctx context.Context, path string, data any, opts ...docstore.SetOption) error {
	var err error
	for attempt := 0; attempt < maxSetAttempts; attempt++ {
		v := s.view()
		if err = v.Set(ctx, path, data, opts...); err == nil {
			s.feed.Publish(v.changes...)
			return nil
		}
		if !errors.Is(err, docstore.ErrConflict) {
			return err
		}
	}
	return err
}

func (s *Store) Delete(ctx context.Context, path string) error {
	v := s.view()
	if err := v.Delete(ctx, path); err != nil {
		return err
	}
	s.feed.Publish(v.changes...)
	return nil
}

// RunInTx runs fn inside a MongoDB session transaction (replica set required).
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	if s.client == nil {
		return errors.New("transactions require a connected client")
	}
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	var committed *view
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		v := s.view()
		if err := fn(sc, v); err != nil {
			return nil, err
		}
		committed = v
		return nil, nil
	})
	if err != nil {
		return err
	}
	s.feed.Publish(committed.changes...)
	return nil
}

func (s *Store) view() *view {
	return &view{coll: s.coll, now: s.now}
}

type view struct {
	coll    *mongo.Collection
	now     func() time.Time
	changes []docstore.Change
}

func (v *view) Get(ctx context.Context, path string) (*docstore.Document, error) {
	if _, _, err := docstore.SplitDocPath(path); err != nil {
		return nil, err
	}
	row, err := v.load(ctx, path)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, docstore.ErrNotFound
	}
	doc, err := row.toDocument()
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (v *view) List(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	if err := docstore.ValidateCollectionPath(collection); err != nil {
		return nil, err
	}
	direction := 1
	if q.Desc {
		direction = -1
	}
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: direction}, {Key: "_id", Value: direction}})
	if q.Limit > 0 {
		findOpts.SetLimit(int64(q.Limit))
	}

	cursor, err := v.coll.Find(ctx, bson.M{"collection": collection}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	var rows []documentRow
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}

	docs := make([]docstore.Document, 0, len(rows))
	for _, row := range rows {
		doc, err := row.toDocument()
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (v *view) Set(ctx context.Context, path string, data any, opts ...docstore.SetOption) error {
	collection, id, err := docstore.SplitDocPath(path)
	if err != nil {
		return err
	}
	body, err := docstore.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	existing, err := v.load(ctx, path)
	if err != nil {
		return err
	}
	now := v.now()

	if existing == nil {
		bsonBody, err := bodyToBSON(body)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		row := documentRow{Path: path, Collection: collection, DocID: id, Data: bsonBody, Version: 1, CreatedAt: now, UpdatedAt: now}
		if _, err := v.coll.InsertOne(ctx, row); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return fmt.Errorf("create %s: %w", path, docstore.ErrConflict)
			}
			return fmt.Errorf("create %s: %w", path, err)
		}
		v.changes = append(v.changes, docstore.Change{Path: path, Collection: collection, Version: 1})
		return nil
	}

	if docstore.ResolveSetOptions(opts...) {
		current, err := bodyToJSON(existing.Data)
		if err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
		if body, err = docstore.MergeJSON(current, body); err != nil {
			return fmt.Errorf("merge %s: %w", path, err)
		}
	}
	bsonBody, err := bodyToBSON(body)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	next := *existing
	next.Data = bsonBody
	next.Version = existing.Version + 1
	next.UpdatedAt = now

	res, err := v.coll.ReplaceOne(ctx, bson.M{"_id": path, "version": existing.Version}, next)
	if err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update %s: %w", path, docstore.ErrConflict)
	}
	v.changes = append(v.changes, docstore.Change{Path: path, Collection: collection, Version: next.Version})
	return nil
}

func (v *view) Delete(ctx context.Context, path string) error {
	collection, _, err := docstore.SplitDocPath(path)
	if err != nil {
		return err
	}
	res, err := v.coll.DeleteOne(ctx, bson.M{"_id": path})
	if err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	if res.DeletedCount > 0 {
		v.changes = append(v.changes, docstore.Change{Path: path, Collection: collection, Deleted: true})
	}
	return nil
}

func (v *view) load(ctx context.Context, path string) (*documentRow, error) {
	var row documentRow
	err := v.coll.FindOne(ctx, bson.M{"_id": path}).Decode(&row)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return &row, nil
}

// bodyToBSON converts a JSON object into a BSON document. Plain JSON is valid
// relaxed extended JSON.
func bodyToBSON(body json.RawMessage) (bson.Raw, error) {
	var doc bson.D
	if err := bson.UnmarshalExtJSON(body, false, &doc); err != nil {
		return nil, err
	}
	return bson.Marshal(doc)
}

func bodyToJSON(raw bson.Raw) (json.RawMessage, error) {
	if len(raw) == 0 {
		return json.RawMessage(`{}`), nil
	}
	out, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, err
	}
	return out, nil
}
