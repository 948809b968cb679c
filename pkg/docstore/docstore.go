// Package docstore is a path-addressed JSON document store with merge writes,
// transactions and a local change feed. Paths alternate collection and
// document segments, e.g. users/{uid}/orders/{orderID}.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrInvalidPath = errors.New("invalid document path")
	ErrConflict    = errors.New("document was modified concurrently")
)

// Document is a stored JSON document.
type Document struct {
	Path       string          `json:"path"`
	Collection string          `json:"collection"`
	ID         string          `json:"id"`
	Data       json.RawMessage `json:"data"`
	Version    int64           `json:"version"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Decode unmarshals the document body into v.
func (d Document) Decode(v any) error {
	return json.Unmarshal(d.Data, v)
}

// Query narrows a collection listing.
type Query struct {
	// Desc orders newest first by creation time.
	Desc  bool
	Limit int
}

type setOptions struct {
	merge bool
}

// SetOption tweaks Set.
type SetOption func(*setOptions)

// Merge deep-merges the incoming fields into the existing document instead of
// replacing it.
func Merge() SetOption {
	return func(o *setOptions) { o.merge = true }
}

// ResolveSetOptions is used by backends to interpret SetOption values.
func ResolveSetOptions(opts ...SetOption) (merge bool) {
	var o setOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o.merge
}

// Reader is the read surface shared by stores and transactions.
type Reader interface {
	Get(ctx context.Context, path string) (*Document, error)
	List(ctx context.Context, collection string, q Query) ([]Document, error)
}

// Writer is the write surface shared by stores and transactions.
type Writer interface {
	Set(ctx context.Context, path string, data any, opts ...SetOption) error
	Delete(ctx context.Context, path string) error
}

// Tx is a transactional view of the store.
type Tx interface {
	Reader
	Writer
}

// Store is implemented by the SQL and Mongo backends.
type Store interface {
	Reader
	Writer
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Changes() *Feed
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Marshal encodes a value into a JSON object body. Non-object values are rejected.
func Marshal(data any) (json.RawMessage, error) {
	if raw, ok := data.(json.RawMessage); ok {
		if !isObject(raw) {
			return nil, errors.New("document body must be a JSON object")
		}
		return raw, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	if !isObject(raw) {
		return nil, errors.New("document body must be a JSON object")
	}
	return raw, nil
}

func isObject(raw []byte) bool {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
	return false
}
