package docsync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/docstore"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const defaultPollInterval = 5 * time.Second

// Source is the part of the document store a watcher needs.
type Source interface {
	docstore.Reader
	Changes() *docstore.Feed
}

// Options tunes a watcher.
type Options struct {
	// PollInterval refreshes the view to pick up writes made by other
	// instances. Zero uses the default; a negative value disables polling.
	PollInterval time.Duration
	Logger       *logger.Logger
}

func (o Options) interval() time.Duration {
	if o.PollInterval == 0 {
		return defaultPollInterval
	}
	return o.PollInterval
}

// WatchDocument follows a single document. A missing document is reported as
// loaded with nil data.
func WatchDocument[T any](ctx context.Context, src Source, path string, opts Options) (*Subscription[*T], error) {
	if _, _, err := docstore.SplitDocPath(path); err != nil {
		return nil, err
	}
	fetch := func(ctx context.Context) (*T, error) {
		doc, err := src.Get(ctx, path)
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		var out T
		if err := doc.Decode(&out); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return &out, nil
	}
	match := func(c docstore.Change) bool { return c.Path == path }
	return watch(ctx, src.Changes(), path, match, fetch, opts), nil
}

// WatchCollection follows every document in a collection.
func WatchCollection[T any](ctx context.Context, src Source, collection string, q docstore.Query, opts Options) (*Subscription[[]T], error) {
	if err := docstore.ValidateCollectionPath(collection); err != nil {
		return nil, err
	}
	fetch := func(ctx context.Context) ([]T, error) {
		docs, err := src.List(ctx, collection, q)
		if err != nil {
			return nil, err
		}
		out := make([]T, 0, len(docs))
		for _, doc := range docs {
			var item T
			if err := doc.Decode(&item); err != nil {
				return nil, fmt.Errorf("decode %s: %w", doc.Path, err)
			}
			out = append(out, item)
		}
		return out, nil
	}
	match := func(c docstore.Change) bool { return c.Collection == collection }
	return watch(ctx, src.Changes(), collection+"/", match, fetch, opts), nil
}

func watch[T any](
	ctx context.Context,
	feed *docstore.Feed,
	prefix string,
	match func(docstore.Change) bool,
	fetch func(context.Context) (T, error),
	opts Options,
) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	sub := newSubscription[T](cancel)
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	changes, unsubscribe := feed.Subscribe(prefix)

	refresh := func() {
		data, err := fetch(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			prev := sub.State()
			if sub.set(State[T]{Status: enums.SyncStatusErrored, Data: prev.Data, Err: err}) {
				logg.Warn(logg.WithFields(ctx, map[string]any{"watch": prefix, "error": err.Error()}), "document sync read failed")
			}
			return
		}
		sub.set(State[T]{Status: enums.SyncStatusLoaded, Data: data})
	}

	go func() {
		defer close(sub.done)
		defer close(sub.updates)
		defer unsubscribe()

		var tick <-chan time.Time
		if interval := opts.interval(); interval > 0 {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		refresh()
		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-changes:
				if !ok {
					changes = nil
					continue
				}
				if match(change) {
					refresh()
				}
			case <-tick:
				refresh()
			}
		}
	}()
	return sub
}
