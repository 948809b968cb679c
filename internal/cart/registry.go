package cart

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const persistTimeout = 3 * time.Second

// SnapshotStore persists cart snapshots between process restarts.
type SnapshotStore interface {
	// Load returns nil without error when the session has no stored cart.
	Load(ctx context.Context, sessionID string) (*Snapshot, error)
	Save(ctx context.Context, sessionID string, snap Snapshot) error
	Delete(ctx context.Context, sessionID string) error
}

type entry struct {
	store      *Store
	lastAccess time.Time
	cancel     func()
}

// Registry maps session ids to carts. Each session gets exactly one Store.
type Registry struct {
	snapshots SnapshotStore
	idleTTL   time.Duration
	logg      *logger.Logger
	now       func() time.Time

	mu    sync.Mutex
	carts map[string]*entry
}

// RegistryOptions configures a Registry. Snapshots is optional.
type RegistryOptions struct {
	Snapshots SnapshotStore
	IdleTTL   time.Duration
	Logger    *logger.Logger
}

func NewRegistry(opts RegistryOptions) *Registry {
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Registry{
		snapshots: opts.Snapshots,
		idleTTL:   opts.IdleTTL,
		logg:      logg,
		now:       time.Now,
		carts:     map[string]*entry{},
	}
}

// Get returns the cart for sessionID, creating or rehydrating it on first use.
func (r *Registry) Get(ctx context.Context, sessionID string) *Store {
	if store, ok := r.cached(sessionID); ok {
		return store
	}
	store := NewStore()
	if snap := r.load(ctx, sessionID); snap != nil {
		store.Restore(*snap)
	}
	return r.insert(sessionID, store)
}

// Lookup returns the cart for sessionID without creating one. A persisted
// snapshot is rehydrated; a session with nothing stored reports false.
func (r *Registry) Lookup(ctx context.Context, sessionID string) (*Store, bool) {
	if store, ok := r.cached(sessionID); ok {
		return store, true
	}
	snap := r.load(ctx, sessionID)
	if snap == nil || snap.IsEmpty() {
		return nil, false
	}
	store := NewStore()
	store.Restore(*snap)
	return r.insert(sessionID, store), true
}

func (r *Registry) cached(sessionID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.carts[sessionID]
	if !ok {
		return nil, false
	}
	e.lastAccess = r.now()
	return e.store, true
}

func (r *Registry) load(ctx context.Context, sessionID string) *Snapshot {
	if r.snapshots == nil {
		return nil
	}
	snap, err := r.snapshots.Load(ctx, sessionID)
	if err != nil {
		r.logg.Error(r.logg.WithSessionID(ctx, sessionID), "cart rehydrate failed", err)
		return nil
	}
	return snap
}

// insert keeps the first store registered for sessionID when two callers race.
func (r *Registry) insert(sessionID string, store *Store) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.carts[sessionID]; ok {
		e.lastAccess = r.now()
		return e.store
	}
	e := &entry{store: store, lastAccess: r.now()}
	if r.snapshots != nil {
		e.cancel = store.Subscribe(r.persister(sessionID))
	}
	r.carts[sessionID] = e
	return store
}

func (r *Registry) persister(sessionID string) Observer {
	return func(snap Snapshot) {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		var err error
		if snap.IsEmpty() {
			err = r.snapshots.Delete(ctx, sessionID)
		} else {
			err = r.snapshots.Save(ctx, sessionID, snap)
		}
		if err != nil {
			r.logg.Error(r.logg.WithSessionID(ctx, sessionID), "cart snapshot persist failed", err)
		}
	}
}

// Drop forgets the in-memory cart for sessionID. Persisted snapshots are kept.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	e, ok := r.carts[sessionID]
	delete(r.carts, sessionID)
	r.mu.Unlock()
	if ok && e.cancel != nil {
		e.cancel()
	}
}

// Len returns the number of carts held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.carts)
}

// Sweep evicts carts idle for longer than the configured TTL and returns how
// many were evicted.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	var evicted []*entry
	for id, e := range r.carts {
		if e.lastAccess.Before(cutoff) {
			evicted = append(evicted, e)
			delete(r.carts, id)
		}
	}
	r.mu.Unlock()

	for _, e := range evicted {
		if e.cancel != nil {
			e.cancel()
		}
	}
	return len(evicted)
}

// Run sweeps idle carts every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || r.idleTTL <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logg.Debug(r.logg.WithField(ctx, "evicted", n), "idle carts evicted")
			}
		}
	}
}
