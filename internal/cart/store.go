package cart

import (
	"sync"

	product "github.com/angelmondragon/storefront-backend/internal/products"
)

// LineItem is one distinct product+variant selection in a cart.
type LineItem struct {
	Key      ItemKey           `json:"key"`
	Product  product.Product   `json:"product"`
	Quantity int               `json:"quantity"`
	Variants map[string]string `json:"variants,omitempty"`
}

// BatchItem is an entry passed to AddBatch.
type BatchItem struct {
	Product  product.Product
	Variants map[string]string
	Quantity int
}

// Snapshot is an immutable view of the cart at a given version.
type Snapshot struct {
	Items   []LineItem `json:"items"`
	Version uint64     `json:"version"`
}

// IsEmpty reports whether the snapshot has no lines.
func (s Snapshot) IsEmpty() bool { return len(s.Items) == 0 }

// ItemCount is the total quantity across lines.
func (s Snapshot) ItemCount() int {
	n := 0
	for _, item := range s.Items {
		n += item.Quantity
	}
	return n
}

// Find returns the line for key.
func (s Snapshot) Find(key ItemKey) (LineItem, bool) {
	for _, item := range s.Items {
		if item.Key == key {
			return item, true
		}
	}
	return LineItem{}, false
}

// Observer is invoked once per state transition, in version order.
type Observer func(Snapshot)

// Store holds one session's cart. All mutations are serialized.
type Store struct {
	mu        sync.Mutex
	items     []LineItem
	version   uint64
	observers map[int]Observer
	nextObs   int

	// notifyMu keeps observer calls in version order across concurrent mutations.
	notifyMu sync.Mutex
}

// NewStore returns an empty cart.
func NewStore() *Store {
	return &Store{observers: map[int]Observer{}}
}

// Add merges one unit of product+variants into the cart, appending a new line
// when no line with the same key exists.
func (s *Store) Add(p product.Product, variants map[string]string) {
	s.mutate(func() bool {
		s.addLocked(p, variants, 1)
		return true
	})
}

// AddBatch applies several adds as a single transition. Entries with a
// non-positive quantity are ignored.
func (s *Store) AddBatch(items []BatchItem) {
	s.mutate(func() bool {
		changed := false
		for _, item := range items {
			if item.Quantity <= 0 {
				continue
			}
			s.addLocked(item.Product, item.Variants, item.Quantity)
			changed = true
		}
		return changed
	})
}

// Remove deletes the line for key. Absent keys are a no-op.
func (s *Store) Remove(key ItemKey) {
	s.mutate(func() bool {
		return s.removeLocked(key)
	})
}

// UpdateQuantity sets the quantity for key. A quantity of zero or less removes
// the line. Unknown keys are a no-op.
func (s *Store) UpdateQuantity(key ItemKey, quantity int) {
	s.mutate(func() bool {
		if quantity <= 0 {
			return s.removeLocked(key)
		}
		idx := s.indexLocked(key)
		if idx < 0 || s.items[idx].Quantity == quantity {
			return false
		}
		s.items[idx].Quantity = quantity
		return true
	})
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mutate(func() bool {
		if len(s.items) == 0 {
			return false
		}
		s.items = nil
		return true
	})
}

// Take empties the cart and returns what it held as one transition. Adds that
// land after Take stay in the cart.
func (s *Store) Take() Snapshot {
	var taken Snapshot
	s.mutate(func() bool {
		taken = s.snapshotLocked()
		if len(s.items) == 0 {
			return false
		}
		s.items = nil
		return true
	})
	return taken
}

// PutBack merges lines returned by Take into the cart, ahead of anything
// added since.
func (s *Store) PutBack(snap Snapshot) {
	s.mutate(func() bool {
		if snap.IsEmpty() {
			return false
		}
		current := s.items
		s.items = nil
		for _, line := range snap.Items {
			if line.Quantity > 0 {
				s.addLocked(line.Product, line.Variants, line.Quantity)
			}
		}
		for _, line := range current {
			s.addLocked(line.Product, line.Variants, line.Quantity)
		}
		return true
	})
}

// Snapshot returns a copy of the current cart.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn for future transitions and returns its cancel func.
func (s *Store) Subscribe(fn Observer) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.observers, id)
			s.mu.Unlock()
		})
	}
}

// Restore replaces the contents with a previously persisted snapshot without
// notifying observers.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = s.items[:0]
	for _, item := range snap.Items {
		if item.Quantity <= 0 {
			continue
		}
		item.Key = NewItemKey(item.Product.ID, item.Variants)
		if idx := s.indexLocked(item.Key); idx >= 0 {
			s.items[idx].Quantity += item.Quantity
			continue
		}
		item.Variants = copyVariants(item.Variants)
		s.items = append(s.items, item)
	}
	s.version = snap.Version
}

func (s *Store) mutate(fn func() bool) {
	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return
	}
	s.version++
	snap := s.snapshotLocked()
	observers := make([]Observer, 0, len(s.observers))
	for _, obs := range s.observers {
		observers = append(observers, obs)
	}
	s.notifyMu.Lock()
	s.mu.Unlock()

	defer s.notifyMu.Unlock()
	for _, obs := range observers {
		obs(snap)
	}
}

func (s *Store) addLocked(p product.Product, variants map[string]string, quantity int) {
	key := NewItemKey(p.ID, variants)
	if idx := s.indexLocked(key); idx >= 0 {
		s.items[idx].Quantity += quantity
		return
	}
	s.items = append(s.items, LineItem{
		Key:      key,
		Product:  p,
		Quantity: quantity,
		Variants: copyVariants(variants),
	})
}

func (s *Store) removeLocked(key ItemKey) bool {
	idx := s.indexLocked(key)
	if idx < 0 {
		return false
	}
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	return true
}

func (s *Store) indexLocked(key ItemKey) int {
	for i := range s.items {
		if s.items[i].Key == key {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() Snapshot {
	items := make([]LineItem, len(s.items))
	for i, item := range s.items {
		item.Variants = copyVariants(item.Variants)
		items[i] = item
	}
	return Snapshot{Items: items, Version: s.version}
}

func copyVariants(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
