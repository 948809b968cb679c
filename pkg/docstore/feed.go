package docstore

import (
	"strings"
	"sync"
)

const feedBuffer = 16

// Change describes a committed write.
type Change struct {
	Path       string
	Collection string
	Deleted    bool
	Version    int64
}

// Feed fans committed changes out to in-process subscribers. Delivery is best
// effort: a subscriber whose buffer is full misses the change.
type Feed struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]subscriber
}

type subscriber struct {
	prefix string
	ch     chan Change
}

func NewFeed() *Feed {
	return &Feed{subs: map[int]subscriber{}}
}

// Subscribe returns a channel receiving changes whose path starts with prefix,
// and a cancel func that closes it.
func (f *Feed) Subscribe(prefix string) (<-chan Change, func()) {
	ch := make(chan Change, feedBuffer)
	if f == nil {
		close(ch)
		return ch, func() {}
	}

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = subscriber{prefix: prefix, ch: ch}
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers changes to matching subscribers without blocking.
func (f *Feed) Publish(changes ...Change) {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, change := range changes {
		for _, sub := range f.subs {
			if !strings.HasPrefix(change.Path, sub.prefix) {
				continue
			}
			select {
			case sub.ch <- change:
			default:
			}
		}
	}
}
