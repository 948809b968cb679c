// Package docsync keeps local views of remote documents current. A
// Subscription starts in the loading state, moves to loaded once the first
// read returns and to errored when a read fails; later reads move it back.
package docsync

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// State is the current view of a watched document or collection.
type State[T any] struct {
	Status enums.SyncStatus
	Data   T
	Err    error
}

// MarshalJSON renders the state triple for clients.
func (s State[T]) MarshalJSON() ([]byte, error) {
	payload := struct {
		Status enums.SyncStatus `json:"status"`
		Data   any              `json:"data"`
		Error  string           `json:"error,omitempty"`
	}{Status: s.Status, Data: s.Data}
	if s.Err != nil {
		payload.Error = s.Err.Error()
	}
	return json.Marshal(payload)
}

func sameState[T any](a, b State[T]) bool {
	if a.Status != b.Status {
		return false
	}
	if (a.Err == nil) != (b.Err == nil) {
		return false
	}
	if a.Err != nil && a.Err.Error() != b.Err.Error() {
		return false
	}
	return reflect.DeepEqual(a.Data, b.Data)
}

// Subscription is a live view. Each subscription owns one goroutine that
// stops on Close or when the context passed to Watch is canceled.
type Subscription[T any] struct {
	mu      sync.RWMutex
	state   State[T]
	updates chan State[T]
	cancel  context.CancelFunc
	done    chan struct{}
}

func newSubscription[T any](cancel context.CancelFunc) *Subscription[T] {
	return &Subscription[T]{
		state:   State[T]{Status: enums.SyncStatusLoading},
		updates: make(chan State[T], 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// State returns the latest state.
func (s *Subscription[T]) State() State[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Updates delivers state changes. Slow readers only see the latest state.
// The channel is closed when the subscription stops.
func (s *Subscription[T]) Updates() <-chan State[T] {
	return s.updates
}

// Done is closed once the subscription goroutine has exited.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

// Close stops the subscription and waits for its goroutine.
func (s *Subscription[T]) Close() {
	s.cancel()
	<-s.done
}

// set records next and reports whether it differs from the previous state.
func (s *Subscription[T]) set(next State[T]) bool {
	s.mu.Lock()
	changed := !sameState(s.state, next)
	s.state = next
	s.mu.Unlock()
	if !changed {
		return false
	}
	select {
	case <-s.updates:
	default:
	}
	s.updates <- next
	return true
}
