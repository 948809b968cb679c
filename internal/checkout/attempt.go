package checkout

import (
	"sync"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Attempt tracks one place-order action: idle → submitting → submitted.
// Submitted is terminal; a failed submission returns to idle.
type Attempt struct {
	mu        sync.Mutex
	state     enums.CheckoutState
	listeners []func(enums.CheckoutState)
}

func NewAttempt() *Attempt {
	return &Attempt{state: enums.CheckoutStateIdle}
}

func (a *Attempt) State() enums.CheckoutState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// OnTransition registers fn to be called with every new state.
func (a *Attempt) OnTransition(fn func(enums.CheckoutState)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

func (a *Attempt) begin() error {
	return a.move(enums.CheckoutStateIdle, enums.CheckoutStateSubmitting)
}

func (a *Attempt) complete() {
	_ = a.move(enums.CheckoutStateSubmitting, enums.CheckoutStateSubmitted)
}

func (a *Attempt) abort() {
	_ = a.move(enums.CheckoutStateSubmitting, enums.CheckoutStateIdle)
}

func (a *Attempt) move(from, to enums.CheckoutState) error {
	a.mu.Lock()
	if a.state != from {
		current := a.state
		a.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already being placed").
			WithDetails(map[string]any{"state": current})
	}
	a.state = to
	listeners := append([]func(enums.CheckoutState){}, a.listeners...)
	a.mu.Unlock()

	for _, fn := range listeners {
		fn(to)
	}
	return nil
}
