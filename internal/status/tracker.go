package status

import (
	"errors"
	"sync"
)

var (
	ErrNotDelivered = errors.New("order is not on its way yet")
	ErrNotReceived  = errors.New("order receipt has not been confirmed")
	ErrAlreadyRated = errors.New("order has already been rated")
)

// Tracker holds the client-local part of one order's state machine:
// server states until the customer confirms receipt, then Rating, then
// Thanked, which is terminal.
type Tracker struct {
	mu       sync.Mutex
	server   State
	received bool
	rated    bool
	from     *Coordinate
	done     chan struct{}
}

func NewTracker() *Tracker {
	return &Tracker{server: Confirming, done: make(chan struct{})}
}

// Observe records a polled server state and returns the effective state.
func (t *Tracker) Observe(s State) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.received {
		t.server = s
	}
	return t.stateLocked()
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

func (t *Tracker) stateLocked() State {
	switch {
	case t.rated:
		return Thanked
	case t.received:
		return Rating
	}
	return t.server
}

func (t *Tracker) ConfirmReceived() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.received {
		return nil
	}
	if t.server != EnRoute {
		return ErrNotDelivered
	}
	t.received = true
	return nil
}

// checkRate reports whether a rating may be submitted now.
func (t *Tracker) checkRate() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rated {
		return ErrAlreadyRated
	}
	if !t.received {
		return ErrNotReceived
	}
	return nil
}

func (t *Tracker) markRated() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rated {
		return
	}
	t.rated = true
	close(t.done)
}

// Done is closed once the order reaches Thanked.
func (t *Tracker) Done() <-chan struct{} { return t.done }

func (t *Tracker) Terminal() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// SetLocation sets the customer position used for the delivery ETA.
func (t *Tracker) SetLocation(c Coordinate) {
	t.mu.Lock()
	t.from = &c
	t.mu.Unlock()
}

func (t *Tracker) location() *Coordinate {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.from
}
