package cart

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrUnknownCart = errors.New("cart not found")

const DefaultIdleTTL = 2 * time.Hour

type entry struct {
	store    *Store
	lastSeen time.Time
}

// Registry keeps the carts of live shopping sessions in process memory.
// Carts are dropped after sitting idle for the configured TTL and are
// never persisted.
type Registry struct {
	mu    sync.Mutex
	carts map[string]*entry
	ttl   time.Duration
	now   func() time.Time
}

func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &Registry{
		carts: make(map[string]*entry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Open creates an empty cart and returns its token.
func (r *Registry) Open() (string, *Store) {
	token := uuid.NewString()
	s := NewStore()

	r.mu.Lock()
	r.carts[token] = &entry{store: s, lastSeen: r.now()}
	r.mu.Unlock()
	return token, s
}

func (r *Registry) Get(token string) (*Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.carts[token]
	if !ok {
		return nil, ErrUnknownCart
	}
	if r.now().Sub(e.lastSeen) > r.ttl {
		delete(r.carts, token)
		return nil, ErrUnknownCart
	}
	e.lastSeen = r.now()
	return e.store, nil
}

// Clear empties the cart behind token. Unknown tokens are ignored.
func (r *Registry) Clear(token string) {
	if s, err := r.Get(token); err == nil {
		s.Clear()
	}
}

func (r *Registry) sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for token, e := range r.carts {
		if r.now().Sub(e.lastSeen) > r.ttl {
			delete(r.carts, token)
			n++
		}
	}
	return n
}

// RunJanitor evicts idle carts until ctx is done.
func (r *Registry) RunJanitor(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.sweep(); n > 0 {
				log.Printf("🧹 %d idle carts evicted", n)
			}
		}
	}
}
