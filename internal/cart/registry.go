package cart

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/shopnearby-backend/pkg/metrics"
)

// Registry hands out one Store per session, creating and restoring lazily.
type Registry struct {
	mu      sync.Mutex
	stores  map[string]*Store
	opening map[string]*opening

	template StoreParams
	metrics  *metrics.Storefront
	now      func() time.Time
}

type opening struct {
	done  chan struct{}
	store *Store
	err   error
}

// NewRegistry builds a registry. template supplies everything except SessionID.
func NewRegistry(template StoreParams) (*Registry, error) {
	if template.Coupons == nil {
		return nil, errors.New("coupon lookup required")
	}
	if template.Logger == nil {
		return nil, errors.New("logger required")
	}
	if err := template.Pricing.validate(); err != nil {
		return nil, err
	}
	now := template.Clock
	if now == nil {
		now = time.Now
	}
	return &Registry{
		stores:   make(map[string]*Store),
		opening:  make(map[string]*opening),
		template: template,
		metrics:  template.Metrics,
		now:      now,
	}, nil
}

// Pricing returns the constants stores are built with.
func (r *Registry) Pricing() Pricing {
	return r.template.Pricing
}

// Get returns the session's store, restoring it from persistence on first use.
// Concurrent first requests for a session share a single restore.
func (r *Registry) Get(ctx context.Context, sessionID string) (*Store, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, errors.New("session id required")
	}

	r.mu.Lock()
	if s, ok := r.stores[sessionID]; ok {
		r.mu.Unlock()
		return s, nil
	}
	if pending, ok := r.opening[sessionID]; ok {
		r.mu.Unlock()
		select {
		case <-pending.done:
			return pending.store, pending.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	pending := &opening{done: make(chan struct{})}
	r.opening[sessionID] = pending
	r.mu.Unlock()

	params := r.template
	params.SessionID = sessionID
	pending.store, pending.err = OpenStore(ctx, params)

	r.mu.Lock()
	delete(r.opening, sessionID)
	if pending.err == nil {
		r.stores[sessionID] = pending.store
	}
	active := len(r.stores)
	r.mu.Unlock()
	close(pending.done)

	r.metrics.SetActiveCarts(active)
	return pending.store, pending.err
}

// Peek returns the in-memory store without creating one.
func (r *Registry) Peek(sessionID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[sessionID]
	return s, ok
}

// Len reports how many sessions are held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

// Sweep evicts stores idle for longer than idle. Stores held by a checkout are
// kept. Evicted carts are restored from persistence on their next request.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	evicted := 0
	for id, s := range r.stores {
		touched, locked := s.idleSince()
		if locked || touched.After(cutoff) {
			continue
		}
		delete(r.stores, id)
		evicted++
	}
	active := len(r.stores)
	r.mu.Unlock()

	r.metrics.SetActiveCarts(active)
	return evicted
}

// SweepJob adapts Registry.Sweep to the background job runner.
type SweepJob struct {
	Registry *Registry
	Idle     time.Duration
}

func (j SweepJob) Name() string { return "cart_session_sweep" }

func (j SweepJob) Run(context.Context) (int, error) {
	if j.Registry == nil {
		return 0, errors.New("registry required")
	}
	return j.Registry.Sweep(j.Idle), nil
}
