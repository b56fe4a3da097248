package shutdown

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Func releases one resource during shutdown. It should return promptly once
// ctx is done.
type Func func(ctx context.Context) error

// Hook priorities used by the studio. Lower runs first.
const (
	PriorityServer     = 10 // stop accepting requests, drain handlers
	PriorityBackground = 20 // tickers, schedulers
	PriorityHistory    = 30 // flush queued history writes
	PriorityStorage    = 40 // close the database
	PriorityLogger     = 90
)

type hook struct {
	name     string
	priority int
	seq      int
	fn       Func
}

// Registry runs named hooks in priority order exactly once. Hooks with the
// same priority run in registration order.
type Registry struct {
	mu     sync.Mutex
	hooks  []hook
	closed bool
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds fn. Registering after Run is a no-op.
func (r *Registry) Register(name string, priority int, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || fn == nil {
		return
	}
	r.hooks = append(r.hooks, hook{name: name, priority: priority, seq: len(r.hooks), fn: fn})
}

// Run calls every hook even when some fail and returns the failures, each
// prefixed with its hook name. Later calls return nil.
func (r *Registry) Run(ctx context.Context) []error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	hooks := r.sortedLocked()
	r.mu.Unlock()

	var errs []error
	for _, h := range hooks {
		if err := h.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
		}
	}
	return errs
}

// Names lists hooks in the order Run calls them.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	hooks := r.sortedLocked()
	names := make([]string, len(hooks))
	for i, h := range hooks {
		names[i] = h.name
	}
	return names
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hooks)
}

func (r *Registry) sortedLocked() []hook {
	sorted := make([]hook, len(r.hooks))
	copy(sorted, r.hooks)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].priority != sorted[j].priority {
			return sorted[i].priority < sorted[j].priority
		}
		return sorted[i].seq < sorted[j].seq
	})
	return sorted
}
