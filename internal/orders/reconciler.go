package orders

import (
	"sync"
	"time"
)

type cacheEntry struct {
	status    string
	createdAt time.Time
}

// Reconciler diffs each delivered order snapshot against the previous one.
// The remote listener redelivers the entire current order list on every
// change, so classification works off a private id -> last-observed cache
// that is replaced wholesale each cycle.
//
// The mutex keeps cycles from overlapping: a snapshot arriving while one is
// in progress waits its turn instead of coalescing.
type Reconciler struct {
	mu        sync.Mutex
	cache     map[string]cacheEntry
	lastCheck time.Time
}

// NewReconciler creates a reconciler whose clock mark starts at start.
// Orders created before start are treated as already known on the first
// cycle, which keeps a cold start from flooding notifications.
func NewReconciler(start time.Time) *Reconciler {
	return &Reconciler{
		cache:     make(map[string]cacheEntry),
		lastCheck: start,
	}
}

// Reconcile classifies one snapshot into new and status-changed orders and
// advances the clock mark to asOf. asOf is the wall clock at delivery time,
// not derived from the snapshot; two snapshots arriving faster than clock
// resolution can misclassify, which matches the observed upstream behavior.
func (r *Reconciler) Reconcile(snapshot []Order, asOf time.Time) DeltaBatch {
	r.mu.Lock()
	defer r.mu.Unlock()

	var batch DeltaBatch
	next := make(map[string]cacheEntry, len(snapshot))
	for _, o := range snapshot {
		prev, known := r.cache[o.ID]
		switch {
		case !known:
			if o.CreatedAt.After(r.lastCheck) {
				batch.NewOrders = append(batch.NewOrders, o)
			}
			// Known-but-missing from cache (cold start) stays unchanged.
		case prev.status != o.Status:
			batch.StatusChangedOrders = append(batch.StatusChangedOrders, o)
		}
		next[o.ID] = cacheEntry{status: o.Status, createdAt: o.CreatedAt}
	}

	// Orders absent from the snapshot drop out silently: removal is not a
	// cancellation.
	r.cache = next
	r.lastCheck = asOf
	return batch
}

// LastCheck returns the reconciler's current clock mark.
func (r *Reconciler) LastCheck() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastCheck
}
