package geofence

import (
	"sync"
	"time"

	"venuegate/internal/geo"
)

// Event is a read-only cached copy of a geofenced venue event. The candidate
// set is owned by the remote catalog and refreshed externally; the tracker
// never fetches it itself.
type Event struct {
	ID           string
	Name         string
	Center       geo.Point
	RadiusMeters float64
	StartsAt     time.Time
	EndsAt       time.Time
}

// Position is a single fix delivered by the location provider.
type Position struct {
	Point     geo.Point
	Timestamp time.Time
}

// ChangeKind enumerates containment transitions.
type ChangeKind string

const (
	ChangeEntered  ChangeKind = "entered"
	ChangeExited   ChangeKind = "exited"
	ChangeSwitched ChangeKind = "switched"
)

// Change is emitted when containment changes. It is the trigger for loading
// event-scoped products downstream.
type Change struct {
	Kind     ChangeKind
	Event    *Event // entered or switched-to event, nil on exit
	Previous *Event // previous containing event, nil on first entry
	At       time.Time
}

// State is a consistent snapshot of the tracker.
type State struct {
	Position *Position
	Current  *Event
	Inside   bool
}

// Tracker evaluates position fixes against the candidate geofence set.
// Candidates are scanned in the order supplied and the first match wins;
// overlapping fences resolve to the earlier one. No hysteresis is applied,
// so a fix oscillating on a radius boundary will churn enter/exit.
//
// Producers may call in from independent goroutines; all mutation is
// serialized behind one mutex so snapshots are never torn.
type Tracker struct {
	mu         sync.Mutex
	candidates []Event
	position   *Position
	current    *Event
	inside     bool
	lastErr    error
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// SetCandidates swaps the working set of geofences. The swap is constant
// time and invalidates nothing else: containment is re-evaluated on the
// next position fix, not here.
func (t *Tracker) SetCandidates(events []Event) {
	t.mu.Lock()
	t.candidates = events
	t.mu.Unlock()
}

// OnPosition evaluates containment for a new fix. It returns a Change and
// true only when the inside flag or the containing event id differs from
// the prior state. Fixes are processed as received, stale ones included.
func (t *Tracker) OnPosition(pos Position) (Change, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.position = &pos
	t.lastErr = nil

	var match *Event
	for i := range t.candidates {
		c := &t.candidates[i]
		if pos.Point.DistanceTo(c.Center) <= c.RadiusMeters {
			match = c
			break
		}
	}

	prev := t.current
	wasInside := t.inside

	if match == nil {
		t.inside = false
		t.current = nil
		if !wasInside {
			return Change{}, false
		}
		return Change{Kind: ChangeExited, Previous: prev, At: pos.Timestamp}, true
	}

	entered := *match
	t.inside = true
	t.current = &entered
	switch {
	case !wasInside:
		return Change{Kind: ChangeEntered, Event: &entered, At: pos.Timestamp}, true
	case prev != nil && prev.ID != entered.ID:
		return Change{Kind: ChangeSwitched, Event: &entered, Previous: prev, At: pos.Timestamp}, true
	}
	return Change{}, false
}

// OnProviderError records a provider failure. Existing containment state is
// held, not cleared; the provider owns its own retry.
func (t *Tracker) OnProviderError(err error) {
	t.mu.Lock()
	t.lastErr = err
	t.mu.Unlock()
}

// Err returns the most recent provider error, cleared by the next
// successful fix.
func (t *Tracker) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// State returns a snapshot safe to read concurrently with updates.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := State{Inside: t.inside}
	if t.position != nil {
		p := *t.position
		st.Position = &p
	}
	if t.current != nil {
		e := *t.current
		st.Current = &e
	}
	return st
}
