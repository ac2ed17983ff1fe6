package geofence

import (
	"errors"
	"testing"
	"time"

	"venuegate/internal/geo"
)

func fix(lat, lon float64) Position {
	return Position{Point: geo.Point{Lat: lat, Lon: lon}, Timestamp: time.Now()}
}

func TestTrackerOutsideAllCandidates(t *testing.T) {
	tr := NewTracker()
	tr.SetCandidates([]Event{
		{ID: "A", Center: geo.Point{Lat: 0, Lon: 0}, RadiusMeters: 100},
		{ID: "B", Center: geo.Point{Lat: 1, Lon: 1}, RadiusMeters: 100},
	})

	if _, changed := tr.OnPosition(fix(10, 10)); changed {
		t.Fatalf("expected no transition while outside all candidates")
	}
	st := tr.State()
	if st.Inside || st.Current != nil {
		t.Fatalf("expected outside state, got inside=%v current=%v", st.Inside, st.Current)
	}
}

func TestTrackerEntersNearbyEvent(t *testing.T) {
	tr := NewTracker()
	tr.SetCandidates([]Event{{ID: "A", Center: geo.Point{Lat: 0, Lon: 0}, RadiusMeters: 100}})

	// 0.0005 degrees latitude is ~55m from the center, inside the 100m fence.
	change, changed := tr.OnPosition(fix(0.0005, 0))
	if !changed {
		t.Fatalf("expected an enter transition")
	}
	if change.Kind != ChangeEntered || change.Event == nil || change.Event.ID != "A" {
		t.Fatalf("unexpected change: %+v", change)
	}
	st := tr.State()
	if !st.Inside || st.Current == nil || st.Current.ID != "A" {
		t.Fatalf("expected to be inside A, got %+v", st)
	}
}

func TestTrackerOverlapPrefersSuppliedOrder(t *testing.T) {
	tr := NewTracker()
	center := geo.Point{Lat: 0, Lon: 0}
	tr.SetCandidates([]Event{
		{ID: "first", Center: center, RadiusMeters: 500},
		{ID: "second", Center: center, RadiusMeters: 500},
	})

	change, changed := tr.OnPosition(fix(0.0005, 0))
	if !changed || change.Event.ID != "first" {
		t.Fatalf("expected the earlier candidate to win, got %+v", change)
	}

	// Reversed order flips the winner deterministically.
	tr2 := NewTracker()
	tr2.SetCandidates([]Event{
		{ID: "second", Center: center, RadiusMeters: 500},
		{ID: "first", Center: center, RadiusMeters: 500},
	})
	change, _ = tr2.OnPosition(fix(0.0005, 0))
	if change.Event.ID != "second" {
		t.Fatalf("expected reversed order to pick second, got %s", change.Event.ID)
	}
}

func TestTrackerEmitsOnlyOnChange(t *testing.T) {
	tr := NewTracker()
	tr.SetCandidates([]Event{{ID: "A", Center: geo.Point{Lat: 0, Lon: 0}, RadiusMeters: 100}})

	if _, changed := tr.OnPosition(fix(0.0005, 0)); !changed {
		t.Fatalf("expected enter")
	}
	if _, changed := tr.OnPosition(fix(0.0004, 0)); changed {
		t.Fatalf("expected no transition while staying inside the same fence")
	}
	change, changed := tr.OnPosition(fix(5, 5))
	if !changed || change.Kind != ChangeExited || change.Previous == nil || change.Previous.ID != "A" {
		t.Fatalf("expected exit from A, got %+v changed=%v", change, changed)
	}
}

func TestTrackerSwitchBetweenFences(t *testing.T) {
	tr := NewTracker()
	tr.SetCandidates([]Event{
		{ID: "A", Center: geo.Point{Lat: 0, Lon: 0}, RadiusMeters: 100},
		{ID: "B", Center: geo.Point{Lat: 0.01, Lon: 0}, RadiusMeters: 100},
	})

	if _, changed := tr.OnPosition(fix(0, 0)); !changed {
		t.Fatalf("expected enter into A")
	}
	change, changed := tr.OnPosition(fix(0.01, 0))
	if !changed || change.Kind != ChangeSwitched {
		t.Fatalf("expected switch, got %+v changed=%v", change, changed)
	}
	if change.Event.ID != "B" || change.Previous.ID != "A" {
		t.Fatalf("expected A->B switch, got %+v", change)
	}
}

func TestTrackerProviderErrorHoldsState(t *testing.T) {
	tr := NewTracker()
	tr.SetCandidates([]Event{{ID: "A", Center: geo.Point{Lat: 0, Lon: 0}, RadiusMeters: 100}})
	tr.OnPosition(fix(0, 0))

	provErr := errors.New("gps unavailable")
	tr.OnProviderError(provErr)

	st := tr.State()
	if !st.Inside || st.Current == nil || st.Current.ID != "A" {
		t.Fatalf("provider error must not clear containment, got %+v", st)
	}
	if !errors.Is(tr.Err(), provErr) {
		t.Fatalf("expected surfaced provider error")
	}

	// Next successful fix clears the error.
	tr.OnPosition(fix(0.0001, 0))
	if tr.Err() != nil {
		t.Fatalf("expected error cleared after successful fix")
	}
}
