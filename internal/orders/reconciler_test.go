package orders

import (
	"testing"
	"time"
)

var baseTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func pending(id string, createdAt time.Time) Order {
	return Order{ID: id, MerchantID: "m1", Status: StatusPendingPickup, AmountCents: 2500, CreatedAt: createdAt}
}

func TestReconcileClassifiesFreshOrderAsNew(t *testing.T) {
	r := NewReconciler(baseTime.Add(-time.Second))
	batch := r.Reconcile([]Order{pending("1", baseTime)}, baseTime.Add(time.Second))
	if len(batch.NewOrders) != 1 || batch.NewOrders[0].ID != "1" {
		t.Fatalf("expected order 1 classified as new, got %+v", batch)
	}
	if len(batch.StatusChangedOrders) != 0 {
		t.Fatalf("expected no status changes, got %+v", batch.StatusChangedOrders)
	}
}

func TestReconcileIdempotentOnRepeatedSnapshot(t *testing.T) {
	r := NewReconciler(baseTime.Add(-time.Second))
	snapshot := []Order{pending("1", baseTime), pending("2", baseTime)}

	first := r.Reconcile(snapshot, baseTime.Add(time.Second))
	if len(first.NewOrders) != 2 {
		t.Fatalf("expected 2 new orders on first cycle, got %d", len(first.NewOrders))
	}
	second := r.Reconcile(snapshot, baseTime.Add(2*time.Second))
	if !second.Empty() {
		t.Fatalf("expected empty batch on repeated snapshot, got %+v", second)
	}
}

func TestReconcileColdStartIsNeverNew(t *testing.T) {
	// The reconciler starts with its clock mark at construction time, so
	// orders created before the process came up are already known even
	// though the cache is empty.
	start := baseTime
	r := NewReconciler(start)
	batch := r.Reconcile([]Order{pending("old", start.Add(-time.Hour))}, start.Add(time.Second))
	if !batch.Empty() {
		t.Fatalf("cold-start order must not be classified as new: %+v", batch)
	}
}

func TestReconcileStatusChangeReportedOnce(t *testing.T) {
	r := NewReconciler(baseTime.Add(-time.Second))
	order := pending("1", baseTime)
	r.Reconcile([]Order{order}, baseTime.Add(time.Second))

	order.Status = StatusPickedUp
	changed := r.Reconcile([]Order{order}, baseTime.Add(2*time.Second))
	if len(changed.StatusChangedOrders) != 1 || changed.StatusChangedOrders[0].Status != StatusPickedUp {
		t.Fatalf("expected one status change, got %+v", changed)
	}
	if len(changed.NewOrders) != 0 {
		t.Fatalf("status change must not re-report as new: %+v", changed.NewOrders)
	}

	again := r.Reconcile([]Order{order}, baseTime.Add(3*time.Second))
	if !again.Empty() {
		t.Fatalf("status change must be reported exactly once, got %+v", again)
	}
}

func TestReconcileAbsenceIsSilentRemoval(t *testing.T) {
	r := NewReconciler(baseTime.Add(-time.Second))
	r.Reconcile([]Order{pending("1", baseTime), pending("2", baseTime)}, baseTime.Add(time.Second))

	batch := r.Reconcile([]Order{pending("2", baseTime)}, baseTime.Add(2*time.Second))
	if !batch.Empty() {
		t.Fatalf("an order vanishing from the snapshot is not a delta, got %+v", batch)
	}
}

func TestReconcileAdvancesClockMark(t *testing.T) {
	r := NewReconciler(baseTime)
	asOf := baseTime.Add(time.Minute)
	r.Reconcile(nil, asOf)
	if !r.LastCheck().Equal(asOf) {
		t.Fatalf("expected clock mark %v, got %v", asOf, r.LastCheck())
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{StatusPendingPickup, StatusPickedUp, true},
		{StatusPendingPickup, StatusCancelled, true},
		{StatusPickedUp, StatusCancelled, false},
		{StatusCancelled, StatusPickedUp, false},
		{StatusPickedUp, StatusPickedUp, true},
		{"bogus", StatusPickedUp, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
	if !Terminal(StatusPickedUp) || !Terminal(StatusCancelled) || Terminal(StatusPendingPickup) {
		t.Fatalf("terminal classification wrong")
	}
}
