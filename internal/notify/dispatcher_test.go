package notify

import (
	"context"
	"testing"
	"time"

	"venuegate/internal/orders"
)

type testLogger struct{}

func (testLogger) Infof(string, ...interface{})  {}
func (testLogger) Errorf(string, ...interface{}) {}

type recordedPost struct {
	id    string
	title string
	body  string
	badge int
}

type stubSink struct {
	posts        []recordedPost
	badgeCleared int
}

func (s *stubSink) Post(_ context.Context, id, title, body string, badge int) error {
	s.posts = append(s.posts, recordedPost{id: id, title: title, body: body, badge: badge})
	return nil
}

func (s *stubSink) ClearBadge(context.Context) error {
	s.badgeCleared++
	return nil
}

// timerProbe captures scheduled auto-clear timers without waiting on them.
type timerProbe struct {
	durations []time.Duration
	timers    []*time.Timer
	callbacks []func()
}

func (p *timerProbe) afterFunc(d time.Duration, f func()) *time.Timer {
	t := time.AfterFunc(10*time.Minute, f)
	p.durations = append(p.durations, d)
	p.timers = append(p.timers, t)
	p.callbacks = append(p.callbacks, f)
	return t
}

func newTestDispatcher() (*Dispatcher, *stubSink, *timerProbe) {
	sink := &stubSink{}
	probe := &timerProbe{}
	d := NewDispatcher(sink, testLogger{})
	d.afterFunc = probe.afterFunc
	return d, sink, probe
}

func newOrderBatch(ids ...string) orders.DeltaBatch {
	var batch orders.DeltaBatch
	for _, id := range ids {
		batch.NewOrders = append(batch.NewOrders, orders.Order{
			ID: id, Status: orders.StatusPendingPickup, AmountCents: 1500,
			Items: []orders.Item{{ProductID: "p1", Quantity: 1}},
		})
	}
	return batch
}

func TestDispatchBatchRaisesAlertAndCount(t *testing.T) {
	d, sink, probe := newTestDispatcher()
	d.DispatchBatch(context.Background(), newOrderBatch("1", "2"))

	st := d.State()
	if !st.HasPendingAlert || st.PendingCount != 2 {
		t.Fatalf("expected alert with count 2, got %+v", st)
	}
	if len(sink.posts) != 2 {
		t.Fatalf("expected 2 posts, got %d", len(sink.posts))
	}
	if sink.posts[0].badge != 2 || sink.posts[1].badge != 2 {
		t.Fatalf("expected badge 2 on both posts, got %+v", sink.posts)
	}
	if len(probe.durations) != 1 || probe.durations[0] != 30*time.Second {
		t.Fatalf("expected one 30s auto-clear timer, got %+v", probe.durations)
	}
}

func TestDispatchRestartsAutoClearWindow(t *testing.T) {
	d, _, probe := newTestDispatcher()
	ctx := context.Background()

	d.DispatchBatch(ctx, newOrderBatch("1"))
	d.DispatchBatch(ctx, newOrderBatch("2"))

	if len(probe.timers) != 2 {
		t.Fatalf("expected a timer per dispatch, got %d", len(probe.timers))
	}
	// The dispatcher must have stopped the first timer when arming the
	// second one, so stopping it again reports it was no longer active.
	if probe.timers[0].Stop() {
		t.Fatalf("first auto-clear timer should have been cancelled by the second dispatch")
	}
	if !probe.timers[1].Stop() {
		t.Fatalf("second auto-clear timer should still be pending")
	}

	// Firing the surviving window resets the state.
	probe.callbacks[1]()
	if st := d.State(); st.HasPendingAlert || st.PendingCount != 0 {
		t.Fatalf("expected auto-clear to reset state, got %+v", st)
	}
}

func TestDeterministicIdentifiers(t *testing.T) {
	if NewOrderID("42") != NewOrderID("42") {
		t.Fatalf("new-order id must be deterministic")
	}
	if CompletedID("42") != CompletedID("42") {
		t.Fatalf("completed id must be deterministic")
	}
	if NewOrderID("42") == CompletedID("42") {
		t.Fatalf("the two notification classes must not share identifiers")
	}
}

func TestRedeliverySameOrderOverwrites(t *testing.T) {
	d, sink, _ := newTestDispatcher()
	ctx := context.Background()
	d.DispatchBatch(ctx, newOrderBatch("1"))
	d.DispatchBatch(ctx, newOrderBatch("1"))

	if sink.posts[0].id != sink.posts[1].id {
		t.Fatalf("re-delivered order must reuse its notification id")
	}
}

func TestCompletedOrdersUseSecondClass(t *testing.T) {
	d, sink, probe := newTestDispatcher()
	batch := orders.DeltaBatch{
		StatusChangedOrders: []orders.Order{
			{ID: "1", Status: orders.StatusPickedUp},
			{ID: "2", Status: orders.StatusCancelled},
		},
	}
	d.DispatchBatch(context.Background(), batch)

	if len(sink.posts) != 1 {
		t.Fatalf("only terminal-success transitions notify, got %d posts", len(sink.posts))
	}
	if sink.posts[0].id != CompletedID("1") {
		t.Fatalf("expected completed-class id, got %s", sink.posts[0].id)
	}
	if len(probe.durations) != 0 {
		t.Fatalf("status-only batches must not arm the auto-clear timer")
	}
	if st := d.State(); st.HasPendingAlert {
		t.Fatalf("status-only batches must not raise the alert")
	}
}

func TestDispatchArchive(t *testing.T) {
	d, sink, _ := newTestDispatcher()
	ctx := context.Background()

	d.DispatchArchive(ctx, 0)
	if len(sink.posts) != 0 {
		t.Fatalf("zero archived events must post nothing")
	}

	d.DispatchArchive(ctx, 3)
	if len(sink.posts) != 1 {
		t.Fatalf("expected one summary post, got %d", len(sink.posts))
	}
}

func TestAcknowledgeResetsEverything(t *testing.T) {
	d, sink, probe := newTestDispatcher()
	ctx := context.Background()
	d.DispatchBatch(ctx, newOrderBatch("1"))

	d.Acknowledge(ctx)
	if st := d.State(); st.HasPendingAlert || st.PendingCount != 0 {
		t.Fatalf("expected acknowledged state, got %+v", st)
	}
	if sink.badgeCleared != 1 {
		t.Fatalf("expected badge clear, got %d", sink.badgeCleared)
	}
	if probe.timers[0].Stop() {
		t.Fatalf("acknowledge should cancel the pending auto-clear timer")
	}
}
