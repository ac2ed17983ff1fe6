package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"venuegate/internal/orders"
)

// Logger is the minimal logger required by the dispatcher.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Sink delivers local notifications to the merchant device. Implementations
// deduplicate by id: posting the same id again overwrites the earlier
// notification instead of duplicating it.
type Sink interface {
	Post(ctx context.Context, id, title, body string, badge int) error
	ClearBadge(ctx context.Context) error
}

// Separate identifier namespaces keep "new order" and "completed"
// notifications for the same order id from colliding.
var (
	nsNewOrder  = uuid.NewSHA1(uuid.NameSpaceOID, []byte("venuegate.notify.new_order"))
	nsCompleted = uuid.NewSHA1(uuid.NameSpaceOID, []byte("venuegate.notify.completed"))
	nsArchive   = uuid.NewSHA1(uuid.NameSpaceOID, []byte("venuegate.notify.archive"))
)

// NewOrderID returns the deterministic identifier for an order's "new
// order" notification. Re-delivering the same order id yields the same
// identifier, so the sink overwrites rather than duplicates.
func NewOrderID(orderID string) string {
	return uuid.NewSHA1(nsNewOrder, []byte(orderID)).String()
}

// CompletedID returns the identifier for an order's pickup-completed
// notification.
func CompletedID(orderID string) string {
	return uuid.NewSHA1(nsCompleted, []byte(orderID)).String()
}

const autoClearAfter = 30 * time.Second

// State mirrors the merchant-facing alert fields. It auto-resets 30 seconds
// after the alert is raised unless a later dispatch restarts the window.
type State struct {
	HasPendingAlert bool
	PendingCount    int
}

// Dispatcher converts reconciliation deltas and archive results into
// deduplicated notifications and badge counts. It holds no persisted state
// beyond State.
type Dispatcher struct {
	sink   Sink
	logger Logger

	mu    sync.Mutex
	state State
	timer *time.Timer

	// afterFunc is swapped in tests for a deterministic timer source.
	afterFunc func(d time.Duration, f func()) *time.Timer
}

func NewDispatcher(sink Sink, logger Logger) *Dispatcher {
	return &Dispatcher{sink: sink, logger: logger, afterFunc: time.AfterFunc}
}

// DispatchBatch posts one notification per new order and one
// pickup-completed notification per terminal success transition. Each call
// that carries new orders restarts the single 30 second auto-clear window;
// timers never stack.
func (d *Dispatcher) DispatchBatch(ctx context.Context, batch orders.DeltaBatch) {
	if n := len(batch.NewOrders); n > 0 {
		d.mu.Lock()
		d.state.PendingCount += n
		d.state.HasPendingAlert = true
		badge := d.state.PendingCount
		d.restartAutoClearLocked()
		d.mu.Unlock()

		for _, o := range batch.NewOrders {
			body := fmt.Sprintf("%d item(s), %s", itemCount(o), formatAmount(o.AmountCents))
			if err := d.sink.Post(ctx, NewOrderID(o.ID), "New pickup order", body, badge); err != nil {
				d.logger.Errorf("notify: post new order %s: %v", o.ID, err)
			}
		}
		d.logger.Infof("notify: %d new order(s), pending count %d", n, badge)
	}

	for _, o := range batch.StatusChangedOrders {
		if o.Status != orders.StatusPickedUp {
			continue
		}
		body := fmt.Sprintf("Order %s was handed over", o.ID)
		if err := d.sink.Post(ctx, CompletedID(o.ID), "Order picked up", body, 0); err != nil {
			d.logger.Errorf("notify: post completion %s: %v", o.ID, err)
		}
	}
}

// DispatchArchive posts a single summary notification for a sweep that
// archived n events. A zero count posts nothing.
func (d *Dispatcher) DispatchArchive(ctx context.Context, archived int) {
	if archived <= 0 {
		return
	}
	day := time.Now().Format("2006-01-02")
	id := uuid.NewSHA1(nsArchive, []byte(day)).String()
	body := fmt.Sprintf("Archived %d expired event(s)", archived)
	if err := d.sink.Post(ctx, id, "Events archived", body, 0); err != nil {
		d.logger.Errorf("notify: post archive summary: %v", err)
	}
}

// Acknowledge is the explicit reset: it clears the alert flag, the pending
// count, the badge, and any outstanding auto-clear timer.
func (d *Dispatcher) Acknowledge(ctx context.Context) {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.state = State{}
	d.mu.Unlock()

	if err := d.sink.ClearBadge(ctx); err != nil {
		d.logger.Errorf("notify: clear badge: %v", err)
	}
}

// State returns a copy of the current alert state.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Dispatcher) restartAutoClearLocked() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.afterFunc(autoClearAfter, d.autoClear)
}

func (d *Dispatcher) autoClear() {
	d.mu.Lock()
	d.state = State{}
	d.timer = nil
	d.mu.Unlock()
}

func itemCount(o orders.Order) int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	if n == 0 {
		n = len(o.Items)
	}
	return n
}

func formatAmount(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
