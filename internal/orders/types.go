package orders

import "time"

// Status constants for the pickup order state machine. Orders are created
// externally as pending_pickup and end in exactly one terminal state.
const (
	StatusPendingPickup = "pending_pickup"
	StatusPickedUp      = "picked_up"
	StatusCancelled     = "cancelled"
)

var transitions = map[string]map[string]struct{}{
	StatusPendingPickup: {StatusPickedUp: {}, StatusCancelled: {}},
	StatusPickedUp:      {},
	StatusCancelled:     {},
}

// CanTransition returns whether an order may move from the current status
// to the target status.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// Terminal reports whether a status permits no further transitions.
func Terminal(status string) bool {
	allowed, ok := transitions[status]
	return ok && len(allowed) == 0
}

// Item is one purchased line in a pickup order.
type Item struct {
	ProductID  string
	Name       string
	Quantity   int
	PriceCents int64
}

// Order mirrors the remote order document. The reconciler only observes
// Status; transitions happen through the store's confirmation path.
type Order struct {
	ID          string
	MerchantID  string
	Status      string
	AmountCents int64
	Items       []Item
	CreatedAt   time.Time
	QRCode      string
}

// DeltaBatch is the output of one reconciliation cycle, produced once and
// consumed once by the notification dispatcher.
type DeltaBatch struct {
	NewOrders           []Order
	StatusChangedOrders []Order
}

// Empty reports whether the batch carries no deltas.
func (b DeltaBatch) Empty() bool {
	return len(b.NewOrders) == 0 && len(b.StatusChangedOrders) == 0
}
