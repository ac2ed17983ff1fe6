package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"venuegate/internal/geo"
	"venuegate/internal/geofence"
	"venuegate/internal/orders"
)

// Logger is the minimal logger required by the store.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

var (
	ErrOrderNotFound     = errors.New("store: order not found")
	ErrTokenMismatch     = errors.New("store: redemption token mismatch")
	ErrInvalidTransition = errors.New("store: invalid status transition")
)

const (
	eventsCollection = "events"
	ordersCollection = "orders"
)

// Client wraps the Firestore document store the storefront lives in. The
// core never owns the document schema beyond what it reads and writes here.
type Client struct {
	fs     *firestore.Client
	logger Logger
}

func New(fs *firestore.Client, logger Logger) *Client {
	return &Client{fs: fs, logger: logger}
}

type eventDoc struct {
	MerchantID   string    `firestore:"merchant_id"`
	Name         string    `firestore:"name"`
	Latitude     float64   `firestore:"latitude"`
	Longitude    float64   `firestore:"longitude"`
	RadiusMeters float64   `firestore:"radius_meters"`
	StartsAt     time.Time `firestore:"starts_at"`
	EndsAt       time.Time `firestore:"ends_at"`
	Active       bool      `firestore:"active"`
}

type itemDoc struct {
	ProductID  string `firestore:"product_id"`
	Name       string `firestore:"name"`
	Quantity   int    `firestore:"quantity"`
	PriceCents int64  `firestore:"price_cents"`
}

type orderDoc struct {
	MerchantID  string    `firestore:"merchant_id"`
	Status      string    `firestore:"status"`
	AmountCents int64     `firestore:"amount_cents"`
	Items       []itemDoc `firestore:"items"`
	CreatedAt   time.Time `firestore:"created_at"`
	QRCode      string    `firestore:"qr_code"`
}

func (d orderDoc) toOrder(id string) orders.Order {
	o := orders.Order{
		ID:          id,
		MerchantID:  d.MerchantID,
		Status:      d.Status,
		AmountCents: d.AmountCents,
		CreatedAt:   d.CreatedAt,
		QRCode:      d.QRCode,
	}
	for _, it := range d.Items {
		o.Items = append(o.Items, orders.Item{
			ProductID:  it.ProductID,
			Name:       it.Name,
			Quantity:   it.Quantity,
			PriceCents: it.PriceCents,
		})
	}
	return o
}

// ActiveEvents returns the merchant's active geofence-bearing events whose
// window has not ended, in a stable order for the tracker's candidate scan.
func (c *Client) ActiveEvents(ctx context.Context, merchantID string, now time.Time) ([]geofence.Event, error) {
	query := c.fs.Collection(eventsCollection).
		Where("merchant_id", "==", merchantID).
		Where("active", "==", true).
		Where("ends_at", ">", now).
		OrderBy("ends_at", firestore.Asc)

	var events []geofence.Event
	iter := query.Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("store: list active events: %w", err)
		}
		var ed eventDoc
		if err := doc.DataTo(&ed); err != nil {
			c.logger.Errorf("store: skip malformed event %s: %v", doc.Ref.ID, err)
			continue
		}
		events = append(events, geofence.Event{
			ID:           doc.Ref.ID,
			Name:         ed.Name,
			Center:       geo.Point{Lat: ed.Latitude, Lon: ed.Longitude},
			RadiusMeters: ed.RadiusMeters,
			StartsAt:     ed.StartsAt,
			EndsAt:       ed.EndsAt,
		})
	}
	return events, nil
}

// ListenOrders subscribes to the merchant's order collection. Firestore
// redelivers the full current result set on every underlying change; each
// delivery is handed to deliver in document order, one at a time. Malformed
// documents are skipped with a diagnostic and never abort the batch. A
// listener transport failure goes to onErr and ends the subscription; the
// consumer keeps its previous state.
func (c *Client) ListenOrders(ctx context.Context, merchantID string, deliver func([]orders.Order), onErr func(error)) {
	query := c.fs.Collection(ordersCollection).
		Where("merchant_id", "==", merchantID).
		OrderBy("created_at", firestore.Asc)

	snapIter := query.Snapshots(ctx)
	go func() {
		defer snapIter.Stop()
		for {
			snap, err := snapIter.Next()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				onErr(fmt.Errorf("store: order listener: %w", err))
				return
			}

			list := make([]orders.Order, 0, snap.Size)
			docs := snap.Documents
			for {
				doc, err := docs.Next()
				if err == iterator.Done {
					break
				}
				if err != nil {
					onErr(fmt.Errorf("store: order listener read: %w", err))
					break
				}
				var od orderDoc
				if err := doc.DataTo(&od); err != nil {
					c.logger.Errorf("store: skip malformed order %s: %v", doc.Ref.ID, err)
					continue
				}
				list = append(list, od.toOrder(doc.Ref.ID))
			}
			deliver(list)
		}
	}()
}

// ArchiveExpired deactivates the merchant's active events whose window
// ended before now and returns how many documents were archived.
func (c *Client) ArchiveExpired(ctx context.Context, merchantID string, now time.Time) (int, error) {
	query := c.fs.Collection(eventsCollection).
		Where("merchant_id", "==", merchantID).
		Where("active", "==", true).
		Where("ends_at", "<", now)

	archived := 0
	iter := query.Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return archived, fmt.Errorf("store: list expired events: %w", err)
		}
		_, err = doc.Ref.Update(ctx, []firestore.Update{
			{Path: "active", Value: false},
			{Path: "archived_at", Value: now},
		})
		if err != nil {
			return archived, fmt.Errorf("store: archive event %s: %w", doc.Ref.ID, err)
		}
		archived++
	}
	return archived, nil
}

// ConfirmPickup validates a scanned redemption token against the order and
// applies the pending_pickup -> picked_up transition transactionally.
func (c *Client) ConfirmPickup(ctx context.Context, orderID, scannedToken string) error {
	ref := c.fs.Collection(ordersCollection).Doc(orderID)
	err := c.fs.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return ErrOrderNotFound
		}
		var od orderDoc
		if err := doc.DataTo(&od); err != nil {
			return fmt.Errorf("store: decode order %s: %w", orderID, err)
		}
		if od.QRCode == "" || od.QRCode != scannedToken {
			return ErrTokenMismatch
		}
		if od.Status == orders.StatusPickedUp {
			return nil
		}
		if !orders.CanTransition(od.Status, orders.StatusPickedUp) {
			return ErrInvalidTransition
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: orders.StatusPickedUp},
			{Path: "picked_up_at", Value: time.Now()},
		})
	})
	if err != nil {
		return err
	}
	c.logger.Infof("store: order %s confirmed picked up", orderID)
	return nil
}

// OrderQRToken returns the redemption token bound to an order.
func (c *Client) OrderQRToken(ctx context.Context, orderID string) (string, error) {
	doc, err := c.fs.Collection(ordersCollection).Doc(orderID).Get(ctx)
	if err != nil {
		return "", ErrOrderNotFound
	}
	var od orderDoc
	if err := doc.DataTo(&od); err != nil {
		return "", fmt.Errorf("store: decode order %s: %w", orderID, err)
	}
	return od.QRCode, nil
}
