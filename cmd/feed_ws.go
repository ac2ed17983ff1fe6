package main

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"venuegate/internal/orders"
)

// FeedManager broadcasts reconciliation deltas to connected merchant
// dashboards. All operations on clients happen on the Run goroutine.
type FeedManager struct {
	clients    map[*websocket.Conn]struct{}
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan orders.DeltaBatch
}

func NewFeedManager() *FeedManager {
	return &FeedManager{
		clients:    make(map[*websocket.Conn]struct{}),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		broadcast:  make(chan orders.DeltaBatch, 16),
	}
}

func (fm *FeedManager) Run() {
	for {
		select {
		case conn := <-fm.register:
			fm.clients[conn] = struct{}{}
		case conn := <-fm.unregister:
			if _, ok := fm.clients[conn]; ok {
				_ = conn.Close()
				delete(fm.clients, conn)
			}
		case batch := <-fm.broadcast:
			payload := feedPayload(batch)
			for conn := range fm.clients {
				_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := conn.WriteJSON(payload); err != nil {
					_ = conn.Close()
					delete(fm.clients, conn)
				}
			}
		}
	}
}

// Broadcast hands a batch to the hub without blocking the reconciliation
// path; a full buffer drops the frame rather than stalling the listener.
func (fm *FeedManager) Broadcast(batch orders.DeltaBatch) {
	select {
	case fm.broadcast <- batch:
	default:
	}
}

func feedPayload(batch orders.DeltaBatch) map[string]interface{} {
	newIDs := make([]string, 0, len(batch.NewOrders))
	for _, o := range batch.NewOrders {
		newIDs = append(newIDs, o.ID)
	}
	changed := make([]map[string]string, 0, len(batch.StatusChangedOrders))
	for _, o := range batch.StatusChangedOrders {
		changed = append(changed, map[string]string{"id": o.ID, "status": o.Status})
	}
	return map[string]interface{}{
		"new_orders":     newIDs,
		"status_changed": changed,
	}
}

func (app *application) feedWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		app.errorLog.Printf("feed WS upgrade error: %v", err)
		return
	}

	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	app.feed.register <- conn

	done := make(chan struct{})
	go pingLoop(conn, done)
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				app.feed.unregister <- conn
				return
			}
			conn.SetReadDeadline(time.Now().Add(readDeadline))
		}
	}()
}
