package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"venuegate/internal/geo"
	"venuegate/internal/geofence"
)

// positionWSHandler receives push-based position fixes from a fan device
// and feeds them to the geofence tracker. Containment transitions are
// written back so the client can load or drop event-scoped products.
func (app *application) positionWSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		app.errorLog.Printf("position WS upgrade error: %v", err)
		return
	}

	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(firstHelloDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	var hello struct {
		DeviceID string `json:"deviceId"`
	}
	if err := conn.ReadJSON(&hello); err != nil || hello.DeviceID == "" {
		app.errorLog.Printf("invalid hello payload for position feed: %v", err)
		_ = writeClose(conn, websocket.ClosePolicyViolation, "hello required")
		_ = conn.Close()
		return
	}
	conn.SetReadDeadline(time.Now().Add(readDeadline))

	done := make(chan struct{})
	go pingLoop(conn, done)
	go app.handlePositionMessages(conn, hello.DeviceID, done)
}

func (app *application) handlePositionMessages(conn *websocket.Conn, deviceID string, done chan struct{}) {
	defer func() {
		close(done)
		_ = conn.Close()
	}()

	for {
		var msg struct {
			Type      string  `json:"type"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
			Timestamp int64   `json:"timestamp"`
			Message   string  `json:"message"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			_ = writeClose(conn, websocket.CloseNormalClosure, "read error")
			return
		}
		conn.SetReadDeadline(time.Now().Add(readDeadline))

		// The device reports provider failures in-band; state is held, not
		// cleared, and the error surfaces on the tracker.
		if msg.Type == "error" {
			app.tracker.OnProviderError(errors.New(msg.Message))
			continue
		}

		ts := time.Now()
		if msg.Timestamp > 0 {
			ts = time.UnixMilli(msg.Timestamp)
		}
		change, changed := app.tracker.OnPosition(geofence.Position{
			Point:     geo.Point{Lat: msg.Latitude, Lon: msg.Longitude},
			Timestamp: ts,
		})
		if !changed {
			continue
		}

		app.infoLog.Printf("device %s geofence %s", deviceID, change.Kind)
		out := map[string]interface{}{"kind": string(change.Kind)}
		if change.Event != nil {
			out["event_id"] = change.Event.ID
			out["event_name"] = change.Event.Name
		}
		if change.Previous != nil {
			out["previous_event_id"] = change.Previous.ID
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		if err := conn.WriteJSON(out); err != nil {
			return
		}
	}
}
