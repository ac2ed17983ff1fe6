package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"venuegate/internal/qr"
	"venuegate/internal/store"
)

func (app *application) health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"status": "ok"}
	if err := app.listenerErr(); err != nil {
		resp["order_listener_error"] = err.Error()
	}
	app.writeJSON(w, http.StatusOK, resp)
}

func (app *application) trackerState(w http.ResponseWriter, r *http.Request) {
	st := app.tracker.State()
	resp := map[string]interface{}{"inside": st.Inside}
	if st.Current != nil {
		resp["event_id"] = st.Current.ID
		resp["event_name"] = st.Current.Name
	}
	if st.Position != nil {
		resp["latitude"] = st.Position.Point.Lat
		resp["longitude"] = st.Position.Point.Lon
	}
	if err := app.tracker.Err(); err != nil {
		resp["provider_error"] = err.Error()
	}
	app.writeJSON(w, http.StatusOK, resp)
}

func (app *application) notificationState(w http.ResponseWriter, r *http.Request) {
	st := app.dispatcher.State()
	app.writeJSON(w, http.StatusOK, map[string]interface{}{
		"has_pending_alert": st.HasPendingAlert,
		"pending_count":     st.PendingCount,
	})
}

func (app *application) notificationAck(w http.ResponseWriter, r *http.Request) {
	app.dispatcher.Acknowledge(r.Context())
	app.writeJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
}

func (app *application) archiveStatus(w http.ResponseWriter, r *http.Request) {
	rec, err := app.scheduler.RunRecord(r.Context())
	if err != nil {
		app.serverError(w, err)
		return
	}
	resp := map[string]interface{}{
		"enabled":  app.scheduler.Enabled(),
		"archived": rec.Archived,
	}
	if !rec.LastRun.IsZero() {
		resp["last_run"] = rec.LastRun
	}
	app.writeJSON(w, http.StatusOK, resp)
}

func (app *application) archiveEnable(w http.ResponseWriter, r *http.Request) {
	app.scheduler.Enable(app.baseCtx)
	app.writeJSON(w, http.StatusOK, map[string]string{"status": "enabled"})
}

func (app *application) archiveDisable(w http.ResponseWriter, r *http.Request) {
	app.scheduler.Disable(app.baseCtx)
	app.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
}

func (app *application) archiveRun(w http.ResponseWriter, r *http.Request) {
	n, err := app.scheduler.TriggerNow(r.Context())
	if err != nil {
		app.serverError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, map[string]int{"archived": n})
}

func (app *application) orderQR(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get(":id")
	if orderID == "" {
		app.clientError(w, http.StatusBadRequest)
		return
	}
	token, err := app.docs.OrderQRToken(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			app.clientError(w, http.StatusNotFound)
			return
		}
		app.serverError(w, err)
		return
	}
	img, err := qr.Encode(token, qr.DefaultSize)
	if err != nil {
		app.serverError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(img); err != nil {
		app.errorLog.Printf("write qr image: %v", err)
	}
}

func (app *application) orderPickup(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get(":id")
	if orderID == "" {
		app.clientError(w, http.StatusBadRequest)
		return
	}
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		app.clientError(w, http.StatusBadRequest)
		return
	}

	err := app.docs.ConfirmPickup(r.Context(), orderID, req.Token)
	switch {
	case err == nil:
		app.writeJSON(w, http.StatusOK, map[string]string{"status": "picked_up"})
	case errors.Is(err, store.ErrOrderNotFound):
		app.clientError(w, http.StatusNotFound)
	case errors.Is(err, store.ErrTokenMismatch):
		app.clientError(w, http.StatusConflict)
	case errors.Is(err, store.ErrInvalidTransition):
		app.clientError(w, http.StatusConflict)
	default:
		app.serverError(w, err)
	}
}
