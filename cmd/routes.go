package main

import (
	"net/http"

	"github.com/bmizerany/pat"
	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	standardMiddleware := alice.New(app.recoverPanic, app.logRequest, secureHeaders)
	jsonMiddleware := standardMiddleware.Append(makeResponseJSON)

	mux := pat.New()

	mux.Get("/health", jsonMiddleware.ThenFunc(app.health))

	mux.Get("/tracker/state", jsonMiddleware.ThenFunc(app.trackerState))

	mux.Get("/notifications/state", jsonMiddleware.ThenFunc(app.notificationState))
	mux.Post("/notifications/ack", jsonMiddleware.ThenFunc(app.notificationAck))

	mux.Get("/archive/status", jsonMiddleware.ThenFunc(app.archiveStatus))
	mux.Post("/archive/enable", jsonMiddleware.ThenFunc(app.archiveEnable))
	mux.Post("/archive/disable", jsonMiddleware.ThenFunc(app.archiveDisable))
	mux.Post("/archive/run", jsonMiddleware.ThenFunc(app.archiveRun))

	mux.Get("/orders/:id/qr", standardMiddleware.ThenFunc(app.orderQR))
	mux.Post("/orders/:id/pickup", jsonMiddleware.ThenFunc(app.orderPickup))

	mux.Get("/ws/position", http.HandlerFunc(app.positionWSHandler))
	mux.Get("/ws/feed", http.HandlerFunc(app.feedWSHandler))

	return mux
}
