package main

import (
	"context"
	"time"
)

const catalogRefreshTimeout = 30 * time.Second

// startCatalogRefresher keeps the tracker's candidate set in sync with the
// remote event catalog. The tracker itself never fetches; this loop is the
// external refresher.
func startCatalogRefresher(ctx context.Context, app *application) {
	go func() {
		ticker := time.NewTicker(time.Duration(app.cfg.CatalogRefreshMinutes) * time.Minute)
		defer ticker.Stop()

		runOnce := func() {
			runCtx, cancel := context.WithTimeout(ctx, catalogRefreshTimeout)
			events, err := app.docs.ActiveEvents(runCtx, app.cfg.Merchant.ID, time.Now())
			cancel()
			if err != nil {
				app.errorLog.Printf("catalog refresh: %v", err)
				return
			}
			app.tracker.SetCandidates(events)
		}

		runOnce()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runOnce()
			}
		}
	}()
}
