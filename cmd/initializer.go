package main

import (
	"context"
	"log"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"firebase.google.com/go/messaging"
	"github.com/redis/go-redis/v9"

	"venuegate/internal/archive"
	"venuegate/internal/config"
	"venuegate/internal/geofence"
	"venuegate/internal/notify"
	"venuegate/internal/orders"
	"venuegate/internal/store"
)

// appLogger adapts the std logger pair to the core Logger interfaces.
type appLogger struct {
	info *log.Logger
	err  *log.Logger
}

func (l appLogger) Infof(format string, args ...interface{})  { l.info.Printf(format, args...) }
func (l appLogger) Errorf(format string, args ...interface{}) { l.err.Printf(format, args...) }

// docSweeper lets the Firestore client satisfy archive.Sweeper.
type docSweeper struct {
	docs *store.Client
}

func (s docSweeper) Sweep(ctx context.Context, merchantID string) (int, error) {
	return s.docs.ArchiveExpired(ctx, merchantID, time.Now())
}

type application struct {
	errorLog *log.Logger
	infoLog  *log.Logger
	cfg      config.Config
	baseCtx  context.Context

	docs       *store.Client
	tracker    *geofence.Tracker
	reconciler *orders.Reconciler
	dispatcher *notify.Dispatcher
	scheduler  *archive.Scheduler
	feed       *FeedManager

	mu        sync.Mutex
	listenErr error
}

func initializeApp(ctx context.Context, cfg config.Config, fs *firestore.Client, msgClient *messaging.Client, rdb *redis.Client, errorLog, infoLog *log.Logger) *application {
	logger := appLogger{info: infoLog, err: errorLog}

	docs := store.New(fs, logger)
	sink := notify.NewFCMSink(msgClient, cfg.Merchant.DeviceToken)
	dispatcher := notify.NewDispatcher(sink, logger)

	loc := merchantLocation(cfg.Merchant.Timezone, errorLog)
	runStore := archive.NewRedisStore(rdb, cfg.Merchant.ID)
	scheduler := archive.New(cfg.Merchant.ID, runStore, docSweeper{docs: docs}, dispatcher, logger, loc)

	return &application{
		errorLog:   errorLog,
		infoLog:    infoLog,
		cfg:        cfg,
		baseCtx:    ctx,
		docs:       docs,
		tracker:    geofence.NewTracker(),
		reconciler: orders.NewReconciler(time.Now()),
		dispatcher: dispatcher,
		scheduler:  scheduler,
		feed:       NewFeedManager(),
	}
}

// start brings up the background plumbing: the merchant feed hub, the order
// snapshot listener, the catalog refresher, and the archive scheduler if
// the persisted record says it was enabled.
func (app *application) start(ctx context.Context) {
	go app.feed.Run()

	app.docs.ListenOrders(ctx, app.cfg.Merchant.ID, app.onOrderSnapshot, app.onListenerError)
	startCatalogRefresher(ctx, app)

	rec, err := app.scheduler.RunRecord(ctx)
	if err != nil {
		app.errorLog.Printf("archive: read run record on startup: %v", err)
		return
	}
	if rec.Enabled {
		app.scheduler.Enable(ctx)
		app.infoLog.Printf("archive: scheduler resumed (last run %v)", rec.LastRun)
	}
}

// onOrderSnapshot runs on the listener goroutine, so cycles are naturally
// FIFO and never overlap.
func (app *application) onOrderSnapshot(snapshot []orders.Order) {
	batch := app.reconciler.Reconcile(snapshot, time.Now())
	app.setListenErr(nil)
	if batch.Empty() {
		return
	}
	app.dispatcher.DispatchBatch(app.baseCtx, batch)
	app.feed.Broadcast(batch)
}

func (app *application) onListenerError(err error) {
	app.errorLog.Printf("order listener: %v", err)
	app.setListenErr(err)
}

func (app *application) setListenErr(err error) {
	app.mu.Lock()
	app.listenErr = err
	app.mu.Unlock()
}

func (app *application) listenerErr() error {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.listenErr
}

func merchantLocation(name string, errorLog *log.Logger) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		errorLog.Printf("failed to load location %s: %v", name, err)
		return time.Local
	}
	return loc
}
