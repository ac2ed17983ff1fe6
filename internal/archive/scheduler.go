package archive

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Logger is the minimal logger required by the scheduler.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Record is the durable bookkeeping for the daily archive sweep. It
// survives process restarts through the Store.
type Record struct {
	LastRun  time.Time
	Archived int
	Enabled  bool
}

// Store persists the run record in a durable key-value store.
type Store interface {
	Load(ctx context.Context) (Record, error)
	Save(ctx context.Context, rec Record) error
}

// Sweeper archives expired events for a merchant and reports how many
// documents it touched. The mutation itself is opaque to the scheduler.
type Sweeper interface {
	Sweep(ctx context.Context, merchantID string) (int, error)
}

// Reporter receives the archived count after a successful sweep.
type Reporter interface {
	DispatchArchive(ctx context.Context, archived int)
}

const (
	defaultTick  = time.Hour
	sweepTimeout = time.Minute
)

// Scheduler runs the archive sweep at most once per calendar day. The tick
// source fires hourly; a guard on the persisted LastRun date skips ticks
// for days that already ran, so a failed sweep keeps retrying hourly until
// it succeeds or the day rolls over.
type Scheduler struct {
	merchantID string
	store      Store
	sweeper    Sweeper
	reporter   Reporter
	logger     Logger
	loc        *time.Location

	tick time.Duration
	now  func() time.Time

	// runMu serializes sweeps and record read-modify-write so a tick and a
	// manual trigger cannot double count.
	runMu sync.Mutex

	mu   sync.Mutex
	stop chan struct{}
}

func New(merchantID string, store Store, sweeper Sweeper, reporter Reporter, logger Logger, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		merchantID: merchantID,
		store:      store,
		sweeper:    sweeper,
		reporter:   reporter,
		logger:     logger,
		loc:        loc,
		tick:       defaultTick,
		now:        time.Now,
	}
}

// Enable starts the hourly tick source and persists the enabled flag.
// Enabling twice is a no-op. The supplied context bounds sweep work, not
// the toggle itself.
func (s *Scheduler) Enable(ctx context.Context) {
	s.mu.Lock()
	if s.stop != nil {
		s.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	s.stop = stop
	s.mu.Unlock()

	s.persistEnabled(ctx, true)
	go s.run(ctx, stop)
}

// Disable cancels the tick source without waiting for an in-flight sweep.
// Disabling twice is a no-op.
func (s *Scheduler) Disable(ctx context.Context) {
	s.mu.Lock()
	if s.stop == nil {
		s.mu.Unlock()
		return
	}
	close(s.stop)
	s.stop = nil
	s.mu.Unlock()

	s.persistEnabled(ctx, false)
}

// Enabled reports whether the tick source is currently running.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// TriggerNow bypasses the daily guard and always attempts a sweep. Success
// updates the persisted record exactly like the scheduled path.
func (s *Scheduler) TriggerNow(ctx context.Context) (int, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	rec, err := s.store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("archive: load run record: %w", err)
	}
	return s.sweepLocked(ctx, rec)
}

// RunRecord exposes the persisted record for status surfaces.
func (s *Scheduler) RunRecord(ctx context.Context) (Record, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.store.Load(ctx)
}

func (s *Scheduler) run(ctx context.Context, stop chan struct{}) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.runDue(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			s.runDue(ctx)
		}
	}
}

func (s *Scheduler) runDue(ctx context.Context) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	rec, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Errorf("archive: load run record: %v", err)
		return
	}
	if !rec.LastRun.IsZero() && sameDay(rec.LastRun.In(s.loc), s.now().In(s.loc)) {
		return
	}
	if _, err := s.sweepLocked(ctx, rec); err != nil {
		s.logger.Errorf("archive: sweep for %s: %v", s.merchantID, err)
	}
}

// sweepLocked runs the sweep and, only on success, marks today as done and
// accumulates the counter. Callers hold runMu.
func (s *Scheduler) sweepLocked(ctx context.Context, rec Record) (int, error) {
	sweepCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
	n, err := s.sweeper.Sweep(sweepCtx, s.merchantID)
	cancel()
	if err != nil {
		return 0, err
	}

	rec.LastRun = s.now()
	rec.Archived += n
	if err := s.store.Save(ctx, rec); err != nil {
		return n, fmt.Errorf("archive: save run record: %w", err)
	}
	if n > 0 {
		s.logger.Infof("archive: archived %d expired event(s) for %s", n, s.merchantID)
	}
	s.reporter.DispatchArchive(ctx, n)
	return n, nil
}

func (s *Scheduler) persistEnabled(ctx context.Context, enabled bool) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	rec, err := s.store.Load(ctx)
	if err != nil {
		s.logger.Errorf("archive: load run record: %v", err)
		return
	}
	rec.Enabled = enabled
	if err := s.store.Save(ctx, rec); err != nil {
		s.logger.Errorf("archive: save run record: %v", err)
	}
}

func sameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
