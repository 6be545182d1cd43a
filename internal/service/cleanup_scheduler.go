package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sandeepkv93/edupro-device-guard/internal/observability"
)

const (
	DefaultCleanupInterval = 6 * time.Hour
	DefaultCleanupLeaseTTL = 10 * time.Minute
)

type DeviceCleaner interface {
	CleanupInactiveDevices(ctx context.Context) (int64, error)
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFactory func(d time.Duration) Ticker

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) Ticker { return timeTicker{t: time.NewTicker(d)} }

type SchedulerStatus struct {
	IsRunning bool       `json:"is_running"`
	Started   bool       `json:"started"`
	NextRunAt *time.Time `json:"next_run_at,omitempty"`
}

type SchedulerOption func(*CleanupScheduler)

func WithSchedulerClock(now func() time.Time) SchedulerOption {
	return func(s *CleanupScheduler) { s.now = now }
}

func WithTickerFactory(f TickerFactory) SchedulerOption {
	return func(s *CleanupScheduler) { s.newTicker = f }
}

// CleanupScheduler runs device cleanup once on Start and then on a fixed interval. At most one
// sweep runs at a time per process, whether scheduled or manual.
type CleanupScheduler struct {
	cleaner   DeviceCleaner
	lease     CleanupLease
	interval  time.Duration
	leaseTTL  time.Duration
	logger    *slog.Logger
	now       func() time.Time
	newTicker TickerFactory

	running atomic.Bool

	mu       sync.Mutex
	started  bool
	lastTick time.Time
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewCleanupScheduler(
	cleaner DeviceCleaner,
	lease CleanupLease,
	interval time.Duration,
	leaseTTL time.Duration,
	logger *slog.Logger,
	opts ...SchedulerOption,
) *CleanupScheduler {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	if leaseTTL <= 0 {
		leaseTTL = DefaultCleanupLeaseTTL
	}
	if lease == nil {
		lease = NewNoopCleanupLease()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &CleanupScheduler{
		cleaner:   cleaner,
		lease:     lease,
		interval:  interval,
		leaseTTL:  leaseTTL,
		logger:    logger,
		now:       time.Now,
		newTicker: newTimeTicker,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start is a no-op when the scheduler is already started.
func (s *CleanupScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.started = true
	s.lastTick = s.now()
	s.cancel = cancel
	s.done = make(chan struct{})

	ticker := s.newTicker(s.interval)
	go s.loop(ctx, ticker, s.done)
	s.logger.Info("device cleanup scheduler started", "interval", s.interval)
}

// Stop halts the ticker, cancels an in-flight scheduled sweep and waits for the loop to exit.
func (s *CleanupScheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("device cleanup scheduler stopped")
}

func (s *CleanupScheduler) loop(ctx context.Context, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	s.runScheduled(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			s.mu.Lock()
			s.lastTick = s.now()
			s.mu.Unlock()
			s.runScheduled(ctx)
		}
	}
}

func (s *CleanupScheduler) runScheduled(ctx context.Context) {
	n, err := s.run(ctx, "scheduled")
	switch {
	case errors.Is(err, ErrCleanupInProgress):
		s.logger.Info("device cleanup skipped, previous run still in progress")
	case errors.Is(err, ErrCleanupLeaseHeld):
		s.logger.Info("device cleanup skipped, lease held by another instance")
	case err != nil:
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("device cleanup failed", "error", err)
	default:
		s.logger.Info("device cleanup completed", "deactivated", n)
	}
}

// RunCleanup triggers one sweep immediately. It returns ErrCleanupInProgress when a sweep is
// already running in this process and ErrCleanupLeaseHeld when another instance holds the lease.
func (s *CleanupScheduler) RunCleanup(ctx context.Context) (int64, error) {
	return s.run(ctx, "manual")
}

func (s *CleanupScheduler) run(ctx context.Context, trigger string) (int64, error) {
	if !s.running.CompareAndSwap(false, true) {
		observability.RecordCleanupRun(ctx, trigger, "in_progress", 0)
		return 0, ErrCleanupInProgress
	}
	defer s.running.Store(false)

	token, ok, err := s.lease.Acquire(ctx, s.leaseTTL)
	if err != nil {
		observability.RecordCleanupRun(ctx, trigger, "error", 0)
		return 0, fmt.Errorf("acquire cleanup lease: %w", err)
	}
	if !ok {
		observability.RecordCleanupRun(ctx, trigger, "lease_held", 0)
		return 0, ErrCleanupLeaseHeld
	}
	defer func() {
		if err := s.lease.Release(context.WithoutCancel(ctx), token); err != nil {
			s.logger.Warn("release cleanup lease failed", "error", err)
		}
	}()

	n, err := s.cleaner.CleanupInactiveDevices(ctx)
	if err != nil {
		observability.RecordCleanupRun(ctx, trigger, "error", 0)
		return 0, err
	}
	observability.RecordCleanupRun(ctx, trigger, "success", n)
	return n, nil
}

func (s *CleanupScheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := SchedulerStatus{
		IsRunning: s.running.Load(),
		Started:   s.started,
	}
	if s.started {
		next := s.lastTick.Add(s.interval)
		st.NextRunAt = &next
	}
	return st
}
