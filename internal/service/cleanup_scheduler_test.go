package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type fakeTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func newFakeTicker() *fakeTicker { return &fakeTicker{ch: make(chan time.Time)} }

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               { f.stopped.Store(true) }

type fakeCleaner struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	n       int64
	err     error
}

func (c *fakeCleaner) CleanupInactiveDevices(ctx context.Context) (int64, error) {
	c.calls.Add(1)
	if c.started != nil {
		c.started <- struct{}{}
	}
	if c.release != nil {
		select {
		case <-c.release:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return c.n, c.err
}

func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestCleanupSchedulerRunsEagerlyAndOnTicks(t *testing.T) {
	cleaner := &fakeCleaner{started: make(chan struct{}, 4), n: 3}
	ticker := newFakeTicker()
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	now := start
	s := NewCleanupScheduler(cleaner, nil, time.Hour, 0, discardLogger(),
		WithTickerFactory(func(d time.Duration) Ticker {
			if d != time.Hour {
				t.Errorf("unexpected ticker interval %v", d)
			}
			return ticker
		}),
		WithSchedulerClock(func() time.Time { return now }),
	)

	s.Start()
	s.Start()
	waitSignal(t, cleaner.started, "eager run")

	st := s.Status()
	if !st.Started || st.NextRunAt == nil || !st.NextRunAt.Equal(start.Add(time.Hour)) {
		t.Fatalf("unexpected status after start: %+v", st)
	}

	ticker.ch <- now.Add(time.Hour)
	waitSignal(t, cleaner.started, "ticked run")

	s.Stop()
	if got := cleaner.calls.Load(); got != 2 {
		t.Fatalf("expected 2 runs, got %d", got)
	}
	if !ticker.stopped.Load() {
		t.Fatal("ticker must be stopped")
	}
	if st := s.Status(); st.Started || st.NextRunAt != nil {
		t.Fatalf("unexpected status after stop: %+v", st)
	}
	s.Stop()
}

func TestCleanupSchedulerRejectsOverlappingRuns(t *testing.T) {
	cleaner := &fakeCleaner{started: make(chan struct{}), release: make(chan struct{}), n: 5}
	s := NewCleanupScheduler(cleaner, nil, time.Hour, 0, discardLogger())

	type result struct {
		n   int64
		err error
	}
	first := make(chan result, 1)
	go func() {
		n, err := s.RunCleanup(context.Background())
		first <- result{n, err}
	}()
	waitSignal(t, cleaner.started, "first manual run")

	if !s.Status().IsRunning {
		t.Fatal("status must report a running sweep")
	}
	if _, err := s.RunCleanup(context.Background()); !errors.Is(err, ErrCleanupInProgress) {
		t.Fatalf("expected ErrCleanupInProgress, got %v", err)
	}

	close(cleaner.release)
	res := <-first
	if res.err != nil || res.n != 5 {
		t.Fatalf("first run = %d, %v", res.n, res.err)
	}
	if s.Status().IsRunning {
		t.Fatal("running flag must clear after the sweep")
	}
	if got := cleaner.calls.Load(); got != 1 {
		t.Fatalf("overlapping call must not reach the cleaner, got %d calls", got)
	}
}

func TestCleanupSchedulerManualRunPropagatesErrors(t *testing.T) {
	boom := errors.New("db down")
	s := NewCleanupScheduler(&fakeCleaner{err: boom}, nil, time.Hour, 0, discardLogger())
	if _, err := s.RunCleanup(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected cleaner error, got %v", err)
	}
	if s.Status().IsRunning {
		t.Fatal("running flag must clear after a failed sweep")
	}
}

func TestCleanupSchedulerScheduledErrorIsAbsorbed(t *testing.T) {
	cleaner := &fakeCleaner{started: make(chan struct{}, 2), err: errors.New("db down")}
	ticker := newFakeTicker()
	s := NewCleanupScheduler(cleaner, nil, time.Hour, 0, discardLogger(),
		WithTickerFactory(func(time.Duration) Ticker { return ticker }))

	s.Start()
	waitSignal(t, cleaner.started, "eager run")
	ticker.ch <- time.Now()
	waitSignal(t, cleaner.started, "run after failure")
	s.Stop()
}

func TestCleanupSchedulerSkipsWhenLeaseHeld(t *testing.T) {
	lease := NewInMemoryCleanupLease()
	if _, ok, _ := lease.Acquire(context.Background(), time.Hour); !ok {
		t.Fatal("pre-acquire lease")
	}
	cleaner := &fakeCleaner{}
	s := NewCleanupScheduler(cleaner, lease, time.Hour, time.Minute, discardLogger())

	if _, err := s.RunCleanup(context.Background()); !errors.Is(err, ErrCleanupLeaseHeld) {
		t.Fatalf("expected ErrCleanupLeaseHeld, got %v", err)
	}
	if cleaner.calls.Load() != 0 {
		t.Fatal("cleaner must not run without the lease")
	}
}

func TestCleanupSchedulerReleasesRedisLease(t *testing.T) {
	server, client := newRedisClientForTest(t)
	lease := NewRedisCleanupLease(client, "")
	s := NewCleanupScheduler(&fakeCleaner{n: 1}, lease, time.Hour, time.Minute, discardLogger())

	for i := 0; i < 2; i++ {
		n, err := s.RunCleanup(context.Background())
		if err != nil || n != 1 {
			t.Fatalf("run %d = %d, %v", i, n, err)
		}
	}
	if server.Exists(defaultCleanupLeaseKey) {
		t.Fatal("lease must be released after each sweep")
	}
}

func TestCleanupSchedulerWithDeviceService(t *testing.T) {
	st := newTestStack(t)
	ctx := context.Background()
	if _, err := st.deviceSvc.RegisterDevice(ctx, "u1", "c1", laptop()); err != nil {
		t.Fatalf("register: %v", err)
	}
	st.clock.Advance(DefaultDeviceRetention + time.Second)

	s := NewCleanupScheduler(st.deviceSvc, nil, time.Hour, 0, discardLogger())
	n, err := s.RunCleanup(ctx)
	if err != nil || n != 1 {
		t.Fatalf("manual cleanup = %d, %v", n, err)
	}
}
