package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CleanupLease keeps cleanup sweeps from overlapping across replicas. Acquire reports ok=false
// when another holder owns the lease; the token returned on success must be passed to Release.
type CleanupLease interface {
	Acquire(ctx context.Context, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, token string) error
}

type NoopCleanupLease struct{}

func NewNoopCleanupLease() *NoopCleanupLease { return &NoopCleanupLease{} }

func (l *NoopCleanupLease) Acquire(context.Context, time.Duration) (string, bool, error) {
	return "", true, nil
}

func (l *NoopCleanupLease) Release(context.Context, string) error { return nil }

type InMemoryCleanupLease struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
	now       func() time.Time
}

func NewInMemoryCleanupLease() *InMemoryCleanupLease {
	return &InMemoryCleanupLease{now: time.Now}
}

func (l *InMemoryCleanupLease) Acquire(_ context.Context, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if l.token != "" && now.Before(l.expiresAt) {
		return "", false, nil
	}
	l.token = uuid.NewString()
	l.expiresAt = now.Add(ttl)
	return l.token, true, nil
}

func (l *InMemoryCleanupLease) Release(_ context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if token != "" && token == l.token {
		l.token = ""
		l.expiresAt = time.Time{}
	}
	return nil
}
