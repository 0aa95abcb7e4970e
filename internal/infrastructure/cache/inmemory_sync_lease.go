package cache

import (
	"context"
	"sync"
	"time"
)

// InMemorySyncLease implements SyncLease with a map guarded by a mutex.
// It only coordinates goroutines of one process.
type InMemorySyncLease struct {
	mu        sync.Mutex
	leases    map[string]time.Time // key -> expiry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemorySyncLease creates the lease table and starts the expiry sweeper
func NewInMemorySyncLease() *InMemorySyncLease {
	l := &InMemorySyncLease{
		leases:   make(map[string]time.Time),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	l.wg.Add(1)
	go l.cleanupLoop()

	return l
}

// Acquire takes the lease for key unless an unexpired one exists
func (l *InMemorySyncLease) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if expiresAt, held := l.leases[key]; held && now.Before(expiresAt) {
		return false, nil
	}
	l.leases[key] = now.Add(ttl)
	return true, nil
}

// Release drops the lease for key
func (l *InMemorySyncLease) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.leases, key)
	return nil
}

// Close stops the sweeper. Safe to call multiple times.
func (l *InMemorySyncLease) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()
	})
	return nil
}

func (l *InMemorySyncLease) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *InMemorySyncLease) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, expiresAt := range l.leases {
		if !now.Before(expiresAt) {
			delete(l.leases, key)
		}
	}
}

// Size returns the number of tracked leases, expired ones included until swept
func (l *InMemorySyncLease) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.leases)
}

var _ SyncLease = (*InMemorySyncLease)(nil)
