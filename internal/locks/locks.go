// Package locks serializes work per key, typically "org:{id}". Different
// keys never block each other.
package locks

import (
	"context"
	"fmt"
	"sync"
)

// Locker hands out exclusive ownership of a key.
type Locker interface {
	// Lock blocks until key is held or ctx is done. The returned func releases the key.
	Lock(ctx context.Context, key string) (func(), error)
}

// WithLock runs fn while holding key.
func WithLock(ctx context.Context, l Locker, key string, fn func() error) error {
	unlock, err := l.Lock(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	defer unlock()
	return fn()
}

func OrganizationKey(orgID int64) string {
	return fmt.Sprintf("org:%d", orgID)
}

type entry struct {
	sem  chan struct{}
	refs int
}

// Local is an in-process keyed mutex.
type Local struct {
	mu      sync.Mutex // protects entries
	entries map[string]*entry
}

func NewLocal() *Local {
	return &Local{entries: make(map[string]*entry)}
}

func (l *Local) acquire(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *Local) forget(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	e := l.acquire(key)

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.forget(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.forget(key, e)
		})
	}, nil
}

var _ Locker = (*Local)(nil)
