// Package memory provides a process-local keyed mutex.
package memory

import (
	"context"
	"fmt"
	"sync"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

// Locker hands out one lease per key at a time. Waiters block until the
// holder releases or their context ends.
type Locker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

// NewLocker creates an empty Locker.
func NewLocker() *Locker {
	return &Locker{held: make(map[string]chan struct{})}
}

func (l *Locker) Obtain(ctx context.Context, key string) (port.Lock, error) {
	for {
		l.mu.Lock()
		done, busy := l.held[key]
		if !busy {
			done = make(chan struct{})
			l.held[key] = done
			l.mu.Unlock()
			return &lease{locker: l, key: key, done: done}, nil
		}
		l.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w: %v", key, domain.ErrLockNotObtained, ctx.Err())
		}
	}
}

type lease struct {
	locker *Locker
	key    string
	done   chan struct{}
	once   sync.Once
}

func (l *lease) Release(_ context.Context) error {
	l.once.Do(func() {
		l.locker.mu.Lock()
		defer l.locker.mu.Unlock()
		if l.locker.held[l.key] == l.done {
			delete(l.locker.held, l.key)
		}
		close(l.done)
	})
	return nil
}
