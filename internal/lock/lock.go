// Package lock serialises ledger calls. A single process can use the
// in-memory Mutex; replicas sharing one database take a Redis lease.
package lock

import (
	"context"
	"errors"
)

var (
	ErrLockTimeout = errors.New("lock: timed out waiting for lease")
	ErrLockLost    = errors.New("lock: lease expired before release")
)

// Unlock releases a held lock.
type Unlock func(ctx context.Context) error

type Locker interface {
	// Lock blocks until key is held or ctx is done.
	Lock(ctx context.Context, key string) (Unlock, error)
}

// Mutex is a process-local Locker. All keys share one slot.
type Mutex struct {
	sem chan struct{}
}

func NewMutex() *Mutex {
	return &Mutex{sem: make(chan struct{}, 1)}
}

func (m *Mutex) Lock(ctx context.Context, _ string) (Unlock, error) {
	select {
	case m.sem <- struct{}{}:
		return func(context.Context) error {
			<-m.sem
			return nil
		}, nil
	case <-ctx.Done():
		return nil, errors.Join(ErrLockTimeout, ctx.Err())
	}
}
