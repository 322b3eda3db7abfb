package makemkv

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 250 * time.Millisecond

// Lease grants exclusive use of makemkvcon. Within a process it behaves like
// a mutex that honours context cancellation; when a lock file is configured
// it additionally holds an advisory flock so a CLI invocation and the daemon
// never run makemkvcon at the same time.
type Lease struct {
	sem      chan struct{}
	lockPath string
}

// processLease is shared by every client built without WithLease.
var processLease = NewLease("")

// NewLease returns a lease. lockPath may be empty.
func NewLease(lockPath string) *Lease {
	return &Lease{
		sem:      make(chan struct{}, 1),
		lockPath: strings.TrimSpace(lockPath),
	}
}

// Acquire blocks until the lease is free or ctx ends. The returned release
// function must be called exactly once.
func (l *Lease) Acquire(ctx context.Context) (func(), error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if l.lockPath == "" {
		return func() { <-l.sem }, nil
	}

	fl := flock.New(l.lockPath)
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		<-l.sem
		if err == nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("lock %s: %w", l.lockPath, err)
	}
	return func() {
		_ = fl.Unlock()
		<-l.sem
	}, nil
}

// tryAcquire is the non-blocking variant of Acquire.
func (l *Lease) tryAcquire() (func(), bool) {
	select {
	case l.sem <- struct{}{}:
	default:
		return nil, false
	}
	if l.lockPath == "" {
		return func() { <-l.sem }, true
	}
	fl := flock.New(l.lockPath)
	locked, err := fl.TryLock()
	if err != nil || !locked {
		<-l.sem
		return nil, false
	}
	return func() {
		_ = fl.Unlock()
		<-l.sem
	}, true
}
