package lifecycle

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// writerWeight is the full capacity of the semaphore. A writer takes all of
// it, a reader takes one unit.
const writerWeight = 1 << 30

// RWLock is a reader/writer lock whose acquisition can be abandoned through a
// context. Waiters are served in FIFO order, so a waiting writer holds back
// readers that arrive after it.
//
// The lock is not reentrant.
type RWLock struct {
	sem *semaphore.Weighted
}

// NewRWLock creates an unlocked RWLock.
func NewRWLock() *RWLock {
	return &RWLock{sem: semaphore.NewWeighted(writerWeight)}
}

// RLock blocks until a read lock is held.
func (l *RWLock) RLock() {
	_ = l.sem.Acquire(context.Background(), 1)
}

// RLockContext waits for a read lock or returns ctx.Err().
func (l *RWLock) RLockContext(ctx context.Context) error {
	return l.sem.Acquire(ctx, 1)
}

// RUnlock releases a read lock.
func (l *RWLock) RUnlock() {
	l.sem.Release(1)
}

// Lock blocks until the write lock is held.
func (l *RWLock) Lock() {
	_ = l.sem.Acquire(context.Background(), writerWeight)
}

// LockContext waits for the write lock or returns ctx.Err().
func (l *RWLock) LockContext(ctx context.Context) error {
	return l.sem.Acquire(ctx, writerWeight)
}

// TryLock acquires the write lock only if it is free right now.
func (l *RWLock) TryLock() bool {
	return l.sem.TryAcquire(writerWeight)
}

// Unlock releases the write lock.
func (l *RWLock) Unlock() {
	l.sem.Release(writerWeight)
}
