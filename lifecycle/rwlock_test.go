package lifecycle

import (
	"context"
	"testing"
	"time"
)

func TestRWLockTryLock(t *testing.T) {
	l := NewRWLock()
	l.RLock()
	if l.TryLock() {
		t.Fatal("expected TryLock to fail while a reader holds the lock")
	}
	l.RUnlock()
	if !l.TryLock() {
		t.Fatal("expected TryLock to succeed on a free lock")
	}
	l.Unlock()
}

func TestRWLockWriterBlocksLaterReaders(t *testing.T) {
	l := NewRWLock()
	l.RLock()

	writerDone := make(chan struct{})
	go func() {
		l.Lock()
		close(writerDone)
		l.Unlock()
	}()

	// Give the writer time to queue behind the first reader.
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.RLockContext(ctx); err == nil {
		t.Error("expected a queued writer to hold back a later reader")
		l.RUnlock()
	}

	l.RUnlock()
	select {
	case <-writerDone:
	case <-time.After(time.Second):
		t.Fatal("writer never acquired the lock")
	}
}
