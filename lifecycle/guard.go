package lifecycle

import (
	"context"
	"sync/atomic"

	"github.com/kbukum/dikit/errors"
)

// State is the lifecycle state of a component.
type State int32

const (
	Uninitialized State = iota
	Created
	Disposed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Created:
		return "created"
	case Disposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Func is the unit of work run under a guard's lock.
type Func func(ctx context.Context) error

type lockMode int

const (
	readMode lockMode = iota
	writeMode
)

// Guard is the shared lifecycle state machine. Components embed or own one
// and route every public operation through it.
type Guard struct {
	name  string
	lock  *RWLock
	state atomic.Int32
}

// NewGuard creates a guard for the named component. The name only appears
// in errors.
func NewGuard(name string) *Guard {
	return &Guard{name: name, lock: NewRWLock()}
}

// Name returns the component name the guard reports in errors.
func (g *Guard) Name() string { return g.name }

// State returns the current state without taking the lock.
func (g *Guard) State() State { return State(g.state.Load()) }

// IsCreated reports whether Create has completed and Dispose has not.
func (g *Guard) IsCreated() bool { return g.State() == Created }

// IsDisposed reports whether Dispose has completed.
func (g *Guard) IsDisposed() bool { return g.State() == Disposed }

// Check returns the error an operation would fail with in the current state,
// without taking the lock.
func (g *Guard) Check() error {
	switch g.State() {
	case Uninitialized:
		return errors.NotInitialized(g.name)
	case Disposed:
		return errors.Disposed(g.name)
	}
	return nil
}

// acquire is the single suspension point of every guarded operation. A wait
// ended by ctx fails with CANCELED wrapping ctx.Err().
func (g *Guard) acquire(ctx context.Context, mode lockMode) (func(), error) {
	if mode == writeMode {
		if err := g.lock.LockContext(ctx); err != nil {
			return nil, errors.Canceled(g.name, err)
		}
		return g.lock.Unlock, nil
	}
	if err := g.lock.RLockContext(ctx); err != nil {
		return nil, errors.Canceled(g.name, err)
	}
	return g.lock.RUnlock, nil
}

// CreateContext runs setup under the write lock and marks the guard Created.
// A failed setup leaves the guard Uninitialized so Create may be retried.
func (g *Guard) CreateContext(ctx context.Context, setup Func) error {
	release, err := g.acquire(ctx, writeMode)
	if err != nil {
		return err
	}
	defer release()

	switch g.State() {
	case Created:
		return errors.AlreadyInitialized(g.name)
	case Disposed:
		return errors.Disposed(g.name)
	}

	if setup != nil {
		if err := setup(ctx); err != nil {
			return err
		}
	}
	g.state.Store(int32(Created))
	return nil
}

// Create is the blocking form of CreateContext.
func (g *Guard) Create(setup Func) error {
	return g.CreateContext(context.Background(), setup)
}

// DisposeContext runs teardown under the write lock and marks the guard
// Disposed. Only the first call has an effect. Disposing a guard that was
// never created skips teardown. The guard ends Disposed even if teardown
// fails; the teardown error is returned.
func (g *Guard) DisposeContext(ctx context.Context, teardown Func) error {
	release, err := g.acquire(ctx, writeMode)
	if err != nil {
		return err
	}
	defer release()

	switch g.State() {
	case Disposed:
		return nil
	case Uninitialized:
		g.state.Store(int32(Disposed))
		return nil
	}

	var tearErr error
	if teardown != nil {
		tearErr = teardown(ctx)
	}
	g.state.Store(int32(Disposed))
	return tearErr
}

// Dispose is the blocking form of DisposeContext.
func (g *Guard) Dispose(teardown Func) error {
	return g.DisposeContext(context.Background(), teardown)
}

// ReadContext runs fn under the read lock if the guard is Created.
func (g *Guard) ReadContext(ctx context.Context, fn Func) error {
	return g.run(ctx, readMode, fn)
}

// Read is the blocking form of ReadContext.
func (g *Guard) Read(fn Func) error {
	return g.run(context.Background(), readMode, fn)
}

// WriteContext runs fn under the write lock if the guard is Created.
func (g *Guard) WriteContext(ctx context.Context, fn Func) error {
	return g.run(ctx, writeMode, fn)
}

// Write is the blocking form of WriteContext.
func (g *Guard) Write(fn Func) error {
	return g.run(context.Background(), writeMode, fn)
}

func (g *Guard) run(ctx context.Context, mode lockMode, fn Func) error {
	release, err := g.acquire(ctx, mode)
	if err != nil {
		return err
	}
	defer release()

	if err := g.Check(); err != nil {
		return err
	}
	return fn(ctx)
}
