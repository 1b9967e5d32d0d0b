package tracker

import (
	"context"
	stderrors "errors"
	"reflect"
	"sync"

	"github.com/kbukum/dikit/errors"
)

func watch[T any, P Resource[T]](ctx context.Context, t *Tracker, slot Slot, res P, site string) (string, error) {
	if res == nil {
		return "", errors.InvalidInput("resource", "must not be nil")
	}
	if reflect.TypeFor[T]().Size() == 0 {
		// Distinct zero-size values may share one address.
		return "", errors.InvalidInput("resource", "zero-size type "+reflect.TypeFor[T]().String()+" has no identity")
	}
	h := newHandle((*T)(res))

	err := t.guard.WriteContext(ctx, func(ctx context.Context) error {
		e := t.entry(slot)
		if indexOf(e.handles, (*T)(res)) >= 0 {
			return errors.AlreadyTracked(slot.String(), res)
		}
		e.handles = append(e.handles, h)
		t.metrics.AddTracked(ctx, 1)
		return nil
	})
	if err != nil {
		return "", err
	}
	t.diag(site, slot, "watch", h.desc)
	return h.desc, nil
}

// Watch tracks res in slot by weak reference. Tracking never keeps res alive
// and never closes it. Watching the same instance twice in one slot fails
// with ALREADY_TRACKED. Instances are compared by address, so pointers to
// zero-size types are rejected with INVALID_INPUT.
func Watch[T any, P Resource[T]](t *Tracker, slot Slot, res P) error {
	_, err := watch(context.Background(), t, slot, res, callerSite(1))
	return err
}

// WatchContext is the cooperative form of Watch.
func WatchContext[T any, P Resource[T]](ctx context.Context, t *Tracker, slot Slot, res P) error {
	_, err := watch(ctx, t, slot, res, callerSite(1))
	return err
}

func release[T any, P Resource[T]](ctx context.Context, t *Tracker, slot Slot, res P, site string) error {
	if res == nil {
		return errors.InvalidInput("resource", "must not be nil")
	}

	var desc string
	err := t.guard.WriteContext(ctx, func(ctx context.Context) error {
		e, ok := t.slots[slot]
		if !ok {
			return errors.NotTracked(slot.String(), res)
		}
		i := indexOf(e.handles, (*T)(res))
		if i < 0 {
			return errors.NotTracked(slot.String(), res)
		}
		desc = e.handles[i].description()
		e.handles = append(e.handles[:i], e.handles[i+1:]...)
		t.metrics.AddTracked(ctx, -1)
		return nil
	})
	if err != nil {
		return err
	}
	t.diag(site, slot, "release", desc)
	return nil
}

// Release stops tracking res in slot. It does not close res. Releasing an
// instance that is not tracked in slot fails with NOT_TRACKED.
func Release[T any, P Resource[T]](t *Tracker, slot Slot, res P) error {
	return release(context.Background(), t, slot, res, callerSite(1))
}

// ReleaseContext is the cooperative form of Release.
func ReleaseContext[T any, P Resource[T]](ctx context.Context, t *Tracker, slot Slot, res P) error {
	return release(ctx, t, slot, res, callerSite(1))
}

// Lease is a tracked resource that closes and releases itself.
type Lease[T any, P Resource[T]] struct {
	tracker *Tracker
	slot    Slot
	res     P
	site    string

	once sync.Once
	err  error
}

func acquire[T any, P Resource[T]](ctx context.Context, t *Tracker, slot Slot, res P, site string) (*Lease[T, P], error) {
	if _, err := watch(ctx, t, slot, res, site); err != nil {
		return nil, err
	}
	return &Lease[T, P]{tracker: t, slot: slot, res: res, site: site}, nil
}

// Acquire watches res in slot and returns a lease over it. Closing the lease
// closes res and then releases it from slot.
func Acquire[T any, P Resource[T]](t *Tracker, slot Slot, res P) (*Lease[T, P], error) {
	return acquire(context.Background(), t, slot, res, callerSite(1))
}

// AcquireContext is the cooperative form of Acquire.
func AcquireContext[T any, P Resource[T]](ctx context.Context, t *Tracker, slot Slot, res P) (*Lease[T, P], error) {
	return acquire(ctx, t, slot, res, callerSite(1))
}

// Resource returns the leased resource.
func (l *Lease[T, P]) Resource() P { return l.res }

// Slot returns the slot the resource is tracked in.
func (l *Lease[T, P]) Slot() Slot { return l.slot }

// Close closes the resource, then releases it from its slot. Both steps run
// even if the first fails; their errors are joined. Later calls return the
// first result.
func (l *Lease[T, P]) Close() error {
	l.once.Do(func() {
		closeErr := l.res.Close()
		releaseErr := release(context.Background(), l.tracker, l.slot, l.res, l.site)
		l.err = stderrors.Join(closeErr, releaseErr)
	})
	return l.err
}
