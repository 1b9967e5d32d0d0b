package tracker

import (
	"context"
	stderrors "errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/dikit/component"
	"github.com/kbukum/dikit/lifecycle"
	"github.com/kbukum/dikit/logger"
	"github.com/kbukum/dikit/observability"
)

// Slot identifies a tracking scope.
type Slot uuid.UUID

// String returns the slot's UUID text.
func (s Slot) String() string { return uuid.UUID(s).String() }

// slotEntry is the ordered list of handles watched into one slot.
type slotEntry struct {
	seq     uint64
	handles []handle
}

// Tracker records watched resources per slot.
type Tracker struct {
	guard   *lifecycle.Guard
	slots   map[Slot]*slotEntry
	seq     uint64
	log     *logger.Logger
	metrics *observability.Metrics

	sweepInterval time.Duration
	stopSweep     context.CancelFunc
	sweepDone     sync.WaitGroup
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger. Defaults to the "tracker" named logger.
func WithLogger(l *logger.Logger) Option {
	return func(t *Tracker) { t.log = l }
}

// WithMetrics enables metric recording.
func WithMetrics(m *observability.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// WithSweepInterval makes the tracker sweep collected handles periodically
// while it is created. Zero disables sweeping.
func WithSweepInterval(d time.Duration) Option {
	return func(t *Tracker) { t.sweepInterval = d }
}

// New returns an uninitialized Tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		guard: lifecycle.NewGuard("tracker"),
		slots: make(map[Slot]*slotEntry),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.log == nil {
		t.log = logger.Get("tracker")
	}
	return t
}

// State returns the lifecycle state.
func (t *Tracker) State() lifecycle.State { return t.guard.State() }

// CreateContext makes the tracker usable and starts the sweeper if one is
// configured.
func (t *Tracker) CreateContext(ctx context.Context) error {
	return t.guard.CreateContext(ctx, func(context.Context) error {
		if t.sweepInterval > 0 {
			sweepCtx, cancel := context.WithCancel(context.Background())
			t.stopSweep = cancel
			t.sweepDone.Add(1)
			go t.sweepLoop(sweepCtx)
		}
		t.log.Debug("tracker created", logger.Fields("sweep_interval", t.sweepInterval.String()))
		return nil
	})
}

// Create is the blocking form of CreateContext.
func (t *Tracker) Create() error {
	return t.CreateContext(context.Background())
}

// DisposeContext stops the sweeper and forgets every slot. Tracked resources
// are not closed.
func (t *Tracker) DisposeContext(ctx context.Context) error {
	return t.guard.DisposeContext(ctx, func(ctx context.Context) error {
		if t.stopSweep != nil {
			t.stopSweep()
			t.sweepDone.Wait()
		}
		t.forget(ctx)
		t.log.Debug("tracker disposed")
		return nil
	})
}

// Dispose is the blocking form of DisposeContext.
func (t *Tracker) Dispose() error {
	return t.DisposeContext(context.Background())
}

// diag writes one diagnostic line.
func (t *Tracker) diag(site string, slot Slot, op, desc string) {
	if !t.log.DebugEnabled() {
		return
	}
	t.log.Debug("["+site+": "+slot.String()+"\t"+op+" "+desc+"]", logger.Fields(
		logger.FieldSite, site,
		logger.FieldSlot, slot.String(),
		logger.FieldOperation, op,
	))
}

// entry returns the slot's entry, creating it if needed. The caller must
// hold the write lock.
func (t *Tracker) entry(slot Slot) *slotEntry {
	e, ok := t.slots[slot]
	if !ok {
		t.seq++
		e = &slotEntry{seq: t.seq}
		t.slots[slot] = e
	}
	return e
}

// sortedSlots returns slots in the order they were first used. The caller
// must hold the lock.
func (t *Tracker) sortedSlots() []Slot {
	out := make([]Slot, 0, len(t.slots))
	for slot := range t.slots {
		out = append(out, slot)
	}
	sort.Slice(out, func(i, j int) bool { return t.slots[out[i]].seq < t.slots[out[j]].seq })
	return out
}

func (t *Tracker) enter(ctx context.Context, site string) (Slot, error) {
	var slot Slot
	err := t.guard.WriteContext(ctx, func(context.Context) error {
		slot = Slot(uuid.New())
		t.entry(slot)
		return nil
	})
	if err != nil {
		return Slot{}, err
	}
	t.diag(site, slot, "enter", "")
	return slot, nil
}

// Enter opens a new slot.
func (t *Tracker) Enter() (Slot, error) {
	return t.enter(context.Background(), callerSite(1))
}

// EnterContext is the cooperative form of Enter.
func (t *Tracker) EnterContext(ctx context.Context) (Slot, error) {
	return t.enter(ctx, callerSite(1))
}

func (t *Tracker) leave(ctx context.Context, slot Slot, site string) error {
	if err := t.guard.ReadContext(ctx, func(context.Context) error { return nil }); err != nil {
		return err
	}
	t.diag(site, slot, "leave", "")
	return nil
}

// Leave closes a slot. It only logs; watched resources stay tracked.
func (t *Tracker) Leave(slot Slot) error {
	return t.leave(context.Background(), slot, callerSite(1))
}

// LeaveContext is the cooperative form of Leave.
func (t *Tracker) LeaveContext(ctx context.Context, slot Slot) error {
	return t.leave(ctx, slot, callerSite(1))
}

// LeaveWith leaves slot and passes v and err through, so a function can end
// with
//
//	return tracker.LeaveWith(tr, slot, result, err)
//
// A failure to leave is joined into the returned error.
func LeaveWith[V any](t *Tracker, slot Slot, v V, err error) (V, error) {
	if leaveErr := t.leave(context.Background(), slot, callerSite(1)); leaveErr != nil {
		return v, stderrors.Join(err, leaveErr)
	}
	return v, err
}

// Slots returns every known slot in the order it was first used.
func (t *Tracker) Slots() ([]Slot, error) {
	var out []Slot
	err := t.guard.Read(func(context.Context) error {
		out = t.sortedSlots()
		return nil
	})
	return out, err
}

// Count returns the number of handles watched into slot, including handles
// whose resource has been collected but not yet swept.
func (t *Tracker) Count(slot Slot) (int, error) {
	var n int
	err := t.guard.Read(func(context.Context) error {
		if e, ok := t.slots[slot]; ok {
			n = len(e.handles)
		}
		return nil
	})
	return n, err
}

// ResetContext forgets every slot without closing anything.
func (t *Tracker) ResetContext(ctx context.Context) error {
	return t.guard.WriteContext(ctx, func(ctx context.Context) error {
		n := t.forget(ctx)
		t.log.Debug("tracker reset", logger.Fields(logger.FieldCount, n))
		return nil
	})
}

// Reset is the blocking form of ResetContext.
func (t *Tracker) Reset() error {
	return t.ResetContext(context.Background())
}

// forget drops every slot and returns the number of handles dropped. The
// caller must hold the write lock.
func (t *Tracker) forget(ctx context.Context) int {
	n := 0
	for _, e := range t.slots {
		n += len(e.handles)
	}
	clear(t.slots)
	t.metrics.AddTracked(ctx, -int64(n))
	return n
}

// SweepContext drops handles whose resource has been collected, then drops
// empty slots. It returns the number of handles dropped.
func (t *Tracker) SweepContext(ctx context.Context) (int, error) {
	var dropped int
	err := t.guard.WriteContext(ctx, func(ctx context.Context) error {
		for slot, e := range t.slots {
			kept := e.handles[:0]
			for _, h := range e.handles {
				if _, ok := h.live(); ok {
					kept = append(kept, h)
				}
			}
			dropped += len(e.handles) - len(kept)
			clear(e.handles[len(kept):])
			e.handles = kept
			if len(e.handles) == 0 {
				delete(t.slots, slot)
			}
		}
		t.metrics.AddTracked(ctx, -int64(dropped))
		return nil
	})
	if err == nil && dropped > 0 {
		t.log.Debug("tracker swept", logger.Fields(logger.FieldCount, dropped))
	}
	return dropped, err
}

// Sweep is the blocking form of SweepContext.
func (t *Tracker) Sweep() (int, error) {
	return t.SweepContext(context.Background())
}

func (t *Tracker) sweepLoop(ctx context.Context) {
	defer t.sweepDone.Done()

	ticker := time.NewTicker(t.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := t.SweepContext(ctx); err != nil && ctx.Err() == nil {
				t.log.Warn("tracker sweep failed", logger.Fields(logger.FieldError, err.Error()))
			}
		}
	}
}

// Name implements component.Component.
func (t *Tracker) Name() string { return "tracker" }

// Start implements component.Component.
func (t *Tracker) Start(ctx context.Context) error { return t.CreateContext(ctx) }

// Stop implements component.Component.
func (t *Tracker) Stop(ctx context.Context) error { return t.DisposeContext(ctx) }

// Health implements component.Component. Leaks degrade health.
func (t *Tracker) Health(ctx context.Context) component.Health {
	report, err := t.report(ctx)
	switch {
	case err != nil:
		return component.Unhealthy(t.Name(), err)
	case report.Leaked > 0:
		return component.Degraded(t.Name(), report.Summary())
	default:
		return component.Healthy(t.Name(), report.Summary())
	}
}
