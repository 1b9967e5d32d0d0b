package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kbukum/dikit/logger"
)

// Phase names the point in the application lifecycle where hooks run.
type Phase string

const (
	// PhaseStart runs after the components, and so the domain's initial
	// scan, have started.
	PhaseStart Phase = "start"
	// PhaseReady runs after the ready check, before the task or signal wait.
	PhaseReady Phase = "ready"
	// PhaseStop runs before the components stop, while the container can
	// still resolve.
	PhaseStop Phase = "stop"
)

// Hook is a lifecycle callback.
type Hook func(ctx context.Context) error

type hookSet struct {
	mu     sync.Mutex
	phases map[Phase][]Hook
}

func (h *hookSet) add(p Phase, fns []Hook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.phases == nil {
		h.phases = make(map[Phase][]Hook)
	}
	h.phases[p] = append(h.phases[p], fns...)
}

func (h *hookSet) list(p Phase) []Hook {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.phases[p])
}

// run executes the hooks of p. Start and ready hooks run in registration
// order and stop at the first failure. Stop hooks run in reverse order and
// all of them run, with their errors joined.
func (h *hookSet) run(ctx context.Context, p Phase, log *logger.Logger) error {
	fns := h.list(p)
	if p == PhaseStop {
		slices.Reverse(fns)
	}

	var errs []error
	for i, fn := range fns {
		start := time.Now()
		if err := fn(ctx); err != nil {
			err = fmt.Errorf("%s hook %d: %w", p, i, err)
			if p != PhaseStop {
				return err
			}
			log.Error("Stop hook failed", logger.MergeWithError(logger.Fields("index", i), err))
			errs = append(errs, err)
			continue
		}
		log.Debug("Hook finished", logger.Fields(
			"phase", string(p),
			"index", i,
			logger.FieldDuration, time.Since(start).Milliseconds(),
		))
	}
	return stderrors.Join(errs...)
}

// OnStart registers hooks that run once every component has started.
func (a *App[C]) OnStart(hooks ...Hook) { a.hooks.add(PhaseStart, hooks) }

// OnReady registers hooks that run after the ready check.
func (a *App[C]) OnReady(hooks ...Hook) { a.hooks.add(PhaseReady, hooks) }

// OnStop registers hooks that run before the components stop. Later hooks
// run first.
func (a *App[C]) OnStop(hooks ...Hook) { a.hooks.add(PhaseStop, hooks) }
