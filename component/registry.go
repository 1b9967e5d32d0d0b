package component

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kbukum/dikit/errors"
	"github.com/kbukum/dikit/logger"
)

// DefaultStopTimeout bounds each component's Stop.
const DefaultStopTimeout = 10 * time.Second

type entry struct {
	Component
	started bool
}

// Registry starts components in registration order and stops the started
// ones in reverse order.
type Registry struct {
	mu          sync.RWMutex
	entries     []*entry
	stopTimeout time.Duration
	log         *logger.Logger
}

func NewRegistry() *Registry {
	return &Registry{stopTimeout: DefaultStopTimeout, log: logger.Get("component")}
}

// SetStopTimeout changes the per-component stop bound. Non-positive values
// are ignored.
func (r *Registry) SetStopTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	r.mu.Lock()
	r.stopTimeout = d
	r.mu.Unlock()
}

func (r *Registry) find(name string) *entry {
	i := slices.IndexFunc(r.entries, func(e *entry) bool { return e.Name() == name })
	if i < 0 {
		return nil
	}
	return r.entries[i]
}

// Register appends c. Names are unique; register dependencies first.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if r.find(name) != nil {
		return errors.New(errors.ErrCodeAlreadyRegistered, "component "+name+" is already registered").
			WithDetail(logger.FieldComponent, name)
	}
	r.entries = append(r.entries, &entry{Component: c})
	r.log.Debug("component registered", logger.Fields(logger.FieldComponent, name))
	return nil
}

// StartAll starts every component that is not already started. On the first
// failure the started components are stopped and the joined errors returned.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.started {
			continue
		}
		began := time.Now()
		if err := e.Start(ctx); err != nil {
			r.log.Error("component start failed", logger.MergeWithError(
				logger.Fields(logger.FieldComponent, e.Name()), err))
			return fmt.Errorf("start %s: %w", e.Name(), stderrors.Join(err, r.stopStarted(ctx)))
		}
		e.started = true
		r.log.Debug("component started", logger.Fields(
			logger.FieldComponent, e.Name(),
			logger.FieldDuration, time.Since(began).Milliseconds(),
		))
	}
	return nil
}

// StopAll stops every started component in reverse order, continuing past
// failures. A second call stops nothing.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopStarted(ctx)
}

func (r *Registry) stopStarted(ctx context.Context) error {
	var errs []error
	for _, e := range slices.Backward(r.entries) {
		if !e.started {
			continue
		}
		e.started = false
		if err := r.stopOne(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", e.Name(), err))
			r.log.Error("component stop failed", logger.MergeWithError(
				logger.Fields(logger.FieldComponent, e.Name()), err))
		}
	}
	return stderrors.Join(errs...)
}

func (r *Registry) stopOne(ctx context.Context, e *entry) error {
	ctx, cancel := context.WithTimeout(ctx, r.stopTimeout)
	defer cancel()
	return e.Stop(ctx)
}

// HealthAll reports every component in registration order.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Health, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Health(ctx)
	}
	return out
}

// Get returns the named component, or nil.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e := r.find(name); e != nil {
		return e.Component
	}
	return nil
}

// All returns the components in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Component, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Component
	}
	return out
}

// Describe collects the descriptions of Describable components. An empty
// description name is filled with the component name.
func (r *Registry) Describe() []Description {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Description
	for _, e := range r.entries {
		d, ok := e.Component.(Describable)
		if !ok {
			continue
		}
		desc := d.Describe()
		if desc.Name == "" {
			desc.Name = e.Name()
		}
		out = append(out, desc)
	}
	return out
}
