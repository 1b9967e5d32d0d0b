package di

import (
	"context"
	stderrors "errors"
	"reflect"
	"sort"

	"github.com/kbukum/dikit/errors"
	"github.com/kbukum/dikit/lifecycle"
	"github.com/kbukum/dikit/logger"
	"github.com/kbukum/dikit/observability"
)

// RegistrationInfo describes a registration for introspection.
type RegistrationInfo struct {
	Type     reflect.Type
	Selector string
	Lifetime Lifetime
}

// Container is the dependency resolution registry.
//
// A Container must be created before use. Disposing it disposes every
// registered Resolution exactly once.
type Container struct {
	guard         *lifecycle.Guard
	registrations map[Key]Resolution
	log           *logger.Logger
	metrics       *observability.Metrics
}

// Option configures a Container.
type Option func(*options)

type options struct {
	name    string
	log     *logger.Logger
	metrics *observability.Metrics
}

// WithName sets the component name reported in lifecycle errors.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger sets the logger. Defaults to the "di" named logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics enables metric recording.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// New returns an uninitialized Container.
func New(opts ...Option) *Container {
	o := options{name: "container"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get("di")
	}
	return &Container{
		guard:         lifecycle.NewGuard(o.name),
		registrations: make(map[Key]Resolution),
		log:           o.log,
		metrics:       o.metrics,
	}
}

// State returns the lifecycle state.
func (c *Container) State() lifecycle.State { return c.guard.State() }

// CreateContext marks the container ready for use.
func (c *Container) CreateContext(ctx context.Context) error {
	return c.guard.CreateContext(ctx, func(context.Context) error {
		c.log.Debug("container created")
		return nil
	})
}

// Create is the blocking form of CreateContext.
func (c *Container) Create() error {
	return c.CreateContext(context.Background())
}

// DisposeContext disposes every registration and empties the container.
// Later calls are no-ops. Dispose errors are joined.
func (c *Container) DisposeContext(ctx context.Context) error {
	return c.guard.DisposeContext(ctx, func(ctx context.Context) error {
		n := len(c.registrations)
		var errs []error
		for key, res := range c.registrations {
			if err := res.Dispose(); err != nil {
				errs = append(errs, err)
				c.log.Warn("resolution dispose failed", c.keyFields(key, res, err))
			}
		}
		clear(c.registrations)
		c.metrics.AddRegistrations(ctx, -int64(n))
		c.log.Debug("container disposed", logger.Fields(logger.FieldCount, n))
		return stderrors.Join(errs...)
	})
}

// Dispose is the blocking form of DisposeContext.
func (c *Container) Dispose() error {
	return c.DisposeContext(context.Background())
}

// Close disposes the container. It lets the container be tracked as an
// io.Closer.
func (c *Container) Close() error {
	return c.Dispose()
}

// AddContext registers res under (t, selector). It fails with
// ALREADY_REGISTERED when any registration matches the same query.
func (c *Container) AddContext(ctx context.Context, t reflect.Type, selector string, includeAssignable bool, res Resolution) error {
	if t == nil {
		return errors.InvalidInput("type", "must not be nil")
	}
	if res == nil {
		return errors.InvalidInput("resolution", "must not be nil")
	}
	if selector == AnySelector {
		return errors.InvalidInput("selector", "wildcard cannot be registered")
	}

	return c.guard.WriteContext(ctx, func(ctx context.Context) error {
		if _, found := c.best(t, selector, includeAssignable); found {
			return errors.AlreadyRegistered(t, selector)
		}
		key := Key{Type: t, Selector: selector}
		c.registrations[key] = res
		c.metrics.AddRegistrations(ctx, 1)
		c.log.Debug("registration added", c.keyFields(key, res, nil))
		return nil
	})
}

// Add is the blocking form of AddContext.
func (c *Container) Add(t reflect.Type, selector string, includeAssignable bool, res Resolution) error {
	return c.AddContext(context.Background(), t, selector, includeAssignable, res)
}

// RemoveContext disposes and removes the best registration matching the
// query. The removed key is the matched registration's key, which differs
// from (t, selector) when an assignable or wildcard match won.
func (c *Container) RemoveContext(ctx context.Context, t reflect.Type, selector string, includeAssignable bool) error {
	if t == nil {
		return errors.InvalidInput("type", "must not be nil")
	}

	return c.guard.WriteContext(ctx, func(ctx context.Context) error {
		match, found := c.best(t, selector, includeAssignable)
		if !found {
			return errors.NotFound(t, selector)
		}
		delete(c.registrations, match.key)
		c.metrics.AddRegistrations(ctx, -1)

		err := match.res.Dispose()
		c.log.Debug("registration removed", c.keyFields(match.key, match.res, err))
		return err
	})
}

// Remove is the blocking form of RemoveContext.
func (c *Container) Remove(t reflect.Type, selector string, includeAssignable bool) error {
	return c.RemoveContext(context.Background(), t, selector, includeAssignable)
}

// ClearContext disposes and removes every registration of t under any
// selector, including assignable types when requested. It reports whether
// anything was removed.
func (c *Container) ClearContext(ctx context.Context, t reflect.Type, includeAssignable bool) (bool, error) {
	if t == nil {
		return false, errors.InvalidInput("type", "must not be nil")
	}

	var removed bool
	err := c.guard.WriteContext(ctx, func(ctx context.Context) error {
		matches := c.candidates(t, AnySelector, includeAssignable)
		removed = len(matches) > 0
		return c.removeAll(ctx, matches)
	})
	return removed, err
}

// Clear is the blocking form of ClearContext.
func (c *Container) Clear(t reflect.Type, includeAssignable bool) (bool, error) {
	return c.ClearContext(context.Background(), t, includeAssignable)
}

// ClearAllContext disposes and removes every registration. It reports
// whether anything was removed.
func (c *Container) ClearAllContext(ctx context.Context) (bool, error) {
	var removed bool
	err := c.guard.WriteContext(ctx, func(ctx context.Context) error {
		all := make([]candidate, 0, len(c.registrations))
		for key, res := range c.registrations {
			all = append(all, candidate{key: key, res: res})
		}
		removed = len(all) > 0
		return c.removeAll(ctx, all)
	})
	return removed, err
}

// ClearAll is the blocking form of ClearAllContext.
func (c *Container) ClearAll() (bool, error) {
	return c.ClearAllContext(context.Background())
}

func (c *Container) removeAll(ctx context.Context, matches []candidate) error {
	var errs []error
	for _, m := range matches {
		delete(c.registrations, m.key)
		err := m.res.Dispose()
		if err != nil {
			errs = append(errs, err)
		}
		c.log.Debug("registration removed", c.keyFields(m.key, m.res, err))
	}
	c.metrics.AddRegistrations(ctx, -int64(len(matches)))
	return stderrors.Join(errs...)
}

// HasContext reports whether any registration matches the query.
func (c *Container) HasContext(ctx context.Context, t reflect.Type, selector string, includeAssignable bool) (bool, error) {
	if t == nil {
		return false, errors.InvalidInput("type", "must not be nil")
	}

	var found bool
	err := c.guard.ReadContext(ctx, func(context.Context) error {
		_, found = c.best(t, selector, includeAssignable)
		return nil
	})
	return found, err
}

// Has is the blocking form of HasContext.
func (c *Container) Has(t reflect.Type, selector string, includeAssignable bool) (bool, error) {
	return c.HasContext(context.Background(), t, selector, includeAssignable)
}

// ResolveContext produces a value for the best registration matching the
// query. A nil value is passed through. A non-nil value that is not
// assignable to t fails with TYPE_MISMATCH.
//
// The matched Resolution runs after the container lock is released, so it
// may resolve further dependencies from the same container.
func (c *Container) ResolveContext(ctx context.Context, t reflect.Type, selector string, includeAssignable bool) (any, error) {
	if t == nil {
		return nil, errors.InvalidInput("type", "must not be nil")
	}

	var match candidate
	err := c.guard.ReadContext(ctx, func(context.Context) error {
		var found bool
		match, found = c.best(t, selector, includeAssignable)
		if !found {
			return errors.NotFound(t, selector)
		}
		return nil
	})
	if err != nil {
		c.metrics.RecordResolve(ctx, Unknown.String(), err)
		return nil, err
	}

	value, err := match.res.Resolve(ctx, c, t, selector)
	if err == nil && value != nil && !reflect.TypeOf(value).AssignableTo(t) {
		err = errors.TypeMismatch(t, value)
	}
	c.metrics.RecordResolve(ctx, match.res.Lifetime().String(), err)
	if err != nil {
		c.log.Debug("resolve failed", c.keyFields(match.key, match.res, err))
		return nil, err
	}
	return value, nil
}

// Resolve is the blocking form of ResolveContext.
func (c *Container) Resolve(t reflect.Type, selector string, includeAssignable bool) (any, error) {
	return c.ResolveContext(context.Background(), t, selector, includeAssignable)
}

// RegistrationsContext lists every registration ordered by type name, then
// selector.
func (c *Container) RegistrationsContext(ctx context.Context) ([]RegistrationInfo, error) {
	var out []RegistrationInfo
	err := c.guard.ReadContext(ctx, func(context.Context) error {
		out = make([]RegistrationInfo, 0, len(c.registrations))
		for key, res := range c.registrations {
			out = append(out, RegistrationInfo{Type: key.Type, Selector: key.Selector, Lifetime: res.Lifetime()})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if ti, tj := out[i].Type.String(), out[j].Type.String(); ti != tj {
			return ti < tj
		}
		return out[i].Selector < out[j].Selector
	})
	return out, nil
}

// Registrations is the blocking form of RegistrationsContext.
func (c *Container) Registrations() ([]RegistrationInfo, error) {
	return c.RegistrationsContext(context.Background())
}

func (c *Container) keyFields(key Key, res Resolution, err error) map[string]any {
	fields := logger.Fields(
		logger.FieldType, key.Type.String(),
		logger.FieldSelector, key.Selector,
		logger.FieldLifetime, res.Lifetime().String(),
	)
	return logger.MergeWithError(fields, err)
}
