package domain

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/dikit/di"
	"github.com/kbukum/dikit/errors"
	"github.com/kbukum/dikit/logger"
	"github.com/kbukum/dikit/observability"
	"github.com/kbukum/dikit/unit"
)

// scan records u and invokes its callbacks. Every callback runs even if an
// earlier one fails; failures are returned joined.
func (d *Domain) scan(ctx context.Context, u *unit.Unit) (err error) {
	if u == nil {
		return nil
	}
	if u.Dynamic {
		d.log.Debug("skipping dynamic unit", logger.Fields(logger.FieldUnit, u.Identity.String()))
		return nil
	}
	if !d.known.Add(u) {
		return nil
	}

	name := u.Identity.String()
	ctx, span := observability.StartSpan(ctx, observability.SpanUnitScan,
		trace.WithAttributes(attribute.String(observability.AttrUnit, name)))
	invoked := 0
	defer func() {
		span.SetAttributes(attribute.Int(observability.AttrCallbacks, invoked))
		observability.EndSpan(span, err)
	}()
	d.metrics.RecordUnitScanned(ctx, u.Identity.Name)

	types, err := d.exports(u)
	if err != nil {
		return err
	}

	c := d.Container()
	var errs []error
	for _, t := range types {
		for _, m := range t.Methods {
			if !m.Public || !m.Static || !m.Marker {
				continue
			}
			call := d.callback(ctx, c, m.Func)
			if call == nil {
				d.log.Debug("ignoring method with unsupported shape", logger.Fields(
					logger.FieldUnit, name,
					logger.FieldCallback, t.Name+"."+m.Name,
					logger.FieldType, fmt.Sprintf("%T", m.Func),
				))
				continue
			}
			invoked++
			errs = append(errs, d.invoke(ctx, u, t.Name+"."+m.Name, call))
		}
	}

	d.log.Debug("unit scanned", logger.Fields(logger.FieldUnit, name, logger.FieldCount, invoked))
	return stderrors.Join(errs...)
}

// exports returns the unit's types. Types that failed to load are dropped.
func (d *Domain) exports(u *unit.Unit) ([]unit.Type, error) {
	types, err := u.Types()
	if err == nil {
		return types, nil
	}

	var partial *unit.PartialLoadError
	if stderrors.As(err, &partial) {
		d.log.Warn("unit partially loaded", logger.Fields(
			logger.FieldUnit, u.Identity.String(),
			"failed", partial.Failed,
			logger.FieldCount, len(types),
		))
		return types, nil
	}

	d.log.Error("unit exports failed", logger.MergeWithError(
		logger.Fields(logger.FieldUnit, u.Identity.String()), err))
	return nil, errors.Internal(err).WithDetail("unit", u.Identity.String())
}

// callback adapts fn to a uniform call, or returns nil when fn has no
// callback shape or the mode excludes it.
func (d *Domain) callback(ctx context.Context, c *di.Container, fn any) func() error {
	switch f := fn.(type) {
	case unit.Callback:
		if f == nil || d.mode == ModeCooperative {
			return nil
		}
		return func() error {
			f(c)
			return nil
		}
	case unit.ContextCallback:
		if f == nil || d.mode == ModeBlocking {
			return nil
		}
		return func() error {
			cctx := ctx
			if d.scanTimeout > 0 {
				var cancel context.CancelFunc
				cctx, cancel = context.WithTimeout(ctx, d.scanTimeout)
				defer cancel()
			}
			return f(cctx, c)
		}
	}
	return nil
}

// invoke runs call, converting a panic or error into a CALLBACK_FAILED error.
func (d *Domain) invoke(ctx context.Context, u *unit.Unit, callback string, call func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			err = errors.CallbackFailed(u.Identity.String(), callback, err)
			d.log.Error("registration callback failed", logger.MergeWithError(logger.Fields(
				logger.FieldUnit, u.Identity.String(),
				logger.FieldCallback, callback,
			), err))
		}
		d.metrics.RecordCallback(ctx, u.Identity.Name, err)
	}()
	return call()
}
