package resolution

import (
	"context"
	"io"
	"reflect"

	"github.com/kbukum/dikit/di"
	"github.com/kbukum/dikit/lifecycle"
	"github.com/kbukum/dikit/logger"
)

// InstanceResolution hands out a single pre-built value.
type InstanceResolution struct {
	guard *lifecycle.Guard
	value any
	owned bool
}

// InstanceOption configures an InstanceResolution.
type InstanceOption func(*InstanceResolution)

// Owned makes Dispose close the value when it implements io.Closer.
func Owned() InstanceOption {
	return func(r *InstanceResolution) { r.owned = true }
}

// Instance returns a created resolution for value.
func Instance(value any, opts ...InstanceOption) *InstanceResolution {
	r := &InstanceResolution{guard: lifecycle.NewGuard("instance resolution"), value: value}
	for _, opt := range opts {
		opt(r)
	}
	_ = r.guard.Create(nil)
	return r
}

// Lifetime returns di.Instance.
func (r *InstanceResolution) Lifetime() di.Lifetime { return di.Instance }

// Resolve returns the value.
func (r *InstanceResolution) Resolve(ctx context.Context, _ *di.Container, _ reflect.Type, _ string) (any, error) {
	var value any
	err := r.guard.ReadContext(ctx, func(context.Context) error {
		value = r.value
		return nil
	})
	return value, err
}

// Dispose releases the value. Owned io.Closer values are closed.
func (r *InstanceResolution) Dispose() error {
	return r.guard.Dispose(func(context.Context) error {
		value := r.value
		r.value = nil
		if !r.owned {
			return nil
		}
		return closeValue(value)
	})
}

func closeValue(value any) error {
	closer, ok := value.(io.Closer)
	if !ok {
		return nil
	}
	if err := closer.Close(); err != nil {
		logger.Get("resolution").Warn("closing resolved value failed", logger.Fields(
			logger.FieldResource, reflect.TypeOf(value).String(),
			logger.FieldError, err.Error(),
		))
		return err
	}
	return nil
}
