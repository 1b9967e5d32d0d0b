package resolution

import (
	"context"
	"reflect"

	"github.com/kbukum/dikit/di"
	"github.com/kbukum/dikit/lifecycle"
)

// TransientResolution builds a new value on every resolve. The caller owns
// every value it receives.
type TransientResolution struct {
	guard *lifecycle.Guard
	ctor  *constructor
}

// NewTransient returns a created transient resolution over ctor.
func NewTransient(ctor any) (*TransientResolution, error) {
	k, err := newConstructor(ctor)
	if err != nil {
		return nil, err
	}
	r := &TransientResolution{guard: lifecycle.NewGuard("transient resolution"), ctor: k}
	_ = r.guard.Create(nil)
	return r, nil
}

// Transient is like NewTransient but panics on an invalid constructor.
func Transient(ctor any) *TransientResolution {
	r, err := NewTransient(ctor)
	if err != nil {
		panic(err)
	}
	return r
}

// Lifetime returns di.Transient.
func (r *TransientResolution) Lifetime() di.Lifetime { return di.Transient }

// Resolve builds a new value.
func (r *TransientResolution) Resolve(ctx context.Context, c *di.Container, _ reflect.Type, _ string) (any, error) {
	var value any
	err := r.guard.ReadContext(ctx, func(ctx context.Context) error {
		var err error
		value, err = r.ctor.call(ctx, c)
		return err
	})
	return value, err
}

// Dispose stops further resolves.
func (r *TransientResolution) Dispose() error {
	return r.guard.Dispose(nil)
}
