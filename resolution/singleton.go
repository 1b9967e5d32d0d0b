package resolution

import (
	"context"
	"reflect"
	"sync"

	"github.com/kbukum/dikit/di"
	"github.com/kbukum/dikit/lifecycle"
	"github.com/kbukum/dikit/logger"
)

// SingletonResolution builds its value on first resolve and reuses it.
// A failed build is not cached; the next resolve tries again.
type SingletonResolution struct {
	guard *lifecycle.Guard
	ctor  *constructor

	mu       sync.RWMutex
	built    bool
	instance any
}

// NewSingleton returns a created singleton resolution over ctor.
func NewSingleton(ctor any) (*SingletonResolution, error) {
	k, err := newConstructor(ctor)
	if err != nil {
		return nil, err
	}
	r := &SingletonResolution{guard: lifecycle.NewGuard("singleton resolution"), ctor: k}
	_ = r.guard.Create(nil)
	return r, nil
}

// Singleton is like NewSingleton but panics on an invalid constructor.
func Singleton(ctor any) *SingletonResolution {
	r, err := NewSingleton(ctor)
	if err != nil {
		panic(err)
	}
	return r
}

// Lifetime returns di.Singleton.
func (r *SingletonResolution) Lifetime() di.Lifetime { return di.Singleton }

// Resolve returns the shared value, building it first if needed.
func (r *SingletonResolution) Resolve(ctx context.Context, c *di.Container, _ reflect.Type, _ string) (any, error) {
	var value any
	err := r.guard.ReadContext(ctx, func(ctx context.Context) error {
		var err error
		value, err = r.get(ctx, c)
		return err
	})
	return value, err
}

// get performs double-checked construction.
func (r *SingletonResolution) get(ctx context.Context, c *di.Container) (any, error) {
	r.mu.RLock()
	if r.built {
		instance := r.instance
		r.mu.RUnlock()
		return instance, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if r.built {
		return r.instance, nil
	}

	instance, err := r.ctor.call(ctx, c)
	if err != nil {
		logger.Get("resolution").Debug("singleton construction failed", logger.Fields(
			logger.FieldType, r.ctor.out.String(),
			logger.FieldError, err.Error(),
		))
		return nil, err
	}
	r.instance = instance
	r.built = true

	logger.Get("resolution").Debug("singleton constructed", logger.Fields(
		logger.FieldType, r.ctor.out.String(),
	))
	return instance, nil
}

// Built reports whether the value has been constructed.
func (r *SingletonResolution) Built() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.built
}

// Dispose closes the built value if it implements io.Closer.
func (r *SingletonResolution) Dispose() error {
	return r.guard.Dispose(func(context.Context) error {
		r.mu.Lock()
		instance, built := r.instance, r.built
		r.instance, r.built = nil, false
		r.mu.Unlock()

		if !built {
			return nil
		}
		return closeValue(instance)
	})
}
