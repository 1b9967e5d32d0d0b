package resolution

import (
	"context"
	"fmt"
	"reflect"

	"github.com/kbukum/dikit/di"
	"github.com/kbukum/dikit/errors"
)

var (
	contextType   = reflect.TypeFor[context.Context]()
	containerType = reflect.TypeFor[*di.Container]()
	errorType     = reflect.TypeFor[error]()
)

// constructor is a validated constructor function.
type constructor struct {
	fn  reflect.Value
	out reflect.Type
}

func newConstructor(fn any) (*constructor, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return nil, errors.InvalidInput("constructor", "must be a non-nil function")
	}
	ft := v.Type()

	if ft.IsVariadic() || ft.NumIn() > 2 {
		return nil, errors.InvalidInput("constructor", fmt.Sprintf("unsupported parameters in %s", ft))
	}
	seen := make(map[reflect.Type]bool, 2)
	for i := 0; i < ft.NumIn(); i++ {
		in := ft.In(i)
		if (in != contextType && in != containerType) || seen[in] {
			return nil, errors.InvalidInput("constructor", fmt.Sprintf("unsupported parameters in %s", ft))
		}
		seen[in] = true
	}

	switch ft.NumOut() {
	case 1:
	case 2:
		if ft.Out(1) != errorType {
			return nil, errors.InvalidInput("constructor", fmt.Sprintf("second result of %s must be error", ft))
		}
	default:
		return nil, errors.InvalidInput("constructor", "must return either (instance) or (instance, error)")
	}

	return &constructor{fn: v, out: ft.Out(0)}, nil
}

// call invokes the constructor, supplying ctx and c where requested.
func (k *constructor) call(ctx context.Context, c *di.Container) (any, error) {
	ft := k.fn.Type()
	args := make([]reflect.Value, ft.NumIn())
	for i := range args {
		if ft.In(i) == contextType {
			args[i] = reflect.ValueOf(&ctx).Elem()
		} else {
			args[i] = reflect.ValueOf(c)
		}
	}

	results := k.fn.Call(args)
	if len(results) == 2 && !results[1].IsNil() {
		return nil, results[1].Interface().(error)
	}
	return valueOf(results[0]), nil
}

// valueOf unwraps a result, mapping nil interfaces and pointers to nil.
func valueOf(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return nil
		}
	}
	return v.Interface()
}
