package di

import (
	"context"
	"fmt"
	"reflect"
)

// Register adds res under the exact type T and selector.
//
// Example:
//
//	err := di.Register[Greeter](c, "", resolution.Instance(english{}))
func Register[T any](c *Container, selector string, res Resolution) error {
	return c.Add(reflect.TypeFor[T](), selector, false, res)
}

// ResolveContext resolves T with type safety. Registrations of types
// assignable to T are considered, but an exact registration of T wins.
func ResolveContext[T any](ctx context.Context, c *Container, selector string) (T, error) {
	var zero T
	value, err := c.ResolveContext(ctx, reflect.TypeFor[T](), selector, true)
	if err != nil {
		return zero, fmt.Errorf("di: failed to resolve %s: %w", reflect.TypeFor[T](), err)
	}
	if value == nil {
		return zero, nil
	}
	if typed, ok := value.(T); ok {
		return typed, nil
	}
	// Assignable but not identical, e.g. []int into a named slice type.
	return reflect.ValueOf(value).Convert(reflect.TypeFor[T]()).Interface().(T), nil
}

// Resolve resolves T with type safety, returns error on failure.
// Use this when you want to handle resolution errors gracefully.
//
// Example:
//
//	greeter, err := di.Resolve[Greeter](c, "")
//	if err != nil {
//	    return fmt.Errorf("failed to get greeter: %w", err)
//	}
func Resolve[T any](c *Container, selector string) (T, error) {
	return ResolveContext[T](context.Background(), c, selector)
}

// MustResolve resolves T with type safety, panics on error.
// Use this during startup wiring where a missing dependency is a bug.
func MustResolve[T any](c *Container, selector string) T {
	value, err := Resolve[T](c, selector)
	if err != nil {
		panic(err)
	}
	return value
}

// TryResolve resolves T, returns zero value and false on any failure.
// Use this when a dependency is optional.
//
// Example:
//
//	if settings, ok := di.TryResolve[*config.Settings](c, ""); ok {
//	    timeout = settings.GetDuration("client.timeout")
//	}
func TryResolve[T any](c *Container, selector string) (T, bool) {
	value, err := Resolve[T](c, selector)
	if err != nil {
		var zero T
		return zero, false
	}
	return value, true
}

// Has reports whether T, or a type assignable to T, is registered under
// selector. Errors count as absent.
func Has[T any](c *Container, selector string) bool {
	found, err := c.Has(reflect.TypeFor[T](), selector, true)
	return err == nil && found
}
