package di

import (
	"context"
	"reflect"
)

// Lifetime describes how long values produced by a Resolution live.
type Lifetime int

const (
	Unknown Lifetime = iota
	Transient
	Scoped
	Singleton
	Instance
)

// String returns the lifetime name.
func (l Lifetime) String() string {
	switch l {
	case Transient:
		return "transient"
	case Scoped:
		return "scoped"
	case Singleton:
		return "singleton"
	case Instance:
		return "instance"
	default:
		return "unknown"
	}
}

// Resolution is a strategy that produces values for a registered key.
//
// Resolve receives the requesting container so strategies can resolve their
// own dependencies. The container holds no lock while Resolve runs.
type Resolution interface {
	Lifetime() Lifetime
	Resolve(ctx context.Context, c *Container, t reflect.Type, selector string) (any, error)
	Dispose() error
}
