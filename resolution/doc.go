// Package resolution provides the standard di.Resolution strategies.
//
//   - Instance hands out one pre-built value.
//   - Singleton builds its value on first resolve and reuses it.
//   - Transient builds a new value on every resolve.
//
// Singleton and Transient take a constructor function. Its parameters may be
// any of context.Context and *di.Container, in any order, and it returns
// either the value or the value and an error.
//
//	di.Register[Store](c, "", resolution.Singleton(func(ctx context.Context) (Store, error) {
//	    return openStore(ctx)
//	}))
package resolution
