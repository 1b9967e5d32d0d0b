// Package di provides the dependency resolution registry.
//
// A Container binds a (reflect.Type, selector) key to a Resolution, the
// strategy that produces values for that key. Lookups may match the exact
// type only or, with includeAssignable, any registered type assignable to
// the requested one. When several registrations match, exact type and
// selector matches always win.
//
// Every operation has a blocking form and a Context form. The context only
// bounds the wait for the container lock.
//
// # Registration
//
//	c := di.New()
//	_ = c.Create()
//	_ = di.Register[Greeter](c, "", resolution.Instance(english{}))
//
// # Resolution
//
//	g := di.MustResolve[Greeter](c, "")
package di
