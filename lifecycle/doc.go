// Package lifecycle implements the create/dispose contract shared by every
// stateful component of the runtime, and the reader/writer lock it is built
// on.
//
// A Guard moves through Uninitialized -> Created -> Disposed. Create happens
// at most once, Dispose is idempotent, and every other operation runs under
// the guard's lock and fails once the component is disposed.
//
// Each operation comes in two flavours with identical semantics: a blocking
// one (Create, Read, ...) and a cooperative one taking a context
// (CreateContext, ReadContext, ...). The context only bounds the wait for the
// lock; work already past that point is not cancelled.
package lifecycle
