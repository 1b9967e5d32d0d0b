package tracker

import (
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strconv"
	"weak"
)

// Resource is the constraint for trackable resources: a pointer to T that
// can be closed.
type Resource[T any] interface {
	*T
	io.Closer
}

// ClosedReporter is implemented by resources that can report whether they
// have been closed. Check does not count them as leaks once they do.
type ClosedReporter interface {
	Closed() bool
}

// handle is a weak reference to one tracked resource.
type handle interface {
	// live returns the resource, or false once it has been collected.
	live() (any, bool)
	description() string
}

type weakHandle[T any] struct {
	ptr  weak.Pointer[T]
	desc string
}

func newHandle[T any](res *T) *weakHandle[T] {
	return &weakHandle[T]{ptr: weak.Make(res), desc: describe(res)}
}

func (h *weakHandle[T]) live() (any, bool) {
	p := h.ptr.Value()
	if p == nil {
		return nil, false
	}
	return p, true
}

func (h *weakHandle[T]) description() string { return h.desc }

// holds reports whether h still refers to res.
func (h *weakHandle[T]) holds(res *T) bool {
	p := h.ptr.Value()
	return p != nil && p == res
}

// indexOf finds res in handles by dereferencing each handle.
func indexOf[T any](handles []handle, res *T) int {
	for i, h := range handles {
		if wh, ok := h.(*weakHandle[T]); ok && wh.holds(res) {
			return i
		}
	}
	return -1
}

func describe(res any) string {
	if s, ok := res.(fmt.Stringer); ok {
		return fmt.Sprintf("%T(%s)", res, s.String())
	}
	return fmt.Sprintf("%T@%p", res, res)
}

// callerSite returns file:line of the frame skip levels above its caller.
func callerSite(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "unknown"
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}
