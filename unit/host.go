package unit

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kbukum/dikit/errors"
)

// Host enumerates loaded units and reports units loaded later.
type Host interface {
	// Units returns the currently loaded units.
	Units() []*Unit
	// Subscribe calls fn for every unit loaded after the call. The returned
	// function cancels the subscription.
	Subscribe(fn func(*Unit)) (cancel func())
	// Load loads the named unit on demand.
	Load(ctx context.Context, name string) (*Unit, error)
}

// StaticHost is an in-memory Host. Units are either loaded, or available
// and loaded on demand by name.
type StaticHost struct {
	mu        sync.RWMutex
	loaded    []*Unit
	available map[string]*Unit
	subs      map[uint64]func(*Unit)
	nextSub   uint64
}

// NewStaticHost returns a host with the given units already loaded.
func NewStaticHost(loaded ...*Unit) *StaticHost {
	return &StaticHost{
		loaded:    append([]*Unit(nil), loaded...),
		available: make(map[string]*Unit),
		subs:      make(map[uint64]func(*Unit)),
	}
}

func nameKey(name string) string { return strings.ToLower(name) }

// Provide makes units loadable by name without loading them.
func (h *StaticHost) Provide(units ...*Unit) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, u := range units {
		h.available[nameKey(u.Identity.Name)] = u
	}
}

// Register loads units and notifies subscribers. Subscribers run outside
// the host lock, so they may call back into the host.
func (h *StaticHost) Register(units ...*Unit) {
	for _, u := range units {
		h.mu.Lock()
		subs := h.appendLocked(u)
		h.mu.Unlock()
		notify(subs, u)
	}
}

// appendLocked records u as loaded and returns the subscribers to notify in
// subscription order. The caller must hold the write lock.
func (h *StaticHost) appendLocked(u *Unit) []func(*Unit) {
	h.loaded = append(h.loaded, u)
	delete(h.available, nameKey(u.Identity.Name))

	subs := make([]func(*Unit), 0, len(h.subs))
	for id := uint64(0); id < h.nextSub; id++ {
		if fn, ok := h.subs[id]; ok {
			subs = append(subs, fn)
		}
	}
	return subs
}

func notify(subs []func(*Unit), u *Unit) {
	for _, fn := range subs {
		fn(u)
	}
}

// Units returns the loaded units in load order.
func (h *StaticHost) Units() []*Unit {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]*Unit(nil), h.loaded...)
}

// Subscribe registers fn for later loads.
func (h *StaticHost) Subscribe(fn func(*Unit)) (cancel func()) {
	h.mu.Lock()
	id := h.nextSub
	h.nextSub++
	h.subs[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Load returns the named unit, loading it first if it is only available.
func (h *StaticHost) Load(ctx context.Context, name string) (*Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Canceled("host", err)
	}

	h.mu.Lock()
	for _, u := range h.loaded {
		if strings.EqualFold(u.Identity.Name, name) {
			h.mu.Unlock()
			return u, nil
		}
	}
	u, ok := h.available[nameKey(name)]
	if !ok {
		h.mu.Unlock()
		return nil, errors.New(errors.ErrCodeNotFound, fmt.Sprintf("Unit %s is not available.", name)).
			WithDetail("unit", name)
	}
	subs := h.appendLocked(u)
	h.mu.Unlock()

	notify(subs, u)
	return u, nil
}
