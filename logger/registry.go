package logger

import (
	"maps"
	"slices"
	"sync"
)

// entry is a named logger. Derived entries are component-tagged copies of
// the global logger and follow it when it is replaced.
type entry struct {
	logger  *Logger
	derived bool
}

var registry = struct {
	mu    sync.RWMutex
	named map[string]entry
}{named: make(map[string]entry)}

// Register pins a logger under name. Replacing the global logger leaves it
// untouched.
func Register(name string, l *Logger) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.named[name] = entry{logger: l}
}

// Unregister removes a named logger so Get falls back to the global logger.
func Unregister(name string) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	delete(registry.named, name)
}

// Get returns the logger registered under name, or the global logger tagged
// with name as its component.
func Get(name string) *Logger {
	registry.mu.RLock()
	e, ok := registry.named[name]
	registry.mu.RUnlock()
	if ok {
		return e.logger
	}
	return GetGlobalLogger().WithComponent(name)
}

// RegisterDefaults registers a component-tagged copy of the global logger
// for each name. The copies are rebuilt whenever the global logger changes.
func RegisterDefaults(names ...string) {
	global := GetGlobalLogger()
	registry.mu.Lock()
	defer registry.mu.Unlock()
	for _, name := range names {
		registry.named[name] = entry{logger: global.WithComponent(name), derived: true}
	}
}

// Names returns the registered names in sorted order.
func Names() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return slices.Sorted(maps.Keys(registry.named))
}

// rederive rebuilds derived entries from a new global logger.
func rederive(global *Logger) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	for name, e := range registry.named {
		if e.derived {
			registry.named[name] = entry{logger: global.WithComponent(name), derived: true}
		}
	}
}
