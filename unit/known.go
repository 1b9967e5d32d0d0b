package unit

import "sync"

// KnownSet records units that have been seen. It only grows.
type KnownSet struct {
	mu    sync.Mutex
	byPtr map[*Unit]struct{}
	ids   []Identity
}

// NewKnownSet returns an empty set.
func NewKnownSet() *KnownSet {
	return &KnownSet{byPtr: make(map[*Unit]struct{})}
}

// Add records u and reports whether it was new. A unit is known if the same
// *Unit was added before or if an equal identity was.
func (s *KnownSet) Add(u *Unit) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.containsLocked(u) {
		return false
	}
	s.byPtr[u] = struct{}{}
	s.ids = append(s.ids, u.Identity)
	return true
}

// Contains reports whether u is known.
func (s *KnownSet) Contains(u *Unit) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.containsLocked(u)
}

func (s *KnownSet) containsLocked(u *Unit) bool {
	if _, ok := s.byPtr[u]; ok {
		return true
	}
	for _, id := range s.ids {
		if id.Equal(u.Identity) {
			return true
		}
	}
	return false
}

// Len returns the number of known units.
func (s *KnownSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Identities returns the known identities in the order they were added.
func (s *KnownSet) Identities() []Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Identity(nil), s.ids...)
}
