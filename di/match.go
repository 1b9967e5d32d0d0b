package di

import (
	"reflect"
	"sort"
)

// AnySelector is the wildcard selector for queries. It matches every
// selector and cannot be used as a stored selector.
const AnySelector = "*"

// DefaultSelector is the selector of unnamed registrations.
const DefaultSelector = ""

// Key identifies a registration.
type Key struct {
	Type     reflect.Type
	Selector string
}

// String renders the key as type[selector].
func (k Key) String() string {
	name := "<nil>"
	if k.Type != nil {
		name = k.Type.String()
	}
	return name + "[" + k.Selector + "]"
}

// match ranks. Lower wins.
const (
	rankExact = iota
	rankExactType
	rankAssignable
)

type candidate struct {
	key  Key
	res  Resolution
	rank int
}

// candidates returns every registration matching the query, best first.
// The caller must hold the container lock.
func (c *Container) candidates(t reflect.Type, selector string, includeAssignable bool) []candidate {
	wildcard := selector == AnySelector

	var out []candidate
	for key, res := range c.registrations {
		if !wildcard && key.Selector != selector {
			continue
		}
		rank := -1
		switch {
		case key.Type == t && !wildcard:
			rank = rankExact
		case key.Type == t:
			rank = rankExactType
		case includeAssignable && key.Type.AssignableTo(t):
			rank = rankAssignable
		}
		if rank < 0 {
			continue
		}
		out = append(out, candidate{key: key, res: res, rank: rank})
	}

	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func less(a, b candidate) bool {
	if a.rank != b.rank {
		return a.rank < b.rank
	}
	if a.key.Selector != b.key.Selector {
		// The default selector is the empty string and sorts first.
		return a.key.Selector < b.key.Selector
	}
	return a.key.Type.String() < b.key.Type.String()
}

// best returns the winning candidate, if any.
func (c *Container) best(t reflect.Type, selector string, includeAssignable bool) (candidate, bool) {
	all := c.candidates(t, selector, includeAssignable)
	if len(all) == 0 {
		return candidate{}, false
	}
	return all[0], true
}
