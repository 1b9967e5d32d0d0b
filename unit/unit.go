package unit

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/kbukum/dikit/di"
)

// Identity names a code unit.
type Identity struct {
	Name     string `json:"name"`
	Version  string `json:"version,omitempty"`
	Locale   string `json:"locale,omitempty"`
	KeyToken string `json:"key_token,omitempty"`
}

// Equal compares identities component by component. Name and locale are
// case-insensitive.
func (i Identity) Equal(o Identity) bool {
	return strings.EqualFold(i.Name, o.Name) &&
		i.Version == o.Version &&
		strings.EqualFold(i.Locale, o.Locale) &&
		i.KeyToken == o.KeyToken
}

// String renders the identity as name@version with optional locale and key
// token.
func (i Identity) String() string {
	var b strings.Builder
	b.WriteString(i.Name)
	if i.Version != "" {
		b.WriteString("@" + i.Version)
	}
	if i.Locale != "" {
		b.WriteString(" locale=" + i.Locale)
	}
	if i.KeyToken != "" {
		b.WriteString(" key=" + i.KeyToken)
	}
	return b.String()
}

// Callback is the blocking registration callback shape.
type Callback = func(c *di.Container)

// ContextCallback is the cooperative registration callback shape.
type ContextCallback = func(ctx context.Context, c *di.Container) error

// Method is an exported method of a type in a unit.
type Method struct {
	Name   string
	Public bool
	Static bool
	// Marker is set on methods annotated as registration callbacks.
	Marker bool
	Func   any
}

// Type is an exported type of a unit.
type Type struct {
	Name    string
	Methods []Method
}

// Unit is a loadable code unit.
type Unit struct {
	Identity Identity
	// Dynamic units are generated at run time and are never scanned.
	Dynamic bool
	// Exports lists the unit's exported types. It may return types together
	// with a *PartialLoadError when some types failed to load.
	Exports func() ([]Type, error)
}

// String returns the unit identity.
func (u *Unit) String() string { return u.Identity.String() }

// Types returns the exported types, or nil if the unit exports nothing.
func (u *Unit) Types() ([]Type, error) {
	if u.Exports == nil {
		return nil, nil
	}
	return u.Exports()
}

// New returns a unit exporting the given types.
func New(id Identity, types ...Type) *Unit {
	return &Unit{
		Identity: id,
		Exports:  func() ([]Type, error) { return types, nil },
	}
}

// Callbacks returns a type whose methods are the given registration
// callbacks, each marked public and static. Method names come from the
// function names.
func Callbacks(typeName string, fns ...any) Type {
	t := Type{Name: typeName, Methods: make([]Method, 0, len(fns))}
	for _, fn := range fns {
		t.Methods = append(t.Methods, Method{
			Name:   funcName(fn),
			Public: true,
			Static: true,
			Marker: true,
			Func:   fn,
		})
	}
	return t
}

func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return fmt.Sprintf("%T", fn)
	}
	if f := runtime.FuncForPC(v.Pointer()); f != nil {
		name := f.Name()
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
		return name
	}
	return fmt.Sprintf("%T", fn)
}

// PartialLoadError reports exported types that failed to load.
type PartialLoadError struct {
	Unit   string
	Failed []string
	Causes []error
}

func (e *PartialLoadError) Error() string {
	return fmt.Sprintf("unit %s: %d types failed to load: %s", e.Unit, len(e.Failed), strings.Join(e.Failed, ", "))
}

// Unwrap returns the load failures.
func (e *PartialLoadError) Unwrap() []error { return e.Causes }
