package unit

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/kbukum/dikit/di"
	"github.com/kbukum/dikit/errors"
)

func registerNothing(*di.Container) {}

func TestIdentityEqual(t *testing.T) {
	base := Identity{Name: "Storage", Version: "1.0.0", Locale: "en-US", KeyToken: "abc"}

	tests := []struct {
		name  string
		other Identity
		want  bool
	}{
		{"identical", base, true},
		{"name case", Identity{Name: "storage", Version: "1.0.0", Locale: "en-US", KeyToken: "abc"}, true},
		{"locale case", Identity{Name: "Storage", Version: "1.0.0", Locale: "EN-us", KeyToken: "abc"}, true},
		{"version differs", Identity{Name: "Storage", Version: "1.0.1", Locale: "en-US", KeyToken: "abc"}, false},
		{"key differs", Identity{Name: "Storage", Version: "1.0.0", Locale: "en-US", KeyToken: "ABC"}, false},
		{"name differs", Identity{Name: "Cache", Version: "1.0.0", Locale: "en-US", KeyToken: "abc"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := base.Equal(tc.other); got != tc.want {
				t.Errorf("Equal = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestIdentityString(t *testing.T) {
	id := Identity{Name: "storage", Version: "1.0.0", Locale: "en", KeyToken: "k1"}
	if got := id.String(); got != "storage@1.0.0 locale=en key=k1" {
		t.Errorf("unexpected identity string %q", got)
	}
	if got := (Identity{Name: "bare"}).String(); got != "bare" {
		t.Errorf("expected bare name, got %q", got)
	}
}

func TestCallbacks(t *testing.T) {
	typ := Callbacks("storage.Module", registerNothing)
	if typ.Name != "storage.Module" || len(typ.Methods) != 1 {
		t.Fatalf("unexpected type %+v", typ)
	}
	m := typ.Methods[0]
	if !m.Public || !m.Static || !m.Marker {
		t.Errorf("expected public static marker method, got %+v", m)
	}
	if !strings.HasSuffix(m.Name, "registerNothing") {
		t.Errorf("expected method named after the function, got %q", m.Name)
	}
	if _, ok := m.Func.(Callback); !ok {
		t.Errorf("expected Func to be a Callback, got %T", m.Func)
	}
}

func TestUnitTypes(t *testing.T) {
	u := New(Identity{Name: "core"}, Callbacks("core.Module", registerNothing))
	types, err := u.Types()
	if err != nil || len(types) != 1 {
		t.Fatalf("expected one type, got %v %v", types, err)
	}
	if (&Unit{}).String() != "" {
		t.Error("expected empty identity string for zero unit")
	}
	if types, err := (&Unit{}).Types(); types != nil || err != nil {
		t.Errorf("expected no exports, got %v %v", types, err)
	}
}

func TestPartialLoadError(t *testing.T) {
	cause := fmt.Errorf("missing dependency")
	err := error(&PartialLoadError{Unit: "core", Failed: []string{"core.Broken"}, Causes: []error{cause}})

	if !stderrors.Is(err, cause) {
		t.Error("expected causes to unwrap")
	}
	var partial *PartialLoadError
	if !stderrors.As(err, &partial) || partial.Failed[0] != "core.Broken" {
		t.Errorf("expected PartialLoadError, got %v", err)
	}
	if !strings.Contains(err.Error(), "core.Broken") {
		t.Errorf("expected failed type in message, got %q", err.Error())
	}
}

func TestKnownSet(t *testing.T) {
	s := NewKnownSet()
	a := New(Identity{Name: "a", Version: "1"})
	aCopy := New(Identity{Name: "A", Version: "1"})
	b := New(Identity{Name: "b", Version: "1"})

	if !s.Add(a) {
		t.Error("expected first Add to report new")
	}
	if s.Add(a) {
		t.Error("expected same pointer to be known")
	}
	if s.Add(aCopy) {
		t.Error("expected equal identity to be known")
	}
	if !s.Contains(aCopy) {
		t.Error("expected Contains to use identity comparison")
	}
	if !s.Add(b) {
		t.Error("expected distinct identity to be new")
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 known units, got %d", s.Len())
	}
	ids := s.Identities()
	if len(ids) != 2 || ids[0].Name != "a" || ids[1].Name != "b" {
		t.Errorf("expected identities in add order, got %v", ids)
	}
}

func TestKnownSet_Concurrent(t *testing.T) {
	s := NewKnownSet()
	u := New(Identity{Name: "shared"})

	var wg sync.WaitGroup
	var added sync.Map
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Add(u) {
				added.Store(i, true)
			}
		}()
	}
	wg.Wait()

	n := 0
	added.Range(func(_, _ any) bool { n++; return true })
	if n != 1 {
		t.Errorf("expected exactly one Add to win, got %d", n)
	}
}

func TestStaticHost_SubscribeAndRegister(t *testing.T) {
	first := New(Identity{Name: "first"})
	h := NewStaticHost(first)

	var seen []string
	cancel := h.Subscribe(func(u *Unit) { seen = append(seen, u.Identity.Name) })

	second := New(Identity{Name: "second"})
	h.Register(second)
	cancel()
	cancel()
	h.Register(New(Identity{Name: "third"}))

	if len(seen) != 1 || seen[0] != "second" {
		t.Errorf("expected only second notified, got %v", seen)
	}
	units := h.Units()
	if len(units) != 3 || units[0] != first || units[1] != second {
		t.Errorf("expected units in load order, got %v", units)
	}
}

func TestStaticHost_Load(t *testing.T) {
	h := NewStaticHost()
	lazy := New(Identity{Name: "Lazy"})
	h.Provide(lazy)

	notified := 0
	h.Subscribe(func(*Unit) { notified++ })

	u, err := h.Load(context.Background(), "lazy")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if u != lazy || notified != 1 {
		t.Errorf("expected lazy unit loaded and notified once, got %v / %d", u, notified)
	}

	again, err := h.Load(context.Background(), "LAZY")
	if err != nil || again != lazy {
		t.Fatalf("expected loaded unit returned, got %v %v", again, err)
	}
	if notified != 1 {
		t.Errorf("expected no second notification, got %d", notified)
	}

	if _, err := h.Load(context.Background(), "missing"); !stderrors.Is(err, errors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.Load(ctx, "lazy"); !stderrors.Is(err, context.Canceled) || !errors.HasCode(err, errors.ErrCodeCanceled) {
		t.Errorf("expected CANCELED wrapping context.Canceled, got %v", err)
	}
}

func TestStaticHost_SubscriberMayCallBack(t *testing.T) {
	h := NewStaticHost()
	dep := New(Identity{Name: "dep"})
	h.Provide(dep)

	var loads []string
	h.Subscribe(func(u *Unit) {
		loads = append(loads, u.Identity.Name)
		if u.Identity.Name == "app" {
			if _, err := h.Load(context.Background(), "dep"); err != nil {
				t.Errorf("nested Load failed: %v", err)
			}
		}
	})
	h.Register(New(Identity{Name: "app"}))

	if len(loads) != 2 || loads[1] != "dep" {
		t.Errorf("expected nested load notification, got %v", loads)
	}
}

func TestNewInfo(t *testing.T) {
	info := NewInfo("")
	if info.Identity.Name != RuntimeName {
		t.Errorf("expected runtime name, got %q", info.Identity.Name)
	}
	if info.Identity.Version == "" || info.Identity.Version != info.Build.Version {
		t.Errorf("expected identity versioned from build info, got %+v", info)
	}
	if !strings.HasPrefix(info.String(), RuntimeName) {
		t.Errorf("unexpected info string %q", info.String())
	}
	if NewInfo("app").Identity.Name != "app" {
		t.Error("expected explicit name to be kept")
	}
}
