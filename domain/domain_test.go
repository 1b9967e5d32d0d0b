package domain

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/dikit/component"
	"github.com/kbukum/dikit/config"
	"github.com/kbukum/dikit/di"
	"github.com/kbukum/dikit/errors"
	"github.com/kbukum/dikit/lifecycle"
	"github.com/kbukum/dikit/resolution"
	"github.com/kbukum/dikit/tracker"
	"github.com/kbukum/dikit/unit"
)

type greeter interface{ Greet() string }

type english struct{}

func (english) Greet() string { return "hello" }

type turkish struct{}

func (turkish) Greet() string { return "merhaba" }

// registering returns a unit whose single callback registers value under
// (greeter, selector).
func registering(name, selector string, value greeter) *unit.Unit {
	return unit.New(unit.Identity{Name: name, Version: "1.0.0"},
		unit.Callbacks("Registrations", func(c *di.Container) {
			if err := di.Register[greeter](c, selector, resolution.Instance(value)); err != nil {
				panic(err)
			}
		}))
}

// counting returns a unit with one blocking callback that counts its calls.
func counting(name string, calls *atomic.Int32) *unit.Unit {
	return unit.New(unit.Identity{Name: name},
		unit.Callbacks("Registrations", func(*di.Container) { calls.Add(1) }))
}

func created(t *testing.T, host unit.Host, opts ...Option) *Domain {
	t.Helper()
	d := New(host, opts...)
	if err := d.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { _ = d.Dispose() })
	return d
}

func TestCreateSeedsTrustedRegistrations(t *testing.T) {
	settings := config.NewSettingsFromMap(map[string]any{"greeting": "hi"})
	info := unit.Info{Identity: unit.Identity{Name: "app", Version: "2.0.0"}}
	d := created(t, nil, WithSettings(settings), WithInfo(info))

	gotSettings, err := di.Resolve[*config.Settings](d.Container(), di.DefaultSelector)
	if err != nil {
		t.Fatalf("resolve settings: %v", err)
	}
	if gotSettings != settings {
		t.Error("expected the seeded settings instance")
	}

	gotInfo, err := di.Resolve[unit.Info](d.Container(), di.DefaultSelector)
	if err != nil {
		t.Fatalf("resolve info: %v", err)
	}
	if !gotInfo.Identity.Equal(info.Identity) {
		t.Errorf("expected info %v, got %v", info.Identity, gotInfo.Identity)
	}
}

func TestDefaultsSeeded(t *testing.T) {
	d := created(t, nil)

	info, err := di.Resolve[unit.Info](d.Container(), "")
	if err != nil {
		t.Fatalf("resolve info: %v", err)
	}
	if info.Identity.Name != unit.RuntimeName {
		t.Errorf("expected default info name %q, got %q", unit.RuntimeName, info.Identity.Name)
	}
	if d.Settings() == nil {
		t.Error("expected default settings")
	}
}

func TestCallbacksSeeSeededRegistrations(t *testing.T) {
	settings := config.NewSettingsFromMap(map[string]any{"greeting": "selam"})
	var seen string
	u := unit.New(unit.Identity{Name: "reader"},
		unit.Callbacks("Registrations", func(c *di.Container) {
			s := di.MustResolve[*config.Settings](c, "")
			seen = s.GetString("greeting")
		}))

	created(t, unit.NewStaticHost(u), WithSettings(settings))
	if seen != "selam" {
		t.Errorf("expected callback to read seeded settings, got %q", seen)
	}
}

func TestScanTwoUnits(t *testing.T) {
	host := unit.NewStaticHost(
		registering("english", "en", english{}),
		registering("turkish", "tr", turkish{}),
	)
	d := created(t, host)
	c := d.Container()

	for _, sel := range []string{"en", "tr"} {
		if !di.Has[greeter](c, sel) {
			t.Errorf("expected registration for %q", sel)
		}
	}
	if di.Has[greeter](c, "de") {
		t.Error("expected no registration for de")
	}

	g, err := di.Resolve[greeter](c, "tr")
	if err != nil || g.Greet() != "merhaba" {
		t.Errorf("unexpected resolve %v %v", g, err)
	}
	if n := len(d.Known()); n != 2 {
		t.Errorf("expected 2 known units, got %d", n)
	}
}

func TestUnitScannedOnce(t *testing.T) {
	var calls atomic.Int32
	u := counting("once", &calls)
	twin := counting("ONCE", &calls)

	d := created(t, unit.NewStaticHost(u, u, twin))
	if err := d.Scan(u); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 callback invocation, got %d", got)
	}
	if n := len(d.Known()); n != 1 {
		t.Errorf("expected 1 known unit, got %d", n)
	}
}

func TestDynamicUnitSkipped(t *testing.T) {
	var calls atomic.Int32
	u := counting("dynamic", &calls)
	u.Dynamic = true

	d := created(t, unit.NewStaticHost(u))
	if calls.Load() != 0 {
		t.Error("dynamic unit must not be scanned")
	}
	if len(d.Known()) != 0 {
		t.Error("dynamic unit must not be recorded")
	}
}

func TestPartialLoadKeepsLoadedTypes(t *testing.T) {
	var calls atomic.Int32
	u := &unit.Unit{
		Identity: unit.Identity{Name: "partial"},
		Exports: func() ([]unit.Type, error) {
			types := []unit.Type{unit.Callbacks("Loaded", func(*di.Container) { calls.Add(1) })}
			return types, &unit.PartialLoadError{
				Unit:   "partial",
				Failed: []string{"Broken"},
				Causes: []error{fmt.Errorf("missing dependency")},
			}
		},
	}

	if err := New(unit.NewStaticHost(u)).Create(); err != nil {
		t.Fatalf("partial load must not fail the scan: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected loaded callback to run, got %d calls", calls.Load())
	}
}

func TestExportsFailure(t *testing.T) {
	u := &unit.Unit{
		Identity: unit.Identity{Name: "broken"},
		Exports:  func() ([]unit.Type, error) { return nil, fmt.Errorf("corrupt image") },
	}

	d := New(unit.NewStaticHost(u))
	err := d.Create()
	if !errors.HasCode(err, errors.ErrCodeInternal) {
		t.Fatalf("expected INTERNAL_ERROR, got %v", err)
	}
	if d.State() != lifecycle.Created {
		t.Errorf("domain should stay created, got %v", d.State())
	}
	_ = d.Dispose()
}

func TestNotificationScansLateUnits(t *testing.T) {
	host := unit.NewStaticHost()
	d := created(t, host)

	host.Register(registering("late", "late", english{}))
	if !di.Has[greeter](d.Container(), "late") {
		t.Fatal("expected late unit to be scanned")
	}

	if err := d.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	var calls atomic.Int32
	host.Register(counting("after-dispose", &calls))
	if calls.Load() != 0 {
		t.Error("disposed domain must not scan new units")
	}
}

func TestLoad(t *testing.T) {
	host := unit.NewStaticHost()
	host.Provide(registering("plugin", "plugin", english{}))
	d := created(t, host)

	u, err := d.Load("Plugin")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if u.Identity.Name != "plugin" {
		t.Errorf("unexpected unit %v", u)
	}
	if !di.Has[greeter](d.Container(), "plugin") {
		t.Error("expected loaded unit to be scanned")
	}

	_, err = d.Load("missing")
	if !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

func TestLoadContextCancelled(t *testing.T) {
	host := unit.NewStaticHost()
	host.Provide(registering("plugin", "plugin", english{}))
	d := created(t, host)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.LoadContext(ctx, "plugin"); !stderrors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCallbackFailuresDoNotStopScan(t *testing.T) {
	var ran atomic.Bool
	u := unit.New(unit.Identity{Name: "faulty"},
		unit.Callbacks("Registrations",
			func(context.Context, *di.Container) error { return fmt.Errorf("boom") },
			func(*di.Container) { panic("kaboom") },
			func(*di.Container) { ran.Store(true) },
		))

	d := New(unit.NewStaticHost(u))
	err := d.Create()
	if err == nil {
		t.Fatal("expected callback failures")
	}
	defer d.Dispose()

	if !ran.Load() {
		t.Error("remaining callbacks must still run")
	}
	if !stderrors.Is(err, errors.ErrCallbackFailed) {
		t.Errorf("expected CALLBACK_FAILED, got %v", err)
	}
	if !strings.Contains(err.Error(), "faulty") {
		t.Errorf("expected unit name in %q", err.Error())
	}

	causes := map[string]bool{}
	for _, appErr := range appErrors(err) {
		if appErr.Code == errors.ErrCodeCallbackFailed && appErr.Cause != nil {
			causes[appErr.Cause.Error()] = true
		}
	}
	for _, want := range []string{"boom", "panic: kaboom"} {
		if !causes[want] {
			t.Errorf("expected cause %q in %v", want, err)
		}
	}
}

// appErrors collects the AppErrors in a tree of joined errors.
func appErrors(err error) []*errors.AppError {
	if appErr, ok := err.(*errors.AppError); ok {
		return []*errors.AppError{appErr}
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return nil
	}
	var out []*errors.AppError
	for _, e := range joined.Unwrap() {
		out = append(out, appErrors(e)...)
	}
	return out
}

func TestCallbackModes(t *testing.T) {
	tests := []struct {
		name            string
		mode            CallbackMode
		wantBlocking    int32
		wantCooperative int32
	}{
		{"all", ModeAll, 1, 1},
		{"blocking", ModeBlocking, 1, 0},
		{"cooperative", ModeCooperative, 0, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var blocking, cooperative atomic.Int32
			u := unit.New(unit.Identity{Name: "mixed"},
				unit.Callbacks("Registrations",
					func(*di.Container) { blocking.Add(1) },
					func(context.Context, *di.Container) error {
						cooperative.Add(1)
						return nil
					},
				))

			created(t, unit.NewStaticHost(u), WithCallbackMode(tc.mode))
			if blocking.Load() != tc.wantBlocking || cooperative.Load() != tc.wantCooperative {
				t.Errorf("blocking=%d cooperative=%d, want %d %d",
					blocking.Load(), cooperative.Load(), tc.wantBlocking, tc.wantCooperative)
			}
		})
	}
}

func TestParseCallbackMode(t *testing.T) {
	tests := []struct {
		in   string
		want CallbackMode
	}{
		{"", ModeAll},
		{"all", ModeAll},
		{"blocking", ModeBlocking},
		{"cooperative", ModeCooperative},
	}
	for _, tc := range tests {
		got, err := ParseCallbackMode(tc.in)
		if err != nil || got != tc.want {
			t.Errorf("ParseCallbackMode(%q) = %v, %v", tc.in, got, err)
		}
		if tc.in != "" && got.String() != tc.in {
			t.Errorf("String() = %q, want %q", got.String(), tc.in)
		}
	}

	if _, err := ParseCallbackMode("eager"); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestOnlyQualifyingMethodsInvoked(t *testing.T) {
	var calls atomic.Int32
	count := func(*di.Container) { calls.Add(1) }

	u := unit.New(unit.Identity{Name: "methods"}, unit.Type{
		Name: "Mixed",
		Methods: []unit.Method{
			{Name: "Qualifies", Public: true, Static: true, Marker: true, Func: count},
			{Name: "NoMarker", Public: true, Static: true, Func: count},
			{Name: "Private", Static: true, Marker: true, Func: count},
			{Name: "Instance", Public: true, Marker: true, Func: count},
			{Name: "WrongShape", Public: true, Static: true, Marker: true, Func: func(int) {}},
			{Name: "ReturnsValue", Public: true, Static: true, Marker: true, Func: func(*di.Container) int { return 0 }},
			{Name: "NilFunc", Public: true, Static: true, Marker: true},
		},
	})

	created(t, unit.NewStaticHost(u))
	if calls.Load() != 1 {
		t.Errorf("expected only the qualifying method to run, got %d calls", calls.Load())
	}
}

func TestScanTimeoutBoundsCooperativeCallbacks(t *testing.T) {
	var hasDeadline atomic.Bool
	u := unit.New(unit.Identity{Name: "slow"},
		unit.Callbacks("Registrations", func(ctx context.Context, _ *di.Container) error {
			_, ok := ctx.Deadline()
			hasDeadline.Store(ok)
			<-ctx.Done()
			return ctx.Err()
		}))

	d := New(unit.NewStaticHost(u), WithScanTimeout(10*time.Millisecond))
	err := d.Create()
	defer d.Dispose()

	if !hasDeadline.Load() {
		t.Error("expected callback context to carry a deadline")
	}
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestLifecycle(t *testing.T) {
	d := New(nil)

	if err := d.Scan(unit.New(unit.Identity{Name: "early"})); !errors.HasCode(err, errors.ErrCodeNotInitialized) {
		t.Errorf("expected NOT_INITIALIZED before Create, got %v", err)
	}
	if _, err := d.Load("early"); !errors.HasCode(err, errors.ErrCodeNotInitialized) {
		t.Errorf("expected NOT_INITIALIZED before Create, got %v", err)
	}

	if err := d.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := d.Create(); !errors.HasCode(err, errors.ErrCodeAlreadyInitialized) {
		t.Errorf("expected ALREADY_INITIALIZED, got %v", err)
	}

	c, tr := d.Container(), d.Tracker()
	if c.State() != lifecycle.Created || tr.State() != lifecycle.Created {
		t.Fatal("expected container and tracker to be created")
	}

	if err := d.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if err := d.Dispose(); err != nil {
		t.Errorf("second Dispose must be a no-op, got %v", err)
	}

	if err := d.Scan(unit.New(unit.Identity{Name: "late"})); !errors.HasCode(err, errors.ErrCodeDisposed) {
		t.Errorf("expected DISPOSED, got %v", err)
	}
	if _, err := di.Resolve[unit.Info](c, ""); !errors.HasCode(err, errors.ErrCodeDisposed) {
		t.Errorf("expected container DISPOSED, got %v", err)
	}
	if tr.State() != lifecycle.Disposed {
		t.Error("owned tracker must be disposed with the domain")
	}
	if err := d.Create(); !errors.HasCode(err, errors.ErrCodeDisposed) {
		t.Errorf("expected DISPOSED on Create after Dispose, got %v", err)
	}
}

func TestDisposeBeforeCreate(t *testing.T) {
	d := New(nil)
	if err := d.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if d.State() != lifecycle.Disposed {
		t.Errorf("expected Disposed, got %v", d.State())
	}
}

func TestStartTwiceKeepsDomain(t *testing.T) {
	var calls atomic.Int32
	d := New(unit.NewStaticHost(counting("once", &calls)))
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop(ctx)
	c, tr := d.Container(), d.Tracker()

	if err := d.Start(ctx); !errors.HasCode(err, errors.ErrCodeAlreadyInitialized) {
		t.Fatalf("expected ALREADY_INITIALIZED, got %v", err)
	}
	if d.State() != lifecycle.Created {
		t.Fatalf("expected domain still Created, got %v", d.State())
	}
	if c.State() != lifecycle.Created || tr.State() != lifecycle.Created {
		t.Error("expected container and tracker untouched by the second Start")
	}
	if _, err := di.Resolve[unit.Info](d.Container(), ""); err != nil {
		t.Errorf("expected container usable, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected one scan, got %d", calls.Load())
	}
}

func TestStartDisposesAfterFailedScan(t *testing.T) {
	u := unit.New(unit.Identity{Name: "broken"},
		unit.Callbacks("Registrations", func(context.Context, *di.Container) error {
			return fmt.Errorf("bad wiring")
		}))
	d := New(unit.NewStaticHost(u))

	if err := d.Start(context.Background()); !stderrors.Is(err, errors.ErrCallbackFailed) {
		t.Fatalf("expected CALLBACK_FAILED, got %v", err)
	}
	if d.State() != lifecycle.Disposed {
		t.Errorf("expected Disposed after a failed start, got %v", d.State())
	}
}

func TestCreateContextCancelledIsRetryable(t *testing.T) {
	var calls atomic.Int32
	d := New(unit.NewStaticHost(counting("retry", &calls)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.CreateContext(ctx); !stderrors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if d.State() != lifecycle.Uninitialized {
		t.Fatalf("expected Uninitialized, got %v", d.State())
	}

	if err := d.Create(); err != nil {
		t.Fatalf("retry Create: %v", err)
	}
	defer d.Dispose()
	if calls.Load() != 1 {
		t.Errorf("expected one scan after retry, got %d", calls.Load())
	}
}

func TestExternalTrackerNotOwned(t *testing.T) {
	tr := tracker.New()
	if err := tr.Create(); err != nil {
		t.Fatalf("tracker Create: %v", err)
	}
	defer tr.Dispose()

	d := New(nil, WithTracker(tr))
	if d.Tracker() != tr {
		t.Fatal("expected the supplied tracker")
	}
	if err := d.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := d.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if tr.State() != lifecycle.Created {
		t.Error("domain must not dispose a tracker it does not own")
	}
}

func TestDisposeClosesOwnedRegistrations(t *testing.T) {
	closer := &closeCounter{}
	u := unit.New(unit.Identity{Name: "owner"},
		unit.Callbacks("Registrations", func(c *di.Container) {
			_ = di.Register[*closeCounter](c, "", resolution.Instance(closer, resolution.Owned()))
		}))

	d := New(unit.NewStaticHost(u))
	if err := d.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := d.Dispose(); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if closer.closed.Load() != 1 {
		t.Errorf("expected owned instance closed once, got %d", closer.closed.Load())
	}
}

type closeCounter struct {
	name   string
	closed atomic.Int32
}

func (c *closeCounter) Close() error {
	c.closed.Add(1)
	return nil
}

func TestConcurrentUnitLoads(t *testing.T) {
	host := unit.NewStaticHost()
	d := created(t, host)

	const units = 32
	var calls atomic.Int32
	g, _ := errgroup.WithContext(context.Background())
	for i := 0; i < units; i++ {
		u := counting(fmt.Sprintf("unit-%d", i), &calls)
		g.Go(func() error {
			host.Register(u)
			// Racing an explicit scan against the notification.
			return d.Scan(u)
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent loads: %v", err)
	}

	if got := calls.Load(); got != units {
		t.Errorf("expected %d callback invocations, got %d", units, got)
	}
	if got := len(d.Known()); got != units {
		t.Errorf("expected %d known units, got %d", units, got)
	}
}

func TestCallbackCanResolveDuringScan(t *testing.T) {
	first := registering("first", "", english{})
	second := unit.New(unit.Identity{Name: "second"},
		unit.Callbacks("Registrations", func(ctx context.Context, c *di.Container) error {
			g, err := di.ResolveContext[greeter](ctx, c, "")
			if err != nil {
				return err
			}
			return di.Register[string](c, "greeting", resolution.Instance(g.Greet()))
		}))

	d := created(t, unit.NewStaticHost(first, second))
	got, err := di.Resolve[string](d.Container(), "greeting")
	if err != nil || got != "hello" {
		t.Errorf("expected hello, got %q %v", got, err)
	}
}

func TestHealthAndDescribe(t *testing.T) {
	d := New(unit.NewStaticHost(registering("english", "en", english{})))
	ctx := context.Background()

	if h := d.Health(ctx); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy before start, got %v", h.Status)
	}

	reg := component.NewRegistry()
	if err := reg.Register(d); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.StartAll(ctx); err != nil {
		t.Fatalf("StartAll: %v", err)
	}

	h := d.Health(ctx)
	if h.Status != component.StatusHealthy {
		t.Errorf("expected healthy, got %v: %s", h.Status, h.Message)
	}
	if !strings.Contains(h.Message, "1 units, 3 registrations") {
		t.Errorf("unexpected health message %q", h.Message)
	}

	desc := d.Describe()
	if desc.Type != "domain" || !strings.Contains(desc.Details, "all callbacks") {
		t.Errorf("unexpected description %+v", desc)
	}

	if err := reg.StopAll(ctx); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
	if d.State() != lifecycle.Disposed {
		t.Errorf("expected Disposed after StopAll, got %v", d.State())
	}
}

func TestCurrentBeforeInstallPanics(t *testing.T) {
	saved := process
	process = &processHandle{}
	defer func() { process = saved }()

	func() {
		defer func() {
			r := recover()
			err, ok := r.(error)
			if !ok || !errors.HasCode(err, errors.ErrCodeReentrantSingleton) {
				t.Errorf("expected REENTRANT_SINGLETON panic, got %v", r)
			}
			if !errors.IsFatalCode(errors.ErrCodeReentrantSingleton) {
				t.Error("re-entrant singleton must be fatal")
			}
		}()
		Current()
	}()

	if Install(nil) {
		t.Error("nil domain must not be installed")
	}

	first, second := New(nil), New(nil)
	if !Install(first) {
		t.Fatal("first Install must succeed")
	}
	if Install(second) {
		t.Error("second Install must have no effect")
	}
	if Current() != first {
		t.Error("Current must return the first installed domain")
	}
}
