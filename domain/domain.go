package domain

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/kbukum/dikit/component"
	"github.com/kbukum/dikit/config"
	"github.com/kbukum/dikit/di"
	"github.com/kbukum/dikit/errors"
	"github.com/kbukum/dikit/lifecycle"
	"github.com/kbukum/dikit/logger"
	"github.com/kbukum/dikit/observability"
	"github.com/kbukum/dikit/resolution"
	"github.com/kbukum/dikit/tracker"
	"github.com/kbukum/dikit/unit"
)

// CallbackMode selects which callback shapes a scan invokes.
type CallbackMode int

const (
	// ModeAll invokes blocking and cooperative callbacks.
	ModeAll CallbackMode = iota
	// ModeBlocking invokes only func(*di.Container) callbacks.
	ModeBlocking
	// ModeCooperative invokes only func(context.Context, *di.Container) error callbacks.
	ModeCooperative
)

// String returns the configuration name of the mode.
func (m CallbackMode) String() string {
	switch m {
	case ModeBlocking:
		return config.CallbackModeBlocking
	case ModeCooperative:
		return config.CallbackModeCooperative
	default:
		return config.CallbackModeAll
	}
}

// ParseCallbackMode maps a config.DomainConfig callback mode to a CallbackMode.
// The empty string is ModeAll.
func ParseCallbackMode(s string) (CallbackMode, error) {
	switch s {
	case "", config.CallbackModeAll:
		return ModeAll, nil
	case config.CallbackModeBlocking:
		return ModeBlocking, nil
	case config.CallbackModeCooperative:
		return ModeCooperative, nil
	}
	return ModeAll, errors.InvalidInput("callback_mode", fmt.Sprintf("unknown callback mode %q", s))
}

var (
	settingsType = reflect.TypeFor[*config.Settings]()
	infoType     = reflect.TypeFor[unit.Info]()
)

// Domain scans code units into a container it owns.
type Domain struct {
	guard *lifecycle.Guard
	host  unit.Host
	known *unit.KnownSet

	// container and tracker are replaced by each Create attempt.
	container   atomic.Pointer[di.Container]
	tracker     atomic.Pointer[tracker.Tracker]
	ownsTracker bool

	settings    *config.Settings
	info        unit.Info
	mode        CallbackMode
	scanTimeout time.Duration
	log         *logger.Logger
	metrics     *observability.Metrics

	// accepting is true from subscription until dispose starts.
	accepting   atomic.Bool
	unsubscribe func()
}

// Option configures a Domain.
type Option func(*Domain)

// WithLogger sets the logger. Defaults to the "domain" named logger.
func WithLogger(l *logger.Logger) Option {
	return func(d *Domain) { d.log = l }
}

// WithSettings sets the settings seeded into the container. Defaults to
// empty settings.
func WithSettings(s *config.Settings) Option {
	return func(d *Domain) { d.settings = s }
}

// WithInfo sets the unit information seeded into the container. Defaults to
// unit.NewInfo("").
func WithInfo(info unit.Info) Option {
	return func(d *Domain) { d.info = info }
}

// WithMetrics enables metric recording for the domain and its container.
func WithMetrics(m *observability.Metrics) Option {
	return func(d *Domain) { d.metrics = m }
}

// WithCallbackMode restricts the callback shapes a scan invokes.
func WithCallbackMode(m CallbackMode) Option {
	return func(d *Domain) { d.mode = m }
}

// WithScanTimeout bounds each cooperative callback. Zero means no bound.
func WithScanTimeout(timeout time.Duration) Option {
	return func(d *Domain) { d.scanTimeout = timeout }
}

// WithTracker makes the domain use t instead of owning a tracker. The domain
// never creates or disposes a tracker it does not own.
func WithTracker(t *tracker.Tracker) Option {
	return func(d *Domain) {
		if t != nil {
			d.tracker.Store(t)
		}
	}
}

// New returns an uninitialized Domain over host. A nil host is an empty
// unit.StaticHost.
func New(host unit.Host, opts ...Option) *Domain {
	if host == nil {
		host = unit.NewStaticHost()
	}
	d := &Domain{
		guard: lifecycle.NewGuard("domain"),
		host:  host,
		known: unit.NewKnownSet(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = logger.Get("domain")
	}
	if d.settings == nil {
		d.settings = config.NewSettings(nil)
	}
	if d.info.Identity.Name == "" {
		d.info = unit.NewInfo("")
	}
	if d.tracker.Load() == nil {
		d.ownsTracker = true
		d.tracker.Store(d.newTracker())
	}
	d.container.Store(d.newContainer())
	return d
}

func (d *Domain) newContainer() *di.Container {
	return di.New(di.WithName("domain container"), di.WithMetrics(d.metrics))
}

func (d *Domain) newTracker() *tracker.Tracker {
	return tracker.New(tracker.WithMetrics(d.metrics))
}

// State returns the lifecycle state.
func (d *Domain) State() lifecycle.State { return d.guard.State() }

// Container returns the container callbacks register into.
func (d *Domain) Container() *di.Container { return d.container.Load() }

// Tracker returns the domain's resource tracker.
func (d *Domain) Tracker() *tracker.Tracker { return d.tracker.Load() }

// Host returns the unit host.
func (d *Domain) Host() unit.Host { return d.host }

// Settings returns the seeded settings.
func (d *Domain) Settings() *config.Settings { return d.settings }

// Info returns the seeded unit information.
func (d *Domain) Info() unit.Info { return d.info }

// Known returns the identities of scanned units in scan order.
func (d *Domain) Known() []unit.Identity { return d.known.Identities() }

// CreateContext creates the container, seeds it, subscribes to the host and
// scans every loaded unit. Callback failures are returned joined; the domain
// stays created.
func (d *Domain) CreateContext(ctx context.Context) error {
	_, err := d.create(ctx)
	return err
}

// create reports whether this call moved the domain to Created, so callers
// can tell a scan failure from a rejected create.
func (d *Domain) create(ctx context.Context) (created bool, err error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanDomainCreate)
	defer func() { observability.EndSpan(span, err) }()

	if err := d.guard.CreateContext(ctx, d.setup); err != nil {
		return false, err
	}
	d.log.Info("domain created", logger.Fields("info", d.info.String(), "mode", d.mode.String()))
	return true, d.scanLoaded(ctx)
}

// Create is the blocking form of CreateContext.
func (d *Domain) Create() error {
	return d.CreateContext(context.Background())
}

// setup runs under the write lock. A failed setup leaves nothing created so
// Create can be retried.
func (d *Domain) setup(ctx context.Context) error {
	c := d.newContainer()
	if err := c.CreateContext(ctx); err != nil {
		return err
	}
	if err := d.seed(ctx, c); err != nil {
		_ = c.Dispose()
		return err
	}

	t := d.tracker.Load()
	if d.ownsTracker {
		t = d.newTracker()
		if err := t.CreateContext(ctx); err != nil {
			_ = c.Dispose()
			return err
		}
	}

	d.container.Store(c)
	d.tracker.Store(t)
	d.unsubscribe = d.host.Subscribe(d.onLoaded)
	d.accepting.Store(true)
	return nil
}

// seed adds the trusted registrations every callback can rely on.
func (d *Domain) seed(ctx context.Context, c *di.Container) error {
	if err := c.AddContext(ctx, settingsType, di.DefaultSelector, false, resolution.Instance(d.settings)); err != nil {
		return err
	}
	return c.AddContext(ctx, infoType, di.DefaultSelector, false, resolution.Instance(d.info))
}

// DisposeContext disposes the container and an owned tracker, then
// unsubscribes from the host.
func (d *Domain) DisposeContext(ctx context.Context) error {
	return d.guard.DisposeContext(ctx, func(ctx context.Context) error {
		d.accepting.Store(false)
		ctx = context.WithoutCancel(ctx)

		err := d.Container().DisposeContext(ctx)
		if d.ownsTracker {
			err = stderrors.Join(err, d.Tracker().DisposeContext(ctx))
		}
		if d.unsubscribe != nil {
			d.unsubscribe()
		}
		d.log.Info("domain disposed", logger.Fields(logger.FieldCount, d.known.Len()))
		return err
	})
}

// Dispose is the blocking form of DisposeContext.
func (d *Domain) Dispose() error {
	return d.DisposeContext(context.Background())
}

// Close disposes the domain.
func (d *Domain) Close() error { return d.Dispose() }

// ScanContext scans u on demand. Known and dynamic units are skipped.
func (d *Domain) ScanContext(ctx context.Context, u *unit.Unit) error {
	if err := d.guard.Check(); err != nil {
		return err
	}
	return d.scan(ctx, u)
}

// Scan is the blocking form of ScanContext.
func (d *Domain) Scan(u *unit.Unit) error {
	return d.ScanContext(context.Background(), u)
}

// LoadContext asks the host to load the named unit and scans it.
func (d *Domain) LoadContext(ctx context.Context, name string) (*unit.Unit, error) {
	if err := d.guard.Check(); err != nil {
		return nil, err
	}
	u, err := d.host.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	// The host notification usually scanned it already.
	return u, d.scan(ctx, u)
}

// Load is the blocking form of LoadContext.
func (d *Domain) Load(name string) (*unit.Unit, error) {
	return d.LoadContext(context.Background(), name)
}

// onLoaded handles host load notifications.
func (d *Domain) onLoaded(u *unit.Unit) {
	if !d.accepting.Load() {
		return
	}
	if err := d.scan(context.Background(), u); err != nil {
		d.log.Error("scan of loaded unit failed", logger.MergeWithError(
			logger.Fields(logger.FieldUnit, u.Identity.String()), err))
	}
}

func (d *Domain) scanLoaded(ctx context.Context) error {
	var errs []error
	for _, u := range d.host.Units() {
		if !d.accepting.Load() {
			break
		}
		errs = append(errs, d.scan(ctx, u))
	}
	return stderrors.Join(errs...)
}

// Name implements component.Component.
func (d *Domain) Name() string { return "domain" }

// Start implements component.Component. When this call created the domain
// but a scan failed, the domain is disposed, since the registry will not
// stop it. A rejected create, such as a second Start, changes nothing.
func (d *Domain) Start(ctx context.Context) error {
	created, err := d.create(ctx)
	if err != nil && created {
		err = stderrors.Join(err, d.DisposeContext(ctx))
	}
	return err
}

// Stop implements component.Component.
func (d *Domain) Stop(ctx context.Context) error { return d.DisposeContext(ctx) }

// Health implements component.Component.
func (d *Domain) Health(ctx context.Context) component.Health {
	regs, err := d.Container().RegistrationsContext(ctx)
	if err == nil {
		err = d.guard.Check()
	}
	if err != nil {
		return component.Unhealthy(d.Name(), err)
	}
	return component.Healthy(d.Name(), d.summary(len(regs)))
}

// Describe implements component.Describable.
func (d *Domain) Describe() component.Description {
	n := 0
	if regs, err := d.Container().Registrations(); err == nil {
		n = len(regs)
	}
	return component.Description{Name: d.info.Identity.String(), Type: "domain", Details: d.summary(n)}
}

func (d *Domain) summary(registrations int) string {
	return fmt.Sprintf("%d units, %d registrations, %s callbacks", d.known.Len(), registrations, d.mode)
}
