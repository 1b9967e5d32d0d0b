package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kbukum/dikit/component"
	"github.com/kbukum/dikit/config"
	"github.com/kbukum/dikit/di"
	"github.com/kbukum/dikit/domain"
	"github.com/kbukum/dikit/logger"
	"github.com/kbukum/dikit/observability"
	"github.com/kbukum/dikit/tracker"
	"github.com/kbukum/dikit/unit"
)

// MeterName is the meter the runtime's instruments are created on.
const MeterName = "github.com/kbukum/dikit"

// App represents a dikit host with uniform lifecycle management.
// The type parameter C is the config type, which must satisfy the Config interface.
// Any struct embedding config.RuntimeConfig automatically satisfies Config.
//
// Example:
//
//	app, err := bootstrap.NewApp(&myConfig, bootstrap.WithHost(host))
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*MyConfig]) error {
//	    // a.Cfg is a *MyConfig
//	    return nil
//	})
//	app.Run(context.Background())
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Settings   *config.Settings
	Domain     *domain.Domain
	Tracker    *tracker.Tracker
	Components *component.Registry
	Logger     *logger.Logger
	Metrics    *observability.Metrics
	Summary    *Summary

	trackerComponent *trackerComponent
	gracefulTimeout  time.Duration
	output           io.Writer
	onConfigure      []func(ctx context.Context, app *App[C]) error
	hooks            hookSet
}

// NewApp creates a new application instance from a typed config.
// It applies defaults, validates the config, initializes the logger and
// builds the tracker and domain as components.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	rt := cfg.GetRuntimeConfig()

	app := &App[C]{
		Name:            rt.Name,
		Version:         rt.Version,
		Cfg:             cfg,
		Components:      component.NewRegistry(),
		gracefulTimeout: 15 * time.Second,
		output:          os.Stdout,
	}

	o := resolveOptions(opts)
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	if o.output != nil {
		app.output = o.output
	}
	app.Settings = o.settings
	if app.Settings == nil {
		app.Settings = config.NewSettings(nil)
	}

	// Logger: use custom if provided, otherwise init from config.
	if o.logger != nil {
		app.Logger = o.logger
	} else {
		logger.Init(&rt.Logging)
		logger.RegisterDefaults("di", "tracker", "domain", "component", "config", "resolution")
		app.Logger = logger.GetGlobalLogger()
	}

	if err := app.wire(rt, o.host); err != nil {
		return nil, err
	}
	if o.install && !domain.Install(app.Domain) {
		app.Logger.Warn("a process-wide domain is already installed")
	}

	app.Summary = NewSummary(rt.Name, rt.Version)
	return app, nil
}

// wire builds the runtime components in start order.
func (a *App[C]) wire(rt *config.RuntimeConfig, host unit.Host) error {
	if rt.Observability.Enabled {
		// Instruments created on the global meter follow the provider the
		// telemetry component installs on start.
		metrics, err := observability.NewMetrics(observability.Meter(MeterName))
		if err != nil {
			return fmt.Errorf("creating metrics: %w", err)
		}
		a.Metrics = metrics
		if err := a.Components.Register(&telemetry{service: &rt.ServiceConfig, cfg: rt.Observability}); err != nil {
			return err
		}
	}

	mode, err := domain.ParseCallbackMode(rt.Domain.CallbackMode)
	if err != nil {
		return err
	}

	a.Tracker = tracker.New(
		tracker.WithSweepInterval(rt.Tracker.SweepInterval),
		tracker.WithMetrics(a.Metrics),
	)
	a.trackerComponent = &trackerComponent{
		Tracker: a.Tracker,
		cfg:     rt.Tracker,
		log:     logger.Get("tracker"),
	}

	a.Domain = domain.New(host,
		domain.WithSettings(a.Settings),
		domain.WithInfo(unit.NewInfo(a.Name)),
		domain.WithMetrics(a.Metrics),
		domain.WithCallbackMode(mode),
		domain.WithScanTimeout(rt.Domain.ScanTimeout),
		domain.WithTracker(a.Tracker),
	)

	if err := a.Components.Register(a.trackerComponent); err != nil {
		return err
	}
	return a.Components.Register(a.Domain)
}

// Container returns the domain container.
func (a *App[C]) Container() *di.Container {
	return a.Domain.Container()
}

// LeakReport returns the tracker report taken during shutdown, if one ran.
func (a *App[C]) LeakReport() (tracker.Report, bool) {
	return a.trackerComponent.shutdownReport()
}

// RegisterComponent adds a component to the application's registry. It
// starts after the runtime components and stops before them.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// OnConfigure registers a callback to run during the configure phase.
// Use this for registrations that need the scanned container.
func (a *App[C]) OnConfigure(fn func(ctx context.Context, app *App[C]) error) {
	a.onConfigure = append(a.onConfigure, fn)
}

// ReadyCheck reports every component that is not healthy as
// "name=status(message)".
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var errs []error
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status == component.StatusHealthy {
			continue
		}
		msg := h.Name + "=" + string(h.Status)
		if h.Message != "" {
			msg += "(" + h.Message + ")"
		}
		errs = append(errs, stderrors.New(msg))
	}
	if err := stderrors.Join(errs...); err != nil {
		return fmt.Errorf("ready check: %w", err)
	}
	return nil
}

// Run starts the runtime, waits for SIGINT, SIGTERM or ctx, then stops.
// Phases: components, start hooks, configure callbacks, ready check, ready
// hooks. Stop runs the stop hooks, then the components in reverse order.
func (a *App[C]) Run(ctx context.Context) error {
	if err := a.startup(ctx); err != nil {
		return err
	}
	a.Logger.Info("Runtime ready, waiting for shutdown signal")
	a.WaitForSignal(ctx)
	return a.stop()
}

// RunTask starts the runtime, runs task and stops. The task context is
// cancelled on SIGINT or SIGTERM. The task error wins over a stop error.
//
//	app.RunTask(ctx, func(ctx context.Context) error {
//	    return useContainer(ctx, app.Container())
//	})
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		return err
	}

	taskCtx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	taskErr := task(taskCtx)
	stopSignals()

	stopErr := a.stop()
	if taskErr != nil {
		return taskErr
	}
	return stopErr
}

func (a *App[C]) startup(ctx context.Context) error {
	began := time.Now()
	a.Logger.Info("Starting runtime", logger.Fields("name", a.Name, "version", a.Version))

	a.Logger.Info("Starting components", logger.Fields(logger.FieldCount, len(a.Components.All())))
	if err := a.Components.StartAll(ctx); err != nil {
		return fmt.Errorf("starting components: %w", err)
	}

	if err := a.hooks.run(ctx, PhaseStart, a.Logger); err != nil {
		return a.abort(err)
	}
	for i, fn := range a.onConfigure {
		if err := fn(ctx, a); err != nil {
			return a.abort(fmt.Errorf("configure callback %d: %w", i, err))
		}
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("Ready check reported issues", logger.ErrorFields("ready_check", err))
	}
	if err := a.hooks.run(ctx, PhaseReady, a.Logger); err != nil {
		return a.abort(err)
	}

	a.Summary.SetStartupDuration(time.Since(began))
	a.DisplaySummary()
	return nil
}

// abort stops what startup started and returns err.
func (a *App[C]) abort(err error) error {
	if stopErr := a.stop(); stopErr != nil {
		a.Logger.Error("Stop after failed startup", logger.ErrorFields("stop", stopErr))
	}
	return err
}

// DisplaySummary writes the startup summary to the configured output.
func (a *App[C]) DisplaySummary() {
	a.Summary.Write(a.output, a.Components, a.Domain)
}

// WaitForSignal blocks until SIGINT, SIGTERM or ctx. It returns nil when ctx
// ended the wait.
func (a *App[C]) WaitForSignal(ctx context.Context) os.Signal {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	select {
	case sig := <-signals:
		a.Logger.Info("Shutdown signal received", logger.Fields("signal", sig.String()))
		return sig
	case <-ctx.Done():
		return nil
	}
}

// Shutdown stops the runtime for hosts that drive their own lifecycle.
func (a *App[C]) Shutdown(context.Context) error {
	return a.stop()
}

// stop runs the stop hooks and stops the components within the graceful
// timeout. The domain stops before the tracker, so the leak check sees the
// container's owned instances closed.
func (a *App[C]) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	a.Logger.Info("Stopping runtime", logger.Fields("timeout", a.gracefulTimeout.String()))
	err := stderrors.Join(
		a.hooks.run(ctx, PhaseStop, a.Logger),
		a.Components.StopAll(ctx),
	)
	if err != nil {
		a.Logger.Error("Stop completed with errors", logger.ErrorFields("stop", err))
		return err
	}
	a.Logger.Info("Runtime stopped")
	return nil
}
