// Command dikit boots a small application over the dikit runtime. It loads a
// greeting unit, resolves services from the domain container and tracks a
// pair of sessions, printing the registrations and the leak report.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/google/uuid"

	"github.com/kbukum/dikit/bootstrap"
	"github.com/kbukum/dikit/config"
	"github.com/kbukum/dikit/di"
	"github.com/kbukum/dikit/domain"
	"github.com/kbukum/dikit/resolution"
	"github.com/kbukum/dikit/tracker"
	"github.com/kbukum/dikit/unit"
	"github.com/kbukum/dikit/version"
)

const serviceName = "dikit"

// Greeter is registered as a singleton by the greetings unit.
type Greeter struct {
	greeting string
}

// Greet returns the configured greeting for name.
func (g *Greeter) Greet(name string) string {
	return fmt.Sprintf("%s, %s", g.greeting, name)
}

// Session is a transient resource handed out per request.
type Session struct {
	id     string
	closed atomic.Bool
}

func (s *Session) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *Session) Closed() bool { return s.closed.Load() }

func (s *Session) String() string { return "session " + s.id }

func newGreeter(c *di.Container) (*Greeter, error) {
	settings, err := di.Resolve[*config.Settings](c, "")
	if err != nil {
		return nil, err
	}
	greeting := settings.GetString("greeting.text")
	if greeting == "" {
		greeting = "hello"
	}
	return &Greeter{greeting: greeting}, nil
}

func newSession() *Session {
	return &Session{id: uuid.NewString()[:8]}
}

// registerGreeter panics on failure; the domain reports a callback panic as
// CALLBACK_FAILED.
func registerGreeter(c *di.Container) {
	if err := di.Register[*Greeter](c, "", resolution.Singleton(newGreeter)); err != nil {
		panic(err)
	}
}

func registerSessions(_ context.Context, c *di.Container) error {
	return di.Register[*Session](c, "", resolution.Transient(newSession))
}

func greetingsUnit() *unit.Unit {
	return unit.New(
		unit.Identity{Name: "greetings", Version: version.Current().String()},
		unit.Callbacks("Registrations", registerGreeter),
	)
}

func sessionsUnit() *unit.Unit {
	return unit.New(
		unit.Identity{Name: "sessions", Version: version.Current().String()},
		unit.Callbacks("Registrations", registerSessions),
	)
}

func main() {
	configFile := flag.String("config", "", "path to a config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configFile string) error {
	var opts []config.LoaderOption
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}

	var cfg config.RuntimeConfig
	settings, err := config.Load(serviceName, &cfg, opts...)
	if err != nil {
		return err
	}
	if cfg.Name == "" {
		cfg.Name = serviceName
	}
	if cfg.Version == "" {
		cfg.Version = version.Current().String()
	}
	cfg.Tracker.CheckOnShutdown = true

	// The sessions unit is loadable but stays unloaded until the task asks for it.
	host := unit.NewStaticHost(greetingsUnit())
	host.Provide(sessionsUnit())

	app, err := bootstrap.NewApp(&cfg,
		bootstrap.WithSettings(settings),
		bootstrap.WithHost(host),
		bootstrap.WithProcessDomain(),
	)
	if err != nil {
		return err
	}

	err = app.RunTask(ctx, demo)
	if report, ok := app.LeakReport(); ok {
		fmt.Println("Shutdown leak report:")
		fmt.Print(report.String())
	}
	return err
}

func demo(ctx context.Context) error {
	d := domain.Current()
	if _, err := d.LoadContext(ctx, "sessions"); err != nil {
		return err
	}
	c := d.Container()

	g, err := di.ResolveContext[*Greeter](ctx, c, "")
	if err != nil {
		return err
	}
	fmt.Println(g.Greet(d.Info().Identity.Name))

	regs, err := c.RegistrationsContext(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Registrations (%d):\n", len(regs))
	for _, r := range regs {
		sel := r.Selector
		if sel == "" {
			sel = "default"
		}
		fmt.Printf("  %s [%s] %s\n", r.Type, sel, r.Lifetime)
	}

	return track(ctx, d.Tracker(), c)
}

// track leases one session and leaves another open so the report shows it.
func track(ctx context.Context, t *tracker.Tracker, c *di.Container) error {
	slot, err := t.EnterContext(ctx)
	if err != nil {
		return err
	}
	_, err = tracker.LeaveWith(t, slot, struct{}{}, useSessions(ctx, t, slot, c))
	return err
}

func useSessions(ctx context.Context, t *tracker.Tracker, slot tracker.Slot, c *di.Container) error {
	leased, err := di.ResolveContext[*Session](ctx, c, "")
	if err != nil {
		return err
	}
	lease, err := tracker.AcquireContext(ctx, t, slot, leased)
	if err != nil {
		return err
	}
	defer lease.Close()

	open, err := di.ResolveContext[*Session](ctx, c, "")
	if err != nil {
		return err
	}
	if err := tracker.WatchContext(ctx, t, slot, open); err != nil {
		return err
	}

	report, err := t.CheckContext(ctx)
	if err != nil {
		return err
	}
	fmt.Println("Leak report while the task runs:")
	fmt.Print(report.String())
	return nil
}
