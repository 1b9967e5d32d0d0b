// Package bootstrap orchestrates the lifecycle of a dikit host.
//
// It validates typed configuration, initializes the logger and optional
// OTLP telemetry, and registers the tracker and domain as components so they
// start in order and stop in reverse.
//
// # Quick Start
//
//	var cfg config.RuntimeConfig
//	settings, _ := config.Load("my-host", &cfg)
//	app, err := bootstrap.NewApp(&cfg,
//	    bootstrap.WithSettings(settings),
//	    bootstrap.WithHost(unit.NewStaticHost(units...)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = app.RunTask(ctx, func(ctx context.Context) error {
//	    svc, err := di.ResolveContext[Service](ctx, app.Container(), "")
//	    ...
//	})
//
// On shutdown the domain disposes its container first; the tracker then
// runs a leak check when tracker.check_on_shutdown is set.
package bootstrap
