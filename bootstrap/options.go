package bootstrap

import (
	"io"
	"time"

	"github.com/kbukum/dikit/config"
	"github.com/kbukum/dikit/logger"
	"github.com/kbukum/dikit/unit"
)

// Option configures the App during creation.
// Options are non-generic so they can be used with any config type.
type Option func(*appOptions)

// appOptions collects all option values before applying to App.
type appOptions struct {
	logger          *logger.Logger
	gracefulTimeout *time.Duration
	host            unit.Host
	settings        *config.Settings
	install         bool
	output          io.Writer
}

// resolveOptions applies all options and returns the collected values.
func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger for the application.
// If not set, the logger is auto-initialized from the config's Logging field.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
	}
}

// WithGracefulTimeout sets the maximum duration for graceful shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = &d
	}
}

// WithHost sets the unit host the domain scans. Defaults to an empty
// unit.StaticHost.
func WithHost(h unit.Host) Option {
	return func(o *appOptions) {
		o.host = h
	}
}

// WithSettings sets the settings seeded into the domain container, usually
// the value returned by config.Load.
func WithSettings(s *config.Settings) Option {
	return func(o *appOptions) {
		o.settings = s
	}
}

// WithProcessDomain installs the app's domain as the process-wide domain.
func WithProcessDomain() Option {
	return func(o *appOptions) {
		o.install = true
	}
}

// WithSummaryOutput sets where the startup summary is written. Defaults to
// os.Stdout.
func WithSummaryOutput(w io.Writer) Option {
	return func(o *appOptions) {
		o.output = w
	}
}
