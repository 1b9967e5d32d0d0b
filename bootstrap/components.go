package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/kbukum/dikit/component"
	"github.com/kbukum/dikit/config"
	"github.com/kbukum/dikit/errors"
	"github.com/kbukum/dikit/logger"
	"github.com/kbukum/dikit/observability"
	"github.com/kbukum/dikit/tracker"
)

// trackerComponent manages the tracker and runs the shutdown leak check.
// It is registered before the domain so the check sees the container's
// owned instances already closed.
type trackerComponent struct {
	*tracker.Tracker
	cfg config.TrackerConfig
	log *logger.Logger

	mu     sync.Mutex
	report *tracker.Report
}

// Stop checks for leaks, when configured, then disposes the tracker.
func (c *trackerComponent) Stop(ctx context.Context) error {
	var leakErr error
	if c.cfg.CheckOnShutdown {
		report, err := c.CheckContext(ctx)
		if err != nil {
			c.log.Warn("shutdown leak check failed", logger.ErrorFields("check", err))
		} else {
			c.mu.Lock()
			c.report = &report
			c.mu.Unlock()

			c.log.Info("shutdown leak check", logger.Fields("summary", report.Summary()))
			if c.cfg.FailOnLeak && report.HasLeaks() {
				leakErr = fmt.Errorf("resource leaks on shutdown: %s", report.Summary())
			}
		}
	}
	return stderrors.Join(leakErr, c.DisposeContext(ctx))
}

// Describe implements component.Describable.
func (c *trackerComponent) Describe() component.Description {
	slots, _ := c.Slots()
	details := fmt.Sprintf("%d slots", len(slots))
	if c.cfg.SweepInterval > 0 {
		details += ", sweep every " + c.cfg.SweepInterval.String()
	}
	return component.Description{Name: c.Name(), Type: "tracker", Details: details}
}

// shutdownReport returns the report of the last shutdown check, if any.
func (c *trackerComponent) shutdownReport() (tracker.Report, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.report == nil {
		return tracker.Report{}, false
	}
	return *c.report, true
}

// telemetry exports traces and metrics over OTLP/HTTP while started.
type telemetry struct {
	service *config.ServiceConfig
	cfg     config.ObservabilityConfig

	providers *observability.Providers
}

func (t *telemetry) Name() string { return "telemetry" }

func (t *telemetry) Start(ctx context.Context) error {
	p, err := observability.Setup(ctx, observability.Config{
		ServiceName:    t.service.Name,
		ServiceVersion: t.service.Version,
		Environment:    t.service.Environment,
		Endpoint:       t.cfg.Endpoint,
		Insecure:       t.cfg.Insecure,
		SampleRate:     t.cfg.SampleRate,
		MetricInterval: t.cfg.MetricInterval,
	})
	if err != nil {
		return err
	}
	t.providers = p
	return nil
}

func (t *telemetry) Stop(ctx context.Context) error {
	err := t.providers.Shutdown(ctx)
	t.providers = nil
	return err
}

func (t *telemetry) Health(context.Context) component.Health {
	if t.providers == nil {
		return component.Unhealthy(t.Name(), errors.NotInitialized(t.Name()))
	}
	return component.Healthy(t.Name(), t.cfg.Endpoint)
}

func (t *telemetry) Describe() component.Description {
	return component.Description{
		Name:    t.Name(),
		Type:    "observability",
		Details: fmt.Sprintf("otlp http %s, sample rate %g", t.cfg.Endpoint, t.cfg.SampleRate),
	}
}
