package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metric names.
const (
	MetricResolveTotal      = "di.resolve.total"
	MetricRegistrations     = "di.registrations"
	MetricTracked           = "tracker.tracked"
	MetricLeaks             = "tracker.leaks"
	MetricUnitsScanned      = "domain.units.scanned"
	MetricCallbacksInvoked  = "domain.callbacks.invoked"
	MetricOperationDuration = "operation.duration"
)

// Outcome attribute values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds the runtime's metric instruments. All methods are safe on a
// nil receiver.
type Metrics struct {
	resolveTotal      metric.Int64Counter
	registrations     metric.Int64UpDownCounter
	tracked           metric.Int64UpDownCounter
	leaks             metric.Int64Counter
	unitsScanned      metric.Int64Counter
	callbacksInvoked  metric.Int64Counter
	operationDuration metric.Float64Histogram
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	resolveTotal, err := meter.Int64Counter(MetricResolveTotal,
		metric.WithDescription("Total number of resolve calls by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricResolveTotal, err)
	}

	registrations, err := meter.Int64UpDownCounter(MetricRegistrations,
		metric.WithDescription("Number of registrations currently held"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s gauge: %w", MetricRegistrations, err)
	}

	tracked, err := meter.Int64UpDownCounter(MetricTracked,
		metric.WithDescription("Number of resources currently tracked"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s gauge: %w", MetricTracked, err)
	}

	leaks, err := meter.Int64Counter(MetricLeaks,
		metric.WithDescription("Leaked resources reported by checks"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricLeaks, err)
	}

	unitsScanned, err := meter.Int64Counter(MetricUnitsScanned,
		metric.WithDescription("Code units scanned for registration callbacks"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricUnitsScanned, err)
	}

	callbacksInvoked, err := meter.Int64Counter(MetricCallbacksInvoked,
		metric.WithDescription("Registration callbacks invoked by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricCallbacksInvoked, err)
	}

	operationDuration, err := meter.Float64Histogram(MetricOperationDuration,
		metric.WithDescription("Duration of runtime operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricOperationDuration, err)
	}

	return &Metrics{
		resolveTotal:      resolveTotal,
		registrations:     registrations,
		tracked:           tracked,
		leaks:             leaks,
		unitsScanned:      unitsScanned,
		callbacksInvoked:  callbacksInvoked,
		operationDuration: operationDuration,
	}, nil
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// RecordResolve counts a resolve call.
func (m *Metrics) RecordResolve(ctx context.Context, lifetime string, err error) {
	if m == nil {
		return
	}
	m.resolveTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrLifetime, lifetime),
		attribute.String(AttrOutcome, outcome(err)),
	))
}

// AddRegistrations moves the registration gauge by delta.
func (m *Metrics) AddRegistrations(ctx context.Context, delta int64) {
	if m == nil || delta == 0 {
		return
	}
	m.registrations.Add(ctx, delta)
}

// AddTracked moves the tracked-resources gauge by delta.
func (m *Metrics) AddTracked(ctx context.Context, delta int64) {
	if m == nil || delta == 0 {
		return
	}
	m.tracked.Add(ctx, delta)
}

// RecordLeaks counts leaks found by a check.
func (m *Metrics) RecordLeaks(ctx context.Context, n int64) {
	if m == nil || n == 0 {
		return
	}
	m.leaks.Add(ctx, n)
}

// RecordUnitScanned counts a scanned code unit.
func (m *Metrics) RecordUnitScanned(ctx context.Context, unit string) {
	if m == nil {
		return
	}
	m.unitsScanned.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrUnit, unit)))
}

// RecordCallback counts an invoked registration callback.
func (m *Metrics) RecordCallback(ctx context.Context, unit string, err error) {
	if m == nil {
		return
	}
	m.callbacksInvoked.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrUnit, unit),
		attribute.String(AttrOutcome, outcome(err)),
	))
}

// RecordOperation records the duration of a named operation.
func (m *Metrics) RecordOperation(ctx context.Context, operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	m.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrOperationName, operation),
		attribute.String(AttrOutcome, outcome(err)),
	))
}
