package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/kbukum/dikit"

// Span names.
const (
	SpanDomainCreate = "domain.create"
	SpanUnitScan     = "domain.scan"
	SpanTrackerCheck = "tracker.check"
)

// Attribute keys.
const (
	AttrServiceName    = "service.name"
	AttrServiceVersion = "service.version"
	AttrEnvironment    = "deployment.environment"
	AttrOperationName  = "operation.name"
	AttrOutcome        = "outcome"
	AttrLifetime       = "di.lifetime"
	AttrUnit           = "unit.name"
	AttrCallbacks      = "unit.callbacks"
	AttrLeaks          = "tracker.leaks"
)

// StartSpan starts a span on the runtime's tracer. Until Setup runs the
// global provider is a no-op, so spans cost nothing.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, opts...)
}

// EndSpan marks span failed when err is set and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
