package observability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewMetrics_Noop(t *testing.T) {
	metrics, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}

	ctx := context.Background()
	metrics.RecordResolve(ctx, "singleton", nil)
	metrics.AddRegistrations(ctx, 2)
	metrics.AddTracked(ctx, -1)
	metrics.RecordLeaks(ctx, 3)
	metrics.RecordUnitScanned(ctx, "core")
	metrics.RecordCallback(ctx, "core", errors.New("boom"))
	metrics.RecordOperation(ctx, "create", nil, 10*time.Millisecond)
}

func TestMetrics_NilReceiver(t *testing.T) {
	var metrics *Metrics
	ctx := context.Background()

	// None of these may panic.
	metrics.RecordResolve(ctx, "instance", nil)
	metrics.AddRegistrations(ctx, 1)
	metrics.AddTracked(ctx, 1)
	metrics.RecordLeaks(ctx, 1)
	metrics.RecordUnitScanned(ctx, "core")
	metrics.RecordCallback(ctx, "core", nil)
	metrics.RecordOperation(ctx, "scan", nil, time.Millisecond)
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumOf(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected int64 sum, got %T", data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_Recorded(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	ctx := context.Background()
	metrics.RecordResolve(ctx, "singleton", nil)
	metrics.RecordResolve(ctx, "singleton", errors.New("missing"))
	metrics.AddRegistrations(ctx, 3)
	metrics.AddRegistrations(ctx, -1)
	metrics.AddTracked(ctx, 2)
	metrics.RecordLeaks(ctx, 4)
	metrics.RecordUnitScanned(ctx, "core")

	data := collect(t, reader)

	if got := sumOf(t, data[MetricResolveTotal]); got != 2 {
		t.Errorf("expected 2 resolves, got %d", got)
	}
	if got := sumOf(t, data[MetricRegistrations]); got != 2 {
		t.Errorf("expected 2 registrations, got %d", got)
	}
	if got := sumOf(t, data[MetricTracked]); got != 2 {
		t.Errorf("expected 2 tracked, got %d", got)
	}
	if got := sumOf(t, data[MetricLeaks]); got != 4 {
		t.Errorf("expected 4 leaks, got %d", got)
	}
	if got := sumOf(t, data[MetricUnitsScanned]); got != 1 {
		t.Errorf("expected 1 unit scanned, got %d", got)
	}

	resolves := data[MetricResolveTotal].(metricdata.Sum[int64])
	if len(resolves.DataPoints) != 2 {
		t.Errorf("expected one data point per outcome, got %d", len(resolves.DataPoints))
	}
}

func TestMeter(t *testing.T) {
	if Meter("test-meter") == nil {
		t.Fatal("expected non-nil meter")
	}
}

func TestStartSpan_EndSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	_, span := StartSpan(context.Background(), SpanUnitScan)
	EndSpan(span, nil)

	_, failed := StartSpan(context.Background(), SpanDomainCreate)
	EndSpan(failed, errors.New("scan failed"))

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name != SpanUnitScan {
		t.Errorf("expected span %q, got %q", SpanUnitScan, spans[0].Name)
	}
	if spans[0].Status.Code == codes.Error {
		t.Error("expected successful span to not carry error status")
	}
	if spans[1].Status.Code != codes.Error {
		t.Errorf("expected error status, got %v", spans[1].Status.Code)
	}
	if len(spans[1].Events) == 0 {
		t.Error("expected recorded error event")
	}
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
	}
	for _, tc := range tests {
		if got := samplerFor(tc.rate).Description(); got != tc.want {
			t.Errorf("samplerFor(%v) = %q, want %q", tc.rate, got, tc.want)
		}
	}
}

func TestNewResource(t *testing.T) {
	res, err := newResource("svc", "1.2.3", "test")
	if err != nil {
		t.Fatalf("newResource: %v", err)
	}
	found := false
	for _, kv := range res.Attributes() {
		if string(kv.Key) == AttrServiceVersion && kv.Value.AsString() == "1.2.3" {
			found = true
		}
	}
	if !found {
		t.Error("expected service.version attribute on resource")
	}
}

func TestSetupAndShutdown(t *testing.T) {
	prevTP, prevMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	defer func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
	}()

	// Exporters connect lazily, so Setup succeeds without a collector.
	p, err := Setup(context.Background(), Config{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		SampleRate:     0.5,
		MetricInterval: time.Hour,
	})
	if err != nil {
		t.Skipf("Setup failed: %v", err)
	}
	if p.Tracer == nil || p.Meter == nil {
		t.Fatal("expected both providers")
	}
	if otel.GetTracerProvider() != p.Tracer {
		t.Error("expected the tracer provider to be installed globally")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	// Flushing to a missing collector may fail; only a panic is a bug here.
	_ = p.Shutdown(ctx)
}

func TestProvidersShutdownNil(t *testing.T) {
	var p *Providers
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("expected nil-safe shutdown, got %v", err)
	}
	if err := (&Providers{}).Shutdown(context.Background()); err != nil {
		t.Errorf("expected empty providers to shut down cleanly, got %v", err)
	}
}

func TestSamplerForRatio(t *testing.T) {
	if got := samplerFor(0.25).Description(); !strings.Contains(got, "ParentBased") || !strings.Contains(got, "TraceIDRatioBased") {
		t.Errorf("expected a parent-based ratio sampler, got %q", got)
	}
}
