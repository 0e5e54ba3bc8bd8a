package telemetry

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/hollowmap/cartographer/core"
)

// OTelProvider implements core.Telemetry on top of the OpenTelemetry SDK,
// exporting spans and counters via OTLP/HTTP. One provider spans the whole
// engine: the dispatcher, the chain refiner, and the update applier all
// start spans and emit counters through the same instance.
type OTelProvider struct {
	tracer   trace.Tracer
	meter    metric.Meter
	tp       *sdktrace.TracerProvider
	mp       *sdkmetric.MeterProvider
	counters sync.Map // metric name -> metric.Float64Counter

	shutdownOnce sync.Once
	mu           sync.RWMutex
	shutdown     bool
}

// NewOTelProvider wires up OTLP/HTTP trace and metric exporters for
// serviceName at endpoint (e.g. "localhost:4318").
func NewOTelProvider(serviceName, endpoint string) (*OTelProvider, error) {
	if serviceName == "" {
		return nil, fmt.Errorf("telemetry: service name is required")
	}
	if endpoint == "" {
		endpoint = "localhost:4318"
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)

	ctx := context.Background()

	traceExporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: trace exporter: %w", err)
	}

	metricExporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpoint(endpoint),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		_ = traceExporter.Shutdown(ctx)
		return nil, fmt.Errorf("telemetry: metric exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(30*time.Second))),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return &OTelProvider{
		tracer: tp.Tracer("cartographer"),
		meter:  mp.Meter("cartographer"),
		tp:     tp,
		mp:     mp,
	}, nil
}

// StartSpan starts a new span named name, nesting under any span already in
// ctx.
func (o *OTelProvider) StartSpan(ctx context.Context, name string) (context.Context, core.Span) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.shutdown || o.tracer == nil {
		return ctx, core.NoOpSpan{}
	}
	ctx, span := o.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

// Counter increments name by value with the given labels, lazily creating
// the underlying OTel instrument on first use.
func (o *OTelProvider) Counter(name string, value float64, labels map[string]string) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.shutdown || o.meter == nil {
		return
	}

	inst, err := o.counterFor(name)
	if err != nil {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	inst.Add(context.Background(), value, metric.WithAttributes(attrs...))
}

func (o *OTelProvider) counterFor(name string) (metric.Float64Counter, error) {
	if v, ok := o.counters.Load(name); ok {
		return v.(metric.Float64Counter), nil
	}
	inst, err := o.meter.Float64Counter(sanitizeMetricName(name))
	if err != nil {
		return nil, err
	}
	actual, _ := o.counters.LoadOrStore(name, inst)
	return actual.(metric.Float64Counter), nil
}

func sanitizeMetricName(name string) string {
	return strings.ReplaceAll(name, " ", "_")
}

// Shutdown flushes and tears down the trace and metric providers. Safe to
// call more than once.
func (o *OTelProvider) Shutdown(ctx context.Context) error {
	var err error
	o.shutdownOnce.Do(func() {
		o.mu.Lock()
		o.shutdown = true
		o.mu.Unlock()

		var errs []error
		if o.mp != nil {
			if e := o.mp.Shutdown(ctx); e != nil {
				errs = append(errs, e)
			}
		}
		if o.tp != nil {
			if e := o.tp.Shutdown(ctx); e != nil {
				errs = append(errs, e)
			}
		}
		if len(errs) > 0 {
			err = fmt.Errorf("telemetry shutdown errors: %v", errs)
		}
	})
	return err
}

type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) End() { s.span.End() }

func (s *otelSpan) SetAttribute(key string, value interface{}) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

func (s *otelSpan) RecordError(err error) {
	s.span.RecordError(err)
}

var _ core.Telemetry = (*OTelProvider)(nil)
